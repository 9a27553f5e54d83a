package domain

// InterestProfile is a catalog entry. Only the keys of Interests take part in scoring.
type InterestProfile struct {
	ID        UserID         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Age       int            `json:"age" yaml:"age"`
	Interests map[string]any `json:"interests" yaml:"interests"`
}

// Topics returns the interest keys of the profile.
func (p InterestProfile) Topics() []string {
	topics := make([]string, 0, len(p.Interests))
	for topic := range p.Interests {
		topics = append(topics, topic)
	}
	return topics
}

// Recommendation is a scored candidate computed per request, never persisted.
type Recommendation struct {
	ID        UserID         `json:"id"`
	Name      string         `json:"name"`
	Age       int            `json:"age"`
	Interests map[string]any `json:"interests"`
	Score     int            `json:"score"`
}
