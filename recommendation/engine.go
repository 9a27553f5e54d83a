// Package recommendation ranks friend candidates by how many interest topics they share with the caller.
package recommendation

import (
	"dm-lab/catalog"
	"dm-lab/domain"
	"sort"

	"github.com/samber/lo"
)

// DefaultLimit is the size of the top-N slice served to clients.
const DefaultLimit = 5

type IRecommender interface {
	Profile(callerID domain.UserID) (domain.InterestProfile, bool)
	Recommend(callerID domain.UserID, limit int) []domain.Recommendation
}

// Engine is stateless: every call recomputes the scores from the catalog's topic index.
type Engine struct {
	catalog *catalog.Catalog
}

func NewEngine(c *catalog.Catalog) *Engine {
	if c == nil {
		c = catalog.Empty()
	}
	return &Engine{catalog: c}
}

func (e *Engine) Profile(callerID domain.UserID) (domain.InterestProfile, bool) {
	return e.catalog.Lookup(callerID)
}

// Recommend scores every other cataloged user by |keys(caller) ∩ keys(other)| and returns the best limit
// of them, highest score first and ascending user id among equal scores. Zero scores are kept.
// An unknown caller gets an empty slice.
func (e *Engine) Recommend(callerID domain.UserID, limit int) []domain.Recommendation {
	caller, ok := e.catalog.Lookup(callerID)
	if !ok || limit <= 0 {
		return []domain.Recommendation{}
	}

	shared := make(map[domain.UserID]int)
	for _, topic := range caller.Topics() {
		for _, id := range e.catalog.SharingTopic(topic) {
			shared[id]++
		}
	}

	candidates := lo.FilterMap(e.catalog.Profiles(), func(other domain.InterestProfile, _ int) (domain.Recommendation, bool) {
		if other.ID == callerID {
			return domain.Recommendation{}, false
		}
		return domain.Recommendation{
			ID:        other.ID,
			Name:      other.Name,
			Age:       other.Age,
			Interests: other.Interests,
			Score:     shared[other.ID],
		}, true
	})

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
