// Package catalog holds the read-only snapshot of user interest profiles.
//
// A Catalog is built once at startup and never mutated afterwards, so it can be shared by every request
// goroutine without locking.
package catalog

import (
	"bytes"
	"dm-lab/domain"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// snapshot is the on-disk shape: {"users": [{"id", "name", "age", "interests": {topic: value}}]}.
type snapshot struct {
	Users []domain.InterestProfile `json:"users" yaml:"users"`
}

type Catalog struct {
	profiles map[domain.UserID]domain.InterestProfile
	ids      []domain.UserID
	byTopic  map[string][]domain.UserID
}

// New builds a catalog from already decoded profiles. Profiles with a non-positive id are ignored and the
// first occurrence of a duplicated id wins.
func New(profiles ...domain.InterestProfile) *Catalog {
	c := &Catalog{
		profiles: make(map[domain.UserID]domain.InterestProfile, len(profiles)),
		byTopic:  make(map[string][]domain.UserID),
	}
	for _, p := range profiles {
		if !p.ID.Valid() {
			continue
		}
		if _, dup := c.profiles[p.ID]; dup {
			continue
		}
		if p.Interests == nil {
			p.Interests = map[string]any{}
		}
		c.profiles[p.ID] = p
		c.ids = append(c.ids, p.ID)
	}
	sort.Slice(c.ids, func(i, j int) bool { return c.ids[i] < c.ids[j] })
	for _, id := range c.ids {
		for _, topic := range c.profiles[id].Topics() {
			c.byTopic[topic] = append(c.byTopic[topic], id)
		}
	}
	return c
}

// Empty is the degraded catalog used when no snapshot could be loaded.
func Empty() *Catalog {
	return New()
}

// Parse decodes a snapshot. YAML is accepted as well so snapshots can be hand written.
func Parse(r io.Reader, format Format) (*Catalog, []domain.UserID, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	var snap snapshot
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &snap)
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		err = decoder.Decode(&snap)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s snapshot: %w", format, err)
	}
	return New(snap.Users...), skipped(snap.Users), nil
}

// Load reads the snapshot at path. It never fails: a missing or corrupt source is logged and an empty
// catalog is returned, so recommendations degrade to empty results instead of stopping the process.
func Load(path string, log *slog.Logger) *Catalog {
	if path == "" {
		log.Warn("No interest catalog configured, recommendations will be empty")
		return Empty()
	}
	file, err := os.Open(path)
	if err != nil {
		log.Warn("Interest catalog unavailable, recommendations will be empty", "path", path, "error", err)
		return Empty()
	}
	defer file.Close()

	c, ignored, err := Parse(file, FormatOf(path))
	if err != nil {
		log.Warn("Interest catalog is corrupt, recommendations will be empty", "path", path, "error", err)
		return Empty()
	}
	if len(ignored) > 0 {
		log.Warn("Some catalog entries were ignored (invalid or duplicated id)", "ids", ignored)
	}
	log.Info(fmt.Sprintf("%d interest profiles loaded", c.Len()), "path", path, "topics", len(c.byTopic))
	return c
}

// FormatOf guesses the snapshot format from the file extension, JSON by default.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

func (c *Catalog) Lookup(id domain.UserID) (domain.InterestProfile, bool) {
	p, ok := c.profiles[id]
	return p, ok
}

// Profiles returns every profile ordered by ascending id.
func (c *Catalog) Profiles() []domain.InterestProfile {
	return lo.Map(c.ids, func(id domain.UserID, _ int) domain.InterestProfile {
		return c.profiles[id]
	})
}

// SharingTopic returns the ids of the profiles having topic, ascending.
func (c *Catalog) SharingTopic(topic string) []domain.UserID {
	return c.byTopic[topic]
}

func (c *Catalog) Len() int {
	return len(c.ids)
}

func skipped(users []domain.InterestProfile) []domain.UserID {
	seen := make(map[domain.UserID]struct{}, len(users))
	var out []domain.UserID
	for _, u := range users {
		if _, dup := seen[u.ID]; dup || !u.ID.Valid() {
			out = append(out, u.ID)
			continue
		}
		seen[u.ID] = struct{}{}
	}
	return out
}
