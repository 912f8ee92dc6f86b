package models

import (
	"sort"
	"strings"
	"time"

	"github.com/aleister1102/resourcewatch/internal/common"
)

// Target is a tracked (owner, url) pair with its persisted check state.
type Target struct {
	ID              string     `json:"id"`
	Owner           string     `json:"owner"`
	URL             string     `json:"url"`
	Name            string     `json:"name"`
	IntervalMinutes int        `json:"interval_minutes"`
	NightMode       bool       `json:"night_mode"`
	ContentHash     string     `json:"content_hash,omitempty"`
	Content         string     `json:"-"`
	SentHashes      HashSet    `json:"-"`
	Documents       []Document `json:"documents,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastChecked     time.Time  `json:"last_checked,omitempty"`
}

// TargetID derives the registry key for an owner and URL.
func TargetID(owner, url string) string {
	return owner + "_" + common.ShortHash(url, 16)
}

// Validate checks the fields required to schedule a target.
func (t *Target) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return common.NewValidationError("owner", t.Owner, "owner is required")
	}
	if strings.TrimSpace(t.URL) == "" {
		return common.NewValidationError("url", t.URL, "url is required")
	}
	if t.IntervalMinutes <= 0 {
		return common.NewValidationError("interval_minutes", t.IntervalMinutes, "interval must be positive")
	}
	return nil
}

// Interval returns the check interval as a duration.
func (t *Target) Interval() time.Duration {
	return time.Duration(t.IntervalMinutes) * time.Minute
}

// DisplayName returns the name, or the URL when unnamed.
func (t *Target) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.URL
}

// Meta returns the delivery-facing subset of the target.
func (t *Target) Meta() TargetMeta {
	return TargetMeta{ID: t.ID, Owner: t.Owner, Name: t.DisplayName(), URL: t.URL}
}

// HashSet is a set of identity digests.
type HashSet map[string]struct{}

// NewHashSet builds a set from a list of digests.
func NewHashSet(hashes ...string) HashSet {
	s := make(HashSet, len(hashes))
	for _, h := range hashes {
		s[h] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s HashSet) Has(hash string) bool {
	_, ok := s[hash]
	return ok
}

// Add inserts a digest.
func (s HashSet) Add(hash string) {
	s[hash] = struct{}{}
}

// Sorted returns the members in lexical order.
func (s HashSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// TargetExport is the portable form used by export and import.
type TargetExport struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	IntervalMinutes int    `json:"interval"`
	NightMode       bool   `json:"night_mode"`
}
