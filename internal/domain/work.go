// Package domain holds the catalog records shared by every layer of the engine.
package domain

import (
	"maps"
	"regexp"
	"strings"

	"github.com/shareboard/shareboard/internal/normalize"
)

// Vote values a client may cast. Zero means "no vote" and is never stored.
const (
	VoteDown = -1
	VoteUp   = 1
)

// canonicalPattern matches the catalog number embedded in a source page URL.
var canonicalPattern = regexp.MustCompile(`(?i)(RJ|VJ|BJ)\d{6,}`)

// Work is a catalog entry. Works and admin picks share this shape; Order is only set on picks.
type Work struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title,omitempty"`
	CoverURL    string            `json:"coverUrl,omitempty"`
	PageURL     string            `json:"pageUrl,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`  // tag id -> tag name
	Votes       map[string]int    `json:"votes,omitempty"` // client id -> -1 | +1
	Score       int               `json:"score,omitzero"`
	Timestamp   int64             `json:"timestamp,omitzero"` // ms since epoch
	ManualGenre Genre             `json:"manualGenre,omitempty"`
	WorkType    string            `json:"workType,omitempty"`
	Order       *int64            `json:"order,omitzero"`
}

// Clone returns a deep copy.
func (w *Work) Clone() *Work {
	if w == nil {
		return nil
	}
	c := *w
	c.Tags = maps.Clone(w.Tags)
	c.Votes = maps.Clone(w.Votes)
	if w.Order != nil {
		order := *w.Order
		c.Order = &order
	}
	return &c
}

// VoteOf returns the vote cast by clientID, or 0.
func (w *Work) VoteOf(clientID string) int {
	if w == nil {
		return 0
	}
	return w.Votes[clientID]
}

// HasTag reports whether the work carries tagID.
func (w *Work) HasTag(tagID string) bool {
	_, ok := w.Tags[tagID]
	return ok
}

// SumVotes recomputes the score from the vote map.
func (w *Work) SumVotes() int {
	total := 0
	for _, v := range w.Votes {
		total += v
	}
	return total
}

// CanonicalID extracts the catalog number from the page URL, upper-cased.
// Falls back to the work id when the URL carries none.
func (w *Work) CanonicalID() string {
	return CanonicalID(w.PageURL, w.ID)
}

// CanonicalID extracts the catalog number from pageURL, upper-cased, or returns fallback.
// Full-width characters are folded first.
func CanonicalID(pageURL, fallback string) string {
	if m := canonicalPattern.FindString(normalize.FoldWidth(pageURL)); m != "" {
		return strings.ToUpper(m)
	}
	return fallback
}

// ApplyVote is the vote transaction's update function. It toggles clientID's vote:
// casting the score already recorded removes it, anything else records score.
// The returned record's Score always equals the sum of its votes.
// A nil prior means the work no longer exists; ok is false and the transaction aborts.
func ApplyVote(prior *Work, clientID string, score int) (next *Work, ok bool) {
	if prior == nil {
		return nil, false
	}

	next = prior.Clone()
	if next.Votes == nil {
		next.Votes = make(map[string]int)
	}

	if next.Votes[clientID] == score {
		delete(next.Votes, clientID)
	} else {
		next.Votes[clientID] = score
	}
	if len(next.Votes) == 0 {
		next.Votes = nil
	}

	next.Score = next.SumVotes()
	return next, true
}

// ValidVote reports whether score is a castable vote.
func ValidVote(score int) bool {
	return score == VoteUp || score == VoteDown
}
