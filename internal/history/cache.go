// Package history caches the backend's list of recently analysed datasets.
package history

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/equipviz/internal/dataset"
)

// maxFuzzyRatio is the largest distance/length ratio still treated as a match.
const maxFuzzyRatio = 0.4

// Cache is an ordered snapshot of the history list. Order is whatever the
// backend returned; the client never re-sorts it.
type Cache struct {
	entries []dataset.HistoryEntry
}

// Replace swaps the whole list. The last response to arrive wins.
func (c *Cache) Replace(entries []dataset.HistoryEntry) {
	c.entries = append([]dataset.HistoryEntry(nil), entries...)
}

// Find returns the entry with id.
func (c Cache) Find(id string) (dataset.HistoryEntry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return dataset.HistoryEntry{}, false
}

// Entries returns a copy of the cached list.
func (c Cache) Entries() []dataset.HistoryEntry {
	return append([]dataset.HistoryEntry(nil), c.entries...)
}

func (c Cache) Len() int { return len(c.entries) }

type ranked struct {
	entry dataset.HistoryEntry
	score float64
	index int
}

// Filter returns the entries whose name matches query. Substring matches come
// first, then names within a small edit distance. An empty query returns
// everything in cache order.
func (c Cache) Filter(query string) []dataset.HistoryEntry {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return c.Entries()
	}
	var hits []ranked
	for i, e := range c.entries {
		name := strings.ToUpper(e.Name)
		stem := strings.TrimSuffix(name, ".CSV")
		if strings.Contains(name, q) {
			hits = append(hits, ranked{entry: e, score: 0, index: i})
			continue
		}
		if score := distanceRatio(stem, q); score < maxFuzzyRatio {
			hits = append(hits, ranked{entry: e, score: 1 + score, index: i})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		return hits[i].index < hits[j].index
	})
	out := make([]dataset.HistoryEntry, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.entry)
	}
	return out
}

func distanceRatio(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	return float64(levenshtein.ComputeDistance(a, b)) / float64(longest)
}
