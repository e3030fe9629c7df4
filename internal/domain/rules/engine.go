package rules

import (
	"sort"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"
)

// Match is the outcome of resolving a description against the rule set.
type Match struct {
	RuleID     uuid.UUID
	CategoryID uuid.UUID
	Keyword    string
	rank       int
}

// Engine matches transaction descriptions against a user's active import
// rules using the Aho-Corasick algorithm: one pass over the description
// finds every keyword occurrence regardless of how many rules are loaded.
//
// For a given rule set the winner is always the same rule: rules are ranked
// by priority descending, then created_at ascending, then id ascending, and
// the lowest-ranked match wins.
type Engine struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	metadata [][]Match // entries per keyword; distinct rules may share a keyword
	mu       sync.RWMutex
}

// NewEngine builds an engine from a rule set. Inactive rules and rules with
// blank keywords are skipped.
func NewEngine(ruleSet []ImportRule) *Engine {
	e := &Engine{}
	e.Build(ruleSet)
	return e
}

// Build rebuilds the matcher from scratch. Call it whenever the rule set
// changes.
func (e *Engine) Build(ruleSet []ImportRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ranked := make([]ImportRule, 0, len(ruleSet))
	for _, r := range ruleSet {
		if r.IsActive && strings.TrimSpace(r.Keyword) != "" {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
		}
		return ranked[i].ID.String() < ranked[j].ID.String()
	})

	if len(ranked) == 0 {
		e.matcher = nil
		e.keywords = nil
		e.metadata = nil
		return
	}

	keywordToIndex := make(map[string]int)
	keywords := make([]string, 0, len(ranked))
	metadata := make([][]Match, 0, len(ranked))

	for rank, r := range ranked {
		keyword := strings.ToUpper(strings.TrimSpace(r.Keyword))
		m := Match{RuleID: r.ID, CategoryID: r.CategoryID, Keyword: r.Keyword, rank: rank}
		if idx, exists := keywordToIndex[keyword]; exists {
			metadata[idx] = append(metadata[idx], m)
		} else {
			keywordToIndex[keyword] = len(keywords)
			keywords = append(keywords, keyword)
			metadata = append(metadata, []Match{m})
		}
	}

	bytePatterns := make([][]byte, len(keywords))
	for i, k := range keywords {
		bytePatterns[i] = []byte(k)
	}

	e.matcher = ahocorasick.NewMatcher(bytePatterns)
	e.keywords = keywords
	e.metadata = metadata
}

// Resolve returns the winning rule for a description, or nil when no
// keyword is contained in it.
func (e *Engine) Resolve(description string) *Match {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return nil
	}

	hits := e.matcher.Match([]byte(strings.ToUpper(description)))
	if len(hits) == 0 {
		return nil
	}

	var best *Match
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.metadata) {
			continue
		}
		for i := range e.metadata[idx] {
			m := &e.metadata[idx][i]
			if best == nil || m.rank < best.rank {
				best = m
			}
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// ResolveBatch resolves many descriptions under one lock acquisition.
// The result slice is index-aligned with the input; unmatched entries
// are nil.
func (e *Engine) ResolveBatch(descriptions []string) []*Match {
	e.mu.RLock()
	defer e.mu.RUnlock()

	results := make([]*Match, len(descriptions))
	if e.matcher == nil {
		return results
	}

	for i, desc := range descriptions {
		hits := e.matcher.Match([]byte(strings.ToUpper(desc)))
		var best *Match
		for _, idx := range hits {
			if idx < 0 || idx >= len(e.metadata) {
				continue
			}
			for j := range e.metadata[idx] {
				m := &e.metadata[idx][j]
				if best == nil || m.rank < best.rank {
					best = m
				}
			}
		}
		if best != nil {
			out := *best
			results[i] = &out
		}
	}
	return results
}

// RuleCount returns the number of active rules loaded.
func (e *Engine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, group := range e.metadata {
		n += len(group)
	}
	return n
}
