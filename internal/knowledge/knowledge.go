// Package knowledge provides the static first-party knowledge base.
//
// The knowledge base answers direct questions about the product without
// calling any external service. Entries are an explicitly typed, immutable
// catalog loaded once at process start; lookups are pure string matching
// with no model involvement, so answers are returned verbatim.
package knowledge

import (
	"strings"
	"sync"

	"github.com/koopa0/parley/internal/log"
)

// Entry is a single knowledge base fact.
//
// Question is the canonical phrasing; Aliases are alternative phrasings
// matched as substrings; Keywords trigger the entry when they appear
// anywhere in a query; Entities are product/project names that resolve to
// the entry when mentioned.
type Entry struct {
	ID       string
	Question string
	Aliases  []string
	Keywords []string
	Entities []string
	Answer   string
}

// Store holds an immutable entry catalog and answers lookups against it.
type Store struct {
	entries []Entry
	logger  log.Logger
}

// NewStore creates a Store over the given catalog. The slice is used as-is;
// callers must not mutate it after construction.
func NewStore(entries []Entry, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{entries: entries, logger: logger}
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the process-wide Store over the built-in catalog.
// Initialized exactly once, read-only thereafter.
func Default(logger log.Logger) *Store {
	defaultOnce.Do(func() {
		defaultStore = NewStore(defaultCatalog, logger)
	})
	return defaultStore
}

// Lookup finds the entry answering the query, if any.
//
// Matching is case-insensitive and structural: each tier is checked across
// the whole catalog before falling through to the next, and within a tier
// the first entry in declaration order wins. There is no ranking.
//
// Tiers, in order:
//  1. canonical question: the normalized query equals, contains, or (when
//     long enough to be unambiguous) is contained in an entry's Question
//  2. alias: the query contains one of an entry's Aliases
//  3. keyword: the query contains one of an entry's Keywords anywhere
//  4. entity: the query mentions one of an entry's Entities
//
// Absence of a match is not an error; callers fall through to other
// capabilities.
// minFragmentLen is the shortest query treated as a fragment of a canonical
// question. Below this, "you" or "who" would hit nearly every entry.
const minFragmentLen = 10

func (s *Store) Lookup(query string) (Entry, bool) {
	q := normalize(query)
	if q == "" {
		return Entry{}, false
	}

	// Tier 1: canonical question match
	for _, e := range s.entries {
		question := normalize(e.Question)
		if question == "" {
			continue
		}
		if q == question || strings.Contains(q, question) ||
			(len(q) >= minFragmentLen && strings.Contains(question, q)) {
			s.logger.Debug("knowledge hit", "tier", "question", "entry", e.ID)
			return e, true
		}
	}

	// Tier 2: alias substring match
	for _, e := range s.entries {
		for _, alias := range e.Aliases {
			if strings.Contains(q, normalize(alias)) {
				s.logger.Debug("knowledge hit", "tier", "alias", "entry", e.ID)
				return e, true
			}
		}
	}

	// Tier 3: trigger keyword anywhere in the query
	for _, e := range s.entries {
		for _, kw := range e.Keywords {
			if strings.Contains(q, normalize(kw)) {
				s.logger.Debug("knowledge hit", "tier", "keyword", "entry", e.ID)
				return e, true
			}
		}
	}

	// Tier 4: named entity mention
	for _, e := range s.entries {
		for _, ent := range e.Entities {
			if strings.Contains(q, normalize(ent)) {
				s.logger.Debug("knowledge hit", "tier", "entity", "entry", e.ID)
				return e, true
			}
		}
	}

	return Entry{}, false
}

// Len reports the catalog size.
func (s *Store) Len() int {
	return len(s.entries)
}

// normalize lowercases and trims a string for matching. Trailing question
// marks and periods are stripped so "Who created you?" matches "who created
// you".
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRight(s, "?!. ")
}
