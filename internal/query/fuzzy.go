package query

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"

	"github.com/indexcore/engine/internal/graph"
)

// FuzzyOptions configures the additive fuzzy extensions. This is
// purely additive: the exact-match paths above are unchanged and stay
// the default when a caller doesn't set Enabled.
type FuzzyOptions struct {
	Enabled   bool
	Threshold float64 // similarity in [0,1]; defaults to 0.80 when zero
	Stem      bool    // Porter2-stem both sides before Jaro-Winkler scoring
}

func (o FuzzyOptions) threshold() float64 {
	if o.Threshold <= 0 || o.Threshold > 1 {
		return 0.80
	}
	return o.Threshold
}

// Match is a fuzzy ListSymbols/FindCursors hit, carrying the score that
// produced it so callers can present ranked results.
type Match struct {
	Name       string
	Similarity float64
}

func normalize(s string, stem bool) string {
	if !stem {
		return s
	}
	return porter2.Stem(strings.ToLower(s))
}

func similarity(a, b string, stem bool) float64 {
	a, b = normalize(a, stem), normalize(b, stem)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(score)
}

// ListSymbolsFuzzy ranks every interned name against query by
// Jaro-Winkler similarity (optionally over Porter2 stems, so
// "indexing" and "indexed" compare as near-identical), keeping hits at
// or above opts.Threshold. Results are sorted by descending
// similarity, ties broken lexicographically. With opts.Enabled false
// this degrades to a prefix match, same as ListSymbols.
func (e *Engine) ListSymbolsFuzzy(query, pathFilter string, opts FuzzyOptions) []Match {
	if !opts.Enabled {
		names := e.ListSymbols(query, pathFilter)
		out := make([]Match, len(names))
		for i, n := range names {
			out[i] = Match{Name: n, Similarity: 1.0}
		}
		return out
	}

	threshold := opts.threshold()
	var out []Match
	e.g.WithReadLock(func(s graph.Snapshot) {
		for name, usrs := range s.Names {
			if pathFilter != "" && !e.anyUnderPath(s, usrs, pathFilter) {
				continue
			}
			if score := similarity(query, name, opts.Stem); score >= threshold {
				out = append(out, Match{Name: name, Similarity: score})
			}
		}
	})
	sortMatches(out)
	return out
}

// FindCursorsFuzzy is FindCursors with a fuzzy name match: every
// interned name scoring at or above opts.Threshold against name
// contributes its cursors, each tagged with the name's score.
type FuzzyCursor struct {
	Cursor
	Similarity float64
}

func (e *Engine) FindCursorsFuzzy(name, pathFilter string, opts FuzzyOptions) []FuzzyCursor {
	if !opts.Enabled {
		cursors := e.FindCursors(name, pathFilter)
		out := make([]FuzzyCursor, len(cursors))
		for i, c := range cursors {
			out[i] = FuzzyCursor{Cursor: c, Similarity: 1.0}
		}
		return out
	}

	threshold := opts.threshold()
	var out []FuzzyCursor
	e.g.WithReadLock(func(s graph.Snapshot) {
		for candidate, usrs := range s.Names {
			score := similarity(name, candidate, opts.Stem)
			if score < threshold {
				continue
			}
			for usr := range usrs {
				var locs []Cursor
				e.collectLocations(s.Decls[usr], usr, pathFilter, &locs)
				e.collectLocations(s.Defs[usr], usr, pathFilter, &locs)
				e.collectLocations(s.Refs[usr], usr, pathFilter, &locs)
				for _, c := range locs {
					out = append(out, FuzzyCursor{Cursor: c, Similarity: score})
				}
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func sortMatches(m []Match) {
	sort.Slice(m, func(i, j int) bool {
		if m[i].Similarity != m[j].Similarity {
			return m[i].Similarity > m[j].Similarity
		}
		return m[i].Name < m[j].Name
	})
}
