// Package resolve maps arbitrary source column names onto canonical field
// names. Sources export the same data under wildly different headers
// ("Txn ID", "transaction_id", "receipt_id"), so each canonical field carries
// an ordered alias list and resolution walks a fixed ladder: exact
// case-insensitive match, then substring containment in either direction,
// then fuzzy string similarity above a configurable floor.
//
// Resolution is a pure function of (aliases, columns) and is performed once
// per source before row processing, never per row.
package resolve

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultSimilarityFloor is the minimum 0-1 similarity for a fuzzy match.
const DefaultSimilarityFloor = 0.6

// Field describes one canonical field and the source aliases that may carry
// it, most preferred first.
type Field struct {
	Canonical string
	Aliases   []string
	Required  bool
}

// Table is the typed resolution table for a source shape, built once and
// applied to each source's header.
type Table struct {
	Fields []Field
	// Fuzzy enables the similarity fallback after exact and substring matching.
	Fuzzy bool
	// Floor is the minimum similarity for a fuzzy match; zero means
	// DefaultSimilarityFloor.
	Floor float64
}

// Resolution maps canonical field names to the source column that carries
// them. Fields with no resolvable column are absent from the map.
type Resolution map[string]string

// Resolve maps every field in the table against the given source columns.
// Unresolvable fields are simply absent from the result; callers decide
// whether a missing field is fatal.
func (t *Table) Resolve(columns []string) Resolution {
	res := make(Resolution, len(t.Fields))
	for _, f := range t.Fields {
		if col, ok := t.findColumn(f.Aliases, columns); ok {
			res[f.Canonical] = col
		}
	}
	return res
}

// Missing returns the canonical names of required fields absent from a
// resolution, in table order.
func (t *Table) Missing(res Resolution) []string {
	var missing []string
	for _, f := range t.Fields {
		if f.Required {
			if _, ok := res[f.Canonical]; !ok {
				missing = append(missing, f.Canonical)
			}
		}
	}
	return missing
}

// findColumn returns the single best-matching source column for an alias
// list, or false when no ladder step succeeds.
func (t *Table) findColumn(aliases, columns []string) (string, bool) {
	// Exact case-insensitive match: first alias that matches any column wins.
	for _, alias := range aliases {
		for _, col := range columns {
			if strings.EqualFold(strings.TrimSpace(col), alias) {
				return col, true
			}
		}
	}

	// Substring containment in either direction, case-insensitive.
	for _, alias := range aliases {
		a := strings.ToLower(alias)
		for _, col := range columns {
			c := strings.ToLower(strings.TrimSpace(col))
			if c == "" {
				continue
			}
			if strings.Contains(c, a) || strings.Contains(a, c) {
				return col, true
			}
		}
	}

	if !t.Fuzzy {
		return "", false
	}

	// Fuzzy similarity over all (alias, column) pairs; the highest-similarity
	// candidate at or above the floor wins. Ties keep the earliest pair so
	// resolution stays deterministic.
	floor := t.Floor
	if floor == 0 {
		floor = DefaultSimilarityFloor
	}

	best := ""
	bestScore := 0.0
	for _, alias := range aliases {
		a := strings.ToLower(alias)
		for _, col := range columns {
			c := strings.ToLower(strings.TrimSpace(col))
			if score := Similarity(a, c); score >= floor && score > bestScore {
				best = col
				bestScore = score
			}
		}
	}
	if best != "" {
		return best, true
	}
	return "", false
}

// Similarity returns a 0-1 string similarity: 1 minus the Levenshtein
// distance normalized by the longer string's length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}
