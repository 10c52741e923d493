package ingest

// coerce.go provides safe type coercion for source data.
//
// These functions handle the messy reality of POS exports:
//   - Currency symbols and thousand separators in numbers
//   - Accounting-format negatives "(12.34)"
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value") and stray quotes
//   - NULL/NaN placeholder strings
//
// Every extraction is three-step: look up by resolved column, treat
// missing/NULL/NaN as absent, coerce with a fixed default on failure. The
// used-default outcome is never swallowed: it is recorded in a Defects log
// that feeds the quality report.

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/canopydata/pospipe/internal/resolve"
)

// numericRegex validates a numeric string after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Defects accumulates used-default markers per canonical field, split by
// cause. Missing counts absent/NULL/NaN values (or unresolved columns);
// Invalid counts present values that failed coercion. Both are surfaced in
// the quality report rather than aborting the load.
type Defects struct {
	Missing map[string]int
	Invalid map[string]int
}

// NewDefects returns an empty defect log.
func NewDefects() *Defects {
	return &Defects{
		Missing: make(map[string]int),
		Invalid: make(map[string]int),
	}
}

// Total returns the combined defect count.
func (d *Defects) Total() int {
	n := 0
	for _, c := range d.Missing {
		n += c
	}
	for _, c := range d.Invalid {
		n += c
	}
	return n
}

// Merge folds another defect log into this one.
func (d *Defects) Merge(other *Defects) {
	for k, v := range other.Missing {
		d.Missing[k] += v
	}
	for k, v := range other.Invalid {
		d.Invalid[k] += v
	}
}

// CleanCell removes common export artifacts from a cell value:
// trims whitespace, strips an Excel formula prefix (="..."), and removes
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return s
}

// absent reports whether a cleaned cell value should be treated as missing.
func absent(s string) bool {
	switch strings.ToLower(s) {
	case "", "null", "none", "nan", "na", "n/a":
		return true
	}
	return false
}

// parseFloat coerces a cell to float64, handling currency symbols,
// thousands separators, and accounting-format negatives.
func parseFloat(s string) (float64, bool) {
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// parseBool coerces a cell to bool.
// Accepts true/false, t/f, yes/no, y/n, 1/0.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

// extractor performs resolved field extraction for one row, recording
// used-default markers into the shared defect log.
type extractor struct {
	row     Row
	res     resolve.Resolution
	defects *Defects
}

// raw returns the cleaned cell for a canonical field and whether a usable
// value is present. Unresolved columns and absent values both report false.
func (e extractor) raw(field string) (string, bool) {
	col, ok := e.res[field]
	if !ok {
		return "", false
	}
	v := CleanCell(e.row[col])
	if absent(v) {
		return "", false
	}
	return v, true
}

// resolved reports whether a canonical field has a source column at all.
func (e extractor) resolved(field string) bool {
	_, ok := e.res[field]
	return ok
}

func (e extractor) str(field, def string) string {
	v, ok := e.raw(field)
	if !ok {
		e.defects.Missing[field]++
		return def
	}
	return v
}

func (e extractor) strPtr(field string) *string {
	v, ok := e.raw(field)
	if !ok {
		return nil
	}
	return &v
}

func (e extractor) float(field string, def float64) float64 {
	v, ok := e.raw(field)
	if !ok {
		e.defects.Missing[field]++
		return def
	}
	f, ok := parseFloat(v)
	if !ok {
		e.defects.Invalid[field]++
		return def
	}
	return f
}

func (e extractor) boolean(field string, def bool) bool {
	v, ok := e.raw(field)
	if !ok {
		e.defects.Missing[field]++
		return def
	}
	b, ok := parseBool(v)
	if !ok {
		e.defects.Invalid[field]++
		return def
	}
	return b
}
