package ingest

import "time"

// Timestamp layouts split by zone awareness. POS terminals commonly export
// naive local time while API sources emit zoned UTC; the derive engine
// treats the two differently, so parsing must preserve which kind it saw.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05-0700",
		"2006-01-02 15:04:05 -0700",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
		"01/02/2006 15:04:05",
		"1/2/2006 15:04:05",
		"01/02/2006 15:04",
		"1/2/2006 15:04",
		"01/02/2006",
		"1/2/2006",
	}
)

// ParseTimestamp parses a source timestamp, reporting whether the value
// carried an explicit timezone. Naive values are parsed in UTC as a
// placeholder; the derive engine re-tags them with the store's zone without
// shifting the wall clock.
func ParseTimestamp(s string) (time.Time, bool, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, true
		}
	}
	return time.Time{}, false, false
}
