package ingest

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		hasZone bool
		want    time.Time
	}{
		{"2024-03-15T14:30:00Z", true, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"2024-03-15T14:30:00-05:00", true, time.Date(2024, 3, 15, 14, 30, 0, 0, time.FixedZone("", -5*3600))},
		{"2024-03-15T14:30:00", false, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"2024-03-15 14:30:00", false, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"2024-03-15", false, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"03/15/2024 14:30", false, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"3/5/2024", false, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, hasZone, ok := ParseTimestamp(tt.in)
		if !ok {
			t.Errorf("ParseTimestamp(%q) failed", tt.in)
			continue
		}
		if hasZone != tt.hasZone {
			t.Errorf("ParseTimestamp(%q) hasZone = %v, want %v", tt.in, hasZone, tt.hasZone)
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, s := range []string{"not a date", "2024-13-45", ""} {
		if _, _, ok := ParseTimestamp(s); ok {
			t.Errorf("ParseTimestamp(%q) succeeded, want failure", s)
		}
	}
}
