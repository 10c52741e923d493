package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Pipeline is the immutable pipeline configuration snapshot: store locations
// with their timezones, the daypart interval table, exception thresholds, and
// column-resolver settings. It is loaded once at startup and passed into the
// pipeline; nothing mutates it at runtime. Unknown locations get a
// deterministic synthetic id instead of growing the registry.
type Pipeline struct {
	DefaultTimezone string       `yaml:"default_timezone"`
	Locations       []Location   `yaml:"locations"`
	Dayparts        []Daypart    `yaml:"dayparts"`
	Thresholds      Thresholds   `yaml:"thresholds"`
	Resolver        ResolverOpts `yaml:"resolver"`
}

// Location maps a store location to its id and IANA timezone.
type Location struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// Daypart is one named hour-of-day bucket: [Start, End) in store-local hours.
// The table is ordered; the first interval containing an hour wins, so
// overlapping intervals are legal.
type Daypart struct {
	Name  string `yaml:"name"`
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
}

// Thresholds holds the fixed exception-detection thresholds.
type Thresholds struct {
	// NegativeTotal is the floor below which a non-refund total is flagged.
	NegativeTotal float64 `yaml:"negative_total"`
	// HighDiscountRate is the discount-rate percentage above which an order is flagged.
	HighDiscountRate float64 `yaml:"high_discount_rate"`
	// HighVoidRate is the per-staff void percentage above which staff are flagged.
	HighVoidRate float64 `yaml:"high_void_rate"`
	// TaxTolerance is the absolute tax-reconciliation tolerance in currency units.
	TaxTolerance float64 `yaml:"tax_tolerance"`
}

// ResolverOpts holds column-resolver tuning.
type ResolverOpts struct {
	// Fuzzy enables the fuzzy-similarity fallback after exact and substring matching.
	Fuzzy bool `yaml:"fuzzy"`
	// SimilarityFloor is the minimum 0-1 similarity for a fuzzy match.
	SimilarityFloor float64 `yaml:"similarity_floor"`
}

// DefaultPipeline returns the built-in pipeline snapshot used when no YAML
// file is supplied. Thresholds and dayparts match the documented defaults.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		DefaultTimezone: "America/New_York",
		Dayparts: []Daypart{
			{Name: "Morning", Start: 9, End: 12},
			{Name: "Afternoon", Start: 12, End: 17},
			{Name: "Evening", Start: 17, End: 21},
		},
		Thresholds: Thresholds{
			NegativeTotal:    -0.01,
			HighDiscountRate: 30.0,
			HighVoidRate:     5.0,
			TaxTolerance:     0.05,
		},
		Resolver: ResolverOpts{
			Fuzzy:           true,
			SimilarityFloor: 0.6,
		},
	}
}

// LoadPipeline reads a pipeline snapshot from a YAML file, filling unset
// sections from the defaults. A missing file is not an error: the defaults
// are returned so the pipeline can run on uploads alone.
func LoadPipeline(path string) (*Pipeline, error) {
	cfg := DefaultPipeline()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse pipeline config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks timezone names and daypart bounds.
func (p *Pipeline) Validate() error {
	if _, err := time.LoadLocation(p.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid default timezone %q: %w", p.DefaultTimezone, err)
	}
	for _, loc := range p.Locations {
		if loc.Name == "" {
			return fmt.Errorf("location with empty name")
		}
		if loc.Timezone != "" {
			if _, err := time.LoadLocation(loc.Timezone); err != nil {
				return fmt.Errorf("location %s: invalid timezone %q: %w", loc.Name, loc.Timezone, err)
			}
		}
	}
	for _, dp := range p.Dayparts {
		if dp.Name == "" {
			return fmt.Errorf("daypart with empty name")
		}
		if dp.Start < 0 || dp.Start > 23 || dp.End < 0 || dp.End > 24 {
			return fmt.Errorf("daypart %s: hours out of range [%d, %d)", dp.Name, dp.Start, dp.End)
		}
	}
	return nil
}

// Location resolves a location name to its configuration. Known names return
// their configured entry; unknown names get a synthetic id derived from a
// stable hash of the name plus the default timezone, so repeated runs assign
// the same id without mutating the snapshot.
func (p *Pipeline) Location(name string) Location {
	for _, loc := range p.Locations {
		if loc.Name == name {
			if loc.Timezone == "" {
				loc.Timezone = p.DefaultTimezone
			}
			return loc
		}
	}
	return Location{
		ID:       SyntheticLocationID(name),
		Name:     name,
		Timezone: p.DefaultTimezone,
	}
}

// SyntheticLocationID derives a stable location id from a location name.
func SyntheticLocationID(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	return fmt.Sprintf("loc_%04d", h.Sum32()%10000)
}

// Timezone returns the *time.Location for a configured location entry.
func (l Location) TimeLocation() (*time.Location, error) {
	return time.LoadLocation(l.Timezone)
}
