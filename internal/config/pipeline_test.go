package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPipeline(t *testing.T) {
	cfg := DefaultPipeline()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Thresholds.HighDiscountRate != 30.0 {
		t.Errorf("HighDiscountRate = %v, want 30", cfg.Thresholds.HighDiscountRate)
	}
	if cfg.Thresholds.TaxTolerance != 0.05 {
		t.Errorf("TaxTolerance = %v, want 0.05", cfg.Thresholds.TaxTolerance)
	}
	if len(cfg.Dayparts) != 3 {
		t.Errorf("dayparts = %d, want 3", len(cfg.Dayparts))
	}
}

func TestLoadPipeline_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadPipeline(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadPipeline() error = %v", err)
	}
	if cfg.DefaultTimezone != "America/New_York" {
		t.Errorf("DefaultTimezone = %q, want default", cfg.DefaultTimezone)
	}
}

func TestLoadPipeline_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	yaml := `
default_timezone: America/Chicago
locations:
  - id: loc_0042
    name: Lakeview
    timezone: America/Chicago
dayparts:
  - { name: Early, start: 6, end: 11 }
thresholds:
  high_discount_rate: 25.0
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadPipeline(path)
	if err != nil {
		t.Fatalf("LoadPipeline() error = %v", err)
	}

	if cfg.DefaultTimezone != "America/Chicago" {
		t.Errorf("DefaultTimezone = %q, want America/Chicago", cfg.DefaultTimezone)
	}
	if len(cfg.Dayparts) != 1 || cfg.Dayparts[0].Name != "Early" {
		t.Errorf("Dayparts = %+v, want the YAML table", cfg.Dayparts)
	}
	if cfg.Thresholds.HighDiscountRate != 25.0 {
		t.Errorf("HighDiscountRate = %v, want 25", cfg.Thresholds.HighDiscountRate)
	}
	// Unset sections keep their defaults.
	if cfg.Thresholds.TaxTolerance != 0.05 {
		t.Errorf("TaxTolerance = %v, want default 0.05", cfg.Thresholds.TaxTolerance)
	}

	loc := cfg.Location("Lakeview")
	if loc.ID != "loc_0042" || loc.Timezone != "America/Chicago" {
		t.Errorf("Location(Lakeview) = %+v, want configured entry", loc)
	}
}

func TestLoadPipeline_InvalidTimezone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte("default_timezone: Mars/Olympus\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPipeline(path); err == nil {
		t.Error("LoadPipeline() accepted an invalid timezone")
	}
}

func TestLocation_SyntheticID(t *testing.T) {
	cfg := DefaultPipeline()

	a := cfg.Location("Popup Cart")
	b := cfg.Location("Popup Cart")
	if a.ID != b.ID {
		t.Errorf("synthetic ids differ across calls: %q vs %q", a.ID, b.ID)
	}
	if a.Timezone != cfg.DefaultTimezone {
		t.Errorf("Timezone = %q, want default", a.Timezone)
	}
	if a.ID == cfg.Location("Another Store").ID {
		t.Error("distinct names produced the same synthetic id")
	}

	// The snapshot itself never grows.
	if len(cfg.Locations) != 0 {
		t.Errorf("Locations = %d entries, want 0", len(cfg.Locations))
	}
}
