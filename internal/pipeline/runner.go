// Package pipeline wires the ingestion stages end to end: source bytes are
// normalized per location, merged in declaration order, enriched with
// derived fields, scanned for exceptions, summarized, and loaded into the
// star schema as one atomic replace.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/canopydata/pospipe/internal/canonical"
	"github.com/canopydata/pospipe/internal/config"
	"github.com/canopydata/pospipe/internal/derive"
	"github.com/canopydata/pospipe/internal/exceptions"
	"github.com/canopydata/pospipe/internal/ingest"
	"github.com/canopydata/pospipe/internal/logging"
	"github.com/canopydata/pospipe/internal/quality"
	"github.com/canopydata/pospipe/internal/store"
)

// Source formats accepted by the runner.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Source is one buffered input document tagged with its store location.
// ID is assigned at upload time and carried through logs so a rejected
// source can be traced back to the request that produced it.
type Source struct {
	ID       string
	Location string
	Format   string
	Data     []byte
}

// SourceError records a fatal per-source failure. The source is skipped;
// the rest of the run proceeds.
type SourceError struct {
	SourceID string `json:"source_id,omitempty"`
	Location string `json:"location"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
}

// Loader materializes a dataset. Satisfied by *store.Store.
type Loader interface {
	Load(ctx context.Context, ds *canonical.Dataset, cfg *config.Pipeline) (*store.LoadStats, error)
}

// Result is the outcome of one full pipeline run, held for read-only
// consumers.
type Result struct {
	Dataset    canonical.Dataset     `json:"dataset"`
	Exceptions []canonical.Exception `json:"exceptions"`
	Report     *quality.Report       `json:"report"`
	Stats      *store.LoadStats      `json:"stats"`
	Skipped    []SourceError         `json:"skipped,omitempty"`
}

// Runner executes pipeline runs against an immutable configuration
// snapshot. It is not safe for concurrent Run calls; callers serialize.
type Runner struct {
	cfg        *config.Pipeline
	normalizer *ingest.Normalizer
	engine     *derive.Engine
	detector   *exceptions.Detector
	loader     Loader
}

// NewRunner builds a runner around a configuration snapshot and a loader.
func NewRunner(cfg *config.Pipeline, loader Loader) *Runner {
	return &Runner{
		cfg:        cfg,
		normalizer: ingest.NewNormalizer(cfg),
		engine:     derive.NewEngine(cfg),
		detector:   exceptions.NewDetector(cfg.Thresholds),
		loader:     loader,
	}
}

// ErrNoData reports a run in which no source yielded any orders.
var ErrNoData = errors.New("no orders in any source")

// Run processes the sources in declaration order and atomically replaces
// the store contents with the merged result. A source that fails schema
// resolution is skipped and recorded; it never aborts the run or corrupts
// data from other sources.
func (r *Runner) Run(ctx context.Context, sources []Source) (*Result, error) {
	merged := canonical.Dataset{}
	defects := ingest.NewDefects()
	res := &Result{}

	log := logging.WithStage(ctx, "normalize")
	for _, src := range sources {
		ds, d, err := r.normalizeSource(ctx, src)
		if err != nil {
			log.Warn("source skipped",
				slog.String("source_id", src.ID),
				slog.String("location", src.Location),
				slog.String("error", err.Error()),
			)
			res.Skipped = append(res.Skipped, SourceError{
				SourceID: src.ID,
				Location: src.Location,
				Err:      err,
				Message:  err.Error(),
			})
			continue
		}
		merged.Merge(ds)
		defects.Merge(d)
		log.Info("source normalized",
			slog.String("source_id", src.ID),
			slog.String("location", src.Location),
			slog.String("format", src.Format),
			slog.Int("orders", len(ds.Orders)),
			slog.Int("line_items", len(ds.LineItems)),
		)
	}

	if merged.Empty() {
		return res, ErrNoData
	}

	if err := r.engine.Apply(&merged); err != nil {
		return res, fmt.Errorf("derive: %w", err)
	}

	res.Dataset = merged
	res.Exceptions = r.detector.Detect(&merged)
	res.Report = quality.Build(&merged, defects)

	stats, err := r.loader.Load(ctx, &merged, r.cfg)
	if err != nil {
		return res, err
	}
	res.Stats = stats

	logging.FromContext(ctx).Info("pipeline run complete",
		slog.Int("orders", len(merged.Orders)),
		slog.Int("exceptions", len(res.Exceptions)),
		slog.Int("skipped_sources", len(res.Skipped)),
	)
	return res, nil
}

// normalizeSource dispatches one source to the format-specific normalizer.
func (r *Runner) normalizeSource(ctx context.Context, src Source) (canonical.Dataset, *ingest.Defects, error) {
	if err := ctx.Err(); err != nil {
		return canonical.Dataset{}, nil, err
	}
	switch src.Format {
	case FormatJSON:
		return r.normalizer.NormalizeJSON(src.Location, bytes.NewReader(src.Data))
	case FormatCSV:
		frame, err := ingest.ReadCSV(bytes.NewReader(src.Data))
		if err != nil {
			return canonical.Dataset{}, nil, err
		}
		return r.normalizer.Normalize(src.Location, frame)
	default:
		return canonical.Dataset{}, nil, fmt.Errorf("unsupported source format %q", src.Format)
	}
}
