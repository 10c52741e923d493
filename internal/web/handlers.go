package web

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"log/slog"

	"github.com/canopydata/pospipe/internal/logging"
	"github.com/canopydata/pospipe/internal/pipeline"
	"github.com/canopydata/pospipe/internal/store"
)

// UploadResponse summarizes the pipeline run triggered by an upload.
type UploadResponse struct {
	SourceID   string                 `json:"source_id"`
	Location   string                 `json:"location"`
	Sources    int                    `json:"sources"`
	Stats      *store.LoadStats       `json:"stats"`
	Exceptions int                    `json:"exceptions"`
	Skipped    []pipeline.SourceError `json:"skipped,omitempty"`
}

// handleUpload accepts one source document for a location and reruns the
// pipeline over every source uploaded so far, in upload order. The store
// contents are replaced atomically; a failed run leaves the prior load
// intact and queryable.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")
	if location == "" {
		render.Render(w, r, errInvalidRequest("missing location"))
		return
	}

	data, format, err := s.readSourceBody(w, r)
	if err != nil {
		render.Render(w, r, errInvalidRequest(err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src := pipeline.Source{
		ID:       uuid.NewString(),
		Location: location,
		Format:   format,
		Data:     data,
	}
	next := append(append([]pipeline.Source{}, s.sources...), src)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Ingest.LoadTimeout)
	defer cancel()
	result, runErr := s.runner.Run(ctx, next)

	// A source that fails schema resolution is skipped, not fatal. When the
	// skipped source is the one just uploaded, reject it so the client sees
	// the actionable message, and keep it out of future runs. Checked before
	// the run error so a first bad upload reports its own failure rather
	// than the resulting empty run.
	for _, sk := range result.Skipped {
		if sk.SourceID == src.ID {
			respondError(w, r, sk.Err)
			return
		}
	}
	if runErr != nil {
		respondError(w, r, runErr)
		return
	}

	s.sources = next
	s.last = result

	logging.FromContext(r.Context()).Info("source uploaded",
		slog.String("location", location),
		slog.String("format", format),
		slog.Int("sources", len(next)),
		slog.Int("orders", result.Stats.Orders),
	)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, &UploadResponse{
		SourceID:   src.ID,
		Location:   location,
		Sources:    len(next),
		Stats:      result.Stats,
		Exceptions: len(result.Exceptions),
		Skipped:    result.Skipped,
	})
}

// readSourceBody extracts the uploaded document and its format. Multipart
// uploads use the "file" field; otherwise the raw body is taken. The
// format comes from the "format" query parameter or the file extension.
func (s *Server) readSourceBody(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxFileSize)

	format := strings.ToLower(r.URL.Query().Get("format"))
	var src io.Reader = r.Body

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()
		src = file
		if format == "" {
			switch strings.ToLower(filepath.Ext(header.Filename)) {
			case ".json":
				format = pipeline.FormatJSON
			default:
				format = pipeline.FormatCSV
			}
		}
	}

	if format == "" {
		if strings.Contains(r.Header.Get("Content-Type"), "json") {
			format = pipeline.FormatJSON
		} else {
			format = pipeline.FormatCSV
		}
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}

// handleQuery serves the filtered aggregates straight from the store.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	f := parseFilters(r)
	agg, err := s.store.Query(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, agg)
}

// parseFilters reads the filter vocabulary from query parameters.
// Locations may repeat or be comma-separated.
func parseFilters(r *http.Request) store.Filters {
	q := r.URL.Query()
	f := store.Filters{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		OrderType: q.Get("order_type"),
		Daypart:   q.Get("daypart"),
		Category:  q.Get("category"),
		StaffID:   q.Get("staff_id"),
	}
	for _, raw := range q["locations"] {
		for _, loc := range strings.Split(raw, ",") {
			if loc = strings.TrimSpace(loc); loc != "" {
				f.Locations = append(f.Locations, loc)
			}
		}
	}
	return f
}

func (s *Server) handleExceptions(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lastResult()
	if !ok {
		render.Render(w, r, errNotLoaded())
		return
	}
	render.JSON(w, r, res.Exceptions)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lastResult()
	if !ok {
		render.Render(w, r, errNotLoaded())
		return
	}
	render.JSON(w, r, res.Report)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lastResult()
	if !ok {
		render.Render(w, r, errNotLoaded())
		return
	}
	render.JSON(w, r, res.Dataset.Orders)
}

func (s *Server) handleLineItems(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lastResult()
	if !ok {
		render.Render(w, r, errNotLoaded())
		return
	}
	render.JSON(w, r, res.Dataset.LineItems)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lastResult()
	if !ok {
		render.Render(w, r, errNotLoaded())
		return
	}
	render.JSON(w, r, res.Dataset.Products)
}

func (s *Server) handleStaff(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lastResult()
	if !ok {
		render.Render(w, r, errNotLoaded())
		return
	}
	render.JSON(w, r, res.Dataset.Staff)
}

// lastResult returns the most recent successful run, if any.
func (s *Server) lastResult() (*pipeline.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, false
	}
	return s.last, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "degraded", "database": err.Error()})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}
