package web

// errors.go maps pipeline and store errors onto JSON responses. Technical
// details are logged server-side with the request id; clients get a stable
// machine-readable code plus an actionable message.

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/canopydata/pospipe/internal/ingest"
	"github.com/canopydata/pospipe/internal/logging"
	"github.com/canopydata/pospipe/internal/pipeline"
	"github.com/canopydata/pospipe/internal/store"
)

// ErrResponse is the JSON error envelope.
type ErrResponse struct {
	HTTPStatusCode int `json:"-"`

	Code    string `json:"code"`
	Message string `json:"message"`
}

// Render implements render.Renderer.
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// errInvalidRequest covers malformed client input.
func errInvalidRequest(msg string) render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		Code:           "invalid_request",
		Message:        msg,
	}
}

// errNotLoaded is returned from read endpoints before any successful run.
func errNotLoaded() render.Renderer {
	return &ErrResponse{
		HTTPStatusCode: http.StatusNotFound,
		Code:           "no_data",
		Message:        "no dataset loaded yet; upload at least one source first",
	}
}

// mapPipelineError classifies an error from a pipeline run.
func mapPipelineError(err error) render.Renderer {
	var resErr *ingest.SchemaResolutionError
	if errors.As(err, &resErr) {
		return &ErrResponse{
			HTTPStatusCode: http.StatusUnprocessableEntity,
			Code:           "schema_resolution",
			Message:        resErr.Error(),
		}
	}

	var emptyErr *ingest.ErrEmptySource
	if errors.As(err, &emptyErr) {
		return &ErrResponse{
			HTTPStatusCode: http.StatusUnprocessableEntity,
			Code:           "empty_source",
			Message:        emptyErr.Error(),
		}
	}

	if errors.Is(err, pipeline.ErrNoData) {
		return &ErrResponse{
			HTTPStatusCode: http.StatusUnprocessableEntity,
			Code:           "no_orders",
			Message:        "no source produced any orders; check the uploaded files",
		}
	}

	var loadErr *store.StoreLoadFailure
	if errors.As(err, &loadErr) {
		return &ErrResponse{
			HTTPStatusCode: http.StatusBadGateway,
			Code:           "store_load_failure",
			Message:        "star schema load failed; the previously loaded dataset is still being served",
		}
	}

	return &ErrResponse{
		HTTPStatusCode: http.StatusInternalServerError,
		Code:           "internal",
		Message:        "internal error",
	}
}

// respondError logs the technical error and renders its mapped response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	resp := mapPipelineError(err)
	e := resp.(*ErrResponse)
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", e.HTTPStatusCode,
		"code", e.Code,
		"error", err.Error(),
	)
	render.Render(w, r, resp)
}
