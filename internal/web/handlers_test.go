package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/canopydata/pospipe/internal/canonical"
	"github.com/canopydata/pospipe/internal/config"
	"github.com/canopydata/pospipe/internal/pipeline"
	"github.com/canopydata/pospipe/internal/store"
)

type fakeLoader struct{}

func (fakeLoader) Load(_ context.Context, ds *canonical.Dataset, _ *config.Pipeline) (*store.LoadStats, error) {
	return &store.LoadStats{Orders: len(ds.Orders), LineItems: len(ds.LineItems)}, nil
}

func newTestServer() *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{
			RequestTimeout: time.Minute,
		},
		Ingest: config.IngestConfig{
			MaxFileSize: 1 << 20,
			LoadTimeout: time.Minute,
		},
	}
	runner := pipeline.NewRunner(config.DefaultPipeline(), fakeLoader{})
	return NewServer(cfg, runner, nil)
}

const uploadCSV = `transaction_id,timestamp,employee_id,product_id,product_name,quantity,unit_price,total,subtotal,tender_type
T1,2024-03-15 10:30:00,E1,P1,Espresso,1,4.00,4.00,4.00,cash
T2,2024-03-15 13:00:00,E1,P2,Bagel,2,3.00,5.00,6.00,credit`

func doUpload(t *testing.T, s *Server, location, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/sources/"+location+"/upload", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleUpload(t *testing.T) {
	s := newTestServer()
	rec := doUpload(t, s, "Downtown", uploadCSV)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Location != "Downtown" || resp.Sources != 1 {
		t.Errorf("response = %+v, want Downtown with 1 source", resp)
	}
	if resp.Stats == nil || resp.Stats.Orders != 2 {
		t.Errorf("Stats = %+v, want 2 orders", resp.Stats)
	}
}

func TestHandleUpload_UnresolvableSource(t *testing.T) {
	s := newTestServer()
	rec := doUpload(t, s, "Downtown", "color,weather\nblue,rainy")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}

	var resp ErrResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != "schema_resolution" {
		t.Errorf("Code = %q, want schema_resolution", resp.Code)
	}

	// The rejected source must not poison later uploads.
	if rec := doUpload(t, s, "Downtown", uploadCSV); rec.Code != http.StatusCreated {
		t.Errorf("follow-up upload status = %d, want 201", rec.Code)
	}
}

func TestHandleDatasets(t *testing.T) {
	s := newTestServer()

	// Before any upload the read endpoints report no data.
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/orders", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before upload", rec.Code)
	}

	if rec := doUpload(t, s, "Downtown", uploadCSV); rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/datasets/orders", nil)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var orders []canonical.Order
	if err := json.NewDecoder(rec.Body).Decode(&orders); err != nil {
		t.Fatalf("decode orders: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("orders = %d, want 2", len(orders))
	}
	if orders[0].Daypart == "" {
		t.Error("orders served without derived fields")
	}
}

func TestHandleQuality(t *testing.T) {
	s := newTestServer()
	if rec := doUpload(t, s, "Downtown", uploadCSV); rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/quality", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var report struct {
		TotalOrders int `json:"total_orders"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalOrders != 2 {
		t.Errorf("TotalOrders = %d, want 2", report.TotalOrders)
	}
}

func TestHandleExceptions(t *testing.T) {
	s := newTestServer()

	// An order discounted far beyond the threshold must surface.
	csv := `transaction_id,timestamp,total,subtotal,discount
T1,2024-03-15 10:30:00,50.00,100.00,50.00`
	if rec := doUpload(t, s, "Downtown", csv); rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/exceptions", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var exs []canonical.Exception
	if err := json.NewDecoder(rec.Body).Decode(&exs); err != nil {
		t.Fatalf("decode exceptions: %v", err)
	}
	if len(exs) != 1 || exs[0].Type != canonical.ExceptionHighDiscount {
		t.Errorf("exceptions = %+v, want one high_discount", exs)
	}
}

func TestParseFilters(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/query?start_date=2024-03-01&end_date=2024-03-31&locations=loc_1,loc_2&locations=loc_3&daypart=Morning", nil)

	f := parseFilters(req)
	if f.StartDate != "2024-03-01" || f.EndDate != "2024-03-31" {
		t.Errorf("dates = %s..%s", f.StartDate, f.EndDate)
	}
	if len(f.Locations) != 3 {
		t.Errorf("Locations = %v, want 3 entries", f.Locations)
	}
	if f.Daypart != "Morning" {
		t.Errorf("Daypart = %q, want Morning", f.Daypart)
	}
}
