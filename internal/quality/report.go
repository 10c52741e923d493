// Package quality summarizes a normalized dataset for human review:
// volumes, rates, date range, and per-column missingness.
package quality

import (
	"math"

	"github.com/canopydata/pospipe/internal/canonical"
	"github.com/canopydata/pospipe/internal/ingest"
)

// Report is the read-only quality summary handed to reporting
// collaborators alongside the normalized tables and exception list.
type Report struct {
	TotalOrders    int `json:"total_orders"`
	TotalLineItems int `json:"total_line_items"`
	TotalProducts  int `json:"total_products"`
	TotalStaff     int `json:"total_staff"`
	LocationCount  int `json:"location_count"`

	DateMin string `json:"date_min"`
	DateMax string `json:"date_max"`

	VoidedOrders  int `json:"voided_orders"`
	RefundOrders  int `json:"refund_orders"`
	NegativeTotal int `json:"negative_total_orders"`

	// Rates are percentages; 0 when there are no orders.
	VoidRate        float64 `json:"void_rate"`
	RefundRate      float64 `json:"refund_rate"`
	AvgDiscountRate float64 `json:"avg_discount_rate"`

	// MissingValues counts source cells that were absent per canonical
	// field; InvalidValues counts cells that failed type coercion. Both come
	// from the normalizer's defect log, so they cover the raw rows rather
	// than the normalized output.
	MissingValues map[string]int `json:"missing_values"`
	InvalidValues map[string]int `json:"invalid_values"`
}

// Build computes the quality report for a dataset plus the coercion defects
// accumulated during normalization. A nil defects log yields empty maps.
func Build(ds *canonical.Dataset, defects *ingest.Defects) *Report {
	r := &Report{
		TotalOrders:    len(ds.Orders),
		TotalLineItems: len(ds.LineItems),
		TotalProducts:  len(ds.Products),
		TotalStaff:     len(ds.Staff),
		MissingValues:  map[string]int{},
		InvalidValues:  map[string]int{},
	}

	locations := make(map[string]bool)
	var discountSum float64
	for i := range ds.Orders {
		o := &ds.Orders[i]
		locations[o.LocationID] = true
		discountSum += o.DiscountRate
		if o.Voided {
			r.VoidedOrders++
		}
		if o.Refunded {
			r.RefundOrders++
		}
		// Every negative total counts here, refunds included; the refund
		// exemption belongs to the exception rule, not the raw tally.
		if o.Total < 0 {
			r.NegativeTotal++
		}
		if r.DateMin == "" || o.Date < r.DateMin {
			r.DateMin = o.Date
		}
		if o.Date > r.DateMax {
			r.DateMax = o.Date
		}
	}
	r.LocationCount = len(locations)

	if n := len(ds.Orders); n > 0 {
		r.VoidRate = round2(float64(r.VoidedOrders) / float64(n) * 100)
		r.RefundRate = round2(float64(r.RefundOrders) / float64(n) * 100)
		r.AvgDiscountRate = round2(discountSum / float64(n))
	}

	if defects != nil {
		for field, n := range defects.Missing {
			r.MissingValues[field] = n
		}
		for field, n := range defects.Invalid {
			r.InvalidValues[field] = n
		}
	}

	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
