package exceptions

import (
	"math"
	"testing"
	"time"

	"github.com/canopydata/pospipe/internal/canonical"
	"github.com/canopydata/pospipe/internal/config"
)

func newTestDetector() *Detector {
	return NewDetector(config.DefaultPipeline().Thresholds)
}

func orderAt(id string, total float64) canonical.Order {
	return canonical.Order{
		OrderID:      id,
		LocationName: "Downtown",
		Timestamp:    time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		Total:        total,
	}
}

func byType(exs []canonical.Exception, typ canonical.ExceptionType) []canonical.Exception {
	var out []canonical.Exception
	for _, ex := range exs {
		if ex.Type == typ {
			out = append(out, ex)
		}
	}
	return out
}

func TestDetect_NegativeTotal(t *testing.T) {
	refunded := orderAt("T2", -10)
	refunded.Refunded = true

	ds := canonical.Dataset{Orders: []canonical.Order{
		orderAt("T1", -10),
		refunded,
		orderAt("T3", 10),
	}}

	got := byType(newTestDetector().Detect(&ds), canonical.ExceptionNegativeTotal)
	if len(got) != 1 {
		t.Fatalf("negative_total exceptions = %d, want 1", len(got))
	}
	if got[0].OrderID == nil || *got[0].OrderID != "T1" {
		t.Errorf("OrderID = %v, want T1", got[0].OrderID)
	}
	if got[0].Value != -10 {
		t.Errorf("Value = %v, want -10", got[0].Value)
	}
}

func TestDetect_HighDiscount(t *testing.T) {
	over := orderAt("T1", 50)
	over.DiscountRate = 35
	at := orderAt("T2", 50)
	at.DiscountRate = 30 // at the threshold, not over it

	ds := canonical.Dataset{Orders: []canonical.Order{over, at}}

	got := byType(newTestDetector().Detect(&ds), canonical.ExceptionHighDiscount)
	if len(got) != 1 {
		t.Fatalf("high_discount exceptions = %d, want 1", len(got))
	}
	if got[0].Value != 35 {
		t.Errorf("Value = %v, want 35", got[0].Value)
	}
}

func TestDetect_TaxMismatch(t *testing.T) {
	o := orderAt("T1", 100)
	o.ExciseTax, o.StateTax, o.LocalTax = 5, 3, 1
	o.TotalTax = 10

	within := orderAt("T2", 100)
	within.ExciseTax, within.StateTax, within.LocalTax = 5, 3, 1
	within.TotalTax = 9.04 // inside the 0.05 tolerance

	ds := canonical.Dataset{Orders: []canonical.Order{o, within}}

	got := byType(newTestDetector().Detect(&ds), canonical.ExceptionTaxMismatch)
	if len(got) != 1 {
		t.Fatalf("tax_mismatch exceptions = %d, want 1", len(got))
	}
	if math.Abs(got[0].Value-1.0) > 1e-9 {
		t.Errorf("Value = %v, want 1.00", got[0].Value)
	}
}

func TestDetect_HighVoidRate(t *testing.T) {
	var orders []canonical.Order

	// Staff E1: 120 orders, 8 voided (6.67%).
	for i := 0; i < 120; i++ {
		o := orderAt("A", 10)
		o.OrderID = o.OrderID + string(rune('0'+i%10))
		o.StaffID = "E1"
		o.Voided = i < 8
		orders = append(orders, o)
	}
	// Staff E2: 100 orders, 4 voided (4%).
	for i := 0; i < 100; i++ {
		o := orderAt("B", 10)
		o.StaffID = "E2"
		o.Voided = i < 4
		orders = append(orders, o)
	}

	ds := canonical.Dataset{Orders: orders}
	got := byType(newTestDetector().Detect(&ds), canonical.ExceptionHighVoidRate)

	if len(got) != 1 {
		t.Fatalf("high_void_rate exceptions = %d, want exactly 1", len(got))
	}
	ex := got[0]
	if ex.OrderID != nil {
		t.Errorf("OrderID = %v, want nil for a per-staff aggregate", *ex.OrderID)
	}
	if ex.Timestamp != nil {
		t.Error("Timestamp should be nil for a per-staff aggregate")
	}
	if math.Abs(ex.Value-6.67) > 0.01 {
		t.Errorf("Value = %v, want ≈6.67", ex.Value)
	}
}

func TestDetect_OutputGroupsRules(t *testing.T) {
	neg := orderAt("T1", -10)
	disc := orderAt("T2", 50)
	disc.DiscountRate = 40

	ds := canonical.Dataset{Orders: []canonical.Order{disc, neg}}
	got := newTestDetector().Detect(&ds)

	if len(got) != 2 {
		t.Fatalf("exceptions = %d, want 2", len(got))
	}
	// Rule order, not order order: negative_total matches come first even
	// though the discounted order appears first in the dataset.
	if got[0].Type != canonical.ExceptionNegativeTotal {
		t.Errorf("first exception = %s, want negative_total", got[0].Type)
	}
	if got[1].Type != canonical.ExceptionHighDiscount {
		t.Errorf("second exception = %s, want high_discount", got[1].Type)
	}
}

func TestDetect_CleanDatasetProducesNothing(t *testing.T) {
	o := orderAt("T1", 25)
	o.StaffID = "E1"
	ds := canonical.Dataset{Orders: []canonical.Order{o}}

	if got := newTestDetector().Detect(&ds); len(got) != 0 {
		t.Errorf("Detect() = %v, want none", got)
	}
}
