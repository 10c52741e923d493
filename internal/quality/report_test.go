package quality

import (
	"testing"

	"github.com/canopydata/pospipe/internal/canonical"
	"github.com/canopydata/pospipe/internal/ingest"
)

func TestBuild(t *testing.T) {
	refund := canonical.Order{OrderID: "T3", LocationID: "loc_2", Date: "2024-03-17", Total: -5, Refunded: true, DiscountRate: 0}

	ds := &canonical.Dataset{
		Orders: []canonical.Order{
			{OrderID: "T1", LocationID: "loc_1", Date: "2024-03-15", Total: 20, DiscountRate: 10},
			{OrderID: "T2", LocationID: "loc_1", Date: "2024-03-16", Total: -8, DiscountRate: 20, Voided: true},
			refund,
		},
		LineItems: []canonical.LineItem{{LineID: "L1"}, {LineID: "L2"}},
		Products:  []canonical.Product{{ProductID: "P1"}},
		Staff:     []canonical.StaffMember{{StaffID: "E1"}},
	}

	defects := ingest.NewDefects()
	defects.Missing["quantity"] = 3
	defects.Invalid["total"] = 1

	r := Build(ds, defects)

	if r.TotalOrders != 3 || r.TotalLineItems != 2 || r.TotalProducts != 1 || r.TotalStaff != 1 {
		t.Errorf("totals = %d/%d/%d/%d, want 3/2/1/1",
			r.TotalOrders, r.TotalLineItems, r.TotalProducts, r.TotalStaff)
	}
	if r.LocationCount != 2 {
		t.Errorf("LocationCount = %d, want 2", r.LocationCount)
	}
	if r.DateMin != "2024-03-15" || r.DateMax != "2024-03-17" {
		t.Errorf("date range = %s..%s, want 2024-03-15..2024-03-17", r.DateMin, r.DateMax)
	}

	if r.VoidedOrders != 1 || r.RefundOrders != 1 {
		t.Errorf("voided/refunded = %d/%d, want 1/1", r.VoidedOrders, r.RefundOrders)
	}
	// Both negative totals count, the refunded T3 included; only the
	// exception rule exempts refunds.
	if r.NegativeTotal != 2 {
		t.Errorf("NegativeTotal = %d, want 2", r.NegativeTotal)
	}

	if r.VoidRate != 33.33 {
		t.Errorf("VoidRate = %v, want 33.33", r.VoidRate)
	}
	if r.AvgDiscountRate != 10 {
		t.Errorf("AvgDiscountRate = %v, want 10", r.AvgDiscountRate)
	}

	if r.MissingValues["quantity"] != 3 {
		t.Errorf("MissingValues[quantity] = %d, want 3", r.MissingValues["quantity"])
	}
	if r.InvalidValues["total"] != 1 {
		t.Errorf("InvalidValues[total] = %d, want 1", r.InvalidValues["total"])
	}
}

func TestBuild_EmptyDataset(t *testing.T) {
	r := Build(&canonical.Dataset{}, nil)

	if r.TotalOrders != 0 {
		t.Errorf("TotalOrders = %d, want 0", r.TotalOrders)
	}
	if r.VoidRate != 0 || r.RefundRate != 0 || r.AvgDiscountRate != 0 {
		t.Error("rates should be 0 for an empty dataset")
	}
	if r.DateMin != "" || r.DateMax != "" {
		t.Errorf("date range = %s..%s, want empty", r.DateMin, r.DateMax)
	}
}
