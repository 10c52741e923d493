// Package exceptions flags data-quality observations on normalized orders:
// negative totals, excessive discounts, tax reconciliation mismatches, and
// per-staff void-rate outliers.
package exceptions

import (
	"fmt"
	"math"

	"github.com/canopydata/pospipe/internal/canonical"
	"github.com/canopydata/pospipe/internal/config"
)

// Detector runs every rule over a normalized dataset. Detection is a pure
// read: it never mutates the dataset and produces a fresh exception list on
// every pass.
type Detector struct {
	thresholds config.Thresholds
}

// NewDetector builds a detector with the given thresholds.
func NewDetector(thresholds config.Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// voidStats accumulates per-staff order counts for the void-rate rule.
type voidStats struct {
	staffID  string
	location string
	orders   int
	voided   int
}

// Detect scans all orders and returns the flagged exceptions. Rules run in
// a fixed sequence and the output groups each rule's matches together, so
// repeated passes over the same dataset produce identical output.
func (d *Detector) Detect(ds *canonical.Dataset) []canonical.Exception {
	out := d.checkNegativeTotals(ds)
	out = append(out, d.checkHighDiscounts(ds)...)
	out = append(out, d.checkTaxMismatches(ds)...)

	out = append(out, d.checkVoidRates(ds)...)
	return out
}

// checkNegativeTotals flags orders whose total falls below the negative
// floor. Refunds legitimately carry negative totals and are not flagged.
func (d *Detector) checkNegativeTotals(ds *canonical.Dataset) []canonical.Exception {
	var out []canonical.Exception
	for i := range ds.Orders {
		o := &ds.Orders[i]
		if o.Total < d.thresholds.NegativeTotal && !o.Refunded {
			ts := o.Timestamp
			out = append(out, canonical.Exception{
				Type:        canonical.ExceptionNegativeTotal,
				OrderID:     &o.OrderID,
				Location:    o.LocationName,
				Timestamp:   &ts,
				Value:       o.Total,
				Description: fmt.Sprintf("order total %.2f is negative and the order is not a refund", o.Total),
			})
		}
	}
	return out
}

func (d *Detector) checkHighDiscounts(ds *canonical.Dataset) []canonical.Exception {
	var out []canonical.Exception
	for i := range ds.Orders {
		o := &ds.Orders[i]
		if o.DiscountRate > d.thresholds.HighDiscountRate {
			ts := o.Timestamp
			out = append(out, canonical.Exception{
				Type:        canonical.ExceptionHighDiscount,
				OrderID:     &o.OrderID,
				Location:    o.LocationName,
				Timestamp:   &ts,
				Value:       o.DiscountRate,
				Description: fmt.Sprintf("discount rate %.2f%% exceeds %.0f%%", o.DiscountRate, d.thresholds.HighDiscountRate),
			})
		}
	}
	return out
}

// checkTaxMismatches flags orders whose tax components fail to reconcile
// with the total tax beyond the absolute tolerance.
func (d *Detector) checkTaxMismatches(ds *canonical.Dataset) []canonical.Exception {
	var out []canonical.Exception
	for i := range ds.Orders {
		o := &ds.Orders[i]
		expected := o.ExciseTax + o.StateTax + o.LocalTax
		diff := math.Abs(expected - o.TotalTax)
		if diff > d.thresholds.TaxTolerance {
			ts := o.Timestamp
			out = append(out, canonical.Exception{
				Type:        canonical.ExceptionTaxMismatch,
				OrderID:     &o.OrderID,
				Location:    o.LocationName,
				Timestamp:   &ts,
				Value:       diff,
				Description: fmt.Sprintf("tax components sum to %.2f but total tax is %.2f", expected, o.TotalTax),
			})
		}
	}
	return out
}

// checkVoidRates flags each staff member whose void percentage exceeds the
// threshold, once per staff member in order of first appearance. The
// exception has no order id or timestamp because it describes an
// aggregate; its location is the staff member's first observed location.
func (d *Detector) checkVoidRates(ds *canonical.Dataset) []canonical.Exception {
	staff := make(map[string]*voidStats)
	var ids []string
	for i := range ds.Orders {
		o := &ds.Orders[i]
		if o.StaffID == "" {
			continue
		}
		st, ok := staff[o.StaffID]
		if !ok {
			st = &voidStats{staffID: o.StaffID, location: o.LocationName}
			staff[o.StaffID] = st
			ids = append(ids, o.StaffID)
		}
		st.orders++
		if o.Voided {
			st.voided++
		}
	}

	var out []canonical.Exception
	for _, id := range ids {
		st := staff[id]
		rate := float64(st.voided) / float64(st.orders) * 100
		if rate > d.thresholds.HighVoidRate {
			out = append(out, canonical.Exception{
				Type:        canonical.ExceptionHighVoidRate,
				OrderID:     nil,
				Location:    st.location,
				Timestamp:   nil,
				Value:       rate,
				Description: fmt.Sprintf("staff %s voided %d of %d orders (%.2f%%)", st.staffID, st.voided, st.orders, rate),
			})
		}
	}
	return out
}
