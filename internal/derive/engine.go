// Package derive computes the derived temporal and financial fields on
// canonical records: store-local timestamps, date/hour/day-of-week, daypart
// and time-bucket assignment, discount rate, order-type normalization, and
// line-item margin.
package derive

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/canopydata/pospipe/internal/canonical"
	"github.com/canopydata/pospipe/internal/config"
)

// Engine applies the derivation rules using an immutable configuration
// snapshot. Store timezones are resolved once per location and cached.
type Engine struct {
	cfg   *config.Pipeline
	zones map[string]*time.Location
}

// NewEngine builds a derive engine from a pipeline snapshot.
func NewEngine(cfg *config.Pipeline) *Engine {
	return &Engine{
		cfg:   cfg,
		zones: make(map[string]*time.Location),
	}
}

// Apply derives all fields on every order and line item in the dataset,
// in place.
func (e *Engine) Apply(ds *canonical.Dataset) error {
	for i := range ds.Orders {
		if err := e.Order(&ds.Orders[i]); err != nil {
			return err
		}
	}
	for i := range ds.LineItems {
		it := &ds.LineItems[i]
		it.Margin = Margin(it.UnitPrice, it.UnitCost, it.Quantity)
	}
	return nil
}

// Order derives the temporal and financial fields for one order in place.
func (e *Engine) Order(o *canonical.Order) error {
	zone, err := e.zone(o.LocationName)
	if err != nil {
		return err
	}

	o.Timestamp = localize(o.Timestamp, o.TimestampHasZone, zone)
	o.TimestampHasZone = true

	o.Date = o.Timestamp.Format("2006-01-02")
	o.Hour = o.Timestamp.Hour()
	o.DayOfWeek = o.Timestamp.Weekday().String()
	o.Daypart = e.Daypart(o.Hour)
	o.TimeBucketID = o.Timestamp.Format("2006010215")

	o.OrderType = NormalizeOrderType(o.OrderType)
	o.TenderType = strings.ToLower(strings.TrimSpace(o.TenderType))

	// A reconstructed subtotal is not a valid rate basis; fall through to
	// the total+discount reconstruction inside DiscountRate.
	subtotal := o.Subtotal
	if o.SubtotalDerived {
		subtotal = 0
	}
	o.DiscountRate = DiscountRate(subtotal, o.Total, o.Discount)

	return nil
}

// localize converts a timestamp to the store's zone. Naive timestamps are
// tagged with the zone keeping their wall-clock value; zone-aware
// timestamps are converted, shifting the wall clock as needed. POS
// terminals commonly emit naive local time while API sources emit UTC, so
// the asymmetry is deliberate.
func localize(t time.Time, hasZone bool, zone *time.Location) time.Time {
	if hasZone {
		return t.In(zone)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), zone)
}

// zone resolves and caches the timezone for a location name.
func (e *Engine) zone(locationName string) (*time.Location, error) {
	if z, ok := e.zones[locationName]; ok {
		return z, nil
	}
	loc := e.cfg.Location(locationName)
	z, err := loc.TimeLocation()
	if err != nil {
		return nil, fmt.Errorf("location %s: %w", locationName, err)
	}
	e.zones[locationName] = z
	return z, nil
}

// Daypart assigns the first configured interval containing the hour.
// Intervals are [start, end) and may overlap; first match wins. Hours
// outside every interval map to Other.
func (e *Engine) Daypart(hour int) string {
	for _, dp := range e.cfg.Dayparts {
		if hour >= dp.Start && hour < dp.End {
			return dp.Name
		}
	}
	return "Other"
}

// DiscountRate computes discount as a percentage of the subtotal basis,
// rounded to two decimals and clamped to [-100, 100]. The basis is the
// explicit subtotal when positive, else total+discount reconstructed; a
// non-positive basis yields 0 rather than a division error.
func DiscountRate(subtotal, total, discount float64) float64 {
	basis := subtotal
	if basis <= 0 {
		basis = total + discount
	}
	if basis <= 0 {
		return 0
	}
	rate := math.Round(discount/basis*100*100) / 100
	return clamp(rate, -100, 100)
}

// orderTypeVariants maps known spellings to the canonical token.
var orderTypeVariants = map[string]string{
	"in-store": canonical.OrderTypeInStore,
	"instore":  canonical.OrderTypeInStore,
	"in store": canonical.OrderTypeInStore,
}

// NormalizeOrderType lower-cases, trims, and maps known spelling variants
// onto the canonical token. Unrecognized tokens pass through unchanged.
func NormalizeOrderType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if mapped, ok := orderTypeVariants[s]; ok {
		return mapped
	}
	return s
}

// Margin is (unit price - unit cost) x quantity. Never clamped: a negative
// margin is a legitimate signal, not an error.
func Margin(unitPrice, unitCost, quantity float64) float64 {
	return (unitPrice - unitCost) * quantity
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
