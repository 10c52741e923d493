package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/canopydata/pospipe/internal/canonical"
	"github.com/canopydata/pospipe/internal/config"
)

// referentialSampleSize caps how many orphan line ids an error message carries.
const referentialSampleSize = 5

// LoadStats summarizes a completed load.
type LoadStats struct {
	Orders    int `json:"orders"`
	LineItems int `json:"line_items"`
	Products  int `json:"products"`
	Staff     int `json:"staff"`
	Locations int `json:"locations"`
	TimeRows  int `json:"time_rows"`

	// DuplicateOrders and DuplicateLineItems count fact rows dropped by
	// keep-first dedup when merged sources reuse an id.
	DuplicateOrders    int `json:"duplicate_orders,omitempty"`
	DuplicateLineItems int `json:"duplicate_line_items,omitempty"`

	// Orphans is non-nil when line items referencing unknown orders were
	// excluded from the load.
	Orphans *ReferentialDefect `json:"orphans,omitempty"`
}

// Load atomically replaces the star schema contents with the dataset.
// Deletes and inserts run in a single transaction; on any failure the
// transaction rolls back, the prior contents stay queryable, and the error
// is a StoreLoadFailure. Line items referencing unknown orders are excluded
// and surfaced in the returned stats.
func (s *Store) Load(ctx context.Context, ds *canonical.Dataset, cfg *config.Pipeline) (*LoadStats, error) {
	stats := &LoadStats{}

	orders, dupOrders := dedupeOrders(ds.Orders)
	stats.DuplicateOrders = dupOrders

	items, orphans := partitionLineItems(ds)
	stats.Orphans = orphans
	items, dupItems := dedupeLineItems(items)
	stats.DuplicateLineItems = dupItems

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, &StoreLoadFailure{Err: fmt.Errorf("begin: %w", err)}
	}
	defer tx.Rollback(ctx) // No-op once committed.

	for _, table := range []string{"fact_line_items", "fact_sales", "dim_time", "dim_product", "dim_staff", "dim_location"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return nil, &StoreLoadFailure{Err: fmt.Errorf("clear %s: %w", table, err)}
		}
	}

	b := &pgx.Batch{}
	stats.Locations = queueLocations(b, orders, cfg)
	stats.Staff = queueStaff(b, ds)
	stats.Products = queueProducts(b, ds)
	stats.TimeRows = queueTimeRows(b, orders)
	stats.Orders = queueOrders(b, orders)
	stats.LineItems = queueLineItems(b, items)

	if err := sendBatch(ctx, tx, b); err != nil {
		return nil, &StoreLoadFailure{Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &StoreLoadFailure{Err: fmt.Errorf("commit: %w", err)}
	}
	return stats, nil
}

// dedupeOrders keeps the first order for each id. Exports from different
// locations can legitimately reuse transaction ids; fact_sales is keyed by
// order id, so later duplicates are dropped keep-first and counted.
func dedupeOrders(orders []canonical.Order) ([]canonical.Order, int) {
	seen := make(map[string]bool, len(orders))
	out := make([]canonical.Order, 0, len(orders))
	dropped := 0
	for _, o := range orders {
		if seen[o.OrderID] {
			dropped++
			continue
		}
		seen[o.OrderID] = true
		out = append(out, o)
	}
	return out, dropped
}

// dedupeLineItems keeps the first line item for each id.
func dedupeLineItems(items []canonical.LineItem) ([]canonical.LineItem, int) {
	seen := make(map[string]bool, len(items))
	out := make([]canonical.LineItem, 0, len(items))
	dropped := 0
	for _, it := range items {
		if seen[it.LineID] {
			dropped++
			continue
		}
		seen[it.LineID] = true
		out = append(out, it)
	}
	return out, dropped
}

// partitionLineItems splits line items into loadable records and orphans
// whose order_id is absent from the dataset.
func partitionLineItems(ds *canonical.Dataset) ([]canonical.LineItem, *ReferentialDefect) {
	orders := make(map[string]bool, len(ds.Orders))
	for i := range ds.Orders {
		orders[ds.Orders[i].OrderID] = true
	}

	items := make([]canonical.LineItem, 0, len(ds.LineItems))
	var defect *ReferentialDefect
	for _, it := range ds.LineItems {
		if orders[it.OrderID] {
			items = append(items, it)
			continue
		}
		if defect == nil {
			defect = &ReferentialDefect{}
		}
		defect.Count++
		if len(defect.LineIDs) < referentialSampleSize {
			defect.LineIDs = append(defect.LineIDs, it.LineID)
		}
	}
	return items, defect
}

func queueLocations(b *pgx.Batch, orders []canonical.Order, cfg *config.Pipeline) int {
	seen := make(map[string]bool)
	n := 0
	for i := range orders {
		o := &orders[i]
		if seen[o.LocationID] {
			continue
		}
		seen[o.LocationID] = true
		loc := cfg.Location(o.LocationName)
		b.Queue(
			`INSERT INTO dim_location (location_id, location_name, timezone) VALUES ($1, $2, $3)`,
			o.LocationID, o.LocationName, loc.Timezone,
		)
		n++
	}
	return n
}

func queueStaff(b *pgx.Batch, ds *canonical.Dataset) int {
	for _, st := range ds.Staff {
		b.Queue(
			`INSERT INTO dim_staff (staff_id, staff_name) VALUES ($1, $2)`,
			st.StaffID, st.Name,
		)
	}
	return len(ds.Staff)
}

func queueProducts(b *pgx.Batch, ds *canonical.Dataset) int {
	for _, p := range ds.Products {
		b.Queue(
			`INSERT INTO dim_product (product_id, product_name, category, subcategory, unit_cost, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ProductID, p.Name, p.Category, p.Subcategory, p.UnitCost, p.UnitPrice,
		)
	}
	return len(ds.Products)
}

// queueTimeRows inserts one dim_time row per distinct hourly bucket.
func queueTimeRows(b *pgx.Batch, orders []canonical.Order) int {
	seen := make(map[string]bool)
	n := 0
	for i := range orders {
		o := &orders[i]
		if seen[o.TimeBucketID] {
			continue
		}
		seen[o.TimeBucketID] = true
		b.Queue(
			`INSERT INTO dim_time (time_id, ts, date, hour, daypart, day_of_week)
			 VALUES ($1, $2, $3::date, $4, $5, $6)`,
			o.TimeBucketID, o.Timestamp, o.Date, o.Hour, o.Daypart, o.DayOfWeek,
		)
		n++
	}
	return n
}

func queueOrders(b *pgx.Batch, orders []canonical.Order) int {
	for i := range orders {
		o := &orders[i]
		b.Queue(
			`INSERT INTO fact_sales (
				order_id, location_id, staff_id, time_id, order_type, is_medical,
				subtotal, excise_tax, state_tax, local_tax, total_tax,
				discount, discount_rate, total, tender_type, voided, refunded, promo_code
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			o.OrderID, o.LocationID, o.StaffID, o.TimeBucketID, o.OrderType, o.IsMedical,
			o.Subtotal, o.ExciseTax, o.StateTax, o.LocalTax, o.TotalTax,
			o.Discount, o.DiscountRate, o.Total, o.TenderType, o.Voided, o.Refunded, o.PromoCode,
		)
	}
	return len(orders)
}

func queueLineItems(b *pgx.Batch, items []canonical.LineItem) int {
	for _, it := range items {
		b.Queue(
			`INSERT INTO fact_line_items (
				line_id, order_id, product_id, quantity, unit_price, unit_cost, discount, total, margin
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.LineID, it.OrderID, it.ProductID, it.Quantity, it.UnitPrice, it.UnitCost, it.Discount, it.Total, it.Margin,
		)
	}
	return len(items)
}

// sendBatch executes every queued insert, surfacing the first failure.
func sendBatch(ctx context.Context, tx pgx.Tx, b *pgx.Batch) error {
	br := tx.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert %d of %d: %w", i+1, b.Len(), err)
		}
	}
	return br.Close()
}
