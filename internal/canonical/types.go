// Package canonical defines the fixed internal schema every POS source is
// normalized into, along with the exception and dataset types produced by
// the ingestion pipeline. This package has no dependencies beyond the
// standard library and can be consumed by any frontend or store.
package canonical

import "time"

// Order type tokens after normalization. Unrecognized source tokens pass
// through unchanged rather than being forced into the closed set.
const (
	OrderTypeInStore  = "in_store"
	OrderTypePickup   = "pickup"
	OrderTypeDelivery = "delivery"
)

// Order is one normalized POS transaction. Timestamp is always
// timezone-aware (store-local) after normalization, and DiscountRate is
// always within [-100, 100].
type Order struct {
	OrderID      string    `json:"order_id"`
	LocationID   string    `json:"location_id"`
	LocationName string    `json:"location_name"`
	StaffID      string    `json:"staff_id"`
	Timestamp    time.Time `json:"timestamp"`
	// TimestampHasZone records whether the source value carried an explicit
	// timezone. Naive values are interpreted as store-local wall-clock time;
	// zoned values are converted. Consumed by the derive engine only.
	TimestampHasZone bool `json:"-"`
	OrderType    string    `json:"order_type"`
	IsMedical    bool      `json:"is_medical"`
	Subtotal     float64   `json:"subtotal"`
	// SubtotalDerived marks a subtotal reconstructed by the normalizer
	// rather than read from the source. The discount-rate basis only
	// trusts an explicit subtotal. Consumed by the derive engine.
	SubtotalDerived bool `json:"-"`
	ExciseTax    float64   `json:"excise_tax"`
	StateTax     float64   `json:"state_tax"`
	LocalTax     float64   `json:"local_tax"`
	TotalTax     float64   `json:"total_tax"`
	Discount     float64   `json:"discount"`
	Total        float64   `json:"total"`
	DiscountRate float64   `json:"discount_rate"`
	TenderType   string    `json:"tender_type"`
	Voided       bool      `json:"voided"`
	Refunded     bool      `json:"refunded"`
	PromoCode    *string   `json:"promo_code"`

	// Derived temporal fields, populated by the derive engine from the
	// store-local timestamp.
	Date         string `json:"date"` // YYYY-MM-DD
	Hour         int    `json:"hour"`
	DayOfWeek    string `json:"day_of_week"`
	Daypart      string `json:"daypart"`
	TimeBucketID string `json:"time_bucket_id"` // YYYYMMDDHH
}

// LineItem is one normalized transaction line. OrderID references an Order;
// an orphan reference is a data-quality defect surfaced at store load, never
// silently dropped.
type LineItem struct {
	LineID      string  `json:"line_id"`
	OrderID     string  `json:"order_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"` // lower-cased
	Category    string  `json:"category"`     // title-cased
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	UnitCost    float64 `json:"unit_cost"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`
	Margin      float64 `json:"margin"` // (unit_price - unit_cost) * quantity, unclamped
}

// Product is a deduplicated product definition (keep-first by ProductID
// across sources).
type Product struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	UnitCost    float64 `json:"unit_cost"`
	UnitPrice   float64 `json:"unit_price"`
}

// StaffMember is a deduplicated staff record (keep-first by StaffID).
type StaffMember struct {
	StaffID string `json:"staff_id"`
	Name    string `json:"name"`
}

// ExceptionType identifies which detection rule flagged an observation.
type ExceptionType string

const (
	ExceptionNegativeTotal ExceptionType = "negative_total"
	ExceptionHighDiscount  ExceptionType = "high_discount"
	ExceptionTaxMismatch   ExceptionType = "tax_mismatch"
	ExceptionHighVoidRate  ExceptionType = "high_void_rate"
)

// Exception is a flagged data-quality observation. It carries no identity
// and is produced fresh on every detection pass.
type Exception struct {
	Type        ExceptionType `json:"type"`
	OrderID     *string       `json:"order_id"` // nil for per-staff aggregates
	Location    string        `json:"location"`
	Timestamp   *time.Time    `json:"timestamp"`
	Value       float64       `json:"value"`
	Description string        `json:"description"`
}

// Dataset holds the four normalized tables for one or more sources.
type Dataset struct {
	Orders    []Order       `json:"orders"`
	LineItems []LineItem    `json:"line_items"`
	Products  []Product     `json:"products"`
	Staff     []StaffMember `json:"staff"`
}

// Empty reports whether the dataset contains no orders.
func (d *Dataset) Empty() bool {
	return len(d.Orders) == 0
}

// Merge appends another dataset, deduplicating products and staff keep-first.
// Sources must be merged in declaration order so repeated runs produce the
// same winner for a duplicated id.
func (d *Dataset) Merge(other Dataset) {
	d.Orders = append(d.Orders, other.Orders...)
	d.LineItems = append(d.LineItems, other.LineItems...)

	seenProducts := make(map[string]bool, len(d.Products))
	for _, p := range d.Products {
		seenProducts[p.ProductID] = true
	}
	for _, p := range other.Products {
		if !seenProducts[p.ProductID] {
			seenProducts[p.ProductID] = true
			d.Products = append(d.Products, p)
		}
	}

	seenStaff := make(map[string]bool, len(d.Staff))
	for _, s := range d.Staff {
		seenStaff[s.StaffID] = true
	}
	for _, s := range other.Staff {
		if !seenStaff[s.StaffID] {
			seenStaff[s.StaffID] = true
			d.Staff = append(d.Staff, s)
		}
	}
}
