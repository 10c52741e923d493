// Package ingest converts raw POS exports into the canonical schema. It
// owns source parsing (CSV and JSON), column resolution, safe type coercion
// with used-default tracking, and the order/line-item/product/staff
// normalization rules.
package ingest

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/canopydata/pospipe/internal/canonical"
	"github.com/canopydata/pospipe/internal/config"
	"github.com/canopydata/pospipe/internal/resolve"
)

// Normalizer converts resolved raw rows into canonical records for one
// location at a time. It holds an immutable configuration snapshot and a
// resolution table built once, not per row.
type Normalizer struct {
	cfg   *config.Pipeline
	table *resolve.Table
}

// NewNormalizer builds a normalizer from a pipeline configuration snapshot.
func NewNormalizer(cfg *config.Pipeline) *Normalizer {
	return &Normalizer{
		cfg:   cfg,
		table: ResolutionTable(cfg.Resolver),
	}
}

// Table exposes the resolution table, mainly for diagnostics.
func (n *Normalizer) Table() *resolve.Table {
	return n.table
}

// Normalize converts one source frame into a canonical dataset. Rows
// sharing an order id collapse into one order plus N line items; the first
// row of each group supplies the order-level fields. Returns a
// SchemaResolutionError when the transaction id or timestamp cannot be
// resolved at all.
func (n *Normalizer) Normalize(location string, frame Frame) (canonical.Dataset, *Defects, error) {
	defects := NewDefects()

	res := n.table.Resolve(frame.Columns)
	if missing := n.table.Missing(res); len(missing) > 0 {
		return canonical.Dataset{}, defects, &SchemaResolutionError{
			Missing:   missing,
			Available: frame.Columns,
		}
	}
	if len(frame.Rows) == 0 {
		return canonical.Dataset{}, defects, &ErrEmptySource{Location: location}
	}

	loc := n.cfg.Location(location)

	// Group rows by order id in first-seen order so repeated runs are
	// reproducible. Rows without a usable order id cannot be attributed and
	// are recorded as defects.
	groups := make(map[string][]int)
	var orderIDs []string
	for i, row := range frame.Rows {
		e := extractor{row: row, res: res, defects: defects}
		oid, ok := e.raw(FieldOrderID)
		if !ok {
			defects.Missing[FieldOrderID]++
			continue
		}
		if _, seen := groups[oid]; !seen {
			orderIDs = append(orderIDs, oid)
		}
		groups[oid] = append(groups[oid], i)
	}

	var ds canonical.Dataset
	products := newProductIndex()
	staff := newStaffIndex()

	for _, oid := range orderIDs {
		idxs := groups[oid]
		first := extractor{row: frame.Rows[idxs[0]], res: res, defects: defects}

		order := n.buildOrder(oid, loc, first, frame.Columns)
		ds.Orders = append(ds.Orders, order)

		for pos, i := range idxs {
			e := extractor{row: frame.Rows[i], res: res, defects: defects}

			// Synthesized fallback ids carry the order id so exports without
			// id columns stay distinct when several sources are merged.
			productID := e.str(FieldProductID, fmt.Sprintf("%s_prod_%d", oid, pos))
			item := canonical.LineItem{
				LineID:      e.str(FieldLineID, fmt.Sprintf("%s_line_%d", oid, pos)),
				OrderID:     oid,
				ProductID:   productID,
				ProductName: strings.ToLower(e.str(FieldProductName, "unknown product")),
				Category:    titleCase(e.str(FieldCategory, "Other")),
				Quantity:    e.float(FieldQuantity, 1),
				UnitPrice:   e.float(FieldUnitPrice, 0),
				UnitCost:    e.float(FieldUnitCost, 0),
				Discount:    itemDiscount(e),
				Total:       itemTotal(e),
			}
			ds.LineItems = append(ds.LineItems, item)

			products.put(canonical.Product{
				ProductID:   productID,
				Name:        item.ProductName,
				Category:    item.Category,
				Subcategory: titleCase(e.str(FieldSubcategory, "")),
				UnitCost:    item.UnitCost,
				UnitPrice:   item.UnitPrice,
			})
		}

		if order.StaffID != "" && order.StaffID != "unknown" {
			staff.put(canonical.StaffMember{
				StaffID: order.StaffID,
				Name:    first.str(FieldStaffName, "Staff_"+order.StaffID),
			})
		}
	}

	ds.Products = products.list
	ds.Staff = staff.list
	return ds, defects, nil
}

// buildOrder extracts the order-level fields from the first row of a group.
func (n *Normalizer) buildOrder(oid string, loc config.Location, e extractor, columns []string) canonical.Order {
	ts, hasZone := n.timestamp(e)

	discount := orderDiscount(e)
	total := orderTotal(e)

	// Monetary fallback: prefer the order-level subtotal; when no subtotal
	// column resolves at all, reconstruct it from total and discount. The
	// reconstruction is marked so the discount-rate basis never mistakes it
	// for a source value.
	var subtotal float64
	derived := false
	if e.resolved(FieldOrderSubtotal) {
		subtotal = e.float(FieldOrderSubtotal, 0)
	} else {
		e.defects.Missing[FieldOrderSubtotal]++
		subtotal = total - discount
		derived = true
	}

	return canonical.Order{
		OrderID:          oid,
		LocationID:       loc.ID,
		LocationName:     loc.Name,
		StaffID:          e.str(FieldStaffID, "unknown"),
		Timestamp:        ts,
		TimestampHasZone: hasZone,
		OrderType:        e.str(FieldOrderType, "in-store"),
		IsMedical:        e.boolean(FieldIsMedical, false),
		Subtotal:         subtotal,
		SubtotalDerived:  derived,
		ExciseTax:        e.float(FieldExciseTax, 0),
		StateTax:         e.float(FieldStateTax, 0),
		LocalTax:         e.float(FieldLocalTax, 0),
		TotalTax:         e.float(FieldTotalTax, 0),
		Discount:         discount,
		Total:            total,
		TenderType:       n.tenderType(e, columns),
		Voided:           e.boolean(FieldVoided, false),
		Refunded:         e.boolean(FieldRefunded, false),
		PromoCode:        e.strPtr(FieldPromoCode),
	}
}

// timestamp parses the order timestamp, substituting the current time when
// the value is absent or unparseable. Both substitutions are defects, not
// errors: the timestamp column itself resolving is the hard requirement.
func (n *Normalizer) timestamp(e extractor) (time.Time, bool) {
	raw, ok := e.raw(FieldTimestamp)
	if !ok {
		e.defects.Missing[FieldTimestamp]++
		return time.Now(), false
	}
	t, hasZone, ok := ParseTimestamp(raw)
	if !ok {
		e.defects.Invalid[FieldTimestamp]++
		return time.Now(), false
	}
	return t, hasZone
}

// orderDiscount prefers the order-level discount column, falling back to
// the line-level discount of the first row.
func orderDiscount(e extractor) float64 {
	if e.resolved(FieldOrderDiscount) {
		return e.float(FieldOrderDiscount, 0)
	}
	return e.float(FieldItemDiscount, 0)
}

// orderTotal prefers the order-level total column, falling back to the
// line-level total of the first row.
func orderTotal(e extractor) float64 {
	if e.resolved(FieldOrderTotal) {
		return e.float(FieldOrderTotal, 0)
	}
	return e.float(FieldItemTotal, 0)
}

func itemDiscount(e extractor) float64 {
	return e.float(FieldItemDiscount, 0)
}

func itemTotal(e extractor) float64 {
	return e.float(FieldItemTotal, 0)
}

// tenderType resolves the tender, or infers it from remaining numeric
// columns when no tender column resolves: the first column with a positive
// value whose name hints at credit, debit, or cash decides. Defaults to
// cash.
func (n *Normalizer) tenderType(e extractor, columns []string) string {
	if v, ok := e.raw(FieldTenderType); ok {
		return strings.ToLower(v)
	}
	if !e.resolved(FieldTenderType) {
		for _, col := range columns {
			v, ok := parseFloat(CleanCell(e.row[col]))
			if !ok || v <= 0 {
				continue
			}
			name := strings.ToLower(col)
			switch {
			case strings.Contains(name, "credit"):
				return "credit"
			case strings.Contains(name, "debit"):
				return "debit"
			case strings.Contains(name, "cash"):
				return "cash"
			}
		}
	}
	return "cash"
}

// titleCase capitalizes the first letter of each space-separated word and
// lowers the rest, matching the canonical category casing.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// productIndex deduplicates products by id. Within a single source the
// last definition wins; keep-first across sources is enforced by
// Dataset.Merge.
type productIndex struct {
	pos  map[string]int
	list []canonical.Product
}

func newProductIndex() *productIndex {
	return &productIndex{pos: make(map[string]int)}
}

func (p *productIndex) put(prod canonical.Product) {
	if i, ok := p.pos[prod.ProductID]; ok {
		p.list[i] = prod
		return
	}
	p.pos[prod.ProductID] = len(p.list)
	p.list = append(p.list, prod)
}

// staffIndex deduplicates staff keep-first by id.
type staffIndex struct {
	seen map[string]bool
	list []canonical.StaffMember
}

func newStaffIndex() *staffIndex {
	return &staffIndex{seen: make(map[string]bool)}
}

func (s *staffIndex) put(m canonical.StaffMember) {
	if s.seen[m.StaffID] {
		return
	}
	s.seen[m.StaffID] = true
	s.list = append(s.list, m)
}
