package ingest

// json.go ingests JSON sources. Two shapes are accepted:
//
//  1. Pre-normalized documents: {"orders": [...], "line_items": [...],
//     "products": [...], "staff": [...]}
//  2. API-style responses: {"receipts"|"orders"|"transactions": [...]} with
//     nested "items", possibly wrapped in a "data" envelope.
//
// JSON keys vary by vendor the same way CSV headers do, so each field is
// extracted through an ordered key-fallback chain with safe coercion.

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/canopydata/pospipe/internal/canonical"
)

// NormalizeJSON converts a JSON source into a canonical dataset.
func (n *Normalizer) NormalizeJSON(location string, r io.Reader) (canonical.Dataset, *Defects, error) {
	defects := NewDefects()

	var doc map[string]any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return canonical.Dataset{}, defects, fmt.Errorf("parse JSON: %w", err)
	}

	orders := objectList(doc, "orders", "receipts", "transactions")
	if orders == nil {
		if data, ok := doc["data"].(map[string]any); ok {
			orders = objectList(data, "orders", "receipts", "transactions")
		}
	}
	if len(orders) == 0 {
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		return canonical.Dataset{}, defects, &SchemaResolutionError{
			Missing:   []string{FieldOrderID, FieldTimestamp},
			Available: keys,
		}
	}

	loc := n.cfg.Location(location)

	var ds canonical.Dataset
	products := newProductIndex()
	staff := newStaffIndex()

	for _, obj := range orders {
		o := object{raw: obj, defects: defects}

		oid := o.str("", "id", "order_id", "receipt_id")
		if oid == "" {
			defects.Missing[FieldOrderID]++
			continue
		}

		ts, hasZone := jsonTimestamp(o, defects)

		order := canonical.Order{
			OrderID:          oid,
			LocationID:       loc.ID,
			LocationName:     loc.Name,
			StaffID:          o.str("unknown", "staff_id", "employee_id", "cashier_id"),
			Timestamp:        ts,
			TimestampHasZone: hasZone,
			OrderType:        o.str("in-store", "order_type", "type"),
			IsMedical:        o.boolean(false, "is_medical"),
			Subtotal:         o.float(0, "subtotal"),
			ExciseTax:        o.float(0, "excise_tax"),
			StateTax:         o.float(0, "state_tax"),
			LocalTax:         o.float(0, "local_tax"),
			TotalTax:         o.float(0, "total_tax", "tax"),
			Discount:         o.float(0, "discount"),
			Total:            o.float(0, "total"),
			TenderType:       strings.ToLower(o.str("cash", "tender_type", "payment_type")),
			Voided:           o.boolean(false, "voided"),
			Refunded:         o.boolean(false, "refunded"),
			PromoCode:        o.strPtr("promo_code"),
		}
		ds.Orders = append(ds.Orders, order)

		for _, itemObj := range objectList(obj, "items", "line_items") {
			it := object{raw: itemObj, defects: defects}

			// Fallback ids carry the order id to stay distinct across sources.
			productID := it.str(fmt.Sprintf("%s_prod_%d", oid, len(ds.LineItems)), "product_id", "sku", "id")
			item := canonical.LineItem{
				LineID:      it.str(fmt.Sprintf("%s_line_%d", oid, len(ds.LineItems)), "id", "line_id"),
				OrderID:     oid,
				ProductID:   productID,
				ProductName: strings.ToLower(it.str("unknown", "name", "product_name")),
				Category:    titleCase(it.str("Other", "category")),
				Quantity:    it.float(1, "quantity"),
				UnitPrice:   it.float(0, "unit_price", "price"),
				UnitCost:    it.float(0, "unit_cost", "cost"),
				Discount:    it.float(0, "discount"),
				Total:       it.float(0, "total"),
			}
			ds.LineItems = append(ds.LineItems, item)

			products.put(canonical.Product{
				ProductID:   productID,
				Name:        item.ProductName,
				Category:    item.Category,
				Subcategory: titleCase(it.str("", "subcategory")),
				UnitCost:    item.UnitCost,
				UnitPrice:   item.UnitPrice,
			})
		}

		if order.StaffID != "" && order.StaffID != "unknown" {
			staff.put(canonical.StaffMember{
				StaffID: order.StaffID,
				Name:    o.str("Staff_"+order.StaffID, "staff_name", "employee_name"),
			})
		}
	}

	// Pre-normalized documents carry line items, products, and staff as
	// top-level lists instead of nesting items under each order.
	for _, itemObj := range objectList(doc, "line_items") {
		it := object{raw: itemObj, defects: defects}
		oid := it.str("", "order_id")
		item := canonical.LineItem{
			LineID:      it.str(fmt.Sprintf("%s_line_%d", oid, len(ds.LineItems)), "line_id", "id"),
			OrderID:     oid,
			ProductID:   it.str("", "product_id", "sku"),
			ProductName: strings.ToLower(it.str("unknown", "product_name", "name")),
			Category:    titleCase(it.str("Other", "category")),
			Quantity:    it.float(1, "quantity"),
			UnitPrice:   it.float(0, "unit_price", "price"),
			UnitCost:    it.float(0, "unit_cost", "cost"),
			Discount:    it.float(0, "discount"),
			Total:       it.float(0, "total"),
		}
		ds.LineItems = append(ds.LineItems, item)
	}
	for _, prodObj := range objectList(doc, "products") {
		p := object{raw: prodObj, defects: defects}
		products.put(canonical.Product{
			ProductID:   p.str("", "product_id", "sku"),
			Name:        strings.ToLower(p.str("unknown", "name", "product_name")),
			Category:    titleCase(p.str("Other", "category")),
			Subcategory: titleCase(p.str("", "subcategory")),
			UnitCost:    p.float(0, "unit_cost"),
			UnitPrice:   p.float(0, "unit_price"),
		})
	}
	for _, staffObj := range objectList(doc, "staff") {
		s := object{raw: staffObj, defects: defects}
		id := s.str("", "staff_id", "employee_id")
		if id == "" {
			continue
		}
		staff.put(canonical.StaffMember{
			StaffID: id,
			Name:    s.str("Staff_"+id, "name", "staff_name"),
		})
	}

	ds.Products = products.list
	ds.Staff = staff.list

	if ds.Empty() {
		return canonical.Dataset{}, defects, &ErrEmptySource{Location: location}
	}
	return ds, defects, nil
}

// objectList extracts the first present list of JSON objects under any of
// the given keys.
func objectList(m map[string]any, keys ...string) []map[string]any {
	for _, key := range keys {
		raw, ok := m[key].([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(raw))
		for _, v := range raw {
			if obj, ok := v.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	}
	return nil
}

// jsonTimestamp extracts and parses the order timestamp from the usual keys.
func jsonTimestamp(o object, defects *Defects) (time.Time, bool) {
	raw := o.str("", "timestamp", "created_at", "sale_time")
	if raw == "" {
		defects.Missing[FieldTimestamp]++
		return time.Now(), false
	}
	t, hasZone, ok := ParseTimestamp(raw)
	if !ok {
		defects.Invalid[FieldTimestamp]++
		return time.Now(), false
	}
	return t, hasZone
}

// object wraps a decoded JSON object with key-fallback typed getters.
type object struct {
	raw     map[string]any
	defects *Defects
}

func (o object) lookup(keys []string) (any, bool) {
	for _, key := range keys {
		if v, ok := o.raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (o object) str(def string, keys ...string) string {
	v, ok := o.lookup(keys)
	if !ok {
		return def
	}
	switch s := v.(type) {
	case string:
		s2 := CleanCell(s)
		if absent(s2) {
			return def
		}
		return s2
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", s), ".0")
	default:
		return def
	}
}

func (o object) strPtr(keys ...string) *string {
	s := o.str("", keys...)
	if s == "" {
		return nil
	}
	return &s
}

func (o object) float(def float64, keys ...string) float64 {
	v, ok := o.lookup(keys)
	if !ok {
		return def
	}
	switch f := v.(type) {
	case float64:
		return f
	case string:
		if parsed, ok := parseFloat(CleanCell(f)); ok {
			return parsed
		}
		o.defects.Invalid[keys[0]]++
		return def
	default:
		return def
	}
}

func (o object) boolean(def bool, keys ...string) bool {
	v, ok := o.lookup(keys)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, ok := parseBool(CleanCell(b)); ok {
			return parsed
		}
		o.defects.Invalid[keys[0]]++
		return def
	default:
		return def
	}
}
