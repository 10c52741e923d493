package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalizeJSON_APIShape(t *testing.T) {
	doc := `{
		"receipts": [
			{
				"receipt_id": "R1",
				"created_at": "2024-03-15T10:30:00Z",
				"employee_id": "E9",
				"subtotal": 30.0,
				"total": 30.0,
				"payment_type": "Debit",
				"items": [
					{"sku": "P1", "name": "Kombucha", "category": "drinks", "quantity": 2, "price": 15.0}
				]
			}
		]
	}`

	n := newTestNormalizer(t)
	ds, _, err := n.NormalizeJSON("Lakeview", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("NormalizeJSON() error = %v", err)
	}

	if len(ds.Orders) != 1 || len(ds.LineItems) != 1 {
		t.Fatalf("orders = %d, line items = %d, want 1 and 1", len(ds.Orders), len(ds.LineItems))
	}

	o := ds.Orders[0]
	if o.OrderID != "R1" {
		t.Errorf("OrderID = %q, want R1", o.OrderID)
	}
	if !o.TimestampHasZone {
		t.Error("TimestampHasZone = false for a zoned timestamp")
	}
	want := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	if !o.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", o.Timestamp, want)
	}
	if o.TenderType != "debit" {
		t.Errorf("TenderType = %q, want debit", o.TenderType)
	}

	it := ds.LineItems[0]
	if it.ProductID != "P1" || it.OrderID != "R1" {
		t.Errorf("line item = %+v, want product P1 on order R1", it)
	}
	if it.UnitPrice != 15 {
		t.Errorf("UnitPrice = %v, want 15", it.UnitPrice)
	}

	if len(ds.Staff) != 1 || ds.Staff[0].StaffID != "E9" {
		t.Errorf("staff = %+v, want one member E9", ds.Staff)
	}
}

func TestNormalizeJSON_SynthesizedIDsCarryOrderID(t *testing.T) {
	doc := `{
		"orders": [
			{"order_id": "O1", "timestamp": "2024-03-15T10:00:00Z", "total": 7.0,
			 "items": [{"name": "Espresso", "price": 4.0}, {"name": "Bagel", "price": 3.0}]}
		]
	}`

	n := newTestNormalizer(t)
	ds, _, err := n.NormalizeJSON("Downtown", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("NormalizeJSON() error = %v", err)
	}
	if len(ds.LineItems) != 2 {
		t.Fatalf("line items = %d, want 2", len(ds.LineItems))
	}

	// Items with no id fields still get ids unique across merged sources.
	if got := ds.LineItems[0].LineID; got != "O1_line_0" {
		t.Errorf("LineID = %q, want O1_line_0", got)
	}
	if got := ds.LineItems[1].LineID; got != "O1_line_1" {
		t.Errorf("LineID = %q, want O1_line_1", got)
	}
	if got := ds.LineItems[0].ProductID; got != "O1_prod_0" {
		t.Errorf("ProductID = %q, want O1_prod_0", got)
	}
}

func TestNormalizeJSON_DataEnvelope(t *testing.T) {
	doc := `{"data": {"orders": [{"id": "O1", "timestamp": "2024-03-15 09:00:00", "total": 12.5}]}}`

	n := newTestNormalizer(t)
	ds, _, err := n.NormalizeJSON("Downtown", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("NormalizeJSON() error = %v", err)
	}
	if len(ds.Orders) != 1 || ds.Orders[0].OrderID != "O1" {
		t.Fatalf("orders = %+v, want one order O1", ds.Orders)
	}
	if ds.Orders[0].TimestampHasZone {
		t.Error("TimestampHasZone = true for a naive timestamp")
	}
}

func TestNormalizeJSON_PreNormalizedLists(t *testing.T) {
	doc := `{
		"orders": [{"order_id": "O1", "timestamp": "2024-03-15T10:00:00Z", "total": 20.0}],
		"line_items": [{"line_id": "L1", "order_id": "O1", "product_id": "P1", "product_name": "Tea", "total": 20.0}],
		"products": [{"product_id": "P1", "name": "Tea", "category": "drinks", "unit_price": 10.0}],
		"staff": [{"staff_id": "E1", "name": "Alice"}]
	}`

	n := newTestNormalizer(t)
	ds, _, err := n.NormalizeJSON("Downtown", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("NormalizeJSON() error = %v", err)
	}
	if len(ds.LineItems) != 1 || ds.LineItems[0].LineID != "L1" {
		t.Errorf("line items = %+v, want L1", ds.LineItems)
	}
	if len(ds.Products) != 1 || ds.Products[0].Category != "Drinks" {
		t.Errorf("products = %+v, want one title-cased product", ds.Products)
	}
	if len(ds.Staff) != 1 || ds.Staff[0].Name != "Alice" {
		t.Errorf("staff = %+v, want Alice", ds.Staff)
	}
}

func TestNormalizeJSON_NoOrderList(t *testing.T) {
	n := newTestNormalizer(t)
	_, _, err := n.NormalizeJSON("Downtown", strings.NewReader(`{"widgets": []}`))

	var resErr *SchemaResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("NormalizeJSON() error = %v, want SchemaResolutionError", err)
	}
}
