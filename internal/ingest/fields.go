package ingest

import (
	"github.com/canopydata/pospipe/internal/config"
	"github.com/canopydata/pospipe/internal/resolve"
)

// Canonical field names used throughout ingestion.
const (
	FieldOrderID       = "order_id"
	FieldTimestamp     = "timestamp"
	FieldStaffID       = "staff_id"
	FieldStaffName     = "staff_name"
	FieldLineID        = "line_id"
	FieldProductID     = "product_id"
	FieldProductName   = "product_name"
	FieldCategory      = "category"
	FieldSubcategory   = "subcategory"
	FieldQuantity      = "quantity"
	FieldUnitPrice     = "unit_price"
	FieldUnitCost      = "unit_cost"
	FieldItemDiscount  = "item_discount"
	FieldOrderDiscount = "order_discount"
	FieldItemTotal     = "item_total"
	FieldOrderTotal    = "order_total"
	FieldOrderSubtotal = "order_subtotal"
	FieldExciseTax     = "excise_tax"
	FieldStateTax      = "state_tax"
	FieldLocalTax      = "local_tax"
	FieldTotalTax      = "total_tax"
	FieldOrderType     = "order_type"
	FieldIsMedical     = "is_medical"
	FieldTenderType    = "tender_type"
	FieldVoided        = "voided"
	FieldRefunded      = "refunded"
	FieldPromoCode     = "promo_code"
)

// ResolutionTable builds the typed resolution table for POS transaction
// exports. Alias lists are ordered most preferred first; only the
// transaction identifier and timestamp are required, everything else has a
// documented fallback.
func ResolutionTable(opts config.ResolverOpts) *resolve.Table {
	return &resolve.Table{
		Fuzzy: opts.Fuzzy,
		Floor: opts.SimilarityFloor,
		Fields: []resolve.Field{
			{Canonical: FieldOrderID, Required: true, Aliases: []string{
				"transaction_id", "order_id", "transactionid", "receipt_id", "receiptid", "id",
			}},
			{Canonical: FieldTimestamp, Required: true, Aliases: []string{
				"transaction_date", "timestamp", "transactiondate", "created_at", "date", "datetime", "sale_time",
			}},
			{Canonical: FieldStaffID, Aliases: []string{
				"employee_id", "staff_id", "employeeid", "cashier_id", "cashierid", "responsible", "user_id",
			}},
			{Canonical: FieldStaffName, Aliases: []string{
				"employee_name", "staff_name", "employeename", "cashier_name",
			}},
			{Canonical: FieldLineID, Aliases: []string{
				"line_id", "lineid", "line_item_id",
			}},
			{Canonical: FieldProductID, Aliases: []string{
				"product_id", "productid", "sku", "item_id",
			}},
			{Canonical: FieldProductName, Aliases: []string{
				"product_name", "productname", "item_name", "item",
			}},
			{Canonical: FieldCategory, Aliases: []string{
				"category", "product_category", "item_category",
			}},
			{Canonical: FieldSubcategory, Aliases: []string{
				"subcategory", "sub_category",
			}},
			{Canonical: FieldQuantity, Aliases: []string{
				"quantity", "qty", "item_quantity",
			}},
			{Canonical: FieldUnitPrice, Aliases: []string{
				"unit_price", "unitprice", "price", "item_price",
			}},
			{Canonical: FieldUnitCost, Aliases: []string{
				"unit_cost", "unitcost", "cost", "item_cost",
			}},
			{Canonical: FieldItemDiscount, Aliases: []string{
				"item_discount", "discount", "total_discount", "totaldiscount",
			}},
			{Canonical: FieldOrderDiscount, Aliases: []string{
				"order_discount", "total_discount",
			}},
			{Canonical: FieldItemTotal, Aliases: []string{
				"item_total", "total", "amount", "totalprice",
			}},
			{Canonical: FieldOrderTotal, Aliases: []string{
				"order_total", "total_amount",
			}},
			{Canonical: FieldOrderSubtotal, Aliases: []string{
				"order_subtotal", "subtotal", "sub_total", "beforetax",
			}},
			{Canonical: FieldExciseTax, Aliases: []string{
				"excise_tax", "excisetax",
			}},
			{Canonical: FieldStateTax, Aliases: []string{
				"state_tax", "statetax",
			}},
			{Canonical: FieldLocalTax, Aliases: []string{
				"local_tax", "localtax",
			}},
			{Canonical: FieldTotalTax, Aliases: []string{
				"total_tax", "totaltax", "taxes", "tax",
			}},
			{Canonical: FieldOrderType, Aliases: []string{
				"order_type", "ordertype", "channel",
			}},
			{Canonical: FieldIsMedical, Aliases: []string{
				"is_medical", "ismedical", "medical",
			}},
			{Canonical: FieldTenderType, Aliases: []string{
				"tender_type", "tendertype", "payment_type", "payment_method",
			}},
			{Canonical: FieldVoided, Aliases: []string{
				"voided", "is_void", "isvoid", "void",
			}},
			{Canonical: FieldRefunded, Aliases: []string{
				"refunded", "is_refund", "isrefund", "refund",
			}},
			{Canonical: FieldPromoCode, Aliases: []string{
				"promo_code", "promocode", "coupon", "promo",
			}},
		},
	}
}
