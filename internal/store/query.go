package store

import (
	"context"
	"fmt"
	"strings"
)

// Filters is the fixed filter vocabulary for aggregate queries. All set
// filters combine with AND; zero values mean "no filter". Values are always
// bound as query parameters, never interpolated into SQL text.
type Filters struct {
	StartDate string   `json:"start_date"` // inclusive, YYYY-MM-DD
	EndDate   string   `json:"end_date"`   // inclusive, YYYY-MM-DD
	Locations []string `json:"locations"`
	OrderType string   `json:"order_type"`
	Daypart   string   `json:"daypart"`
	Category  string   `json:"category"`
	StaffID   string   `json:"staff_id"`
}

// whereClause renders the filters as a parameterized WHERE clause over the
// fs/dt join, plus the bound argument list. Extra conditions are prepended
// verbatim and must not contain user input. An empty filter set with no
// extras yields an empty clause.
func (f Filters) whereClause(extra ...string) (string, []any) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds := append([]string{}, extra...)
	if f.StartDate != "" && f.EndDate != "" {
		conds = append(conds, fmt.Sprintf("dt.date BETWEEN %s::date AND %s::date", bind(f.StartDate), bind(f.EndDate)))
	}
	if len(f.Locations) > 0 {
		conds = append(conds, fmt.Sprintf("fs.location_id = ANY(%s)", bind(f.Locations)))
	}
	if f.OrderType != "" {
		conds = append(conds, fmt.Sprintf("fs.order_type = %s", bind(f.OrderType)))
	}
	if f.Daypart != "" {
		conds = append(conds, fmt.Sprintf("dt.daypart = %s", bind(f.Daypart)))
	}
	if f.Category != "" {
		conds = append(conds, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM fact_line_items fli
				JOIN dim_product dp ON fli.product_id = dp.product_id
				WHERE fli.order_id = fs.order_id AND dp.category = %s)`, bind(f.Category)))
	}
	if f.StaffID != "" {
		conds = append(conds, fmt.Sprintf("fs.staff_id = %s", bind(f.StaffID)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// KPISummary is the headline block: net sales exclude voided orders, and
// average order value is over non-voided orders only.
type KPISummary struct {
	NetSales    float64 `json:"net_sales"`
	TotalOrders int64   `json:"total_orders"`
	AvgOrder    float64 `json:"avg_order_value"`
	VoidCount   int64   `json:"void_count"`
	RefundCount int64   `json:"refund_count"`
}

type TenderMixRow struct {
	TenderType   string  `json:"tender_type"`
	Sales        float64 `json:"sales"`
	Transactions int64   `json:"transactions"`
}

type ProductRow struct {
	ProductName string  `json:"product_name"`
	Category    string  `json:"category"`
	UnitsSold   float64 `json:"units_sold"`
	NetSales    float64 `json:"net_sales"`
	TotalMargin float64 `json:"total_margin"`
}

type CategoryRow struct {
	Category    string  `json:"category"`
	NetSales    float64 `json:"net_sales"`
	TotalMargin float64 `json:"total_margin"`
}

type HourlyRow struct {
	Hour         int     `json:"hour"`
	Transactions int64   `json:"transactions"`
	Voids        int64   `json:"voids"`
	Discounted   int64   `json:"discounted"`
}

// Aggregates is the full result of one filtered query pass.
type Aggregates struct {
	KPIs        KPISummary     `json:"kpis"`
	TenderMix   []TenderMixRow `json:"tender_mix"`
	TopProducts []ProductRow   `json:"top_products"`
	CategoryMix []CategoryRow  `json:"category_mix"`
	Hourly      []HourlyRow    `json:"hourly"`
}

// Query runs the five aggregate queries under one filter set. A filter set
// matching zero rows returns zero-valued aggregates, not an error.
func (s *Store) Query(ctx context.Context, f Filters) (*Aggregates, error) {
	agg := &Aggregates{
		TenderMix:   []TenderMixRow{},
		TopProducts: []ProductRow{},
		CategoryMix: []CategoryRow{},
		Hourly:      []HourlyRow{},
	}

	if err := s.queryKPIs(ctx, f, agg); err != nil {
		return nil, err
	}
	if err := s.queryTenderMix(ctx, f, agg); err != nil {
		return nil, err
	}
	if err := s.queryTopProducts(ctx, f, agg); err != nil {
		return nil, err
	}
	if err := s.queryCategoryMix(ctx, f, agg); err != nil {
		return nil, err
	}
	if err := s.queryHourly(ctx, f, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

func (s *Store) queryKPIs(ctx context.Context, f Filters, agg *Aggregates) error {
	where, args := f.whereClause()
	sql := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(CASE WHEN NOT voided THEN total ELSE 0 END), 0) AS net_sales,
			COUNT(DISTINCT order_id) AS total_orders,
			COALESCE(AVG(CASE WHEN NOT voided THEN total ELSE NULL END), 0) AS avg_order_value,
			COALESCE(SUM(CASE WHEN voided THEN 1 ELSE 0 END), 0) AS void_count,
			COALESCE(SUM(CASE WHEN refunded THEN 1 ELSE 0 END), 0) AS refund_count
		FROM fact_sales fs
		JOIN dim_time dt ON fs.time_id = dt.time_id
		%s`, where)

	k := &agg.KPIs
	if err := s.db.QueryRow(ctx, sql, args...).Scan(
		&k.NetSales, &k.TotalOrders, &k.AvgOrder, &k.VoidCount, &k.RefundCount,
	); err != nil {
		return fmt.Errorf("query kpis: %w", err)
	}
	return nil
}

func (s *Store) queryTenderMix(ctx context.Context, f Filters, agg *Aggregates) error {
	where, args := f.whereClause()
	sql := fmt.Sprintf(`
		SELECT
			tender_type,
			COALESCE(SUM(CASE WHEN NOT voided THEN total ELSE 0 END), 0) AS sales,
			COUNT(*) AS transactions
		FROM fact_sales fs
		JOIN dim_time dt ON fs.time_id = dt.time_id
		%s
		GROUP BY tender_type
		ORDER BY sales DESC`, where)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("query tender mix: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r TenderMixRow
		if err := rows.Scan(&r.TenderType, &r.Sales, &r.Transactions); err != nil {
			return fmt.Errorf("scan tender mix: %w", err)
		}
		agg.TenderMix = append(agg.TenderMix, r)
	}
	return rows.Err()
}

func (s *Store) queryTopProducts(ctx context.Context, f Filters, agg *Aggregates) error {
	where, args := f.whereClause("NOT fs.voided")
	sql := fmt.Sprintf(`
		SELECT
			dp.product_name,
			dp.category,
			COALESCE(SUM(fli.quantity), 0) AS units_sold,
			COALESCE(SUM(fli.total), 0) AS net_sales,
			COALESCE(SUM(fli.margin), 0) AS total_margin
		FROM fact_line_items fli
		JOIN dim_product dp ON fli.product_id = dp.product_id
		JOIN fact_sales fs ON fli.order_id = fs.order_id
		JOIN dim_time dt ON fs.time_id = dt.time_id
		%s
		GROUP BY dp.product_name, dp.category
		ORDER BY net_sales DESC
		LIMIT 10`, where)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("query top products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r ProductRow
		if err := rows.Scan(&r.ProductName, &r.Category, &r.UnitsSold, &r.NetSales, &r.TotalMargin); err != nil {
			return fmt.Errorf("scan top products: %w", err)
		}
		agg.TopProducts = append(agg.TopProducts, r)
	}
	return rows.Err()
}

func (s *Store) queryCategoryMix(ctx context.Context, f Filters, agg *Aggregates) error {
	where, args := f.whereClause("NOT fs.voided")
	sql := fmt.Sprintf(`
		SELECT
			dp.category,
			COALESCE(SUM(fli.total), 0) AS net_sales,
			COALESCE(SUM(fli.margin), 0) AS total_margin
		FROM fact_line_items fli
		JOIN dim_product dp ON fli.product_id = dp.product_id
		JOIN fact_sales fs ON fli.order_id = fs.order_id
		JOIN dim_time dt ON fs.time_id = dt.time_id
		%s
		GROUP BY dp.category
		ORDER BY net_sales DESC`, where)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("query category mix: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r CategoryRow
		if err := rows.Scan(&r.Category, &r.NetSales, &r.TotalMargin); err != nil {
			return fmt.Errorf("scan category mix: %w", err)
		}
		agg.CategoryMix = append(agg.CategoryMix, r)
	}
	return rows.Err()
}

func (s *Store) queryHourly(ctx context.Context, f Filters, agg *Aggregates) error {
	where, args := f.whereClause()
	sql := fmt.Sprintf(`
		SELECT
			dt.hour,
			COUNT(*) AS transactions,
			COALESCE(SUM(CASE WHEN fs.voided THEN 1 ELSE 0 END), 0) AS voids,
			COALESCE(SUM(CASE WHEN fs.discount > 0 THEN 1 ELSE 0 END), 0) AS discounted
		FROM fact_sales fs
		JOIN dim_time dt ON fs.time_id = dt.time_id
		%s
		GROUP BY dt.hour
		ORDER BY dt.hour`, where)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("query hourly: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r HourlyRow
		if err := rows.Scan(&r.Hour, &r.Transactions, &r.Voids, &r.Discounted); err != nil {
			return fmt.Errorf("scan hourly: %w", err)
		}
		agg.Hourly = append(agg.Hourly, r)
	}
	return rows.Err()
}
