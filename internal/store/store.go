// Package store materializes normalized datasets into a Postgres star
// schema (four dimension tables, two fact tables) and serves parameterized
// aggregation queries over it. A load is a full atomic replace: delete
// everything, insert the new dataset, all in one transaction, so readers
// never observe a partial load.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the slice of a pgx pool the store needs. Satisfied by
// *pgxpool.Pool; tests substitute an in-memory fake.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Store owns the materialized star schema.
type Store struct {
	db DB
}

// New builds a store on an existing database handle.
func New(db DB) *Store {
	return &Store{db: db}
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS dim_location (
		location_id   TEXT PRIMARY KEY,
		location_name TEXT NOT NULL,
		timezone      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_staff (
		staff_id   TEXT PRIMARY KEY,
		staff_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_product (
		product_id   TEXT PRIMARY KEY,
		product_name TEXT NOT NULL,
		category     TEXT NOT NULL,
		subcategory  TEXT NOT NULL,
		unit_cost    NUMERIC(10,2) NOT NULL,
		unit_price   NUMERIC(10,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_time (
		time_id     TEXT PRIMARY KEY,
		ts          TIMESTAMPTZ NOT NULL,
		date        DATE NOT NULL,
		hour        INTEGER NOT NULL,
		daypart     TEXT NOT NULL,
		day_of_week TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fact_sales (
		order_id      TEXT PRIMARY KEY,
		location_id   TEXT NOT NULL,
		staff_id      TEXT NOT NULL,
		time_id       TEXT NOT NULL,
		order_type    TEXT NOT NULL,
		is_medical    BOOLEAN NOT NULL,
		subtotal      NUMERIC(10,2) NOT NULL,
		excise_tax    NUMERIC(10,2) NOT NULL,
		state_tax     NUMERIC(10,2) NOT NULL,
		local_tax     NUMERIC(10,2) NOT NULL,
		total_tax     NUMERIC(10,2) NOT NULL,
		discount      NUMERIC(10,2) NOT NULL,
		discount_rate NUMERIC(5,2) NOT NULL,
		total         NUMERIC(10,2) NOT NULL,
		tender_type   TEXT NOT NULL,
		voided        BOOLEAN NOT NULL,
		refunded      BOOLEAN NOT NULL,
		promo_code    TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS fact_line_items (
		line_id    TEXT PRIMARY KEY,
		order_id   TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity   NUMERIC(10,2) NOT NULL,
		unit_price NUMERIC(10,2) NOT NULL,
		unit_cost  NUMERIC(10,2) NOT NULL,
		discount   NUMERIC(10,2) NOT NULL,
		total      NUMERIC(10,2) NOT NULL,
		margin     NUMERIC(10,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fact_sales_time ON fact_sales (time_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fact_sales_location ON fact_sales (location_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fact_line_items_order ON fact_line_items (order_id)`,
}

// CreateSchema creates the star schema tables if they do not exist.
// Idempotent; safe to run on every startup.
func (s *Store) CreateSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
