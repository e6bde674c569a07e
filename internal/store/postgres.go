package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/pricewatch/internal/extract"
	"github.com/sells-group/pricewatch/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	url             TEXT NOT NULL UNIQUE,
	name            TEXT NOT NULL DEFAULT '',
	title           TEXT NOT NULL DEFAULT '',
	locale_tag      TEXT NOT NULL DEFAULT '',
	selector        TEXT NOT NULL DEFAULT '',
	pinned          BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_checked_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS price_points (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	amount     NUMERIC(14,2) NOT NULL,
	currency   TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL,
	checked_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_price_points_product_id ON price_points(product_id);
CREATE INDEX IF NOT EXISTS idx_price_points_checked_at ON price_points(checked_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, url string) (*model.Product, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO products (id, url, created_at) VALUES ($1, $2, $3)`,
		id, url, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert product %s", url)
	}
	return &model.Product{ID: id, URL: url, CreatedAt: now}, nil
}

const pgProductColumns = `id, url, name, title, locale_tag, selector, pinned, created_at, last_checked_at`

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgProductColumns+` FROM products WHERE id = $1`, id)
	return scanPgProduct(row)
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgProductColumns+` FROM products ORDER BY created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanPgProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, eris.Wrap(rows.Err(), "postgres: list products iterate")
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET name = $1, title = $2, locale_tag = $3, selector = $4, pinned = $5, last_checked_at = $6
		 WHERE id = $7`,
		p.Name, p.Title, p.LocaleTag, p.Selector, p.Pinned, p.LastCheckedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update product %s", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("product not found: %s", p.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete product %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("product not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) RecordPrice(ctx context.Context, point model.PricePoint) (*model.PricePoint, error) {
	point.ID = uuid.New().String()
	if point.CheckedAt.IsZero() {
		point.CheckedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO price_points (id, product_id, amount, currency, source, checked_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		point.ID, point.ProductID, point.Amount.String(), point.Currency, string(point.Source), point.CheckedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert price point for %s", point.ProductID)
	}
	return &point, nil
}

func (s *PostgresStore) PriceHistory(ctx context.Context, productID string, filter HistoryFilter) ([]model.PricePoint, error) {
	query := `SELECT id, product_id, amount, currency, source, checked_at FROM price_points WHERE product_id = $1`
	args := []any{productID}

	if !filter.Since.IsZero() {
		args = append(args, filter.Since.UTC())
		query += ` AND checked_at >= $2`
	}
	query += ` ORDER BY checked_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: price history")
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		p, err := scanPgPricePoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, *p)
	}
	return points, eris.Wrap(rows.Err(), "postgres: price history iterate")
}

func (s *PostgresStore) LatestPrice(ctx context.Context, productID string) (*model.PricePoint, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, product_id, amount, currency, source, checked_at FROM price_points
		 WHERE product_id = $1 ORDER BY checked_at DESC LIMIT 1`,
		productID,
	)
	p, err := scanPgPricePoint(row)
	if err != nil && eris.Is(err, errNotFound) {
		return nil, nil
	}
	return p, err
}

// helpers

func scanPgProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	var lastChecked *time.Time

	err := row.Scan(&p.ID, &p.URL, &p.Name, &p.Title, &p.LocaleTag, &p.Selector, &p.Pinned, &p.CreatedAt, &lastChecked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(errNotFound, "product")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan product")
	}
	p.LastCheckedAt = lastChecked
	return &p, nil
}

func scanPgPricePoint(row pgx.Row) (*model.PricePoint, error) {
	var p model.PricePoint
	var amount, source string

	err := row.Scan(&p.ID, &p.ProductID, &amount, &p.Currency, &source, &p.CheckedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(errNotFound, "price point")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan price point")
	}
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: parse amount %q", amount)
	}
	p.Source = extract.Source(source)
	return &p, nil
}
