package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/sells-group/pricewatch/internal/extract"
	"github.com/sells-group/pricewatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	id              TEXT PRIMARY KEY,
	url             TEXT NOT NULL UNIQUE,
	name            TEXT NOT NULL DEFAULT '',
	title           TEXT NOT NULL DEFAULT '',
	locale_tag      TEXT NOT NULL DEFAULT '',
	selector        TEXT NOT NULL DEFAULT '',
	pinned          INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	last_checked_at DATETIME
);

CREATE TABLE IF NOT EXISTS price_points (
	id         TEXT PRIMARY KEY,
	product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	amount     TEXT NOT NULL,
	currency   TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL,
	checked_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_price_points_product_id ON price_points(product_id);
CREATE INDEX IF NOT EXISTS idx_price_points_checked_at ON price_points(checked_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProduct(ctx context.Context, url string) (*model.Product, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, url, created_at) VALUES (?, ?, ?)`,
		id, url, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert product %s", url)
	}
	return &model.Product{ID: id, URL: url, CreatedAt: now}, nil
}

const productColumns = `id, url, name, title, locale_tag, selector, pinned, created_at, last_checked_at`

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, eris.Wrap(rows.Err(), "sqlite: list products iterate")
}

func (s *SQLiteStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, title = ?, locale_tag = ?, selector = ?, pinned = ?, last_checked_at = ?
		 WHERE id = ?`,
		p.Name, p.Title, p.LocaleTag, p.Selector, boolToInt(p.Pinned), p.LastCheckedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update product %s", p.ID)
	}
	return checkRowsAffected(res, "product", p.ID)
}

func (s *SQLiteStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete product %s", id)
	}
	return checkRowsAffected(res, "product", id)
}

func (s *SQLiteStore) RecordPrice(ctx context.Context, point model.PricePoint) (*model.PricePoint, error) {
	point.ID = uuid.New().String()
	if point.CheckedAt.IsZero() {
		point.CheckedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_points (id, product_id, amount, currency, source, checked_at) VALUES (?, ?, ?, ?, ?, ?)`,
		point.ID, point.ProductID, point.Amount.String(), point.Currency, string(point.Source), point.CheckedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert price point for %s", point.ProductID)
	}
	return &point, nil
}

func (s *SQLiteStore) PriceHistory(ctx context.Context, productID string, filter HistoryFilter) ([]model.PricePoint, error) {
	query := `SELECT id, product_id, amount, currency, source, checked_at FROM price_points WHERE product_id = ?`
	args := []any{productID}

	if !filter.Since.IsZero() {
		query += ` AND checked_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY checked_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: price history")
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		p, err := scanPricePoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, *p)
	}
	return points, eris.Wrap(rows.Err(), "sqlite: price history iterate")
}

func (s *SQLiteStore) LatestPrice(ctx context.Context, productID string) (*model.PricePoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, product_id, amount, currency, source, checked_at FROM price_points
		 WHERE product_id = ? ORDER BY checked_at DESC LIMIT 1`,
		productID,
	)
	p, err := scanPricePoint(row)
	if err != nil && eris.Is(err, errNotFound) {
		return nil, nil
	}
	return p, err
}

// helpers

var errNotFound = eris.New("not found")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProduct(row scannable) (*model.Product, error) {
	var p model.Product
	var pinned int
	var lastChecked sql.NullTime

	err := row.Scan(&p.ID, &p.URL, &p.Name, &p.Title, &p.LocaleTag, &p.Selector, &pinned, &p.CreatedAt, &lastChecked)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(errNotFound, "product")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan product")
	}
	p.Pinned = pinned != 0
	if lastChecked.Valid {
		t := lastChecked.Time
		p.LastCheckedAt = &t
	}
	return &p, nil
}

func scanPricePoint(row scannable) (*model.PricePoint, error) {
	var p model.PricePoint
	var amount, source string

	err := row.Scan(&p.ID, &p.ProductID, &amount, &p.Currency, &source, &p.CheckedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(errNotFound, "price point")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan price point")
	}
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse amount %q", amount)
	}
	p.Source = extract.Source(source)
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
