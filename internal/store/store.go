// Package store persists tracked products and their price history.
package store

import (
	"context"
	"time"

	"github.com/sells-group/pricewatch/internal/model"
)

// HistoryFilter specifies criteria for querying price history.
type HistoryFilter struct {
	Since time.Time `json:"since,omitempty"`
	Limit int       `json:"limit,omitempty"`
}

// Store defines the persistence interface for the tracker.
type Store interface {
	// Products
	CreateProduct(ctx context.Context, url string) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id string) error

	// Price history
	RecordPrice(ctx context.Context, point model.PricePoint) (*model.PricePoint, error)
	PriceHistory(ctx context.Context, productID string, filter HistoryFilter) ([]model.PricePoint, error)
	LatestPrice(ctx context.Context, productID string) (*model.PricePoint, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
