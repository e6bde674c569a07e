// Package model defines the persisted types of the price tracker.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sells-group/pricewatch/internal/extract"
)

// Product is one tracked product URL. Name, LocaleTag, and Selector are
// filled either by auto-detection on first check or pinned manually; when
// all three are pinned the manual pipeline is used on every refresh.
type Product struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Name          string     `json:"name,omitempty"`
	Title         string     `json:"title,omitempty"`
	LocaleTag     string     `json:"locale_tag,omitempty"`
	Selector      string     `json:"selector,omitempty"`
	Pinned        bool       `json:"pinned"`
	CreatedAt     time.Time  `json:"created_at"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

// ManualReady reports whether the product carries everything the manual
// extraction pipeline needs.
func (p Product) ManualReady() bool {
	return p.Pinned && p.Name != "" && p.LocaleTag != "" && p.Selector != ""
}

// PricePoint is one recorded price observation.
type PricePoint struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
	Source    extract.Source  `json:"source"`
	CheckedAt time.Time       `json:"checked_at"`
}

// EventKind tags a tracking event.
type EventKind string

const (
	EventUpdating       EventKind = "updating"
	EventUpdated        EventKind = "updated"
	EventAmbiguous      EventKind = "ambiguous"
	EventLoadFailed     EventKind = "load_failed"
	EventTrackingFailed EventKind = "tracking_failed"
)

// TrackEvent is one message on the tracker's event channel.
type TrackEvent struct {
	Kind      EventKind          `json:"kind"`
	ProductID string             `json:"product_id"`
	URL       string             `json:"url"`
	Reason    extract.FailReason `json:"reason,omitempty"`
	Point     *PricePoint        `json:"point,omitempty"`
	// Candidates carries the ranked groups of an ambiguous result so the
	// user can pin a selector.
	Candidates []extract.PriceGroup `json:"candidates,omitempty"`
}
