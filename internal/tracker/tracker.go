// Package tracker runs the price check loop: load a product page, run
// the extraction engine, persist the observed price, and report what
// happened as events.
package tracker

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/pricewatch/internal/extract"
	"github.com/sells-group/pricewatch/internal/fetch"
	"github.com/sells-group/pricewatch/internal/htmldoc"
	"github.com/sells-group/pricewatch/internal/model"
	"github.com/sells-group/pricewatch/internal/store"
)

// PageLoader fetches one product page. *fetch.Loader satisfies it; tests
// supply a stub.
type PageLoader interface {
	Fetch(ctx context.Context, url string) (*htmldoc.Document, error)
}

// Options configures a Tracker.
type Options struct {
	// MaxConcurrent bounds concurrent page checks in RefreshAll.
	MaxConcurrent int
	// Events, when non-nil, receives one TrackEvent per state change.
	// Sends block, so the consumer must keep draining.
	Events chan<- model.TrackEvent
}

// Tracker checks tracked products for price changes.
type Tracker struct {
	store         store.Store
	loader        PageLoader
	engine        *extract.Engine
	maxConcurrent int
	events        chan<- model.TrackEvent
}

// New creates a Tracker.
func New(s store.Store, loader PageLoader, opts Options) *Tracker {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 5
	}
	return &Tracker{
		store:         s,
		loader:        loader,
		engine:        extract.NewEngine(),
		maxConcurrent: opts.MaxConcurrent,
		events:        opts.Events,
	}
}

// Summary aggregates the outcome of a RefreshAll pass.
type Summary struct {
	Checked   int `json:"checked"`
	Updated   int `json:"updated"`
	Ambiguous int `json:"ambiguous"`
	Failed    int `json:"failed"`
}

// Check runs one price check for a product. The extraction outcome is
// always returned; the error covers storage failures only.
func (t *Tracker) Check(ctx context.Context, p *model.Product) (extract.Result, error) {
	t.emit(model.TrackEvent{Kind: model.EventUpdating, ProductID: p.ID, URL: p.URL})

	doc, err := t.loader.Fetch(ctx, p.URL)
	if err != nil {
		reason := extract.FailInvalidResponse
		if eris.Is(err, fetch.ErrNoResponse) {
			reason = extract.FailNoResponse
		}
		zap.L().Warn("tracker: page load failed",
			zap.String("url", p.URL),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		t.emit(model.TrackEvent{Kind: model.EventLoadFailed, ProductID: p.ID, URL: p.URL, Reason: reason})
		return extract.Failed(reason), t.touch(ctx, p)
	}

	var res extract.Result
	if p.ManualReady() {
		res = t.engine.Manual(doc, p.Name, p.LocaleTag, p.Selector)
	} else {
		res = t.engine.Auto(doc)
	}

	switch res.Status {
	case extract.StatusSuccess:
		point, err := t.recordSuccess(ctx, p, res)
		if err != nil {
			return res, err
		}
		t.emit(model.TrackEvent{Kind: model.EventUpdated, ProductID: p.ID, URL: p.URL, Point: point})
	case extract.StatusAmbiguous:
		t.adopt(p, res)
		if err := t.touch(ctx, p); err != nil {
			return res, err
		}
		t.emit(model.TrackEvent{Kind: model.EventAmbiguous, ProductID: p.ID, URL: p.URL, Candidates: res.Candidates})
	case extract.StatusFailed:
		if err := t.touch(ctx, p); err != nil {
			return res, err
		}
		t.emit(model.TrackEvent{Kind: model.EventTrackingFailed, ProductID: p.ID, URL: p.URL, Reason: res.Reason})
	}
	return res, nil
}

// RefreshAll checks every tracked product with bounded concurrency.
func (t *Tracker) RefreshAll(ctx context.Context) (Summary, error) {
	products, err := t.store.ListProducts(ctx)
	if err != nil {
		return Summary{}, eris.Wrap(err, "tracker: list products")
	}

	results := make([]extract.Result, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.maxConcurrent)
	for i := range products {
		i := i
		g.Go(func() error {
			res, err := t.Check(gctx, &products[i])
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var sum Summary
	sum.Checked = len(products)
	for _, res := range results {
		switch res.Status {
		case extract.StatusSuccess:
			sum.Updated++
		case extract.StatusAmbiguous:
			sum.Ambiguous++
		case extract.StatusFailed:
			sum.Failed++
		}
	}
	zap.L().Info("tracker: refresh complete",
		zap.Int("checked", sum.Checked),
		zap.Int("updated", sum.Updated),
		zap.Int("ambiguous", sum.Ambiguous),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

func (t *Tracker) recordSuccess(ctx context.Context, p *model.Product, res extract.Result) (*model.PricePoint, error) {
	t.adopt(p, res)
	if err := t.touch(ctx, p); err != nil {
		return nil, err
	}

	point, err := t.store.RecordPrice(ctx, model.PricePoint{
		ProductID: p.ID,
		Amount:    res.Price.Price.Amount,
		Currency:  currencyFor(res),
		Source:    res.Price.Source,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "tracker: record price for %s", p.ID)
	}
	return point, nil
}

// adopt copies auto-detected metadata onto the product. Pinned products
// keep their manual parameters.
func (t *Tracker) adopt(p *model.Product, res extract.Result) {
	if p.Pinned {
		return
	}
	if res.Name != "" {
		p.Name = res.Name
	}
	if res.Title != "" {
		p.Title = res.Title
	}
	if res.Locale != nil {
		p.LocaleTag = res.Locale.Tag
	}
}

func (t *Tracker) touch(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	p.LastCheckedAt = &now
	if err := t.store.UpdateProduct(ctx, p); err != nil {
		return eris.Wrapf(err, "tracker: update product %s", p.ID)
	}
	return nil
}

func (t *Tracker) emit(ev model.TrackEvent) {
	if t.events != nil {
		t.events <- ev
	}
}

// currencyFor picks the recorded currency symbol: the one attached to
// the winning candidate, else the locale default.
func currencyFor(res extract.Result) string {
	if res.Price != nil && res.Price.Price.CurrencySymbol != "" {
		return res.Price.Price.CurrencySymbol
	}
	if res.Locale != nil {
		return res.Locale.CurrencySymbol
	}
	return ""
}
