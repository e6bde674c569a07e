package tracker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pricewatch/internal/extract"
	"github.com/sells-group/pricewatch/internal/fetch"
	"github.com/sells-group/pricewatch/internal/htmldoc"
	"github.com/sells-group/pricewatch/internal/model"
	"github.com/sells-group/pricewatch/internal/store"
)

const productPage = `<html lang="en-US"><head>
<title>Wireless Mouse - Example Shop</title>
<meta property="og:title" content="Wireless Mouse - Example Shop">
<meta property="og:price:amount" content="19.99">
<meta property="og:price:currency" content="USD">
</head><body>
<h1>Wireless Mouse</h1>
<p>Only $19.99 while stocks last</p>
</body></html>`

const ambiguousPage = `<html><head>
<title>Laptop Stand - Example Shop</title>
</head><body>
<h1>Laptop Stand</h1>
<div class="offer"><span>$24.50</span></div>
<div class="bundle"><span>$99.00</span></div>
</body></html>`

const manualPage = `<html lang="de"><head>
<title>Kaffeemaschine - Beispiel Shop</title>
</head><body>
<h1>Kaffeemaschine</h1>
<span id="price">49,99 &euro;</span>
</body></html>`

// stubLoader serves canned pages keyed by URL.
type stubLoader struct {
	pages map[string]string
	errs  map[string]error
}

func (s *stubLoader) Fetch(_ context.Context, url string) (*htmldoc.Document, error) {
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	page, ok := s.pages[url]
	if !ok {
		return nil, eris.Wrap(fetch.ErrNoResponse, "no such page")
	}
	return htmldoc.ParseBytes([]byte(page))
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func drainEvents(ch chan model.TrackEvent) []model.TrackEvent {
	var events []model.TrackEvent
	for {
		select {
		case ev := <-ch:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestCheck_AutoSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, "https://shop.example.com/mouse")
	require.NoError(t, err)

	events := make(chan model.TrackEvent, 16)
	loader := &stubLoader{pages: map[string]string{p.URL: productPage}}
	tr := New(s, loader, Options{Events: events})

	res, err := tr.Check(ctx, p)
	require.NoError(t, err)
	require.Equal(t, extract.StatusSuccess, res.Status)
	assert.Equal(t, "19.99", res.Price.Price.Amount.String())

	// Detected metadata is adopted and persisted
	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wireless Mouse", got.Name)
	assert.Equal(t, "Wireless Mouse - Example Shop", got.Title)
	assert.Equal(t, "en-US", got.LocaleTag)
	require.NotNil(t, got.LastCheckedAt)

	latest, err := s.LatestPrice(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "19.99", latest.Amount.String())
	assert.Equal(t, "$", latest.Currency)
	assert.Equal(t, extract.SourceAttribute, latest.Source)

	evs := drainEvents(events)
	require.Len(t, evs, 2)
	assert.Equal(t, model.EventUpdating, evs[0].Kind)
	assert.Equal(t, model.EventUpdated, evs[1].Kind)
	require.NotNil(t, evs[1].Point)
	assert.Equal(t, "19.99", evs[1].Point.Amount.String())
}

func TestCheck_Ambiguous(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, "https://shop.example.com/stand")
	require.NoError(t, err)

	events := make(chan model.TrackEvent, 16)
	loader := &stubLoader{pages: map[string]string{p.URL: ambiguousPage}}
	tr := New(s, loader, Options{Events: events})

	res, err := tr.Check(ctx, p)
	require.NoError(t, err)
	require.Equal(t, extract.StatusAmbiguous, res.Status)
	assert.GreaterOrEqual(t, len(res.Candidates), 2)

	// No price is recorded for an ambiguous outcome
	latest, err := s.LatestPrice(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	evs := drainEvents(events)
	require.Len(t, evs, 2)
	assert.Equal(t, model.EventAmbiguous, evs[1].Kind)
	assert.NotEmpty(t, evs[1].Candidates)
}

func TestCheck_LoadFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, "https://down.example.com/item")
	require.NoError(t, err)

	events := make(chan model.TrackEvent, 16)
	loader := &stubLoader{errs: map[string]error{p.URL: eris.Wrap(fetch.ErrNoResponse, "connection refused")}}
	tr := New(s, loader, Options{Events: events})

	res, err := tr.Check(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, extract.StatusFailed, res.Status)
	assert.Equal(t, extract.FailNoResponse, res.Reason)

	evs := drainEvents(events)
	require.Len(t, evs, 2)
	assert.Equal(t, model.EventLoadFailed, evs[1].Kind)
	assert.Equal(t, extract.FailNoResponse, evs[1].Reason)
}

func TestCheck_InvalidResponse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, "https://error.example.com/item")
	require.NoError(t, err)

	loader := &stubLoader{errs: map[string]error{p.URL: eris.Wrap(fetch.ErrInvalidResponse, "status 500")}}
	tr := New(s, loader, Options{})

	res, err := tr.Check(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, extract.StatusFailed, res.Status)
	assert.Equal(t, extract.FailInvalidResponse, res.Reason)
}

func TestCheck_ManualPipeline(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, "https://shop.example.de/kaffee")
	require.NoError(t, err)

	p.Name = "Kaffeemaschine"
	p.LocaleTag = "de-DE"
	p.Selector = "#price"
	p.Pinned = true
	require.NoError(t, s.UpdateProduct(ctx, p))

	loader := &stubLoader{pages: map[string]string{p.URL: manualPage}}
	tr := New(s, loader, Options{})

	res, err := tr.Check(ctx, p)
	require.NoError(t, err)
	require.Equal(t, extract.StatusSuccess, res.Status)
	assert.Equal(t, "49.99", res.Price.Price.Amount.String())

	// Pinned metadata is untouched
	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kaffeemaschine", got.Name)
	assert.Equal(t, "de-DE", got.LocaleTag)
	assert.Equal(t, "#price", got.Selector)
	assert.True(t, got.Pinned)
}

func TestCheck_ManualPipeline_SelectorMiss(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, "https://shop.example.de/kaffee")
	require.NoError(t, err)

	p.Name = "Kaffeemaschine"
	p.LocaleTag = "de-DE"
	p.Selector = "#does-not-exist"
	p.Pinned = true
	require.NoError(t, s.UpdateProduct(ctx, p))

	loader := &stubLoader{pages: map[string]string{p.URL: manualPage}}
	tr := New(s, loader, Options{})

	res, err := tr.Check(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, extract.StatusFailed, res.Status)
	assert.Equal(t, extract.FailInvalidManualPrice, res.Reason)
}

func TestRefreshAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.CreateProduct(ctx, "https://shop.example.com/mouse")
	require.NoError(t, err)
	amb, err := s.CreateProduct(ctx, "https://shop.example.com/stand")
	require.NoError(t, err)
	down, err := s.CreateProduct(ctx, "https://down.example.com/item")
	require.NoError(t, err)

	loader := &stubLoader{
		pages: map[string]string{
			ok.URL:  productPage,
			amb.URL: ambiguousPage,
		},
		errs: map[string]error{down.URL: eris.Wrap(fetch.ErrNoResponse, "connection refused")},
	}
	tr := New(s, loader, Options{MaxConcurrent: 2})

	sum, err := tr.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Checked: 3, Updated: 1, Ambiguous: 1, Failed: 1}, sum)
}

func TestRefreshAll_Empty(t *testing.T) {
	s := newTestStore(t)

	tr := New(s, &stubLoader{}, Options{})
	sum, err := tr.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

// blockingLoader holds every Fetch until released.
type blockingLoader struct {
	release chan struct{}
	page    string
}

func (b *blockingLoader) Fetch(ctx context.Context, _ string) (*htmldoc.Document, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, eris.Wrap(fetch.ErrNoResponse, "fetch cancelled")
	}
	return htmldoc.ParseBytes([]byte(b.page))
}

// Shutdown ordering: a check still in flight when shutdown begins must be
// joined before the event channel closes, or emit would send on a closed
// channel.
func TestCheck_InFlightJoinedBeforeEventClose(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, "https://shop.example/mouse")
	require.NoError(t, err)

	loader := &blockingLoader{release: make(chan struct{}), page: productPage}
	events := make(chan model.TrackEvent)
	tr := New(s, loader, Options{Events: events})

	var got []model.TrackEvent
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for ev := range events {
			got = append(got, ev)
		}
	}()

	var inFlight sync.WaitGroup
	inFlight.Add(1)
	go func() {
		defer inFlight.Done()
		_, err := tr.Check(ctx, p)
		assert.NoError(t, err)
	}()

	close(loader.release)
	inFlight.Wait()
	close(events)
	<-consumed

	require.Len(t, got, 2)
	assert.Equal(t, model.EventUpdating, got[0].Kind)
	assert.Equal(t, model.EventUpdated, got[1].Kind)
}
