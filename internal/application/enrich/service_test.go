package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"

	"carimport-backend/internal/application/fetch"
	"carimport-backend/internal/application/listings"
	"carimport-backend/internal/domain"
	"carimport-backend/internal/infrastructure/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const austrianNetPage = `<html><head><meta name="geo.region" content="AT-9"></head><body>
<div class="description">Erstbesitz, Scheckheft.</div>
<p>Preis 89.900 € (Netto)</p>
</body></html>`

const plainGermanPage = `<html><body><p>Privatverkauf, Unfallwagen</p></body></html>`

type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	opts  []fetch.Options
}

func (f *stubFetcher) Fetch(ctx context.Context, url string, opts fetch.Options) (*fetch.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = append(f.opts, opts)
	html, ok := f.pages[url]
	if !ok {
		return nil, errors.New("blocked")
	}
	return &fetch.Response{HTML: html}, nil
}

func setupStore(t *testing.T) *listings.Service {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &listings.Service{DB: db}
}

func seed(t *testing.T, store *listings.Service, id string, vat bool) string {
	t.Helper()
	url := "https://suchen.mobile.de/fahrzeuge/details.html?id=" + id
	_, err := store.UpsertListing(context.Background(), domain.RawListing{
		ExternalID:    id,
		Title:         "Porsche 911 Carrera S",
		PriceEur:      90000,
		ListingURL:    url,
		VatDeductible: vat,
	}, nil)
	require.NoError(t, err)
	return url
}

func TestRun_EnrichesAndCountsFailures(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	f := &stubFetcher{pages: map[string]string{}}
	f.pages[seed(t, store, "1", false)] = austrianNetPage
	f.pages[seed(t, store, "2", true)] = plainGermanPage
	f.pages[seed(t, store, "3", false)] = austrianNetPage
	seed(t, store, "4", false)

	svc := NewService(store, f, 2, 0, 0)
	res, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 3, res.Enriched)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.Samples, 1)
	assert.Contains(t, res.Samples[0], "4: fetch detail: blocked")

	at, err := store.FindByExternalID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, at.VatDeductible)
	assert.Equal(t, "AT", at.Country)
	assert.InDelta(t, 0.20, at.SourceVatRate, 1e-9)
	assert.Equal(t, "Erstbesitz, Scheckheft.", at.Description)

	de, err := store.FindByExternalID(ctx, "2")
	require.NoError(t, err)
	assert.False(t, de.VatDeductible)
	assert.True(t, de.HasAccidentDamage)
	assert.Equal(t, "", de.Country)

	for _, o := range f.opts {
		assert.Equal(t, defaultTimeout, o.Timeout)
		assert.Equal(t, 1, o.Retries)
	}
}

func TestRun_NoFetcher(t *testing.T) {
	svc := &Service{Store: setupStore(t)}
	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, fetch.ErrMissingCredentials)
}

func TestRun_NothingActive(t *testing.T) {
	svc := NewService(setupStore(t), &stubFetcher{}, 3, 0, 0)
	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Result{Samples: []string{}}, res)
}

func TestEnrichListing_UpdatesInMemoryCopy(t *testing.T) {
	store := setupStore(t)
	url := seed(t, store, "1", false)
	l, err := store.FindByExternalID(context.Background(), "1")
	require.NoError(t, err)

	svc := NewService(store, &stubFetcher{pages: map[string]string{url: austrianNetPage}}, 1, 0, 0)
	require.NoError(t, svc.EnrichListing(context.Background(), l))
	assert.True(t, l.VatDeductible)
	assert.Equal(t, "AT", l.Country)
}

func TestEnrichListing_RejectsRelativeURL(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{}}
	svc := NewService(setupStore(t), f, 1, 0, 0)
	err := svc.EnrichListing(context.Background(), &domain.Listing{ExternalID: "x", ListingURL: "/fahrzeuge/details.html?id=1"})
	assert.ErrorContains(t, err, "invalid listing url")
	assert.Empty(t, f.opts)
}
