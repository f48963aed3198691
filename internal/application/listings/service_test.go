package listings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"carimport-backend/internal/domain"
	"carimport-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &Service{DB: db, Now: func() time.Time { return testNow }}
}

func rawListing(id string, price int) domain.RawListing {
	return domain.RawListing{
		ExternalID:            id,
		Title:                 "Porsche 911 Carrera S",
		PriceEur:              price,
		MileageKm:             30000,
		FirstRegistrationYear: 2020,
		FuelType:              "Benzin",
		SellerType:            domain.SellerDealer,
		ListingURL:            "https://suchen.mobile.de/fahrzeuge/details.html?id=" + id,
		Features:              []string{"Sport Chrono"},
	}
}

func TestUpsertListing_CreateThenIdempotent(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	res, err := s.UpsertListing(ctx, rawListing("100", 95000), nil)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotEqual(t, uuid.Nil, res.ID)

	again, err := s.UpsertListing(ctx, rawListing("100", 95000), nil)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.False(t, again.PriceChanged)
	assert.Equal(t, res.ID, again.ID)

	l, err := s.FindByExternalID(ctx, "100")
	require.NoError(t, err)
	require.Len(t, l.PriceHistory, 1)
	assert.Equal(t, domain.PriceHistoryEntry{Date: "2025-06-01", Price: 95000}, l.PriceHistory[0])
	assert.True(t, l.IsActive)
	assert.Equal(t, []string{"Sport Chrono"}, []string(l.Features))

	var n int64
	require.NoError(t, s.DB.Model(&domain.Listing{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestUpsertListing_PriceChangeAppendsHistory(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	_, err := s.UpsertListing(ctx, rawListing("100", 95000), nil)
	require.NoError(t, err)

	s.Now = func() time.Time { return testNow.Add(48 * time.Hour) }
	res, err := s.UpsertListing(ctx, rawListing("100", 91000), nil)
	require.NoError(t, err)
	assert.True(t, res.PriceChanged)

	// a missing price keeps the stored one and adds nothing
	_, err = s.UpsertListing(ctx, rawListing("100", 0), nil)
	require.NoError(t, err)

	l, err := s.FindByExternalID(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, 91000, l.PriceEur)
	require.Len(t, l.PriceHistory, 2)
	assert.Equal(t, domain.PriceHistoryEntry{Date: "2025-06-03", Price: 91000}, l.PriceHistory[1])
}

func TestUpsertListing_BooleansOnlyUpgrade(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	raw := rawListing("100", 95000)
	raw.VatDeductible = true
	res, err := s.UpsertListing(ctx, raw, nil)
	require.NoError(t, err)

	raw.VatDeductible = false
	_, err = s.UpsertListing(ctx, raw, nil)
	require.NoError(t, err)
	l, err := s.FindByExternalID(ctx, "100")
	require.NoError(t, err)
	assert.True(t, l.VatDeductible)

	no := false
	require.NoError(t, s.ApplyPatch(ctx, res.ID, domain.ListingPatch{VatDeductible: &no}))
	l, err = s.FindByExternalID(ctx, "100")
	require.NoError(t, err)
	assert.False(t, l.VatDeductible)
}

func TestUpsertListing_MissingExternalID(t *testing.T) {
	s := setupService(t)
	_, err := s.UpsertListing(context.Background(), domain.RawListing{Title: "x"}, nil)
	assert.ErrorIs(t, err, ErrMissingExternal)
}

func TestUpsertListing_KeepsEnrichedFieldsOnBlankCard(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	first := rawListing("200", 95000)
	first.Power = "331 kW (450 PS)"
	first.ImageURL = "https://img.example.test/200.jpg"
	res, err := s.UpsertListing(ctx, first, nil)
	require.NoError(t, err)

	seller := "Porsche Zentrum Hamburg"
	require.NoError(t, s.ApplyPatch(ctx, res.ID, domain.ListingPatch{SellerName: &seller}))

	_, err = s.UpsertListing(ctx, rawListing("200", 95000), nil)
	require.NoError(t, err)
	l, err := s.FindByExternalID(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, "Porsche Zentrum Hamburg", l.SellerName)
	assert.Equal(t, "331 kW (450 PS)", l.Power)
	assert.Equal(t, "https://img.example.test/200.jpg", l.ImageURL)

	blank := rawListing("200", 95000)
	blank.MileageKm = 0
	blank.FuelType = ""
	_, err = s.UpsertListing(ctx, blank, nil)
	require.NoError(t, err)
	l, err = s.FindByExternalID(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, 30000, l.MileageKm)
	assert.Equal(t, "Benzin", l.FuelType)
	assert.Equal(t, "Porsche Zentrum Hamburg", l.SellerName)
}

func TestApplyPatch(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	res, err := s.UpsertListing(ctx, rawListing("100", 95000), nil)
	require.NoError(t, err)

	country, rate, color := "IT", 0.22, "Schwarz"
	patch := domain.ListingPatch{Country: &country, SourceVatRate: &rate, Color: &color, Features: []string{"PASM", "Sport Chrono"}}
	require.NoError(t, s.ApplyPatch(ctx, res.ID, patch))

	l, err := s.FindByExternalID(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "IT", l.Country)
	assert.InDelta(t, 0.22, l.SourceVatRate, 1e-9)
	assert.Equal(t, "Schwarz", l.Color)
	assert.Equal(t, []string{"PASM", "Sport Chrono"}, []string(l.Features))
	assert.Equal(t, "Porsche 911 Carrera S", l.Title)

	assert.NoError(t, s.ApplyPatch(ctx, res.ID, domain.ListingPatch{}))
	assert.ErrorIs(t, s.ApplyPatch(ctx, uuid.New(), patch), ErrListingNotFound)
}

func TestExistingExternalIDs(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		_, err := s.UpsertListing(ctx, rawListing(id, 50000), nil)
		require.NoError(t, err)
	}
	known, err := s.ExistingExternalIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1": true, "2": true, "3": true}, known)
}

func TestUnscoredListings(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	a, err := s.UpsertListing(ctx, rawListing("a", 50000), nil)
	require.NoError(t, err)
	b, err := s.UpsertListing(ctx, rawListing("b", 60000), nil)
	require.NoError(t, err)
	c, err := s.UpsertListing(ctx, rawListing("c", 70000), nil)
	require.NoError(t, err)
	require.NoError(t, s.DB.Model(&domain.Listing{}).Where("id = ?", c.ID).Update("is_active", false).Error)

	require.NoError(t, s.UpsertScore(ctx, &domain.Score{ListingID: a.ID, CombinedScore: 70}))

	unscored, err := s.UnscoredListings(ctx)
	require.NoError(t, err)
	require.Len(t, unscored, 1)
	assert.Equal(t, b.ID, unscored[0].ID)

	active, err := s.ActiveListings(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestUpsertScore_ReplacesExisting(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	res, err := s.UpsertListing(ctx, rawListing("a", 50000), nil)
	require.NoError(t, err)

	first := &domain.Score{ListingID: res.ID, CombinedScore: 60, RedFlags: []string{"high mileage"}}
	require.NoError(t, s.UpsertScore(ctx, first))
	assert.Equal(t, testNow, first.ScoredAt)

	second := &domain.Score{ListingID: res.ID, CombinedScore: 80, RedFlags: []string{}}
	require.NoError(t, s.UpsertScore(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	var rows []domain.Score
	require.NoError(t, s.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.InDelta(t, 80, rows[0].CombinedScore, 1e-9)
	assert.Empty(t, rows[0].RedFlags)
}

func TestGetWithScore(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	_, err := s.GetWithScore(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrListingNotFound)

	res, err := s.UpsertListing(ctx, rawListing("a", 50000), nil)
	require.NoError(t, err)
	lws, err := s.GetWithScore(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, lws.Score)
	assert.Equal(t, "a", lws.ExternalID)

	require.NoError(t, s.UpsertScore(ctx, &domain.Score{ListingID: res.ID, CombinedScore: 42}))
	lws, err = s.GetWithScore(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, lws.Score)
	assert.InDelta(t, 42, lws.Score.CombinedScore, 1e-9)
}

func seedScored(t *testing.T, s *Service) map[string]uuid.UUID {
	t.Helper()
	ctx := context.Background()
	ids := map[string]uuid.UUID{}
	rows := []struct {
		id    string
		title string
		price int
		score float64
	}{
		{"p1", "Porsche 911 Carrera", 80000, 70},
		{"p2", "Porsche 911 Turbo", 150000, 85},
		{"b1", "BMW M3 Competition", 60000, 40},
		{"b2", "BMW M4 Coupe", 65000, -1},
	}
	for _, r := range rows {
		raw := rawListing(r.id, r.price)
		raw.Title = r.title
		res, err := s.UpsertListing(ctx, raw, nil)
		require.NoError(t, err)
		ids[r.id] = res.ID
		if r.score >= 0 {
			require.NoError(t, s.UpsertScore(ctx, &domain.Score{ListingID: res.ID, CombinedScore: r.score}))
		}
	}
	return ids
}

func externalIDs(items []domain.ListingWithScore) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ExternalID
	}
	return out
}

func TestList_DefaultSortPutsUnscoredLast(t *testing.T) {
	s := setupService(t)
	seedScored(t, s)

	page, err := s.List(context.Background(), Filter{OnlyActive: true})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, defaultPageSize, page.Limit)
	assert.Equal(t, []string{"p2", "p1", "b1", "b2"}, externalIDs(page.Listings))
	assert.Nil(t, page.Listings[3].Score)
}

func TestList_Filters(t *testing.T) {
	s := setupService(t)
	seedScored(t, s)
	ctx := context.Background()

	page, err := s.List(ctx, Filter{Brand: "porsche", SortBy: "price", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, externalIDs(page.Listings))

	minScore := 50.0
	page, err = s.List(ctx, Filter{MinScore: &minScore})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, externalIDs(page.Listings))

	maxPrice := 70000
	page, err = s.List(ctx, Filter{MaxPrice: &maxPrice, SortBy: "price", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "b1"}, externalIDs(page.Listings))

	page, err = s.List(ctx, Filter{FuelType: "Diesel"})
	require.NoError(t, err)
	assert.Empty(t, page.Listings)
	assert.EqualValues(t, 0, page.Total)
}

func TestList_Paging(t *testing.T) {
	s := setupService(t)
	seedScored(t, s)

	page, err := s.List(context.Background(), Filter{Page: 2, Limit: 3, SortBy: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, []string{"b2"}, externalIDs(page.Listings))
}

func TestTopDeals(t *testing.T) {
	s := setupService(t)
	ids := seedScored(t, s)
	ctx := context.Background()
	require.NoError(t, s.DB.Model(&domain.Listing{}).Where("id = ?", ids["p2"]).Update("is_active", false).Error)

	top, err := s.TopDeals(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "b1"}, externalIDs(top))
	for _, it := range top {
		assert.NotNil(t, it.Score, fmt.Sprintf("listing %s", it.ExternalID))
	}
}
