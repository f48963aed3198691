package scrape

import (
	"net/url"
	"testing"

	"carimport-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func parseQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "suchen.mobile.de", u.Host)
	assert.Equal(t, "/fahrzeuge/search.html", u.Path)
	return u.Query()
}

func TestBuildSearchURL_FixedParams(t *testing.T) {
	q := parseQuery(t, BuildSearchURL(domain.SearchConfig{}, 1))
	assert.Equal(t, "0", q.Get("dam"))
	assert.Equal(t, "true", q.Get("isSearchRequest"))
	assert.Equal(t, "Car", q.Get("s"))
	assert.Equal(t, "Car", q.Get("vc"))
	assert.Equal(t, "false", q.Get("sfmr"))
	assert.Equal(t, "doc", q.Get("sb"))
	assert.Empty(t, q.Get("pageNumber"))
	assert.Empty(t, q["ms"])
}

func TestBuildSearchURL_Filters(t *testing.T) {
	cfg := domain.SearchConfig{
		Brands:        []string{"Porsche", "BMW", "Trabant"},
		Models:        []string{"911", "Cayman"},
		YearMin:       intPtr(2018),
		MileageMax:    intPtr(60000),
		PriceMax:      intPtr(150000),
		FuelTypes:     []string{"Petrol", "Steam"},
		Transmissions: []string{"Automatic"},
	}
	q := parseQuery(t, BuildSearchURL(cfg, 3))

	assert.Equal(t, []string{"20100;;40;", "20100;;20;", "3500;;;"}, q["ms"])
	assert.Equal(t, "2018:", q.Get("fr"))
	assert.Equal(t, ":60000", q.Get("ml"))
	assert.Equal(t, ":150000", q.Get("p"))
	assert.Equal(t, []string{"PETROL"}, q["ft"])
	assert.Equal(t, []string{"AUTOMATIC_GEAR"}, q["tr"])
	assert.Equal(t, "3", q.Get("pageNumber"))
}

func TestBuildSearchURL_UnknownFacetsDegrade(t *testing.T) {
	cfg := domain.SearchConfig{Brands: []string{"Trabant"}, Models: []string{"601"}}
	q := parseQuery(t, BuildSearchURL(cfg, 1))
	assert.Empty(t, q["ms"])
}

func TestRangeParam(t *testing.T) {
	assert.Equal(t, "", rangeParam(nil, nil))
	assert.Equal(t, "", rangeParam(intPtr(0), nil))
	assert.Equal(t, "10000:50000", rangeParam(intPtr(10000), intPtr(50000)))
	assert.Equal(t, ":50000", rangeParam(nil, intPtr(50000)))
}
