package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(body string) string {
	return "<html><head></head><body>" + body + "</body></html>"
}

func TestParseDetailPage_NegatedAccidentIsNotFlagged(t *testing.T) {
	d := ParseDetailPage(page(`<div class="description">Top gepflegt, kein Unfallschaden, Scheckheft.</div>`))
	assert.False(t, d.HasAccidentDamage)
	assert.Equal(t, "Top gepflegt, kein Unfallschaden, Scheckheft.", d.Description)
}

func TestParseDetailPage_AccidentLayers(t *testing.T) {
	cases := []struct {
		name string
		html string
		want bool
	}{
		{"dt/dd affirmative", `<dl><dt>Unfallschaden</dt><dd>Ja, repariert</dd></dl>`, true},
		{"dt/dd negative wins over text", `<dl><dt>Schaden</dt><dd>Unfallfrei</dd></dl><p>Kein Unfallwagen</p><p>Unfallwagen</p>`, false},
		{"accident-free label inverted", `<dl><dt>Unfallfrei</dt><dd>Ja</dd></dl>`, false},
		{"table row", `<table><tr><td>Unfallschaden</td><td>Nein</td></tr></table><p>Vorschaden</p>`, false},
		{"strong signal", `<p>Verkauft als Unfallfahrzeug an Händler.</p>`, true},
		{"negated strong signal", `<p>Kein Unfallfahrzeug.</p>`, false},
		{"label with empty context", `<ul><li>Vorschaden</li></ul>`, true},
		{"label with affirmative context", `<p>Vorschaden: behoben</p>`, true},
		{"label with unrelated context", `<p>Vorschaden im Heckbereich laut Gutachten unbekannt</p>`, false},
		{"label with negative context", `<p>Unfallschaden: keiner</p>`, false},
		{"nothing", `<p>Scheckheftgepflegt</p>`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseDetailPage(page(tc.html)).HasAccidentDamage)
		})
	}
}

func TestParseDetailPage_Vat(t *testing.T) {
	assert.True(t, ParseDetailPage(page(`<p>Preis 89.900 € (Netto)</p>`)).VatDeductible)
	assert.True(t, ParseDetailPage(page(`<p>Prix HT, TVA récupérable</p>`)).VatDeductible)
	assert.True(t, ParseDetailPage(page(`<p>Prijs excl. BTW</p>`)).VatDeductible)
	assert.True(t, ParseDetailPage(page(`<span class="price-vat">ausweisbar</span>`)).VatDeductible)
	assert.False(t, ParseDetailPage(page(`<div class="private-seller">Privatverkauf</div>`)).VatDeductible)
}

func TestParseDetailPage_Country(t *testing.T) {
	cases := []struct {
		name string
		html string
		want string
	}{
		{"meta region", `<meta name="geo.region" content="AT-9"><p>Wien</p>`, "AT"},
		{"json-ld", `<script type="application/ld+json">{"@type":"Car","offers":{"seller":{"address":{"addressCountry":"NL"}}}}</script><p>x</p>`, "NL"},
		{"itemprop name", `<span itemprop="addressCountry">Belgien</span>`, "BE"},
		{"standort", `<p>Standort: FR-75001 Paris</p>`, "FR"},
		{"address block", `<address>Autohaus Muster<br>Hauptstraße 1<br>1010 Wien<br>AT</address>`, "AT"},
		{"national prefix", `<p>Händler in D-70173 Stuttgart</p>`, "DE"},
		{"dutch postcode", `<p>Keizersgracht 1, 1015 CJ Amsterdam</p>`, "NL"},
		{"tax term", `<p>Prijs incl. BTW</p>`, "NL"},
		{"unknown", `<p>Sehr schönes Auto</p>`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseDetailPage(page(tc.html)).Country)
		})
	}
}

func TestParseDetailPage_SourceVatRate(t *testing.T) {
	assert.InDelta(t, 0.20, ParseDetailPage(page(`<meta name="geo.region" content="AT-9">`)).SourceVatRate, 1e-9)
	assert.InDelta(t, 0.19, ParseDetailPage(page(`<p>nichts</p>`)).SourceVatRate, 1e-9)
}

func TestParseDetailPage_Fields(t *testing.T) {
	long := strings.Repeat("x", 100)
	html := page(`
<div data-testid="seller-name">Porsche Zentrum Hamburg</div>
<dl><dt>Außenfarbe</dt><dd>Schwarz Metallic</dd><dt>Fahrzeugtyp</dt><dd>Sportwagen/Coupé</dd></dl>
<ul class="ausstattung"><li>Sport Chrono Paket</li><li>Sport Chrono Paket</li><li>` + long + `</li><li>PDK</li></ul>`)
	d := ParseDetailPage(html)
	assert.Equal(t, "Porsche Zentrum Hamburg", d.SellerName)
	assert.Equal(t, "Schwarz", d.Color)
	assert.Equal(t, "Sportwagen/Coupé", d.BodyType)
	assert.Equal(t, []string{"Sport Chrono Paket", "PDK"}, d.Features)
}

func TestParseDetailPage_DescriptionTruncated(t *testing.T) {
	d := ParseDetailPage(page(`<div id="beschreibung">` + strings.Repeat("ä", 2500) + `</div>`))
	assert.Equal(t, 2000, len([]rune(d.Description)))
}

func TestDetailPageData_Patch(t *testing.T) {
	p := DetailPageData{SourceVatRate: 0.19}.Patch()
	require.NotNil(t, p.VatDeductible)
	require.NotNil(t, p.HasAccidentDamage)
	assert.False(t, *p.VatDeductible)
	assert.Nil(t, p.Country)
	assert.Nil(t, p.SourceVatRate)
	assert.Nil(t, p.Description)

	p = DetailPageData{VatDeductible: true, Country: "IT", SourceVatRate: 0.22, Color: "Rosso"}.Patch()
	assert.True(t, *p.VatDeductible)
	assert.Equal(t, "IT", *p.Country)
	assert.InDelta(t, 0.22, *p.SourceVatRate, 1e-9)
	assert.Equal(t, "Rosso", *p.Color)
}
