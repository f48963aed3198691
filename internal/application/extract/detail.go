package extract

import (
	"regexp"
	"strings"

	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/constants"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxDescriptionRunes = 2000
	maxFeatureLength    = 80
)

var (
	descriptionSelector = `[data-testid="description"], [class*="description"], #beschreibung, .g-col-12.description`
	featureSelector     = `[data-testid*="feature"], [class*="feature"], [class*="ausstattung"] li, .vip-features li`
	sellerSelector      = `[data-testid*="seller-name"], [class*="seller-name"], [class*="vendorName"]`

	colorRe    = regexp.MustCompile(`Außenfarbe[:\s]+([A-Za-zÄÖÜäöüßéèêàâçñ\s/-]+?)(?:\n|,|Metallic|$)`)
	bodyTypeRe = regexp.MustCompile(`Fahrzeugtyp[:\s]+([A-Za-zÄÖÜäöüßéèêàâçñ\s/-]+?)(?:\n|,|$)`)
)

// DetailPageData is what a listing's own page adds to a search-page record.
// Country is "" when nothing identified it; SourceVatRate then holds the DE default.
type DetailPageData struct {
	VatDeductible     bool     `json:"vat_deductible"`
	HasAccidentDamage bool     `json:"has_accident_damage"`
	Country           string   `json:"country,omitempty"`
	SourceVatRate     float64  `json:"source_vat_rate"`
	Description       string   `json:"description,omitempty"`
	Features          []string `json:"features,omitempty"`
	SellerName        string   `json:"seller_name,omitempty"`
	Color             string   `json:"color,omitempty"`
	BodyType          string   `json:"body_type,omitempty"`
}

// ParseDetailPage is best-effort and never fails; booleans default to false.
func ParseDetailPage(html string) DetailPageData {
	data := DetailPageData{SourceVatRate: constants.GermanVatRate}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return data
	}
	doc.Find(`style, noscript, script:not([type="application/ld+json"])`).Remove()
	blocks := textBlocks(doc.Find("body"))
	text := strings.Join(blocks, "\n")

	data.VatDeductible = detectVat(doc, text)
	data.HasAccidentDamage = detectAccident(doc, blocks)
	data.Country = detectCountry(doc, text)
	data.SourceVatRate = constants.VatRateForCountry(data.Country)

	data.Description = truncateRunes(strings.TrimSpace(doc.Find(descriptionSelector).First().Text()), maxDescriptionRunes)
	seen := map[string]bool{}
	doc.Find(featureSelector).Each(func(_ int, s *goquery.Selection) {
		f := normalizeSpace(s.Text())
		if f == "" || len(f) >= maxFeatureLength || seen[f] {
			return
		}
		seen[f] = true
		data.Features = append(data.Features, f)
	})
	data.SellerName = normalizeSpace(doc.Find(sellerSelector).First().Text())
	if m := colorRe.FindStringSubmatch(text); m != nil {
		data.Color = strings.TrimSpace(m[1])
	}
	if m := bodyTypeRe.FindStringSubmatch(text); m != nil {
		data.BodyType = strings.TrimSpace(m[1])
	}
	return data
}

// Patch converts the page data into overrides. VAT and accident are always
// set; the rest only when the page had them.
func (d DetailPageData) Patch() domain.ListingPatch {
	vat, accident := d.VatDeductible, d.HasAccidentDamage
	p := domain.ListingPatch{
		VatDeductible:     &vat,
		HasAccidentDamage: &accident,
		Features:          d.Features,
	}
	if d.Country != "" {
		country, rate := d.Country, d.SourceVatRate
		p.Country = &country
		p.SourceVatRate = &rate
	}
	if d.Description != "" {
		s := d.Description
		p.Description = &s
	}
	if d.SellerName != "" {
		s := d.SellerName
		p.SellerName = &s
	}
	if d.Color != "" {
		s := d.Color
		p.Color = &s
	}
	if d.BodyType != "" {
		s := d.BodyType
		p.BodyType = &s
	}
	return p
}
