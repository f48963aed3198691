package extract

import (
	"regexp"
	"strconv"
	"strings"

	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/constants"

	"github.com/PuerkitoBio/goquery"
)

// Ordered by stability; the first selector with at least one hit wins.
var listingSelectors = []string{
	`a[href*="details.html?id="]`,
	`[data-testid*="result-listing"]`,
	`.result-item`,
	`article[class*="listing"]`,
	`.cBox-body--resultitem`,
}

const fallbackSelector = `a[href*="/fahrzeuge/details"]`

var (
	externalIDRe   = regexp.MustCompile(`id=(\d+)`)
	resultCountRe  = regexp.MustCompile(`(?i)([\d.]+)\s*(Ergebnis|Treffer|Angebot)`)
	imageSelectors = `img[src*="img.classistatic"], img[data-src*="img.classistatic"]`
)

// SearchPage is one parsed page of search results.
type SearchPage struct {
	Listings     []domain.RawListing `json:"listings"`
	HasNext      bool                `json:"has_next"`
	TotalResults *int                `json:"total_results,omitempty"`
}

// ParseSearchResults never fails: unparseable markup yields an empty page.
func ParseSearchResults(html string) SearchPage {
	page := SearchPage{Listings: []domain.RawListing{}}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return page
	}
	doc.Find("script, style, noscript").Remove()

	var hits *goquery.Selection
	for _, sel := range listingSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			hits = found
			break
		}
	}
	if hits == nil {
		if found := doc.Find(fallbackSelector); found.Length() > 0 {
			hits = found
		}
	}

	if hits != nil {
		seen := map[string]bool{}
		hits.Each(func(_ int, el *goquery.Selection) {
			l, ok := parseListingElement(el)
			if !ok || seen[l.ExternalID] {
				return
			}
			seen[l.ExternalID] = true
			page.Listings = append(page.Listings, l)
		})
	}

	page.HasNext = doc.Find(`a[data-testid="pagination-next"]`).Length() > 0 ||
		doc.Find(`a[class*="next"], button[class*="next"]`).Length() > 0 ||
		doc.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(a.Text()), "nächste")
		}).Length() > 0

	countText := doc.Find(`h1, [class*="result-count"], [class*="totalCount"]`).First().Text()
	if m := resultCountRe.FindStringSubmatch(countText); m != nil {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ".", "")); err == nil {
			page.TotalResults = &n
		}
	}
	return page
}

func parseListingElement(el *goquery.Selection) (domain.RawListing, bool) {
	container := el
	isAnchor := goquery.NodeName(el) == "a"
	if isAnchor {
		if c := el.Closest(`[class*="result"], article, .cBox-body--resultitem`); c.Length() > 0 {
			container = c
		}
	}

	href := ""
	link := container.Find(`a[href*="details.html?id="]`).First()
	if link.Length() > 0 {
		href, _ = link.Attr("href")
	} else if isAnchor {
		if h, _ := el.Attr("href"); strings.Contains(h, "details.html?id=") {
			href = h
		}
	}
	if href == "" {
		return domain.RawListing{}, false
	}
	if strings.HasPrefix(href, "/") {
		href = constants.MobileDeBaseURL + href
	}
	m := externalIDRe.FindStringSubmatch(href)
	if m == nil {
		return domain.RawListing{}, false
	}

	title := normalizeSpace(container.Find(`h2, h3, [class*="headline"], [data-testid*="title"]`).First().Text())
	if title == "" {
		title = normalizeSpace(container.Find(`a[href*="details"]`).First().Text())
	}
	if title == "" && isAnchor {
		title = normalizeSpace(el.Text())
	}
	if title == "" {
		return domain.RawListing{}, false
	}

	text := strings.Join(textLines(container), " ")
	year, month := parseRegistration(text)
	location, country := parseLocation(text)
	l := domain.RawListing{
		ExternalID:             m[1],
		Title:                  title,
		PriceEur:               parsePrice(text),
		MileageKm:              parseMileage(text),
		FirstRegistrationYear:  year,
		FirstRegistrationMonth: month,
		FuelType:               parseFuelType(text),
		Transmission:           parseTransmission(text),
		Power:                  parsePower(text),
		SellerType:             parseSellerType(text),
		Location:               location,
		Country:                country,
		ListingURL:             href,
		ImageURL:               imageURL(container),
		VatDeductible:          searchVat(text),
		HasAccidentDamage:      mentionsDamage(textBlocks(container)),
	}
	if country != "" {
		l.SourceVatRate = constants.VatRateForCountry(country)
	}
	return l, true
}

func imageURL(container *goquery.Selection) string {
	img := container.Find(imageSelectors).First()
	if src, ok := img.Attr("src"); ok && src != "" {
		return src
	}
	if src, ok := img.Attr("data-src"); ok && src != "" {
		return src
	}
	src, _ := container.Find("img").First().Attr("src")
	return src
}
