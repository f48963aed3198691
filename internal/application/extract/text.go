package extract

import (
	"regexp"
	"strconv"
	"strings"

	"carimport-backend/internal/pkg/constants"

	"github.com/PuerkitoBio/goquery"
)

var (
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*)\s*€`),
		regexp.MustCompile(`€\s*(\d{1,3}(?:\.\d{3})*)`),
		regexp.MustCompile(`EUR\s*(\d{1,3}(?:\.\d{3})*)`),
		regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*)\s*EUR`),
	}
	mileageRe      = regexp.MustCompile(`(?i)(\d{1,3}(?:\.\d{3})*)\s*km\b`)
	registrationRe = regexp.MustCompile(`(?i)(?:EZ|Erstzulassung)\s*(\d{2})/(\d{4})`)
	monthYearRe    = regexp.MustCompile(`(\d{2})/(\d{4})`)
	psRe           = regexp.MustCompile(`(\d+)\s*PS`)
	kwRe           = regexp.MustCompile(`(\d+)\s*kW`)
	locationRe     = regexp.MustCompile(`(?:\b([A-Z]{2})-(\d{4,5})|\b(\d{5}))\s+([A-ZÄÖÜa-zäöüß-]+)`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// Ordered: the first vocabulary entry found in the text wins.
var fuelVocabulary = [][2]string{
	{"Plug-in-Hybrid", "Plug-in Hybrid"},
	{"Plug-In-Hybrid", "Plug-in Hybrid"},
	{"Hybrid", "Hybrid"},
	{"Diesel", "Diesel"},
	{"Benzin", "Petrol"},
	{"Elektro", "Electric"},
	{"Erdgas", "CNG"},
	{"Autogas", "LPG"},
	{"Wasserstoff", "Hydrogen"},
}

var transmissionVocabulary = [][2]string{
	{"Halbautomatik", "Semi-automatic"},
	{"Automatik", "Automatic"},
	{"Automatisch", "Automatic"},
	{"Schaltgetriebe", "Manual"},
	{"Manuell", "Manual"},
}

// Words the location pattern can pick up after a bare number.
var locationStopWords = map[string]bool{"km": true, "PS": true, "kW": true, "EUR": true, "ccm": true}

func groupedInt(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ".", ""))
	if err != nil {
		return 0
	}
	return n
}

func parsePrice(text string) int {
	for _, re := range pricePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return groupedInt(m[1])
		}
	}
	return 0
}

func parseMileage(text string) int {
	if m := mileageRe.FindStringSubmatch(text); m != nil {
		return groupedInt(m[1])
	}
	return 0
}

// parseRegistration prefers an EZ/Erstzulassung label and falls back to any
// plausible MM/YYYY token.
func parseRegistration(text string) (year, month int) {
	if m := registrationRe.FindStringSubmatch(text); m != nil {
		month, _ = strconv.Atoi(m[1])
		year, _ = strconv.Atoi(m[2])
		return year, month
	}
	for _, m := range monthYearRe.FindAllStringSubmatch(text, -1) {
		mo, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		if mo >= 1 && mo <= 12 && y >= 1990 && y <= 2030 {
			return y, mo
		}
	}
	return 0, 0
}

func parseFuelType(text string) string {
	for _, v := range fuelVocabulary {
		if strings.Contains(text, v[0]) {
			return v[1]
		}
	}
	return ""
}

func parseTransmission(text string) string {
	for _, v := range transmissionVocabulary {
		if strings.Contains(text, v[0]) {
			return v[1]
		}
	}
	return ""
}

func parsePower(text string) string {
	ps := psRe.FindStringSubmatch(text)
	kw := kwRe.FindStringSubmatch(text)
	switch {
	case ps != nil && kw != nil:
		return ps[1] + " PS (" + kw[1] + " kW)"
	case ps != nil:
		return ps[1] + " PS"
	case kw != nil:
		return kw[1] + " kW"
	}
	return ""
}

func parseSellerType(text string) string {
	if strings.Contains(text, "Privat") || strings.Contains(text, "privat") {
		return "private"
	}
	return "dealer"
}

// parseLocation returns "postcode city" and the ISO country from a national
// prefix such as "AT-1010", or "" when the prefix is absent or unknown.
func parseLocation(text string) (location, country string) {
	for _, m := range locationRe.FindAllStringSubmatch(text, -1) {
		city := m[4]
		if locationStopWords[city] {
			continue
		}
		if m[1] != "" {
			if _, ok := constants.EUVatRates[m[1]]; ok {
				country = m[1]
			}
			return m[2] + " " + city, country
		}
		return m[3] + " " + city, ""
	}
	return "", ""
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var blockTags = map[string]bool{
	"body": true, "div": true, "p": true, "li": true, "tr": true, "td": true, "th": true,
	"dt": true, "dd": true, "section": true, "article": true, "ul": true, "ol": true,
	"table": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "footer": true, "main": true, "aside": true, "address": true, "dl": true,
}

var blockSelector = "div, p, li, tr, td, th, dt, dd, section, article, ul, ol, table, h1, h2, h3, h4, h5, h6, header, footer, main, aside, address, dl"

// textBlocks returns the whitespace-normalized text of every block element in
// sel (sel included) that has no block descendants, in document order.
func textBlocks(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		candidates := s.Find(blockSelector)
		if blockTags[goquery.NodeName(s)] || candidates.Length() == 0 {
			candidates = candidates.AddSelection(s)
		}
		candidates.Each(func(_ int, b *goquery.Selection) {
			if b.Find(blockSelector).Length() > 0 {
				return
			}
			if t := normalizeSpace(b.Text()); t != "" {
				out = append(out, t)
			}
		})
	})
	return out
}

// textLines returns every non-empty text node under s, trimmed.
func textLines(s *goquery.Selection) []string {
	var lines []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				for _, l := range strings.Split(c.Text(), "\n") {
					if l = strings.TrimSpace(l); l != "" {
						lines = append(lines, l)
					}
				}
				return
			}
			walk(c)
		})
	}
	walk(s)
	return lines
}
