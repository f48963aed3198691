package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"carimport-backend/internal/pkg/constants"

	"github.com/PuerkitoBio/goquery"
)

var (
	standortRe      = regexp.MustCompile(`(?i)Standort:?\s*([A-Z]{2})-\d{4,5}\b`)
	prefixPostalRe  = regexp.MustCompile(`\b(A|D|F|I|B|L|NL|CH)-(\d{4,5})\b`)
	dutchPostalRe   = regexp.MustCompile(`\b[1-9]\d{3}\s?([A-Z]{2})\b`)
	twoLetterLineRe = regexp.MustCompile(`^[A-Z]{2}$`)
)

var postalPrefixes = map[string]string{
	"A": "AT", "D": "DE", "F": "FR", "I": "IT", "B": "BE", "L": "LU", "NL": "NL", "CH": "CH",
}

// Dutch letter pairs that are really units or labels in listing text.
var dutchFalsePairs = map[string]bool{"PS": true, "KW": true, "EZ": true, "HU": true, "SA": true, "SD": true, "SS": true, "RS": true, "GT": true, "AG": true}

var countryNames = map[string]string{
	"deutschland": "DE", "germany": "DE", "allemagne": "DE",
	"österreich": "AT", "austria": "AT", "autriche": "AT",
	"nederland": "NL", "niederlande": "NL", "netherlands": "NL", "pays-bas": "NL",
	"belgien": "BE", "belgium": "BE", "belgique": "BE", "belgië": "BE",
	"frankreich": "FR", "france": "FR",
	"italien": "IT", "italy": "IT", "italia": "IT",
	"spanien": "ES", "spain": "ES", "españa": "ES",
	"polen": "PL", "poland": "PL", "polska": "PL",
	"luxemburg": "LU", "luxembourg": "LU",
	"tschechien": "CZ", "czechia": "CZ",
	"dänemark": "DK", "denmark": "DK",
	"schweiz": "CH", "switzerland": "CH", "suisse": "CH",
}

// Tax terms tied to one country. A page naming exactly one of them is attributed to it.
var taxTerms = []struct {
	re      *regexp.Regexp
	country string
}{
	{regexp.MustCompile(`\b(MwSt|Mehrwertsteuer)\b`), "DE"},
	{regexp.MustCompile(`\bBTW\b`), "NL"},
	{regexp.MustCompile(`\bTVA\b`), "FR"},
	{regexp.MustCompile(`\bIVA\b`), "IT"},
	{regexp.MustCompile(`(?i)\b(faktura vat|podatek vat)\b`), "PL"},
}

// normalizeCountry maps a code or a country name to a known ISO code, "" otherwise.
func normalizeCountry(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if len(v) >= 2 && (len(v) == 2 || v[2] == '-') {
		code := strings.ToUpper(v[:2])
		if _, ok := constants.EUVatRates[code]; ok {
			return code
		}
	}
	return countryNames[strings.ToLower(v)]
}

// detectCountry walks from structured hints to text heuristics.
func detectCountry(doc *goquery.Document, text string) string {
	if c := structuredCountry(doc); c != "" {
		return c
	}
	if m := standortRe.FindStringSubmatch(text); m != nil {
		if c := normalizeCountry(m[1]); c != "" {
			return c
		}
	}
	if c := addressBlockCountry(doc); c != "" {
		return c
	}
	if m := prefixPostalRe.FindStringSubmatch(text); m != nil {
		return postalPrefixes[m[1]]
	}
	for _, m := range dutchPostalRe.FindAllStringSubmatch(text, -1) {
		if !dutchFalsePairs[m[1]] {
			return "NL"
		}
	}
	return taxTermCountry(text)
}

func structuredCountry(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[name="geo.region"]`).First().Attr("content"); ok {
		if c := normalizeCountry(v); c != "" {
			return c
		}
	}
	found := ""
	doc.Find(`[itemprop="addressCountry"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr("content")
		if !ok {
			v = s.Text()
		}
		found = normalizeCountry(v)
		return found == ""
	})
	if found != "" {
		return found
	}
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		found = findAddressCountry(data)
		return found == ""
	})
	return found
}

func findAddressCountry(v interface{}) string {
	switch t := v.(type) {
	case map[string]interface{}:
		if ac, ok := t["addressCountry"]; ok {
			switch x := ac.(type) {
			case string:
				if c := normalizeCountry(x); c != "" {
					return c
				}
			case map[string]interface{}:
				if name, ok := x["name"].(string); ok {
					if c := normalizeCountry(name); c != "" {
						return c
					}
				}
			}
		}
		for _, child := range t {
			if c := findAddressCountry(child); c != "" {
				return c
			}
		}
	case []interface{}:
		for _, child := range t {
			if c := findAddressCountry(child); c != "" {
				return c
			}
		}
	}
	return ""
}

// addressBlockCountry looks for a line that is just a two-letter code.
func addressBlockCountry(doc *goquery.Document) string {
	found := ""
	doc.Find(`address, [class*="address"], [data-testid*="address"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, line := range textLines(s) {
			if twoLetterLineRe.MatchString(line) {
				if c := normalizeCountry(line); c != "" {
					found = c
					return false
				}
			}
		}
		return true
	})
	return found
}

func taxTermCountry(text string) string {
	hit := ""
	for _, t := range taxTerms {
		if t.re.MatchString(text) {
			if hit != "" && hit != t.country {
				return ""
			}
			hit = t.country
		}
	}
	return hit
}
