package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// VAT-reclaim phrasing, matched case-insensitively against the page text.
var vatPhrases = []string{
	// de
	"mwst. ausweisbar", "mwst. ausw.", "zzgl. mwst", "zzgl. gesetzlicher mwst",
	"mehrwertsteuer ausweisbar", "nettopreis", "(netto)",
	// fr
	"tva récupérable", "tva deductible", "tva déductible", "hors tva", "prix ht",
	// nl
	"btw aftrekbaar", "btw verrekenbaar", "excl. btw", "exclusief btw",
	// it
	"iva esposta", "iva deducibile", "iva detraibile", "esclusa iva", "iva esclusa",
	// es
	"iva deducible", "iva desgravable", "sin iva",
	// pl
	"faktura vat", "do odliczenia vat", "vat do odliczenia", "netto + vat",
}

var (
	vatPercentRe = regexp.MustCompile(`(?i)\d+\s*%\s*(mwst|tva|btw|iva|vat)\b`)
	vatHookRe    = regexp.MustCompile(`(?i)(^|[\s_-])(vat|mwst)([\s_-]|$)`)
)

// searchVat is the cheap card-level check used on result pages.
func searchVat(text string) bool {
	return strings.Contains(text, "MwSt. ausweisbar") ||
		strings.Contains(text, "MwSt. ausw.") ||
		strings.Contains(text, "Netto")
}

func detectVat(doc *goquery.Document, text string) bool {
	lower := strings.ToLower(text)
	for _, p := range vatPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	if vatPercentRe.MatchString(text) {
		return true
	}
	hook := false
	doc.Find("[data-testid], [class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		testID, _ := s.Attr("data-testid")
		class, _ := s.Attr("class")
		if vatHookRe.MatchString(testID) || vatHookRe.MatchString(class) {
			hook = true
			return false
		}
		return true
	})
	return hook
}
