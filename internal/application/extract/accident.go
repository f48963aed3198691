package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const accidentContextRunes = 40

var (
	damageLabelRe = regexp.MustCompile(`(?i)(unfall|schaden|beschädig|accident|damage|dommage|schade\b|incident|uszkodz)`)
	damageFreeRe  = regexp.MustCompile(`(?i)(unfallfrei|accident[- ]free|schadenfrei|schadefrei)`)

	strongSignals = []string{"totalschaden", "unfallfahrzeug", "unfallwagen"}

	damageKeywords = []string{
		"unfallschaden", "vorschaden", "karosserieschaden", "beschädigt",
		"accident damage", "accidenté", "schadeauto", "incidentato", "accidentado", "uszkodzony",
	}

	negationWords = map[string]bool{
		"kein": true, "keine": true, "keinen": true, "keiner": true, "keinerlei": true, "ohne": true,
		"nicht": true, "nein": true, "no": true, "not": true, "none": true, "without": true,
		"sans": true, "aucun": true, "aucune": true, "non": true, "geen": true, "zonder": true, "nee": true,
		"nessun": true, "nessuno": true, "senza": true, "sin": true, "ningún": true, "bez": true,
		"brak": true, "nie": true, "unfallfrei": true,
	}

	affirmativeWords = map[string]bool{
		"ja": true, "yes": true, "vorhanden": true, "repariert": true, "behoben": true,
		"oui": true, "sì": true, "si": true, "sí": true, "tak": true,
	}
)

// detectAccident runs the layers from most to least precise: structured
// label/value pairs, label rows, strong text signals, then keywords with a
// trailing context window.
func detectAccident(doc *goquery.Document, blocks []string) bool {
	if decided, damaged := structuredPairs(doc); decided {
		return damaged
	}
	if decided, damaged := labelRows(doc); decided {
		return damaged
	}
	return mentionsDamage(blocks)
}

// mentionsDamage applies the free-text layers to each block independently.
func mentionsDamage(blocks []string) bool {
	for _, b := range blocks {
		lower := strings.ToLower(b)
		if hasStrongSignal(lower) || hasAffirmedKeyword(lower) {
			return true
		}
	}
	return false
}

func structuredPairs(doc *goquery.Document) (decided, damaged bool) {
	doc.Find("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		label := normalizeSpace(dt.Text())
		if !damageLabelRe.MatchString(label) {
			return true
		}
		value := normalizeSpace(dt.NextAllFiltered("dd").First().Text())
		if d, dmg := classifyPair(label, value); d {
			decided = true
			damaged = damaged || dmg
		}
		return !damaged
	})
	if damaged {
		return true, true
	}
	doc.Find(`[data-testid*="damage"], [data-testid*="accident"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := normalizeSpace(s.Text())
		label, value := "", text
		if i := strings.Index(text, ":"); i >= 0 {
			label, value = text[:i], strings.TrimSpace(text[i+1:])
		}
		if d, dmg := classifyPair(label, value); d {
			decided = true
			damaged = damaged || dmg
		}
		return !damaged
	})
	return decided, damaged
}

func labelRows(doc *goquery.Document) (decided, damaged bool) {
	check := func(label, value string) bool {
		if !damageLabelRe.MatchString(label) {
			return true
		}
		if d, dmg := classifyPair(label, value); d {
			decided = true
			damaged = damaged || dmg
			return !dmg
		}
		return true
	}
	doc.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.ChildrenFiltered("td, th")
		if cells.Length() < 2 {
			return true
		}
		return check(normalizeSpace(cells.Eq(0).Text()), normalizeSpace(cells.Eq(1).Text()))
	})
	if decided && damaged {
		return true, true
	}
	doc.Find("div, li").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		kids := row.Children()
		if kids.Length() != 2 {
			return true
		}
		return check(normalizeSpace(kids.Eq(0).Text()), normalizeSpace(kids.Eq(1).Text()))
	})
	return decided, damaged
}

// classifyPair reads an explicit answer from a damage label and its value.
// A "damage free" label inverts the answer.
func classifyPair(label, value string) (decided, damaged bool) {
	v := strings.ToLower(value)
	if v == "" {
		return false, false
	}
	invert := damageFreeRe.MatchString(label)
	switch {
	case damageFreeRe.MatchString(v):
		return true, false
	case negationWords[firstWord(v)]:
		return true, invert
	case affirmativeWords[firstWord(v)] || hasStrongSignal(v):
		return true, !invert
	}
	return false, false
}

func hasStrongSignal(lower string) bool {
	for _, kw := range strongSignals {
		for _, idx := range indexAll(lower, kw) {
			if !precededByNegation(lower, idx) {
				return true
			}
		}
	}
	return false
}

func hasAffirmedKeyword(lower string) bool {
	for _, kw := range damageKeywords {
		for _, idx := range indexAll(lower, kw) {
			if precededByNegation(lower, idx) {
				continue
			}
			ctx := trailingContext(lower[idx+len(kw):])
			if ctx == "" || affirmativeWords[firstWord(ctx)] {
				return true
			}
		}
	}
	return false
}

func trailingContext(rest string) string {
	ctx := truncateRunes(rest, accidentContextRunes)
	return strings.TrimLeftFunc(ctx, func(r rune) bool {
		return unicode.IsSpace(r) || r == ':' || r == '-' || r == '–' || r == '=' || r == '?'
	})
}

func precededByNegation(lower string, idx int) bool {
	words := strings.Fields(lower[:idx])
	if len(words) == 0 {
		return false
	}
	return negationWords[trimPunct(words[len(words)-1])]
}

func firstWord(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return trimPunct(f[0])
}

func trimPunct(w string) string {
	return strings.TrimFunc(w, func(r rune) bool { return unicode.IsPunct(r) })
}

func indexAll(s, sub string) []int {
	var out []int
	for off := 0; ; {
		i := strings.Index(s[off:], sub)
		if i < 0 {
			return out
		}
		out = append(out, off+i)
		off += i + len(sub)
	}
}
