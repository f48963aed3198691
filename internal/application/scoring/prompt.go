package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"carimport-backend/internal/domain"
)

const descriptionExcerptRunes = 500

// buildPrompt composes the classification prompt. variant is "" when the
// listing is not a recognised 911 trim.
func buildPrompt(l *domain.Listing, b *domain.MarketBenchmark, is911 bool, variant string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert in Porsche vehicles and German-to-Swiss car imports.\n")
	sb.WriteString("Your task is to analyze this listing and classify its specs, then score the overall deal quality.\n")

	if is911 {
		sb.WriteString(`
PORSCHE 911 KNOWLEDGE:
- Variant hierarchy (resale value): GT3 RS > GT2 RS > GT3 > Turbo S > Turbo > GTS > Targa 4S > Carrera 4S > Carrera S > Carrera 4 > Carrera
- Generations: 992 (2019+), 991.2 (2016-2019), 991.1 (2012-2015), 997.2 (2009-2012)
- Manual gearbox commands a premium on 991.1/997 Carrera models; PDK preferred on GT3/Turbo
- Premium colors (add CHF 5-15k): GT Silbermetallic, Kreidefarbe (Chalk), Python-Grün, Haifischblau, Gentianblau, Miami-Blau, Rubinrot
- Standard colors (no premium): Schwarz, Carrara Weiß, normales Silber
- VAT deductible on a 911 saves €15,000–€40,000 depending on price, an enormous advantage
- Full Porsche dealer service history is essential for resale in Switzerland
`)
		if specs, ok := variantKnowledge[variant]; ok {
			fmt.Fprintf(&sb, `
SPEC ANALYSIS FOR %s:
Must-have indicators (flag absence as red flag): %s
High-value specs (significantly increase desirability/resale): %s
Medium-value specs (nice additions): %s
Red flag specs/modifications (reduce value): %s

For keySpecs: list each detected spec with its impact level and a brief note on why it matters.
For missingSpecs: list any must-have or high-value specs that are NOT present in the features/description.
`, variant, strings.Join(specs.mustHave, ", "), strings.Join(specs.highValue, ", "),
				strings.Join(specs.mediumValue, ", "), strings.Join(specs.badSigns, ", "))
		}
	}

	sb.WriteString(`
GENERAL CRITERIA:
- Price vs market benchmark: cheap/fair/expensive?
- VAT deductible: saves the source-country VAT, a critical advantage
- Accident damage: destroys Swiss resale value and complicates import
- Swiss arbitrage: CH resale ~10-15% above DE
- Service history completeness

Listing:
`)
	fmt.Fprintf(&sb, "- Title: %s\n", l.Title)
	fmt.Fprintf(&sb, "- Variant detected: %s\n", orDefault(variant, "Unknown/not 911"))
	fmt.Fprintf(&sb, "- Price: €%s\n", groupThousands(l.PriceEur, "."))
	fmt.Fprintf(&sb, "- Year: %s\n", orDefault(positive(l.FirstRegistrationYear), "Unknown"))
	fmt.Fprintf(&sb, "- Mileage: %s km\n", groupThousands(l.MileageKm, "."))
	fmt.Fprintf(&sb, "- Fuel: %s\n", orDefault(l.FuelType, "Unknown"))
	fmt.Fprintf(&sb, "- Transmission: %s\n", orDefault(l.Transmission, "Unknown"))
	fmt.Fprintf(&sb, "- Power: %s\n", orDefault(l.Power, "Unknown"))
	fmt.Fprintf(&sb, "- Color: %s\n", orDefault(l.Color, "Unknown"))
	fmt.Fprintf(&sb, "- Seller: %s\n", orDefault(l.SellerType, "Unknown"))
	fmt.Fprintf(&sb, "- Location: %s\n", orDefault(l.Location, "Unknown"))
	fmt.Fprintf(&sb, "- Country: %s\n", orDefault(l.Country, "Unknown"))
	if l.VatDeductible {
		sb.WriteString("- VAT deductible: YES, major financial advantage\n")
	} else {
		sb.WriteString("- VAT deductible: No\n")
	}
	if l.HasAccidentDamage {
		sb.WriteString("- Accident damage: YES, major red flag\n")
	} else {
		sb.WriteString("- Accident damage: No\n")
	}
	features := strings.Join(l.Features, ", ")
	fmt.Fprintf(&sb, "- Features/options: %s\n", orDefault(features, "Not specified"))
	if l.Description != "" {
		fmt.Fprintf(&sb, "- Description excerpt: %s\n", truncate(l.Description, descriptionExcerptRunes))
	}
	if b != nil && b.MedianPriceEur > 0 {
		fmt.Fprintf(&sb, "- Market median: €%s\n", groupThousands(b.MedianPriceEur, "."))
	} else {
		sb.WriteString("- Market median: unavailable\n")
	}
	if b != nil && b.EstimatedChResaleMedian > 0 {
		fmt.Fprintf(&sb, "- Est. Swiss resale: CHF %s\n", groupThousands(b.EstimatedChResaleMedian, "'"))
	}

	sb.WriteString(`
Respond ONLY with valid JSON in exactly this format:
{
  "score": <0-100 overall deal quality>,
  "specScore": <0-100 spec desirability for this variant>,
  "variantClassification": "<exact variant name e.g. 'Porsche 911 GT3 992'>",
  "explanation": "<2-3 sentences on overall deal quality and why>",
  "keySpecs": [
    {"spec": "<spec name>", "impact": "<high|medium|low>", "note": "<why it matters for this variant>"}
  ],
  "missingSpecs": ["<spec that would be expected but is absent>"],
  "highlights": ["<concise positive string>"],
  "redFlags": ["<concise concern string>"]
}`)
	return sb.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// groupThousands renders 109900 as "109.900" for sep ".".
func groupThousands(n int, sep string) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []string
	for len(s) > 3 {
		out = append([]string{s[len(s)-3:]}, out...)
		s = s[:len(s)-3]
	}
	out = append([]string{s}, out...)
	res := strings.Join(out, sep)
	if neg {
		res = "-" + res
	}
	return res
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
