package alerts

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"carimport-backend/internal/domain"
)

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"chf": formatCHF,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Car Import Deals</title></head>
<body style="margin:0;padding:24px;background:#F3F4F6;font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;color:#1F2937;">
  <table role="presentation" width="600" style="margin:0 auto;background:#FFFFFF;border-radius:8px;border-collapse:collapse;">
    <tr><td style="padding:32px 40px 8px 40px;">
      <h1 style="font-size:22px;margin:0 0 8px 0;">{{len .Items}} new import {{if eq (len .Items) 1}}deal{{else}}deals{{end}}</h1>
      <p style="margin:0;color:#6B7280;font-size:14px;">Score {{printf "%.0f" .MinScore}} or better · EUR/CHF {{printf "%.4f" .Rate}}</p>
    </td></tr>
    {{range .Items}}
    <tr><td style="padding:16px 40px;border-top:1px solid #E5E7EB;">
      <a href="{{.ListingURL}}" style="color:#007473;font-weight:600;font-size:16px;text-decoration:none;">{{.Title}}</a>
      <p style="margin:6px 0 0 0;font-size:14px;">
        Score <strong>{{printf "%.0f" .Score.CombinedScore}}</strong> ·
        {{.PriceEur}} EUR · landed {{chf .Score.TotalLandedCostChf}} ·
        margin {{chf .Score.EstimatedMarginMinChf}} to {{chf .Score.EstimatedMarginMaxChf}}
      </p>
      {{if .Score.VariantClassification}}<p style="margin:4px 0 0 0;font-size:13px;color:#6B7280;">{{.Score.VariantClassification}}</p>{{end}}
    </td></tr>
    {{end}}
    <tr><td style="padding:24px 40px;color:#9CA3AF;font-size:12px;">Sent {{.SentAt}}</td></tr>
  </table>
</body>
</html>`))

type digestData struct {
	Items    []domain.ListingWithScore
	MinScore float64
	Rate     float64
	SentAt   string
}

// RenderDigest renders the alert email for scored listings. Listings without
// a score are skipped.
func RenderDigest(items []domain.ListingWithScore, minScore, rate float64, now time.Time) (string, error) {
	scored := make([]domain.ListingWithScore, 0, len(items))
	for _, it := range items {
		if it.Score != nil {
			scored = append(scored, it)
		}
	}
	var buf bytes.Buffer
	err := digestTmpl.Execute(&buf, digestData{
		Items:    scored,
		MinScore: minScore,
		Rate:     rate,
		SentAt:   now.UTC().Format("2006-01-02 15:04 UTC"),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatCHF renders whole francs with apostrophe grouping, e.g. CHF 12'500.
func formatCHF(v int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return "CHF " + sign + string(out)
}
