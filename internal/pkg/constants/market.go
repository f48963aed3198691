package constants

import "strings"

const (
	PrimaryMarketCountry = "DE"
	GermanVatRate        = 0.19
	SwissVatRate         = 0.081

	// CHResalePremium is the factor applied to a converted EUR asking price
	// when no better resale source exists.
	CHResalePremium = 1.12

	AverageKmPerYear = 15000

	// FallbackEurChf is used when no live or cached rate is available.
	FallbackEurChf = 0.94
)

// EUVatRates holds standard VAT rates by ISO country code.
var EUVatRates = map[string]float64{
	"DE": 0.19, "AT": 0.20, "FR": 0.20, "IT": 0.22, "NL": 0.21, "BE": 0.21,
	"ES": 0.21, "PT": 0.23, "PL": 0.23, "SE": 0.25, "DK": 0.25, "FI": 0.24,
	"NO": 0.25, "CZ": 0.21, "HU": 0.27, "RO": 0.19, "HR": 0.25, "SK": 0.20,
	"SI": 0.22, "BG": 0.20, "EE": 0.22, "LV": 0.21, "LT": 0.21, "LU": 0.17,
	"MT": 0.18, "CY": 0.19, "GR": 0.24, "IE": 0.23, "GB": 0.20,
	"CH": SwissVatRate,
}

// VatRateForCountry returns the standard rate for a country code, DE when unknown.
func VatRateForCountry(country string) float64 {
	if country == "" {
		country = PrimaryMarketCountry
	}
	if r, ok := EUVatRates[strings.ToUpper(country)]; ok {
		return r
	}
	return GermanVatRate
}
