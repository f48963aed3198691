package scrape

import (
	"net/url"
	"strconv"

	"carimport-backend/internal/domain"
	"carimport-backend/internal/pkg/constants"
)

// BuildSearchURL maps a search config onto a mobile.de result-page URL.
// Brands and models without a known id are dropped from the ms filter.
func BuildSearchURL(cfg domain.SearchConfig, page int) string {
	q := url.Values{}
	q.Set("dam", "0")
	q.Set("isSearchRequest", "true")
	q.Set("s", "Car")
	q.Set("vc", "Car")
	q.Set("sfmr", "false")

	for _, brand := range cfg.Brands {
		makeID, ok := constants.MobileDeMakeIDs[brand]
		if !ok {
			continue
		}
		var modelIDs []string
		for _, model := range cfg.Models {
			if id, ok := constants.MobileDeModelIDs[brand][model]; ok {
				modelIDs = append(modelIDs, id)
			}
		}
		if len(modelIDs) == 0 {
			q.Add("ms", makeID+";;;")
			continue
		}
		for _, id := range modelIDs {
			q.Add("ms", makeID+";;"+id+";")
		}
	}

	if r := rangeParam(cfg.YearMin, cfg.YearMax); r != "" {
		q.Set("fr", r)
	}
	if cfg.MileageMax != nil && *cfg.MileageMax > 0 {
		q.Set("ml", ":"+strconv.Itoa(*cfg.MileageMax))
	}
	if r := rangeParam(cfg.PriceMin, cfg.PriceMax); r != "" {
		q.Set("p", r)
	}
	for _, ft := range cfg.FuelTypes {
		if v, ok := constants.FuelTypeParams[ft]; ok {
			q.Add("ft", v)
		}
	}
	for _, tr := range cfg.Transmissions {
		if v, ok := constants.TransmissionParams[tr]; ok {
			q.Add("tr", v)
		}
	}
	if page > 1 {
		q.Set("pageNumber", strconv.Itoa(page))
	}
	q.Set("sb", "doc")

	return constants.MobileDeSearchURL + "?" + q.Encode()
}

// rangeParam renders "min:max" with either side optional, "" when both are unset.
func rangeParam(min, max *int) string {
	lo, hi := "", ""
	if min != nil && *min > 0 {
		lo = strconv.Itoa(*min)
	}
	if max != nil && *max > 0 {
		hi = strconv.Itoa(*max)
	}
	if lo == "" && hi == "" {
		return ""
	}
	return lo + ":" + hi
}
