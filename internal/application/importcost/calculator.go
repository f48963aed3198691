package importcost

import (
	"math"

	"carimport-backend/internal/pkg/constants"
)

// Params are the CH import regime constants.
type Params struct {
	TransportChf      float64 `json:"transport_chf"`
	WeightKg          float64 `json:"weight_kg"`
	AutomobileTaxRate float64 `json:"automobile_tax_rate"`
	CustomsPer100Kg   float64 `json:"customs_per_100kg_chf"`
	InspectionFeeChf  float64 `json:"inspection_fee_chf"`
	SwissVatRate      float64 `json:"swiss_vat_rate"`
	EmissionTestChf   float64 `json:"emission_test_chf"`
	MviInspectionChf  float64 `json:"mvi_inspection_chf"`
}

func DefaultParams() Params {
	return Params{
		TransportChf:      650,
		WeightKg:          1500,
		AutomobileTaxRate: 0.04,
		CustomsPer100Kg:   15,
		InspectionFeeChf:  20,
		SwissVatRate:      constants.SwissVatRate,
		EmissionTestChf:   100,
		MviInspectionChf:  60,
	}
}

// Input describes one vehicle. Zero TransportChf or WeightKg use the params
// value; zero SourceVatRate means the German rate.
type Input struct {
	PriceEur      int     `json:"price_eur"`
	VatDeductible bool    `json:"vat_deductible"`
	EurChf        float64 `json:"eur_chf"`
	SourceVatRate float64 `json:"source_vat_rate"`
	TransportChf  float64 `json:"transport_chf,omitempty"`
	WeightKg      float64 `json:"weight_kg,omitempty"`
}

// Breakdown is rounded to whole CHF per field; the steps themselves are not rounded.
type Breakdown struct {
	VehiclePriceEur   int `json:"vehicle_price_eur"`
	VehiclePriceChf   int `json:"vehicle_price_chf"`
	SourceVatDeducted int `json:"source_vat_deducted"`
	NetPriceChf       int `json:"net_price_chf"`
	TransportCostChf  int `json:"transport_cost_chf"`
	AutomobileTax     int `json:"automobile_tax"`
	CustomsDuty       int `json:"customs_duty"`
	InspectionFee     int `json:"inspection_fee"`
	SubtotalBeforeVat int `json:"subtotal_before_vat"`
	SwissVat          int `json:"swiss_vat"`
	TotalLandedChf    int `json:"total_landed_cost_chf"`
	EmissionTestChf   int `json:"emission_test_chf"`
	MviInspectionChf  int `json:"mvi_inspection_chf"`
	GrandTotalChf     int `json:"grand_total_chf"`
}

// Calculate computes the landed cost of importing a vehicle into Switzerland.
// CH import VAT is charged on the whole subtotal, transport and taxes included.
func Calculate(in Input, p Params) Breakdown {
	transport := p.TransportChf
	if in.TransportChf > 0 {
		transport = in.TransportChf
	}
	weight := p.WeightKg
	if in.WeightKg > 0 {
		weight = in.WeightKg
	}
	sourceVat := in.SourceVatRate
	if sourceVat <= 0 {
		sourceVat = constants.GermanVatRate
	}

	gross := float64(in.PriceEur) * in.EurChf
	deducted := 0.0
	if in.VatDeductible {
		deducted = gross * (sourceVat / (1 + sourceVat))
	}
	net := gross - deducted
	autoTax := (net + transport) * p.AutomobileTaxRate
	customs := weight / 100 * p.CustomsPer100Kg
	subtotal := net + transport + autoTax + customs + p.InspectionFeeChf
	swissVat := subtotal * p.SwissVatRate
	landed := subtotal + swissVat
	grand := landed + p.EmissionTestChf + p.MviInspectionChf

	return Breakdown{
		VehiclePriceEur:   in.PriceEur,
		VehiclePriceChf:   round(gross),
		SourceVatDeducted: round(deducted),
		NetPriceChf:       round(net),
		TransportCostChf:  round(transport),
		AutomobileTax:     round(autoTax),
		CustomsDuty:       round(customs),
		InspectionFee:     round(p.InspectionFeeChf),
		SubtotalBeforeVat: round(subtotal),
		SwissVat:          round(swissVat),
		TotalLandedChf:    round(landed),
		EmissionTestChf:   round(p.EmissionTestChf),
		MviInspectionChf:  round(p.MviInspectionChf),
		GrandTotalChf:     round(grand),
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
