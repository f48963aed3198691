package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SellerDealer  = "dealer"
	SellerPrivate = "private"
)

// RawListing is one vehicle offer as extracted from a search-results page.
// Fields the extractor could not determine stay at their zero value.
type RawListing struct {
	ExternalID             string   `json:"external_id"`
	Title                  string   `json:"title"`
	PriceEur               int      `json:"price_eur"`
	MileageKm              int      `json:"mileage_km"`
	FirstRegistrationYear  int      `json:"first_registration_year"`
	FirstRegistrationMonth int      `json:"first_registration_month"`
	FuelType               string   `json:"fuel_type"`
	Transmission           string   `json:"transmission"`
	Power                  string   `json:"power"`
	SellerType             string   `json:"seller_type"`
	SellerName             string   `json:"seller_name"`
	Location               string   `json:"location"`
	Country                string   `json:"country"`
	ListingURL             string   `json:"listing_url"`
	ImageURL               string   `json:"image_url"`
	BodyType               string   `json:"body_type"`
	Color                  string   `json:"color"`
	Features               []string `json:"features"`
	Description            string   `json:"description"`
	VatDeductible          bool     `json:"vat_deductible"`
	HasAccidentDamage      bool     `json:"has_accident_damage"`
	SourceVatRate          float64  `json:"source_vat_rate"`
}

// PriceHistoryEntry is one observed asking price. Date is formatted 2006-01-02.
type PriceHistoryEntry struct {
	Date  string `json:"date"`
	Price int    `json:"price"`
}

// Listing is the persisted form of a RawListing plus tracking fields.
type Listing struct {
	ID                     uuid.UUID                             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ExternalID             string                                `gorm:"column:external_id;uniqueIndex;not null" json:"external_id"`
	ConfigID               *uuid.UUID                            `gorm:"column:config_id;type:uuid" json:"config_id"`
	Title                  string                                `gorm:"column:title;not null" json:"title"`
	PriceEur               int                                   `gorm:"column:price_eur" json:"price_eur"`
	MileageKm              int                                   `gorm:"column:mileage_km" json:"mileage_km"`
	FirstRegistrationYear  int                                   `gorm:"column:first_registration_year" json:"first_registration_year"`
	FirstRegistrationMonth int                                   `gorm:"column:first_registration_month" json:"first_registration_month"`
	FuelType               string                                `gorm:"column:fuel_type" json:"fuel_type"`
	Transmission           string                                `gorm:"column:transmission" json:"transmission"`
	Power                  string                                `gorm:"column:power" json:"power"`
	SellerType             string                                `gorm:"column:seller_type;type:varchar(20)" json:"seller_type"`
	SellerName             string                                `gorm:"column:seller_name" json:"seller_name"`
	Location               string                                `gorm:"column:location" json:"location"`
	Country                string                                `gorm:"column:country;type:varchar(2)" json:"country"`
	ListingURL             string                                `gorm:"column:listing_url;not null" json:"listing_url"`
	ImageURL               string                                `gorm:"column:image_url" json:"image_url"`
	BodyType               string                                `gorm:"column:body_type" json:"body_type"`
	Color                  string                                `gorm:"column:color" json:"color"`
	Features               datatypes.JSONSlice[string]           `gorm:"column:features" json:"features"`
	Description            string                                `gorm:"column:description" json:"description"`
	VatDeductible          bool                                  `gorm:"column:vat_deductible;default:false" json:"vat_deductible"`
	HasAccidentDamage      bool                                  `gorm:"column:has_accident_damage;default:false" json:"has_accident_damage"`
	SourceVatRate          float64                               `gorm:"column:source_vat_rate" json:"source_vat_rate"`
	PriceHistory           datatypes.JSONSlice[PriceHistoryEntry] `gorm:"column:price_history" json:"price_history"`
	FirstSeenAt            time.Time                             `gorm:"column:first_seen_at" json:"first_seen_at"`
	LastSeenAt             time.Time                             `gorm:"column:last_seen_at" json:"last_seen_at"`
	IsActive               bool                                  `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt              time.Time                             `gorm:"column:created_at" json:"created_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Brand is the first title word; the site puts the make first.
func (l *Listing) Brand() string {
	return titleWords(l.Title, 0, 1)
}

// Model is the second and third title words.
func (l *Listing) Model() string {
	return titleWords(l.Title, 1, 3)
}

// ListingPatch carries optional overrides from a detail page. Nil means "leave as is".
type ListingPatch struct {
	VatDeductible     *bool
	HasAccidentDamage *bool
	Country           *string
	SourceVatRate     *float64
	Description       *string
	Features          []string
	SellerName        *string
	Color             *string
	BodyType          *string
}

// Apply writes every non-nil override onto l.
func (p ListingPatch) Apply(l *Listing) {
	if p.VatDeductible != nil {
		l.VatDeductible = *p.VatDeductible
	}
	if p.HasAccidentDamage != nil {
		l.HasAccidentDamage = *p.HasAccidentDamage
	}
	if p.Country != nil {
		l.Country = *p.Country
	}
	if p.SourceVatRate != nil {
		l.SourceVatRate = *p.SourceVatRate
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if len(p.Features) > 0 {
		l.Features = append(datatypes.JSONSlice[string]{}, p.Features...)
	}
	if p.SellerName != nil {
		l.SellerName = *p.SellerName
	}
	if p.Color != nil {
		l.Color = *p.Color
	}
	if p.BodyType != nil {
		l.BodyType = *p.BodyType
	}
}

// Columns returns the patch as a gorm column map for a partial update.
func (p ListingPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.VatDeductible != nil {
		cols["vat_deductible"] = *p.VatDeductible
	}
	if p.HasAccidentDamage != nil {
		cols["has_accident_damage"] = *p.HasAccidentDamage
	}
	if p.Country != nil {
		cols["country"] = *p.Country
	}
	if p.SourceVatRate != nil {
		cols["source_vat_rate"] = *p.SourceVatRate
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if len(p.Features) > 0 {
		cols["features"] = datatypes.JSONSlice[string](p.Features)
	}
	if p.SellerName != nil {
		cols["seller_name"] = *p.SellerName
	}
	if p.Color != nil {
		cols["color"] = *p.Color
	}
	if p.BodyType != nil {
		cols["body_type"] = *p.BodyType
	}
	return cols
}
