package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DealActive   = "active"
	DealArchived = "archived"
)

// Deal is a budget-constrained search: "what can I import for BudgetChf?"
type Deal struct {
	ID               uuid.UUID                      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name             string                         `gorm:"column:name;not null" json:"name"`
	BudgetChf        int                            `gorm:"column:budget_chf;not null" json:"budget_chf"`
	Brands           datatypes.JSONSlice[string]    `gorm:"column:brands" json:"brands"`
	Models           datatypes.JSONSlice[string]    `gorm:"column:models" json:"models"`
	YearMin          *int                           `gorm:"column:year_min" json:"year_min"`
	YearMax          *int                           `gorm:"column:year_max" json:"year_max"`
	MileageMax       *int                           `gorm:"column:mileage_max" json:"mileage_max"`
	VatOnly          bool                           `gorm:"column:vat_only;default:false" json:"vat_only"`
	Notes            string                         `gorm:"column:notes" json:"notes"`
	Status           string                         `gorm:"column:status;type:varchar(20);default:'active'" json:"status"`
	PinnedListingIDs datatypes.JSONSlice[uuid.UUID] `gorm:"column:pinned_listing_ids" json:"pinned_listing_ids"`
	LastSearchAt     *time.Time                     `gorm:"column:last_search_at" json:"last_search_at"`
	LastResultCount  int                            `gorm:"column:last_result_count" json:"last_result_count"`
	CreatedAt        time.Time                      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time                      `gorm:"column:updated_at" json:"updated_at"`
}

func (Deal) TableName() string {
	return "deals"
}

func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DealListing is one listing that fit a deal's budget at the last search.
type DealListing struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DealID        uuid.UUID `gorm:"column:deal_id;type:uuid;index;not null" json:"deal_id"`
	ListingID     uuid.UUID `gorm:"column:listing_id;type:uuid;not null" json:"listing_id"`
	MarginMinChf  int       `gorm:"column:margin_min_chf" json:"margin_min_chf"`
	MarginMaxChf  int       `gorm:"column:margin_max_chf" json:"margin_max_chf"`
	CombinedScore float64   `gorm:"column:combined_score" json:"combined_score"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

func (DealListing) TableName() string {
	return "deal_listings"
}

func (d *DealListing) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
