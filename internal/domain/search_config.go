package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SearchConfig is a named search filter. Nil range bounds mean "no bound".
type SearchConfig struct {
	ID                   uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name                 string                      `gorm:"column:name;not null" json:"name"`
	Brands               datatypes.JSONSlice[string] `gorm:"column:brands" json:"brands"`
	Models               datatypes.JSONSlice[string] `gorm:"column:models" json:"models"`
	YearMin              *int                        `gorm:"column:year_min" json:"year_min"`
	YearMax              *int                        `gorm:"column:year_max" json:"year_max"`
	MileageMax           *int                        `gorm:"column:mileage_max" json:"mileage_max"`
	PriceMin             *int                        `gorm:"column:price_min" json:"price_min"`
	PriceMax             *int                        `gorm:"column:price_max" json:"price_max"`
	FuelTypes            datatypes.JSONSlice[string] `gorm:"column:fuel_types" json:"fuel_types"`
	Transmissions        datatypes.JSONSlice[string] `gorm:"column:transmissions" json:"transmissions"`
	MinExpectedMarginChf *int                        `gorm:"column:min_expected_margin_chf" json:"min_expected_margin_chf"`
	IsActive             bool                        `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt            time.Time                   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt            time.Time                   `gorm:"column:updated_at" json:"updated_at"`
}

func (SearchConfig) TableName() string {
	return "search_configs"
}

func (c *SearchConfig) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
