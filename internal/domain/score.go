package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// KeySpec is one equipment item the AI classifier judged relevant for the variant.
type KeySpec struct {
	Spec   string `json:"spec"`
	Impact string `json:"impact"`
	Note   string `json:"note"`
}

// Score is the ranking record for one listing. Replaced wholesale on every scoring pass.
type Score struct {
	ID                     uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID              uuid.UUID                   `gorm:"column:listing_id;type:uuid;uniqueIndex;not null" json:"listing_id"`
	HeuristicScore         float64                     `gorm:"column:heuristic_score" json:"heuristic_score"`
	AIScore                float64                     `gorm:"column:ai_score" json:"ai_score"`
	CombinedScore          float64                     `gorm:"column:combined_score" json:"combined_score"`
	PriceDeltaPercent      float64                     `gorm:"column:price_delta_percent" json:"price_delta_percent"`
	EstimatedResaleMinChf  int                         `gorm:"column:estimated_resale_min_chf" json:"estimated_resale_min_chf"`
	EstimatedResaleMedChf  int                         `gorm:"column:estimated_resale_median_chf" json:"estimated_resale_median_chf"`
	EstimatedResaleMaxChf  int                         `gorm:"column:estimated_resale_max_chf" json:"estimated_resale_max_chf"`
	ResaleSource           string                      `gorm:"column:resale_source;type:varchar(20)" json:"resale_source"`
	EstimatedMarginMinChf  int                         `gorm:"column:estimated_margin_min_chf" json:"estimated_margin_min_chf"`
	EstimatedMarginMaxChf  int                         `gorm:"column:estimated_margin_max_chf" json:"estimated_margin_max_chf"`
	TotalLandedCostChf     int                         `gorm:"column:total_landed_cost_chf" json:"total_landed_cost_chf"`
	AIExplanation          string                      `gorm:"column:ai_explanation" json:"ai_explanation"`
	RedFlags               datatypes.JSONSlice[string] `gorm:"column:red_flags" json:"red_flags"`
	Highlights             datatypes.JSONSlice[string] `gorm:"column:highlights" json:"highlights"`
	SpecScore              float64                     `gorm:"column:spec_score" json:"spec_score"`
	KeySpecs               datatypes.JSONSlice[KeySpec] `gorm:"column:key_specs" json:"key_specs"`
	MissingSpecs           datatypes.JSONSlice[string] `gorm:"column:missing_specs" json:"missing_specs"`
	VariantClassification  string                      `gorm:"column:variant_classification" json:"variant_classification"`
	ScoredAt               time.Time                   `gorm:"column:scored_at" json:"scored_at"`
}

func (Score) TableName() string {
	return "scores"
}

func (s *Score) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ListingWithScore joins a listing with its score (nil when not scored yet).
type ListingWithScore struct {
	Listing
	Score *Score `json:"score"`
}
