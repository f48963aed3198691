package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carimport-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the gorm-backed store for listings and their scores.
type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

// UpsertResult reports what UpsertListing did with one raw listing.
type UpsertResult struct {
	ID           uuid.UUID
	Created      bool
	PriceChanged bool
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) FindByExternalID(ctx context.Context, externalID string) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("external_id = ?", externalID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("find listing %s: %w", externalID, err)
	}
	return &listing, nil
}

// UpsertListing inserts a new listing or refreshes the search-page fields of an
// existing one. A changed, non-zero price appends to the price history.
// VatDeductible and HasAccidentDamage are only ever raised here; the detail
// pass owns lowering them.
func (s *Service) UpsertListing(ctx context.Context, raw domain.RawListing, configID *uuid.UUID) (*UpsertResult, error) {
	if raw.ExternalID == "" {
		return nil, ErrMissingExternal
	}
	now := s.now()
	today := now.UTC().Format("2006-01-02")

	existing, err := s.FindByExternalID(ctx, raw.ExternalID)
	if err != nil && !errors.Is(err, ErrListingNotFound) {
		return nil, err
	}

	if existing == nil {
		listing := &domain.Listing{
			ExternalID:             raw.ExternalID,
			ConfigID:               configID,
			Title:                  raw.Title,
			PriceEur:               raw.PriceEur,
			MileageKm:              raw.MileageKm,
			FirstRegistrationYear:  raw.FirstRegistrationYear,
			FirstRegistrationMonth: raw.FirstRegistrationMonth,
			FuelType:               raw.FuelType,
			Transmission:           raw.Transmission,
			Power:                  raw.Power,
			SellerType:             raw.SellerType,
			SellerName:             raw.SellerName,
			Location:               raw.Location,
			Country:                raw.Country,
			ListingURL:             raw.ListingURL,
			ImageURL:               raw.ImageURL,
			BodyType:               raw.BodyType,
			Color:                  raw.Color,
			Features:               datatypes.JSONSlice[string](raw.Features),
			Description:            raw.Description,
			VatDeductible:          raw.VatDeductible,
			HasAccidentDamage:      raw.HasAccidentDamage,
			SourceVatRate:          raw.SourceVatRate,
			PriceHistory:           datatypes.JSONSlice[domain.PriceHistoryEntry]{},
			FirstSeenAt:            now,
			LastSeenAt:             now,
			IsActive:               true,
			CreatedAt:              now,
		}
		if raw.PriceEur > 0 {
			listing.PriceHistory = append(listing.PriceHistory, domain.PriceHistoryEntry{Date: today, Price: raw.PriceEur})
		}
		if err := s.DB.WithContext(ctx).Create(listing).Error; err != nil {
			return nil, fmt.Errorf("create listing %s: %w", raw.ExternalID, err)
		}
		return &UpsertResult{ID: listing.ID, Created: true}, nil
	}

	history := append(datatypes.JSONSlice[domain.PriceHistoryEntry]{}, existing.PriceHistory...)
	priceChanged := raw.PriceEur > 0 && raw.PriceEur != existing.PriceEur
	if priceChanged {
		history = append(history, domain.PriceHistoryEntry{Date: today, Price: raw.PriceEur})
	}
	price := existing.PriceEur
	if raw.PriceEur > 0 {
		price = raw.PriceEur
	}

	updates := map[string]interface{}{
		"price_eur":           price,
		"vat_deductible":      existing.VatDeductible || raw.VatDeductible,
		"has_accident_damage": existing.HasAccidentDamage || raw.HasAccidentDamage,
		"price_history":       history,
		"last_seen_at":        now,
		"is_active":           true,
	}
	// Blank card fields leave the stored (possibly detail-enriched) value alone.
	for col, v := range map[string]string{
		"title":        raw.Title,
		"fuel_type":    raw.FuelType,
		"transmission": raw.Transmission,
		"power":        raw.Power,
		"seller_type":  raw.SellerType,
		"seller_name":  raw.SellerName,
		"location":     raw.Location,
		"image_url":    raw.ImageURL,
	} {
		if v != "" {
			updates[col] = v
		}
	}
	if raw.MileageKm > 0 {
		updates["mileage_km"] = raw.MileageKm
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Listing{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update listing %s: %w", raw.ExternalID, err)
	}
	return &UpsertResult{ID: existing.ID, PriceChanged: priceChanged}, nil
}

// ApplyPatch writes the non-nil detail-page overrides onto one listing.
func (s *Service) ApplyPatch(ctx context.Context, id uuid.UUID, patch domain.ListingPatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	res := s.DB.WithContext(ctx).Model(&domain.Listing{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("patch listing %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}

// ExistingExternalIDs returns every external id already stored.
func (s *Service) ExistingExternalIDs(ctx context.Context) (map[string]bool, error) {
	var ids []string
	if err := s.DB.WithContext(ctx).Model(&domain.Listing{}).Pluck("external_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("load external ids: %w", err)
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return known, nil
}

func (s *Service) ActiveListings(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).Where("is_active = ?", true).Order("first_seen_at ASC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("load active listings: %w", err)
	}
	return listings, nil
}

// UnscoredListings returns active listings that have no score row yet.
func (s *Service) UnscoredListings(ctx context.Context) ([]domain.Listing, error) {
	db := s.DB.WithContext(ctx)
	var listings []domain.Listing
	scored := db.Model(&domain.Score{}).Select("listing_id")
	if err := db.Where("is_active = ? AND id NOT IN (?)", true, scored).Order("first_seen_at ASC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("load unscored listings: %w", err)
	}
	return listings, nil
}

// ListingsByIDs loads listings in the given order, skipping ids that do not exist.
func (s *Service) ListingsByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Listing, error) {
	if len(ids) == 0 {
		return []domain.Listing{}, nil
	}
	var rows []domain.Listing
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	byID := make(map[uuid.UUID]domain.Listing, len(rows))
	for _, l := range rows {
		byID[l.ID] = l
	}
	out := make([]domain.Listing, 0, len(rows))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// UpsertScore replaces the score of sc.ListingID. sc.ID is set to the stored row id.
func (s *Service) UpsertScore(ctx context.Context, sc *domain.Score) error {
	if sc.ScoredAt.IsZero() {
		sc.ScoredAt = s.now()
	}
	db := s.DB.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}},
		UpdateAll: true,
	}).Create(sc).Error
	if err != nil {
		return fmt.Errorf("upsert score for %s: %w", sc.ListingID, err)
	}
	var stored domain.Score
	if err := db.Select("id").Where("listing_id = ?", sc.ListingID).First(&stored).Error; err != nil {
		return fmt.Errorf("reload score for %s: %w", sc.ListingID, err)
	}
	sc.ID = stored.ID
	return nil
}

func (s *Service) GetWithScore(ctx context.Context, id uuid.UUID) (*domain.ListingWithScore, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	out, err := s.attachScores(ctx, []domain.Listing{listing})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (s *Service) attachScores(ctx context.Context, listings []domain.Listing) ([]domain.ListingWithScore, error) {
	out := make([]domain.ListingWithScore, len(listings))
	if len(listings) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	var scores []domain.Score
	if err := s.DB.WithContext(ctx).Where("listing_id IN ?", ids).Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	byListing := make(map[uuid.UUID]*domain.Score, len(scores))
	for i := range scores {
		byListing[scores[i].ListingID] = &scores[i]
	}
	for i, l := range listings {
		out[i] = domain.ListingWithScore{Listing: l, Score: byListing[l.ID]}
	}
	return out, nil
}
