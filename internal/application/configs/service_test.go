package configs

import (
	"context"
	"testing"

	"carimport-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return &Service{DB: db}
}

func intPtr(v int) *int { return &v }

func TestCreate(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()

	cfg, err := s.Create(ctx, Input{
		Name:     "  Porsche 911 992  ",
		Brands:   []string{"Porsche"},
		Models:   []string{"911"},
		YearMin:  intPtr(2019),
		PriceMax: intPtr(150000),
	})
	require.NoError(t, err)
	assert.Equal(t, "Porsche 911 992", cfg.Name)
	assert.True(t, cfg.IsActive)

	got, err := s.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Porsche"}, []string(got.Brands))
	assert.Equal(t, []string{}, []string(got.FuelTypes))
	require.NotNil(t, got.YearMin)
	assert.Equal(t, 2019, *got.YearMin)
	assert.Nil(t, got.YearMax)
}

func TestCreate_Invalid(t *testing.T) {
	s := setupService(t)
	_, err := s.Create(context.Background(), Input{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = s.Create(context.Background(), Input{Name: " ", Brands: []string{"BMW"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestActiveAndSetActive(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	a, err := s.Create(ctx, Input{Name: "a", Brands: []string{"Porsche"}})
	require.NoError(t, err)
	_, err = s.Create(ctx, Input{Name: "b", Brands: []string{"BMW"}})
	require.NoError(t, err)

	updated, err := s.SetActive(ctx, a.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	active, err := s.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].Name)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.SetActive(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestGetAndDelete_NotFound(t *testing.T) {
	s := setupService(t)
	ctx := context.Background()
	_, err := s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrConfigNotFound)
	assert.ErrorIs(t, s.Delete(ctx, uuid.New()), ErrConfigNotFound)

	cfg, err := s.Create(ctx, Input{Name: "a", Brands: []string{"Porsche"}})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, cfg.ID))
	_, err = s.Get(ctx, cfg.ID)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
