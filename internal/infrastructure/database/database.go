package database

import (
	"fmt"
	"strings"

	"carimport-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// Open opens a GORM DB from DSN (Postgres or a pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind PgBouncer-style poolers.
// A "sqlite:" prefix opens an embedded database instead (local runs and tests).
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return openSQLite(strings.TrimPrefix(dsn, sqlitePrefix), cfg)
	}
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), cfg)
}

// openSQLite pins the pool to one connection: every new connection to
// ":memory:" would otherwise see an empty database.
func openSQLite(path string, cfg *gorm.Config) (*gorm.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Models lists every table the pipeline writes. Tests migrate the same set.
func Models() []interface{} {
	return []interface{}{
		&domain.SearchConfig{},
		&domain.Listing{},
		&domain.Score{},
		&domain.MarketBenchmark{},
		&domain.Deal{},
		&domain.DealListing{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
