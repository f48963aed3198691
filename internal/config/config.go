package config

import (
	"errors"
	"math"
	"strings"
	"time"

	"carimport-backend/internal/pkg/validation"

	"github.com/spf13/viper"
)

var (
	ErrInvalidWeights   = errors.New("score weights must be non-negative and sum to 1")
	ErrInvalidBatchSize = errors.New("batch sizes must be at least 1")
	ErrMissingDatabase  = errors.New("DATABASE_URL is required")
	ErrInvalidAlertMail = errors.New("ALERT_EMAIL is not a valid email address")
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	RedisURL    string

	BrightDataToken string
	BrightDataZone  string // BRIGHTDATA_ZONE, defaults to web_unlocker1
	ScraperAPIKey   string
	OpenAIKey       string
	EurChfOverride  float64 // EUR_CHF_RATE pins the exchange rate when > 0

	BrevoAPIKey   string
	MailFrom      string
	AlertEmail    string // ALERT_EMAIL receives the post-cron deal digest; blank disables it
	AlertMinScore float64

	CronSecretHash      string // bcrypt hash of the bearer secret accepted by /api/v1/cron
	HealthAdminKey      string
	AllowedOriginSuffix string

	FetchTimeout     time.Duration
	FetchRetries     int
	DetailTimeout    time.Duration
	EnrichBatchSize  int
	EnrichBatchDelay time.Duration
	ScoreBatchSize   int
	ScoreBatchDelay  time.Duration
	MaxPages         int
	CronMaxPages     int
	WeightHeuristic  float64
	WeightAI         float64
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("BRIGHTDATA_ZONE", "web_unlocker1")
	viper.SetDefault("FETCH_TIMEOUT_SECONDS", 90)
	viper.SetDefault("FETCH_RETRIES", 3)
	viper.SetDefault("DETAIL_TIMEOUT_SECONDS", 25)
	viper.SetDefault("ENRICH_BATCH_SIZE", 3)
	viper.SetDefault("ENRICH_BATCH_DELAY_MS", 2000)
	viper.SetDefault("SCORE_BATCH_SIZE", 5)
	viper.SetDefault("SCORE_BATCH_DELAY_MS", 1000)
	viper.SetDefault("MAX_PAGES", 10)
	viper.SetDefault("CRON_MAX_PAGES", 5)
	viper.SetDefault("WEIGHT_HEURISTIC", 0.7)
	viper.SetDefault("WEIGHT_AI", 0.3)
	viper.SetDefault("ALERT_MIN_SCORE", 70)

	cfg := &Config{
		Env:                 viper.GetString("APP_ENV"),
		Port:                viper.GetString("PORT"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		BrightDataToken:     viper.GetString("BRIGHTDATA_API_TOKEN"),
		BrightDataZone:      viper.GetString("BRIGHTDATA_ZONE"),
		ScraperAPIKey:       viper.GetString("SCRAPER_API_KEY"),
		OpenAIKey:           viper.GetString("OPENAI_API_KEY"),
		EurChfOverride:      viper.GetFloat64("EUR_CHF_RATE"),
		BrevoAPIKey:         viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		AlertEmail:          viper.GetString("ALERT_EMAIL"),
		AlertMinScore:       viper.GetFloat64("ALERT_MIN_SCORE"),
		CronSecretHash:      viper.GetString("CRON_SECRET_HASH"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		AllowedOriginSuffix: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		FetchTimeout:        time.Duration(viper.GetInt("FETCH_TIMEOUT_SECONDS")) * time.Second,
		FetchRetries:        viper.GetInt("FETCH_RETRIES"),
		DetailTimeout:       time.Duration(viper.GetInt("DETAIL_TIMEOUT_SECONDS")) * time.Second,
		EnrichBatchSize:     viper.GetInt("ENRICH_BATCH_SIZE"),
		EnrichBatchDelay:    time.Duration(viper.GetInt("ENRICH_BATCH_DELAY_MS")) * time.Millisecond,
		ScoreBatchSize:      viper.GetInt("SCORE_BATCH_SIZE"),
		ScoreBatchDelay:     time.Duration(viper.GetInt("SCORE_BATCH_DELAY_MS")) * time.Millisecond,
		MaxPages:            viper.GetInt("MAX_PAGES"),
		CronMaxPages:        viper.GetInt("CRON_MAX_PAGES"),
		WeightHeuristic:     viper.GetFloat64("WEIGHT_HEURISTIC"),
		WeightAI:            viper.GetFloat64("WEIGHT_AI"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.WeightHeuristic < 0 || c.WeightAI < 0 || math.Abs(c.WeightHeuristic+c.WeightAI-1) > 0.001 {
		return ErrInvalidWeights
	}
	if c.EnrichBatchSize < 1 || c.ScoreBatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if c.AlertEmail != "" && !validation.IsValidEmail(c.AlertEmail) {
		return ErrInvalidAlertMail
	}
	if c.DatabaseURL == "" && c.Env != "test" {
		return ErrMissingDatabase
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
