package router

import (
	"carimport-backend/internal/application/alerts"
	"carimport-backend/internal/application/benchmarks"
	cfgsvc "carimport-backend/internal/application/configs"
	dealsvc "carimport-backend/internal/application/deals"
	"carimport-backend/internal/application/enrich"
	"carimport-backend/internal/application/exchange"
	"carimport-backend/internal/application/fetch"
	healthsvc "carimport-backend/internal/application/health"
	"carimport-backend/internal/application/importcost"
	listsvc "carimport-backend/internal/application/listings"
	pipesvc "carimport-backend/internal/application/pipeline"
	"carimport-backend/internal/application/scoring"
	"carimport-backend/internal/application/scrape"
	"carimport-backend/internal/config"
	"carimport-backend/internal/infrastructure/cache"
	"carimport-backend/internal/infrastructure/database"
	calchandler "carimport-backend/internal/interfaces/handlers/calculator"
	cfghandler "carimport-backend/internal/interfaces/handlers/configs"
	dealhandler "carimport-backend/internal/interfaces/handlers/deals"
	healthhandler "carimport-backend/internal/interfaces/handlers/health"
	listhandler "carimport-backend/internal/interfaces/handlers/listings"
	pipehandler "carimport-backend/internal/interfaces/handlers/pipeline"
	"carimport-backend/internal/middleware"
	"carimport-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func newScorer(cfg *config.Config, store scoring.Store, bench scoring.BenchmarkLookup, rates scoring.RateSource) *scoring.Service {
	return &scoring.Service{
		Store:      store,
		Benchmarks: bench,
		Rates:      rates,
		Classifier: scoring.NewClassifier(cfg.OpenAIKey),
		Params:     importcost.DefaultParams(),
		Weights:    scoring.Weights{Heuristic: cfg.WeightHeuristic, AI: cfg.WeightAI},
		BatchSize:  cfg.ScoreBatchSize,
		BatchDelay: cfg.ScoreBatchDelay,
	}
}

// CreateApp wires the services and routes. Without DATABASE_URL only the
// health endpoints are mounted.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	rdb, err := cache.Open(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}

	app.Use(middleware.CORS(middleware.CORSConfig{AllowedSuffix: cfg.AllowedOriginSuffix}))
	app.Use(middleware.Tracing())
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	collector := &healthsvc.Collector{Redis: rdb}
	if cfg.Env != "test" {
		collector.Targets = map[string]string{
			"mobile_de":    constants.MobileDeBaseURL,
			"exchange_api": exchange.FrankfurterURL,
		}
	}
	hh := &healthhandler.Handlers{Collector: collector, HealthAdminKey: cfg.HealthAdminKey}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	rates := exchange.NewProvider(cfg.EurChfOverride, rdb)
	calc := &calchandler.Handlers{Rates: rates, Params: importcost.DefaultParams()}
	api := app.Group("/api/v1")
	api.Get("/exchange-rate", calc.ExchangeRate)
	api.Post("/import-cost", calc.ImportCost)

	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set; pipeline routes disabled")
		return app, nil, rdb, nil
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, err
	}
	collector.DB = &gormDBPinger{db: db}

	listings := &listsvc.Service{DB: db}
	configs := &cfgsvc.Service{DB: db}
	bench := &benchmarks.Service{DB: db}

	fetchOpts := fetch.Options{Timeout: cfg.FetchTimeout, Retries: cfg.FetchRetries}
	orchestrator := &scrape.Orchestrator{}
	enricher := enrich.NewService(listings, nil, cfg.EnrichBatchSize, cfg.EnrichBatchDelay, cfg.DetailTimeout)
	if provider, err := fetch.NewProvider(cfg); err == nil {
		client := fetch.NewClient(provider)
		orchestrator = scrape.NewOrchestrator(client, fetchOpts)
		enricher.Fetcher = client
		log.Info().Str("provider", provider.Name()).Msg("Unblocking provider configured")
	} else {
		log.Warn().Err(err).Msg("Scraping disabled")
	}

	scorer := newScorer(cfg, listings, bench, rates)
	notifier := &alerts.Notifier{
		Mailer:   &alerts.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom},
		Listings: listings,
		Rates:    rates,
		Redis:    rdb,
		To:       cfg.AlertEmail,
		MinScore: cfg.AlertMinScore,
	}
	runner := &pipesvc.Runner{
		Configs:      configs,
		Listings:     listings,
		Scraper:      orchestrator,
		Benchmarks:   bench,
		Scorer:       scorer,
		Rates:        rates,
		Redis:        rdb,
		Alerts:       notifier,
		MaxPages:     cfg.MaxPages,
		CronMaxPages: cfg.CronMaxPages,
	}
	deals := &dealsvc.Service{
		DB:       db,
		Listings: listings,
		Scraper:  orchestrator,
		Scorer:   scorer,
		Rates:    rates,
	}

	ph := &pipehandler.Handlers{Runner: runner, Enricher: enricher, Scorer: scorer, Listings: listings}
	api.Post("/scrape", ph.Scrape)
	api.Post("/enrich", ph.Enrich)
	api.Post("/score", ph.Score)
	api.Post("/analyze", ph.Analyze)
	api.Get("/cron", middleware.CronSecret(cfg.CronSecretHash), ph.Cron)
	api.Get("/pipeline/status", ph.Status)

	lh := &listhandler.Handlers{Service: listings}
	api.Get("/listings", lh.List)
	api.Get("/listings/top", lh.Top)
	api.Get("/listings/:id", lh.Get)

	ch := &cfghandler.Handlers{Service: configs}
	api.Get("/configs", ch.List)
	api.Post("/configs", ch.Create)
	api.Patch("/configs/:id", ch.SetActive)
	api.Delete("/configs/:id", ch.Delete)

	dh := &dealhandler.Handlers{Service: deals}
	api.Get("/deals", dh.List)
	api.Post("/deals", dh.Create)
	api.Get("/deals/:id/results", dh.Results)
	api.Post("/deals/:id/search", dh.Search)
	api.Post("/deals/:id/pin", dh.Pin)
	api.Delete("/deals/:id", dh.Delete)

	return app, db, rdb, nil
}
