package bootstrap

import (
	"sync"

	"carimport-backend/internal/config"
	"carimport-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

var (
	once   sync.Once
	app    *fiber.App
	appErr error
)

// App builds the Fiber app on first use and reuses it for every warm
// invocation. A failed build is remembered; the next cold start retries.
func App() (*fiber.App, error) {
	once.Do(func() {
		app, appErr = New()
		if appErr != nil {
			log.Error().Err(appErr).Msg("Serverless app build failed")
		}
	})
	return app, appErr
}

// New loads config and builds a fresh app without touching the cached one.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	a, _, _, err := router.CreateApp(cfg)
	return a, err
}
