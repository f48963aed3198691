package handler

import (
	"encoding/json"
	"net/http"

	"carimport-backend/bootstrap"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Handler is the serverless entry point; the scheduler hits /api/v1/cron here.
func Handler(w http.ResponseWriter, r *http.Request) {
	app, err := bootstrap.App()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "error",
			"error": map[string]interface{}{
				"message":    "Service not configured",
				"statusCode": http.StatusServiceUnavailable,
			},
		})
		return
	}
	r.RequestURI = r.URL.String()
	adaptor.FiberApp(app)(w, r)
}
