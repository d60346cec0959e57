package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmcarrell/storefront-backend/api/controllers"
	ordercontrollers "github.com/dmcarrell/storefront-backend/api/controllers/orders"
	"github.com/dmcarrell/storefront-backend/api/middleware"
	"github.com/dmcarrell/storefront-backend/internal/recalc"
	"github.com/dmcarrell/storefront-backend/internal/tax"
	"github.com/dmcarrell/storefront-backend/pkg/config"
	"github.com/dmcarrell/storefront-backend/pkg/db"
	"github.com/dmcarrell/storefront-backend/pkg/logger"
	"github.com/dmcarrell/storefront-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs wired in.
type Deps struct {
	Config       *config.Config
	Log          *logger.Logger
	DB           db.Pinger
	Redis        redis.Pinger
	Recalculator recalc.Service
	TaxProcessor tax.Processor
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Log),
		middleware.RequestID(deps.Log),
		middleware.Logging(deps.Log),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Log, deps.DB, deps.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/recalculate", ordercontrollers.Recalculate(deps.Recalculator, deps.Log))
			r.Post("/quote", ordercontrollers.Quote(deps.Recalculator, deps.Log))
		})

		r.Get("/tax/quote", controllers.TaxQuote(deps.TaxProcessor, deps.Log))
	})

	return r
}
