package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/famboard/famboard-backend/api/controllers"
	"github.com/famboard/famboard-backend/api/middleware"
	"github.com/famboard/famboard-backend/internal/captokens"
	"github.com/famboard/famboard-backend/internal/hints"
	"github.com/famboard/famboard-backend/internal/holds"
	"github.com/famboard/famboard-backend/internal/ledger"
	"github.com/famboard/famboard-backend/internal/refunds"
	"github.com/famboard/famboard-backend/internal/rewards"
	"github.com/famboard/famboard-backend/pkg/config"
	"github.com/famboard/famboard-backend/pkg/db"
	"github.com/famboard/famboard-backend/pkg/logger"
	"github.com/famboard/famboard-backend/pkg/redis"
)

// Services bundles the engine services the router exposes.
type Services struct {
	Ledger    ledger.Service
	Holds     holds.Service
	Refunds   refunds.Service
	Rewards   rewards.Service
	Hints     hints.Service
	CapTokens captokens.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	services Services,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.FamilyScope(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/points", func(r chi.Router) {
			r.Post("/earn", controllers.PointsEarn(services.Ledger, logg))
			r.Post("/redeem", controllers.PointsRedeem(services.Ledger, logg))
			r.Get("/balance/{userId}", controllers.PointsBalance(services.Ledger, logg))
			r.Get("/hints/{userId}", controllers.PointsHints(services.Hints, logg))
			r.Get("/entries/{userId}", controllers.PointsEntries(services.Ledger, logg))
		})

		r.Route("/holds", func(r chi.Router) {
			r.Post("/", controllers.HoldCreate(services.Holds, services.Hints, logg))
			r.Get("/{holdId}", controllers.HoldGet(services.Holds, logg))
			r.Post("/{holdId}/approve", controllers.HoldApprove(services.Holds, services.Hints, logg))
			r.Post("/{holdId}/cancel", controllers.HoldCancel(services.Holds, services.Hints, logg))
		})

		r.Route("/refunds", func(r chi.Router) {
			r.Post("/", controllers.RefundCreate(services.Refunds, logg))
			r.Get("/{entryId}/remaining", controllers.RefundRemaining(services.Refunds, logg))
		})

		r.Get("/rewards", controllers.RewardsList(services.Rewards, logg))

		r.Route("/scan", func(r chi.Router) {
			r.Post("/", controllers.Scan(services.CapTokens, logg))
			r.Post("/issue", controllers.ScanIssue(services.CapTokens, logg))
		})
	})

	return r
}
