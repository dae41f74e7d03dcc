package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	healthAPI "pantrykeeper/internal/app/server/api/http/health"
	"pantrykeeper/internal/app/server/api/http/middleware"
	"pantrykeeper/internal/app/server/api/http/middleware/auth"
	loggerMW "pantrykeeper/internal/app/server/api/http/middleware/logger"
	syncAPI "pantrykeeper/internal/app/server/api/http/sync"
	"pantrykeeper/internal/app/server/config"
	"pantrykeeper/internal/domain/entitlement"
	"pantrykeeper/internal/domain/sync"
	"pantrykeeper/internal/infrastructure/storage/postgres"
)

type Handlers struct {
	Health *healthAPI.Handler
	Sync   *syncAPI.Handler
}

// New builds the chi mux with every operation registered through huma.
func New(cfg *config.Config, storage *postgres.Storage, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	humaCfg := huma.DefaultConfig("PantryKeeper Sync API", "1.0.0")
	humaCfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, humaCfg)

	h := handlers(cfg, storage, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(cfg *config.Config, storage *postgres.Storage, log *slog.Logger) *Handlers {
	authMW := auth.New(cfg.Auth.Secret, log)
	logMW := loggerMW.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(logMW.Middleware())
	healthHandler := healthAPI.NewHandler(storage, log, middlewares.GetAllAndClear())

	userRepo := postgres.NewUserRepository(storage, log)
	gates := entitlement.NewService(userRepo, cfg.Plans, log)
	syncRepo := postgres.NewSyncRepository(storage, log)
	syncService := sync.NewService(syncRepo, userRepo, gates, log)
	middlewares.Add(logMW.Middleware())
	middlewares.Add(authMW.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
	}
}
