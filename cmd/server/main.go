package main

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/rentiva/car-rental-backend/internal/auth"
	"github.com/rentiva/car-rental-backend/internal/config"
	"github.com/rentiva/car-rental-backend/internal/database"
	"github.com/rentiva/car-rental-backend/internal/handler"
	"github.com/rentiva/car-rental-backend/internal/logger"
	"github.com/rentiva/car-rental-backend/internal/middleware"
	"github.com/rentiva/car-rental-backend/internal/queue"
	"github.com/rentiva/car-rental-backend/internal/repository"
	"github.com/rentiva/car-rental-backend/internal/router"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable: rate limiting and response caching disabled, token revocation is in-process only")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	cars := repository.NewCarRepo(db)

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays)
	revoker := auth.NewRevoker(rdb)
	events := queue.NewPublisher(log)

	svc := auth.NewService(users, tokens, hasher, issuer, revoker, events, log, cfg.RefreshChainMax)

	// Audit consumer and refresh-token table pruning run for the lifetime of
	// the process.
	go queue.StartAuthEventConsumer(log)
	go pruneRefreshTokens(tokens, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	authMW := middleware.JWTAuth(issuer, revoker)
	limitMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cacheCfg := config.LoadCacheConfig()
	cacheMW := middleware.NewRedisCache(cacheCfg, rdb)
	invalidateMW := middleware.NewCatalogInvalidator(cacheCfg, rdb)

	authHandler := handler.NewAuthHandler(svc, log)
	userHandler := handler.NewUserHandler(authHandler, users)
	carHandler := handler.NewCarHandler(cars, log)
	healthHandler := handler.NewHealthHandler(db)

	router.RegisterHealth(e, healthHandler)
	router.RegisterAuth(e, authHandler, userHandler, authMW, limitMW)
	router.RegisterCars(e, carHandler, authMW, cacheMW, invalidateMW)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")

	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// pruneRefreshTokens deletes long-expired refresh token rows daily so the
// table stays bounded by active sessions, not the full token history.  Rows
// are kept for a grace day past expiry so a replayed token still reads as
// expired rather than unknown.
func pruneRefreshTokens(tokens *repository.TokenRepo, log zerolog.Logger) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		n, err := tokens.DeleteExpired(ctx, time.Now().UTC().Add(-24*time.Hour))
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("refresh token pruning failed")
			continue
		}
		if n > 0 {
			log.Info().Int64("rows", n).Msg("pruned expired refresh tokens")
		}
	}
}
