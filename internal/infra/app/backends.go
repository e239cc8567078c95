package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/port"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/config"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/database"
	redisinfra "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/infra/redis"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository/memory"
	postgresrepo "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository/postgres"
	redisrepo "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/repository/redis"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

// StateStores holds the shared-state backends of the auth subsystem.
type StateStores struct {
	Sessions    port.SessionStore
	RateLimits  port.RateLimitStore
	Lockouts    port.LockoutStore
	Revocations port.TokenRevocationStore
	OTPReplay   port.OTPReplayStore

	// ActiveSessions is set only for backends that can count sessions cheaply.
	ActiveSessions func() int
	// Prune lists backend-specific cleanup steps for the janitor.
	Prune []usecase.JanitorTask
}

// NewMemoryStores builds single-process stores.
func NewMemoryStores() *StateStores {
	sessions := memory.NewSessionStore()
	rates := memory.NewRateLimitStore()
	expiring := memory.NewExpiringSet()

	return &StateStores{
		Sessions:       sessions,
		RateLimits:     rates,
		Lockouts:       memory.NewLockoutStore(),
		Revocations:    expiring,
		OTPReplay:      expiring,
		ActiveSessions: sessions.Len,
		Prune: []usecase.JanitorTask{
			{Name: "rate_windows", Run: func(context.Context) (int, error) {
				return rates.Prune(timeNow()), nil
			}},
			{Name: "revocations", Run: func(context.Context) (int, error) {
				return expiring.Prune(), nil
			}},
		},
	}
}

// NewRedisStores builds stores shared across instances through Redis.
func NewRedisStores(client *redisinfra.Client, cfg config.RedisSettings) *StateStores {
	rdb := client.Client()
	return &StateStores{
		Sessions:    redisrepo.NewSessionStore(rdb, cfg.SessionPrefix),
		RateLimits:  redisrepo.NewRateLimitRepository(rdb, cfg.RateLimitPrefix),
		Lockouts:    redisrepo.NewLockoutRepository(rdb, cfg.LockoutPrefix),
		Revocations: redisrepo.NewRevocationRepository(rdb, cfg.RevocationPrefix),
		OTPReplay:   redisrepo.NewOTPReplayRepository(rdb, cfg.OTPPrefix),
	}
}

// openDirectory returns the configured directory and, for postgres, the pool
// the caller must close.
func openDirectory(ctx context.Context, cfg *config.AppConfig, hasher port.PasswordHasher, log *zap.Logger) (port.Directory, *pgxpool.Pool, error) {
	switch cfg.Storage.DirectoryBackend {
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres: %w", err)
		}
		return postgresrepo.NewRepositories(pool).Directory, pool, nil
	default:
		dir := memory.NewDirectory()
		seeded, err := seedDirectory(dir, cfg, hasher, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using in-memory admin directory", zap.Int("admins", seeded))
		return dir, nil, nil
	}
}
