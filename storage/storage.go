package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/ellevenagent/project-dashboard/domain"
)

// Backend kinds reported by Store.Kind and surfaced on /api/tasks and
// /api/health as the data source tag.
const (
	KindPostgres = "postgres"
	KindFile     = "file"
)

// Store is the persistence contract shared by both backends. Upsert returns
// the stored task and whether it was newly created; an update targeting a
// missing id returns the zero task without error (idempotent leniency,
// mirrored by Delete).
type Store interface {
	List(ctx context.Context) ([]domain.Task, error)
	Upsert(ctx context.Context, patch domain.TaskPatch) (domain.Task, bool, error)
	Delete(ctx context.Context, id int64) error
	Kind() string
}

// Config carries the selector inputs read from the environment.
type Config struct {
	DatabaseURL string
	FilePath    string
	Redis       *redis.Client
	CacheTTL    time.Duration
}

const probeTimeout = 5 * time.Second

// Open probes Postgres and falls back to the file backend on any failure.
// The fallback is non-fatal: a missing or unreachable database degrades the
// process, it never aborts startup. The returned store is fixed for the
// process lifetime. When a Redis client is configured the selected backend
// is wrapped in the read-through cache.
func Open(ctx context.Context, cfg Config, logger *log.Logger) Store {
	var store Store
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using file storage")
		store = NewFileStore(cfg.FilePath)
	} else {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		pg, err := OpenPostgres(probeCtx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			logger.Warnf("postgres unavailable, using file storage: %v", err)
			store = NewFileStore(cfg.FilePath)
		} else {
			logger.Info("postgres storage selected")
			store = pg
		}
	}

	if cfg.Redis != nil {
		store = NewCache(store, cfg.Redis, cfg.CacheTTL)
	}
	return store
}
