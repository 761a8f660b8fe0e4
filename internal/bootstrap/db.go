package bootstrap

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/config"
	"github.com/imprimeturecuerdo/memorial-backend/internal/db"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore/firestore"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore/redisstore"
)

type RedisOptions struct {
	Cfg    config.RedisConfig
	PingTO time.Duration
}

func OpenRedis(ctx context.Context, opt RedisOptions) (*redis.Client, error) {
	if opt.Cfg.Addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is not set")
	}
	if opt.PingTO == 0 {
		opt.PingTO = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opt.Cfg.Addr,
		Password: opt.Cfg.Password,
		DB:       opt.Cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, opt.PingTO)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// OpenStore picks the document store backend. The firestore backend needs
// the Firebase app; the redis backend reuses the shared client.
func OpenStore(ctx context.Context, cfg *config.Config, app *firebase.App, rdb *redis.Client, log zerolog.Logger) (docstore.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreFirestore:
		if app == nil {
			return nil, fmt.Errorf("firestore backend needs an initialized Firebase app")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		return firestore.New(client, log), nil
	case config.StoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis backend needs a redis client")
		}
		return redisstore.New(rdb, cfg.Redis.Prefix, log), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// OpenDatabase connects and migrates Postgres. It returns nil without error
// when neither DB_DSN nor DB_HOST is set: visitors, audit and snapshots are then disabled.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*db.DB, error) {
	if !db.Enabled(cfg) {
		log.Warn().Msg("no database configured, audit log and visitor directory disabled")
		return nil, nil
	}

	d, err := db.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(cfg.MigrationsPath); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}
