package bootstrap

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/imprimeturecuerdo/memorial-backend/config"
	"github.com/imprimeturecuerdo/memorial-backend/internal/auth"
	"github.com/imprimeturecuerdo/memorial-backend/internal/docstore"
)

// Infra is what every binary shares: the Firebase app, the redis client and
// the document store built over one of them.
type Infra struct {
	App   *firebase.App
	Auth  *fbauth.Client
	Redis *redis.Client
	Store docstore.Store
}

// OpenInfra connects Firebase when the firestore backend or token
// verification needs it, redis always (visit dedupe and the redis backend),
// then the document store.
func OpenInfra(ctx context.Context, cfg *config.Config, needAuth bool, log zerolog.Logger) (*Infra, error) {
	in := &Infra{}

	if needAuth || cfg.Store.Backend == config.StoreFirestore {
		app, authClient, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			return nil, fmt.Errorf("firebase: %w", err)
		}
		in.App, in.Auth = app, authClient
		log.Info().Str("project_id", cfg.Firebase.ProjectID).Msg("firebase initialized")
	}

	rdb, err := OpenRedis(ctx, RedisOptions{Cfg: cfg.Redis})
	if err != nil {
		if cfg.Store.Backend == config.StoreRedis {
			return nil, err
		}
		log.Warn().Err(err).Msg("redis unavailable, visit dedupe disabled")
	} else {
		in.Redis = rdb
	}

	store, err := OpenStore(ctx, cfg, in.App, in.Redis, log)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.Store = store
	log.Info().Str("backend", cfg.Store.Backend).Msg("document store ready")
	return in, nil
}

func (in *Infra) Close() {
	if in.Store != nil {
		_ = in.Store.Close()
	}
	if in.Redis != nil {
		_ = in.Redis.Close()
	}
}
