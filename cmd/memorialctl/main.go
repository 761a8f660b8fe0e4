package main

import (
	"context"
	"fmt"
	"os"

	"github.com/imprimeturecuerdo/memorial-backend/config"
	"github.com/imprimeturecuerdo/memorial-backend/internal/audit"
	"github.com/imprimeturecuerdo/memorial-backend/internal/bootstrap"
	"github.com/imprimeturecuerdo/memorial-backend/internal/cli"
	"github.com/imprimeturecuerdo/memorial-backend/internal/db"
	"github.com/imprimeturecuerdo/memorial-backend/pkg/logger"
)

func main() {
	root := cli.NewRootCmd(open)
	if err := cli.Execute(root); err != nil {
		os.Exit(1)
	}
}

// open uses the same environment as the API server. Logs go to stderr so
// --json output stays clean.
func open(ctx context.Context) (*cli.Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := logger.NewWithWriter(os.Stderr, "warn", cfg.App.Environment)

	infra, err := bootstrap.OpenInfra(ctx, cfg, false, log)
	if err != nil {
		return nil, err
	}

	b := &cli.Backend{Store: infra.Store, Log: log, Close: infra.Close}
	if !db.Enabled(cfg.Database) {
		return b, nil
	}

	database, err := bootstrap.OpenDatabase(ctx, cfg.Database, log)
	if err != nil {
		log.Warn().Err(err).Msg("audit log unavailable")
		return b, nil
	}
	b.Audit = audit.NewRepository(database.SQL)
	b.Close = func() {
		infra.Close()
		database.Close()
	}
	return b, nil
}
