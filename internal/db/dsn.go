package db

import (
	"fmt"
	"strings"

	"github.com/imprimeturecuerdo/memorial-backend/config"
)

// DSN returns DB_DSN when set, otherwise a key/value connection string built
// from the DB_* fields. Empty means no database is configured.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	if cfg.Host == "" {
		return ""
	}

	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts := []string{
		fmt.Sprintf("host=%s", quote(cfg.Host)),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("user=%s", quote(cfg.User)),
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", quote(cfg.Password)))
	}
	parts = append(parts,
		fmt.Sprintf("dbname=%s", quote(cfg.Name)),
		fmt.Sprintf("sslmode=%s", sslmode),
	)
	return strings.Join(parts, " ")
}

func Enabled(cfg config.DatabaseConfig) bool {
	return DSN(cfg) != ""
}

// quote wraps values containing spaces or quotes per the libpq rules.
func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
