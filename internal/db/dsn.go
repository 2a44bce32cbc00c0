package db

import (
	"errors"
	"net/url"
	"strings"
)

// WithDBName returns dsn with its database path replaced by database.
// A DSN without a scheme is treated as postgres://.
func WithDBName(dsn, database string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", errors.New("empty DSN")
	}
	database = strings.TrimPrefix(strings.TrimSpace(database), "/")
	if database == "" {
		return "", errors.New("empty database name")
	}
	if !strings.Contains(dsn, "://") {
		dsn = "postgres://" + dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", errors.New("unsupported DSN scheme " + u.Scheme)
	}
	u.Path = "/" + database
	return u.String(), nil
}
