// Package postgres is the relational storage engine.
package postgres

import (
	"context"
	"database/sql"
	"strconv"

	"dishdash-be/internal/account"
	"dishdash-be/internal/catalog"
	"dishdash-be/internal/order"
)

// Store implements the repositories on top of PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ account.Repository = (*Store)(nil)
var _ catalog.Repository = (*Store)(nil)
var _ order.Repository = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Engine() string { return "postgres" }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return translate(err, "ping")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// parseID turns an opaque id into the BIGSERIAL key. ok is false for ids
// that cannot exist in this engine.
func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func formatID(n int64) string {
	return strconv.FormatInt(n, 10)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
