package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"capsnap/internal/application/port"
	"capsnap/internal/infrastructure/storage"
)

func Dialect(schema string) storage.Dialect {
	return storage.Dialect{
		Name:        "postgres",
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		Table: func(name string) string {
			if schema == "" {
				return pgx.Identifier{name}.Sanitize()
			}
			return pgx.Identifier{schema, name}.Sanitize()
		},
		ILike: "ILIKE",
	}
}

// Repo reads positions straight from Postgres (e.g. the database behind
// Supabase) using the tables of the given schema.
type Repo struct {
	*storage.SQLGateway
}

func New(ctx context.Context, dsn, schema string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Repo{SQLGateway: storage.NewSQLGateway(db, Dialect(schema))}, nil
}

var _ port.Gateway = (*Repo)(nil)
