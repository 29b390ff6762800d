package postgres

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// MustConnectPostgres returns a live *pgxpool.Pool or fatals.
func MustConnectPostgres(dsn string) *pgxpool.Pool {
	if dsn == "" {
		log.Fatal("database DSN is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("pgxpool.Connect failed: %v", err)
	}
	return pool
}
