package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const createBestTimesTable = `
	CREATE TABLE IF NOT EXISTS best_times (
		key        TEXT PRIMARY KEY,
		seconds    INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// Postgres keeps best times in the best_times table
type Postgres struct {
	db  *pgxpool.Pool
	log logrus.FieldLogger
}

func NewPostgres(db *pgxpool.Pool, log logrus.FieldLogger) *Postgres {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Postgres{db: db, log: log}
}

// OpenPostgres connects to dsn and creates the best_times table if needed
func OpenPostgres(ctx context.Context, dsn string, log logrus.FieldLogger) (*Postgres, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.Exec(ctx, createBestTimesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating best_times table: %w", err)
	}
	return NewPostgres(db, log), nil
}

func (p *Postgres) Get(key string) (int, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	row := p.db.QueryRow(ctx, `
		SELECT seconds
		FROM best_times
		WHERE key = $1
	`, key)

	var seconds int
	if err := row.Scan(&seconds); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			p.log.WithError(err).WithField("key", key).Error("failed to read best time")
		}
		return 0, false
	}
	return seconds, true
}

// Set records seconds unless a faster time is already stored
func (p *Postgres) Set(key string, seconds int) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	_, err := p.db.Exec(ctx, `
		INSERT INTO best_times (key, seconds)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE
		SET seconds = LEAST(best_times.seconds, EXCLUDED.seconds),
		    updated_at = now()
	`, key, seconds)
	if err != nil {
		p.log.WithError(err).WithField("key", key).Error("failed to save best time")
	}
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
