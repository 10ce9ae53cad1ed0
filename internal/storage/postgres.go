package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/assessment-engine/internal/models"
	"github.com/terra-clan/assessment-engine/internal/session"
)

const defaultListLimit = 100

// PostgresJournal implements Journal using PostgreSQL
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresJournal creates a new PostgreSQL journal
func NewPostgresJournal(ctx context.Context, cfg PostgresConfig) (*PostgresJournal, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 1
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresJournal{pool: pool}, nil
}

// Pool exposes the connection pool for migrations
func (j *PostgresJournal) Pool() *pgxpool.Pool {
	return j.pool
}

// Ping checks database connectivity
func (j *PostgresJournal) Ping(ctx context.Context) error {
	return j.pool.Ping(ctx)
}

// Close closes the database connection pool
func (j *PostgresJournal) Close() error {
	j.pool.Close()
	return nil
}

// RecordTransition appends one funnel transition
func (j *PostgresJournal) RecordTransition(ctx context.Context, tabID string, t session.Transition) error {
	query := `
		INSERT INTO funnel_transitions (tab_id, token, from_state, to_state, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := j.pool.Exec(ctx, query,
		tabID,
		nullString(t.Token),
		string(t.From),
		string(t.To),
		t.At,
	)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}

	return nil
}

// ListTransitions returns the transitions recorded for a token, oldest first
func (j *PostgresJournal) ListTransitions(ctx context.Context, token string, limit int) ([]*JournalEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, tab_id, token, from_state, to_state, created_at
		FROM funnel_transitions
		WHERE token = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`

	rows, err := j.pool.Query(ctx, query, token, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	var entries []*JournalEntry

	for rows.Next() {
		var e JournalEntry
		var tok sql.NullString
		var from, to string

		if err := rows.Scan(&e.ID, &e.TabID, &tok, &from, &to, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}

		e.Token = tok.String
		e.FromState = models.FunnelState(from)
		e.ToState = models.FunnelState(to)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transitions: %w", err)
	}

	return entries, nil
}

// PruneTransitions deletes transitions recorded before cutoff
func (j *PostgresJournal) PruneTransitions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := j.pool.Exec(ctx, `DELETE FROM funnel_transitions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transitions: %w", err)
	}
	return result.RowsAffected(), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
