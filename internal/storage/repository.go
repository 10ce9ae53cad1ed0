package storage

import (
	"context"
	"time"

	"github.com/terra-clan/assessment-engine/internal/models"
	"github.com/terra-clan/assessment-engine/internal/navigation"
	"github.com/terra-clan/assessment-engine/internal/session"
)

// SnapshotStore keeps each tab's restorable state between connections
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, tabID string, snap navigation.Snapshot) error
	// LoadSnapshot returns nil, nil when the tab has no snapshot
	LoadSnapshot(ctx context.Context, tabID string) (*navigation.Snapshot, error)
	DeleteSnapshot(ctx context.Context, tabID string) error

	Ping(ctx context.Context) error
	Close() error
}

// Journal is the append-only log of funnel transitions
type Journal interface {
	RecordTransition(ctx context.Context, tabID string, t session.Transition) error
	ListTransitions(ctx context.Context, token string, limit int) ([]*JournalEntry, error)
	// PruneTransitions deletes entries recorded before cutoff
	PruneTransitions(ctx context.Context, cutoff time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// JournalEntry is one recorded funnel transition
type JournalEntry struct {
	ID        int64              `json:"id"`
	TabID     string             `json:"tab_id"`
	Token     string             `json:"token"`
	FromState models.FunnelState `json:"from_state"`
	ToState   models.FunnelState `json:"to_state"`
	CreatedAt time.Time          `json:"created_at"`
}
