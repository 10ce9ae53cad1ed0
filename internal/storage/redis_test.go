package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/assessment-engine/internal/models"
	"github.com/terra-clan/assessment-engine/internal/navigation"
	"github.com/terra-clan/assessment-engine/internal/session"
	"github.com/terra-clan/assessment-engine/internal/timer"
)

func newTestStore(t *testing.T, ttl time.Duration) (*RedisSnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisSnapshotStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisSnapshotStore_SaveLoad(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	checkpoint := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := navigation.Snapshot{
		Funnel: session.Snapshot{
			State:            models.FunnelRunning,
			Token:            "abc123",
			DocumentUploaded: true,
			Session: &models.AssessmentSession{
				ID:               "9",
				Token:            "t9",
				DurationMinutes:  45,
				RemainingSeconds: 2700,
				RepoFiles:        []models.RepoFile{{Path: "main.go", Content: "package main"}},
			},
		},
		Countdown: timer.Countdown{Remaining: 2700, Checkpoint: checkpoint},
	}

	if err := store.SaveSnapshot(ctx, "tab-1", snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	got, err := store.LoadSnapshot(ctx, "tab-1")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if got.Funnel.State != models.FunnelRunning || got.Funnel.Token != "abc123" {
		t.Errorf("unexpected funnel: %+v", got.Funnel)
	}
	if got.Funnel.Session == nil || got.Funnel.Session.ID != "9" || len(got.Funnel.Session.RepoFiles) != 1 {
		t.Errorf("unexpected session: %+v", got.Funnel.Session)
	}
	if !got.Countdown.Checkpoint.Equal(checkpoint) || got.Countdown.Remaining != 2700 {
		t.Errorf("unexpected countdown: %+v", got.Countdown)
	}
}

func TestRedisSnapshotStore_Missing(t *testing.T) {
	store, _ := newTestStore(t, time.Hour)

	got, err := store.LoadSnapshot(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestRedisSnapshotStore_TTL(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	snap := navigation.Snapshot{Funnel: session.Snapshot{State: models.FunnelInvited, Token: "abc123"}}
	if err := store.SaveSnapshot(ctx, "tab-1", snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if ttl := mr.TTL(snapshotKey("tab-1")); ttl != time.Minute {
		t.Errorf("expected 1m TTL, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	got, err := store.LoadSnapshot(ctx, "tab-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("snapshot should have expired")
	}
}

func TestRedisSnapshotStore_Delete(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	snap := navigation.Snapshot{Funnel: session.Snapshot{State: models.FunnelInvited, Token: "abc123"}}
	if err := store.SaveSnapshot(ctx, "tab-1", snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := store.DeleteSnapshot(ctx, "tab-1"); err != nil {
		t.Fatalf("DeleteSnapshot failed: %v", err)
	}
	if mr.Exists(snapshotKey("tab-1")) {
		t.Error("key still exists after delete")
	}
}

func TestRedisSnapshotStore_Corrupt(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	mr.Set(snapshotKey("tab-1"), "{not json")

	if _, err := store.LoadSnapshot(context.Background(), "tab-1"); err == nil {
		t.Error("expected unmarshal error")
	}
}

func TestRedisSnapshotStore_Ping(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	mr.Close()
	if err := store.Ping(context.Background()); err == nil {
		t.Error("expected ping error after server close")
	}
}
