package storage

import (
	"context"
	"os"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/assessment-engine/internal/models"
	"github.com/terra-clan/assessment-engine/internal/session"
)

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql":     {Data: []byte("SELECT 2;")},
		"001_a.sql":     {Data: []byte("SELECT 1;")},
		"README.md":     {Data: []byte("notes")},
		"old/003_c.sql": {Data: []byte("SELECT 3;")},
	}

	got, err := listMigrations(fsys)
	if err != nil {
		t.Fatalf("listMigrations failed: %v", err)
	}
	if len(got) != 2 || got[0] != "001_a.sql" || got[1] != "002_b.sql" {
		t.Errorf("unexpected migrations: %v", got)
	}
}

func TestMigrationSource_Embedded(t *testing.T) {
	fsys, err := MigrationSource("")
	if err != nil {
		t.Fatalf("MigrationSource failed: %v", err)
	}

	got, err := listMigrations(fsys)
	if err != nil {
		t.Fatalf("listMigrations failed: %v", err)
	}
	if len(got) == 0 || got[0] != "001_funnel_transitions.sql" {
		t.Errorf("unexpected embedded migrations: %v", got)
	}
}

// TestPostgresJournal runs against a real database when TEST_DATABASE_DSN is set
func TestPostgresJournal(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	journal, err := NewPostgresJournal(ctx, PostgresConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("NewPostgresJournal failed: %v", err)
	}
	defer journal.Close()

	fsys, err := MigrationSource("")
	if err != nil {
		t.Fatalf("MigrationSource failed: %v", err)
	}
	if err := RunMigrations(ctx, journal.Pool(), fsys); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	// Applying twice is a no-op
	if err := RunMigrations(ctx, journal.Pool(), fsys); err != nil {
		t.Fatalf("second RunMigrations failed: %v", err)
	}

	token := "journal-test-" + uuid.NewString()
	at := time.Now().UTC().Truncate(time.Millisecond)
	steps := []session.Transition{
		{Token: token, From: models.FunnelNone, To: models.FunnelInvited, At: at},
		{Token: token, From: models.FunnelInvited, To: models.FunnelDocumentsPending, At: at.Add(time.Second)},
		{Token: token, From: models.FunnelDocumentsPending, To: models.FunnelStarting, At: at.Add(2 * time.Second)},
	}
	for _, step := range steps {
		if err := journal.RecordTransition(ctx, "tab-1", step); err != nil {
			t.Fatalf("RecordTransition failed: %v", err)
		}
	}

	entries, err := journal.ListTransitions(ctx, token, 0)
	if err != nil {
		t.Fatalf("ListTransitions failed: %v", err)
	}
	if len(entries) != len(steps) {
		t.Fatalf("expected %d entries, got %d", len(steps), len(entries))
	}
	for i, e := range entries {
		if e.FromState != steps[i].From || e.ToState != steps[i].To || e.TabID != "tab-1" {
			t.Errorf("entry %d: unexpected %+v", i, e)
		}
	}

	limited, err := journal.ListTransitions(ctx, token, 1)
	if err != nil {
		t.Fatalf("ListTransitions failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ToState != models.FunnelInvited {
		t.Errorf("unexpected limited entries: %+v", limited)
	}

	pruned, err := journal.PruneTransitions(ctx, at.Add(time.Second))
	if err != nil {
		t.Fatalf("PruneTransitions failed: %v", err)
	}
	if pruned < 1 {
		t.Errorf("expected at least 1 pruned entry, got %d", pruned)
	}
	remaining, err := journal.ListTransitions(ctx, token, 0)
	if err != nil {
		t.Fatalf("ListTransitions failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("expected 2 remaining entries, got %d", len(remaining))
	}
}
