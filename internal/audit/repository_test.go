package audit

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/salted-labs/control-loop-core/internal/infrastructure/database"
)

// newTestRepository opens a fresh database with the audit schema.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	_, err = db.ExecContext(context.Background(), `
		CREATE TABLE audit_log (
			id          TEXT PRIMARY KEY,
			occurred_at TEXT NOT NULL,
			requester   TEXT NOT NULL,
			action      TEXT NOT NULL CHECK (action IN ('reconfigure', 'discover')),
			applied     TEXT,
			error       TEXT
		)
	`)
	if err != nil {
		t.Fatalf("creating audit_log: %v", err)
	}

	return NewRepository(db.DB)
}

// TestRecordReconfiguration verifies successful request recording.
func TestRecordReconfiguration(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	applied := map[string]any{"threshold": int64(42), "label": "hot"}
	if err := repo.RecordReconfiguration(ctx, "operator-1", applied, ""); err != nil {
		t.Fatalf("RecordReconfiguration() error = %v", err)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("Total = %d, want 1", result.Total)
	}

	e := result.Entries[0]
	if e.Requester != "operator-1" {
		t.Errorf("Requester = %q, want %q", e.Requester, "operator-1")
	}
	if e.Action != ActionReconfigure {
		t.Errorf("Action = %q, want %q", e.Action, ActionReconfigure)
	}
	if e.Error != "" {
		t.Errorf("Error = %q, want empty", e.Error)
	}
	if !strings.HasPrefix(e.ID, "aud-") {
		t.Errorf("ID = %q, want aud- prefix", e.ID)
	}
	if e.Applied["label"] != "hot" {
		t.Errorf("Applied[label] = %v, want %q", e.Applied["label"], "hot")
	}
	if e.OccurredAt.IsZero() {
		t.Error("OccurredAt is zero")
	}
}

// TestRecordReconfigurationFailure verifies failed requests keep the
// error text and no applied map.
func TestRecordReconfigurationFailure(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.RecordReconfiguration(ctx, "operator-2", nil, "payload is not a JSON object"); err != nil {
		t.Fatalf("RecordReconfiguration() error = %v", err)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(result.Entries))
	}

	e := result.Entries[0]
	if e.Error != "payload is not a JSON object" {
		t.Errorf("Error = %q", e.Error)
	}
	if e.Applied != nil {
		t.Errorf("Applied = %v, want nil", e.Applied)
	}
}

// TestRecordDiscovery verifies discovery request recording.
func TestRecordDiscovery(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.RecordDiscovery(ctx, "dashboard"); err != nil {
		t.Fatalf("RecordDiscovery() error = %v", err)
	}

	result, err := repo.List(ctx, Filter{Action: ActionDiscover})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("Total = %d, want 1", result.Total)
	}
	if result.Entries[0].Action != ActionDiscover {
		t.Errorf("Action = %q, want %q", result.Entries[0].Action, ActionDiscover)
	}
}

// TestListFilters verifies filtering and pagination.
func TestListFilters(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.RecordDiscovery(ctx, "alice"); err != nil {
		t.Fatalf("RecordDiscovery() error = %v", err)
	}
	if err := repo.RecordDiscovery(ctx, "bob"); err != nil {
		t.Fatalf("RecordDiscovery() error = %v", err)
	}
	if err := repo.RecordReconfiguration(ctx, "alice", map[string]any{"x": int64(1)}, ""); err != nil {
		t.Fatalf("RecordReconfiguration() error = %v", err)
	}

	t.Run("by requester", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Requester: "alice"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Total != 2 {
			t.Errorf("Total = %d, want 2", result.Total)
		}
	})

	t.Run("by requester and action", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Requester: "alice", Action: ActionReconfigure})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Total != 1 {
			t.Errorf("Total = %d, want 1", result.Total)
		}
	})

	t.Run("limit clamps", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Limit: 500})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Limit != 200 {
			t.Errorf("Limit = %d, want 200", result.Limit)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Limit: 2})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(result.Entries) != 2 {
			t.Errorf("entries = %d, want 2", len(result.Entries))
		}
		if result.Total != 3 {
			t.Errorf("Total = %d, want 3", result.Total)
		}
	})
}
