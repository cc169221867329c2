// Package audit records reconfiguration and discovery requests in the
// audit_log table and provides access to the request history.
//
// The control loop only writes entries (via the Record* methods wired
// into the message router). List and Filter are the query surface for
// operational tooling inspecting the trail out of process, and for the
// sqlite3 CLI the schema is plain enough to query directly.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the audit trail.
const (
	ActionReconfigure = "reconfigure"
	ActionDiscover    = "discover"
)

// Entry represents a single audit trail row.
type Entry struct {
	ID         string         `json:"id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Requester  string         `json:"requester"`
	Action     string         `json:"action"`
	Applied    map[string]any `json:"applied,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Filter controls which audit entries to return.
type Filter struct {
	Requester string // optional: filter by requester ID
	Action    string // optional: filter by action (reconfigure, discover)
	Limit     int    // default 50, max 200
	Offset    int    // pagination offset
}

// ListResult contains the paginated audit results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository writes and reads audit entries in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new audit repository.
//
// Parameters:
//   - db: Open SQLite connection, schema already migrated
//
// Returns:
//   - *Repository: Ready-to-use repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// RecordReconfiguration stores one reconfiguration request outcome.
// When the request failed to decode, applied is empty and errText
// carries the failure; otherwise applied holds the accepted updates.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - requester: Requester ID extracted from the request topic
//   - applied: Name to value map of the updates that were accepted
//   - errText: Failure description, empty on success
//
// Returns:
//   - error: If the insert fails
func (r *Repository) RecordReconfiguration(ctx context.Context, requester string, applied map[string]any, errText string) error {
	return r.insert(ctx, Entry{
		Requester: requester,
		Action:    ActionReconfigure,
		Applied:   applied,
		Error:     errText,
	})
}

// RecordDiscovery stores one discovery request.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - requester: Requester ID extracted from the request topic
//
// Returns:
//   - error: If the insert fails
func (r *Repository) RecordDiscovery(ctx context.Context, requester string) error {
	return r.insert(ctx, Entry{
		Requester: requester,
		Action:    ActionDiscover,
	})
}

func (r *Repository) insert(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = "aud-" + uuid.NewString()[:8]
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	var appliedJSON *string
	if e.Applied != nil {
		b, err := json.Marshal(e.Applied)
		if err != nil {
			return fmt.Errorf("marshalling applied updates: %w", err)
		}
		s := string(b)
		appliedJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, occurred_at, requester, action, applied, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.OccurredAt.Format(time.RFC3339),
		e.Requester,
		e.Action,
		appliedJSON,
		nullableString(e.Error),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns audit entries matching the filter, most recent first.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - filter: Query constraints and pagination
//
// Returns:
//   - *ListResult: Matching entries plus total count
//   - error: If the query fails
func (r *Repository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for audit queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Requester != "" {
		conditions = append(conditions, "requester = ?")
		args = append(args, filter.Requester)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_log %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, occurred_at, requester, action, applied, error FROM audit_log %s ORDER BY occurred_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var occurredAt string
	var applied, errText sql.NullString

	if err := rows.Scan(&e.ID, &occurredAt, &e.Requester, &e.Action, &applied, &errText); err != nil {
		return Entry{}, fmt.Errorf("scanning audit row: %w", err)
	}

	e.OccurredAt, _ = time.Parse(time.RFC3339, occurredAt) //nolint:errcheck // Format is controlled
	if applied.Valid {
		if err := json.Unmarshal([]byte(applied.String), &e.Applied); err != nil {
			return Entry{}, fmt.Errorf("decoding applied updates: %w", err)
		}
	}
	if errText.Valid {
		e.Error = errText.String
	}
	return e, nil
}
