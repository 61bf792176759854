package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/samijaber1/aegis-watch/internal/model"
	"github.com/samijaber1/aegis-watch/internal/storage"
)

// Store implements storage.Sink and storage.Querier using SQLite
type Store struct {
	db *sql.DB
}

var (
	_ storage.Sink    = (*Store)(nil)
	_ storage.Querier = (*Store)(nil)
)

// NewStore creates a new SQLite storage with the given database path
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows one writer; the pipeline is single-writer anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	// Run migrations
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// StoreResult persists one probe result
func (s *Store) StoreResult(ctx context.Context, r model.ProbeResult) error {
	checksJSON, err := json.Marshal(r.Checks)
	if err != nil {
		return fmt.Errorf("failed to marshal checks: %w", err)
	}

	query := `
		INSERT INTO probe_results (
			endpoint, url, method, outcome, status_code, latency_ms, size_bytes,
			error, checks_json, timestamp
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		r.Endpoint,
		r.URL,
		r.Method,
		string(r.Outcome),
		r.StatusCode,
		r.LatencyMs,
		r.SizeBytes,
		r.Error,
		string(checksJSON),
		r.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	return nil
}

// StoreMetrics persists one SLA metrics snapshot
func (s *Store) StoreMetrics(ctx context.Context, m model.SLAMetrics) error {
	query := `
		INSERT INTO sla_metrics (
			endpoint, window_start, window_end, total, success, failed, availability,
			error_rate, avg_latency_ms, min_latency_ms, max_latency_ms, p95_latency_ms, p99_latency_ms
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		m.Endpoint,
		m.WindowStart.UTC(),
		m.WindowEnd.UTC(),
		m.Total,
		m.Success,
		m.Failed,
		m.Availability,
		m.ErrorRate,
		m.AvgLatencyMs,
		m.MinLatencyMs,
		m.MaxLatencyMs,
		m.P95LatencyMs,
		m.P99LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("failed to store metrics: %w", err)
	}

	return nil
}

// StoreAlert upserts an alert by ID
func (s *Store) StoreAlert(ctx context.Context, a model.Alert) error {
	alertJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	query := `
		INSERT INTO alerts (
			id, endpoint, alert_type, cause, severity, title, description, repeat_count,
			resolved, resolved_by, resolution_reason, alert_json, first_occurrence, resolved_at, timestamp
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			severity = excluded.severity,
			title = excluded.title,
			description = excluded.description,
			repeat_count = excluded.repeat_count,
			resolved = excluded.resolved,
			resolved_by = excluded.resolved_by,
			resolution_reason = excluded.resolution_reason,
			alert_json = excluded.alert_json,
			resolved_at = excluded.resolved_at,
			timestamp = excluded.timestamp,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = s.db.ExecContext(ctx, query,
		a.ID,
		a.Endpoint,
		string(a.Type),
		a.Cause,
		string(a.Severity),
		a.Title,
		a.Description,
		a.RepeatCount,
		a.Resolved,
		a.ResolvedBy,
		a.ResolutionReason,
		string(alertJSON),
		a.FirstOccurrence.UTC(),
		utc(a.ResolvedAt),
		a.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store alert: %w", err)
	}

	return nil
}

// StoreOutageState upserts the state of one endpoint
func (s *Store) StoreOutageState(ctx context.Context, state model.OutageState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal outage state: %w", err)
	}

	query := `
		INSERT INTO outage_states (endpoint, status, consecutive_failures, failures_in_window, state_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			status = excluded.status,
			consecutive_failures = excluded.consecutive_failures,
			failures_in_window = excluded.failures_in_window,
			state_json = excluded.state_json,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		state.Endpoint,
		string(state.Status),
		state.ConsecutiveFailures,
		state.FailuresInWindow,
		string(stateJSON),
		state.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store outage state: %w", err)
	}

	return nil
}

// StoreOutageEvent persists one status transition
func (s *Store) StoreOutageEvent(ctx context.Context, e model.OutageEvent) error {
	metadataJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	var durationSeconds *float64
	if e.OutageDuration != nil {
		secs := e.OutageDuration.Seconds()
		durationSeconds = &secs
	}

	query := `
		INSERT INTO outage_events (
			endpoint, event_type, severity, reason, consecutive_failures,
			old_status, new_status, outage_duration_seconds, metadata_json, timestamp
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		e.Endpoint,
		string(e.Kind),
		string(e.Severity),
		e.Reason,
		e.ConsecutiveFailures,
		string(e.OldStatus),
		string(e.NewStatus),
		durationSeconds,
		string(metadataJSON),
		e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store outage event: %w", err)
	}

	return nil
}

// QueryResults retrieves probe results with optional filtering, newest first
func (s *Store) QueryResults(ctx context.Context, filter storage.ResultFilter) ([]model.ProbeResult, error) {
	query := `
		SELECT endpoint, url, method, outcome, status_code, latency_ms, size_bytes,
		       error, checks_json, timestamp
		FROM probe_results
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.Endpoint != "" {
		query += " AND endpoint = ?"
		args = append(args, filter.Endpoint)
	}

	if filter.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, string(filter.Outcome))
	}

	if filter.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartTime.UTC())
	}

	if filter.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndTime.UTC())
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, filter.EffectiveLimit())

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []model.ProbeResult
	for rows.Next() {
		var r model.ProbeResult
		var outcome, checksJSON string
		var status, size sql.NullInt64
		var latency sql.NullFloat64

		err := rows.Scan(
			&r.Endpoint,
			&r.URL,
			&r.Method,
			&outcome,
			&status,
			&latency,
			&size,
			&r.Error,
			&checksJSON,
			&r.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		r.Outcome = model.Outcome(outcome)
		if status.Valid {
			code := int(status.Int64)
			r.StatusCode = &code
		}
		if latency.Valid {
			ms := latency.Float64
			r.LatencyMs = &ms
		}
		if size.Valid {
			n := size.Int64
			r.SizeBytes = &n
		}
		if err := json.Unmarshal([]byte(checksJSON), &r.Checks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checks: %w", err)
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

// GetOutageState retrieves the stored state of one endpoint, or nil when
// none was stored
func (s *Store) GetOutageState(ctx context.Context, endpoint string) (*model.OutageState, error) {
	var stateJSON string
	err := s.db.QueryRowContext(ctx, "SELECT state_json FROM outage_states WHERE endpoint = ?", endpoint).
		Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outage state: %w", err)
	}

	var state model.OutageState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outage state: %w", err)
	}

	return &state, nil
}

// GetAlert retrieves a stored alert by ID, or nil when unknown
func (s *Store) GetAlert(ctx context.Context, id string) (*model.Alert, error) {
	var alertJSON string
	err := s.db.QueryRowContext(ctx, "SELECT alert_json FROM alerts WHERE id = ?", id).Scan(&alertJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	var a model.Alert
	if err := json.Unmarshal([]byte(alertJSON), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
	}

	return &a, nil
}

// CountOutageEvents returns the number of stored transitions for an endpoint
func (s *Store) CountOutageEvents(ctx context.Context, endpoint string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM outage_events WHERE endpoint = ?", endpoint).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count outage events: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func utc(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
