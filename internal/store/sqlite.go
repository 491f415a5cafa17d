package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/logging"
	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/pkg/model"

	_ "modernc.org/sqlite"
)

// Orcabus id prefixes minted by the store.
const (
	prefixWorkflowRun = "wfr."
	prefixLibrary     = "lib."
	prefixState       = "stt."
	prefixPayload     = "pld."
	prefixComment     = "cmt."
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// One connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.OrDiscard(logger).With("component", "store"),
		now:    time.Now,
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

func newID(prefix string) string {
	return prefix + ulid.Make().String()
}

func unavailable(op string, err error) error {
	return model.NewUnavailableError("draft store: "+op, err)
}

// --- Workflow runs ---

// CreateWorkflowRun inserts run, minting orcabus ids and the run name when
// they are missing. The run starts without states; use AddState.
func (s *SQLiteStore) CreateWorkflowRun(ctx context.Context, run *model.WorkflowRun) error {
	if run.PortalRunID == "" || run.Workflow.Name == "" || run.Workflow.Version == "" {
		return model.NewValidationError("workflow run requires portalRunId, workflow.name and workflow.version")
	}
	if run.OrcabusID == "" {
		run.OrcabusID = newID(prefixWorkflowRun)
	}
	if run.WorkflowRunName == "" {
		run.WorkflowRunName = model.WorkflowRunName(run.Workflow.Name, run.Workflow.Version, run.PortalRunID)
	}
	for i := range run.Libraries {
		if run.Libraries[i].OrcabusID == "" {
			run.Libraries[i].OrcabusID = newID(prefixLibrary)
		}
	}
	run.Libraries = model.NormalizeLibraries(run.Libraries)

	s.logger.Debug("sql", "op", "insert", "table", "workflow_runs", "id", run.OrcabusID)

	libsJSON, err := json.Marshal(run.Libraries)
	if err != nil {
		return fmt.Errorf("marshal libraries: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workflow_runs (orcabus_id, portal_run_id, workflow_run_name, workflow_name, workflow_version,
		 workflow_orcabus_id, execution_id, comment, libraries, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.OrcabusID, run.PortalRunID, run.WorkflowRunName, run.Workflow.Name, run.Workflow.Version,
		run.Workflow.OrcabusID, run.ExecutionID, run.Comment, string(libsJSON),
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return unavailable("insert workflow run", err)
	}
	return nil
}

// GetWorkflowRun fetches a run with its current state.
func (s *SQLiteStore) GetWorkflowRun(ctx context.Context, orcabusID string) (*model.WorkflowRun, error) {
	s.logger.Debug("sql", "op", "select", "table", "workflow_runs", "id", orcabusID)
	return s.getRun(ctx, "orcabus_id", orcabusID)
}

// GetWorkflowRunByPortalRunID fetches a run by its portal run id.
func (s *SQLiteStore) GetWorkflowRunByPortalRunID(ctx context.Context, portalRunID string) (*model.WorkflowRun, error) {
	s.logger.Debug("sql", "op", "select", "table", "workflow_runs", "portal_run_id", portalRunID)
	return s.getRun(ctx, "portal_run_id", portalRunID)
}

const runColumns = `orcabus_id, portal_run_id, workflow_run_name, workflow_name, workflow_version,
	workflow_orcabus_id, execution_id, comment, libraries`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.WorkflowRun, error) {
	var run model.WorkflowRun
	var libsJSON string
	err := row.Scan(&run.OrcabusID, &run.PortalRunID, &run.WorkflowRunName, &run.Workflow.Name,
		&run.Workflow.Version, &run.Workflow.OrcabusID, &run.ExecutionID, &run.Comment, &libsJSON)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(libsJSON), &run.Libraries); err != nil {
		return nil, fmt.Errorf("unmarshal libraries: %w", err)
	}
	return &run, nil
}

func (s *SQLiteStore) getRun(ctx context.Context, column, value string) (*model.WorkflowRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM workflow_runs WHERE `+column+` = ?`, value)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("WorkflowRun", value)
	}
	if err != nil {
		return nil, unavailable("select workflow run", err)
	}
	if err := s.attachCurrentState(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) attachCurrentState(ctx context.Context, run *model.WorkflowRun) error {
	states, err := s.ListStates(ctx, run.OrcabusID)
	if err != nil {
		return err
	}
	if len(states) > 0 {
		run.CurrentState = states[len(states)-1]
	}
	return nil
}

// ListWorkflowRuns lists runs newest first, optionally filtered by current status.
func (s *SQLiteStore) ListWorkflowRuns(ctx context.Context, opts model.ListOptions) ([]*model.WorkflowRun, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "workflow_runs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM workflow_runs ORDER BY created_at DESC, orcabus_id DESC`)
	if err != nil {
		return nil, 0, unavailable("list workflow runs", err)
	}
	var all []*model.WorkflowRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, 0, unavailable("scan workflow run", err)
		}
		all = append(all, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, unavailable("list workflow runs", err)
	}
	rows.Close()

	var matched []*model.WorkflowRun
	for _, run := range all {
		if err := s.attachCurrentState(ctx, run); err != nil {
			return nil, 0, err
		}
		if opts.Status != "" && string(run.CurrentState.Status) != opts.Status {
			continue
		}
		matched = append(matched, run)
	}

	total := len(matched)
	if opts.Offset >= total {
		return []*model.WorkflowRun{}, total, nil
	}
	end := opts.Offset + opts.Limit
	if end > total {
		end = total
	}
	return matched[opts.Offset:end], total, nil
}

// --- States and payloads ---

// AddState appends a state to the run, storing payload alongside it when
// given. The new status must not move the run backwards.
func (s *SQLiteStore) AddState(ctx context.Context, workflowRunID string, status model.WorkflowStatus, payload *model.Payload) (*model.State, error) {
	run, err := s.GetWorkflowRun(ctx, workflowRunID)
	if err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, model.NewValidationError(fmt.Sprintf("unknown workflow status %q", status))
	}
	if run.CurrentState.Status != "" && !run.CurrentState.Status.CanTransitionTo(status) {
		return nil, &model.InvalidTransitionError{
			Entity: "WorkflowRun",
			ID:     run.PortalRunID,
			From:   string(run.CurrentState.Status),
			To:     string(status),
		}
	}

	state := model.State{
		OrcabusID: newID(prefixState),
		Status:    status,
		Timestamp: s.now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin", err)
	}
	defer tx.Rollback()

	var payloadID any
	if payload != nil {
		if payload.OrcabusID == "" {
			payload.OrcabusID = newID(prefixPayload)
		}
		data := payload.Data
		if data == nil {
			data = map[string]any{}
		}
		dataJSON, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal payload data: %w", err)
		}
		s.logger.Debug("sql", "op", "insert", "table", "payloads", "id", payload.OrcabusID)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payloads (orcabus_id, version, data, created_at) VALUES (?, ?, ?, ?)`,
			payload.OrcabusID, payload.Version, string(dataJSON), state.Timestamp.Format(timeLayout),
		); err != nil {
			return nil, unavailable("insert payload", err)
		}
		payloadID = payload.OrcabusID
		state.Payload = payload.OrcabusID
	}

	s.logger.Debug("sql", "op", "insert", "table", "states", "id", state.OrcabusID, "status", status)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO states (orcabus_id, workflow_run_id, status, timestamp, payload_id) VALUES (?, ?, ?, ?, ?)`,
		state.OrcabusID, workflowRunID, string(status), state.Timestamp.Format(timeLayout), payloadID,
	); err != nil {
		return nil, unavailable("insert state", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit", err)
	}
	return &state, nil
}

// ListStates returns the run's states, oldest first.
func (s *SQLiteStore) ListStates(ctx context.Context, workflowRunID string) ([]model.State, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT orcabus_id, status, timestamp, comment, payload_id FROM states
		 WHERE workflow_run_id = ? ORDER BY timestamp ASC, rowid ASC`, workflowRunID)
	if err != nil {
		return nil, unavailable("list states", err)
	}
	defer rows.Close()

	var states []model.State
	for rows.Next() {
		var st model.State
		var status, ts string
		var payloadID *string
		if err := rows.Scan(&st.OrcabusID, &status, &ts, &st.Comment, &payloadID); err != nil {
			return nil, unavailable("scan state", err)
		}
		st.Status = model.WorkflowStatus(status)
		st.Timestamp, _ = time.Parse(timeLayout, ts)
		if payloadID != nil {
			st.Payload = *payloadID
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list states", err)
	}
	return states, nil
}

// GetLatestPayload returns the payload of the newest state that has one.
func (s *SQLiteStore) GetLatestPayload(ctx context.Context, workflowRunID string) (*model.Payload, error) {
	s.logger.Debug("sql", "op", "select", "table", "payloads", "workflow_run_id", workflowRunID)

	var p model.Payload
	var dataJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT p.orcabus_id, p.version, p.data FROM states st
		 JOIN payloads p ON p.orcabus_id = st.payload_id
		 WHERE st.workflow_run_id = ?
		 ORDER BY st.timestamp DESC, st.rowid DESC LIMIT 1`, workflowRunID,
	).Scan(&p.OrcabusID, &p.Version, &dataJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotFoundError("Payload for WorkflowRun", workflowRunID)
	}
	if err != nil {
		return nil, unavailable("select payload", err)
	}
	if err := json.Unmarshal([]byte(dataJSON), &p.Data); err != nil {
		return nil, fmt.Errorf("unmarshal payload data: %w", err)
	}
	return &p, nil
}

// --- Comments ---

// AddComment attaches a comment to a run.
func (s *SQLiteStore) AddComment(ctx context.Context, workflowRunID, comment, author string) error {
	if _, err := s.GetWorkflowRun(ctx, workflowRunID); err != nil {
		return err
	}
	id := newID(prefixComment)
	s.logger.Debug("sql", "op", "insert", "table", "comments", "id", id, "workflow_run_id", workflowRunID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (orcabus_id, workflow_run_id, text, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, workflowRunID, comment, author, s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return unavailable("insert comment", err)
	}
	return nil
}

// ListComments returns a run's comments, oldest first.
func (s *SQLiteStore) ListComments(ctx context.Context, workflowRunID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT orcabus_id, text, created_by, created_at FROM comments
		 WHERE workflow_run_id = ? ORDER BY created_at ASC, rowid ASC`, workflowRunID)
	if err != nil {
		return nil, unavailable("list comments", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.OrcabusID, &c.Text, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, unavailable("scan comment", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
