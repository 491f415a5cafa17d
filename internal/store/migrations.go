package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for the draft store tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS workflow_runs (
		orcabus_id        TEXT PRIMARY KEY,
		portal_run_id     TEXT NOT NULL UNIQUE,
		workflow_run_name TEXT NOT NULL,
		workflow_name     TEXT NOT NULL,
		workflow_version  TEXT NOT NULL,
		execution_id      TEXT NOT NULL DEFAULT '',
		comment           TEXT NOT NULL DEFAULT '',
		libraries         TEXT NOT NULL DEFAULT '[]',
		created_at        TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS payloads (
		orcabus_id TEXT PRIMARY KEY,
		version    TEXT NOT NULL,
		data       TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS states (
		orcabus_id      TEXT PRIMARY KEY,
		workflow_run_id TEXT NOT NULL REFERENCES workflow_runs(orcabus_id),
		status          TEXT NOT NULL,
		timestamp       TEXT NOT NULL,
		comment         TEXT NOT NULL DEFAULT '',
		payload_id      TEXT REFERENCES payloads(orcabus_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_states_workflow_run_id ON states(workflow_run_id, timestamp)`,

	`CREATE TABLE IF NOT EXISTS comments (
		orcabus_id      TEXT PRIMARY KEY,
		workflow_run_id TEXT NOT NULL REFERENCES workflow_runs(orcabus_id),
		text            TEXT NOT NULL,
		created_by      TEXT NOT NULL,
		created_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_workflow_run_id ON comments(workflow_run_id)`,
}

// alterStatements are column additions that need special handling since
// SQLite doesn't support IF NOT EXISTS for ALTER TABLE ADD COLUMN.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
	indexSQL string // Optional index to create after column is added
}{
	{
		table:    "workflow_runs",
		column:   "workflow_orcabus_id",
		alterSQL: "ALTER TABLE workflow_runs ADD COLUMN workflow_orcabus_id TEXT NOT NULL DEFAULT ''",
	},
}

// migrate executes all schema DDL statements and alter migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
		if alter.indexSQL != "" {
			if _, err := db.ExecContext(ctx, alter.indexSQL); err != nil {
				return err
			}
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = db.ExecContext(ctx, alterSQL)
	return err
}
