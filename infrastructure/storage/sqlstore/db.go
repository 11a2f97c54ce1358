// Package sqlstore implements ports.Store on database/sql for SQLite
// (modernc.org/sqlite, pure Go) and PostgreSQL (pgx stdlib driver).
//
// Criteria, specifications, responses and scores live in JSON text columns
// and are parsed through the codec package, so rows written by older clients
// still load.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:tenders.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/tenders?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// SQLite serializes writers; a single connection also keeps
		// :memory: databases shared by every query.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Timestamps are stored as unix nanoseconds.
const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS tenders (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  shortlist_automatically BOOLEAN NOT NULL DEFAULT 0,
  shortlist_threshold REAL NOT NULL DEFAULT 70,
  winning_bid_id TEXT,
  evaluation_criteria TEXT NOT NULL DEFAULT '[]',
  required_specifications TEXT NOT NULL DEFAULT '[]',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bids (
  id TEXT PRIMARY KEY,
  tender_id TEXT NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
  bidder_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  specifications TEXT NOT NULL DEFAULT '{}',
  proposal TEXT NOT NULL DEFAULT '',
  criteria_responses TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL DEFAULT 'submitted',
  submitted_at INTEGER NOT NULL,
  UNIQUE (tender_id, bidder_id)
);

CREATE INDEX IF NOT EXISTS bids_tender_submitted ON bids (tender_id, submitted_at);

CREATE TABLE IF NOT EXISTS bid_evaluations (
  id TEXT PRIMARY KEY,
  bid_id TEXT NOT NULL UNIQUE REFERENCES bids(id) ON DELETE CASCADE,
  evaluator_id TEXT NOT NULL DEFAULT '',
  criteria_scores TEXT NOT NULL DEFAULT '{}',
  comments TEXT NOT NULL DEFAULT '',
  total_score REAL NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  role TEXT NOT NULL,
  full_name TEXT NOT NULL DEFAULT '',
  organization TEXT NOT NULL DEFAULT ''
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS tenders (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  owner_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  shortlist_automatically BOOLEAN NOT NULL DEFAULT FALSE,
  shortlist_threshold DOUBLE PRECISION NOT NULL DEFAULT 70,
  winning_bid_id TEXT,
  evaluation_criteria TEXT NOT NULL DEFAULT '[]',
  required_specifications TEXT NOT NULL DEFAULT '[]',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS bids (
  id TEXT PRIMARY KEY,
  tender_id TEXT NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
  bidder_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  specifications TEXT NOT NULL DEFAULT '{}',
  proposal TEXT NOT NULL DEFAULT '',
  criteria_responses TEXT NOT NULL DEFAULT '{}',
  status TEXT NOT NULL DEFAULT 'submitted',
  submitted_at BIGINT NOT NULL,
  UNIQUE (tender_id, bidder_id)
);

CREATE INDEX IF NOT EXISTS bids_tender_submitted ON bids (tender_id, submitted_at);

CREATE TABLE IF NOT EXISTS bid_evaluations (
  id TEXT PRIMARY KEY,
  bid_id TEXT NOT NULL UNIQUE REFERENCES bids(id) ON DELETE CASCADE,
  evaluator_id TEXT NOT NULL DEFAULT '',
  criteria_scores TEXT NOT NULL DEFAULT '{}',
  comments TEXT NOT NULL DEFAULT '',
  total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  role TEXT NOT NULL,
  full_name TEXT NOT NULL DEFAULT '',
  organization TEXT NOT NULL DEFAULT ''
);
`
