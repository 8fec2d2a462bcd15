package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/listingscan/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "listingscan.db"

// ErrRunNotFound is returned by GetRun when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RecordDB provides SQLite-based storage for runs and their records.
// All runs of all sites share one database file.
type RecordDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RecordDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RecordDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RecordDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RecordDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RecordDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RecordDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RecordDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		target TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		attempted INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		discarded INTEGER NOT NULL DEFAULT 0,
		discovered_json TEXT,
		skipped_json TEXT,
		steps_json TEXT,
		error TEXT,
		cancelled INTEGER NOT NULL DEFAULT 0,
		screenshot TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT,
		address TEXT,
		hours TEXT,
		distance TEXT,
		phone TEXT,
		detail_link TEXT,
		last_update_date TEXT,
		materials TEXT,
		source_url TEXT,
		UNIQUE(run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_records_run_id ON records(run_id);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary is one row of the runs table.
// It is used for listing history without loading the records.
type RunSummary struct {
	// ID is the unique identifier of the run in the database.
	ID int64 `json:"id"`

	// Site is the scraped source.
	Site model.Site `json:"site"`

	// Target is the start URL or zip code.
	Target string `json:"target"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Stats holds the collector counters.
	Stats model.CollectorStats `json:"stats"`

	// Discovered lists the URLs pagination produced, in discovery order.
	Discovered []string `json:"discovered,omitempty"`

	// Skipped lists the URLs given up on.
	Skipped []model.SkippedURL `json:"skipped,omitempty"`

	// Steps lists the pipeline steps that ran.
	Steps []string `json:"steps,omitempty"`

	// Error is the failure that ended the run, if any.
	Error string `json:"error,omitempty"`

	// Cancelled reports whether the run was interrupted.
	Cancelled bool `json:"cancelled,omitempty"`

	// Screenshot is the saved screenshot path, if any.
	Screenshot string `json:"screenshot,omitempty"`
}

// SaveRun stores the run and its retained records in one transaction
// and sets run.ID to the new row ID.
func (rdb *RecordDB) SaveRun(ctx context.Context, run *model.Run) (err error) {
	skippedJSON, err := json.Marshal(nonNilSkipped(run))
	if err != nil {
		return fmt.Errorf("failed to serialize skipped urls: %w", err)
	}
	stepsJSON, err := json.Marshal(run.PerformedSteps)
	if err != nil {
		return fmt.Errorf("failed to serialize steps: %w", err)
	}
	discoveredJSON, err := json.Marshal(run.DiscoveredURLs)
	if err != nil {
		return fmt.Errorf("failed to serialize discovered urls: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stats := run.Stats()
	var finishedAt any
	if !run.FinishedAt.IsZero() {
		finishedAt = run.FinishedAt.UTC().Format(time.RFC3339Nano)
	}

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (site, target, started_at, finished_at, attempted, succeeded, discarded,
		discovered_json, skipped_json, steps_json, error, cancelled, screenshot)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.Site.String(),
		run.Target,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		finishedAt,
		stats.Attempted,
		stats.Succeeded,
		stats.Discarded,
		string(discoveredJSON),
		string(skippedJSON),
		string(stepsJSON),
		run.ErrorMessage,
		run.Cancelled,
		run.ScreenshotPath,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO records (run_id, position, name, address, hours, distance, phone,
		detail_link, last_update_date, materials, source_url)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range run.Records() {
		materials, err := json.Marshal(rec.Materials)
		if err != nil {
			return fmt.Errorf("failed to serialize materials: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			id,
			rec.Identifier,
			rec.Name,
			rec.Address,
			rec.Hours,
			rec.Distance,
			rec.Phone,
			rec.DetailLink,
			rec.LastUpdateDate,
			string(materials),
			rec.SourceURL,
		); err != nil {
			return fmt.Errorf("failed to save record %d: %w", rec.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	return nil
}

func nonNilSkipped(run *model.Run) []model.SkippedURL {
	if run.Collector == nil {
		return []model.SkippedURL{}
	}
	return run.Collector.SkippedURLs()
}

const runColumns = `id, site, target, started_at, finished_at, attempted, succeeded, discarded,
	discovered_json, skipped_json, steps_json, error, cancelled, screenshot`

// ListRuns returns the most recent runs, newest first.
// An unknown site lists every site; limit <= 0 means no limit.
func (rdb *RecordDB) ListRuns(ctx context.Context, site model.Site, limit int) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if site != model.SiteUnknown {
		query += ` WHERE site = ?`
		args = append(args, site.String())
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		s, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}

	return results, rows.Err()
}

// GetRun retrieves one run by its database ID.
func (rdb *RecordDB) GetRun(ctx context.Context, id int64) (RunSummary, error) {
	row := rdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	s, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return s, err
}

// GetRecords retrieves the records of a run in collection order.
func (rdb *RecordDB) GetRecords(ctx context.Context, runID int64) ([]model.Record, error) {
	query := `
	SELECT position, name, address, hours, distance, phone, detail_link,
		last_update_date, materials, source_url
	FROM records
	WHERE run_id = ?
	ORDER BY position
	`

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	for rows.Next() {
		var rec model.Record
		var name, address, hours, distance, phone, link, updated, materials, source sql.NullString
		if err := rows.Scan(&rec.Identifier, &name, &address, &hours, &distance, &phone,
			&link, &updated, &materials, &source); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Name = name.String
		rec.Address = address.String
		rec.Hours = hours.String
		rec.Distance = distance.String
		rec.Phone = phone.String
		rec.DetailLink = link.String
		rec.LastUpdateDate = updated.String
		rec.SourceURL = source.String

		if materials.Valid && materials.String != "" && materials.String != "null" {
			if err := json.Unmarshal([]byte(materials.String), &rec.Materials); err != nil {
				return nil, fmt.Errorf("failed to parse materials of record %d: %w", rec.Identifier, err)
			}
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunSummary, error) {
	var s RunSummary
	var site, startedAt string
	var finishedAt, discoveredJSON, skippedJSON, stepsJSON, errText, screenshot sql.NullString

	if err := row.Scan(&s.ID, &site, &s.Target, &startedAt, &finishedAt,
		&s.Stats.Attempted, &s.Stats.Succeeded, &s.Stats.Discarded, &discoveredJSON,
		&skippedJSON, &stepsJSON, &errText, &s.Cancelled, &screenshot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, err
		}
		return s, fmt.Errorf("failed to scan run: %w", err)
	}

	// Rows written by other versions may name sites this build does not know.
	s.Site, _ = model.ParseSite(site) //nolint:errcheck // unknown sites map to SiteUnknown

	s.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		s.FinishedAt = parseTimestamp(finishedAt.String)
	}
	s.Discovered = decodeList[string](discoveredJSON)
	s.Skipped = decodeList[model.SkippedURL](skippedJSON)
	s.Steps = decodeList[string](stepsJSON)
	s.Stats.Skipped = len(s.Skipped)
	s.Error = errText.String
	s.Screenshot = screenshot.String

	return s, nil
}

// decodeList decodes a JSON array column. Empty and malformed values
// decode to nil.
func decodeList[T any](col sql.NullString) []T {
	if !col.Valid || col.String == "" {
		return nil
	}
	var list []T
	if err := json.Unmarshal([]byte(col.String), &list); err != nil || len(list) == 0 {
		return nil
	}
	return list
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Restore rebuilds a finished run from s and its stored records so the
// report writers can render it again. Collector counters match the
// original run; discarded records themselves are not stored.
func (s RunSummary) Restore(records []model.Record) *model.Run {
	run := model.NewRun(s.Site, s.Target)
	run.ID = s.ID
	run.StartedAt = s.StartedAt
	run.FinishedAt = s.FinishedAt
	run.DiscoveredURLs = append(run.DiscoveredURLs, s.Discovered...)
	run.PerformedSteps = append(run.PerformedSteps, s.Steps...)
	run.ScreenshotPath = s.Screenshot
	run.Cancelled = s.Cancelled
	if s.Error != "" {
		run.Fail(errors.New(s.Error))
	}

	for _, rec := range records {
		run.Collector.Add(rec)
	}
	for range s.Stats.Discarded {
		run.Collector.Add(model.Record{})
	}
	for _, sk := range s.Skipped {
		run.Collector.Skip(sk.URL, errors.New(sk.Reason))
	}
	return run
}
