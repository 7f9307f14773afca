package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"propsignal/models"
)

// SQLiteStore holds local operational data: the activity log, scheduled
// report runs and the latest report snapshot per listing
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id INTEGER PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		listings INTEGER DEFAULT 0,
		errors INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS activity_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		source TEXT,
		message TEXT
	);

	CREATE TABLE IF NOT EXISTS report_snapshots (
		listing_id TEXT PRIMARY KEY,
		views INTEGER,
		last_viewed_at DATETIME,
		opinions INTEGER,
		serious_count INTEGER,
		passive_count INTEGER,
		serious_median REAL,
		passive_median REAL,
		combined_median REAL,
		likes INTEGER,
		data_errors JSON,
		generated_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON activity_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON report_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Report Runs
// =============================================================================

func (s *SQLiteStore) CreateRun(run *models.ReportRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO report_runs (started_at, status, listings, errors)
		VALUES (?, ?, 0, 0)`,
		run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	run.ID = id
	return id, nil
}

func (s *SQLiteStore) UpdateRun(run *models.ReportRun) error {
	_, err := s.db.Exec(`
		UPDATE report_runs SET finished_at = ?, status = ?, listings = ?, errors = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Listings, run.Errors, run.ID)
	return err
}

func (s *SQLiteStore) GetLastRun() (*models.ReportRun, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, status, listings, errors
		FROM report_runs ORDER BY started_at DESC, id DESC LIMIT 1`)

	var run models.ReportRun
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.StartedAt, &finished, &run.Status, &run.Listings, &run.Errors)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// =============================================================================
// Activity Log
// =============================================================================

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, source, message string) error {
	_, err := s.db.Exec(`
		INSERT INTO activity_logs (run_id, timestamp, level, source, message)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, source, message)
	return err
}

func (s *SQLiteStore) RecentLogs(limit int) ([]models.ActivityLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, source, message
		FROM activity_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var l models.ActivityLog
		var runID sql.NullInt64
		if err := rows.Scan(&l.ID, &runID, &l.Timestamp, &l.Level, &l.Source, &l.Message); err != nil {
			return nil, err
		}
		if runID.Valid {
			l.RunID = &runID.Int64
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// =============================================================================
// Report Snapshots
// =============================================================================

func (s *SQLiteStore) SaveReportSnapshot(r *models.ListingReport) error {
	dataErrors, err := json.Marshal(r.DataErrors)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO report_snapshots (listing_id, views, last_viewed_at, opinions, serious_count, passive_count,
			serious_median, passive_median, combined_median, likes, data_errors, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(listing_id) DO UPDATE SET
			views = excluded.views,
			last_viewed_at = excluded.last_viewed_at,
			opinions = excluded.opinions,
			serious_count = excluded.serious_count,
			passive_count = excluded.passive_count,
			serious_median = excluded.serious_median,
			passive_median = excluded.passive_median,
			combined_median = excluded.combined_median,
			likes = excluded.likes,
			data_errors = excluded.data_errors,
			generated_at = excluded.generated_at`,
		r.ListingID, r.Views, r.LastViewedAt, r.Opinions, r.SeriousCount, r.PassiveCount,
		r.SeriousMedian, r.PassiveMedian, r.CombinedMedian, r.Likes, string(dataErrors), r.GeneratedAt)
	return err
}

func (s *SQLiteStore) GetReportSnapshot(listingID string) (*models.ListingReport, error) {
	row := s.db.QueryRow(`
		SELECT listing_id, views, last_viewed_at, opinions, serious_count, passive_count,
			serious_median, passive_median, combined_median, likes, data_errors, generated_at
		FROM report_snapshots WHERE listing_id = ?`, listingID)

	var r models.ListingReport
	var lastViewed sql.NullTime
	var dataErrors sql.NullString
	err := row.Scan(&r.ListingID, &r.Views, &lastViewed, &r.Opinions, &r.SeriousCount, &r.PassiveCount,
		&r.SeriousMedian, &r.PassiveMedian, &r.CombinedMedian, &r.Likes, &dataErrors, &r.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastViewed.Valid {
		r.LastViewedAt = &lastViewed.Time
	}
	if dataErrors.Valid && dataErrors.String != "" {
		if err := json.Unmarshal([]byte(dataErrors.String), &r.DataErrors); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
