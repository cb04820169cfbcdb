package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-coach/logging"
	"github.com/RyanBlaney/sonido-coach/performance"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get for an unknown report id
var ErrNotFound = errors.New("report not found")

// Record is a stored comparison report
type Record struct {
	ID         int64                         `json:"id"`
	CreatedAt  time.Time                     `json:"created_at"`
	Reference  string                        `json:"reference"`
	Recording  string                        `json:"recording"`
	TotalScore int                           `json:"total_score"`
	Tier       performance.Tier              `json:"tier"`
	Report     *performance.ComparisonReport `json:"report"`
}

// Store keeps the history of comparison reports in a SQLite database
type Store struct {
	db     *sql.DB
	logger logging.Logger
	now    func() time.Time
}

// Open opens or creates the database at path and ensures the schema exists
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &Store{
		db: db,
		logger: logging.WithFields(logging.Fields{
			"component": "store",
			"path":      path,
		}),
		now: time.Now,
	}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func createTables(db *sql.DB) error {
	createReportsTable := `
    CREATE TABLE IF NOT EXISTS reports (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        created_at TEXT NOT NULL,
        reference TEXT NOT NULL,
        recording TEXT NOT NULL,
        total_score INTEGER NOT NULL,
        tier TEXT NOT NULL,
        report_json TEXT NOT NULL
    );
    `
	if _, err := db.Exec(createReportsTable); err != nil {
		return fmt.Errorf("error creating reports table: %w", err)
	}
	return nil
}

// Save stores a report and returns its id
func (s *Store) Save(ctx context.Context, reference, recording string, report *performance.ComparisonReport) (int64, error) {
	if report == nil {
		return 0, fmt.Errorf("report is nil")
	}

	data, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("error encoding report: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO reports (created_at, reference, recording, total_score, tier, report_json) VALUES (?, ?, ?, ?, ?, ?)",
		s.now().UTC().Format(time.RFC3339Nano), reference, recording, report.TotalScore, string(report.Tier), string(data))
	if err != nil {
		return 0, fmt.Errorf("error saving report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error getting report ID: %w", err)
	}

	s.logger.Debug("report saved", logging.Fields{"id": id, "total_score": report.TotalScore})
	return id, nil
}

// List returns up to limit reports, newest first. A limit of zero or less
// returns every report.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := "SELECT id, created_at, reference, recording, total_score, tier, report_json FROM reports ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing reports: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return records, nil
}

// Get returns the report with the given id, or ErrNotFound
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, created_at, reference, recording, total_score, tier, report_json FROM reports WHERE id = ?", id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec       Record
		createdAt string
		tier      string
		data      string
	)
	if err := row.Scan(&rec.ID, &createdAt, &rec.Reference, &rec.Recording, &rec.TotalScore, &tier, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error reading report: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("error parsing timestamp of report %d: %w", rec.ID, err)
	}
	rec.CreatedAt = t
	rec.Tier = performance.Tier(tier)

	rec.Report = &performance.ComparisonReport{}
	if err := json.Unmarshal([]byte(data), rec.Report); err != nil {
		return nil, fmt.Errorf("error decoding report %d: %w", rec.ID, err)
	}
	return &rec, nil
}
