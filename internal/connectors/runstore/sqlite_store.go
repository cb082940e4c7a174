// Package runstore persists simulation runs and cached PubChem lookups in a
// local SQLite database.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// RunSummary is a compact listing row for one persisted simulation run.
type RunSummary struct {
	ID        int64     `json:"id"`
	DrugName  string    `json:"drug_name"`
	NSubjects int       `json:"n_subjects"`
	CmaxP50   float64   `json:"cmax_p50"`
	CmaxP95   float64   `json:"cmax_p95"`
	AUCMean   float64   `json:"auc_mean"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// Run is a full persisted simulation run, including the serialized drug
// parameters and result payload.
type Run struct {
	RunSummary
	ParamsJSON string `json:"params_json"`
	ResultJSON string `json:"result_json"`
}

// CachedCompound is one cached PubChem property lookup.
type CachedCompound struct {
	DrugName  string    `json:"drug_name"`
	Payload   string    `json:"payload"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ErrNotFound is returned for lookups of rows that do not exist.
var ErrNotFound = errors.New("runstore: not found")

// Store manages simulation run history in SQLite.
type Store struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS simulation_runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  drug_name TEXT NOT NULL,
  params_json TEXT NOT NULL,
  n_subjects INTEGER NOT NULL,
  result_json TEXT NOT NULL,
  cmax_p50 REAL NOT NULL DEFAULT 0,
  cmax_p95 REAL NOT NULL DEFAULT 0,
  auc_mean REAL NOT NULL DEFAULT 0,
  severity TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_runs_drug ON simulation_runs(drug_name);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_runs_created ON simulation_runs(created_at);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS pubchem_cache (
  drug_name TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  fetched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun persists one simulation run and returns its row ID.
func (s *Store) SaveRun(ctx context.Context, run Run) (int64, error) {
	name := strings.TrimSpace(run.DrugName)
	if name == "" {
		return 0, errors.New("drug name required")
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO simulation_runs (drug_name, params_json, n_subjects, result_json, cmax_p50, cmax_p95, auc_mean, severity)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`, name, run.ParamsJSON, run.NSubjects, run.ResultJSON, run.CmaxP50, run.CmaxP95, run.AUCMean, run.Severity)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, drug_name, n_subjects, cmax_p50, cmax_p95, auc_mean, severity, created_at
FROM simulation_runs
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RunSummary, 0, limit)
	for rows.Next() {
		var (
			item      RunSummary
			createdAt sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.DrugName, &item.NSubjects, &item.CmaxP50, &item.CmaxP95, &item.AUCMean, &item.Severity, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			item.CreatedAt = createdAt.Time.UTC()
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRun returns one run with its full payloads.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	var (
		item      Run
		createdAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, drug_name, params_json, n_subjects, result_json, cmax_p50, cmax_p95, auc_mean, severity, created_at
FROM simulation_runs
WHERE id = ?;
`, id).Scan(&item.ID, &item.DrugName, &item.ParamsJSON, &item.NSubjects, &item.ResultJSON, &item.CmaxP50, &item.CmaxP95, &item.AUCMean, &item.Severity, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		item.CreatedAt = createdAt.Time.UTC()
	}
	return &item, nil
}

// GetCachedCompound returns a cached PubChem payload no older than maxAge.
// Stale or missing entries return ErrNotFound.
func (s *Store) GetCachedCompound(ctx context.Context, drugName string, maxAge time.Duration) (*CachedCompound, error) {
	var (
		item      CachedCompound
		fetchedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
SELECT drug_name, payload, fetched_at
FROM pubchem_cache
WHERE drug_name = ?;
`, normalizeDrugName(drugName)).Scan(&item.DrugName, &item.Payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if fetchedAt.Valid {
		item.FetchedAt = fetchedAt.Time.UTC()
	}
	if maxAge > 0 && time.Since(item.FetchedAt) > maxAge {
		return nil, ErrNotFound
	}
	return &item, nil
}

// PutCachedCompound upserts a PubChem payload for a drug name.
func (s *Store) PutCachedCompound(ctx context.Context, drugName, payload string) error {
	name := normalizeDrugName(drugName)
	if name == "" {
		return errors.New("drug name required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO pubchem_cache (drug_name, payload, fetched_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(drug_name) DO UPDATE SET
  payload = excluded.payload,
  fetched_at = CURRENT_TIMESTAMP;
`, name, payload)
	return err
}

func normalizeDrugName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
