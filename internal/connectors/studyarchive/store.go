// Package studyarchive archives simulation runs to a shared MySQL database so
// study teams can aggregate results across installations.
package studyarchive

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"go-pbpk-popsim/internal/config"
)

// ArchivedRun is one archived simulation run row.
type ArchivedRun struct {
	ID         int64     `json:"id"`
	DrugName   string    `json:"drug_name"`
	NSubjects  int       `json:"n_subjects"`
	DoseMG     float64   `json:"dose_mg"`
	CmaxP50    float64   `json:"cmax_p50"`
	CmaxP95    float64   `json:"cmax_p95"`
	AUCMean    float64   `json:"auc_mean"`
	Severity   string    `json:"severity"`
	ArchivedAt time.Time `json:"archived_at"`
}

// DrugSummary aggregates archived runs for one drug.
type DrugSummary struct {
	DrugName      string  `json:"drug_name"`
	RunCount      int64   `json:"run_count"`
	SubjectsTotal int64   `json:"subjects_total"`
	AvgCmaxP95    float64 `json:"avg_cmax_p95"`
	DangerRuns    int64   `json:"danger_runs"`
}

// ServiceStats contains lightweight DB health and volume counters.
type ServiceStats struct {
	PingMS        int64 `json:"ping_ms"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	RunsTotal     int64 `json:"runs_total"`
	Runs24h       int64 `json:"runs_24h"`
}

// Store wraps MySQL access for the study archive.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewStore creates a MySQL-backed archive store and bootstraps its schema.
func NewStore(cfg config.Config) (*Store, error) {
	db, err := sql.Open("mysql", cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS archived_runs (
  id BIGINT PRIMARY KEY AUTO_INCREMENT,
  drug_name VARCHAR(255) NOT NULL,
  n_subjects INT NOT NULL,
  dose_mg DOUBLE NOT NULL DEFAULT 0,
  cmax_p50 DOUBLE NOT NULL DEFAULT 0,
  cmax_p95 DOUBLE NOT NULL DEFAULT 0,
  auc_mean DOUBLE NOT NULL DEFAULT 0,
  severity VARCHAR(16) NOT NULL DEFAULT '',
  archived_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  INDEX idx_archived_drug (drug_name),
  INDEX idx_archived_at (archived_at)
) CHARACTER SET utf8mb4;
`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:           db,
		queryTimeout: cfg.DBQueryTimeout,
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ArchiveRun inserts one run into the shared archive.
func (s *Store) ArchiveRun(ctx context.Context, run ArchivedRun) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
INSERT INTO archived_runs (drug_name, n_subjects, dose_mg, cmax_p50, cmax_p95, auc_mean, severity)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, strings.TrimSpace(run.DrugName), run.NSubjects, run.DoseMG, run.CmaxP50, run.CmaxP95, run.AUCMean, run.Severity)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRecent returns the most recently archived runs, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]ArchivedRun, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, drug_name, n_subjects, dose_mg, cmax_p50, cmax_p95, auc_mean, severity, archived_at
FROM archived_runs
ORDER BY id DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ArchivedRun, 0, limit)
	for rows.Next() {
		var item ArchivedRun
		if err := rows.Scan(&item.ID, &item.DrugName, &item.NSubjects, &item.DoseMG, &item.CmaxP50, &item.CmaxP95, &item.AUCMean, &item.Severity, &item.ArchivedAt); err != nil {
			return nil, err
		}
		item.ArchivedAt = item.ArchivedAt.UTC()
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SummaryByDrug aggregates archived runs per drug, most-studied first.
func (s *Store) SummaryByDrug(ctx context.Context, limit int) ([]DrugSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT
  drug_name,
  COUNT(*) AS run_count,
  COALESCE(SUM(n_subjects), 0) AS subjects_total,
  COALESCE(AVG(cmax_p95), 0) AS avg_cmax_p95,
  SUM(CASE WHEN severity = 'danger' THEN 1 ELSE 0 END) AS danger_runs
FROM archived_runs
GROUP BY drug_name
ORDER BY run_count DESC, drug_name ASC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DrugSummary, 0, limit)
	for rows.Next() {
		var item DrugSummary
		if err := rows.Scan(&item.DrugName, &item.RunCount, &item.SubjectsTotal, &item.AvgCmaxP95, &item.DangerRuns); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ServiceStats returns MySQL health and archive volume counters.
func (s *Store) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}

	out := &ServiceStats{
		PingMS: time.Since(start).Milliseconds(),
	}

	var statusName string
	var statusValue sql.NullString
	if err := s.db.QueryRowContext(ctx, `SHOW GLOBAL STATUS LIKE 'Uptime';`).Scan(&statusName, &statusValue); err == nil && statusValue.Valid {
		if v, err := time.ParseDuration(statusValue.String + "s"); err == nil {
			out.UptimeSeconds = int64(v.Seconds())
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archived_runs;`).Scan(&out.RunsTotal); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM archived_runs
WHERE archived_at >= UTC_TIMESTAMP() - INTERVAL 24 HOUR;
`).Scan(&out.Runs24h); err != nil {
		return nil, err
	}

	return out, nil
}
