package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/conduit/pkg/models"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("report not found")

// ReportHead is a lightweight listing row for stored reports.
type ReportHead struct {
	PlanID    string
	Success   bool
	Duration  time.Duration
	CreatedAt time.Time
}

// SaveReport persists an execution report, replacing any previous report
// stored under the same plan ID.
func (db *DB) SaveReport(report *models.ExecutionReport) error {
	summaryJSON, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	var mergedJSON sql.NullString
	if report.Merged != nil {
		data, err := json.Marshal(report.Merged)
		if err != nil {
			return fmt.Errorf("marshal merged result: %w", err)
		}
		mergedJSON = sql.NullString{String: string(data), Valid: true}
	}

	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO reports (plan_id, success, duration_ms, merged, summary, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, report.PlanID, report.Success, report.Duration.Milliseconds(), mergedJSON, string(summaryJSON), formatTime(time.Now()))
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}

		// Replace semantics cover the report row; stale task rows from a
		// previous run under the same ID must go explicitly.
		if _, err := tx.Exec(`DELETE FROM task_results WHERE plan_id = ?`, report.PlanID); err != nil {
			return fmt.Errorf("clear task results: %w", err)
		}

		for _, res := range report.Results {
			var outputJSON, errJSON sql.NullString
			if res.Output != nil {
				data, err := json.Marshal(res.Output)
				if err != nil {
					return fmt.Errorf("marshal output for task %s: %w", res.TaskID, err)
				}
				outputJSON = sql.NullString{String: string(data), Valid: true}
			}
			if res.Err != nil {
				data, err := json.Marshal(res.Err)
				if err != nil {
					return fmt.Errorf("marshal error for task %s: %w", res.TaskID, err)
				}
				errJSON = sql.NullString{String: string(data), Valid: true}
			}

			_, err := tx.Exec(`
				INSERT INTO task_results (plan_id, task_id, source, success, output, error, duration_ms, attempts, retried)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, report.PlanID, res.TaskID, string(res.Source), res.Success, outputJSON, errJSON,
				res.Duration.Milliseconds(), res.Attempts, res.Retried)
			if err != nil {
				return fmt.Errorf("insert task result %s: %w", res.TaskID, err)
			}
		}

		return nil
	})
}

// GetReport loads the report stored under the given plan ID.
func (db *DB) GetReport(planID string) (*models.ExecutionReport, error) {
	var (
		report     models.ExecutionReport
		durationMS int64
		merged     sql.NullString
		summary    string
	)
	row := db.QueryRow(`
		SELECT plan_id, success, duration_ms, merged, summary FROM reports WHERE plan_id = ?
	`, planID)
	if err := row.Scan(&report.PlanID, &report.Success, &durationMS, &merged, &summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}

	report.Duration = time.Duration(durationMS) * time.Millisecond
	if err := json.Unmarshal([]byte(summary), &report.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	if merged.Valid {
		report.Merged = &models.MergedResult{}
		if err := json.Unmarshal([]byte(merged.String), report.Merged); err != nil {
			return nil, fmt.Errorf("unmarshal merged result: %w", err)
		}
	}

	rows, err := db.Query(`
		SELECT task_id, source, success, output, error, duration_ms, attempts, retried
		FROM task_results WHERE plan_id = ?
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("get task results: %w", err)
	}
	defer rows.Close()

	report.Results = make(map[string]*models.TaskResult)
	for rows.Next() {
		var (
			res         models.TaskResult
			source      string
			output      sql.NullString
			errJSON     sql.NullString
			resDuration int64
		)
		if err := rows.Scan(&res.TaskID, &source, &res.Success, &output, &errJSON,
			&resDuration, &res.Attempts, &res.Retried); err != nil {
			return nil, fmt.Errorf("scan task result: %w", err)
		}
		res.Source = models.Source(source)
		res.Duration = time.Duration(resDuration) * time.Millisecond
		if output.Valid {
			if err := json.Unmarshal([]byte(output.String), &res.Output); err != nil {
				return nil, fmt.Errorf("unmarshal output for task %s: %w", res.TaskID, err)
			}
		}
		if errJSON.Valid {
			res.Err = &models.StructuredError{}
			if err := json.Unmarshal([]byte(errJSON.String), res.Err); err != nil {
				return nil, fmt.Errorf("unmarshal error for task %s: %w", res.TaskID, err)
			}
		}
		report.Results[res.TaskID] = &res
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task results: %w", err)
	}

	return &report, nil
}

// ListReports returns the most recent reports, newest first.
func (db *DB) ListReports(limit int) ([]ReportHead, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT plan_id, success, duration_ms, created_at
		FROM reports ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var heads []ReportHead
	for rows.Next() {
		var (
			head       ReportHead
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&head.PlanID, &head.Success, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		head.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := parseTime(createdAt); err == nil {
			head.CreatedAt = t
		}
		heads = append(heads, head)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}

	return heads, nil
}

// DeleteReport removes a stored report and its task results.
func (db *DB) DeleteReport(planID string) error {
	result, err := db.Exec(`DELETE FROM reports WHERE plan_id = ?`, planID)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
