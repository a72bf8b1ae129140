package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/run"
	"sibdebt/domain/study"
	"sibdebt/internal/errors"
	"sibdebt/ports"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// SaveResult persists the run record, fitted and skipped models, and
// validation findings in one transaction.
func (r *RunRepositoryImpl) SaveResult(ctx context.Context, result *run.StudyResult) error {
	start := time.Now()

	manifestJSON, err := json.Marshal(result.Manifest)
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	record := result.ToRecord()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at, status, survey_year, analysis_rows, model_count, fingerprint, manifest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, record.RunID.String(), record.CreatedAt.Time(), string(record.Status), record.SurveyYear,
		record.AnalysisRows, record.ModelCount, record.Fingerprint.String(), manifestJSON)
	if err != nil {
		return errors.Wrap(err, "failed to insert run")
	}

	for _, m := range result.Models {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO model_results (run_id, name, label, estimator, dep_var, robust_se, scale_features,
				n_obs, terms, coefficients, std_errors, t_values, p_values,
				r_squared, adj_r_squared, aic, bic)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`, record.RunID.String(), m.Spec.Name, m.Spec.Label, string(m.Spec.Estimator), m.Spec.DepVar,
			string(m.Spec.RobustSE), m.Spec.ScaleFeatures, m.NObs,
			pq.StringArray(m.Terms), pq.Float64Array(m.Coefficients), pq.Float64Array(m.StdErrors),
			pq.Float64Array(m.TValues), pq.Float64Array(m.PValues),
			m.RSquared, m.AdjRSquared, m.AIC, m.BIC)
		if err != nil {
			return errors.Wrapf(err, "failed to insert model %s", m.Spec.Name)
		}
	}

	for _, s := range result.Skipped {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO skipped_models (run_id, name, reason) VALUES ($1, $2, $3)
		`, record.RunID.String(), s.Name, s.Reason)
		if err != nil {
			return errors.Wrapf(err, "failed to insert skipped model %s", s.Name)
		}
	}

	if result.Validation != nil {
		for _, v := range result.Validation.Violations {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO validation_issues (run_id, column_name, rule, severity, detail)
				VALUES ($1, $2, $3, $4, $5)
			`, record.RunID.String(), v.Column, v.Rule, string(v.Severity), v.Detail)
			if err != nil {
				return errors.Wrap(err, "failed to insert validation issue")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit run")
	}

	log.Printf("[RunRepository] Saved run %s (%d models, %d issues) in %.2fms",
		record.RunID, len(result.Models), violationCount(result), float64(time.Since(start).Microseconds())/1000.0)
	return nil
}

func violationCount(result *run.StudyResult) int {
	if result.Validation == nil {
		return 0
	}
	return len(result.Validation.Violations)
}

// GetRun retrieves one run record by ID.
func (r *RunRepositoryImpl) GetRun(ctx context.Context, runID core.RunID) (*run.Record, error) {
	var record run.Record
	err := r.db.GetContext(ctx, &record, `
		SELECT run_id, created_at, status, survey_year, analysis_rows, model_count, fingerprint
		FROM runs
		WHERE run_id = $1
	`, runID.String())
	if goerrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load run %s", runID)
	}
	return &record, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]run.Record, error) {
	query := `
		SELECT run_id, created_at, status, survey_year, analysis_rows, model_count, fingerprint
		FROM runs
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var records []run.Record
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return records, nil
}

// GetModelResults returns the fitted models of one run in insertion
// order.
func (r *RunRepositoryImpl) GetModelResults(ctx context.Context, runID core.RunID) ([]study.ModelResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, label, estimator, dep_var, robust_se, scale_features,
			n_obs, terms, coefficients, std_errors, t_values, p_values,
			r_squared, adj_r_squared, aic, bic
		FROM model_results
		WHERE run_id = $1
		ORDER BY created_at, name
	`, runID.String())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load models for run %s", runID)
	}
	defer rows.Close()

	var results []study.ModelResult
	for rows.Next() {
		var (
			m         study.ModelResult
			estimator string
			robustSE  string
			terms     pq.StringArray
			coefs     pq.Float64Array
			ses       pq.Float64Array
			tvals     pq.Float64Array
			pvals     pq.Float64Array
		)
		err := rows.Scan(
			&m.Spec.Name, &m.Spec.Label, &estimator, &m.Spec.DepVar, &robustSE, &m.Spec.ScaleFeatures,
			&m.NObs, &terms, &coefs, &ses, &tvals, &pvals,
			&m.RSquared, &m.AdjRSquared, &m.AIC, &m.BIC,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan model row")
		}
		m.Spec.Estimator = study.Estimator(estimator)
		m.Spec.RobustSE = study.RobustSE(robustSE)
		m.Terms = []string(terms)
		if len(m.Terms) > 1 {
			m.Spec.IndepVars = m.Terms[1:]
		}
		m.Coefficients = []float64(coefs)
		m.StdErrors = []float64(ses)
		m.TValues = []float64(tvals)
		m.PValues = []float64(pvals)
		results = append(results, m)
	}
	return results, rows.Err()
}

// GetValidationIssues returns the validation findings of one run.
func (r *RunRepositoryImpl) GetValidationIssues(ctx context.Context, runID core.RunID) ([]dataset.Violation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT column_name, rule, severity, detail
		FROM validation_issues
		WHERE run_id = $1
		ORDER BY severity, column_name
	`, runID.String())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load validation issues for run %s", runID)
	}
	defer rows.Close()

	var issues []dataset.Violation
	for rows.Next() {
		var v dataset.Violation
		var severity string
		if err := rows.Scan(&v.Column, &v.Rule, &severity, &v.Detail); err != nil {
			return nil, errors.Wrap(err, "failed to scan validation issue")
		}
		v.Severity = dataset.Severity(severity)
		issues = append(issues, v)
	}
	return issues, rows.Err()
}
