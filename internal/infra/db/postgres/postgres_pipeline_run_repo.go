package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

var _ repository.PipelineRunRepository = (*pipelineRunRepo)(nil)

const runColumns = `id, status, jobs_discovered, jobs_processed, error_message, started_at, completed_at`

type pipelineRunRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewPipelineRunRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *pipelineRunRepo {
	return &pipelineRunRepo{pool: pool, tm: tm}
}

// CreateRunning claims the single running-run slot. The check and insert
// share one transaction; a partial unique index on status='running' backs
// the same invariant against concurrent processes.
func (r *pipelineRunRepo) CreateRunning(ctx context.Context) (*model.PipelineRun, error) {
	run := &model.PipelineRun{
		ID:        uuid.NewString(),
		Status:    model.PipelineRunStatusRunning,
		StartedAt: time.Now(),
	}

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const check = `SELECT id FROM pipeline_runs WHERE status = 'running' LIMIT 1 FOR UPDATE;`
		row, err := pickRow(ctx, r.pool, tx, check)
		if err != nil {
			return err
		}
		var existing string
		if err := row.Scan(&existing); err == nil {
			return domain.ErrPipelineAlreadyRunning
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrReadDatabaseRow
		}

		const insert = `
INSERT INTO pipeline_runs (id, status, jobs_discovered, jobs_processed, error_message, started_at)
VALUES ($1, $2, 0, 0, '', $3);`
		_, err = execSQL(ctx, r.pool, tx, insert, run.ID, run.Status, run.StartedAt)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrPipelineAlreadyRunning
		}
		return nil, err
	}
	return run, nil
}

func (r *pipelineRunRepo) Finish(ctx context.Context, run *model.PipelineRun) error {
	now := time.Now()
	run.CompletedAt = &now

	const q = `
UPDATE pipeline_runs SET
  status = $2,
  jobs_discovered = $3,
  jobs_processed = $4,
  error_message = $5,
  completed_at = $6
WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, nil, q,
		run.ID, run.Status, run.JobsDiscovered, run.JobsProcessed, run.ErrorMessage, run.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pipelineRunRepo) FindRunning(ctx context.Context) (*model.PipelineRun, error) {
	const q = `SELECT ` + runColumns + ` FROM pipeline_runs WHERE status = 'running' LIMIT 1;`
	return r.queryOne(ctx, q)
}

func (r *pipelineRunRepo) FindByID(ctx context.Context, id string) (*model.PipelineRun, error) {
	const q = `SELECT ` + runColumns + ` FROM pipeline_runs WHERE id = $1;`
	return r.queryOne(ctx, q, id)
}

func (r *pipelineRunRepo) List(ctx context.Context, limit int) ([]*model.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT ` + runColumns + ` FROM pipeline_runs ORDER BY started_at DESC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, nil, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *pipelineRunRepo) queryOne(ctx context.Context, q string, args ...interface{}) (*model.PipelineRun, error) {
	row, err := pickRow(ctx, r.pool, nil, q, args...)
	if err != nil {
		return nil, err
	}
	return scanRun(row)
}

func scanRun(row pgx.Row) (*model.PipelineRun, error) {
	var (
		run       model.PipelineRun
		statusStr string
	)
	err := row.Scan(&run.ID, &statusStr, &run.JobsDiscovered, &run.JobsProcessed,
		&run.ErrorMessage, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	run.Status = model.PipelineRunStatus(statusStr)
	return &run, nil
}
