package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*jobRepo)(nil)

const jobColumns = `id, source, external_id, title, company, location, job_url, description,
       status, suitability_score, suitability_reason, sponsor_match_score, sponsor_match_names,
       discovered_at, processed_at, applied_at`

type jobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *jobRepo {
	return &jobRepo{pool: pool, tm: tm}
}

func (r *jobRepo) AllDedupKeys(ctx context.Context) (map[string]struct{}, error) {
	const q = `SELECT dedup_key FROM jobs;`
	rows, err := queryRows(ctx, r.pool, nil, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := map[string]struct{}{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

func (r *jobRepo) BulkCreate(ctx context.Context, jobs []*model.Job) (repository.BulkCreateResult, error) {
	const q = `
INSERT INTO jobs (
  id, dedup_key, source, external_id, title, company, location, job_url, description,
  status, suitability_score, suitability_reason, sponsor_match_score, sponsor_match_names,
  discovered_at, processed_at, applied_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
) ON CONFLICT (dedup_key) DO NOTHING;`

	var res repository.BulkCreateResult
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, j := range jobs {
			if j.ID == "" {
				j.ID = uuid.NewString()
			}
			if j.Status == "" {
				j.Status = model.JobStatusDiscovered
			}
			if j.DiscoveredAt.IsZero() {
				j.DiscoveredAt = time.Now()
			}
			tag, err := execSQL(ctx, r.pool, tx, q,
				j.ID, j.DedupKey(), j.Source, j.ExternalID, j.Title, j.Company, j.Location, j.JobURL, j.Description,
				j.Status, j.SuitabilityScore, j.SuitabilityReason, j.SponsorMatchScore, j.SponsorMatchNames,
				j.DiscoveredAt, j.ProcessedAt, j.AppliedAt)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				res.Skipped++
				continue
			}
			res.Created++
		}
		return nil
	})
	if err != nil {
		return repository.BulkCreateResult{}, err
	}
	return res, nil
}

func (r *jobRepo) Discovered(ctx context.Context) ([]*model.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM jobs WHERE status = 'discovered' ORDER BY discovered_at;`
	return r.queryMany(ctx, q)
}

func (r *jobRepo) ScoredDiscovered(ctx context.Context, minScore int) ([]*model.Job, error) {
	const q = `
SELECT ` + jobColumns + `
  FROM jobs
 WHERE status = 'discovered' AND suitability_score >= $1
 ORDER BY suitability_score DESC, discovered_at;`
	return r.queryMany(ctx, q, minScore)
}

func (r *jobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *jobRepo) List(ctx context.Context, filter repository.JobFilter) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs`
	var (
		args  []interface{}
		conds []string
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		conds = append(conds, "source = $"+strconv.Itoa(len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY discovered_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += " OFFSET $" + strconv.Itoa(len(args))
	}
	return r.queryMany(ctx, q+";", args...)
}

func (r *jobRepo) Update(ctx context.Context, tx repository.Tx, job *model.Job) error {
	const q = `
UPDATE jobs SET
  status = $2,
  suitability_score = $3,
  suitability_reason = $4,
  sponsor_match_score = $5,
  sponsor_match_names = $6,
  processed_at = $7,
  applied_at = $8
WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		job.ID, job.Status, job.SuitabilityScore, job.SuitabilityReason,
		job.SponsorMatchScore, job.SponsorMatchNames, job.ProcessedAt, job.AppliedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) MarkExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
UPDATE jobs SET status = 'expired'
 WHERE status IN ('discovered','ready') AND discovered_at < $1;`
	tag, err := execSQL(ctx, r.pool, nil, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *jobRepo) queryMany(ctx context.Context, q string, args ...interface{}) ([]*model.Job, error) {
	rows, err := queryRows(ctx, r.pool, nil, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j         model.Job
		statusStr string
	)
	err := row.Scan(
		&j.ID, &j.Source, &j.ExternalID, &j.Title, &j.Company, &j.Location, &j.JobURL, &j.Description,
		&statusStr, &j.SuitabilityScore, &j.SuitabilityReason, &j.SponsorMatchScore, &j.SponsorMatchNames,
		&j.DiscoveredAt, &j.ProcessedAt, &j.AppliedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	j.Status = model.JobStatus(statusStr)
	return &j, nil
}
