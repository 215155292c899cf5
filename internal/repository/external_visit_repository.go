package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minegate/minegate-api/internal/domain"
)

type VisitFilter struct {
	Name   string // substring match
	ID     *int64 // exact match
	Status string // internal visits only
}

type ExternalVisitRepository interface {
	Create(ctx context.Context, req *domain.ExternalVisitRequest) (*domain.ExternalVisit, error)
	GetByID(ctx context.Context, id int64) (*domain.ExternalVisit, error)
	List(ctx context.Context, filter VisitFilter) ([]domain.ExternalVisit, error)
	Update(ctx context.Context, id int64, req *domain.ExternalVisitRequest) (*domain.ExternalVisit, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type externalVisitRepository struct {
	pool *pgxpool.Pool
}

func NewExternalVisitRepository(pool *pgxpool.Pool) ExternalVisitRepository {
	return &externalVisitRepository{pool: pool}
}

const externalVisitCols = `id, name, responsible, email, phone, articulation, headcount, visit_date, visit_time, created_at, updated_at`

func scanExternalVisit(row pgx.Row) (*domain.ExternalVisit, error) {
	var v domain.ExternalVisit
	err := row.Scan(
		&v.ID, &v.Name, &v.Responsible, &v.Email, &v.Phone, &v.Articulation,
		&v.Headcount, &v.Date.Time, &v.Time.Time, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *externalVisitRepository) Create(ctx context.Context, req *domain.ExternalVisitRequest) (*domain.ExternalVisit, error) {
	const q = `
		INSERT INTO external_visits (name, responsible, email, phone, articulation, headcount, visit_date, visit_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + externalVisitCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanExternalVisit(r.pool.QueryRow(ctx, q,
		req.Name, req.Responsible, req.Email, req.Phone, req.Articulation,
		req.Headcount, req.Date.Time, req.Time.Time,
	))
}

func (r *externalVisitRepository) GetByID(ctx context.Context, id int64) (*domain.ExternalVisit, error) {
	const q = `SELECT ` + externalVisitCols + ` FROM external_visits WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	v, err := scanExternalVisit(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (r *externalVisitRepository) List(ctx context.Context, filter VisitFilter) ([]domain.ExternalVisit, error) {
	const q = `
		SELECT ` + externalVisitCols + `
		FROM external_visits
		WHERE ($1 = '' OR name ILIKE '%'||$1||'%')
		  AND ($2::bigint IS NULL OR id = $2)
		ORDER BY visit_date DESC, visit_time DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, filter.Name, filter.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []domain.ExternalVisit
	for rows.Next() {
		v, err := scanExternalVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	return visits, rows.Err()
}

func (r *externalVisitRepository) Update(ctx context.Context, id int64, req *domain.ExternalVisitRequest) (*domain.ExternalVisit, error) {
	const q = `
		UPDATE external_visits
		SET name = $2, responsible = $3, email = $4, phone = $5, articulation = $6,
		    headcount = $7, visit_date = $8, visit_time = $9, updated_at = now()
		WHERE id = $1
		RETURNING ` + externalVisitCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	v, err := scanExternalVisit(r.pool.QueryRow(ctx, q, id,
		req.Name, req.Responsible, req.Email, req.Phone, req.Articulation,
		req.Headcount, req.Date.Time, req.Time.Time,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (r *externalVisitRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM external_visits WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
