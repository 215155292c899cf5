package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minegate/minegate-api/internal/domain"
)

type InternalVisitRepository interface {
	Create(ctx context.Context, req *domain.InternalVisitRequest) (*domain.InternalVisit, error)
	GetByID(ctx context.Context, id int64) (*domain.InternalVisit, error)
	List(ctx context.Context, filter VisitFilter) ([]domain.InternalVisit, error)
	Update(ctx context.Context, id int64, req *domain.InternalVisitRequest) (*domain.InternalVisit, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type internalVisitRepository struct {
	pool *pgxpool.Pool
}

func NewInternalVisitRepository(pool *pgxpool.Pool) InternalVisitRepository {
	return &internalVisitRepository{pool: pool}
}

const internalVisitCols = `id, name, responsible, phone, headcount, visit_date, status, created_at, updated_at`

func scanInternalVisit(row pgx.Row) (*domain.InternalVisit, error) {
	var v domain.InternalVisit
	err := row.Scan(
		&v.ID, &v.Name, &v.Responsible, &v.Phone, &v.Headcount,
		&v.Date.Time, &v.Status, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *internalVisitRepository) Create(ctx context.Context, req *domain.InternalVisitRequest) (*domain.InternalVisit, error) {
	const q = `
		INSERT INTO internal_visits (name, responsible, phone, headcount, visit_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + internalVisitCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanInternalVisit(r.pool.QueryRow(ctx, q,
		req.Name, req.Responsible, req.Phone, req.Headcount, req.Date.Time, req.Status,
	))
}

func (r *internalVisitRepository) GetByID(ctx context.Context, id int64) (*domain.InternalVisit, error) {
	const q = `SELECT ` + internalVisitCols + ` FROM internal_visits WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	v, err := scanInternalVisit(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (r *internalVisitRepository) List(ctx context.Context, filter VisitFilter) ([]domain.InternalVisit, error) {
	const q = `
		SELECT ` + internalVisitCols + `
		FROM internal_visits
		WHERE ($1 = '' OR name ILIKE '%'||$1||'%')
		  AND ($2::bigint IS NULL OR id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY visit_date DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, filter.Name, filter.ID, filter.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []domain.InternalVisit
	for rows.Next() {
		v, err := scanInternalVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	return visits, rows.Err()
}

func (r *internalVisitRepository) Update(ctx context.Context, id int64, req *domain.InternalVisitRequest) (*domain.InternalVisit, error) {
	const q = `
		UPDATE internal_visits
		SET name = $2, responsible = $3, phone = $4, headcount = $5,
		    visit_date = $6, status = $7, updated_at = now()
		WHERE id = $1
		RETURNING ` + internalVisitCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	v, err := scanInternalVisit(r.pool.QueryRow(ctx, q, id,
		req.Name, req.Responsible, req.Phone, req.Headcount, req.Date.Time, req.Status,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (r *internalVisitRepository) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM internal_visits WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
