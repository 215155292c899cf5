package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minegate/minegate-api/internal/domain"
)

type ProfileFilter struct {
	State  string // all, approved, pending, rejected
	Search string // matched against document, names and email
}

type ProfileRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*domain.Profile, error)
	UpdateContact(ctx context.Context, userID int64, req *domain.UpdateUserRequest) (*domain.Profile, error)
	// Approve and Reject each overwrite the full approval triple
	// (approved, rejection_reason, approved_at), so repeating either
	// leaves the row unchanged.
	Approve(ctx context.Context, userID int64, at time.Time) (*domain.Profile, error)
	Reject(ctx context.Context, userID int64, reason string) (*domain.Profile, error)
	// ListWithUsers returns the permissions panel rows, always
	// excluding superusers.
	ListWithUsers(ctx context.Context, filter ProfileFilter) ([]domain.ProfileWithUser, error)
	Counts(ctx context.Context) (*domain.ApprovalCounts, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileCols = `user_id, document, phone, address, photo_url, birth_date, approved, rejection_reason, approved_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	var birth *time.Time
	err := row.Scan(
		&p.UserID, &p.Document, &p.Phone, &p.Address, &p.PhotoURL, &birth,
		&p.Approved, &p.RejectionReason, &p.ApprovedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if birth != nil {
		d := domain.DateOnly{Time: *birth}
		p.BirthDate = &d
	}
	return &p, nil
}

func (r *profileRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE user_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) UpdateContact(ctx context.Context, userID int64, req *domain.UpdateUserRequest) (*domain.Profile, error) {
	const q = `
		UPDATE profiles
		SET
			phone = COALESCE($2, phone),
			address = COALESCE($3, address),
			photo_url = COALESCE($4, photo_url),
			birth_date = COALESCE($5, birth_date),
			updated_at = now()
		WHERE user_id = $1
		RETURNING ` + profileCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var birth *time.Time
	if req.BirthDate != nil {
		birth = &req.BirthDate.Time
	}
	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID, req.Phone, req.Address, req.PhotoURL, birth))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) Approve(ctx context.Context, userID int64, at time.Time) (*domain.Profile, error) {
	const q = `
		UPDATE profiles
		SET approved = true, rejection_reason = NULL, approved_at = $2, updated_at = now()
		WHERE user_id = $1
		RETURNING ` + profileCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID, at))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) Reject(ctx context.Context, userID int64, reason string) (*domain.Profile, error) {
	const q = `
		UPDATE profiles
		SET approved = false, rejection_reason = $2, approved_at = NULL, updated_at = now()
		WHERE user_id = $1
		RETURNING ` + profileCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID, reason))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *profileRepository) ListWithUsers(ctx context.Context, filter ProfileFilter) ([]domain.ProfileWithUser, error) {
	const q = `
		SELECT p.user_id, p.document, p.phone, p.address, p.photo_url, p.birth_date,
		       p.approved, p.rejection_reason, p.approved_at, p.updated_at,
		       u.id, u.document, u.email, u.first_name, u.last_name,
		       u.is_active, u.is_staff, u.is_superuser
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE NOT u.is_superuser
		  AND ($1 = 'all'
			OR ($1 = 'approved' AND p.approved)
			OR ($1 = 'pending' AND NOT p.approved AND (p.rejection_reason IS NULL OR p.rejection_reason = ''))
			OR ($1 = 'rejected' AND NOT p.approved AND p.rejection_reason IS NOT NULL AND p.rejection_reason <> ''))
		  AND ($2 = '' OR p.document ILIKE '%'||$2||'%' OR u.email ILIKE '%'||$2||'%'
			OR u.first_name ILIKE '%'||$2||'%' OR u.last_name ILIKE '%'||$2||'%')
		ORDER BY u.created_at DESC`

	state := filter.State
	if state == "" {
		state = "all"
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, state, filter.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProfileWithUser
	for rows.Next() {
		var row domain.ProfileWithUser
		var birth *time.Time
		err := rows.Scan(
			&row.Profile.UserID, &row.Profile.Document, &row.Profile.Phone, &row.Profile.Address,
			&row.Profile.PhotoURL, &birth, &row.Profile.Approved, &row.Profile.RejectionReason,
			&row.Profile.ApprovedAt, &row.Profile.UpdatedAt,
			&row.User.ID, &row.User.Document, &row.User.Email, &row.User.FirstName, &row.User.LastName,
			&row.User.IsActive, &row.User.IsStaff, &row.User.IsSuperuser,
		)
		if err != nil {
			return nil, err
		}
		if birth != nil {
			d := domain.DateOnly{Time: *birth}
			row.Profile.BirthDate = &d
		}
		row.State = row.Profile.State()
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *profileRepository) Counts(ctx context.Context) (*domain.ApprovalCounts, error) {
	const q = `
		SELECT count(*),
		       count(*) FILTER (WHERE p.approved),
		       count(*) FILTER (WHERE NOT p.approved AND (p.rejection_reason IS NULL OR p.rejection_reason = '')),
		       count(*) FILTER (WHERE NOT p.approved AND p.rejection_reason IS NOT NULL AND p.rejection_reason <> '')
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE NOT u.is_superuser`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c domain.ApprovalCounts
	err := r.pool.QueryRow(ctx, q).Scan(&c.Total, &c.Approved, &c.Pending, &c.Rejected)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
