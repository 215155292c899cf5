package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minegate/minegate-api/internal/domain"
)

// ErrNotFound is returned by mutations whose target row does not
// exist. Lookups signal the same thing with a nil result instead.
var ErrNotFound = errors.New("not found")

type UserFilter struct {
	Search  string // matched against document, names and email
	Active  *bool
	Staff   *bool
	Limit   int
	Offset  int
}

type UserRepository interface {
	// Create inserts the user and its profile in one transaction and
	// returns both. This is the only account-creation path.
	Create(ctx context.Context, req *domain.RegisterRequest, passwordHash string) (*domain.User, *domain.Profile, error)
	FindByDocument(ctx context.Context, document string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	Update(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error)
	Deactivate(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, document, email, first_name, last_name, password_hash, is_active, is_staff, is_superuser, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Document, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// translateUnique maps unique-constraint violations onto the same
// field errors the pre-checks produce, so a racing duplicate submission
// fails like any other validation error.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_document_key", "profiles_document_key":
		return domain.FieldErrors{"document": "this document number is already registered"}
	case "users_email_key":
		return domain.FieldErrors{"email": "this email is already registered"}
	}
	return err
}

func (r *userRepository) Create(ctx context.Context, req *domain.RegisterRequest, passwordHash string) (*domain.User, *domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	const insertUser = `
		INSERT INTO users (document, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userCols

	u, err := scanUser(tx.QueryRow(ctx, insertUser,
		req.Document, req.Email, req.FirstName, req.LastName, passwordHash))
	if err != nil {
		return nil, nil, translateUnique(err)
	}

	const insertProfile = `
		INSERT INTO profiles (user_id, document, phone)
		VALUES ($1, $2, $3)
		RETURNING ` + profileCols

	p, err := scanProfile(tx.QueryRow(ctx, insertProfile, u.ID, req.Document, req.Phone))
	if err != nil {
		return nil, nil, translateUnique(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return u, p, nil
}

func (r *userRepository) FindByDocument(ctx context.Context, document string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE document = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, document))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	const q = `
		SELECT ` + userCols + `
		FROM users
		WHERE ($1 = '' OR document ILIKE '%'||$1||'%' OR first_name ILIKE '%'||$1||'%'
			OR last_name ILIKE '%'||$1||'%' OR email ILIKE '%'||$1||'%')
		  AND ($2::boolean IS NULL OR is_active = $2)
		  AND ($3::boolean IS NULL OR is_staff = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, filter.Search, filter.Active, filter.Staff, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepository) Update(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	const q = `
		UPDATE users
		SET
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			email = COALESCE($4, email),
			is_active = COALESCE($5, is_active),
			is_staff = COALESCE($6, is_staff),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, req.FirstName, req.LastName, req.Email, req.IsActive, req.IsStaff))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, translateUnique(err)
	}
	return u, nil
}

func (r *userRepository) Deactivate(ctx context.Context, id int64) error {
	const q = `UPDATE users SET is_active = false, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
