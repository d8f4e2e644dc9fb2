package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales_leads_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidReference is returned for an unknown role, service type or permission id.
	ErrInvalidReference = errors.New("referenced record does not exist")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Repository struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

func New(pool *pgxpool.Pool, acquireTimeout time.Duration) *Repository {
	return &Repository{pool: pool, acquireTimeout: acquireTimeout}
}

// User is a stored account with its service set. Timestamps are civil time.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	RoleID       int64
	Active       bool
	ServiceIDs   []int64
	CreatedAt    string
	UpdatedAt    string
}

type Permission struct {
	ID   int64
	Name string
}

// UserFields are the columns an admin controls. An empty PasswordHash keeps the stored one.
type UserFields struct {
	Username     string
	Email        string
	PasswordHash string
	RoleID       int64
	ServiceIDs   []int64
}

const userColumns = `u.id, u.username, u.email, u.password_hash, u.role_id, u.active,
	COALESCE(array_agg(ust.service_type_id ORDER BY ust.service_type_id) FILTER (WHERE ust.service_type_id IS NOT NULL), '{}'),
	to_char(u.created_at, 'YYYY-MM-DD HH24:MI:SS'), to_char(u.updated_at, 'YYYY-MM-DD HH24:MI:SS')`

const userFrom = `
	FROM users u
	LEFT JOIN user_service_types ust ON ust.user_id = u.id`

const userGroupBy = `
	GROUP BY u.id`

const getUserQuery = `SELECT ` + userColumns + userFrom + `
	WHERE u.id = $1` + userGroupBy

// getByLoginQuery matches the username exactly or the email case-insensitively.
const getByLoginQuery = `SELECT ` + userColumns + userFrom + `
	WHERE u.active AND (u.username = $1 OR u.email = lower($1))` + userGroupBy + `
	ORDER BY u.id
	LIMIT 1`

const listUsersQuery = `SELECT ` + userColumns + userFrom + `
	WHERE u.active` + userGroupBy + `
	ORDER BY u.id`

const insertUserQuery = `
	INSERT INTO users (username, email, password_hash, role_id, active, created_at, updated_at)
	VALUES ($1, lower($2), $3, $4, true, now() AT TIME ZONE 'Asia/Kolkata', now() AT TIME ZONE 'Asia/Kolkata')
	RETURNING id`

const updateUserQuery = `
	UPDATE users SET
		username = $2, email = lower($3), role_id = $4,
		password_hash = CASE WHEN $5 = '' THEN password_hash ELSE $5 END,
		updated_at = now() AT TIME ZONE 'Asia/Kolkata'
	WHERE id = $1 AND active`

const clearServicesQuery = `DELETE FROM user_service_types WHERE user_id = $1`

const insertServicesQuery = `
	INSERT INTO user_service_types (user_id, service_type_id)
	SELECT $1, unnest($2::integer[])
	ON CONFLICT DO NOTHING`

const deactivateUserQuery = `
	UPDATE users SET active = false, updated_at = now() AT TIME ZONE 'Asia/Kolkata'
	WHERE id = $1 AND active`

const setPasswordQuery = `
	UPDATE users SET password_hash = $2, updated_at = now() AT TIME ZONE 'Asia/Kolkata'
	WHERE id = $1`

const permissionsQuery = `
	SELECT p.id, p.name
	FROM user_permissions up
	JOIN permissions p ON p.id = up.permission_id
	WHERE up.user_id = $1
	ORDER BY p.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID, &u.Active,
		&u.ServiceIDs, &u.CreatedAt, &u.UpdatedAt)
	if u.ServiceIDs == nil {
		u.ServiceIDs = []int64{}
	}
	return u, err
}

func (r *Repository) GetByID(ctx context.Context, id int64) (User, error) {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return User{}, err
	}
	defer conn.Release()

	return r.getWith(ctx, conn, id)
}

func (r *Repository) getWith(ctx context.Context, q db.Querier, id int64) (User, error) {
	u, err := scanUser(q.QueryRow(ctx, getUserQuery, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// GetByLogin finds an active user by username or email.
func (r *Repository) GetByLogin(ctx context.Context, login string) (User, error) {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return User{}, err
	}
	defer conn.Release()

	u, err := scanUser(conn.QueryRow(ctx, getByLoginQuery, login))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// List returns active users.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, listUsersQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts the user and its service set in one transaction.
func (r *Repository) Create(ctx context.Context, f UserFields) (User, error) {
	var user User
	err := db.InTx(ctx, r.pool, r.acquireTimeout, func(tx pgx.Tx) error {
		var id int64
		if err := tx.QueryRow(ctx, insertUserQuery, f.Username, f.Email, f.PasswordHash, f.RoleID).Scan(&id); err != nil {
			return mapWriteError(err)
		}
		if err := replaceServices(ctx, tx, id, f.ServiceIDs); err != nil {
			return err
		}
		var err error
		user, err = r.getWith(ctx, tx, id)
		return err
	})
	return user, err
}

// Update rewrites the user and replaces its service set. Inactive users are not found.
func (r *Repository) Update(ctx context.Context, id int64, f UserFields) (User, error) {
	var user User
	err := db.InTx(ctx, r.pool, r.acquireTimeout, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateUserQuery, id, f.Username, f.Email, f.RoleID, f.PasswordHash)
		if err != nil {
			return mapWriteError(err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if err := replaceServices(ctx, tx, id, f.ServiceIDs); err != nil {
			return err
		}
		user, err = r.getWith(ctx, tx, id)
		return err
	})
	return user, err
}

func replaceServices(ctx context.Context, tx pgx.Tx, userID int64, serviceIDs []int64) error {
	if _, err := tx.Exec(ctx, clearServicesQuery, userID); err != nil {
		return err
	}
	if len(serviceIDs) == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, insertServicesQuery, userID, serviceIDs); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Deactivate soft-deletes the user. Leads keep pointing at it.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, deactivateUserQuery, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, setPasswordQuery, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Permissions(ctx context.Context, userID int64) ([]Permission, error) {
	conn, err := db.Acquire(ctx, r.pool, r.acquireTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, permissionsQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := make([]Permission, 0)
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		return ErrEmailTaken
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
	}
	return err
}
