package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/palitan-tayo-api/internal/domain"
)

const uniqueViolation = "23505"

const userColumns = `id, first_name, last_name, email, username, password_hash,
		 age, contact_number, profile_image, created_at, updated_at`

// UserRepo stores accounts in the users table. Email and username uniqueness
// is enforced by the table constraints.
type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query :=
		`INSERT INTO users (` + userColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 `

	_, err := r.db.ExecContext(ctx, query,
		u.UserID, u.FirstName, u.LastName, u.Email, u.Username, u.PasswordHash,
		u.Age, u.ContactNumber, u.ProfileImage, u.CreatedAt, u.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return domain.Conflict("Username already exists.")
		case "users_email_key":
			return domain.Conflict("Email is already registered.")
		}
		return fmt.Errorf("user %s: %w", u.UserID, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.getBy(ctx, "id", userID)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query :=
		`UPDATE users SET password_hash = $1, updated_at = $2
		 WHERE id = $3
		 `

	res, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}

// getBy loads one user by a unique column. column is never user input.
func (r *UserRepo) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE ` + column + ` = $1
		 `

	var (
		u       domain.User
		age     sql.NullInt32
		contact sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&u.UserID, &u.FirstName, &u.LastName, &u.Email, &u.Username, &u.PasswordHash,
		&age, &contact, &u.ProfileImage, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with %s %q: %w", column, value, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if age.Valid {
		a := int(age.Int32)
		u.Age = &a
	}
	if contact.Valid {
		u.ContactNumber = &contact.String
	}
	return &u, nil
}
