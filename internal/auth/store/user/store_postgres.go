package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"foodbridge/internal/auth/models"
	"foodbridge/internal/platform/postgres"
	"foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
	"foodbridge/pkg/platform/tx"
)

const userColumns = `id, name, email, password_hash, role, created_at`

// PostgresStore persists identities in PostgreSQL. Email uniqueness is
// enforced by the users_email_key index.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateIfEmailAvailable inserts user, mapping a unique violation to
// sentinel.ErrAlreadyUsed.
func (s *PostgresStore) CreateIfEmailAvailable(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required: %w", sentinel.ErrInvalidState)
	}
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(user.ID), user.Name, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("email registered: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByID returns the user or sentinel.ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(id))
}

// FindByEmail returns the user registered with email, whatever the role.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByEmailAndRole returns the user only when both email and role match.
func (s *PostgresStore) FindByEmailAndRole(ctx context.Context, email string, role domain.Role) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND role = $2`, email, string(role))
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var (
		u    models.User
		id   uuid.UUID
		role string
	)
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, args...).
		Scan(&id, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = domain.UserID(id)
	u.Role = domain.Role(role)
	return &u, nil
}
