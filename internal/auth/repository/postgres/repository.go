package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JacquesDelfrate/auth-system/internal/auth/domain"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, name, password_hash, email_verified,
		verification_token, verification_token_expiry,
		reset_password_token, reset_password_token_expiry,
		created_at, updated_at`

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1 LIMIT 1;`, userColumns)

	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1;`, userColumns)

	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE verification_token = $1 LIMIT 1;`, userColumns)

	return r.scanUser(r.db.QueryRow(ctx, query, token))
}

func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE reset_password_token = $1 LIMIT 1;`, userColumns)

	return r.scanUser(r.db.QueryRow(ctx, query, token))
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO users (id, email, name, password_hash, email_verified, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Email, user.Name, user.PasswordHash, user.EmailVerified, user.CreatedAt, user.UpdatedAt)

	return err
}

// SetVerificationToken overwrites any outstanding verification token; the
// previous secret becomes unreachable and therefore invalid.
func (r *PostgresRepository) SetVerificationToken(ctx context.Context, userID, token string, expiry time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET verification_token = $2, verification_token_expiry = $3, updated_at = now()
		WHERE id = $1
	`, userID, token, expiry)

	return err
}

func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET email_verified = true, verification_token = NULL,
		    verification_token_expiry = NULL, updated_at = now()
		WHERE id = $1
	`, userID)

	return err
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET reset_password_token = $2, reset_password_token_expiry = $3, updated_at = now()
		WHERE id = $1
	`, userID, token, expiry)

	return err
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, reset_password_token = NULL,
		    reset_password_token_expiry = NULL, updated_at = now()
		WHERE id = $1
	`, userID, passwordHash)

	return err
}

func (r *PostgresRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.EmailVerified,
		&user.VerificationToken, &user.VerificationTokenExpiry,
		&user.ResetPasswordToken, &user.ResetPasswordTokenExpiry,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &user, nil
}
