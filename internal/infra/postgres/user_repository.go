package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-app-service/internal/domain"
)

const uniqueViolation = "23505"

// UserRepository stores credentials in the users table.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	id := uuid.NewString()
	registeredAt := time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, registered_at) VALUES ($1, $2, $3, $4)`,
		id, u.Username, u.PasswordHash, registeredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	u.RegisteredAt = registeredAt
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.User{}, domain.ErrUserNotFound
	}
	return r.queryOne(ctx, `SELECT id, username, password_hash, registered_at FROM users WHERE id=$1`, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.queryOne(ctx, `SELECT id, username, password_hash, registered_at FROM users WHERE username=$1`, username)
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, username, password_hash, registered_at FROM users ORDER BY registered_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, u domain.User) (domain.User, error) {
	if _, err := uuid.Parse(u.ID); err != nil {
		return domain.User{}, domain.ErrUserNotFound
	}
	updated, err := r.queryOne(ctx,
		`UPDATE users SET username=$2, password_hash=$3 WHERE id=$1
		 RETURNING id, username, password_hash, registered_at`,
		u.ID, u.Username, u.PasswordHash)
	if isUniqueViolation(err) {
		return domain.User{}, domain.ErrUsernameTaken
	}
	return updated, err
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrUserNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) queryOne(ctx context.Context, sql string, args ...interface{}) (domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.RegisteredAt); err != nil {
		return domain.User{}, err
	}
	u.RegisteredAt = u.RegisteredAt.UTC()
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
