package store

import (
	"context"
	"errors"

	"storefront-order-service/internal/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, password_hash, role, business_id, region, created_at`

func scanUser(row pgx.Row) (auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.BusinessID, &u.Region, &u.CreatedAt)
	u.Role = auth.Role(role)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, err
}

func (r *UserRepository) Create(ctx context.Context, u auth.User) error {
	_, err := r.db.Exec(ctx, `
		insert into users (`+userColumns+`) values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, auth.NormalizeEmail(u.Email), u.Name, u.PasswordHash, string(u.Role), u.BusinessID, u.Region, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return auth.ErrEmailInUse
	}
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (auth.User, error) {
	return scanUser(r.db.QueryRow(ctx, `select `+userColumns+` from users where email = $1`, auth.NormalizeEmail(email)))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (auth.User, error) {
	return scanUser(r.db.QueryRow(ctx, `select `+userColumns+` from users where id = $1`, id))
}

func (r *UserRepository) Update(ctx context.Context, u auth.User) error {
	tag, err := r.db.Exec(ctx, `
		update users set name = $2, role = $3, business_id = $4, region = $5 where id = $1
	`, u.ID, u.Name, string(u.Role), u.BusinessID, u.Region)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

var _ auth.Repository = (*UserRepository)(nil)
