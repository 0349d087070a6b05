// internal/db/users.go
package db

import (
	"context"
	"database/sql"
)

const userColumns = `id, phone, email, password_hash, full_name, city, role, is_verified, created_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Phone, &u.Email, &u.PasswordHash, &u.FullName,
		&u.City, &u.Role, &u.IsVerified, &u.CreatedAt,
	)
	return u, err
}

type CreateUserParams struct {
	ID           string
	Phone        string
	Email        sql.NullString
	PasswordHash sql.NullString
	FullName     string
	City         sql.NullString
	Role         string
	IsVerified   bool
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO users (id, phone, email, password_hash, full_name, city, role, is_verified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ID, arg.Phone, arg.Email, arg.PasswordHash, arg.FullName, arg.City, arg.Role, arg.IsVerified,
	)
	if err != nil {
		return User{}, err
	}
	return q.GetUser(ctx, arg.ID)
}

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByPhone(ctx context.Context, phone string) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = ?`, phone)
	return scanUser(row)
}

func (q *Queries) MarkUserVerified(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET is_verified = 1 WHERE id = ?`, id)
	return err
}
