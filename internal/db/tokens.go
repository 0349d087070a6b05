// internal/db/tokens.go
package db

import (
	"context"
	"time"
)

func (q *Queries) CreateRefreshToken(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt,
	)
	return err
}

func (q *Queries) GetRefreshToken(ctx context.Context, token string) (RefreshToken, error) {
	var t RefreshToken
	err := q.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, created_at FROM refresh_tokens WHERE token = ?`,
		token,
	).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	return t, err
}

func (q *Queries) DeleteRefreshToken(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
	return err
}

// ConsumeRefreshToken deletes a refresh token and reports whether this caller
// removed the row. Rotation uses it so only one concurrent refresh of the
// same token can win.
func (q *Queries) ConsumeRefreshToken(ctx context.Context, token string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (q *Queries) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpsertOTP stores the one-time code for a phone, replacing any earlier code.
func (q *Queries) UpsertOTP(ctx context.Context, phone, code string, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO otps (phone, code, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (phone) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at`,
		phone, code, expiresAt,
	)
	return err
}

// ConsumeOTP deletes the stored code for a phone if it matches and has not
// expired. It reports whether a code was consumed, making verification a
// single-use atomic check.
func (q *Queries) ConsumeOTP(ctx context.Context, phone, code string, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM otps WHERE phone = ? AND code = ? AND expires_at > ?`,
		phone, code, now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q *Queries) DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
