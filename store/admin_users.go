package store

import (
	"context"
	"time"
)

type AdminUser struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

func (q *Queries) CreateAdminUser(ctx context.Context, username, passwordHash string) error {
	_, err := q.exec(ctx, `INSERT INTO admin_users (username, password_hash) VALUES (?, ?)`, username, passwordHash)
	return err
}

func (q *Queries) GetAdminUser(ctx context.Context, username string) (*AdminUser, error) {
	var u AdminUser
	var createdAt any
	err := q.queryRow(ctx, `SELECT id, username, password_hash, created_at FROM admin_users WHERE username=?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

func (q *Queries) UpdateAdminPassword(ctx context.Context, username, passwordHash string) error {
	_, err := q.exec(ctx, `UPDATE admin_users SET password_hash=? WHERE username=?`, passwordHash, username)
	return err
}

func (q *Queries) AdminUserExists(ctx context.Context) (bool, error) {
	var count int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&count)
	return count > 0, err
}
