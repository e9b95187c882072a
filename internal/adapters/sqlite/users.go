package sqlite

import (
	"context"
	"fmt"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

const userColumns = `id, email, name, role, password_hash, push_token, created_at`

func scanUser(row rowScanner) (*entities.User, error) {
	var u entities.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.PushToken, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = entities.Role(role)
	return &u, nil
}

// CreateUser inserts an account. Emails are unique.
func (s *Store) CreateUser(ctx context.Context, u *entities.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Name, string(u.Role), u.PasswordHash, u.PushToken, u.CreatedAt)
	return translate("user "+u.Email, err)
}

// DeleteUser removes an account. Profile rows go with it.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return translate("user "+id, err)
	}
	return requireAffected(res, "user "+id)
}

// GetUser returns one account.
func (s *Store) GetUser(ctx context.Context, id string) (*entities.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, translate("user "+id, err)
	}
	return u, nil
}

// GetUserByEmail returns the account with the given email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, translate("user "+email, err)
	}
	return u, nil
}

// ListUsers returns every account in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]entities.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var out []entities.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// SetPushToken stores the device token of a user.
func (s *Store) SetPushToken(ctx context.Context, userID, token string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET push_token = ? WHERE id = ?`, token, userID)
	if err != nil {
		return translate("user "+userID, err)
	}
	return requireAffected(res, "user "+userID)
}

// SaveNotification inserts a notification.
func (s *Store) SaveNotification(ctx context.Context, n *entities.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, body, read, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.Title, n.Body, n.Read, n.CreatedAt)
	return translate("notification "+n.ID, err)
}

// ListNotifications returns the notifications of userID, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]entities.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, body, read, created_at
		FROM notifications WHERE user_id = ? ORDER BY rowid DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var out []entities.Notification
	for rows.Next() {
		var n entities.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags a notification of userID as read.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return translate("notification "+id, err)
	}
	return requireAffected(res, "notification "+id)
}
