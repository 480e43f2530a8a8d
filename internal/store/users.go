package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a workspace member.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      string // admin, user
	Active    bool
	CreatedAt int64 // unix ms
	UpdatedAt int64 // unix ms
}

const userColumns = `id, name, email, role, active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	u := &User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a new user. ID and timestamps are filled when empty.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	now := nowMillis()
	if u.CreatedAt == 0 {
		u.CreatedAt = now
	}
	if u.UpdatedAt == 0 {
		u.UpdatedAt = now
	}

	_, err := s.exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.Role, u.Active, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.Email = strings.ToLower(u.Email)
	return nil
}

// UpsertUser inserts or updates a user keyed by email and refreshes u.ID from
// the stored row.
func (s *Store) UpsertUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	u.Email = strings.ToLower(u.Email)
	now := nowMillis()

	_, err := s.exec(ctx, `
	INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (email) DO UPDATE SET
		name = excluded.name,
		role = excluded.role,
		active = excluded.active,
		updated_at = excluded.updated_at
	`, u.ID, u.Name, u.Email, u.Role, u.Active, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	stored, err := s.GetUserByEmail(ctx, u.Email)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("upserted user %s not found", u.Email)
	}
	*u = *stored
	return nil
}

// GetUser retrieves a user by ID. Returns nil, nil when missing.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively. Returns nil, nil when missing.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(s.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+s.fold("email")+` = ?`, strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// ListActiveUsers returns active users ordered by name.
func (s *Store) ListActiveUsers(ctx context.Context) ([]*User, error) {
	return s.listUsers(ctx, `SELECT `+userColumns+` FROM users WHERE active = ? ORDER BY name, email`, true)
}

// FindActiveUsersByName returns active users whose name contains fragment,
// case-insensitively, ordered by name.
func (s *Store) FindActiveUsersByName(ctx context.Context, fragment string) ([]*User, error) {
	return s.listUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE active = ? AND `+s.fold("name")+` LIKE ? ESCAPE '\' ORDER BY name, email`,
		true, likePattern(fragment))
}

func (s *Store) listUsers(ctx context.Context, query string, args ...any) ([]*User, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// SetUserActive toggles a user's active flag.
func (s *Store) SetUserActive(ctx context.Context, id string, active bool) error {
	res, err := s.exec(ctx, `UPDATE users SET active = ?, updated_at = ? WHERE id = ?`, active, nowMillis(), id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}
