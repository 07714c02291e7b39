package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/clinic-chat/internal/model"
)

// UpsertRoom inserts a room or updates the non-empty fields of an existing one.
func (s *SQLiteStore) UpsertRoom(ctx context.Context, room model.RoomRef) error {
	if strings.TrimSpace(room.ID) == "" {
		return fmt.Errorf("room id must not be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, title, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title       = CASE WHEN excluded.title = '' THEN rooms.title ELSE excluded.title END,
			description = CASE WHEN excluded.description = '' THEN rooms.description ELSE excluded.description END`,
		room.ID, room.Title, room.Description, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting room %s: %w", room.ID, err)
	}
	return nil
}

// GetRooms retrieves all rooms, most recently opened first.
func (s *SQLiteStore) GetRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, title, description, last_opened_at, created_at
		FROM rooms
		ORDER BY last_opened_at IS NULL, last_opened_at DESC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var (
			r          Room
			lastOpened sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &lastOpened, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning room row: %w", err)
		}
		if lastOpened.Valid {
			t := lastOpened.Time
			r.LastOpenedAt = &t
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// TouchRoom records that a room was just opened.
func (s *SQLiteStore) TouchRoom(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE rooms SET last_opened_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touching room %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("room %s not found", id)
	}
	return nil
}

// DeleteRoom removes a room from the local list.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting room %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("room %s not found", id)
	}
	return nil
}

// SaveProfile stores the chosen chat user.
func (s *SQLiteStore) SaveProfile(ctx context.Context, user model.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("user id must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO profile (key, user_id, name, type, updated_at)
		VALUES ('current', ?, ?, ?, ?)`,
		user.ID, user.Name, user.Type, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// GetProfile returns the stored chat user, or nil when none was saved.
func (s *SQLiteStore) GetProfile(ctx context.Context) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowxContext(ctx,
		"SELECT user_id, name, type FROM profile WHERE key = 'current'",
	).Scan(&u.ID, &u.Name, &u.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return &u, nil
}

// UpsertUser inserts or replaces a staff directory entry.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user model.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("user id must not be empty")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO users (id, name, type) VALUES (?, ?, ?)",
		user.ID, user.Name, user.Type,
	)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", user.ID, err)
	}
	return nil
}

// GetUsers retrieves the staff directory ordered by name.
func (s *SQLiteStore) GetUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT id, name, type FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Type); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUserByID returns one staff member, or nil when unknown.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowxContext(ctx,
		"SELECT id, name, type FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return &u, nil
}
