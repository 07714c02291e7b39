package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/clinic-chat/internal/model"
)

// TimestampLayout is a fixed-width UTC layout, so stored timestamps
// compare correctly as strings.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

const messageColumns = "seq, id, room_id, sender, body, timestamp"

// AppendMessage stores a new message stamped with the current time.
func (s *SQLiteStore) AppendMessage(ctx context.Context, roomID, sender, text string) (model.Message, error) {
	if strings.TrimSpace(roomID) == "" {
		return model.Message{}, fmt.Errorf("room id must not be empty")
	}

	m := model.Message{
		ID:        uuid.NewString(),
		ChannelID: roomID,
		Sender:    sender,
		Text:      text,
		Timestamp: FormatTimestamp(time.Now()),
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, room_id, sender, body, timestamp) VALUES (?, ?, ?, ?, ?)",
		m.ID, m.ChannelID, m.Sender, m.Text, m.Timestamp,
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("inserting message: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return model.Message{}, fmt.Errorf("reading message seq: %w", err)
	}
	m.Seq = seq
	return m, nil
}

// GetMessages returns every message of a room in timestamp order.
func (s *SQLiteStore) GetMessages(ctx context.Context, roomID string) ([]model.Message, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE room_id = ? ORDER BY timestamp, seq",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages for %s: %w", roomID, err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// GetMessagesSince returns the messages of a room strictly newer than after.
func (s *SQLiteStore) GetMessagesSince(ctx context.Context, roomID, after string) ([]model.Message, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE room_id = ? AND timestamp > ? ORDER BY timestamp, seq",
		roomID, after,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages for %s since %s: %w", roomID, after, err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkRead records that userID has read roomID up to lastTimestamp. The
// stored mark never moves backwards.
func (s *SQLiteStore) MarkRead(ctx context.Context, userID, roomID, lastTimestamp string) error {
	if userID == "" || roomID == "" {
		return fmt.Errorf("user id and room id must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channel_reads (user_id, room_id, last_read_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, room_id) DO UPDATE SET
			last_read_at = MAX(channel_reads.last_read_at, excluded.last_read_at),
			updated_at   = excluded.updated_at`,
		userID, roomID, lastTimestamp, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("marking %s read for %s: %w", roomID, userID, err)
	}
	return nil
}

// GetUnreadCounts counts, per room, the messages newer than the user's read
// mark. Messages the user sent are not counted. Rooms with nothing unread
// are omitted.
func (s *SQLiteStore) GetUnreadCounts(ctx context.Context, user model.User) ([]UnreadCount, error) {
	var counts []UnreadCount
	err := s.db.SelectContext(ctx, &counts, `
		SELECT m.room_id AS room_id, COUNT(*) AS unread
		FROM messages m
		LEFT JOIN channel_reads r ON r.room_id = m.room_id AND r.user_id = ?
		WHERE m.timestamp > COALESCE(r.last_read_at, '')
		  AND m.sender NOT IN (?, ?)
		GROUP BY m.room_id
		ORDER BY m.room_id`,
		user.ID, user.ID, user.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("counting unread for %s: %w", user.ID, err)
	}
	return counts, nil
}

func scanMessages(rows *sqlx.Rows) ([]model.Message, error) {
	messages := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.Seq, &m.ID, &m.ChannelID, &m.Sender, &m.Text, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
