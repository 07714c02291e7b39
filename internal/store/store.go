package store

import (
	"context"
	"time"

	"github.com/nhle/clinic-chat/internal/model"
)

// Room is a persisted channel reference.
type Room struct {
	model.RoomRef
	LastOpenedAt *time.Time
	CreatedAt    time.Time
}

// UnreadCount is the number of unread messages for a user in one room.
type UnreadCount struct {
	RoomID string `db:"room_id"`
	Count  int    `db:"unread"`
}

// Store defines persistence for the client's room list and profile, and
// for the chat data served by the development backend.
type Store interface {
	// === Rooms ===

	UpsertRoom(ctx context.Context, room model.RoomRef) error
	GetRooms(ctx context.Context) ([]Room, error)
	TouchRoom(ctx context.Context, id string) error
	DeleteRoom(ctx context.Context, id string) error

	// === Profile ===

	SaveProfile(ctx context.Context, user model.User) error
	GetProfile(ctx context.Context) (*model.User, error)

	// === Staff directory ===

	UpsertUser(ctx context.Context, user model.User) error
	GetUsers(ctx context.Context) ([]model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// === Messages and read state ===

	AppendMessage(ctx context.Context, roomID, sender, text string) (model.Message, error)
	GetMessages(ctx context.Context, roomID string) ([]model.Message, error)
	GetMessagesSince(ctx context.Context, roomID, after string) ([]model.Message, error)
	MarkRead(ctx context.Context, userID, roomID, lastTimestamp string) error
	GetUnreadCounts(ctx context.Context, user model.User) ([]UnreadCount, error)

	Close() error
}
