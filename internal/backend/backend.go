// Package backend defines the chat operations the sync engine needs from the
// server, independent of the transport that carries them.
package backend

import (
	"context"

	"github.com/nhle/clinic-chat/internal/model"
)

//go:generate mockgen -destination=mocks/mock_backend.go -package=mocks -source=backend.go Backend

// UnreadEntry is one row of the unread summary.
type UnreadEntry struct {
	ChannelID string
	Count     int
}

// SendResult is the server answer to a send. Exactly one of Messages or
// Created is meaningful: Messages when the server returned the
// authoritative list, Created when it returned only the new message.
type SendResult struct {
	Messages []model.Message
	Created  *model.Message
	// Authoritative reports that Messages is the full channel list.
	Authoritative bool
}

// Backend is the set of chat actions exposed by the server.
type Backend interface {
	// ListMessages returns every message of the channel.
	ListMessages(ctx context.Context, channelID string) ([]model.Message, error)

	// ListMessagesSince returns messages strictly newer than after.
	ListMessagesSince(ctx context.Context, channelID, after string) ([]model.Message, error)

	// SendMessage posts text as sender.
	SendMessage(ctx context.Context, channelID, sender, text string) (SendResult, error)

	// MarkAsRead records that userID has read channelID up to lastTimestamp.
	MarkAsRead(ctx context.Context, channelID, userID, lastTimestamp string) error

	// GetUnreadSummary returns unread counts for every channel the user has.
	GetUnreadSummary(ctx context.Context, userID string) ([]UnreadEntry, error)

	// ListUsers returns the staff members that can chat.
	ListUsers(ctx context.Context) ([]model.User, error)
}
