// Package rpcbackend implements backend.Backend on top of the action RPC
// client.
package rpcbackend

import (
	"context"
	"fmt"

	"github.com/nhle/clinic-chat/internal/backend"
	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/rpc"
)

// Caller is the subset of rpc.Client used by the adapter.
type Caller interface {
	Call(ctx context.Context, action string, payload, result any) error
}

// Backend maps chat operations onto RPC actions.
type Backend struct {
	client Caller
}

var _ backend.Backend = (*Backend)(nil)

// New creates a Backend using client.
func New(client Caller) *Backend {
	return &Backend{client: client}
}

// ListMessages implements backend.Backend.
func (b *Backend) ListMessages(ctx context.Context, channelID string) ([]model.Message, error) {
	var data messagesData
	if err := b.client.Call(ctx, rpc.ActionListMessages, roomPayload{RoomID: channelID}, &data); err != nil {
		return nil, fmt.Errorf("listing messages for %s: %w", channelID, err)
	}
	return toModels(data.Messages, channelID), nil
}

// ListMessagesSince implements backend.Backend.
func (b *Backend) ListMessagesSince(ctx context.Context, channelID, after string) ([]model.Message, error) {
	var data messagesData
	payload := sincePayload{RoomID: channelID, AfterTimestamp: after}
	if err := b.client.Call(ctx, rpc.ActionListMessagesSince, payload, &data); err != nil {
		return nil, fmt.Errorf("listing messages for %s since %s: %w", channelID, after, err)
	}
	return toModels(data.Messages, channelID), nil
}

// SendMessage implements backend.Backend. The server may answer with the
// full message list or with only the created message.
func (b *Backend) SendMessage(ctx context.Context, channelID, sender, text string) (backend.SendResult, error) {
	var data sendData
	payload := sendPayload{RoomID: channelID, Sender: sender, Message: text}
	if err := b.client.Call(ctx, rpc.ActionSendMessage, payload, &data); err != nil {
		return backend.SendResult{}, fmt.Errorf("sending message to %s: %w", channelID, err)
	}

	switch {
	case data.Messages != nil:
		return backend.SendResult{
			Messages:      toModels(*data.Messages, channelID),
			Authoritative: true,
		}, nil
	case data.Message != nil:
		created := data.Message.toModel(channelID)
		return backend.SendResult{Created: &created}, nil
	default:
		return backend.SendResult{}, &rpc.ProtocolError{
			Action:  rpc.ActionSendMessage,
			Message: "response carries neither messages nor message",
		}
	}
}

// MarkAsRead implements backend.Backend.
func (b *Backend) MarkAsRead(ctx context.Context, channelID, userID, lastTimestamp string) error {
	payload := markReadPayload{RoomID: channelID, UserID: userID, LastTimestamp: lastTimestamp}
	if err := b.client.Call(ctx, rpc.ActionMarkAsRead, payload, nil); err != nil {
		return fmt.Errorf("marking %s as read: %w", channelID, err)
	}
	return nil
}

// GetUnreadSummary implements backend.Backend.
func (b *Backend) GetUnreadSummary(ctx context.Context, userID string) ([]backend.UnreadEntry, error) {
	var data unreadData
	if err := b.client.Call(ctx, rpc.ActionGetUnreadSummary, userPayload{UserID: userID}, &data); err != nil {
		return nil, fmt.Errorf("getting unread summary: %w", err)
	}
	out := make([]backend.UnreadEntry, 0, len(data.Rooms))
	for _, r := range data.Rooms {
		if r.RoomID == "" {
			continue
		}
		count := r.UnreadCount
		if count < 0 {
			count = 0
		}
		out = append(out, backend.UnreadEntry{ChannelID: r.RoomID, Count: count})
	}
	return out, nil
}

// ListUsers implements backend.Backend.
func (b *Backend) ListUsers(ctx context.Context) ([]model.User, error) {
	var data usersData
	if err := b.client.Call(ctx, rpc.ActionListUsers, nil, &data); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	out := make([]model.User, 0, len(data.Users))
	for _, u := range data.Users {
		out = append(out, model.User{ID: string(u.ID), Name: u.Name, Type: u.Type})
	}
	return out, nil
}
