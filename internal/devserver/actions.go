package devserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nhle/clinic-chat/internal/model"
)

type wireMessage struct {
	ID        string `json:"id"`
	RoomID    string `json:"roomId"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Seq       int64  `json:"seq"`
}

func toWire(msgs []model.Message) []wireMessage {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toWireMessage(m))
	}
	return out
}

func toWireMessage(m model.Message) wireMessage {
	return wireMessage{
		ID:        m.ID,
		RoomID:    m.ChannelID,
		Sender:    m.Sender,
		Message:   m.Text,
		Timestamp: m.Timestamp,
		Seq:       m.Seq,
	}
}

func (s *Server) sendMessage(ctx context.Context, payload json.RawMessage) (any, error) {
	var p struct {
		RoomID  string `json:"roomId"`
		Sender  string `json:"sender"`
		Message string `json:"message"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(p.Message)
	if err := requireAll("roomId", p.RoomID, "sender", p.Sender, "message", text); err != nil {
		return nil, err
	}

	created, err := s.store.AppendMessage(ctx, p.RoomID, p.Sender, text)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("channel", p.RoomID).Int64("seq", created.Seq).Msg("message stored")

	if s.createdOnly {
		return map[string]any{"message": toWireMessage(created)}, nil
	}
	msgs, err := s.store.GetMessages(ctx, p.RoomID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"messages": toWire(msgs)}, nil
}

func (s *Server) listMessages(ctx context.Context, payload json.RawMessage) (any, error) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if err := required("roomId", p.RoomID); err != nil {
		return nil, err
	}
	msgs, err := s.store.GetMessages(ctx, p.RoomID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"messages": toWire(msgs)}, nil
}

func (s *Server) listMessagesSince(ctx context.Context, payload json.RawMessage) (any, error) {
	var p struct {
		RoomID         string `json:"roomId"`
		AfterTimestamp string `json:"afterTimestamp"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if err := required("roomId", p.RoomID); err != nil {
		return nil, err
	}

	var (
		msgs []model.Message
		err  error
	)
	if p.AfterTimestamp == "" {
		msgs, err = s.store.GetMessages(ctx, p.RoomID)
	} else {
		msgs, err = s.store.GetMessagesSince(ctx, p.RoomID, p.AfterTimestamp)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"messages": toWire(msgs)}, nil
}

func (s *Server) markAsRead(ctx context.Context, payload json.RawMessage) (any, error) {
	var p struct {
		RoomID        string `json:"roomId"`
		UserID        string `json:"userId"`
		LastTimestamp string `json:"lastTimestamp"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if err := requireAll("roomId", p.RoomID, "userId", p.UserID, "lastTimestamp", p.LastTimestamp); err != nil {
		return nil, err
	}
	if err := s.store.MarkRead(ctx, p.UserID, p.RoomID, p.LastTimestamp); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func (s *Server) getUnreadSummary(ctx context.Context, payload json.RawMessage) (any, error) {
	var p struct {
		UserID string `json:"userId"`
	}
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if err := required("userId", p.UserID); err != nil {
		return nil, err
	}

	user := model.User{ID: p.UserID}
	known, err := s.store.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if known != nil {
		user = *known
	}

	counts, err := s.store.GetUnreadCounts(ctx, user)
	if err != nil {
		return nil, err
	}
	type room struct {
		RoomID      string `json:"roomId"`
		UnreadCount int    `json:"unreadCount"`
	}
	rooms := make([]room, 0, len(counts))
	for _, c := range counts {
		rooms = append(rooms, room{RoomID: c.RoomID, UnreadCount: c.Count})
	}
	return map[string]any{"rooms": rooms}, nil
}

func (s *Server) listUsers(ctx context.Context, _ json.RawMessage) (any, error) {
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	type wireUser struct {
		ID   string `json:"idUsuario"`
		Name string `json:"nome"`
		Type string `json:"tipo"`
	}
	out := make([]wireUser, 0, len(users))
	for _, u := range users {
		out = append(out, wireUser{ID: u.ID, Name: u.Name, Type: u.Type})
	}
	return map[string]any{"users": out}, nil
}
