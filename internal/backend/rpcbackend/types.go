package rpcbackend

import (
	"encoding/json"
	"strconv"

	"github.com/nhle/clinic-chat/internal/model"
)

// wireMessage is a message as it travels in action payloads.
type wireMessage struct {
	ID        string      `json:"id,omitempty"`
	RoomID    string      `json:"roomId,omitempty"`
	Sender    string      `json:"sender"`
	Message   string      `json:"message"`
	Timestamp string      `json:"timestamp"`
	Seq       json.Number `json:"seq,omitempty"`
}

func (w wireMessage) toModel(channelID string) model.Message {
	room := w.RoomID
	if room == "" {
		room = channelID
	}
	var seq int64
	if w.Seq != "" {
		if n, err := strconv.ParseInt(w.Seq.String(), 10, 64); err == nil {
			seq = n
		}
	}
	return model.Message{
		ID:        w.ID,
		ChannelID: room,
		Sender:    w.Sender,
		Text:      w.Message,
		Timestamp: w.Timestamp,
		Seq:       seq,
	}
}

func toModels(in []wireMessage, channelID string) []model.Message {
	out := make([]model.Message, 0, len(in))
	for _, w := range in {
		out = append(out, w.toModel(channelID))
	}
	return out
}

type messagesData struct {
	Messages []wireMessage `json:"messages"`
}

type sendData struct {
	Messages *[]wireMessage `json:"messages"`
	Message  *wireMessage   `json:"message"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type sincePayload struct {
	RoomID         string `json:"roomId"`
	AfterTimestamp string `json:"afterTimestamp"`
}

type sendPayload struct {
	RoomID  string `json:"roomId"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type markReadPayload struct {
	RoomID        string `json:"roomId"`
	UserID        string `json:"userId"`
	LastTimestamp string `json:"lastTimestamp"`
}

type userPayload struct {
	UserID string `json:"userId"`
}

type unreadData struct {
	Rooms []struct {
		RoomID      string `json:"roomId"`
		UnreadCount int    `json:"unreadCount"`
	} `json:"rooms"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type wireUser struct {
	ID   flexString `json:"idUsuario"`
	Name string     `json:"nome"`
	Type string     `json:"tipo"`
}

type usersData struct {
	Users []wireUser `json:"users"`
}
