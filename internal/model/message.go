package model

import "time"

// SystemSender is the sender name used for automated room notices.
const SystemSender = "Sistema"

// Message is a single chat message.
type Message struct {
	// ID is an optional identifier assigned by the client or server.
	ID string

	// ChannelID is the room the message belongs to.
	ChannelID string

	// Sender is the display name or user id of the author.
	Sender string

	// Text is the message body.
	Text string

	// Timestamp is the server ISO-8601 timestamp, used verbatim as a cursor.
	Timestamp string

	// Seq is an optional server sequence number; zero when absent.
	Seq int64
}

// Time parses Timestamp. The second result is false when it is not RFC 3339.
func (m Message) Time() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsSystem reports whether the message was sent by the system sender.
func (m Message) IsSystem() bool {
	return m.Sender == SystemSender
}
