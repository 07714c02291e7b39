package model

// DefaultChannelID is the room used when no channel context is supplied.
const DefaultChannelID = "default"

// Channel is a chat room or conversation known to the client.
type Channel struct {
	// ID is the backend room identifier.
	ID string

	// Title is the display label.
	Title string

	// Description is secondary display text.
	Description string

	// LastSyncedTimestamp is the incremental-fetch cursor. Nil means no cursor.
	LastSyncedTimestamp *string

	// UnreadCount is the server-reported number of unread messages.
	UnreadCount int

	// IsActive reports whether this is the focused channel.
	IsActive bool
}

// Cursor returns the cursor value and whether one is set.
func (c Channel) Cursor() (string, bool) {
	if c.LastSyncedTimestamp == nil {
		return "", false
	}
	return *c.LastSyncedTimestamp, true
}

// DisplayTitle returns Title, falling back to the channel ID.
func (c Channel) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return c.ID
}
