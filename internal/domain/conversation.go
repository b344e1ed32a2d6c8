package domain

import "strings"

// SeedIDPrefix marks the greeting a chat is created with.
const SeedIDPrefix = "bot-initial-"

// Default chat titles.
const (
	TitleNewChat = "New Chat"
	TitleChat    = "Chat"
)

// Message is the live form of a chat message, held only for the active chat.
type Message struct {
	ID        MessageID `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp Timestamp `json:"timestamp"`

	// Streaming is true while the bot reply is still being filled in.
	Streaming bool `json:"streaming,omitempty"`
}

// IsSeed reports whether the message is the greeting a chat starts with.
func (m Message) IsSeed() bool {
	return IsSeedID(m.ID)
}

func IsSeedID(id MessageID) bool {
	return strings.HasPrefix(string(id), SeedIDPrefix)
}

// StoredMessage is the serialized form of a message. Timestamp is an ISO-8601
// string with millisecond precision.
type StoredMessage struct {
	ID        MessageID `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp string    `json:"timestamp"`

	// Streaming marks a reply that was saved before it finished.
	Streaming bool `json:"streaming,omitempty"`
}

// StoredSession is a chat as it is persisted for an identity.
type StoredSession struct {
	ID        ChatID          `json:"id"`
	Title     string          `json:"title"`
	Messages  []StoredMessage `json:"messages"`
	CreatedAt string          `json:"createdAt"`
}

// Content is one entry of the two-role transcript handed to the backend.
type Content struct {
	Role  Role
	Parts []Part
}

type Part struct {
	Text string
}
