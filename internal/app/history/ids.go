package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

func NewChatID() domain.ChatID {
	return domain.ChatID("chat-" + uuid.NewString())
}

// ULIDs are monotonic within the process, so message ids sort by creation.
func NewUserMessageID() domain.MessageID {
	return domain.MessageID("user-" + ulid.Make().String())
}

func NewBotMessageID() domain.MessageID {
	return domain.MessageID("bot-" + ulid.Make().String())
}

func NewSeedMessageID() domain.MessageID {
	return domain.MessageID(domain.SeedIDPrefix + ulid.Make().String())
}

// NewSession creates a chat titled "New Chat" holding one seed greeting.
func NewSession(now time.Time, greeting string) domain.StoredSession {
	ts := FormatTimestamp(now)
	return domain.StoredSession{
		ID:    NewChatID(),
		Title: domain.TitleNewChat,
		Messages: []domain.StoredMessage{{
			ID:        NewSeedMessageID(),
			Text:      greeting,
			Sender:    domain.SenderBot,
			Timestamp: ts,
		}},
		CreatedAt: ts,
	}
}
