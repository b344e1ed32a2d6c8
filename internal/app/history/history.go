// Package history holds the pure functions shared by the repository and the
// exchange engine: stored/live conversion, transcript reconstruction, title
// derivation and the meaningful-content rule.
package history

import (
	"sort"
	"strings"
	"time"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

// TimestampLayout is the ISO-8601 form used in stored sessions.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const titleMaxRunes = 35

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts any RFC 3339 timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// ToStored serializes a live message list.
func ToStored(msgs []domain.Message) []domain.StoredMessage {
	out := make([]domain.StoredMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, domain.StoredMessage{
			ID:        m.ID,
			Text:      m.Text,
			Sender:    m.Sender,
			Timestamp: FormatTimestamp(m.Timestamp),
			Streaming: m.Streaming,
		})
	}
	return out
}

// ToLive revives stored messages. An unparsable timestamp becomes the zero
// time rather than dropping the message.
func ToLive(stored []domain.StoredMessage) []domain.Message {
	out := make([]domain.Message, 0, len(stored))
	for _, m := range stored {
		ts, err := ParseTimestamp(m.Timestamp)
		if err != nil {
			ts = time.Time{}
		}
		out = append(out, domain.Message{
			ID:        m.ID,
			Text:      m.Text,
			Sender:    m.Sender,
			Timestamp: ts,
			Streaming: m.Streaming,
		})
	}
	return out
}

// ToAPIHistory rebuilds the backend transcript from a message list.
// Placeholders still waiting for text are dropped, as is any other empty
// message except the seed greeting. Empty user messages never survive.
func ToAPIHistory(msgs []domain.Message) []domain.Content {
	out := make([]domain.Content, 0, len(msgs))
	for _, m := range msgs {
		if m.Streaming && m.Text == "" {
			continue
		}
		if m.Text == "" && !m.IsSeed() {
			continue
		}
		if m.Text == "" && m.Sender != domain.SenderBot {
			continue
		}

		role := domain.RoleModel
		if m.Sender == domain.SenderUser {
			role = domain.RoleUser
		}
		out = append(out, domain.Content{
			Role:  role,
			Parts: []domain.Part{{Text: m.Text}},
		})
	}
	return out
}

// OnlySeed reports whether msgs is exactly the untouched greeting.
func OnlySeed(msgs []domain.Message) bool {
	return len(msgs) == 1 && msgs[0].IsSeed()
}

// HasMeaningfulContent reports whether at least one message is not the seed
// or is user-authored. Chats without it are never written to storage.
func HasMeaningfulContent(msgs []domain.Message) bool {
	for _, m := range msgs {
		if !m.IsSeed() || m.Sender == domain.SenderUser {
			return true
		}
	}
	return false
}

// StoredHasMeaningfulContent applies HasMeaningfulContent to a stored session.
func StoredHasMeaningfulContent(s domain.StoredSession) bool {
	for _, m := range s.Messages {
		if !domain.IsSeedID(m.ID) || m.Sender == domain.SenderUser {
			return true
		}
	}
	return false
}

// IsGenericTitle reports whether a title was assigned automatically and may be
// replaced by a derived one.
func IsGenericTitle(title string) bool {
	if title == "" {
		return true
	}
	lower := strings.ToLower(title)
	return lower == "new chat" || lower == "chat" || strings.HasPrefix(lower, "chat - ")
}

// DeriveTitle returns the title a chat should carry. A non-generic title is
// kept verbatim. Otherwise the first non-empty user message is used, cut to
// 35 characters; failing that the first message's time; failing that "New Chat".
func DeriveTitle(msgs []domain.StoredMessage, currentTitle string) string {
	if !IsGenericTitle(currentTitle) {
		return currentTitle
	}

	for _, m := range msgs {
		if m.Sender != domain.SenderUser || strings.TrimSpace(m.Text) == "" {
			continue
		}
		runes := []rune(m.Text)
		if len(runes) > titleMaxRunes {
			return string(runes[:titleMaxRunes]) + "..."
		}
		return m.Text
	}

	if len(msgs) == 0 || (len(msgs) == 1 && domain.IsSeedID(msgs[0].ID)) {
		return domain.TitleNewChat
	}

	ts, err := ParseTimestamp(msgs[0].Timestamp)
	if err != nil {
		return domain.TitleNewChat
	}
	local := ts.Local()
	return "Chat - " + local.Format("Jan 2") + ", " + local.Format("03:04 PM")
}

// CreatedAt parses a session's creation time; unparsable values are the zero time.
func CreatedAt(s domain.StoredSession) time.Time {
	t, err := ParseTimestamp(s.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SortNewestFirst orders sessions by creation time, most recent first.
func SortNewestFirst(sessions []domain.StoredSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return CreatedAt(sessions[i]).After(CreatedAt(sessions[j]))
	})
}
