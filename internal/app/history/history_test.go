package history_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/aiva-chat/internal/app/history"
	"github.com/PabloGalante/aiva-chat/internal/domain"
)

func seed(text string) domain.StoredMessage {
	return domain.StoredMessage{
		ID:        history.NewSeedMessageID(),
		Text:      text,
		Sender:    domain.SenderBot,
		Timestamp: "2025-03-14T09:26:53.000Z",
	}
}

func user(text string) domain.StoredMessage {
	return domain.StoredMessage{
		ID:        history.NewUserMessageID(),
		Text:      text,
		Sender:    domain.SenderUser,
		Timestamp: "2025-03-14T09:27:00.000Z",
	}
}

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("abcdefghij", 5)

	tests := []struct {
		name    string
		msgs    []domain.StoredMessage
		current string
		want    string
	}{
		{
			name:    "first user message replaces new chat",
			msgs:    []domain.StoredMessage{seed("Hello!"), user("Tell me about Mars")},
			current: "New Chat",
			want:    "Tell me about Mars",
		},
		{
			name:    "long message truncated to 35 characters",
			msgs:    []domain.StoredMessage{user(long)},
			current: "New Chat",
			want:    long[:35] + "...",
		},
		{
			name:    "exactly 35 characters kept whole",
			msgs:    []domain.StoredMessage{user(long[:35])},
			current: "",
			want:    long[:35],
		},
		{
			name:    "only seed stays new chat",
			msgs:    []domain.StoredMessage{seed("Hello!")},
			current: "New Chat",
			want:    "New Chat",
		},
		{
			name:    "no messages",
			msgs:    nil,
			current: "Chat",
			want:    "New Chat",
		},
		{
			name:    "custom title preserved",
			msgs:    []domain.StoredMessage{seed("Hello!"), user("Tell me about Mars")},
			current: "Astronomy notes",
			want:    "Astronomy notes",
		},
		{
			name:    "whitespace user message skipped",
			msgs:    []domain.StoredMessage{user("   "), user("second")},
			current: "chat",
			want:    "second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, history.DeriveTitle(tt.msgs, tt.current))
		})
	}
}

func TestDeriveTitle_FallsBackToDate(t *testing.T) {
	msgs := []domain.StoredMessage{
		{ID: "bot-1", Text: "hi", Sender: domain.SenderBot, Timestamp: "2025-03-14T09:26:53.000Z"},
		{ID: "bot-2", Text: "again", Sender: domain.SenderBot, Timestamp: "2025-03-14T09:27:53.000Z"},
	}

	got := history.DeriveTitle(msgs, "Chat - Mar 1, 10:00 AM")
	assert.True(t, strings.HasPrefix(got, "Chat - "), "got %q", got)
	assert.True(t, history.IsGenericTitle(got))
}

func TestIsGenericTitle(t *testing.T) {
	for _, title := range []string{"", "New Chat", "new chat", "CHAT", "Chat - Mar 14, 09:26 AM"} {
		assert.True(t, history.IsGenericTitle(title), title)
	}
	for _, title := range []string{"Mars", "Chatting", "My chat - notes"} {
		assert.False(t, history.IsGenericTitle(title), title)
	}
}

func TestToAPIHistory_Filters(t *testing.T) {
	now := time.Now()
	msgs := []domain.Message{
		{ID: history.NewSeedMessageID(), Text: "", Sender: domain.SenderBot, Timestamp: now},
		{ID: "user-1", Text: "hi", Sender: domain.SenderUser, Timestamp: now},
		{ID: "bot-1", Text: "hello", Sender: domain.SenderBot, Timestamp: now},
		{ID: "user-2", Text: "", Sender: domain.SenderUser, Timestamp: now},
		{ID: "bot-2", Text: "", Sender: domain.SenderBot, Timestamp: now},
		{ID: "bot-3", Text: "", Sender: domain.SenderBot, Timestamp: now, Streaming: true},
	}

	got := history.ToAPIHistory(msgs)

	require.Len(t, got, 3)
	assert.Equal(t, domain.RoleModel, got[0].Role)
	assert.Equal(t, "", got[0].Parts[0].Text)
	assert.Equal(t, domain.RoleUser, got[1].Role)
	assert.Equal(t, "hi", got[1].Parts[0].Text)
	assert.Equal(t, domain.RoleModel, got[2].Role)
	assert.Equal(t, "hello", got[2].Parts[0].Text)
}

func TestStoredLiveRoundTrip(t *testing.T) {
	stored := []domain.StoredMessage{
		seed("Hello!"),
		user("Tell me about Mars"),
		{ID: "bot-01J", Text: "Mars is red.", Sender: domain.SenderBot, Timestamp: "2025-03-14T09:27:01.123Z"},
		user("And Venus?"),
		{ID: "bot-01K", Text: "Venus is", Sender: domain.SenderBot, Timestamp: "2025-03-14T09:28:01.000Z", Streaming: true},
	}

	live := history.ToLive(stored)
	assert.True(t, live[4].Streaming, "an unfinished reply stays unfinished")

	again := history.ToStored(live)

	assert.Equal(t, stored, again)
}

func TestLiveStoredRoundTrip_MillisecondPrecision(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 123456789, time.UTC)
	live := []domain.Message{{ID: "user-1", Text: "x", Sender: domain.SenderUser, Timestamp: ts}}

	back := history.ToLive(history.ToStored(live))

	require.Len(t, back, 1)
	assert.True(t, back[0].Timestamp.Equal(ts.Truncate(time.Millisecond)))
	assert.Equal(t, live[0].ID, back[0].ID)
	assert.Equal(t, live[0].Text, back[0].Text)
	assert.Equal(t, live[0].Sender, back[0].Sender)
}

func TestHasMeaningfulContent(t *testing.T) {
	now := time.Now()
	seedOnly := []domain.Message{{ID: history.NewSeedMessageID(), Sender: domain.SenderBot, Timestamp: now}}
	withUser := append(seedOnly, domain.Message{ID: "user-1", Text: "hi", Sender: domain.SenderUser, Timestamp: now})

	assert.False(t, history.HasMeaningfulContent(nil))
	assert.False(t, history.HasMeaningfulContent(seedOnly))
	assert.True(t, history.HasMeaningfulContent(withUser))
	assert.True(t, history.OnlySeed(seedOnly))
	assert.False(t, history.OnlySeed(withUser))
}

func TestNewSession(t *testing.T) {
	s := history.NewSession(time.Now(), "Hello!")

	assert.True(t, strings.HasPrefix(string(s.ID), "chat-"))
	assert.Equal(t, "New Chat", s.Title)
	require.Len(t, s.Messages, 1)
	assert.True(t, domain.IsSeedID(s.Messages[0].ID))
	assert.False(t, history.StoredHasMeaningfulContent(s))
}
