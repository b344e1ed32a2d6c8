package httpadapter_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/aiva-chat/internal/adapters/auth"
	httpadapter "github.com/PabloGalante/aiva-chat/internal/adapters/http"
	"github.com/PabloGalante/aiva-chat/internal/adapters/llm"
	"github.com/PabloGalante/aiva-chat/internal/adapters/notify"
	"github.com/PabloGalante/aiva-chat/internal/adapters/storage/chatstore"
	"github.com/PabloGalante/aiva-chat/internal/adapters/storage/memory"
	"github.com/PabloGalante/aiva-chat/internal/app/conversation"
	"github.com/PabloGalante/aiva-chat/internal/app/repository"
)

func newTestServer(t *testing.T, opts ...conversation.Option) (http.Handler, *llm.MockClient) {
	t.Helper()

	llmClient := llm.NewMockClient()
	store := chatstore.New(memory.NewStore())
	notices := notify.NewCenter(time.Minute)

	base := []conversation.Option{
		conversation.WithNotifier(notices),
		conversation.WithUserMemory(store),
		conversation.WithAuthenticator(auth.NewMockAuthenticator()),
	}
	svc := conversation.NewService(llmClient, repository.New(store), append(base, opts...)...)
	_ = svc.Start(context.Background())

	return httpadapter.NewServer(svc, notices), llmClient
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuestSendMessage(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.Chunks = []string{"Hi", " there"}

	w := do(t, srv, http.MethodPost, "/messages", `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		BotMessage struct {
			Text string `json:"text"`
		} `json:"bot_message"`
		Failed bool `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Hi there", res.BotMessage.Text)
	assert.False(t, res.Failed)

	state := decode[conversation.View](t, do(t, srv, http.MethodGet, "/state", ""))
	assert.Len(t, state.Messages, 2)
}

func TestSendEmptyMessageIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/messages", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	notices := decode[[]notify.Toast](t, do(t, srv, http.MethodGet, "/notifications", ""))
	require.NotEmpty(t, notices)
	assert.Contains(t, notices[0].Message, "Cannot send empty message")

	w = do(t, srv, http.MethodDelete, "/notifications/"+notices[0].ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, srv, http.MethodDelete, "/notifications/"+notices[0].ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendMessageStreamsEvents(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.Chunks = []string{"a", "b"}

	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"text":"stream please"}`))
	req.Header.Set("Accept", "text/event-stream")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var events []string
	sc := bufio.NewScanner(w.Body)
	for sc.Scan() {
		if ev, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
			events = append(events, ev)
		}
	}
	assert.Equal(t, []string{"chunk", "chunk", "done"}, events)
}

func TestChatRoutesRequireLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/chats", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	state := decode[conversation.View](t, do(t, srv, http.MethodGet, "/state", ""))
	assert.Equal(t, "auth_pending", string(state.Mode))

	w = do(t, srv, http.MethodPost, "/auth/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "guest", string(decode[conversation.View](t, w).Mode))
}

func TestLoginAndManageChats(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/auth/signup", `{"email":"a@b.c","password":"secret1","confirm_password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, http.MethodPost, "/auth/login", `{"email":"a@b.c","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state := decode[conversation.View](t, w)
	assert.Equal(t, "authenticated", string(state.Mode))
	require.Len(t, state.Chats, 1)
	first := state.ActiveChatID

	w = do(t, srv, http.MethodPost, "/messages", `{"text":"Tell me about Mars"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodPost, "/chats", "")
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[struct {
		ChatID string `json:"chat_id"`
	}](t, w)
	assert.NotEqual(t, string(first), created.ChatID)

	w = do(t, srv, http.MethodPost, "/chats/"+string(first)+"/select", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, decode[conversation.View](t, w).ActiveChatID)

	w = do(t, srv, http.MethodDelete, "/chats/chat-missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "guest", string(decode[conversation.View](t, w).Mode))
}

func TestConfigErrorBlocksChatRoutes(t *testing.T) {
	srv, _ := newTestServer(t, conversation.WithConfigError(errors.New("API key is not configured")))

	w := do(t, srv, http.MethodGet, "/state", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "API key is not configured")

	w = do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
