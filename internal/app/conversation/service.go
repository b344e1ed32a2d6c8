package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/PabloGalante/aiva-chat/internal/app/identity"
	"github.com/PabloGalante/aiva-chat/internal/app/repository"
	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

const (
	SeedGreeting  = "Hello! I'm Aiva ✨. Your AI Virtual Assistant for AivaChat. How can I assist you today?"
	GuestGreeting = "Hello! I'm Aiva ✨. You're chatting as a guest, so this conversation won't be saved. How can I assist you today?"

	// FailureText replaces a bot reply whose stream failed.
	FailureText = "Aiva encountered an issue. Please try again."
)

var ErrNotStarted = errors.New("conversation service not started")

// UserMemory remembers the authenticated user across restarts.
type UserMemory interface {
	LoadCurrentUser(ctx context.Context) (*domain.User, bool)
	SaveCurrentUser(ctx context.Context, u *domain.User)
}

// Service owns the whole application state: identity, chat collection,
// active chat, its live messages and the open backend session. Every
// operation runs under one lock and ends with an explicit reconcile step.
type Service struct {
	mu sync.Mutex

	exchange domain.ExchangeClient
	repo     *repository.Repository
	users    UserMemory
	auth     domain.Authenticator
	notifier domain.Notifier
	prompt   func(guest bool) string
	now      func() time.Time

	configErr error
	started   bool

	ident *identity.Machine
	// epoch changes on every identity switch; streams started under an older
	// epoch never touch the current state.
	epoch uint64

	activeID  domain.ChatID
	guestChat *domain.StoredSession

	// live is the message list of liveFor. liveGen changes on each hydrate.
	live    []domain.Message
	liveFor domain.ChatID
	liveGen uint64

	chat domain.ExchangeSession
	busy bool
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithNotifier(n domain.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithUserMemory(m UserMemory) Option {
	return func(s *Service) { s.users = m }
}

func WithAuthenticator(a domain.Authenticator) Option {
	return func(s *Service) { s.auth = a }
}

// WithSystemPrompt sets the system instruction backend sessions open with.
func WithSystemPrompt(prompt func(guest bool) string) Option {
	return func(s *Service) { s.prompt = prompt }
}

// WithConfigError marks the backend as unusable. Every operation then
// fails with err and no chat state is built.
func WithConfigError(err error) Option {
	return func(s *Service) { s.configErr = err }
}

func NewService(exchange domain.ExchangeClient, repo *repository.Repository, opts ...Option) *Service {
	s := &Service{
		exchange: exchange,
		repo:     repo,
		notifier: logNotifier{},
		prompt:   func(bool) string { return "" },
		now:      time.Now,
		ident:    identity.NewMachine(identity.Guest()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the initial state: the remembered user if there is one,
// otherwise a fresh guest chat.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.configErr != nil {
		observability.LoggerFromContext(ctx).Error("configuration error, chat disabled", "error", s.configErr)
		return s.configErr
	}
	if s.started {
		return nil
	}
	s.started = true

	if s.users != nil {
		if u, ok := s.users.LoadCurrentUser(ctx); ok {
			observability.LoggerFromContext(ctx).Info("restoring remembered user", "user_id", u.ID)
			s.ident = identity.NewMachine(identity.Authenticated(*u))
			s.enterAuthenticated(ctx, *u)
			return nil
		}
	}

	s.enterGuest(ctx)
	return nil
}

func (s *Service) ready() error {
	if s.configErr != nil {
		return s.configErr
	}
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) notify(msg string, kind domain.NoticeKind) {
	s.notifier.Notify(msg, kind)
}

// ChatSummary is one entry of the chat list.
type ChatSummary struct {
	ID        domain.ChatID `json:"id"`
	Title     string        `json:"title"`
	CreatedAt string        `json:"created_at"`
	Active    bool          `json:"active"`
}

// View is a consistent snapshot of the application state.
type View struct {
	Mode         identity.Mode    `json:"mode"`
	User         *domain.User     `json:"user,omitempty"`
	Chats        []ChatSummary    `json:"chats"`
	ActiveChatID domain.ChatID    `json:"active_chat_id,omitempty"`
	Messages     []domain.Message `json:"messages"`
	Busy         bool             `json:"busy"`
	SessionReady bool             `json:"session_ready"`
	ConfigError  string           `json:"config_error,omitempty"`
}

// State returns a snapshot. It may be called while a reply is streaming and
// then shows the partial text.
func (s *Service) State() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ident.State()
	v := View{
		Mode:         st.Mode,
		ActiveChatID: s.activeID,
		Messages:     append([]domain.Message{}, s.live...),
		Busy:         s.busy,
		SessionReady: s.chat != nil,
		Chats:        []ChatSummary{},
	}
	if st.User != nil {
		u := *st.User
		v.User = &u
	}
	if s.configErr != nil {
		v.ConfigError = s.configErr.Error()
		v.Messages = []domain.Message{}
		return v
	}

	for _, c := range s.repo.List() {
		v.Chats = append(v.Chats, ChatSummary{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			Active:    c.ID == s.activeID,
		})
	}
	return v
}

type logNotifier struct{}

func (logNotifier) Notify(message string, kind domain.NoticeKind) {
	observability.WithFields("kind", kind).Info("notice", "message", message)
}
