// Package chatstore persists the chat collection of an identity as a single
// JSON blob in a domain.KVStore. Every failure is logged and swallowed: the
// conversation must keep working when storage does not.
package chatstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/PabloGalante/aiva-chat/internal/app/history"
	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

const DefaultPrefix = "aivaChatHistory"

type Store struct {
	kv      domain.KVStore
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Store)

// WithPrefix sets the key namespace prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTimeout bounds every read and write.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(kv domain.KVStore, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		prefix:  DefaultPrefix,
		timeout: 3 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key is the blob key of an identity's chats.
func (s *Store) Key(userID domain.UserID) string {
	return s.prefix + "_" + string(userID)
}

// The separator differs from Key so no user id can collide with it.
func (s *Store) currentUserKey() string {
	return s.prefix + ":currentUser"
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Load returns the stored chats of userID. It returns an empty slice when
// there is no identity, nothing stored, or the blob cannot be read.
func (s *Store) Load(ctx context.Context, userID domain.UserID) []domain.StoredSession {
	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	if userID == "" {
		log.Warn("attempted to load chats without a user id")
		return []domain.StoredSession{}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, ok, err := s.kv.Get(ctx, s.Key(userID))
	if err != nil {
		observability.StorageErrors.WithLabelValues("load").Inc()
		log.Error("failed to load chats from storage", "error", err)
		return []domain.StoredSession{}
	}
	if !ok || raw == "" {
		return []domain.StoredSession{}
	}

	var sessions []domain.StoredSession
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		observability.StorageErrors.WithLabelValues("load").Inc()
		log.Error("failed to parse stored chats", "error", err)
		return []domain.StoredSession{}
	}

	nowStr := history.FormatTimestamp(s.now())
	out := make([]domain.StoredSession, 0, len(sessions))
	for _, sess := range sessions {
		if sess.ID == "" {
			continue
		}
		if sess.Messages == nil {
			sess.Messages = []domain.StoredMessage{}
		}
		if sess.CreatedAt == "" {
			sess.CreatedAt = nowStr
		}
		if sess.Title == "" {
			sess.Title = domain.TitleChat
		}
		out = append(out, sess)
	}

	log.Debug("loaded chats", "count", len(out))
	return out
}

// Save writes the full collection of userID, newest first. A guest (empty
// userID) is never persisted.
func (s *Store) Save(ctx context.Context, userID domain.UserID, sessions []domain.StoredSession) {
	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	if userID == "" {
		log.Warn("attempted to save chats without a user id")
		return
	}

	sorted := make([]domain.StoredSession, len(sessions))
	copy(sorted, sessions)
	history.SortNewestFirst(sorted)

	data, err := json.Marshal(sorted)
	if err != nil {
		observability.StorageErrors.WithLabelValues("save").Inc()
		log.Error("failed to encode chats", "error", err)
		return
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.kv.Set(ctx, s.Key(userID), string(data)); err != nil {
		observability.StorageErrors.WithLabelValues("save").Inc()
		log.Error("failed to save chats to storage", "error", err, "bytes", len(data))
		return
	}

	log.Debug("saved chats", "count", len(sorted))
}

// LoadCurrentUser returns the identity remembered across restarts, if any.
func (s *Store) LoadCurrentUser(ctx context.Context) (*domain.User, bool) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, ok, err := s.kv.Get(ctx, s.currentUserKey())
	if err != nil {
		observability.StorageErrors.WithLabelValues("load").Inc()
		observability.LoggerFromContext(ctx).Error("failed to load current user", "error", err)
		return nil, false
	}
	if !ok || raw == "" {
		return nil, false
	}

	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == "" {
		observability.LoggerFromContext(ctx).Error("failed to parse current user", "error", err)
		return nil, false
	}
	return &u, true
}

// SaveCurrentUser remembers u; nil forgets the current user.
func (s *Store) SaveCurrentUser(ctx context.Context, u *domain.User) {
	value := ""
	if u != nil {
		data, err := json.Marshal(u)
		if err != nil {
			observability.LoggerFromContext(ctx).Error("failed to encode current user", "error", err)
			return
		}
		value = string(data)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.kv.Set(ctx, s.currentUserKey(), value); err != nil {
		observability.StorageErrors.WithLabelValues("save").Inc()
		observability.LoggerFromContext(ctx).Error("failed to save current user", "error", err)
	}
}
