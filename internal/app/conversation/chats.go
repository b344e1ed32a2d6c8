package conversation

import (
	"context"
	"fmt"

	"github.com/PabloGalante/aiva-chat/internal/app/history"
	"github.com/PabloGalante/aiva-chat/internal/app/identity"
	"github.com/PabloGalante/aiva-chat/internal/app/selector"
	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

// NewChat saves the active chat and opens a fresh seeded one.
func (s *Service) NewChat(ctx context.Context) (domain.ChatID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return "", err
	}
	if err := s.requireAuthenticated(ctx); err != nil {
		return "", err
	}

	s.flushLive(ctx)
	sess := history.NewSession(s.now(), SeedGreeting)
	s.repo.Track(sess)
	s.activeID = sess.ID

	observability.LoggerFromContext(ctx).Info("new chat", "chat_id", sess.ID)
	s.reconcile(ctx)
	return sess.ID, nil
}

// SelectChat makes id the active chat.
func (s *Service) SelectChat(ctx context.Context, id domain.ChatID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if err := s.requireAuthenticated(ctx); err != nil {
		return err
	}
	if id == s.activeID {
		return nil
	}
	if _, ok := s.repo.Get(id); !ok {
		s.notify("That chat no longer exists.", domain.NoticeError)
		return fmt.Errorf("%w: %s", domain.ErrChatNotFound, id)
	}

	s.flushLive(ctx)
	s.activeID = id
	s.reconcile(ctx)
	return nil
}

// DeleteChat removes id. Deleting the active chat promotes the newest
// remaining one, or a fresh chat when none remain.
func (s *Service) DeleteChat(ctx context.Context, id domain.ChatID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if err := s.requireAuthenticated(ctx); err != nil {
		return err
	}
	if !s.repo.Remove(ctx, id) {
		s.notify("That chat no longer exists.", domain.NoticeError)
		return fmt.Errorf("%w: %s", domain.ErrChatNotFound, id)
	}

	observability.LoggerFromContext(ctx).Info("chat deleted", "chat_id", id, "was_active", id == s.activeID)
	s.reconcile(ctx)
	return nil
}

// reconcile makes sure an active chat exists for the current identity and
// that the live view and backend session belong to it. Running it on a
// consistent state changes nothing.
func (s *Service) reconcile(ctx context.Context) {
	logger := observability.LoggerFromContext(ctx)
	st := s.ident.State()

	switch st.Mode {
	case identity.ModeAuthPending:
		return
	case identity.ModeGuest:
		if s.guestChat == nil {
			guest := history.NewSession(s.now(), GuestGreeting)
			s.guestChat = &guest
		}
		s.activeID = s.guestChat.ID
	case identity.ModeAuthenticated:
		d := selector.Repair(selector.Input{
			Identity: st.UserID(),
			Owner:    s.repo.Owner(),
			ActiveID: s.activeID,
			Sessions: s.repo.List(),
		})
		switch d.Action {
		case selector.Defer:
			logger.Warn("chat collection belongs to another identity, deferring", "owner", s.repo.Owner())
			return
		case selector.Create:
			sess := history.NewSession(s.now(), SeedGreeting)
			s.repo.Track(sess)
			s.activeID = sess.ID
		case selector.Select:
			logger.Info("active chat repaired", "from", s.activeID, "to", d.ChatID)
			s.activeID = d.ChatID
		}
	}

	if s.activeID != s.liveFor {
		s.hydrate(ctx)
	}
}

// hydrate rebuilds the live view from the stored active chat and opens a
// backend session seeded with its history.
func (s *Service) hydrate(ctx context.Context) {
	s.resetLive()

	stored, ok := s.storedActive()
	if !ok {
		return
	}
	s.live = history.ToLive(stored.Messages)
	s.liveFor = stored.ID

	chat, err := s.openExchange(ctx, s.live)
	if err != nil {
		return
	}
	s.chat = chat
}

// openExchange opens a backend session for msgs. A chat holding only its
// greeting starts with an empty history.
func (s *Service) openExchange(ctx context.Context, msgs []domain.Message) (domain.ExchangeSession, error) {
	var hist []domain.Content
	if !history.OnlySeed(msgs) {
		hist = history.ToAPIHistory(msgs)
	}

	chat, err := s.exchange.OpenSession(ctx, domain.ExchangeConfig{
		SystemPrompt: s.prompt(!s.ident.State().IsAuthenticated()),
		History:      hist,
	})
	if err != nil {
		observability.ExchangeSessionsOpened.WithLabelValues("error").Inc()
		observability.LoggerFromContext(ctx).Error("open exchange session failed", "chat_id", s.liveFor, "error", err)
		s.notify("Chat Session Error: "+err.Error(), domain.NoticeError)
		return nil, err
	}

	observability.ExchangeSessionsOpened.WithLabelValues("ok").Inc()
	observability.LoggerFromContext(ctx).Debug("exchange session opened", "chat_id", s.liveFor, "history_len", len(hist))
	return chat, nil
}

func (s *Service) storedActive() (domain.StoredSession, bool) {
	if s.activeID == "" {
		return domain.StoredSession{}, false
	}
	if s.guestChat != nil && s.guestChat.ID == s.activeID {
		return *s.guestChat, true
	}
	return s.repo.Get(s.activeID)
}

// persistActive writes the live view back to where the active chat lives:
// the repository when authenticated, the ephemeral guest chat otherwise.
func (s *Service) persistActive(ctx context.Context) {
	if s.liveFor != s.activeID {
		return
	}
	if s.guestChat != nil && s.guestChat.ID == s.activeID {
		stored := history.ToStored(s.live)
		s.guestChat.Messages = stored
		s.guestChat.Title = history.DeriveTitle(stored, s.guestChat.Title)
		return
	}
	s.flushLive(ctx)
}

// flushLive upserts the live view of the active chat when the identity is
// authenticated and the view has meaningful content.
func (s *Service) flushLive(ctx context.Context) bool {
	if !s.ident.State().IsAuthenticated() || s.activeID == "" || s.liveFor != s.activeID {
		return false
	}
	return s.repo.UpsertLive(ctx, s.activeID, s.live)
}
