package conversation

import (
	"context"
	"fmt"

	"github.com/PabloGalante/aiva-chat/internal/app/history"
	"github.com/PabloGalante/aiva-chat/internal/app/identity"
	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

// RequestLogin suspends the guest chat and shows the auth flow.
func (s *Service) RequestLogin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	tr, err := s.ident.RequestLogin()
	if err != nil {
		return err
	}
	recordTransition(ctx, tr)
	return nil
}

// CancelLogin returns to guest mode with a brand new ephemeral chat.
func (s *Service) CancelLogin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	tr, err := s.ident.Cancel()
	if err != nil {
		return err
	}
	recordTransition(ctx, tr)
	s.enterGuest(ctx)
	return nil
}

// CompleteLogin switches to the verified user u.
func (s *Service) CompleteLogin(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	return s.acceptLocked(ctx, u)
}

// Login runs the authenticator and, on success, completes the login. A
// guest is moved to the auth flow first.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return s.authenticate(ctx, func(a domain.Authenticator) (*domain.User, error) {
		return a.Login(ctx, email, password)
	})
}

// Signup creates an account through the authenticator and logs it in.
func (s *Service) Signup(ctx context.Context, email, password, confirmPassword string) (*domain.User, error) {
	return s.authenticate(ctx, func(a domain.Authenticator) (*domain.User, error) {
		return a.Signup(ctx, email, password, confirmPassword)
	})
}

func (s *Service) authenticate(ctx context.Context, call func(domain.Authenticator) (*domain.User, error)) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.auth == nil {
		return nil, fmt.Errorf("no authenticator configured")
	}
	if s.ident.State().IsGuest() {
		tr, err := s.ident.RequestLogin()
		if err != nil {
			return nil, err
		}
		recordTransition(ctx, tr)
	}
	if !s.ident.State().IsAuthPending() {
		return nil, identity.ErrInvalidTransition
	}

	u, err := call(s.auth)
	if err != nil {
		s.notify(err.Error(), domain.NoticeError)
		return nil, err
	}
	if err := s.acceptLocked(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) acceptLocked(ctx context.Context, u domain.User) error {
	tr, err := s.ident.Accept(u)
	if err != nil {
		return err
	}
	recordTransition(ctx, tr)
	if s.users != nil {
		s.users.SaveCurrentUser(ctx, &u)
	}
	s.enterAuthenticated(ctx, u)
	s.notify("Welcome, "+u.Email+"!", domain.NoticeSuccess)
	return nil
}

// Logout saves the active chat and returns to guest mode.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if !s.ident.State().IsAuthenticated() {
		return identity.ErrInvalidTransition
	}

	s.flushLive(ctx)
	tr, err := s.ident.Logout()
	if err != nil {
		return err
	}
	recordTransition(ctx, tr)
	if s.users != nil {
		s.users.SaveCurrentUser(ctx, nil)
	}
	s.enterGuest(ctx)
	s.notify("You have been logged out.", domain.NoticeInfo)
	return nil
}

func recordTransition(ctx context.Context, tr identity.Transition) {
	observability.IdentityTransitions.WithLabelValues(string(tr.Event), string(tr.From.Mode), string(tr.To.Mode)).Inc()
	observability.LoggerFromContext(ctx).Info("identity changed",
		"event", tr.Event,
		"from", tr.From.Mode,
		"to", tr.To.Mode,
		"user_id", tr.To.UserID(),
	)
}

// requireAuthenticated gates chat-list actions. A guest is redirected into
// the login flow.
func (s *Service) requireAuthenticated(ctx context.Context) error {
	switch s.ident.State().Mode {
	case identity.ModeAuthenticated:
		return nil
	case identity.ModeAuthPending:
		s.notify("Finish signing in to continue.", domain.NoticeInfo)
		return domain.ErrAuthPending
	default:
		s.redirectToLogin(ctx)
		return domain.ErrLoginRequired
	}
}

func (s *Service) redirectToLogin(ctx context.Context) {
	tr, err := s.ident.RequestLogin()
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("login redirect refused", "error", err)
		return
	}
	recordTransition(ctx, tr)
	s.notify("Log in or sign up to save and manage your chats.", domain.NoticeInfo)
}

// enterGuest drops the previous identity's state and starts a throwaway
// guest chat. Whatever the previous identity had was already saved.
func (s *Service) enterGuest(ctx context.Context) {
	s.epoch++
	s.repo.Reset()
	s.resetLive()
	s.activeID = ""

	guest := history.NewSession(s.now(), GuestGreeting)
	s.guestChat = &guest

	s.reconcile(ctx)
}

// enterAuthenticated loads u's chats and picks the active one.
func (s *Service) enterAuthenticated(ctx context.Context, u domain.User) {
	s.epoch++
	s.guestChat = nil
	s.resetLive()

	s.repo.LoadAll(ctx, u.ID)
	s.reconcile(ctx)
}

func (s *Service) resetLive() {
	s.live = nil
	s.liveFor = ""
	s.liveGen++
	s.chat = nil
}
