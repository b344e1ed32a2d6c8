// Package auth holds the stub authenticator. It does not verify anyone: any
// email is accepted and becomes the user id. Production deployments must
// replace it with a real identity provider behind domain.Authenticator.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

const minPasswordLength = 6

// MockAuthenticator remembers the passwords of accounts created through
// Signup so a later Login with the wrong password is refused. Unknown emails
// are let in.
type MockAuthenticator struct {
	mu       sync.RWMutex
	accounts map[string][]byte
}

func NewMockAuthenticator() *MockAuthenticator {
	return &MockAuthenticator{accounts: make(map[string][]byte)}
}

func (a *MockAuthenticator) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: please fill in all fields", domain.ErrInvalidCredentials)
	}

	a.mu.RLock()
	hash, known := a.accounts[email]
	a.mu.RUnlock()

	if known {
		if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
			return nil, fmt.Errorf("%w: wrong email or password", domain.ErrInvalidCredentials)
		}
	}

	observability.LoggerFromContext(ctx).Info("mock login", "email", email, "known", known)
	return &domain.User{ID: domain.UserID(email), Email: email}, nil
}

func (a *MockAuthenticator) Signup(ctx context.Context, email, password, confirmPassword string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" || confirmPassword == "" {
		return nil, fmt.Errorf("%w: please fill in all fields", domain.ErrInvalidCredentials)
	}
	if password != confirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", domain.ErrInvalidCredentials)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters long", domain.ErrInvalidCredentials, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	a.mu.Lock()
	a.accounts[email] = hash
	a.mu.Unlock()

	observability.LoggerFromContext(ctx).Info("mock signup", "email", email)
	return &domain.User{ID: domain.UserID(email), Email: email}, nil
}
