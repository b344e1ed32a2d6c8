package domain

import (
	"context"
	"iter"
)

// ExchangeConfig seeds a backend conversation.
type ExchangeConfig struct {
	SystemPrompt string
	History      []Content
}

// Chunk is one incremental piece of a streamed reply.
type Chunk struct {
	Text string
}

// ExchangeClient opens stateful conversations against the model backend.
// OpenSession fails with ErrInitialization when the session cannot be created.
type ExchangeClient interface {
	OpenSession(ctx context.Context, cfg ExchangeConfig) (ExchangeSession, error)
}

// ExchangeSession is a handle to one open backend conversation.
type ExchangeSession interface {
	// SendStream sends text and yields the reply in arrival order. The
	// sequence is finite and not restartable; a transport failure is yielded
	// as a non-nil error and ends the sequence.
	SendStream(ctx context.Context, text string) iter.Seq2[Chunk, error]
}

// KVStore is the durable string blob store sessions are persisted to.
type KVStore interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Authenticator verifies credentials. It is a stub in this system.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*User, error)
	Signup(ctx context.Context, email, password, confirmPassword string) (*User, error)
}

// Notifier is a fire-and-forget sink for transient notices.
type Notifier interface {
	Notify(message string, kind NoticeKind)
}
