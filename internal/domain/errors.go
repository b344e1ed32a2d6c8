package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Concrete failures wrap one of these so callers can
// classify them with errors.Is.
var (
	// ErrConfiguration means the backend credentials or config are missing or
	// invalid. It is fatal for the whole session.
	ErrConfiguration = errors.New("configuration error")

	// ErrInitialization means a backend session could not be opened. It is
	// retried lazily on the next send.
	ErrInitialization = errors.New("initialization error")

	// ErrTransport is a failure while a reply is streaming.
	ErrTransport = errors.New("transport error")

	// ErrValidation rejects a user action without mutating state.
	ErrValidation = errors.New("validation error")

	// ErrStorage is a read or write failure of the durable store. It never
	// reaches the user.
	ErrStorage = errors.New("storage error")
)

var (
	ErrEmptyMessage       = fmt.Errorf("%w: message is empty", ErrValidation)
	ErrNoActiveChat       = fmt.Errorf("%w: no active chat", ErrValidation)
	ErrBusy               = fmt.Errorf("%w: a response is still streaming", ErrValidation)
	ErrLoginRequired      = fmt.Errorf("%w: login required", ErrValidation)
	ErrAuthPending        = fmt.Errorf("%w: authentication in progress", ErrValidation)
	ErrChatNotFound       = fmt.Errorf("%w: chat not found", ErrValidation)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrValidation)
)
