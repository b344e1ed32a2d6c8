// Package selector decides which chat is active. Repair is a pure function
// of the current state, so running it twice in a row is a no-op.
package selector

import (
	"github.com/PabloGalante/aiva-chat/internal/app/history"
	"github.com/PabloGalante/aiva-chat/internal/domain"
)

type Action int

const (
	// Keep leaves the active chat untouched.
	Keep Action = iota
	// Select switches to Decision.ChatID.
	Select
	// Create asks for a fresh seeded chat for the current identity.
	Create
	// Defer means the collection belongs to another identity; do nothing
	// until the identity transition has finished loading.
	Defer
)

func (a Action) String() string {
	switch a {
	case Keep:
		return "keep"
	case Select:
		return "select"
	case Create:
		return "create"
	case Defer:
		return "defer"
	default:
		return "unknown"
	}
}

type Decision struct {
	Action Action
	ChatID domain.ChatID
}

// Input is the state Repair looks at.
type Input struct {
	// Identity is the current persistence scope; Owner is the scope the
	// sessions were loaded for.
	Identity domain.UserID
	Owner    domain.UserID
	ActiveID domain.ChatID
	Sessions []domain.StoredSession
}

// Repair returns what must change so that an active chat exists and belongs
// to the current collection.
func Repair(in Input) Decision {
	if in.Identity != in.Owner {
		return Decision{Action: Defer}
	}

	if len(in.Sessions) == 0 {
		return Decision{Action: Create}
	}

	for _, s := range in.Sessions {
		if s.ID == in.ActiveID {
			return Decision{Action: Keep, ChatID: in.ActiveID}
		}
	}

	latest := in.Sessions[0]
	for _, s := range in.Sessions[1:] {
		if history.CreatedAt(s).After(history.CreatedAt(latest)) {
			latest = s
		}
	}
	return Decision{Action: Select, ChatID: latest.ID}
}
