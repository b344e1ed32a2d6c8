package conversation

import (
	"context"

	"github.com/PabloGalante/aiva-chat/internal/observability"
)

// Flush saves the live view of the active chat if it is worth keeping. It is
// called on shutdown and is best effort: a write the process does not live to
// finish is lost.
func (s *Service) Flush(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready() != nil {
		return false
	}

	saved := s.flushLive(ctx)
	observability.LoggerFromContext(ctx).Info("flush on exit", "chat_id", s.activeID, "saved", saved)
	return saved
}
