package notify

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

const DefaultTTL = 7 * time.Second

// Toast is one transient notice.
type Toast struct {
	ID        string            `json:"id"`
	Message   string            `json:"message"`
	Kind      domain.NoticeKind `json:"type"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Center implements domain.Notifier. Toasts expire on their own after the
// TTL or when dismissed.
type Center struct {
	mu     sync.Mutex
	toasts []Toast
	ttl    time.Duration
	now    func() time.Time
}

func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (c *Center) WithClock(now func() time.Time) *Center {
	c.now = now
	return c
}

func (c *Center) Notify(message string, kind domain.NoticeKind) {
	now := c.now()
	t := Toast{
		ID:        "toast-" + ulid.Make().String(),
		Message:   message,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	c.toasts = append(c.toasts, t)
	c.mu.Unlock()

	observability.Notifications.WithLabelValues(string(kind)).Inc()
	log := observability.WithFields("toast_id", t.ID, "kind", kind)
	if kind == domain.NoticeError {
		log.Warn("notice", "message", message)
		return
	}
	log.Info("notice", "message", message)
}

// Active returns the toasts that have not expired, oldest first.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if now.Before(t.ExpiresAt) {
			kept = append(kept, t)
		}
	}
	c.toasts = kept

	return append([]Toast(nil), kept...)
}

// Dismiss removes a toast. It reports whether the toast was still shown.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			return true
		}
	}
	return false
}
