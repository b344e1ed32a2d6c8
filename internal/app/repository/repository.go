package repository

import (
	"context"
	"slices"

	"github.com/PabloGalante/aiva-chat/internal/app/history"
	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

// Store is the durable side of the repository. Implementations swallow
// their own failures.
type Store interface {
	Load(ctx context.Context, userID domain.UserID) []domain.StoredSession
	Save(ctx context.Context, userID domain.UserID, sessions []domain.StoredSession)
}

// Repository is the in-memory canonical collection of chats for the current
// identity. An empty owner means guest: nothing is loaded or saved.
// It is not safe for concurrent use; the conversation service serializes access.
type Repository struct {
	store    Store
	owner    domain.UserID
	sessions map[domain.ChatID]domain.StoredSession
}

func New(store Store) *Repository {
	return &Repository{
		store:    store,
		sessions: make(map[domain.ChatID]domain.StoredSession),
	}
}

// LoadAll replaces the collection with the chats stored for owner.
func (r *Repository) LoadAll(ctx context.Context, owner domain.UserID) []domain.StoredSession {
	r.owner = owner
	r.sessions = make(map[domain.ChatID]domain.StoredSession)

	if owner == "" {
		return nil
	}

	for _, s := range r.store.Load(ctx, owner) {
		r.sessions[s.ID] = s
	}

	observability.LoggerFromContext(ctx).Info("loaded chats", "user_id", owner, "count", len(r.sessions))
	return r.List()
}

// Reset drops every chat and scopes the repository to guest.
func (r *Repository) Reset() {
	r.owner = ""
	r.sessions = make(map[domain.ChatID]domain.StoredSession)
}

func (r *Repository) Owner() domain.UserID {
	return r.owner
}

func (r *Repository) Get(id domain.ChatID) (domain.StoredSession, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// List returns the chats newest first.
func (r *Repository) List() []domain.StoredSession {
	out := make([]domain.StoredSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	history.SortNewestFirst(out)
	return out
}

// Track adds a chat to the collection without writing to the store. Fresh
// seeded chats are tracked until they receive meaningful content.
func (r *Repository) Track(s domain.StoredSession) {
	r.sessions[s.ID] = s
}

// Upsert inserts or replaces a chat and saves the collection.
func (r *Repository) Upsert(ctx context.Context, s domain.StoredSession) {
	r.sessions[s.ID] = s
	r.save(ctx)
}

// Remove deletes a chat and saves the collection. It reports whether the
// chat existed.
func (r *Repository) Remove(ctx context.Context, id domain.ChatID) bool {
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	r.save(ctx)
	return true
}

// UpsertLive writes the live messages of chat id back into the collection,
// re-deriving the title. Nothing happens unless the messages have
// meaningful content or the chat is unknown.
func (r *Repository) UpsertLive(ctx context.Context, id domain.ChatID, live []domain.Message) bool {
	current, ok := r.sessions[id]
	if !ok || !history.HasMeaningfulContent(live) {
		return false
	}

	stored := history.ToStored(live)
	current.Messages = stored
	current.Title = DeriveTitle(stored, current.Title)
	r.Upsert(ctx, current)
	return true
}

// PatchStored replaces message msg.ID in chat id of owner and saves. When
// owner is not the current owner the stored collection is patched directly
// and the in-memory one is left alone. It reports whether the message was
// found.
func (r *Repository) PatchStored(ctx context.Context, owner domain.UserID, id domain.ChatID, msg domain.StoredMessage) bool {
	if owner == "" {
		return false
	}

	if owner == r.owner {
		current, ok := r.sessions[id]
		if !ok {
			return false
		}
		current.Messages = slices.Clone(current.Messages)
		if !patchMessage(current.Messages, msg) {
			return false
		}
		current.Title = DeriveTitle(current.Messages, current.Title)
		r.Upsert(ctx, current)
		return true
	}

	sessions := r.store.Load(ctx, owner)
	for i := range sessions {
		if sessions[i].ID != id {
			continue
		}
		if !patchMessage(sessions[i].Messages, msg) {
			return false
		}
		sessions[i].Title = DeriveTitle(sessions[i].Messages, sessions[i].Title)
		r.store.Save(ctx, owner, sessions)
		return true
	}
	return false
}

func patchMessage(msgs []domain.StoredMessage, msg domain.StoredMessage) bool {
	for i := range msgs {
		if msgs[i].ID == msg.ID {
			msgs[i] = msg
			return true
		}
	}
	return false
}

// DeriveTitle is the title rule applied on every upsert from the live view.
func DeriveTitle(msgs []domain.StoredMessage, currentTitle string) string {
	return history.DeriveTitle(msgs, currentTitle)
}

// save persists the chats worth keeping. Untouched seeded chats stay in
// memory only.
func (r *Repository) save(ctx context.Context) {
	if r.owner == "" {
		return
	}

	keep := make([]domain.StoredSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		if history.StoredHasMeaningfulContent(s) {
			keep = append(keep, s)
		}
	}
	r.store.Save(ctx, r.owner, keep)
}
