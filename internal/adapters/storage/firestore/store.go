package firestore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

const collection = "chat_blobs"

type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// NewStore creates a Firestore store.
// Uses the project passed (AIVA_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: projectID is required for Firestore store", domain.ErrStorage)
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: creating firestore client: %w", domain.ErrStorage, err)
	}

	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

// Document IDs cannot contain '/', so keys are path-escaped.
func (s *Store) blobDoc(key string) *firestore.DocumentRef {
	return s.client.Collection(collection).Doc(url.PathEscape(key))
}

type blobDoc struct {
	Key       string    `firestore:"key"`
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// ─────────────────────────────────────────
// domain.KVStore implementation
// ─────────────────────────────────────────

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	snap, err := s.blobDoc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: firestore Get: %w", domain.ErrStorage, err)
	}

	var doc blobDoc
	if err := snap.DataTo(&doc); err != nil {
		return "", false, fmt.Errorf("%w: firestore Get decode: %w", domain.ErrStorage, err)
	}
	return doc.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	doc := blobDoc{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now(),
	}

	if _, err := s.blobDoc(key).Set(ctx, doc); err != nil {
		return fmt.Errorf("%w: firestore Set: %w", domain.ErrStorage, err)
	}
	return nil
}
