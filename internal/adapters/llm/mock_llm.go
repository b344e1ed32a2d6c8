package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

// MockClient is a scripted domain.ExchangeClient for local runs and tests.
// With no script it echoes the user back word by word.
type MockClient struct {
	mu sync.Mutex

	// Chunks, if set, is the reply streamed for every send.
	Chunks []string
	// FailAfter makes the stream fail with StreamErr after that many chunks
	// when StreamErr is set.
	FailAfter int
	StreamErr error
	// OpenErr makes OpenSession fail.
	OpenErr error
	// Delay is slept before each chunk.
	Delay time.Duration
	// Gate, if set, is received from before each chunk so tests can step
	// the stream.
	Gate chan struct{}

	opened []domain.ExchangeConfig
	sent   []string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) OpenSession(_ context.Context, cfg domain.ExchangeConfig) (domain.ExchangeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInitialization, m.OpenErr)
	}
	m.opened = append(m.opened, cfg)
	return &mockSession{client: m}, nil
}

// Opened returns the configs of every session opened so far.
func (m *MockClient) Opened() []domain.ExchangeConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ExchangeConfig(nil), m.opened...)
}

// Sent returns every text sent so far.
func (m *MockClient) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// SetOpenErr changes OpenErr under the client's lock.
func (m *MockClient) SetOpenErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenErr = err
}

type mockSession struct {
	client *MockClient
}

func (s *mockSession) SendStream(ctx context.Context, text string) iter.Seq2[domain.Chunk, error] {
	m := s.client

	m.mu.Lock()
	m.sent = append(m.sent, text)
	chunks := m.Chunks
	if len(chunks) == 0 {
		chunks = echo(text)
	}
	failAfter, streamErr := m.FailAfter, m.StreamErr
	delay, gate := m.Delay, m.Gate
	m.mu.Unlock()

	return func(yield func(domain.Chunk, error) bool) {
		for i, c := range chunks {
			if streamErr != nil && i == failAfter {
				yield(domain.Chunk{}, fmt.Errorf("%w: %w", domain.ErrTransport, streamErr))
				return
			}
			if gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					yield(domain.Chunk{}, fmt.Errorf("%w: %w", domain.ErrTransport, ctx.Err()))
					return
				}
			}
			if delay > 0 {
				time.Sleep(delay)
			}
			if !yield(domain.Chunk{Text: c}, nil) {
				return
			}
		}
		if streamErr != nil && failAfter >= len(chunks) {
			yield(domain.Chunk{}, fmt.Errorf("%w: %w", domain.ErrTransport, streamErr))
		}
	}
}

func echo(text string) []string {
	words := strings.Fields(fmt.Sprintf("I hear you. You said %q. Tell me a bit more about that.", text))
	out := make([]string, 0, len(words))
	for i, w := range words {
		if i > 0 {
			w = " " + w
		}
		out = append(out, w)
	}
	return out
}
