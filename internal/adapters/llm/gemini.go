package llm

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

// GeminiConfig selects the backend. An API key uses the Gemini API; without
// one, Project and Location select Vertex AI.
type GeminiConfig struct {
	APIKey    string
	Project   string
	Location  string
	ModelName string
}

type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates a domain.ExchangeClient backed by Gemini chats.
// Missing credentials are reported as domain.ErrConfiguration.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	modelName := cfg.ModelName
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	var cc *genai.ClientConfig
	switch {
	case cfg.APIKey != "":
		cc = &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
	case cfg.Project != "" && cfg.Location != "":
		cc = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	default:
		return nil, fmt.Errorf("%w: API key is missing and no Vertex project/location is set", domain.ErrConfiguration)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to initialize AI service: %w", domain.ErrConfiguration, err)
	}

	return &GeminiClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// OpenSession implements domain.ExchangeClient.
func (g *GeminiClient) OpenSession(ctx context.Context, cfg domain.ExchangeConfig) (domain.ExchangeSession, error) {
	temp := float32(0.7)
	topP := float32(0.9)

	gc := &genai.GenerateContentConfig{
		Temperature: &temp,
		TopP:        &topP,
	}
	if cfg.SystemPrompt != "" {
		// According to official examples, the role here is usually RoleUser, not "system"
		gc.SystemInstruction = genai.NewContentFromText(cfg.SystemPrompt, genai.RoleUser)
	}

	chat, err := g.client.Chats.Create(ctx, g.modelName, gc, toGenaiHistory(cfg.History))
	if err != nil {
		return nil, fmt.Errorf("%w: create chat: %w", domain.ErrInitialization, err)
	}

	return &geminiSession{chat: chat}, nil
}

func toGenaiHistory(history []domain.Content) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, h := range history {
		var role genai.Role
		switch h.Role {
		case domain.RoleModel:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}

		parts := make([]*genai.Part, 0, len(h.Parts))
		for _, p := range h.Parts {
			parts = append(parts, genai.NewPartFromText(p.Text))
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}

type geminiSession struct {
	chat *genai.Chat
}

// SendStream implements domain.ExchangeSession. Only the text of each
// response is surfaced.
func (s *geminiSession) SendStream(ctx context.Context, text string) iter.Seq2[domain.Chunk, error] {
	return func(yield func(domain.Chunk, error) bool) {
		for resp, err := range s.chat.SendMessageStream(ctx, genai.Part{Text: text}) {
			if err != nil {
				yield(domain.Chunk{}, fmt.Errorf("%w: %w", domain.ErrTransport, err))
				return
			}
			if !yield(domain.Chunk{Text: resp.Text()}, nil) {
				return
			}
		}
	}
}
