package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/aiva-chat/internal/adapters/auth"
	"github.com/PabloGalante/aiva-chat/internal/adapters/llm"
	"github.com/PabloGalante/aiva-chat/internal/adapters/storage/chatstore"
	filestore "github.com/PabloGalante/aiva-chat/internal/adapters/storage/file"
	firestorestore "github.com/PabloGalante/aiva-chat/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/aiva-chat/internal/adapters/storage/memory"
	redisstore "github.com/PabloGalante/aiva-chat/internal/adapters/storage/redis"
	"github.com/PabloGalante/aiva-chat/internal/app/conversation"
	"github.com/PabloGalante/aiva-chat/internal/app/repository"
	"github.com/PabloGalante/aiva-chat/internal/config"
	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

// app is the wired service plus whatever must be closed on exit.
type app struct {
	svc     *conversation.Service
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// newApp wires the service. A broken backend configuration does not fail:
// the service is built in its configuration-error state instead.
func newApp(ctx context.Context, cfg *config.Config, notifier domain.Notifier) *app {
	logger := observability.Logger()
	a := &app{}

	cfgErr := cfg.Validate()

	var exchange domain.ExchangeClient
	if cfgErr == nil {
		var err error
		exchange, err = newExchange(ctx, cfg)
		if err != nil {
			cfgErr = err
		}
	}
	if cfgErr != nil {
		logger.Error("configuration error", "error", cfgErr)
	}

	kv := newKV(ctx, cfg, a, cfgErr != nil)
	store := chatstore.New(kv,
		chatstore.WithPrefix(cfg.StoragePrefix),
		chatstore.WithTimeout(cfg.StoreTimeout),
	)

	opts := []conversation.Option{
		conversation.WithNotifier(notifier),
		conversation.WithUserMemory(store),
		conversation.WithAuthenticator(auth.NewMockAuthenticator()),
		conversation.WithSystemPrompt(llm.SystemPrompt),
	}
	if cfgErr != nil {
		opts = append(opts, conversation.WithConfigError(cfgErr))
	}

	a.svc = conversation.NewService(exchange, repository.New(store), opts...)
	return a
}

func newExchange(ctx context.Context, cfg *config.Config) (domain.ExchangeClient, error) {
	logger := observability.Logger()

	if cfg.UseMockLLM {
		logger.Info("using mock model client")
		return llm.NewMockClient(), nil
	}

	logger.Info("using Gemini model client", "model", cfg.ModelName, "vertex", cfg.GeminiAPIKey == "")
	client, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:    cfg.GeminiAPIKey,
		Project:   cfg.GCPProjectID,
		Location:  cfg.GCPLocation,
		ModelName: cfg.ModelName,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrConfiguration) {
			err = fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		return nil, err
	}
	return client, nil
}

// newKV builds the durable store. A backend that cannot be reached falls
// back to memory: chatting keeps working, nothing is kept across restarts.
func newKV(ctx context.Context, cfg *config.Config, a *app, disabled bool) domain.KVStore {
	logger := observability.Logger().With("backend", cfg.StorageBackend)
	fallback := func(err error) domain.KVStore {
		logger.Error("storage backend unavailable, falling back to memory", "error", err)
		return memstore.NewStoreWithQuota(cfg.StoreQuotaBytes)
	}

	if disabled {
		return memstore.NewStore()
	}

	switch cfg.StorageBackend {
	case "file":
		s, err := filestore.NewStore(cfg.StorageDir)
		if err != nil {
			return fallback(err)
		}
		logger.Info("using file storage", "dir", cfg.StorageDir)
		return s

	case "redis":
		s, err := redisstore.NewStore(ctx, cfg.RedisURL)
		if err != nil {
			return fallback(err)
		}
		a.closers = append(a.closers, s.Close)
		logger.Info("using redis storage")
		return s

	case "firestore":
		s, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return fallback(err)
		}
		a.closers = append(a.closers, s.Close)
		logger.Info("using firestore storage", "project", cfg.GCPProjectID)
		return s

	default:
		logger.Info("using in-memory storage", "quota_bytes", cfg.StoreQuotaBytes)
		return memstore.NewStoreWithQuota(cfg.StoreQuotaBytes)
	}
}
