// Package app is the composition root: it assembles the pipeline from a
// configuration file and hands back the driving interfaces.
package app

import (
	"context"
	"fmt"

	"github.com/custodia-labs/askbase/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/askbase/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/askbase/internal/adapters/driven/embedding/synthetic"
	llmanthropic "github.com/custodia-labs/askbase/internal/adapters/driven/llm/anthropic"
	llmollama "github.com/custodia-labs/askbase/internal/adapters/driven/llm/ollama"
	llmopenai "github.com/custodia-labs/askbase/internal/adapters/driven/llm/openai"
	storagemem "github.com/custodia-labs/askbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/askbase/internal/adapters/driven/storage/sqlite"
	vectormem "github.com/custodia-labs/askbase/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/askbase/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/askbase/internal/adapters/driving/watcher"
	"github.com/custodia-labs/askbase/internal/chunker"
	"github.com/custodia-labs/askbase/internal/config"
	"github.com/custodia-labs/askbase/internal/core/domain"
	"github.com/custodia-labs/askbase/internal/core/ports/driven"
	"github.com/custodia-labs/askbase/internal/core/ports/driving"
	"github.com/custodia-labs/askbase/internal/core/services"
	"github.com/custodia-labs/askbase/internal/logger"
)

// App owns the assembled pipeline and its resources.
type App struct {
	Query    driving.QueryService
	Ingest   driving.IngestService
	Sessions *services.SessionRegistry

	watcher   *watcher.Watcher
	watchDir  string
	embedding driven.EmbeddingService
	chat      driven.ChatService
	vectors   driven.VectorIndex
	store     *sqlite.Store
}

// New assembles the pipeline described by cfg.
func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{}

	embedding, err := buildEmbedding(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	a.embedding = embedding

	chat, err := buildChat(cfg.Chat)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.chat = chat

	documents, queryLog, err := a.buildStorage(cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}

	vectors, err := buildVectors(cfg.Vector, embedding.Dimensions())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.vectors = vectors

	conversations := storagemem.NewConversationStore()

	ck := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.ChunkSize),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	retriever := services.NewRetriever(
		embedding, vectors, documents,
		domain.Metric(cfg.Query.Metric), cfg.Query.Threshold,
	)

	var registry *services.ToolRegistry
	if domain.FlowMode(cfg.Query.Flow) == domain.FlowToolCalling {
		registry, err = services.NewToolRegistry(services.NewSearchTool(retriever))
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	query, err := services.NewQueryOrchestrator(
		domain.FlowMode(cfg.Query.Flow),
		chat, retriever, registry, conversations, documents, queryLog,
		services.WithTopK(cfg.Query.TopK),
		services.WithMaxTokens(cfg.Query.MaxTokens),
		services.WithTemperature(cfg.Query.Temperature),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Query = query

	a.Ingest = services.NewIngestService(ck, embedding, documents, vectors)

	a.Sessions = services.NewSessionRegistry(conversations,
		services.WithSweepInterval(cfg.Sessions.SweepInterval()),
		services.WithReconcileInterval(cfg.Sessions.ReconcileInterval()),
		services.WithMaxIdle(cfg.Sessions.MaxIdle()),
	)

	if cfg.Watch.Enabled {
		w, err := watcher.New(a.Ingest, documents, cfg.Watch.Extensions)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating watcher: %w", err)
		}
		a.watcher = w
		a.watchDir = cfg.Watch.Dir
	}

	logger.Info("Pipeline assembled: flow=%s embed=%s chat=%s",
		cfg.Query.Flow, embedding.ModelName(), chat.ModelName())
	return a, nil
}

// Run starts the background pieces (session sweeper, watcher) and blocks
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.watcher != nil {
		if err := a.watcher.Watch(ctx, a.watchDir); err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
	}
	return a.Sessions.Start(ctx)
}

// Close releases every resource the app holds. Safe to call on a
// partially assembled app.
func (a *App) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.Sessions != nil {
		keep(a.Sessions.Stop())
	}
	if a.watcher != nil {
		keep(a.watcher.Stop())
	}
	if a.vectors != nil {
		keep(a.vectors.Close())
	}
	if a.store != nil {
		keep(a.store.Close())
	}
	if a.chat != nil {
		keep(a.chat.Close())
	}
	if a.embedding != nil {
		keep(a.embedding.Close())
	}
	return firstErr
}

// buildEmbedding constructs the configured embedding provider.
func buildEmbedding(cfg config.ProviderConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout(),
			Dimensions: cfg.Dimensions,
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout(),
			Dimensions: cfg.Dimensions,
		})
	case "synthetic":
		return synthetic.NewEmbeddingService(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// buildChat constructs the configured chat provider.
func buildChat(cfg config.ProviderConfig) (driven.ChatService, error) {
	switch cfg.Provider {
	case "openai":
		return llmopenai.NewChatService(llmopenai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		})
	case "ollama":
		return llmollama.NewChatService(llmollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		}), nil
	case "anthropic":
		return llmanthropic.NewChatService(llmanthropic.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout(),
		})
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}

// buildStorage constructs the document store and query log.
func (a *App) buildStorage(cfg config.StorageConfig) (driven.DocumentStore, driven.QueryLog, error) {
	switch cfg.Backend {
	case "memory":
		return storagemem.NewDocumentStore(), storagemem.NewQueryLog(), nil
	case "sqlite":
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		a.store = store
		return store.DocumentStore(), store.QueryLog(), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// buildVectors constructs the vector index.
func buildVectors(cfg config.VectorConfig, dimensions int) (driven.VectorIndex, error) {
	switch cfg.Backend {
	case "memory":
		return vectormem.NewIndex(), nil
	case "pgvector":
		return pgvector.NewIndex(pgvector.Config{
			DSN:        cfg.PgvectorDSN,
			Dimensions: dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}
