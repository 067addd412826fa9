// Command quorumd runs the consensus action pipeline as a daemon. It
// reads action submissions as JSON lines on stdin, each carrying the
// proposals independently sampled for one action, runs every
// submission through its own Router, and writes one JSON outcome line
// per action to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quorum/internal/adapter/embedding"
	"quorum/internal/adapter/handler"
	"quorum/internal/adapter/store"
	"quorum/internal/consensus"
	"quorum/internal/domain"
	"quorum/internal/infra/config"
	"quorum/internal/infra/logger"
	"quorum/internal/infra/tracer"
	"quorum/internal/schema"
	"quorum/internal/usecase"
	"quorum/internal/usecase/eventbus"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	bus := eventbus.New(log)
	defer bus.Close()

	var audit domain.AuditStore
	if cfg.Audit.Enabled {
		sqlStore, err := store.NewSQLiteAuditStore(cfg.Audit.Path)
		if err != nil {
			return err
		}
		defer sqlStore.Close()
		audit = sqlStore
	}

	registry, schemas, err := buildRegistry(cfg, log, bus)
	if err != nil {
		return err
	}
	embedder := buildEmbedder(cfg.Embedding, log)
	merger := consensus.NewMerger(schemas, embedder, log)
	validator := usecase.NewValidator(schemas)

	ledger := usecase.NewMemoryLedger()
	for agentID, budget := range cfg.Budgets {
		ledger.SetBudget(agentID, budget)
	}

	permissions := usecase.NewCapabilityTable(capabilityGroups(cfg))

	coord := usecase.NewCoordinator(usecase.RouterDeps{
		Schemas:     schemas,
		Merger:      merger,
		Validator:   validator,
		Handlers:    registry,
		Permissions: permissions,
		Ledger:      ledger,
		Bus:         bus,
		Audit:       audit,
		Scrubber:    usecase.NewScrubber(),
		Logger:      log,
	}, usecase.CoordinatorConfig{
		ConsensusTimeout: config.Duration(cfg.Consensus.Timeout, 30*time.Second),
		ActionTimeout:    config.Duration(cfg.Dispatch.ActionTimeout, 5*time.Minute),
		Retry: usecase.RetryPolicy{
			MaxAttempts: cfg.Dispatch.RetryAttempts,
			BaseDelay:   config.Duration(cfg.Dispatch.RetryBase, 100*time.Millisecond),
			MaxDelay:    2 * time.Second,
		},
	})

	unsubscribe := bus.SubscribeAll(func(_ context.Context, event domain.Event) {
		log.Debug("lifecycle event",
			"type", string(event.Type),
			"action_id", event.ActionID,
			"kind", string(event.Kind),
		)
	})
	defer unsubscribe()

	log.Info("quorumd started",
		"actions", len(schemas.List()),
		"proposals", cfg.Consensus.Proposals,
		"workspace", cfg.Workspace,
	)
	return serve(ctx, coord, cfg, log)
}

// buildEmbedder assembles the provider chain for semantic-similarity
// consensus: the HTTP provider wrapped by a circuit breaker, a rate
// limiter, and an LRU cache. Returns nil when no API key is available;
// semantic rules then fail and every other rule keeps working.
func buildEmbedder(cfg config.EmbeddingConfig, log *slog.Logger) domain.EmbeddingProvider {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		log.Warn("embedding disabled: API key env unset", "env", cfg.APIKeyEnv)
		return nil
	}
	provider := embedding.NewOpenAIProvider(apiKey,
		embedding.WithOpenAIBaseURL(cfg.BaseURL),
		embedding.WithOpenAIModel(cfg.Model),
	)
	chain := embedding.NewRateLimitedEmbedder(embedding.NewBreakerEmbedder(provider, log), cfg.RateLimit)
	return embedding.NewCachedEmbedder(chain, cfg.CacheSize)
}

// buildRegistry constructs the schema catalog and registers a handler
// for every kind in it. bus may be nil.
func buildRegistry(cfg *config.Config, log *slog.Logger, bus domain.EventBus) (*handler.Registry, *schema.Registry, error) {
	schemas := schema.NewRegistry()
	registry := handler.NewRegistry(log)
	engines := usecase.NewBatchEngines(schemas, usecase.NewValidator(schemas), registry, bus, log)

	get := func(kind domain.ActionKind) domain.ActionSchema {
		sch, err := schemas.Get(kind)
		if err != nil {
			panic(err) // catalog is complete by construction
		}
		return *sch
	}

	threshold := config.Duration(cfg.Shell.SyncThreshold, 2*time.Second)
	handlers := []domain.Handler{
		handler.NewOrientHandler(get(domain.ActionOrient), log),
		handler.NewTodoHandler(get(domain.ActionTodo), log),
		handler.NewFileReadHandler(get(domain.ActionFileRead), cfg.Workspace, log),
		handler.NewFileWriteHandler(get(domain.ActionFileWrite), cfg.Workspace, log),
		handler.NewWebFetchHandler(get(domain.ActionWebFetch), &http.Client{Timeout: 30 * time.Second}, log),
		handler.NewShellHandler(get(domain.ActionExecuteShell), cfg.Shell.Allowed, threshold, log),
		handler.NewSpawnHandler(get(domain.ActionSpawnAgent), handler.NewMemorySpawner(), log),
		handler.NewMessageHandler(get(domain.ActionSendMessage), handler.NewMemoryPostOffice(), log),
		handler.NewWaitHandler(get(domain.ActionWait), bus, log),
		handler.NewBatchSyncHandler(get(domain.ActionBatchSync), engines, log),
		handler.NewBatchAsyncHandler(get(domain.ActionBatchAsync), engines, log),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return nil, nil, err
		}
	}
	return registry, schemas, nil
}

func capabilityGroups(cfg *config.Config) map[string][]domain.ActionKind {
	if len(cfg.Capabilities) == 0 {
		return usecase.DefaultCapabilityGroups()
	}
	groups := make(map[string][]domain.ActionKind, len(cfg.Capabilities))
	for name, kinds := range cfg.Capabilities {
		for _, k := range kinds {
			groups[name] = append(groups[name], domain.ActionKind(k))
		}
	}
	return groups
}
