package cmd

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/telewiki/internal/config"
	"github.com/ziadkadry99/telewiki/internal/db"
	"github.com/ziadkadry99/telewiki/internal/guestbook"
	"github.com/ziadkadry99/telewiki/internal/llm"
)

const shutdownTimeout = 10 * time.Second

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `telewiki init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openGuestbook opens the guestbook database. The caller closes the DB.
func openGuestbook(cfg *config.Config) (*db.DB, *guestbook.Store, error) {
	database, err := db.Open(cfg.Guestbook.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening guestbook database: %w", err)
	}
	return database, guestbook.NewStore(database), nil
}

// createLLMProviderFromConfig creates the rate limited LLM provider behind
// the AI relay.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	baseURL := ""
	if cfg.AI.Provider == config.ProviderOllama || cfg.AI.Provider == "" {
		baseURL = cfg.AI.OllamaURI
	}
	provider, err := llm.NewProvider(string(cfg.AI.Provider), cfg.AI.Model, baseURL)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(provider, cfg.AI.RateLimitRPM), nil
}

// runUntilSignal runs start until ctx is cancelled, then calls shutdown with
// a bounded timeout and waits for both to finish.
func runUntilSignal(ctx context.Context, start func() error, shutdown func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return shutdown(sctx)
	})
	return g.Wait()
}
