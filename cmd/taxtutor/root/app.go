package root

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/taxtutor/internal/config"
	"github.com/conorfennell/taxtutor/internal/decksync"
	"github.com/conorfennell/taxtutor/internal/llm"
	"github.com/conorfennell/taxtutor/internal/logger"
	"github.com/conorfennell/taxtutor/internal/seed"
	"github.com/conorfennell/taxtutor/internal/storage"
	"github.com/conorfennell/taxtutor/internal/store"
	"github.com/conorfennell/taxtutor/internal/tutor"
	"github.com/conorfennell/taxtutor/internal/ui"
)

// app is the wiring shared by every command.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	backend storage.Backend
	store   *store.Store
}

// openApp loads the configuration and opens the state store.
func openApp(cmd *cobra.Command) (*app, func(), error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	backend, err := storage.OpenBackend(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	st, err := store.New(background(cmd), store.Options{
		Persister: backend,
		Seed:      seed.Snapshot(time.Now()),
		Logger:    log,
	})
	if err != nil {
		_ = backend.Close()
		log.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := backend.Close(); err != nil {
			log.Warn("failed to close storage", "error", err)
		}
		log.Sync()
	}
	return &app{cfg: cfg, log: log, backend: backend, store: st}, cleanup, nil
}

func (a *app) llmClient() (*llm.Client, error) {
	c, err := llm.New(llm.Options{
		BaseURL:    a.cfg.LLM.BaseURL,
		APIKey:     a.cfg.LLM.APIKey,
		Model:      a.cfg.LLM.Model,
		Timeout:    a.cfg.LLM.Timeout,
		MaxRetries: a.cfg.LLM.MaxRetries,
		Logger:     a.log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure the language model: %w", err)
	}
	return c, nil
}

func (a *app) tutor() (*tutor.Tutor, error) {
	c, err := a.llmClient()
	if err != nil {
		return nil, err
	}
	return tutor.New(a.store, c, tutor.Options{SystemPrompt: a.cfg.LLM.SystemPrompt, Logger: a.log}), nil
}

func (a *app) syncer() *decksync.Syncer {
	return decksync.New(a.store, decksync.Options{
		CacheDir:    a.cfg.Sync.CacheDir,
		Concurrency: a.cfg.Sync.Concurrency,
		Logger:      a.log,
	})
}

// warnPersist reports a failed save; the in-memory state is still current.
func (a *app) warnPersist(cmd *cobra.Command) {
	if err := a.store.PersistErr(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.Warn.Render(ui.IconWarn+" changes were not saved: ")+err.Error())
	}
}

func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
