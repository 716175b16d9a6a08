package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/guc1/domain-agent/internal/api"
	"github.com/guc1/domain-agent/internal/config"
	"github.com/guc1/domain-agent/internal/core"
	"github.com/guc1/domain-agent/internal/llm"
	"github.com/guc1/domain-agent/internal/rdap"
	"github.com/guc1/domain-agent/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := core.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	agents, err := llm.LoadAgents(cfg.AgentsFile)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(&llm.Config{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
	})
	if err != nil {
		return err
	}

	checker := buildChecker(client, agents, log)

	orc := core.NewOrchestrator(
		sessions,
		llm.NewSynthesizer(client, agents, log),
		llm.NewCreatorPool(client, agents, log),
		checker,
		core.WithLogger(log),
		core.WithMaxAttempts(cfg.MaxGenerationAttempts),
		core.WithCheckConcurrency(cfg.CheckConcurrency),
	)

	handler := api.NewHandler(orc, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(cfg.APIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "store", cfg.StoreBackend, "checker", agents.Checker.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildStore(ctx context.Context, cfg *config.Config, log core.Logger) (core.Store, error) {
	switch cfg.StoreBackend {
	case "file":
		f, err := store.NewFile(cfg.SessionDir, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if n, err := f.Sweep(); err != nil {
						log.Warn("session sweep failed", "error", err)
					} else if n > 0 {
						log.Info("expired sessions removed", "count", n)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		return f, nil
	case "redis":
		return store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL), nil
	default:
		m := store.NewMemory(cfg.SessionTTL)
		m.StartSweeper(ctx, log)
		return m, nil
	}
}

func buildChecker(client *llm.Client, agents llm.AgentsConfig, log core.Logger) core.AvailabilityChecker {
	if agents.Checker.Mode == "MODEL" {
		return llm.NewSearchChecker(client, agents, log)
	}
	timeout := time.Duration(agents.Checker.RequestTimeoutSeconds) * time.Second
	bootstrap := rdap.NewBootstrap(rdap.DefaultBootstrapURL, nil)
	return rdap.NewChecker(bootstrap, timeout, log)
}
