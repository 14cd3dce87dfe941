// Package syncservice owns the sync HTTP server lifecycle.
package syncservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lorekeeper/lorekeeper/internal/api"
	"github.com/lorekeeper/lorekeeper/internal/auth"
	"github.com/lorekeeper/lorekeeper/internal/config"
	emb "github.com/lorekeeper/lorekeeper/internal/embeddings"
	"github.com/lorekeeper/lorekeeper/internal/factory"
	"github.com/lorekeeper/lorekeeper/internal/graph"
	"github.com/lorekeeper/lorekeeper/internal/health"
	"github.com/lorekeeper/lorekeeper/internal/logger"
	"github.com/lorekeeper/lorekeeper/internal/queue"
	"github.com/lorekeeper/lorekeeper/internal/store"
	syncsvc "github.com/lorekeeper/lorekeeper/internal/sync"
)

// Run starts the sync service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("sync-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("http_port", cfg.HTTPPort).
		Str("neo4j_uri", cfg.Neo4jURI).
		Str("embed_provider", cfg.EmbedProvider).
		Str("embed_model", cfg.EmbedModel).
		Int("flush_threshold", cfg.SyncFlushThreshold).
		Bool("background_embed", cfg.BackgroundEmbed).
		Msg("Sync service starting")

	// Cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	st, client, embedProvider, taskQueue, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close(context.Background()) }()
	defer func() { _ = taskQueue.Close() }()

	tracker := emb.NewTracker(st, embedProvider, log)
	hook := syncsvc.NewHook(cfg.SyncFlushThreshold, cfg.BackgroundEmbed, taskQueue, tracker, log)
	service := syncsvc.NewService(st, hook, cfg.ChatRetentionDays, log)

	// Health checkers, aggregated into the service flag
	svcHealth := startHealthCheckers(ctx, cfg, log, st, embedProvider)

	router := api.NewRouter(api.Deps{
		Sync:      service,
		Hook:      hook,
		Tracker:   tracker,
		Queue:     taskQueue,
		Extractor: auth.NewHeaderExtractor(),
		IsHealthy: svcHealth.IsHealthy,
	})

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies constructs required components and enforces fail-fast on missing deps.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, *graph.Client, emb.EmbeddingProvider, *queue.RedisQueue, error) {
	st, client, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Graph store unavailable")
		return nil, nil, nil, nil, err
	}

	embProvider := factory.NewEmbeddingProvider(ctx, cfg, log)
	if embProvider == nil {
		return nil, nil, nil, nil, fmt.Errorf("embedding provider not configured")
	}

	taskQueue := queue.NewRedisQueue(cfg.RedisAddr, log)
	return st, client, embProvider, taskQueue, nil
}

// startHealthCheckers starts component checkers and the service-level aggregator.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store, embProvider emb.EmbeddingProvider) *health.ServiceHealthChecker {
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	storeChecker := store.NewStoreHealthChecker(st, log, probeTimeout)
	go storeChecker.Start(ctx, interval)

	embChecker := emb.NewProviderHealthChecker(embProvider, log, probeTimeout)
	go embChecker.Start(ctx, interval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker, embChecker)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
