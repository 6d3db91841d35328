package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"erc20-transfer-indexer/internal/application/pipeline"
	app_service "erc20-transfer-indexer/internal/application/service"
	"erc20-transfer-indexer/internal/domain/repository"
	domain_service "erc20-transfer-indexer/internal/domain/service"
	"erc20-transfer-indexer/internal/infrastructure/blockchain"
	"erc20-transfer-indexer/internal/infrastructure/config"
	"erc20-transfer-indexer/internal/infrastructure/database"
	"erc20-transfer-indexer/internal/infrastructure/logger"
	"erc20-transfer-indexer/internal/infrastructure/messaging"
	"erc20-transfer-indexer/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	app := fx.New(
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.App),
		fx.Supply(&cfg.NATS),
		fx.Supply(&cfg.Neo4J),
		fx.Provide(func() *zap.Logger { return log.Logger }),

		// Infrastructure providers
		fx.Provide(
			newRegistry,
			func(registry *prometheus.Registry) *metrics.Metrics { return metrics.NewMetrics(registry) },
			database.NewNeo4JClient,
			database.NewNeo4JTransferRepository,
			blockchain.NewERC20DecoderService,
			messaging.NewNATSConsumer,
			pipeline.NewBatcher,
		),

		// Application providers
		fx.Provide(
			func(
				repo repository.TransferRepository,
				decoder domain_service.ERC20DecoderService,
				m *metrics.Metrics,
				cfg *config.Config,
				log *logger.Logger,
			) domain_service.IndexingService {
				return app_service.NewIndexingApplicationService(repo, decoder, m, cfg.App.Network, log)
			},
		),

		fx.Invoke(startIndexer),
		fx.Invoke(startHTTPServer),

		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// startIndexer connects storage and messaging and runs the batch pipeline
func startIndexer(
	lifecycle fx.Lifecycle,
	consumer *messaging.NATSConsumer,
	indexingService domain_service.IndexingService,
	batcher *pipeline.Batcher,
	neo4jClient *database.Neo4JClient,
	cfg *config.Config,
	log *logger.Logger,
) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting indexing service...")

			if err := neo4jClient.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to Neo4J: %w", err)
			}

			log.Info("NATS Configuration",
				zap.String("url", cfg.NATS.URL),
				zap.String("stream_name", cfg.NATS.StreamName),
				zap.String("subject_prefix", cfg.NATS.SubjectPrefix),
				zap.Bool("enabled", cfg.NATS.Enabled),
			)

			if err := consumer.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}

			go func() {
				defer close(done)
				batcher.Run(runCtx, consumer.GetMessageChannel(), indexingService)
			}()

			log.Info("Indexing service started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping indexing service...")

			// Disconnecting closes the channel, which drains the batcher
			disconnectErr := consumer.Disconnect()
			select {
			case <-done:
			case <-ctx.Done():
				cancel()
				<-done
			}
			cancel()

			if err := neo4jClient.Close(ctx); err != nil {
				log.Error("Failed to close Neo4J connection", zap.Error(err))
			}
			return disconnectErr
		},
	})
}

type healthStatus struct {
	Status string `json:"status"`
	Neo4J  bool   `json:"neo4j"`
	NATS   bool   `json:"nats"`
}

// startHTTPServer serves /health and, when enabled, Prometheus metrics
func startHTTPServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	registry *prometheus.Registry,
	neo4jClient *database.Neo4JClient,
	consumer *messaging.NATSConsumer,
	log *logger.Logger,
) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.Health.Timeout)
		defer cancel()

		status := healthStatus{
			Status: "ok",
			Neo4J:  neo4jClient.IsConnected(ctx),
			NATS:   !cfg.NATS.Enabled || consumer.IsConnected(),
		}
		code := http.StatusOK
		if !status.Neo4J || !status.NATS {
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting HTTP server", zap.Int("port", cfg.App.HTTPPort))
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}
