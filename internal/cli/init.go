// Package cli provides common initialization shared by cmd/lin and
// cmd/lin-sync.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"lin/internal/amqp"
	"lin/internal/api"
	"lin/internal/broker"
	"lin/internal/cache"
	"lin/internal/config"
	"lin/internal/credentials"
	"lin/internal/eventbus"
	"lin/internal/kafka"
	"lin/internal/log"
	"lin/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration, sets up logging and runs
// validate. Exits the process on validation failure.
func LoadAndValidateConfig(out io.Writer, validate func(*config.Config) error) (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg, out)
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err,
			"error_type", log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenCredentialStore returns the configured store and a close function.
func OpenCredentialStore(cfg *config.Config, logger *log.Logger) (credentials.Store, func() error, error) {
	noop := func() error { return nil }
	logger.WithComponent(log.ComponentCredentials).Debug("Opening credential store",
		log.FieldStore, cfg.CredentialStore, "sealed", cfg.CredentialPassphrase != "")
	switch cfg.CredentialStore {
	case "memory":
		return credentials.NewMemoryStore(), noop, nil
	case "file":
		if cfg.CredentialPassphrase != "" {
			return credentials.NewSealedFileStore(cfg.CredentialsFile, cfg.CredentialPassphrase), noop, nil
		}
		return credentials.NewFileStore(cfg.CredentialsFile), noop, nil
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite credential store: %w", err)
		}
		return repo.CredentialStore(), repo.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown credential store %q", cfg.CredentialStore)
}

// NewAPIClient builds the backend client with the response cache wired to
// bus. The returned function stops the cache sweeper and detaches the
// client.
func NewAPIClient(cfg *config.Config, store credentials.Store, bus *eventbus.Bus, logger *log.Logger, userAgent string) (*api.Client, func(), error) {
	opts := []api.Option{
		api.WithLogger(logger),
		api.WithBus(bus),
		api.WithUserAgent(userAgent),
		api.WithHTTPClient(newHTTPClient(cfg.HTTPTimeout)),
	}

	var manager *cache.Manager
	if cfg.CacheSize > 0 && cfg.CacheTTL > 0 {
		responses := cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL)
		manager = cache.NewManager(logger)
		manager.Register(responses)
		manager.StartCleanup(cfg.CacheTTL)
		opts = append(opts, api.WithCache(responses))
	}

	client, err := api.New(cfg.APIURL, store, opts...)
	if err != nil {
		if manager != nil {
			manager.Stop()
		}
		return nil, nil, err
	}
	return client, func() {
		client.Close()
		if manager != nil {
			manager.Stop()
		}
	}, nil
}

// Origin names this process on the broker so it can skip its own messages.
func Origin(program string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s@%s/%d-%s", program, host, os.Getpid(), uuid.NewString()[:8])
}

// NewPublisher returns the configured broker publisher, or nil when no
// broker is configured.
func NewPublisher(cfg *config.Config, logger *log.Logger) (broker.Publisher, error) {
	switch cfg.Broker {
	case "amqp":
		client, err := amqp.NewClient(amqp.Config{URL: cfg.AMQPURL, Exchange: cfg.AMQPExchange}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "kafka":
		w := kafka.NewWriter(kafka.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		return kafka.NewPublisher(w, logger), nil
	}
	return nil, nil
}

// ConsumerMode selects how a consumer shares messages with others.
type ConsumerMode int

const (
	// Shared consumers split the work: one durable queue or consumer group.
	Shared ConsumerMode = iota
	// Listener consumers see every new message and leave no state behind.
	Listener
)

// NewConsumer returns the configured broker consumer, or nil when no broker
// is configured.
func NewConsumer(cfg *config.Config, mode ConsumerMode, logger *log.Logger) (broker.Consumer, error) {
	switch cfg.Broker {
	case "amqp":
		client, err := amqp.NewClient(amqp.Config{
			URL:       cfg.AMQPURL,
			Exchange:  cfg.AMQPExchange,
			Queue:     cfg.AMQPQueue,
			Exclusive: mode == Listener,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "kafka":
		kc := kafka.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroupID}
		if mode == Listener {
			kc.GroupID = "lin-listener-" + uuid.NewString()
			kc.StartAtEnd = true
		}
		return kafka.NewConsumer(kafka.NewReader(kc), logger), nil
	}
	return nil, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals or when
// parent ends, and a channel that signals when cleanup is complete.
func GracefulShutdown(parent context.Context, logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup has run.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
