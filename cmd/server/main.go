// Command server runs the envelope token service: an HTTP API that issues
// and verifies JWTs whose signing keys are wrapped by an external KMS.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/envseal/envseal/internal/application"
	appservice "github.com/envseal/envseal/internal/application/service"
	"github.com/envseal/envseal/internal/config"
	"github.com/envseal/envseal/internal/domain/service"
	"github.com/envseal/envseal/internal/infrastructure/audit"
	"github.com/envseal/envseal/internal/infrastructure/crypto"
	"github.com/envseal/envseal/internal/infrastructure/kms"
	"github.com/envseal/envseal/internal/infrastructure/monitoring"
	memorycache "github.com/envseal/envseal/internal/infrastructure/persistence/memory"
	rediscache "github.com/envseal/envseal/internal/infrastructure/persistence/redis"
	httpiface "github.com/envseal/envseal/internal/interfaces/http"
	"github.com/envseal/envseal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	bootLog := logger.NewNop()
	cfg, err := config.Load(bootLog)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// Log level follows config file edits without a restart.
	config.Watch(log, func(updated *config.Config) {
		monitoring.SetLevel(log, updated.Log.Level)
	})

	shutdownTracer, err := monitoring.InitTracer(&cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keyService, checks, err := buildKMS(cfg, log)
	if err != nil {
		return err
	}

	cache, cacheCheck, err := buildCache(cfg, log)
	if err != nil {
		return err
	}
	if cacheCheck != nil {
		checks["cache"] = cacheCheck
	}

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	managerOpts := []application.ManagerOption{
		application.WithLogger(log),
		application.WithMetrics(metrics),
	}
	if cache != nil {
		managerOpts = append(managerOpts, application.WithKeyCache(cache))
	}
	keys := application.NewEnvelopeKeyManager(keyService, managerOpts...)

	tokenOpts := []appservice.TokenOption{
		appservice.WithLogger(log),
		appservice.WithMetrics(metrics),
	}
	var auditProducer *audit.KafkaProducer
	if cfg.Kafka.Enabled {
		auditProducer = audit.NewKafkaProducer(cfg.Kafka, log)
		tokenOpts = append(tokenOpts, appservice.WithAudit(auditProducer))
	}

	codec := crypto.NewTokenCodec(log)
	tokens := appservice.NewTokenAppService(keys, codec, tokenOpts...)

	engine := httpiface.NewRouter(cfg, tokens, log, checks)
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if auditProducer != nil {
			if err := auditProducer.Close(); err != nil {
				log.Warn(context.Background(), "audit producer close failed", logger.Any("error", err))
			}
		}
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn(context.Background(), "tracer shutdown failed", logger.Any("error", err))
		}
		return nil
	})

	return g.Wait()
}

// buildKMS constructs the configured key management backend and its
// readiness checks.
func buildKMS(cfg *config.Config, log logger.Logger) (service.KeyManagementService, map[string]func() error, error) {
	checks := make(map[string]func() error)

	switch cfg.KMS.Provider {
	case "vault":
		client, err := kms.NewVaultClient(cfg.KMS.Vault)
		if err != nil {
			return nil, nil, fmt.Errorf("vault client: %w", err)
		}
		checks["kms"] = func() error {
			_, err := client.Sys().Health()
			return err
		}
		return kms.NewVaultKMS(cfg.KMS.Vault, client, log), checks, nil
	case "aws":
		provider, err := kms.NewAWSKMS(cfg.KMS.AWS, log)
		if err != nil {
			return nil, nil, fmt.Errorf("aws kms: %w", err)
		}
		return provider, checks, nil
	default:
		return nil, nil, fmt.Errorf("unknown kms provider %q", cfg.KMS.Provider)
	}
}

// buildCache constructs the configured data-key cache, or none at all.
func buildCache(cfg *config.Config, log logger.Logger) (service.KeyCache, func() error, error) {
	switch cfg.Cache.Backend {
	case "redis":
		client, err := rediscache.NewClient(&cfg.Redis, log)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		check := func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(ctx).Err()
		}
		return rediscache.NewKeyCache(client, log), check, nil
	case "memory":
		return memorycache.NewKeyCache(cfg.Cache.CleanupInterval), nil, nil
	case "none", "":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
