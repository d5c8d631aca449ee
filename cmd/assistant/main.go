// cmd/assistant/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"smartport-assistant/internal/common/auth"
	"smartport-assistant/internal/common/config"
	"smartport-assistant/internal/common/database"
	httpclient "smartport-assistant/internal/common/http"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/common/observability"
	"smartport-assistant/internal/history"
	"smartport-assistant/internal/models"
	"smartport-assistant/internal/notify"
	"smartport-assistant/internal/orchestrator"
	"smartport-assistant/internal/server"
	"smartport-assistant/pkg/registry"

	// Capability handlers (7)
	ar "smartport-assistant/internal/capabilities/analytics-report"
	ad "smartport-assistant/internal/capabilities/anomaly-detect"
	ba "smartport-assistant/internal/capabilities/blockchain-audit"
	bs "smartport-assistant/internal/capabilities/booking-status"
	cs "smartport-assistant/internal/capabilities/carrier-score"
	sq "smartport-assistant/internal/capabilities/slot-query"
	tf "smartport-assistant/internal/capabilities/traffic-forecast"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild the logger with the configured level and format.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log = logger.NewZapAdapter(zapLog)

	obs := observability.New("assistant", cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Configured() {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			// Test the connection with context
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
	} else {
		zapLog.Warn("postgres not configured, booking and slot data unavailable")
	}

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Configured() {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			// Test the connection
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	} else {
		zapLog.Warn("elasticsearch not configured, traffic and anomaly data unavailable")
	}

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	if cfg.Database.Redis.Configured() {
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			// Test the connection with context
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")
	} else {
		zapLog.Warn("redis not configured, conversation history and caching disabled")
	}

	// --- Init External Service Clients ---
	verifier := auth.NewVerifier(cfg.Auth)
	if verifier.Enabled() {
		zapLog.Info("Keycloak token verification enabled")
	} else {
		zapLog.Warn("Keycloak not configured, trusting caller-supplied identity")
	}

	var scoringBackend *httpclient.Client
	if cfg.Backends.Scoring.BaseURL != "" {
		scoringBackend = httpclient.NewBackendClient(
			cfg.Backends.Scoring.BaseURL,
			cfg.Backends.Scoring.APIKey,
			config.GetDuration(cfg.Backends.Scoring.Timeout),
		)
	}

	var blockchainBackend *httpclient.Client
	if cfg.Backends.Blockchain.BaseURL != "" {
		blockchainBackend = httpclient.NewBackendClient(
			cfg.Backends.Blockchain.BaseURL,
			cfg.Backends.Blockchain.APIKey,
			config.GetDuration(cfg.Backends.Blockchain.Timeout),
		)
	}

	// The sink stays a nil interface unless fan-out is switched on, which
	// disables alert delivery inside the anomaly handler.
	var alertSink ad.AlertSink
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		notifier, err := notify.NewNotifier(cfg.Notifications, log)
		if err != nil {
			zapLog.Fatal("failed to create alert notifier", zap.Error(err))
		}
		alertSink = notifier
		zapLog.Info("Anomaly alert fan-out enabled")
	}

	// --- START: Register capability handlers ---
	reg := registry.New()

	// --- 1. Booking status (Postgres) ---
	if config.IsCapabilityEnabled(cfg, bs.ConfigKey) {
		if pg == nil {
			zapLog.Warn("capability disabled, postgres not configured", zap.String("handler", bs.CapabilityName))
		} else {
			bcfg := bs.LoadConfig()
			if c, ok := cfg.Capabilities[bs.ConfigKey]; ok {
				bcfg.QueryTimeout = config.GetDuration(c.Timeout)
			}
			handler := bs.NewHandler(bcfg, pg, log)
			registerCapability(reg, registry.Binding{Name: bs.CapabilityName, Capability: handler}, zapLog,
				models.IntentBookingStatus)
		}
	}

	// --- 2. Slot availability + recommendation (Postgres + Redis cache) ---
	if config.IsCapabilityEnabled(cfg, sq.ConfigKey) {
		if pg == nil {
			zapLog.Warn("capability disabled, postgres not configured", zap.String("handler", sq.CapabilityName))
		} else {
			scfg := sq.LoadConfig()
			if c, ok := cfg.Capabilities[sq.ConfigKey]; ok {
				scfg.QueryTimeout = config.GetDuration(c.Timeout)
				scfg.CacheTTL = time.Duration(c.CacheTTL) * time.Second
			}
			handler := sq.NewHandler(scfg, pg, redisClient, log)
			registerCapability(reg, registry.Binding{Name: sq.CapabilityName, Capability: handler}, zapLog,
				models.IntentSlotAvailability, models.IntentSlotRecommendation)
		}
	}

	// --- 3. Carrier score (scoring backend + Redis cache) ---
	if config.IsCapabilityEnabled(cfg, cs.ConfigKey) {
		if scoringBackend == nil {
			zapLog.Warn("capability disabled, scoring backend not configured", zap.String("handler", cs.CapabilityName))
		} else {
			ccfg := cs.LoadConfig()
			if c, ok := cfg.Capabilities[cs.ConfigKey]; ok {
				ccfg.RequestTimeout = config.GetDuration(c.Timeout)
				ccfg.CacheTTL = time.Duration(c.CacheTTL) * time.Second
			}
			handler := cs.NewHandler(ccfg, scoringBackend, redisClient, log)
			registerCapability(reg, registry.Binding{Name: cs.CapabilityName, Capability: handler}, zapLog,
				models.IntentCarrierScore)
		}
	}

	// --- 4. Traffic forecast (Elasticsearch) ---
	if config.IsCapabilityEnabled(cfg, tf.ConfigKey) {
		if esClient == nil {
			zapLog.Warn("capability disabled, elasticsearch not configured", zap.String("handler", tf.CapabilityName))
		} else {
			tcfg := tf.LoadConfig()
			if c, ok := cfg.Capabilities[tf.ConfigKey]; ok {
				tcfg.QueryTimeout = config.GetDuration(c.Timeout)
			}
			handler := tf.NewHandler(tcfg, esClient, log)
			registerCapability(reg, registry.Binding{Name: tf.CapabilityName, Capability: handler}, zapLog,
				models.IntentTrafficForecast)
		}
	}

	// --- 5. Anomaly detection (Elasticsearch + alert fan-out) ---
	if config.IsCapabilityEnabled(cfg, ad.ConfigKey) {
		if esClient == nil {
			zapLog.Warn("capability disabled, elasticsearch not configured", zap.String("handler", ad.CapabilityName))
		} else {
			acfg := ad.LoadConfig()
			if c, ok := cfg.Capabilities[ad.ConfigKey]; ok {
				acfg.QueryTimeout = config.GetDuration(c.Timeout)
			}
			handler := ad.NewHandler(acfg, esClient, alertSink, log)
			registerCapability(reg, registry.Binding{Name: ad.CapabilityName, Capability: handler}, zapLog,
				models.IntentAnomalyDetection)
		}
	}

	// --- 6. Blockchain audit (audit backend) ---
	if config.IsCapabilityEnabled(cfg, ba.ConfigKey) {
		if blockchainBackend == nil {
			zapLog.Warn("capability disabled, blockchain backend not configured", zap.String("handler", ba.CapabilityName))
		} else {
			bccfg := ba.LoadConfig()
			if c, ok := cfg.Capabilities[ba.ConfigKey]; ok {
				bccfg.RequestTimeout = config.GetDuration(c.Timeout)
			}
			handler := ba.NewHandler(bccfg, blockchainBackend, log)
			registerCapability(reg, registry.Binding{Name: ba.CapabilityName, Capability: handler}, zapLog,
				models.IntentBlockchainAudit)
		}
	}

	// --- 7. Analytics stress index + alerts (Postgres + Elasticsearch + Redis cache) ---
	if config.IsCapabilityEnabled(cfg, ar.ConfigKey) {
		if pg == nil || esClient == nil {
			zapLog.Warn("capability disabled, postgres and elasticsearch both required", zap.String("handler", ar.CapabilityName))
		} else {
			rcfg := ar.LoadConfig()
			if c, ok := cfg.Capabilities[ar.ConfigKey]; ok {
				rcfg.QueryTimeout = config.GetDuration(c.Timeout)
				rcfg.StressCacheTTL = time.Duration(c.CacheTTL) * time.Second
			}
			handler := ar.NewHandler(rcfg, pg, esClient, redisClient, log)
			registerCapability(reg, registry.Binding{Name: ar.CapabilityName, Capability: handler}, zapLog,
				models.IntentAnalyticsStress, models.IntentAnalyticsAlerts)
		}
	}

	zapLog.Info("Capability registry assembled", zap.Int("intents", reg.Len()))

	// --- Pipeline + HTTP transport ---
	var store *history.Store
	if redisClient != nil {
		store = history.NewStore(
			redisClient,
			cfg.Pipeline.HistoryLimit,
			time.Duration(cfg.Pipeline.HistoryTTL)*time.Second,
			log,
		)
	}

	orchCfg := orchestrator.LoadConfig()
	if cfg.Pipeline.FollowUpMaxWords > 0 {
		orchCfg.FollowUpMaxWords = cfg.Pipeline.FollowUpMaxWords
	}
	orch := orchestrator.New(reg, orchCfg, log, obs)

	srv := server.New(cfg, orch, verifier, store, server.Probes{
		Postgres:      pg,
		Redis:         redisClient,
		Elasticsearch: esClient,
	}, log)

	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down http server", zap.Error(err))
	}

	zapLog.Info("Assistant stopped gracefully")
}

// registerCapability binds one handler under each intent it serves and
// halts startup on a registration error.
func registerCapability(reg *registry.Registry, binding registry.Binding, log *zap.Logger, intents ...models.Intent) {
	for _, intent := range intents {
		if err := reg.Register(intent, binding); err != nil {
			log.Fatal("capability registration failed",
				zap.String("intent", intent.String()),
				zap.String("handler", binding.Name),
				zap.Error(err),
			)
		}
	}

	log.Info("capability registered",
		zap.String("handler", binding.Name),
		zap.Int("intents", len(intents)),
	)
}
