package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"concierge_backend/internal/chat"
	"concierge_backend/internal/conversations"
	"concierge_backend/internal/email"
	"concierge_backend/internal/escalation"
	"concierge_backend/internal/events"
	"concierge_backend/internal/extract"
	"concierge_backend/internal/followup"
	apphttp "concierge_backend/internal/http"
	"concierge_backend/internal/http/router"
	"concierge_backend/internal/notification/outbox"
	"concierge_backend/internal/orders"
	"concierge_backend/internal/pricing"
	"concierge_backend/internal/quotes"
	"concierge_backend/platform/ai/gemini"
	"concierge_backend/platform/config"
	"concierge_backend/platform/db"
	"concierge_backend/platform/logger"
	"concierge_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	events.NewAuditLog(log).RegisterHandlers(eventBus)

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	scheduler, closeScheduler := initScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	sender := initSender(cfg, log)

	model, err := gemini.NewModel(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize model gateway", "error", err)
		panic("failed to initialize model gateway: " + err.Error())
	}

	pricingTable, err := pricing.LoadTable(cfg.GetPricingTablePath())
	if err != nil {
		log.Error("failed to load pricing table", "error", err)
		panic("failed to load pricing table: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	convRepo := conversations.New(pool)
	resolver := conversations.NewResolver(convRepo, log)
	outboxRepo := outbox.New(pool)

	quoteService := quotes.NewService(
		quotes.NewRepository(pool),
		sender,
		outboxRepo,
		scheduler,
		cfg.GetEstimatorURL(),
		log,
	)
	dispatcher := escalation.NewDispatcher(convRepo, sender, outboxRepo, cfg.GetEscalationRecipient(), log)

	orchestrator := chat.NewOrchestrator(chat.OrchestratorDeps{
		Extractor:  extract.New(extract.DefaultConfig()),
		Resolver:   resolver,
		Store:      convRepo,
		Engine:     pricing.NewEngine(pricingTable, cfg.GetPricingUnitRate()),
		Orders:     orders.NewAdapter(cfg, log),
		Model:      model,
		Composer:   chat.NewComposer(cfg.GetBrandName(), cfg.GetEstimatorURL()),
		Quotes:     quoteService,
		Escalation: dispatcher,
		Scheduler:  scheduler,
		Lock:       chat.NewTurnLock(redisClient),
		Bus:        eventBus,
		Log:        log,
	})
	chatModule := chat.NewModule(chat.NewHandler(orchestrator, val, log))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			chatModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; turn locking disabled")
		return nil
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		return nil
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt)
}

func initScheduler(cfg *config.Config, log *logger.Logger) (followup.Scheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; follow-up tasks disabled")
		return nil, nil
	}

	client, err := followup.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize followup client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initSender(cfg *config.Config, log *logger.Logger) email.Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		log.Warn("email delivery disabled; quote and escalation sends will report failure")
		return email.NopSender{}
	}
	return email.NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
