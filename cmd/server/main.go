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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/leadflow/internal/analytics"
	"github.com/ignite/leadflow/internal/billing"
	"github.com/ignite/leadflow/internal/config"
	"github.com/ignite/leadflow/internal/delivery"
	"github.com/ignite/leadflow/internal/ingest"
	"github.com/ignite/leadflow/internal/jobs"
	"github.com/ignite/leadflow/internal/metrics"
	"github.com/ignite/leadflow/internal/pipeline"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/store"
	"github.com/ignite/leadflow/internal/store/postgres"
	"github.com/ignite/leadflow/internal/webhook"
)

const upcomingBillingThresholdDays = 3

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		logger.Error("config load failed", "path", configPath, "error", err.Error())
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	if cfg.Database.Configured() {
		pg, err := postgres.Open(cfg.Database.DSN())
		if err != nil {
			logger.Error("database connect failed", "error", err.Error())
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("migration failed", "error", err.Error())
			os.Exit(1)
		}
		logger.Info("database ready")
		st = pg
	} else {
		logger.Warn("no database configured, using in-memory store")
		st = store.NewMem()
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.URL})
		} else {
			redisClient = redis.NewClient(opts)
		}
		logger.Info("redis configured", "pacing", true, "locking", true)
	}

	reg := metrics.NewRegistry()
	var locks delivery.Locker
	if redisClient != nil {
		locks = delivery.NewRedisLocker(redisClient, 30*time.Second)
	}
	engine := delivery.NewEngine(st,
		delivery.NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail),
		delivery.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppFrom),
		reg, locks)
	svc := billing.NewService(st, st)
	qualifier := pipeline.NewQualifier(st)
	enricher := pipeline.NewEnricher(nil)

	pacerFor := func(platform string, ratePerMinute int) ingest.Pacer {
		if redisClient != nil {
			return ingest.NewRedisPacer(redisClient, platform, ratePerMinute)
		}
		return ingest.NewSleepPacer(ratePerMinute)
	}

	queue := jobs.NewQueue(cfg.Workers.QueueCapacity, cfg.Workers.Count)
	queue.Start(ctx)
	sched := jobs.NewScheduler(queue)

	cycleJob := func(name string, ing ingest.Ingester) jobs.Job {
		cy := pipeline.NewCycle(st, ing, qualifier, enricher, engine, svc)
		return jobs.Job{
			Name:    name,
			Retries: cfg.Workers.Retries,
			Fn:      func(ctx context.Context) error { return cy.Run(ctx) },
		}
	}

	li := cfg.Ingest.LinkedIn
	sched.Every(li.ScrapeInterval(), cycleJob("linkedin_cycle",
		ingest.NewLinkedIn(st, pacerFor("linkedin", li.RatePerMinute), li.SearchTerm, li.Limit, li.ImportPath)))

	ig := cfg.Ingest.Instagram
	sched.Every(ig.ScrapeInterval(), cycleJob("instagram_cycle",
		ingest.NewInstagram(st, pacerFor("instagram", ig.RatePerMinute), ig.SearchTerm, ig.Limit, ig.ImportPath)))

	if cfg.Ingest.GoogleMapsAPIKey != "" {
		gm := cfg.Ingest.GoogleMaps
		sched.Every(gm.ScrapeInterval(), cycleJob("google_maps_cycle",
			ingest.NewGoogleMaps(st, pacerFor("google_maps", gm.RatePerMinute),
				cfg.Ingest.GoogleMapsAPIKey, gm.SearchTerm, gm.Location, gm.Industry)))
	} else {
		logger.Warn("google maps ingester disabled", "reason", "no api key")
	}

	sched.Every(24*time.Hour, jobs.Job{
		Name: "billing_sweep",
		Fn: func(ctx context.Context) error {
			n, err := svc.DeactivateExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("expired subscriptions downgraded", "count", n)
			}
			upcoming, err := svc.CheckUpcomingBilling(ctx, upcomingBillingThresholdDays)
			if err != nil {
				return err
			}
			for _, c := range upcoming {
				logger.Info("billing due soon", "client_id", c.ID, "business", c.BusinessName)
			}
			return nil
		},
	})

	webhookRouter := chi.NewRouter()
	webhookRouter.Use(middleware.RealIP)
	webhookRouter.Use(middleware.Recoverer)
	webhook.NewHandler(st, webhook.Config{
		SendGridPublicKey: cfg.SendGrid.EventPublicKey,
		SendGridToken:     cfg.SendGrid.WebhookToken,
		TwilioAuthToken:   cfg.Twilio.AuthToken,
		TwilioWebhookURL:  cfg.Twilio.WebhookURL,
	}).Register(webhookRouter)

	opsRouter := chi.NewRouter()
	opsRouter.Use(middleware.Recoverer)
	opsRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))
	opsRouter.Get("/metrics", reg.Handler())
	opsRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	analytics.NewAggregator(st).Register(opsRouter)

	webhookSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.WebhookPort),
		Handler:      webhookRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	opsSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:      opsRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 2)
	go func() {
		logger.Info("webhook server listening", "addr", webhookSrv.Addr)
		if err := webhookSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	go func() {
		logger.Info("ops server listening", "addr", opsSrv.Addr)
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		logger.Error("server failed", "error", err.Error())
		os.Exit(1)
	case sig := <-done:
		logger.Info("shutting down", "signal", sig.String())
	}

	sched.Stop()
	queue.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := webhookSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("webhook shutdown", "error", err.Error())
	}
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops shutdown", "error", err.Error())
	}
	logger.Info("stopped")
}
