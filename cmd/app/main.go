// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobpilot/internal/config"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	aiAdapters "jobpilot/internal/infra/adapters/ai"
	"jobpilot/internal/infra/adapters/notify"
	"jobpilot/internal/infra/adapters/sources"
	"jobpilot/internal/infra/adapters/sponsor"
	pg "jobpilot/internal/infra/db/postgres"
	"jobpilot/internal/infra/logging"
	"jobpilot/internal/infra/metrics"
	red "jobpilot/internal/infra/redis"
	"jobpilot/internal/infra/sched"
	"jobpilot/internal/infra/web"
	"jobpilot/internal/progress"
	"jobpilot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (relaxed cookies, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	// ---- Postgres ----
	pool := pg.MustConnectPostgres(cfg.Database.URL)
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	jobRepo := pg.NewJobRepo(pool, tm)
	runRepo := pg.NewPipelineRunRepo(pool, tm)

	// ---- Source adapters ----
	sourceIDs := make([]model.SourceID, 0, len(cfg.Search.Sources))
	for _, src := range cfg.Search.Sources {
		sourceIDs = append(sourceIDs, model.SourceID(src))
	}
	if len(sourceIDs) == 0 {
		sourceIDs = model.AllSources
	}
	registry := sources.NewRegistry()
	for _, id := range sourceIDs {
		registry.Register(sources.NewJobspyAdapter(id, string(id), cfg.Sources.ExtractorURL))
	}

	// ---- AI adapter (Gemini -> OpenAI -> noop) ----
	var chat aiAdapters.ChatClient
	provider := "noop"
	if cfg.AI.GeminiKey != "" {
		chat, err = aiAdapters.NewGeminiClient(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.GeminiModel, cfg.AI.MaxOutputTokens)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		provider = "gemini"
		logger.Info().Str("model", cfg.AI.GeminiModel).Msg("AI adapter: Gemini")
	} else if cfg.AI.OpenAIKey != "" {
		chat, err = aiAdapters.NewOpenAIClient(cfg.AI.OpenAIKey, cfg.AI.OpenAIModel)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		provider = "openai"
		logger.Info().Str("model", cfg.AI.OpenAIModel).Msg("AI adapter: OpenAI")
	} else {
		chat = aiAdapters.NewNoopChat()
		logger.Warn().Msg("no AI provider configured, using noop scorer")
	}
	chat = aiAdapters.NewThrottledChat(chat, rateLimiter, red.ScorerKey(provider), cfg.AI.RequestsPerMinute, time.Minute)
	chat = aiAdapters.NewLimitedChat(chat, cfg.AI.ConcurrentLimit)
	aiSvc := aiAdapters.NewService(chat, cfg.AI.OutputDir)

	// ---- Sponsor register ----
	var sponsors adapter.SponsorMatcher
	if cfg.Sources.SponsorRegisterURL != "" {
		sponsors = sponsor.NewRegisterClient(cfg.Sources.SponsorRegisterURL)
	} else {
		logger.Warn().Msg("sponsor register not configured, jobs will carry no sponsor match")
	}

	// ---- Notifier ----
	var notifier adapter.Notifier
	if cfg.Telegram.Token != "" {
		notifier, err = notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Fatalf("telegram notifier: %v", err)
		}
	} else {
		notifier = notify.NewNoopNotifier()
	}

	// ---- Use cases ----
	broadcaster := progress.NewBroadcaster(logger)
	profile := adapter.Profile{
		Summary:    cfg.Profile.Summary,
		Skills:     cfg.Profile.Skills,
		Experience: cfg.Profile.Experience,
		TargetRole: cfg.Profile.TargetRole,
	}
	searchDefaults := usecase.SearchDefaults{
		SearchTerms:   cfg.Search.Terms,
		Country:       cfg.Search.Country,
		Locations:     cfg.Search.Locations,
		Sources:       sourceIDs,
		ResultsWanted: cfg.Search.ResultsWanted,
		HoursOld:      cfg.Search.HoursOld,
	}
	discoveryUC := usecase.NewDiscoveryUseCase(registry, broadcaster, searchDefaults, cfg.Pipeline.Concurrency, cfg.Pipeline.SourceTimeout, logger)
	pipelineUC := usecase.NewPipelineUseCase(
		discoveryUC, jobRepo, runRepo,
		aiSvc, sponsors, aiSvc, notifier,
		broadcaster, locker, profile,
		usecase.PipelineDefaults{
			TopN:                cfg.Pipeline.TopN,
			MinSuitabilityScore: cfg.Pipeline.MinSuitabilityScore,
		},
		logger,
	)
	bulkUC := usecase.NewBulkActionUseCase(jobRepo, aiSvc, profile, logger)

	// ---- HTTP server ----
	metrics.MustRegister()
	auth := web.NewAuthManager(cfg.Server.JWTSecret, !cfg.Runtime.Dev, "", cfg.Server.SessionTTL)
	srv := web.NewServer(pipelineUC, bulkUC, jobRepo, broadcaster, auth, cfg.Server.APIKey, rateLimiter, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: srv.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Background workers ----
	expiry := sched.NewExpiryWorker(cfg.Pipeline.ExpiryInterval, cfg.Pipeline.ExpiryAge, jobRepo, logger)
	go func() { _ = expiry.Run(ctx) }()

	if cfg.Pipeline.ScheduleInterval > 0 {
		scheduler := sched.NewRunScheduler(cfg.Pipeline.ScheduleInterval, pipelineUC, logger)
		go func() { _ = scheduler.Run(ctx) }()
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := server.Shutdown(shCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	// Let an in-flight run finish writing its terminal state.
	pipelineUC.Wait()
}
