package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"lifeorganizer/internal/config"
	"lifeorganizer/internal/handlers"
	"lifeorganizer/internal/jobs"
	"lifeorganizer/internal/logging"
	"lifeorganizer/internal/models"
	"lifeorganizer/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Life Organizer...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, allowed users: %d)", cfg.Port, len(cfg.AllowedUserIDs))

	if cfg.TelegramBotToken == "" {
		log.Fatal("❌ TELEGRAM_BOT_TOKEN environment variable is required")
	}
	if cfg.StoreToken == "" || cfg.LifeAreasDBID == "" {
		log.Fatal("❌ NOTION_TOKEN and LIFE_AREAS_DB_ID environment variables are required")
	}

	// Core services
	gate := services.NewAccessGate(cfg.AllowedUserIDs,
		time.Duration(cfg.RateLimitWindowSeconds)*time.Second, cfg.RateLimitMaxRequests)
	classifier := services.NewClassifierService(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ClassifyModel, cfg.VisionModel)
	transcriber := services.NewTranscriptionService(cfg.WhisperBaseURL, cfg.WhisperAPIKey, cfg.WhisperModel)
	store := services.NewItemStoreService(cfg.StoreBaseURL, cfg.StoreToken,
		cfg.LifeAreasDBID, cfg.BrainDumpDBID, cfg.ProgressDBID, cfg.HabitsDBID)
	matcher := services.NewMatcherService(classifier)
	sessions := services.NewSessionService()
	game := services.NewGamificationService()
	habits := services.NewHabitService(store)

	// Telegram transport
	telegram := services.NewTelegramService(cfg.TelegramBotToken)

	organizer := services.NewOrganizerService(gate, classifier, transcriber, store, matcher, sessions, game, habits, telegram)
	telegram.SetUpdateHandler(func(ctx context.Context, update *models.TelegramUpdate) {
		organizer.HandleUpdate(ctx, update)
	})

	// Seed default habits before the first reminder can fire
	if cfg.HabitSeedsFile != "" {
		seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		specs, err := config.LoadHabitSeeds(cfg.HabitSeedsFile)
		if err != nil {
			log.Printf("⚠️ Failed to load habit seeds: %v", err)
		} else if err := habits.SeedDefaults(seedCtx, specs); err != nil {
			log.Printf("⚠️ Failed to seed habits: %v", err)
		}
		cancel()
	}

	// Reminder jobs
	scheduler, err := jobs.NewReminderScheduler(jobs.Options{
		Timezone:    cfg.SchedulerTimezone,
		MorningCron: cfg.MorningCron,
		EveningCron: cfg.EveningCron,
		NudgeCron:   cfg.NudgeCron,
		UserIDs:     cfg.AllowedUserIDs,
	}, telegram, store, habits)
	if err != nil {
		log.Fatalf("❌ Failed to create reminder scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start reminder scheduler: %v", err)
	}
	log.Printf("🕐 Reminder jobs: morning %q, evening %q, nudge %q (%s)",
		cfg.MorningCron, cfg.EveningCron, cfg.NudgeCron, cfg.SchedulerTimezone)

	telegram.StartPolling()

	// HTTP surface: dashboard API, health, metrics
	app := fiber.New(fiber.Config{
		AppName:      "Life Organizer v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("lifeorganizer")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	dashboard := handlers.NewDashboardHandler(sessions, store, habits, cfg.AllowedUserIDs)
	app.Get("/health", dashboard.Health)

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
	}))
	api.Get("/dashboard", dashboard.GetDashboard)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		telegram.Stop()

		if err := scheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping scheduler: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
