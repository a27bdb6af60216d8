package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smart-nutrition/internal/analysis"
	"smart-nutrition/internal/catalog"
	"smart-nutrition/internal/config"
	"smart-nutrition/internal/database"
	"smart-nutrition/internal/matcher"
	"smart-nutrition/internal/metrics"
	"smart-nutrition/internal/optimizer"
	"smart-nutrition/internal/telegram"
	"smart-nutrition/internal/vision"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramWebhookURL == "" {
		log.Fatalf("TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_URL must be set")
	}
	if len(cfg.TelegramAllowedUserIDs) == 0 {
		log.Println("Warning: TELEGRAM_ALLOWED_USER_IDS is empty, every message will be ignored")
	}

	ctx := context.Background()

	// 2. Initialize Infrastructure
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	foods, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load food catalog: %v", err)
	}

	analyzer, err := vision.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create vision analyzer: %v", err)
	}
	if c, ok := analyzer.(vision.Closer); ok {
		defer c.Close()
	}

	// 3. Initialize Services
	metricsStore := metrics.NewStore(db.SQL)
	foodAnalysis := analysis.NewService(analyzer, matcher.New(foods.Foods()), metricsStore, cfg.MatchMinConfidence)

	// 4. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, foodAnalysis, foods, optimizer.New(optimizer.DefaultPortionOptions()), metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 5. Start Server with Graceful Shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
