package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smart-nutrition/internal/analysis"
	"smart-nutrition/internal/api"
	"smart-nutrition/internal/auth"
	"smart-nutrition/internal/catalog"
	"smart-nutrition/internal/config"
	"smart-nutrition/internal/database"
	"smart-nutrition/internal/matcher"
	"smart-nutrition/internal/meals"
	"smart-nutrition/internal/metrics"
	"smart-nutrition/internal/optimizer"
	"smart-nutrition/internal/profile"
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

	ctx := context.Background()

	// 2. Database and catalog
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	foods, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load food catalog: %v", err)
	}
	log.Printf("Loaded %d foods", foods.Len())

	// 3. Vision
	analyzer, err := vision.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create vision analyzer: %v", err)
	}
	if c, ok := analyzer.(vision.Closer); ok {
		defer c.Close()
	}

	// 4. Services
	metricsStore := metrics.NewStore(db.SQL)
	foodAnalysis := analysis.NewService(analyzer, matcher.New(foods.Foods()), metricsStore, cfg.MatchMinConfidence)
	authService := auth.NewService(auth.NewRepository(db.SQL), auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL))

	server := api.NewServer(api.Deps{
		Auth:      authService,
		Profiles:  profile.NewRepository(db.SQL),
		Meals:     meals.NewRepository(db.SQL),
		Catalog:   foods,
		Optimizer: optimizer.New(optimizer.DefaultPortionOptions()),
		Analyzer:  foodAnalysis,
		DataPath:  filepath.Dir(cfg.DatabasePath),
	})

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router(cfg.AllowedOrigins),
	}

	go func() {
		log.Printf("Nutrition API listening on port %s", cfg.Port)
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
