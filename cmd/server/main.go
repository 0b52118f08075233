package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"miim/internal/app"
	"miim/internal/config"
	"miim/internal/database"
	"miim/internal/handlers"
	"miim/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	// Connect to database
	if err := database.Connect(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	application, err := app.New(database.DB, cfg)
	if err != nil {
		log.Fatal("Failed to initialize services:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerService := startWorker(ctx, application)

	if cfg.Server.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handlers.NewRouter(handlers.RouterDeps{
		DB:      database.DB,
		Review:  application.Review,
		Quality: cfg.Quality,
		Worker:  workerService,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Received shutdown signal, gracefully shutting down...")

	if workerService != nil {
		workerService.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Shutdown complete")
}

// startWorker launches the background runner when enabled and an LLM key is configured
func startWorker(ctx context.Context, application *app.App) *worker.WorkerService {
	if !application.Config.Worker.Enabled {
		log.Println("Background runner disabled (WORKER_ENABLED=false)")
		return nil
	}

	extractor, err := application.Extractor()
	if err != nil {
		log.Printf("⚠️  Background runner not started: %v", err)
		return nil
	}

	workerService, err := application.Worker(extractor)
	if err != nil {
		log.Printf("⚠️  Background runner not started: %v", err)
		return nil
	}
	if err := workerService.Start(ctx); err != nil {
		log.Fatal("Failed to start background runner:", err)
	}
	return workerService
}
