package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/youtube-comments-etl/internal/api"
	"github.com/youtube-comments-etl/internal/artifact"
	"github.com/youtube-comments-etl/internal/config"
	"github.com/youtube-comments-etl/internal/database"
	"github.com/youtube-comments-etl/internal/etl"
	"github.com/youtube-comments-etl/internal/repository"
	"github.com/youtube-comments-etl/internal/scheduler"
	"github.com/youtube-comments-etl/internal/service"
	"github.com/youtube-comments-etl/internal/youtube"
	"github.com/youtube-comments-etl/pkg/logger"
)

func main() {
	migrateDown := flag.Bool("migrate-down", false, "roll back the last migration and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.New("info", os.Getenv("LOG_FORMAT"))
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("video_id", cfg.YouTube.VideoID).Msg("Starting YouTube comments ETL server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if *migrateDown {
		if err := db.MigrateDown(cfg.Database.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back migration")
		}
		return
	}

	// Run migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Build the pipeline
	store, err := artifact.NewStore(cfg.Pipeline.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare data directory")
	}
	client, err := youtube.NewClient(context.Background(), cfg.YouTube, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create YouTube client")
	}
	workflow, err := etl.New(client, store, cfg.YouTube.VideoID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build workflow")
	}

	// Initialize services
	services := service.NewServices(repos, workflow, store, cfg, log)

	// Start background run processor
	go services.Run.StartProcessor(context.Background())
	log.Info().Msg("Background run processor started")

	// Start schedule
	sched, err := scheduler.New(cfg.Pipeline.Schedule, cfg.Pipeline.Timezone, services.Run, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	sched.Start()

	// Initialize router
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(services, db, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop enqueuing before draining the processor
	sched.Stop()
	services.Run.StopProcessor()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
