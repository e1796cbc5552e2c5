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

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"github.com/snowmigrate/snowmigrate-api/internal/config"
	"github.com/snowmigrate/snowmigrate-api/internal/connections"
	"github.com/snowmigrate/snowmigrate-api/internal/engine"
	"github.com/snowmigrate/snowmigrate-api/internal/handlers"
	"github.com/snowmigrate/snowmigrate-api/internal/jobstore"
	"github.com/snowmigrate/snowmigrate-api/internal/metadata"
	"github.com/snowmigrate/snowmigrate-api/internal/middleware"
	"github.com/snowmigrate/snowmigrate-api/internal/routes"
)

type application struct {
	config *config.Config
	engine *engine.Engine
	conns  *connections.Manager
	logger zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Initialize the job store and connection manager.
	store := jobstore.New()
	conns := connections.NewManager()

	// Initialize the migration engine.
	eng := engine.New(store, conns, logger, engine.Options{
		CLIPath:       cfg.Engine.CLIPath,
		MaxConcurrent: cfg.Engine.MaxConcurrentMigrations,
		GracePeriod:   cfg.Engine.CancelGracePeriod,
		PollInterval:  cfg.Engine.ProgressPollInterval,
	})

	// Create the application instance.
	app := &application{
		config: cfg,
		engine: eng,
		conns:  conns,
		logger: logger,
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	metadataService := metadata.NewService(app.conns, app.config.Engine.MetadataTimeout, logger)

	authHandler := handlers.NewAuthHandler(app.config, logger)
	jobHandler := handlers.NewJobHandler(app.engine, logger)
	connHandler := handlers.NewConnectionHandler(app.conns, logger)
	stagingHandler := handlers.NewStagingHandler(app.engine, logger)
	metaHandler := handlers.NewMetadataHandler(metadataService, logger)

	return routes.NewRouter(authHandler, jobHandler, connHandler, stagingHandler, metaHandler)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
}
