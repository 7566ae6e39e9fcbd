package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"whitecoat/internal/blob"
	"whitecoat/internal/concepts"
	"whitecoat/internal/config"
	"whitecoat/internal/email"
	"whitecoat/internal/imagegen"
	"whitecoat/internal/insight"
	"whitecoat/internal/llm"
	"whitecoat/internal/logger"
	"whitecoat/internal/persistence"
	"whitecoat/internal/pipeline"
	"whitecoat/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the WhiteCoat Brief HTTP server",
		Long: `Start the HTTP server hosting the questionnaire intake API and the
staff console API.

The server provides:
  • Public questionnaire submission endpoint
  • Staff endpoints for listing and managing submissions
  • Brief generation with live progress polling
  • PDF upload and email delivery to founders
  • Health check endpoint

Examples:
  # Start server on default port 8080
  whitecoat serve

  # Start on custom port
  whitecoat serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	log := logger.Get()
	log.Info("Starting HTTP server")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w\n\n"+
			"Make sure PostgreSQL is running and the connection string is correct.\n"+
			"Run 'whitecoat migrate up' to initialize the database schema.", err)
	}
	log.Info("Database connection successful")

	llmClient, err := llm.NewClient(cfg.AI.Gemini.TextModel, cfg.AI.Gemini.ImageModel)
	if err != nil {
		return fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	scraper := insight.NewScraper(cfg.Scraper)
	extractor := insight.NewExtractor(llmClient, scraper, cfg.Scraper)
	generator := concepts.NewGenerator(llmClient)

	var provider imagegen.Provider = imagegen.NewGeminiProvider(llmClient)
	if cfg.Glif.APIToken != "" {
		glif := imagegen.NewGlifClient(cfg.Glif.APIToken, cfg.Glif.Endpoint,
			imagegen.WithRetries(cfg.Pipeline.MaxRetries, cfg.Pipeline.RetryBackoff))
		provider = imagegen.WithFallback(provider, glif)
	} else {
		log.Warn("Glif API token not configured, image generation has no fallback provider")
	}
	batcher := imagegen.NewBatcher(provider, cfg.Pipeline.BatchSize, cfg.Pipeline.BatchDelay)

	orchestrator := pipeline.NewOrchestrator(db, extractor, generator, batcher, cfg.Pipeline)

	var store blob.Store
	if cfg.Blob.Bucket != "" {
		store, err = blob.NewGCSStore(ctx, cfg.Blob)
		if err != nil {
			return fmt.Errorf("failed to initialize blob storage: %w", err)
		}
		defer store.Close()
	} else {
		log.Warn("Blob bucket not configured, PDF and photo uploads are disabled")
	}

	var sender server.BriefSender
	if cfg.Email.ResendAPIKey != "" {
		emailSender, err := email.NewSender(cfg.Email)
		if err != nil {
			return fmt.Errorf("failed to initialize email sender: %w", err)
		}
		sender = emailSender
	} else {
		log.Warn("Resend API key not configured, brief email delivery is disabled")
	}

	srv := server.New(db, orchestrator, store, sender, serverCfg)

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		log.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed, forcing close", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped successfully")
	}

	return nil
}

// getDatabase loads configuration and opens the PostgreSQL connection.
func getDatabase() (persistence.Database, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dbConnStr := cfg.Database.ConnectionString
	if dbConnStr == "" {
		dbConnStr = os.Getenv("DATABASE_URL")
		if dbConnStr == "" {
			return nil, fmt.Errorf("database connection string not configured (set database.connection_string in config or DATABASE_URL env var)")
		}
	}

	db, err := persistence.NewPostgresDB(dbConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}
