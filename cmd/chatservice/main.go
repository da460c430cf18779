package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"chatdesk/internal/assistant"
	"chatdesk/internal/auth"
	"chatdesk/internal/chat"
	"chatdesk/internal/config"
	"chatdesk/internal/conversation"
	"chatdesk/internal/llm"
	"chatdesk/internal/logging"
	"chatdesk/internal/prompts"
	"chatdesk/internal/rating"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// main is the entry point for the chat service.
// It initializes dependencies and starts the HTTP server.
func main() {
	configPath := os.Getenv("CHATDESK_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if _, err := logging.Init(cfg.Log); err != nil {
		log.Printf("Could not open log file, logging is disabled: %v", err)
	}

	ctx := context.Background()

	// Conversations are kept locally, and in Postgres when a database is configured.
	local, err := conversation.NewLocalRepository(cfg.LocalStorePath)
	if err != nil {
		log.Fatalf("Could not open local store: %v", err)
	}
	defer local.Close()

	var (
		remote     conversation.Repository
		ratingRepo rating.Repository
	)
	if cfg.DBConnection != "" {
		db, err := connectDB(ctx, cfg.DBConnection)
		if err != nil {
			log.Fatalf("Could not connect to database: %v", err)
		}
		defer db.Close()
		slog.Info("database_connected")

		remote = conversation.NewPostgresRepository(db)
		ratingRepo = rating.NewPostgresRepository(db)
	}

	conversationService := conversation.NewService(local, remote, cfg.IsLocalStorage(), cfg.DefaultModel)

	// The upstream chat API serves every provider without a dedicated backend.
	router, err := llm.NewRouterFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Could not create model backends: %v", err)
	}

	chatService := chat.NewService(conversationService, router, chat.SettingsFromConfig(cfg),
		chat.WithHooks(chat.DefaultHooks()),
		chat.WithCompletion(func(ctx context.Context, body *chat.ChatBody, text string) {
			slog.Info("chat_send_complete", "model", body.Model.ID, "response_chars", len(text))
		}),
	)

	ratingService := rating.NewService(ratingRepo, conversationService)
	assistantService := assistant.NewService(assistant.NewHTTPOpsClient(cfg.APIBaseURL, cfg.APIKey))
	promptsService := prompts.NewService(cfg.APIBaseURL, cfg.APIKey)

	// Set up the chi router.
	r := chi.NewRouter()
	r.Use(middleware.Logger)    // Log incoming requests.
	r.Use(middleware.Recoverer) // Prevent panics from crashing the server.
	r.Use(auth.Middleware)

	// Simple health check endpoint.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ChatService OK"))
	})

	conversation.NewHandler(conversationService).RegisterRoutes(r)
	chat.NewHandler(chatService).RegisterRoutes(r)
	rating.NewHandler(ratingService).RegisterRoutes(r)
	assistant.NewHandler(assistantService).RegisterRoutes(r)
	prompts.NewHandler(promptsService).RegisterRoutes(r)
	llm.NewHandler(router).RegisterRoutes(r)

	slog.Info("chat_service_start", "port", cfg.Port, "local_default", cfg.IsLocalStorage())
	log.Printf("ChatService starting on port %s", cfg.Port)

	// Block and run the web server.
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatalf("Could not start server: %v", err)
	}
}

// connectDB opens the database, verifies the connection and creates the tables.
func connectDB(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, err
	}
	// Ping() verifies the connection is actually alive.
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := conversation.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := rating.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
