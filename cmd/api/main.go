package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/nomadnest/nomadnest/internal/auth"
	"github.com/nomadnest/nomadnest/internal/config"
	"github.com/nomadnest/nomadnest/internal/database"
	"github.com/nomadnest/nomadnest/internal/email"
	"github.com/nomadnest/nomadnest/internal/geocode"
	httpServer "github.com/nomadnest/nomadnest/internal/http"
	"github.com/nomadnest/nomadnest/internal/itinerary"
	"github.com/nomadnest/nomadnest/internal/listing"
	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/ratelimit"
	"github.com/nomadnest/nomadnest/internal/session"
	"github.com/nomadnest/nomadnest/internal/storage"
	"github.com/nomadnest/nomadnest/internal/user"
	"github.com/nomadnest/nomadnest/internal/web"
	"github.com/nomadnest/nomadnest/templates"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := database.Open(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	if err := database.CreateSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Redis is optional: sessions fall back to memory and the forgot
	// password limiter fails open.
	redisClient, err := initRedis(ctx, cfg.Redis)
	var sessionStore session.Store
	if err != nil {
		logger.Warn("redis unavailable, using in-memory sessions", "error", err)
		sessionStore = session.NewMemoryStore()
	} else {
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
		sessionStore = session.NewRedisStore(redisClient)
	}

	sessions, err := session.NewManager(sessionStore, cfg.Session.Secret, cfg.Session.TTL, !cfg.Server.IsDevelopment(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize sessions: %w", err)
	}

	views, err := web.NewRenderer(templates.ViewsFS)
	if err != nil {
		return err
	}
	static, err := fs.Sub(templates.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("failed to open static files: %w", err)
	}

	images, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}

	var model itinerary.Model
	if gemini, err := itinerary.NewGemini(ctx, cfg.Services.GeminiAPIKey); err != nil {
		logger.Warn("itinerary generation disabled", "error", err)
	} else {
		model = gemini
	}

	if cfg.Services.MapToken == "" {
		logger.Warn("MAP_TOKEN not set, new listings cannot be geocoded")
	}

	// Initialize repositories
	userRepo := user.NewRepository(db)
	listingRepo := listing.NewRepository(db)

	// Initialize services
	rateLimiter := ratelimit.NewLimiter(redisClient)
	formLimiter := ratelimit.NewIPBuckets(1, 5)
	go formLimiter.SweepEvery(ctx, time.Minute)

	authService := auth.NewService(userRepo, email.NewSender(cfg.Email, logger), auth.NewHasher(), logger)
	listingService := listing.NewService(listingRepo, geocode.NewClient(cfg.Services.MapToken), images)

	// Initialize HTTP handlers
	router := httpServer.NewRouter(cfg, httpServer.Deps{
		Sessions:       sessions,
		Views:          views,
		AuthMiddleware: auth.NewMiddleware(userRepo),
		Auth:           auth.NewHandler(authService, sessions, views, rateLimiter),
		Listings:       listing.NewHandler(listingService, listing.NewSearchEngine(listingRepo), views, cfg.Services.MapToken),
		Itinerary:      itinerary.NewHandler(itinerary.NewPlanner(model), views),
		FormLimiter:    formLimiter,
		Static:         static,
		DB:             db,
	}, logger)

	// Initialize HTTP server
	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("received shutdown signal")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis connects to Redis and verifies the connection
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
