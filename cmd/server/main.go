package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listening-review/internal/config"
	"listening-review/internal/database"
	"listening-review/internal/datasource"
	"listening-review/internal/format"
	"listening-review/internal/handlers"
	"listening-review/internal/middleware"
	"listening-review/internal/render"
	"listening-review/internal/review"
	"listening-review/internal/router"
	"listening-review/internal/websocket"
)

func main() {
	log.Println("🚀 Starting Listening Review...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Screen Store ────
	var store review.Store
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		var err error
		redisClients, err = database.NewRedisClients(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		store = review.NewRedisStore(redisClients.Screens, cfg.ScreenTTL)
		log.Println("✓ Redis connected (screen store + pub/sub)")
	} else {
		store = review.NewMemoryStore(cfg.ScreenTTL)
		log.Println("✓ In-memory screen store (REDIS_URL not set)")
	}

	// ──── Step 3: Initialize Backend Client ────
	client := datasource.NewClient(cfg.BackendURL, cfg.FetchTimeout)
	log.Printf("✓ Backend client ready (%s, timeout %s)", cfg.BackendURL, cfg.FetchTimeout)

	// ──── Step 4: Parse Templates ────
	renderer, err := render.New(time.Local)
	if err != nil {
		log.Fatalf("✗ Template parsing failed: %v", err)
	}
	log.Println("✓ Templates parsed")

	// ──── Initialize Services ────
	screenAuth := middleware.NewJWTAuth(cfg.ScreenTokenSecret, cfg.ScreenTTL)
	controller := review.NewController(client, store, cfg.TrendDays, time.Local)
	startLimiter := middleware.NewRateLimiter(cfg.StartRateLimit, time.Minute)
	defer startLimiter.Stop()

	// ──── Initialize Handlers ────
	reviewHandler := handlers.NewReviewHandler(controller, renderer, screenAuth, format.ParseLocale(cfg.DefaultLocale))

	// ──── Step 5: Start WebSocket Hub ────
	var wsHub *websocket.Hub
	if redisClients != nil {
		wsHub = websocket.NewHub(redisClients.PubSub, screenAuth, controller, renderer)
	} else {
		wsHub = websocket.NewHub(nil, screenAuth, controller, renderer)
	}
	log.Println("✓ WebSocket hub started")

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		screenAuth,
		reviewHandler,
		wsHub,
		startLimiter,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.FetchTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		wsHub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Listening Review ready on http://localhost:%s", cfg.Port)
	log.Printf("  Page: http://localhost:%s/review", cfg.Port)
	log.Printf("  WS:   ws://localhost:%s/review/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
