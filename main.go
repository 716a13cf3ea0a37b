// Package main our entry point.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/humanchat/chatroom/internal/auth"
	"github.com/humanchat/chatroom/internal/chatlog"
	"github.com/humanchat/chatroom/internal/config"
	"github.com/humanchat/chatroom/internal/handler"
	"github.com/humanchat/chatroom/internal/moderation"
	"github.com/humanchat/chatroom/internal/ratelimit"
	"github.com/humanchat/chatroom/internal/room"
	"github.com/humanchat/chatroom/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("failed to load .env file: %+v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Init store. A missing or unreachable store disables the limiter and
	// leaves the ban/violation ledgers failing open; the room keeps
	// accepting messages but history will not survive restarts.
	log.Println("Starting application...")
	log.Println("Initializing store connection...")

	var commander store.Commander
	var redisStore *store.Redis
	if cfg.Redis.Address == "" {
		log.Println("REDIS_ADDRESS is not set; running without a store")
	} else {
		redisStore, err = store.NewRedis(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("could not connect to the store: %v", err)
		} else {
			commander = redisStore
		}
	}

	chatLog := chatlog.New(commander, cfg.Redis.Prefix)
	limiter := ratelimit.NewFixed(commander, cfg.RateLimit.Max, cfg.RateLimit.Window())
	judge := moderation.NewJudge(cfg.Moderation.APIKey, cfg.Moderation.Model, cfg.Moderation.EndpointURL, cfg.FailOpen.Classifier)
	bans := moderation.NewBans(commander, cfg.Moderation.TempBanDuration)
	violations := moderation.NewViolations(commander, cfg.Moderation.MaxWarnings, cfg.Moderation.MaxTempBans)

	// hub.Run is our central hub that is always listening for client
	// related events.
	hub := room.NewHub(chatLog, limiter, judge, bans, violations, room.Options{
		MaxMessageLength:  cfg.Chat.MaxMessageLength,
		FailOpenBanCheck:  cfg.FailOpen.BanCheck,
		FailOpenRateLimit: cfg.FailOpen.RateLimit,
	})
	go hub.Run(ctx)

	ipLimiter := ratelimit.NewIPLimiter(
		cfg.RateLimit.UpgradeBurst,
		cfg.RateLimit.UpgradeWindow,
		ratelimit.CleanupOpts{TTL: 10 * time.Minute, Interval: time.Minute},
	)

	r := chi.NewRouter()
	r.Get("/messages", handler.ServeMessages(chatLog, cfg.Chat.HistoryLimit))
	r.Method(http.MethodGet, "/ws", ipLimiter.Middleware(
		auth.Admission(handler.ServeWs(hub), cfg.Auth.JWTSecret, cfg.Auth.ServiceSecret),
	))

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		log.Printf("Server starting at 0.0.0.0:%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutdown signal received; shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println(err)
	}

	ipLimiter.Cancel()

	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			log.Printf("couldn't close store connection: %+v", err)
		}
	}

	log.Println("Server stopped")
}
