package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/sugils/Email-tracker-Backend/internal/api"
	"github.com/sugils/Email-tracker-Backend/internal/auth"
	"github.com/sugils/Email-tracker-Backend/internal/campaign"
	"github.com/sugils/Email-tracker-Backend/internal/config"
	"github.com/sugils/Email-tracker-Backend/internal/delivery"
	"github.com/sugils/Email-tracker-Backend/internal/feed"
	"github.com/sugils/Email-tracker-Backend/internal/reply"
	"github.com/sugils/Email-tracker-Backend/internal/stats"
	"github.com/sugils/Email-tracker-Backend/internal/tracking"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	log.Println("[Server] Connected to database")

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("[Server] Redis unavailable, stats cache disabled: %v", err)
			redisClient = nil
		} else {
			log.Println("[Server] Connected to Redis")
		}
		cancel()
	}

	authStore := auth.NewStore(db)
	authMgr := auth.NewManager(authStore, cfg.JWT)
	campaignStore := campaign.NewStore(db)
	trackingStore := tracking.NewStore(db)

	rewriter := delivery.NewRewriter(trackingStore)
	engine := delivery.NewEngine(campaignStore, trackingStore, authStore, rewriter,
		transportFactory(cfg), cfg.Server.BaseURL)

	statsSvc := stats.NewService(db, redisClient, cfg.Redis.StatsTTL())
	trackingHandler := tracking.NewHandler(trackingStore)

	handlers := api.NewHandlers(authMgr, campaignStore, trackingStore, statsSvc, engine, trackingHandler)
	handlers.CORS = cfg.Server.CORSOrigins
	server := api.NewServer(handlers)

	var reconciler *reply.Reconciler
	if cfg.IMAP.Enabled {
		dialer := func() (reply.Mailbox, error) { return reply.DialIMAP(cfg.IMAP) }
		rcfg := reply.DefaultReconcilerConfig()
		if cfg.IMAP.Interval() > 0 {
			rcfg.Interval = cfg.IMAP.Interval()
		}
		reconciler = reply.NewReconciler(dialer, campaignStore, trackingStore, rcfg)
		reconciler.Start()
	}

	var importer *feed.Importer
	if cfg.Feed.Enabled {
		owner, err := authStore.GetUserByEmail(context.Background(), cfg.Feed.UserEmail)
		if err != nil || owner == nil {
			log.Printf("[Server] feed import disabled: owner account %q not found", cfg.Feed.UserEmail)
		} else {
			importer = feed.NewImporter(campaignStore, feed.ImporterConfig{
				FeedURL:  cfg.Feed.URL,
				UserID:   owner.ID,
				Interval: cfg.Feed.Interval(),
			})
			importer.Start()
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	go func() {
		log.Printf("[Server] Listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] Shutting down...")
	if reconciler != nil {
		reconciler.Stop()
	}
	if importer != nil {
		importer.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[Server] shutdown: %v", err)
	}
	log.Println("[Server] Stopped")
}

// transportFactory selects the outbound mail transport. SES when enabled,
// otherwise a direct SMTP session per batch.
func transportFactory(cfg *config.Config) delivery.TransportFactory {
	if cfg.SES.Enabled {
		return func() (delivery.Transport, error) {
			return delivery.NewSESTransport(context.Background(), cfg.SES)
		}
	}
	return func() (delivery.Transport, error) {
		return delivery.NewSMTPTransport(cfg.SMTP), nil
	}
}
