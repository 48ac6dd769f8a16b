package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/meal-max-arena/internal/battle"
	appcfg "github.com/kapu/meal-max-arena/internal/config"
	"github.com/kapu/meal-max-arena/internal/events"
	"github.com/kapu/meal-max-arena/internal/kitchen"
	"github.com/kapu/meal-max-arena/internal/leaderboard"
	"github.com/kapu/meal-max-arena/internal/msgcat"
	"github.com/kapu/meal-max-arena/internal/obslog"
	"github.com/kapu/meal-max-arena/internal/randomorg"
	"github.com/kapu/meal-max-arena/internal/server"
)

func main() {
	_ = godotenv.Load()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	repo, err := kitchen.NewRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("repository init error: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url error: %v", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
	}

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}
	hub := events.NewHub(cat)

	rngOpts := []randomorg.Option{randomorg.WithTimeout(cfg.RandomOrgTimeout)}
	if cfg.RandomOrgURL != "" {
		rngOpts = append(rngOpts, randomorg.WithURL(cfg.RandomOrgURL))
	}
	rng := randomorg.NewClient(rngOpts...)

	arena := battle.NewArena(repo, rng)
	arena.AttachEvents(hub)

	board := leaderboard.NewCache(rdb, repo, cfg.LeaderboardTTL)

	api := &fasthttp.Server{
		Handler:      server.New(repo, arena, board).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		obslog.L().Info("api_listen", zap.String("addr", cfg.ListenAddr))
		if err := api.ListenAndServe(cfg.ListenAddr); err != nil {
			obslog.L().Fatal("api server failed", zap.Error(err))
		}
	}()

	eventsSrv := &http.Server{Addr: cfg.EventsAddr, Handler: events.NewWSHandler(hub)}
	go func() {
		obslog.L().Info("events_listen", zap.String("addr", cfg.EventsAddr))
		if err := eventsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obslog.L().Error("events server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	obslog.L().Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = eventsSrv.Shutdown(sctx)
	_ = api.ShutdownWithContext(sctx)
	if rdb != nil {
		_ = rdb.Close()
	}
	if c, ok := repo.(io.Closer); ok {
		_ = c.Close()
	}
}
