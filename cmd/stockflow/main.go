package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/stockflow/internal/api"
	"github.com/Spok95/stockflow/internal/config"
	"github.com/Spok95/stockflow/internal/domain/bom"
	"github.com/Spok95/stockflow/internal/domain/materials"
	"github.com/Spok95/stockflow/internal/domain/production"
	"github.com/Spok95/stockflow/internal/infra/db"
	httpx "github.com/Spok95/stockflow/internal/infra/http"
	"github.com/Spok95/stockflow/internal/infra/logger"
	"github.com/Spok95/stockflow/internal/infra/notify"
	"github.com/Spok95/stockflow/migrations"
)

type stores struct {
	materials materials.Store
	boms      bom.Store
	ledger    production.Ledger
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, func(), error) {
	if cfg.Storage.Driver == config.DriverMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		return stores{
			materials: materials.NewMemoryStore(),
			boms:      bom.NewMemoryStore(),
			ledger:    production.NewMemoryLedger(),
		}, func() {}, nil
	}

	if err := migrations.Up(cfg.Postgres.DSN); err != nil {
		return stores{}, nil, err
	}
	log.Info("migrations applied")

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		return stores{}, nil, err
	}
	log.Info("db connected")
	return postgresStores(pool), pool.Close, nil
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		materials: materials.NewRepo(pool),
		boms:      bom.NewRepo(pool),
		ledger:    production.NewRepo(pool),
	}
}

func main() {
	path := flag.String("config", "config/example.yaml", "path to config file")
	flag.Parse()
	if env := os.Getenv("APP_CONFIG"); env != "" {
		*path = env
	}

	cfg, err := config.Load(*path)
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.App.Env)
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("storage init failed", "driver", cfg.Storage.Driver, "err", err)
		return
	}
	defer closeStores()

	threshold, _ := cfg.LowStockThreshold()
	opts := production.Options{
		LowStockThreshold: threshold,
		CommitTimeout:     cfg.Production.CommitTimeout,
	}
	if cfg.Telegram.Token != "" && cfg.Telegram.AdminChatID != 0 {
		n, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
		if err != nil {
			log.Error("telegram notifier disabled", "err", err)
		} else {
			opts.Notifier = n
			log.Info("telegram notifier enabled", "chat", cfg.Telegram.AdminChatID)
		}
	}

	registry := bom.NewRegistry(st.boms, st.materials, log)
	engine := production.NewEngine(st.materials, registry, st.ledger, log, opts)

	router := httpx.NewRouter(cfg.Metrics.Enabled)
	api.New(st.materials, registry, engine, st.ledger, log).Register(router)

	srv := httpx.New(cfg.HTTP.Addr, router)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr, "storage", cfg.Storage.Driver)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
