package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retell-pos-bridge/internal/audit"
	"retell-pos-bridge/internal/auth"
	"retell-pos-bridge/internal/booking"
	"retell-pos-bridge/internal/config"
	"retell-pos-bridge/internal/functions"
	"retell-pos-bridge/internal/pos"
	"retell-pos-bridge/internal/retell"
	"retell-pos-bridge/pkg/logger"
	"retell-pos-bridge/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional; real env wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		if cfg.Retell.APIKey == "" {
			log.Error("RETELL_API_KEY is empty; webhook calls will be rejected as misconfigured")
		}
	}

	auditRepo, closeAudit, err := openAuditRepo(rootCtx, cfg, log)
	if err != nil {
		log.Error("audit store init failed", "err", err)
		os.Exit(1)
	}
	defer closeAudit()
	auditSvc := audit.NewService(auditRepo)

	var limiter booking.Limiter
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		if cfg.POS.MaxInflight > 0 {
			limiter = utils.ConcurrencyCap{Client: rdb, Key: "pos:inflight", Limit: cfg.POS.MaxInflight, TTL: 2 * time.Minute}
		}
	}

	normalizer := booking.NewNormalizer(
		cfg.POS.GroupID,
		cfg.Booking.DefaultDurationMin,
		booking.Pools{
			Customers: cfg.Booking.CustomerIDs,
			Staff:     cfg.Booking.StaffIDs,
			Services:  cfg.Booking.ServiceIDs,
		},
		cfg.Location(),
		booking.NewRandomPicker(nil),
	)
	posClient := pos.NewClient(cfg.POS.BaseURL, cfg.POS.APIKey, cfg.POS.BearerToken)
	bookingSvc := booking.NewService(normalizer, posClient, limiter)

	registry := functions.NewRegistry().
		Register("create_booking", functions.HandlerFunc(bookingSvc.CreateBooking)).
		Register("update_appt_detail", functions.HandlerFunc(booking.UpdateDetail))
	dispatcher := functions.NewDispatcher(registry, auditSvc)

	guard := retell.Guard{
		Enforce: cfg.IsProduction(),
		Secret:  cfg.Retell.APIKey,
	}

	var authManager *auth.Manager
	if cfg.OperatorAPIEnabled() {
		authManager, err = auth.NewManager(cfg.Auth)
		if err != nil {
			log.Error("auth init failed", "err", err)
			os.Exit(1)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		cfg:        cfg,
		guard:      guard,
		dispatcher: dispatcher,
		registry:   registry,
		audit:      auditSvc,
		auth:       authManager,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "functions", registry.Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// openAuditRepo picks Postgres when DB_HOST is set, memory otherwise.
func openAuditRepo(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Repository, func(), error) {
	if !cfg.AuditDBEnabled() {
		log.Info("audit store: memory")
		return audit.NewMemoryRepo(), func() {}, nil
	}

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return nil, nil, err
	}
	repo := audit.NewPostgresRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Info("audit store: postgres")
	return repo, func() { _ = db.Close() }, nil
}
