package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/routecash/routecash/internal/app"
	"github.com/routecash/routecash/internal/billing"
	"github.com/routecash/routecash/internal/ledger"
	"github.com/routecash/routecash/internal/observability"
	"github.com/routecash/routecash/internal/orders"
	"github.com/routecash/routecash/internal/payments"
	"github.com/routecash/routecash/internal/platform/cache"
	"github.com/routecash/routecash/internal/platform/db"
	"github.com/routecash/routecash/internal/shared"
	"github.com/routecash/routecash/internal/shops"
	"github.com/routecash/routecash/internal/store"
	"github.com/routecash/routecash/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	docStore := store.New(store.NewPostgresRemote(pool), store.NewRedisLocal(redisClient), logger)

	validate := validator.New()
	metrics := observability.NewMetrics()
	approvals := shared.NewApprovalRecorder(pool, logger)
	idempotency := shared.NewIdempotencyStore(pool)

	usersService := users.NewService(users.NewRepository(docStore), logger)
	ledgerService := ledger.NewService(ledger.NewRepository(docStore), logger)
	ordersService := orders.NewService(orders.NewRepository(docStore), usersService, approvals, logger)
	billingService := billing.NewService(billing.NewRepository(docStore), ordersService, ledgerService, logger)
	paymentsService := payments.NewService(billingService, ledgerService, logger)
	shopsService := shops.NewService(shops.NewRepository(docStore), ledgerService, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		OrdersHandler:   orders.NewHandler(logger, ordersService, validate),
		BillingHandler:  billing.NewHandler(logger, billingService),
		PaymentsHandler: payments.NewHandler(logger, paymentsService, validate, idempotency),
		ShopsHandler:    shops.NewHandler(logger, shopsService, validate),
		UsersHandler:    users.NewHandler(logger, usersService, validate),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Inline reconcile loop keeps the local cache draining even when the
	// worker process is down.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncRetryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				synced, remaining, err := docStore.Reconcile(gctx)
				if err != nil {
					logger.Warn("reconcile pass", slog.Any("error", err))
					continue
				}
				if synced > 0 || remaining > 0 {
					logger.Info("reconcile pass",
						slog.Int("synced", synced),
						slog.Int("remaining", remaining))
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("runtime", slog.Any("error", err))
		os.Exit(1)
	}
}
