package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/auth"
	"dishdash-be/internal/catalog"
	"dishdash-be/internal/config"
	"dishdash-be/internal/httpapi"
	"dishdash-be/internal/logger"
	"dishdash-be/internal/metrics"
	"dishdash-be/internal/middleware"
	"dishdash-be/internal/order"
	"dishdash-be/internal/storage"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	openStoreFunc = storage.Open
	// startServerFunc blocks until srv stops.
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStoreFunc(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           newServer(ctx, cfg, store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("engine", store.Engine()),
		)
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newServer builds the services on top of store and returns the HTTP handler.
func newServer(ctx context.Context, cfg *config.Config, store storage.Store) http.Handler {
	m := metrics.New()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	accounts := account.NewService(store, tokens)
	menu := catalog.NewService(store)
	orders := order.NewService(store, store, order.Options{
		DeliveryFee: cfg.DeliveryFee,
		Policy:      order.PolicyFor(cfg.OrderStatusPolicy),
		CheckPrices: cfg.OrderPriceCheck != config.PriceCheckOff,
		Metrics:     m,
	})

	return httpapi.NewRouter(httpapi.Deps{
		Accounts:       accounts,
		Catalog:        menu,
		Orders:         orders,
		Health:         store,
		Metrics:        m,
		Limiter:        middleware.NewRateLimiter(ctx, cfg.TrustedProxies...),
		CORSOrigin:     cfg.CORSOrigin,
		StorageTimeout: cfg.StorageTimeout,
	})
}
