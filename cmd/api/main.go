package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/vendorportal/api/routes"
	"github.com/angelmondragon/vendorportal/internal/auth"
	"github.com/angelmondragon/vendorportal/internal/checkout"
	"github.com/angelmondragon/vendorportal/internal/inventory"
	"github.com/angelmondragon/vendorportal/internal/session"
	"github.com/angelmondragon/vendorportal/internal/uploads"
	"github.com/angelmondragon/vendorportal/pkg/cloudinary"
	"github.com/angelmondragon/vendorportal/pkg/config"
	"github.com/angelmondragon/vendorportal/pkg/db"
	"github.com/angelmondragon/vendorportal/pkg/logger"
	"github.com/angelmondragon/vendorportal/pkg/metrics"
	"github.com/angelmondragon/vendorportal/pkg/migrate"
	"github.com/angelmondragon/vendorportal/pkg/paystack"
	"github.com/angelmondragon/vendorportal/pkg/redis"
	"github.com/angelmondragon/vendorportal/pkg/upstream"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	registry := metrics.NewRegistry()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, redisClient.Close()) }()
	} else {
		logg.Warn(ctx, "redis not configured; running without shared state")
	}

	backend, err := upstream.NewClient(
		cfg.Upstream.BaseURL,
		upstream.WithTimeout(cfg.Upstream.Timeout),
		upstream.WithMaxBodyBytes(cfg.Upstream.MaxBodyBytes),
		upstream.WithMetrics(registry.Upstream),
	)
	if err != nil {
		return err
	}

	authOpts := []auth.Option{auth.WithSigningKey(cfg.Session.SigningKey)}
	if redisClient != nil {
		authOpts = append(authOpts, auth.WithSessionCache(redisClient, cfg.Session.CacheTTL))
	}
	if cfg.Session.SigningKey == "" {
		logg.Warn(ctx, "no access token secret configured; vendor sessions are confirmed with the backend API")
	}
	authService, err := auth.NewService(backend, authOpts...)
	if err != nil {
		return err
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(dbClient.DB()), dbClient, cfg.Reservations, registry.Inventory)
	if err != nil {
		return err
	}

	var paystackClient *paystack.Client
	var checkoutService checkout.Service
	if cfg.Paystack.Direct() {
		paystackClient, err = paystack.NewClient(
			cfg.Paystack.SecretKey,
			paystack.WithBaseURL(cfg.Paystack.BaseURL),
			paystack.WithMetrics(registry.Upstream),
		)
		if err != nil {
			return err
		}
		var store checkout.SessionStore = checkout.NewMemoryStore()
		if redisClient != nil {
			store = checkout.NewRedisStore(redisClient)
		}
		checkoutService, err = checkout.NewService(checkout.ServiceParams{
			Inventory:      inventoryService,
			Gateway:        paystackClient,
			Store:          store,
			Logger:         logg,
			Currency:       cfg.Paystack.Currency,
			ReservationTTL: cfg.Reservations.TTL,
		})
		if err != nil {
			return err
		}
	} else {
		logg.Info(ctx, "paystack secret key not set; payment routes proxy to the backend api")
	}

	var uploadService uploads.Service
	if cloudinaryClient, cerr := cloudinary.NewClient(cfg.Cloudinary, cloudinary.WithMetrics(registry.Upstream)); cerr == nil {
		uploadService, err = uploads.NewService(cloudinaryClient, cfg.Cloudinary.Folder, cfg.Cloudinary.MaxUploadBytes(), logg)
		if err != nil {
			return err
		}
	} else {
		logg.Warn(logg.WithField(ctx, "reason", cerr.Error()), "image uploads disabled")
	}

	var lock inventory.Lock = inventory.LocalLock{}
	if redisClient != nil {
		lock, err = inventory.NewRedisLock(redisClient, redisClient.LockKey(inventory.SweeperJobName), 2*cfg.Reservations.SweepInterval)
		if err != nil {
			return err
		}
	}
	sweeper, err := inventory.NewSweeper(inventory.SweeperParams{
		Logger:   logg,
		Service:  inventoryService,
		Lock:     lock,
		Metrics:  registry.Jobs,
		Interval: cfg.Reservations.SweepInterval,
	})
	if err != nil {
		return err
	}
	sweepDone := make(chan error, 1)
	go func() { sweepDone <- sweeper.Run(ctx) }()

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Params{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Backend:   backend,
			Paystack:  paystackClient,
			Cookies:   session.NewCookies(cfg.Cookies, cfg.App.IsProd()),
			Auth:      authService,
			Inventory: inventoryService,
			Checkout:  checkoutService,
			Uploads:   uploadService,
			Metrics:   registry.Handler(),
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr}), "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down api server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancelShutdown()
	err = server.Shutdown(shutdownCtx)
	cancel()
	if sweepErr := <-sweepDone; sweepErr != nil && !errors.Is(sweepErr, context.Canceled) {
		err = multierr.Append(err, sweepErr)
	}
	return err
}
