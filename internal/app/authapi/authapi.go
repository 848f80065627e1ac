package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/taskflow/internal/cache"
	"github.com/magabrotheeeer/taskflow/internal/config"
	"github.com/magabrotheeeer/taskflow/internal/http/handlers/health"
	"github.com/magabrotheeeer/taskflow/internal/lib/jwt"
	"github.com/magabrotheeeer/taskflow/internal/lib/password"
	"github.com/magabrotheeeer/taskflow/internal/lib/sl"
	"github.com/magabrotheeeer/taskflow/internal/migrations"
	"github.com/magabrotheeeer/taskflow/internal/rabbitmq"
	services "github.com/magabrotheeeer/taskflow/internal/services/auth"
	"github.com/magabrotheeeer/taskflow/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	queue  *rabbitmq.RegistrationQueue

	// dial пустой, если адрес брокера не задан.
	dial       rabbitmq.Dialer
	retryDelay time.Duration
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}
	if err = repository.CheckDatabaseReady(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	app := &App{
		logger: logger,
		db:     db,
	}

	healthDeps := health.Dependencies{
		DB:            db,
		Users:         db,
		QueueRequired: cfg.QueuedRegistration(),
	}

	var statuses services.StatusStore
	if cfg.RedisAddress != "" {
		cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Warn("redis unavailable, registration status is disabled", sl.Err(err))
		} else {
			app.cache = cacheRedis
			statuses = cache.NewRegistrationStatusStore(cacheRedis)
			healthDeps.Redis = cacheRedis
		}
	}

	var queue services.RegistrationQueue
	if cfg.QueuedRegistration() {
		queue = app.connectQueue(cfg)
	}

	authService := services.NewAuthService(
		logger,
		db,
		password.NewHasher(cfg.BcryptCost),
		jwt.NewJWTMaker(jwt.Options{
			SecretKey: cfg.JWTSecretKey,
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			TTL:       cfg.TokenTTL,
		}),
		queue,
		statuses,
		services.Options{
			Mode:              services.RegistrationMode(cfg.Mode),
			HashBeforeEnqueue: cfg.HashBeforeEnqueue,
		},
	)
	if cfg.QueuedRegistration() {
		healthDeps.Queue = authService
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, authService, healthDeps)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return app, nil
}

// connectQueue подключается к брокеру. Ошибка не фатальна: очередь остается
// недоступной, регистрация отвечает 503, а Run продолжает переподключаться.
func (a *App) connectQueue(cfg *config.Config) *rabbitmq.RegistrationQueue {
	a.retryDelay = cfg.RabbitMQRetryDelay
	if cfg.RabbitMQURL == "" {
		a.logger.Warn("queued registration enabled but rabbitmq url is empty")
		a.queue = rabbitmq.NewRegistrationQueue(nil, nil)
		return a.queue
	}
	a.dial = rabbitmq.RegistrationDialer(cfg.RabbitMQURL)

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		a.logger.Error("rabbitmq unavailable, queued registration is disabled until reconnect", sl.Err(err))
		a.queue = rabbitmq.NewRegistrationQueue(nil, nil)
		return a.queue
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.RegistrationExchange, rabbitmq.GetRegistrationQueues())
	if err != nil {
		a.logger.Error("failed to setup rabbitmq channel", sl.Err(err))
		conn.Close()
		a.queue = rabbitmq.NewRegistrationQueue(nil, nil)
		return a.queue
	}
	a.queue = rabbitmq.NewRegistrationQueue(conn, ch)
	return a.queue
}

func (a *App) Run(ctx context.Context) error {
	reconnectCtx, stopReconnect := context.WithCancel(ctx)
	defer stopReconnect()
	if a.queue != nil && a.dial != nil {
		go a.queue.Reconnect(reconnectCtx, a.dial, a.retryDelay, a.logger)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		stopReconnect()
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	a.queue.Close(a.logger)
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
