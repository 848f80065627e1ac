// Package registrationworker собирает воркер, который забирает заявки на
// регистрацию из очереди и создает пользователей.
package registrationworker

import (
	"context"
	"log/slog"
	"net"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/taskflow/internal/cache"
	"github.com/magabrotheeeer/taskflow/internal/config"
	"github.com/magabrotheeeer/taskflow/internal/grpc/server"
	"github.com/magabrotheeeer/taskflow/internal/lib/password"
	"github.com/magabrotheeeer/taskflow/internal/lib/sl"
	"github.com/magabrotheeeer/taskflow/internal/migrations"
	"github.com/magabrotheeeer/taskflow/internal/rabbitmq"
	"github.com/magabrotheeeer/taskflow/internal/services/registration"
	"github.com/magabrotheeeer/taskflow/internal/storage/repository"
)

type App struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	db        *repository.Storage
	cache     *cache.Cache
	processor *registration.Processor
	health    *server.HealthServer
	logger    *slog.Logger
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

	app := &App{
		db:     db,
		logger: logger,
	}

	var statuses registration.StatusStore
	if cfg.RedisAddress != "" {
		cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			logger.Warn("redis unavailable, registration status is disabled", sl.Err(err))
		} else {
			app.cache = cacheRedis
			statuses = cache.NewRegistrationStatusStore(cacheRedis)
		}
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		app.close()
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.RegistrationExchange, rabbitmq.GetRegistrationQueues())
	if err != nil {
		conn.Close()
		app.close()
		return nil, err
	}
	app.conn = conn
	app.ch = ch

	lis, err := net.Listen("tcp", cfg.GRPCHealthAddress)
	if err != nil {
		app.close()
		return nil, err
	}
	app.health = server.NewHealthServer(lis, logger)

	app.processor = registration.NewProcessor(logger, db, password.NewHasher(cfg.BcryptCost), statuses)

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.health.Serve()
	}()

	consumeCtx, stopConsuming := context.WithCancel(ctx)
	defer stopConsuming()

	// Начатая обработка доводится до конца даже после сигнала остановки.
	handlerCtx := context.WithoutCancel(ctx)
	done, err := rabbitmq.ConsumerMessage(consumeCtx, a.ch, rabbitmq.RegistrationQueueName, func(body []byte) error {
		return a.processor.Handle(handlerCtx, body)
	})
	if err != nil {
		a.logger.Error("failed to start registration consumer", sl.Err(err))
		a.health.Stop()
		a.closeChannel()
		a.close()
		return err
	}
	a.health.SetServing(true)
	a.logger.Info("registration worker started", slog.String("queue", rabbitmq.RegistrationQueueName))

	connClosed := a.conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case <-ctx.Done():
		a.logger.Info("registration worker shutting down gracefully")
	case amqpErr := <-connClosed:
		a.logger.Error("rabbitmq connection lost", slog.Any("err", amqpErr))
		if amqpErr != nil {
			err = amqpErr
		}
	case err = <-errCh:
		a.logger.Error("gRPC health server stopped", sl.Err(err))
	}

	a.health.SetServing(false)
	stopConsuming()
	<-done
	a.closeChannel()
	a.health.Stop()
	a.close()

	return err
}

func (a *App) closeChannel() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
}

func (a *App) close() {
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
