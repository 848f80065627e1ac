package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/taskflow/internal/lib/sl"
	"github.com/magabrotheeeer/taskflow/internal/models"
)

// ErrQueueNotAvailable очередь не настроена или соединение с брокером потеряно.
var ErrQueueNotAvailable = errors.New("registration queue is not available")

// Dialer открывает соединение с брокером и настроенный канал.
type Dialer func() (*amqp.Connection, *amqp.Channel, error)

// RegistrationDialer подключается к url одной попыткой и объявляет топологию регистрации.
func RegistrationDialer(url string) Dialer {
	return func() (*amqp.Connection, *amqp.Channel, error) {
		conn, err := Connect(url, 1, 0)
		if err != nil {
			return nil, nil, err
		}
		ch, err := SetupChannel(conn, RegistrationExchange, GetRegistrationQueues())
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return conn, ch, nil
	}
}

// RegistrationQueue публикует заявки на регистрацию в user-registration-queue.
// Нулевое значение (и nil) означает, что очередь не настроена.
type RegistrationQueue struct {
	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	lost       chan struct{}
	exchange   string
	routingKey string
	available  atomic.Bool
}

// NewRegistrationQueue оборачивает уже настроенные соединение и канал.
// Потеря соединения или канала переводит очередь в недоступное состояние,
// вернуть ее может Reconnect.
func NewRegistrationQueue(conn *amqp.Connection, ch *amqp.Channel) *RegistrationQueue {
	q := &RegistrationQueue{
		exchange:   RegistrationExchange,
		routingKey: RegistrationRoutingKey,
	}
	q.attach(conn, ch)
	return q
}

func (q *RegistrationQueue) attach(conn *amqp.Connection, ch *amqp.Channel) {
	q.mu.Lock()
	defer q.mu.Unlock()

	lost := make(chan struct{})
	q.conn = conn
	q.ch = ch
	q.lost = lost
	if conn == nil || ch == nil {
		q.available.Store(false)
		close(lost)
		return
	}

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	q.available.Store(true)
	go func() {
		select {
		case <-connClosed:
		case <-chClosed:
		}
		q.available.Store(false)
		close(lost)
	}()
}

func (q *RegistrationQueue) lostSignal() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lost
}

// IsAvailable сообщает, можно ли сейчас ставить заявки в очередь.
func (q *RegistrationQueue) IsAvailable() bool {
	if q == nil {
		return false
	}
	return q.available.Load()
}

// Reconnect следит за соединением и переподключается через dial с паузой delay,
// пока не отменен ctx. Блокирует вызывающего.
func (q *RegistrationQueue) Reconnect(ctx context.Context, dial Dialer, delay time.Duration, log *slog.Logger) {
	const op = "rabbitmq.RegistrationQueue.Reconnect"
	log = log.With(sl.Op(op))

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.lostSignal():
		}

		conn, ch, err := dial()
		if err != nil {
			log.Warn("registration queue is unavailable, retrying", sl.Err(err), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		q.closeCurrent(log)
		q.attach(conn, ch)
		log.Info("registration queue reconnected")
	}
}

func (q *RegistrationQueue) closeCurrent(log *slog.Logger) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.available.Store(false)
	if q.ch != nil {
		if err := q.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			log.Debug("failed to close channel", sl.Err(err))
		}
	}
	if q.conn != nil {
		if err := q.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			log.Debug("failed to close connection", sl.Err(err))
		}
	}
}

// Close закрывает текущие канал и соединение.
func (q *RegistrationQueue) Close(log *slog.Logger) {
	if q == nil {
		return
	}
	q.closeCurrent(log)
}

// Enqueue публикует заявку одной попыткой, без повторов.
func (q *RegistrationQueue) Enqueue(ctx context.Context, msg models.RegistrationMessage) error {
	const op = "rabbitmq.RegistrationQueue.Enqueue"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !q.IsAvailable() {
		return fmt.Errorf("%s: %w", op, ErrQueueNotAvailable)
	}

	body, err := EncodeRegistrationMessage(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch == nil || !q.available.Load() {
		return fmt.Errorf("%s: %w", op, ErrQueueNotAvailable)
	}
	err = publish(q.ch, q.exchange, q.routingKey, amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "base64",
		MessageId:       msg.RequestID,
		Timestamp:       time.Now().UTC(),
		DeliveryMode:    amqp.Persistent,
		Body:            body,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
