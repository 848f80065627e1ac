// Package registration обрабатывает заявки на регистрацию из очереди.
//
// Доставка как минимум однократная, поэтому обработка должна быть безопасна
// при повторе: перед вставкой заново проверяется существование пользователя,
// а нарушение уникальности при вставке трактуется как дубликат.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/taskflow/internal/lib/sl"
	"github.com/magabrotheeeer/taskflow/internal/metrics"
	"github.com/magabrotheeeer/taskflow/internal/models"
	"github.com/magabrotheeeer/taskflow/internal/rabbitmq"
	"github.com/magabrotheeeer/taskflow/internal/storage/repository"
)

// Result - исход обработки одного сообщения.
type Result int

const (
	// Processed - пользователь создан, сообщение подтверждается.
	Processed Result = iota
	// Duplicate - username или email уже заняты, сообщение отбрасывается без ошибки.
	Duplicate
	// Rejected - сообщение нельзя разобрать или выполнить, повтор не поможет, сообщение отбрасывается.
	Rejected
	// RetryableFailure - временная ошибка, сообщение нужно доставить повторно.
	RetryableFailure
)

func (r Result) String() string {
	switch r {
	case Processed:
		return "processed"
	case Duplicate:
		return "duplicate"
	case Rejected:
		return "rejected"
	case RetryableFailure:
		return "retryable_failure"
	default:
		return "unknown"
	}
}

// ErrRedeliver возвращается из Handle, когда сообщение нужно вернуть в очередь.
var ErrRedeliver = errors.New("registration processing failed, message will be redelivered")

// UserRepository - операции хранилища, нужные воркеру.
type UserRepository interface {
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
}

// PasswordHasher хэширует пароли из заявок, пришедших в открытом виде.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// StatusStore обновляет статус заявки для опроса клиентом.
type StatusStore interface {
	// ResolveStatus пишет итоговый статус, только пока заявка pending.
	ResolveStatus(ctx context.Context, requestID string, status models.RegistrationStatus) (bool, error)
}

// Processor обрабатывает сообщения user-registration-queue.
type Processor struct {
	log      *slog.Logger
	users    UserRepository
	hasher   PasswordHasher
	statuses StatusStore
}

// NewProcessor создаёт Processor. statuses может быть nil.
func NewProcessor(log *slog.Logger, users UserRepository, hasher PasswordHasher, statuses StatusStore) *Processor {
	return &Processor{
		log:      log,
		users:    users,
		hasher:   hasher,
		statuses: statuses,
	}
}

// Process разбирает тело сообщения и регистрирует пользователя.
func (p *Processor) Process(ctx context.Context, body []byte) Result {
	const op = "registration.Processor.Process"
	start := time.Now()
	log := p.log.With(sl.Op(op))

	msg, err := rabbitmq.DecodeRegistrationMessage(body)
	if err != nil {
		log.Error("dropping malformed registration message", sl.Err(err), slog.String("request_id", msg.RequestID))
		p.setStatus(ctx, log, msg.RequestID, models.RegistrationFailed)
		p.observe(Rejected, start)
		return Rejected
	}
	log = log.With(slog.Any("message", msg))

	res, err := p.register(ctx, msg)
	switch res {
	case Processed:
		log.Info("user registered")
		p.setStatus(ctx, log, msg.RequestID, models.RegistrationProcessed)
	case Duplicate:
		log.Warn("username or email already taken, dropping registration")
		p.setStatus(ctx, log, msg.RequestID, models.RegistrationDuplicate)
	case Rejected:
		log.Error("dropping registration that cannot succeed", sl.Err(err))
		p.setStatus(ctx, log, msg.RequestID, models.RegistrationFailed)
	case RetryableFailure:
		log.Error("registration failed, requesting redelivery", sl.Err(err))
	}
	p.observe(res, start)
	return res
}

func (p *Processor) register(ctx context.Context, msg models.RegistrationMessage) (Result, error) {
	exists, err := p.users.ExistsByUsernameOrEmail(ctx, msg.Username, msg.Email)
	if err != nil {
		return RetryableFailure, err
	}
	if exists {
		return Duplicate, nil
	}

	hash := msg.PasswordHash
	if hash == "" {
		hash, err = p.hasher.Hash(msg.Password)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return Rejected, err
		}
		if err != nil {
			return RetryableFailure, err
		}
	}

	_, err = p.users.CreateUser(ctx, msg.Username, msg.Email, hash)
	if errors.Is(err, repository.ErrUserExists) {
		return Duplicate, nil
	}
	if err != nil {
		return RetryableFailure, err
	}
	return Processed, nil
}

// Handle адаптирует Process к контракту потребителя очереди:
// ошибка возвращается только для RetryableFailure и приводит к повторной доставке.
func (p *Processor) Handle(ctx context.Context, body []byte) error {
	if res := p.Process(ctx, body); res == RetryableFailure {
		return fmt.Errorf("registration.Processor.Handle: %w", ErrRedeliver)
	}
	return nil
}

func (p *Processor) setStatus(ctx context.Context, log *slog.Logger, requestID string, status models.RegistrationStatus) {
	if p.statuses == nil || requestID == "" {
		return
	}
	written, err := p.statuses.ResolveStatus(ctx, requestID, status)
	if err != nil {
		log.Warn("failed to update registration status", sl.Err(err))
		return
	}
	if !written {
		log.Debug("registration status already resolved, keeping it", slog.String("status", string(status)))
	}
}

func (p *Processor) observe(res Result, start time.Time) {
	metrics.WorkerMessagesTotal.WithLabelValues(res.String()).Inc()
	metrics.WorkerProcessingDuration.WithLabelValues(res.String()).Observe(time.Since(start).Seconds())
}
