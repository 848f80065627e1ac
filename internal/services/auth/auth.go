// Package services содержит бизнес-логику аутентификации: вход, регистрацию
// (напрямую или через очередь), проверку токенов и статус отложенной регистрации.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/taskflow/internal/cache"
	"github.com/magabrotheeeer/taskflow/internal/lib/jwt"
	"github.com/magabrotheeeer/taskflow/internal/lib/sl"
	"github.com/magabrotheeeer/taskflow/internal/models"
	"github.com/magabrotheeeer/taskflow/internal/storage/repository"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// GetUserByUsername возвращает пользователя или repository.ErrUserNotFound.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	// CreateUser возвращает repository.ErrUserExists при нарушении уникальности.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
}

// PasswordHasher хэширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// RegistrationQueue принимает заявки на отложенную регистрацию.
type RegistrationQueue interface {
	IsAvailable() bool
	Enqueue(ctx context.Context, msg models.RegistrationMessage) error
}

// StatusStore хранит статусы заявок, поставленных в очередь.
type StatusStore interface {
	SetStatus(ctx context.Context, requestID string, status models.RegistrationStatus) error
	GetStatus(ctx context.Context, requestID string) (*cache.RegistrationStatusRecord, error)
	DeleteStatus(ctx context.Context, requestID string) error
}

// maxPasswordBytes - предел bcrypt, длина считается в байтах, а не в символах.
const maxPasswordBytes = 72

// RegistrationMode определяет, как обрабатывается регистрация.
type RegistrationMode string

const (
	ModeDirect RegistrationMode = "direct"
	ModeQueued RegistrationMode = "queued"
)

// Options настраивают AuthService.
type Options struct {
	Mode RegistrationMode
	// HashBeforeEnqueue - в очередь уходит хэш пароля вместо открытого текста.
	HashBeforeEnqueue bool
	Now               func() time.Time
	NewRequestID      func() string
}

// LoginResult - результат успешного входа.
type LoginResult struct {
	Token string             `json:"token"`
	User  *models.PublicUser `json:"user"`
}

// RegisterResult - результат регистрации. При ModeDirect заполнен User,
// при ModeQueued - RequestID.
type RegisterResult struct {
	Mode      RegistrationMode
	User      *models.PublicUser
	RequestID string
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	log      *slog.Logger
	users    UserRepository
	hasher   PasswordHasher
	jwtMaker jwt.Maker
	queue    RegistrationQueue
	statuses StatusStore
	opts     Options
}

// NewAuthService создает новый экземпляр AuthService.
// queue и statuses могут быть nil: тогда очередь считается недоступной,
// а статусы заявок не сохраняются.
func NewAuthService(
	log *slog.Logger,
	users UserRepository,
	hasher PasswordHasher,
	jwtMaker jwt.Maker,
	queue RegistrationQueue,
	statuses StatusStore,
	opts Options,
) *AuthService {
	if opts.Mode == "" {
		opts.Mode = ModeDirect
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRequestID == nil {
		opts.NewRequestID = uuid.NewString
	}
	return &AuthService{
		log:      log,
		users:    users,
		hasher:   hasher,
		jwtMaker: jwtMaker,
		queue:    queue,
		statuses: statuses,
		opts:     opts,
	}
}

// Mode возвращает текущий режим регистрации.
func (s *AuthService) Mode() RegistrationMode {
	return s.opts.Mode
}

// QueueAvailable сообщает, доступна ли очередь регистрации.
func (s *AuthService) QueueAvailable() bool {
	return s.queue != nil && s.queue.IsAvailable()
}

// Login проверяет пароль пользователя и выпускает токен.
// Неизвестный пользователь и неверный пароль неразличимы для вызывающего.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	const op = "services.AuthService.Login"
	if username == "" || password == "" {
		return nil, fmt.Errorf("%s: %w: username and password are required", op, ErrValidation)
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := s.jwtMaker.GenerateToken(user.Username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &LoginResult{
		Token: token,
		User:  user.Public(),
	}, nil
}

// Register регистрирует пользователя напрямую или ставит заявку в очередь,
// в зависимости от режима.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*RegisterResult, error) {
	const op = "services.AuthService.Register"
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%s: %w: username, email and password are required", op, ErrValidation)
	}
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%s: %w", op, ErrPasswordTooLong)
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
	}

	if s.opts.Mode == ModeQueued {
		return s.enqueue(ctx, username, email, password)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.users.CreateUser(ctx, username, email, hash)
	if errors.Is(err, repository.ErrUserExists) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &RegisterResult{
		Mode: ModeDirect,
		User: user.Public(),
	}, nil
}

func (s *AuthService) enqueue(ctx context.Context, username, email, password string) (*RegisterResult, error) {
	const op = "services.AuthService.enqueue"
	if !s.QueueAvailable() {
		return nil, fmt.Errorf("%s: %w", op, ErrQueueUnavailable)
	}

	msg := models.RegistrationMessage{
		Username:    username,
		Email:       email,
		RequestedAt: s.opts.Now().UTC(),
		RequestID:   s.opts.NewRequestID(),
	}
	if s.opts.HashBeforeEnqueue {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		msg.PasswordHash = hash
	} else {
		msg.Password = password
	}

	// pending пишется до публикации: воркер может успеть раньше, чем вернется Enqueue.
	s.recordPending(ctx, op, msg.RequestID)

	if err := s.queue.Enqueue(ctx, msg); err != nil {
		s.forgetPending(ctx, op, msg.RequestID)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrEnqueueFailed, err)
	}

	return &RegisterResult{
		Mode:      ModeQueued,
		RequestID: msg.RequestID,
	}, nil
}

func (s *AuthService) recordPending(ctx context.Context, op, requestID string) {
	if s.statuses == nil {
		return
	}
	if err := s.statuses.SetStatus(ctx, requestID, models.RegistrationPending); err != nil {
		// Статус нужен только для опроса клиентом, заявка все равно уходит в очередь.
		s.log.Warn("failed to record pending registration status",
			sl.Op(op),
			slog.String("request_id", requestID),
			sl.Err(err),
		)
	}
}

// forgetPending убирает статус заявки, которая не попала в очередь:
// клиент получил ошибку и requestId не знает.
func (s *AuthService) forgetPending(ctx context.Context, op, requestID string) {
	if s.statuses == nil {
		return
	}
	if err := s.statuses.DeleteStatus(ctx, requestID); err != nil {
		s.log.Warn("failed to delete registration status",
			sl.Op(op),
			slog.String("request_id", requestID),
			sl.Err(err),
		)
	}
}

// ValidateToken проверяет токен и возвращает его владельца.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*jwt.Principal, error) {
	const op = "services.AuthService.ValidateToken"
	principal, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	return principal, nil
}

// CurrentUser возвращает публичные данные владельца токена.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*models.PublicUser, error) {
	const op = "services.AuthService.CurrentUser"
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user.Public(), nil
}

// RegistrationStatus возвращает статус заявки на регистрацию.
func (s *AuthService) RegistrationStatus(ctx context.Context, requestID string) (*cache.RegistrationStatusRecord, error) {
	const op = "services.AuthService.RegistrationStatus"
	if s.statuses == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrStatusUnavailable)
	}
	rec, err := s.statuses.GetStatus(ctx, requestID)
	if errors.Is(err, cache.ErrStatusNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrStatusNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}
