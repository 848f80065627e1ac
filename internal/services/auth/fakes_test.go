package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/taskflow/internal/cache"
	"github.com/magabrotheeeer/taskflow/internal/models"
	"github.com/magabrotheeeer/taskflow/internal/storage/repository"
)

// memoryUsers - хранилище пользователей в памяти с теми же ограничениями
// уникальности, что и таблица users.
type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	users  []models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{}
}

func (m *memoryUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memoryUsers) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryUsers) CreateUser(_ context.Context, username, email, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return nil, repository.ErrUserExists
		}
	}
	m.nextID++
	u := models.User{
		ID:           m.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users = append(m.users, u)
	return &u, nil
}

func (m *memoryUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepoMock) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	args := m.Called(ctx, username, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type QueueMock struct {
	mock.Mock
}

func (m *QueueMock) IsAvailable() bool {
	return m.Called().Bool(0)
}

func (m *QueueMock) Enqueue(ctx context.Context, msg models.RegistrationMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type StatusStoreMock struct {
	mock.Mock
}

func (m *StatusStoreMock) SetStatus(ctx context.Context, requestID string, status models.RegistrationStatus) error {
	return m.Called(ctx, requestID, status).Error(0)
}

func (m *StatusStoreMock) DeleteStatus(ctx context.Context, requestID string) error {
	return m.Called(ctx, requestID).Error(0)
}

func (m *StatusStoreMock) GetStatus(ctx context.Context, requestID string) (*cache.RegistrationStatusRecord, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.RegistrationStatusRecord), args.Error(1)
}
