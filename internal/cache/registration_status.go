package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/taskflow/internal/models"
)

const (
	registrationKeyPrefix = "registration:"
	// RegistrationStatusTTL время жизни статуса заявки.
	RegistrationStatusTTL = 24 * time.Hour
)

// resolveAttempts - сколько раз повторять ResolveStatus при конкурентной записи ключа.
const resolveAttempts = 3

var (
	// ErrStatusNotFound возвращается для неизвестного или истекшего requestId.
	ErrStatusNotFound = errors.New("registration status not found")
	// ErrStatusConflict ключ менялся конкурентно все попытки ResolveStatus.
	ErrStatusConflict = errors.New("registration status changed concurrently")
)

// RegistrationStatusRecord то, что лежит в redis по ключу registration:<requestId>.
type RegistrationStatusRecord struct {
	RequestID string                    `json:"requestId"`
	Status    models.RegistrationStatus `json:"status"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// RegistrationStatusStore хранит статусы заявок, поставленных в очередь.
type RegistrationStatusStore struct {
	cache *Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewRegistrationStatusStore(c *Cache) *RegistrationStatusStore {
	return &RegistrationStatusStore{
		cache: c,
		ttl:   RegistrationStatusTTL,
		now:   time.Now,
	}
}

func registrationKey(requestID string) string {
	return registrationKeyPrefix + requestID
}

// SetStatus записывает статус заявки и продлевает TTL.
func (s *RegistrationStatusStore) SetStatus(ctx context.Context, requestID string, status models.RegistrationStatus) error {
	const op = "cache.RegistrationStatusStore.SetStatus"
	rec := RegistrationStatusRecord{
		RequestID: requestID,
		Status:    status,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.cache.Set(ctx, registrationKey(requestID), rec, s.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetStatus возвращает статус заявки или ErrStatusNotFound.
func (s *RegistrationStatusStore) GetStatus(ctx context.Context, requestID string) (*RegistrationStatusRecord, error) {
	const op = "cache.RegistrationStatusStore.GetStatus"
	var rec RegistrationStatusRecord
	found, err := s.cache.Get(ctx, registrationKey(requestID), &rec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", op, ErrStatusNotFound)
	}
	return &rec, nil
}

// ResolveStatus записывает итоговый статус, только если заявка еще pending
// или статуса нет. Уже итоговый статус не перезаписывается: повторная доставка
// обработанной заявки не превращает processed в duplicate.
// Возвращает true, если запись произошла.
func (s *RegistrationStatusStore) ResolveStatus(ctx context.Context, requestID string, status models.RegistrationStatus) (bool, error) {
	const op = "cache.RegistrationStatusStore.ResolveStatus"
	key := registrationKey(requestID)
	data, err := json.Marshal(RegistrationStatusRecord{
		RequestID: requestID,
		Status:    status,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	written := false
	resolve := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var current RegistrationStatusRecord
			if err := json.Unmarshal(raw, &current); err == nil && current.Status != models.RegistrationPending {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			written = true
		}
		return err
	}

	for range resolveAttempts {
		err = s.cache.Db.Watch(ctx, resolve, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return written, nil
	}
	return false, fmt.Errorf("%s: %w", op, ErrStatusConflict)
}

// DeleteStatus удаляет статус заявки, например если она так и не попала в очередь.
func (s *RegistrationStatusStore) DeleteStatus(ctx context.Context, requestID string) error {
	const op = "cache.RegistrationStatusStore.DeleteStatus"
	if err := s.cache.Invalidate(ctx, registrationKey(requestID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
