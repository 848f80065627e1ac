package models

import (
	"log/slog"
	"time"
)

// RegistrationMessage - заявка на регистрацию, передаваемая через очередь.
//
// Заполняется ровно одно из полей Password и PasswordHash: по умолчанию в очереди
// едет пароль в открытом виде и хэширует его воркер.
type RegistrationMessage struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Password     string    `json:"password,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	RequestedAt  time.Time `json:"requestedAt"`
	RequestID    string    `json:"requestId"`
}

// LogValue не пускает пароль и хэш в логи.
func (m RegistrationMessage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", m.Username),
		slog.String("email", m.Email),
		slog.String("request_id", m.RequestID),
		slog.Time("requested_at", m.RequestedAt),
	)
}

// RegistrationStatus - состояние заявки, поставленной в очередь.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationProcessed RegistrationStatus = "processed"
	RegistrationDuplicate RegistrationStatus = "duplicate"
	RegistrationFailed    RegistrationStatus = "failed"
)
