package services

import (
	"errors"
	"fmt"
)

// Ошибки сервиса аутентификации. Обработчики сопоставляют их с HTTP-статусами через errors.Is.
var (
	// ErrValidation - во входных данных не хватает обязательных полей.
	ErrValidation = errors.New("validation failed")
	// ErrPasswordTooLong - пароль длиннее 72 байт. Является частным случаем ErrValidation.
	ErrPasswordTooLong = fmt.Errorf("%w: password is longer than %d bytes", ErrValidation, maxPasswordBytes)
	// ErrInvalidCredentials - неизвестный пользователь или неверный пароль, наружу не различаются.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserExists - username или email уже заняты.
	ErrUserExists = errors.New("username or email already exists")
	// ErrQueueUnavailable - регистрация через очередь включена, но очередь недоступна.
	ErrQueueUnavailable = errors.New("registration queue is unavailable")
	// ErrEnqueueFailed - очередь доступна, но публикация заявки не удалась.
	ErrEnqueueFailed = errors.New("failed to enqueue registration request")
	// ErrInvalidToken - токен не прошёл проверку или его владелец не найден.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrStatusUnavailable - хранилище статусов заявок не настроено.
	ErrStatusUnavailable = errors.New("registration status store is not configured")
	// ErrStatusNotFound - заявка с таким requestId неизвестна.
	ErrStatusNotFound = errors.New("registration request not found")
)
