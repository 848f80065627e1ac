// Package models содержит доменную модель пользователя системы,
// включающую данные учётной записи, хэш пароля и дату создания.
// Структура используется в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           int64     // Суррогатный ключ, назначается хранилищем
	Username     string    // Имя пользователя (уникальное, регистр учитывается)
	Email        string    // Электронная почта (уникальная)
	PasswordHash string    // Хэш пароля пользователя, наружу не отдаётся
	CreatedAt    time.Time // Момент вставки записи
}

// PublicUser - проекция пользователя, которую можно вернуть клиенту.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public возвращает проекцию пользователя без хэша пароля.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}
