// Package models содержит доменную модель пользователя системы,
// включающую данные учётной записи, хэш пароля и роль.
// Структура используется в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           int64     // Уникальный идентификатор пользователя
	Username     string    // Имя пользователя (уникальное)
	Email        string    // Электронная почта (уникальная)
	PasswordHash string    // Хэш пароля пользователя
	Role         string    // Роль пользователя, admin или user
	CreatedAt    time.Time // Дата регистрации
}

// Identity: аутентифицированный субъект запроса. Кладётся в контекст
// middleware и передаётся в сервисы.
type Identity struct {
	UserID   int64
	Username string
	Role     string
}

// IsAdmin сообщает, обладает ли субъект административной ролью.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Identity возвращает субъект, соответствующий пользователю.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
