package models

import "time"

// User представляет пользователя на сервере
type User struct {
	ID          string     `json:"id"`            // UUID пользователя
	Username    string     `json:"username"`      // уникальный username
	AuthKeyHash string     `json:"auth_key_hash"` // SHA256 хеш auth_key (hex)
	PublicSalt  string     `json:"public_salt"`   // base64 encoded salt (32 bytes)
	CreatedAt   time.Time  `json:"created_at"`    // время создания
	LastLogin   *time.Time `json:"last_login"`    // время последнего входа
}

// RefreshToken представляет refresh token пользователя
type RefreshToken struct {
	Token     string    `json:"token"`      // значение токена (random base64)
	UserID    string    `json:"user_id"`    // ID пользователя
	ExpiresAt time.Time `json:"expires_at"` // время истечения
	CreatedAt time.Time `json:"created_at"` // время создания
}
