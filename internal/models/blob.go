package models

import "time"

// Blob представляет именованный объект в приватном пространстве пользователя.
// Имя - стабильный адрес для клиентов, ID назначается сервером при создании.
type Blob struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Content    []byte    `json:"content"`
	ModifiedAt time.Time `json:"modified_at"`
}
