package api

import "time"

// File описывает именованный объект в листинге хранилища
type File struct {
	ID           string    `json:"id"`            // ID объекта, назначается сервером
	Name         string    `json:"name"`          // стабильное имя объекта (ключ адресации)
	ModifiedTime time.Time `json:"modified_time"` // время последней записи
}

// ListFilesResponse представляет ответ на листинг пространства имен
type ListFilesResponse struct {
	Files []File `json:"files"`
}

// GetFileResponse представляет ответ с содержимым объекта
type GetFileResponse struct {
	File
	Content []byte `json:"content"` // base64 в JSON
}

// CreateFileRequest представляет запрос на создание объекта
type CreateFileRequest struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

// CreateFileResponse представляет ответ с ID созданного объекта
type CreateFileResponse struct {
	ID string `json:"id"`
}

// UpdateFileRequest представляет запрос на перезапись содержимого объекта
type UpdateFileRequest struct {
	Content []byte `json:"content"`
}
