package blobstore

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrFileNotFound возвращается, когда удаленный объект не существует.
// Для логики синхронизации это не фатально: отсутствующий блоб
// эквивалентен пустому значению.
var ErrFileNotFound = errors.New("file not found")

// ErrCorruptContent возвращается, когда содержимое объекта не удалось
// декодировать. Удаленное содержимое - чужой ввод: вызывающая сторона
// обычно подставляет дефолт, а не падает.
var ErrCorruptContent = errors.New("corrupt file content")

// StatusError - транспортная ошибка: сервер ответил не-2xx статусом
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

// Is позволяет errors.Is(err, ErrFileNotFound) для 404-ответов
func (e *StatusError) Is(target error) bool {
	return target == ErrFileNotFound && e.Code == http.StatusNotFound
}
