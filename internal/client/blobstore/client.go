// Package blobstore реализует клиент удаленного хранилища именованных
// объектов. Имена - стабильный ключ адресации вызывающей стороны;
// id назначается сервером и пригоден для кеширования, но не переживает
// пересоздание объекта.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iudanet/kotobako/pkg/api"
)

//go:generate moq -out api_mock.go . API

// API - поверхность блоб-хранилища, от которой зависит движок синхронизации
type API interface {
	// ListFiles возвращает все объекты приложения
	ListFiles(ctx context.Context, token string) ([]api.File, error)

	// GetFileRaw возвращает сырое содержимое объекта по id.
	// Returns ErrFileNotFound если объекта нет.
	GetFileRaw(ctx context.Context, token, id string) ([]byte, error)

	// CreateFile создает объект и возвращает назначенный сервером id
	CreateFile(ctx context.Context, token, name string, content []byte) (string, error)

	// UpdateFile перезаписывает содержимое существующего объекта
	UpdateFile(ctx context.Context, token, id string, content []byte) error

	// FindFileByName ищет объект по имени. Возвращает пустой id,
	// если объекта нет (не ошибка).
	FindFileByName(ctx context.Context, token, name string) (string, error)
}

// Client представляет HTTP клиент блоб-хранилища
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ API = (*Client)(nil)

// NewClient создает новый клиент блоб-хранилища
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// ListFiles возвращает листинг объектов приложения
func (c *Client) ListFiles(ctx context.Context, token string) ([]api.File, error) {
	var resp api.ListFilesResponse
	if err := c.doRequest(ctx, "GET", "/api/v1/files", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list files request failed: %w", err)
	}
	return resp.Files, nil
}

// GetFileRaw возвращает содержимое объекта по id
func (c *Client) GetFileRaw(ctx context.Context, token, id string) ([]byte, error) {
	var resp api.GetFileResponse
	path := "/api/v1/files/" + url.PathEscape(id)
	if err := c.doRequest(ctx, "GET", path, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("get file request failed: %w", err)
	}
	return resp.Content, nil
}

// CreateFile создает объект с именем и содержимым
func (c *Client) CreateFile(ctx context.Context, token, name string, content []byte) (string, error) {
	req := api.CreateFileRequest{Name: name, Content: content}
	var resp api.CreateFileResponse
	if err := c.doRequest(ctx, "POST", "/api/v1/files", token, req, &resp); err != nil {
		return "", fmt.Errorf("create file request failed: %w", err)
	}
	return resp.ID, nil
}

// UpdateFile перезаписывает содержимое объекта
func (c *Client) UpdateFile(ctx context.Context, token, id string, content []byte) error {
	req := api.UpdateFileRequest{Content: content}
	path := "/api/v1/files/" + url.PathEscape(id)
	if err := c.doRequest(ctx, "PUT", path, token, req, nil); err != nil {
		return fmt.Errorf("update file request failed: %w", err)
	}
	return nil
}

// FindFileByName ищет один объект по имени - fallback, когда полный
// листинг недоступен или устарел
func (c *Client) FindFileByName(ctx context.Context, token, name string) (string, error) {
	var resp api.GetFileResponse
	path := "/api/v1/files/lookup?name=" + url.QueryEscape(name)
	err := c.doRequest(ctx, "GET", path, token, nil, &resp)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("find file request failed: %w", err)
	}
	return resp.File.ID, nil
}

// GetFile получает объект по id и десериализует его содержимое в T.
// Ошибка декодирования помечается ErrCorruptContent, чтобы вызывающая
// сторона могла отличить ее от транспортной и подставить дефолт.
func GetFile[T any](ctx context.Context, client API, token, id string) (T, error) {
	var value T

	content, err := client.GetFileRaw(ctx, token, id)
	if err != nil {
		return value, err
	}

	if err := json.Unmarshal(content, &value); err != nil {
		return value, fmt.Errorf("%w: %v", ErrCorruptContent, err)
	}
	return value, nil
}

// doRequest выполняет HTTP запрос с bearer-токеном
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result interface{}) error {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			statusErr.Message = errResp.Message
		} else {
			statusErr.Message = string(respBody)
		}
		return statusErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
