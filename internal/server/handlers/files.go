package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/kotobako/internal/models"
	"github.com/iudanet/kotobako/internal/server/storage"
	"github.com/iudanet/kotobako/pkg/api"
)

// maxBlobSize ограничивает размер содержимого одного объекта
const maxBlobSize = 16 << 20 // 16 MiB

// FilesHandler обрабатывает файловое API: именованные блобы в приватном
// пространстве пользователя. Сервер не интерпретирует содержимое.
type FilesHandler struct {
	logger      *slog.Logger
	blobStorage storage.BlobStorage
}

// NewFilesHandler создает новый handler файлового API
func NewFilesHandler(logger *slog.Logger, blobStorage storage.BlobStorage) *FilesHandler {
	return &FilesHandler{
		logger:      logger,
		blobStorage: blobStorage,
	}
}

// List обрабатывает GET /api/v1/files.
// Возвращает метаданные всех объектов пользователя без содержимого.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	blobs, err := h.blobStorage.ListBlobs(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list blobs", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	files := make([]api.File, 0, len(blobs))
	for _, blob := range blobs {
		files = append(files, api.File{
			ID:           blob.ID,
			Name:         blob.Name,
			ModifiedTime: blob.ModifiedAt,
		})
	}

	sendJSON(h.logger, w, api.ListFilesResponse{Files: files}, http.StatusOK)
}

// Get обрабатывает GET /api/v1/files/{id}
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	blobID := r.PathValue("id")
	if blobID == "" {
		sendError(h.logger, w, "file id is required", http.StatusBadRequest)
		return
	}

	blob, err := h.blobStorage.GetBlob(ctx, userID, blobID)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			sendError(h.logger, w, "file not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get blob", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.GetFileResponse{
		File: api.File{
			ID:           blob.ID,
			Name:         blob.Name,
			ModifiedTime: blob.ModifiedAt,
		},
		Content: blob.Content,
	}, http.StatusOK)
}

// Create обрабатывает POST /api/v1/files.
// ID назначается сервером, имя должно быть уникальным у пользователя.
func (h *FilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.CreateFileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBlobSize)).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode create file request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		sendError(h.logger, w, "name is required", http.StatusBadRequest)
		return
	}

	blob := &models.Blob{
		ID:         uuid.New().String(),
		UserID:     userID,
		Name:       req.Name,
		Content:    req.Content,
		ModifiedAt: time.Now(),
	}

	if err := h.blobStorage.CreateBlob(ctx, blob); err != nil {
		if errors.Is(err, storage.ErrBlobAlreadyExists) {
			h.logger.WarnContext(ctx, "blob already exists",
				slog.String("user_id", userID),
				slog.String("name", req.Name))
			sendError(h.logger, w, "file with this name already exists", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create blob", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "blob created",
		slog.String("user_id", userID),
		slog.String("blob_id", blob.ID),
		slog.String("name", req.Name),
		slog.Int("size", len(req.Content)))

	sendJSON(h.logger, w, api.CreateFileResponse{ID: blob.ID}, http.StatusCreated)
}

// Update обрабатывает PUT /api/v1/files/{id}.
// Полная перезапись содержимого, last-write-wins на уровне объекта.
func (h *FilesHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	blobID := r.PathValue("id")
	if blobID == "" {
		sendError(h.logger, w, "file id is required", http.StatusBadRequest)
		return
	}

	var req api.UpdateFileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBlobSize)).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode update file request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	blob := &models.Blob{
		ID:         blobID,
		UserID:     userID,
		Content:    req.Content,
		ModifiedAt: time.Now(),
	}

	if err := h.blobStorage.UpdateBlob(ctx, blob); err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			sendError(h.logger, w, "file not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to update blob", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "blob updated",
		slog.String("user_id", userID),
		slog.String("blob_id", blobID),
		slog.Int("size", len(req.Content)))

	w.WriteHeader(http.StatusNoContent)
}

// Lookup обрабатывает GET /api/v1/files/lookup?name=.
// Возвращает метаданные объекта по имени без содержимого - дешевый
// способ узнать id, когда листинг устарел.
func (h *FilesHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		sendError(h.logger, w, "name query parameter is required", http.StatusBadRequest)
		return
	}

	blob, err := h.blobStorage.GetBlobByName(ctx, userID, name)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			sendError(h.logger, w, "file not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to lookup blob", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.GetFileResponse{
		File: api.File{
			ID:           blob.ID,
			Name:         blob.Name,
			ModifiedTime: blob.ModifiedAt,
		},
	}, http.StatusOK)
}
