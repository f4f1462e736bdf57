// Package syncsession управляет областью одного прохода синхронизации:
// амортизирует два дорогих удаленных чтения (полный листинг и блоб
// метаданных) на весь проход и в конце безопасно примиряет накопленные
// изменения с метаданными, которые могли параллельно менять другие реплики.
package syncsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/kotobako/internal/client/blobstore"
	"github.com/iudanet/kotobako/internal/merge"
	"github.com/iudanet/kotobako/internal/models"
)

// Session - область одного прохода pull+push. Владеет снапшотом метаданных,
// картой name->id и аккумулятором патчей версий. Не потокобезопасна:
// оркестратор обязан сериализовать проходы синхронизации.
type Session struct {
	client blobstore.API
	logger *slog.Logger
	token  string

	// name -> id по данным листинга, пополняется при создании блобов
	fileIDs map[string]string
	// Персистентный кеш вызывающей стороны; пополняется находками листинга
	idCache map[string]string

	// Снапшот метаданных на момент открытия сессии (baseline)
	metadata models.SyncMetadata
	// Tombstone'ы на момент открытия: при commit уходят объединением
	// со свежепрочитанными, чтобы не потерять чужие удаления
	initialTombstones map[string]int64

	// Патчи версий, накопленные вызывающей стороной за push-фазу
	partitionPatch map[string]int64
	fsrsPatch      map[string]int64
	reviewPatch    map[string]int64

	// Tombstone'ы, добавленные этой сессией (локальные удаления)
	addedTombstones map[string]int64

	committed bool
	now       func() time.Time
}

// Open выполняет ровно один листинг и ровно одно чтение метаданных.
// Свежие name->id из листинга вливаются в переданный кеш localIDCache,
// чтобы будущие сессии могли обходиться без листинга для известных имен.
// Отсутствующий или нечитаемый блоб метаданных - не ошибка: берется дефолт.
func Open(
	ctx context.Context,
	client blobstore.API,
	token string,
	localIDCache map[string]string,
	logger *slog.Logger,
) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	if localIDCache == nil {
		localIDCache = make(map[string]string)
	}

	files, err := client.ListFiles(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote files: %w", err)
	}

	fileIDs := merge.BuildFileIDMap(files)
	for name, id := range fileIDs {
		localIDCache[name] = id
	}
	// Кеш может знать имена, которых не было в листинге (например, созданные
	// этой же репликой между листингами) - сохраняем их как fallback
	for name, id := range localIDCache {
		if _, ok := fileIDs[name]; !ok {
			fileIDs[name] = id
		}
	}

	s := &Session{
		client:         client,
		logger:         logger,
		token:          token,
		fileIDs:        fileIDs,
		idCache:        localIDCache,
		partitionPatch: make(map[string]int64),
		fsrsPatch:      make(map[string]int64),
		reviewPatch:    make(map[string]int64),

		addedTombstones: make(map[string]int64),
		now:             time.Now,
	}

	s.metadata, err = s.readMetadata(ctx, false)
	if err != nil {
		return nil, err
	}
	s.initialTombstones = make(map[string]int64, len(s.metadata.DeletedEntries))
	for id, ts := range s.metadata.DeletedEntries {
		s.initialTombstones[id] = ts
	}

	return s, nil
}

// Token возвращает bearer-токен сессии
func (s *Session) Token() string {
	return s.token
}

// Metadata возвращает baseline-снапшот метаданных, прочитанный при открытии
func (s *Session) Metadata() models.SyncMetadata {
	return s.metadata
}

// FileID возвращает закешированный id блоба по имени
func (s *Session) FileID(name string) (string, bool) {
	id, ok := s.fileIDs[name]
	return id, ok && id != ""
}

// RegisterFileID запоминает id созданного блоба в карте сессии
// и в персистентном кеше
func (s *Session) RegisterFileID(name, id string) {
	s.fileIDs[name] = id
	s.idCache[name] = id
}

// FileIDCache возвращает персистентный кеш name->id (для сохранения
// вызывающей стороной после прохода)
func (s *Session) FileIDCache() map[string]string {
	return s.idCache
}

// BumpPartition записывает в патч новую версию партиции словаря
func (s *Session) BumpPartition(date string, version int64) {
	s.partitionPatch[date] = version
}

// BumpFsrs записывает в патч новую версию партиции состояний планировщика
func (s *Session) BumpFsrs(month string, version int64) {
	s.fsrsPatch[month] = version
}

// BumpReviews записывает в патч новую версию партиции журнала повторений
func (s *Session) BumpReviews(month string, version int64) {
	s.reviewPatch[month] = version
}

// AddTombstone фиксирует локальное удаление для публикации при commit
func (s *Session) AddTombstone(id string, deletedAt int64) {
	s.addedTombstones[id] = deletedAt
}

// Commit примиряет накопленные патчи с удаленными метаданными и пишет
// результат одним блобом. Вызывается ровно один раз в конце push-фазы.
//
// Протокол optimistic merge-on-write:
//  1. Свежее чтение метаданных - защита от реплики, писавшей параллельно
//     в течение этой сессии.
//  2. Версии вливаются покомпонентным максимумом: версия никогда
//     не регрессирует, повторное применение патча безвредно.
//  3. Tombstone'ы - объединение свежих, стартового снапшота и добавленных
//     сессией, затем сборка мусора по окну хранения.
//  4. Одна запись: create если блоба еще нет, иначе update по id.
//
// Возвращает примиренные метаданные - их версии и tombstone'ы становятся
// новым локальным состоянием вызывающей стороны.
func (s *Session) Commit(ctx context.Context) (models.SyncMetadata, error) {
	if s.committed {
		return models.SyncMetadata{}, fmt.Errorf("session already committed")
	}
	s.committed = true

	fresh, err := s.readMetadata(ctx, true)
	if err != nil {
		return models.SyncMetadata{}, err
	}

	reconciled := models.SyncMetadata{
		PartitionVersions: merge.MaxVersions(fresh.PartitionVersions, s.partitionPatch),
		DeletedEntries: merge.UnionTombstones(
			merge.UnionTombstones(fresh.DeletedEntries, s.initialTombstones),
			s.addedTombstones,
		),
	}
	if len(fresh.FsrsPartitionVersions) > 0 || len(s.fsrsPatch) > 0 {
		reconciled.FsrsPartitionVersions = merge.MaxVersions(fresh.FsrsPartitionVersions, s.fsrsPatch)
	}
	if len(fresh.ReviewPartitionVersions) > 0 || len(s.reviewPatch) > 0 {
		reconciled.ReviewPartitionVersions = merge.MaxVersions(fresh.ReviewPartitionVersions, s.reviewPatch)
	}

	reconciled.DeletedEntries = merge.CleanTombstones(reconciled.DeletedEntries, s.now())

	content, err := json.Marshal(reconciled)
	if err != nil {
		return models.SyncMetadata{}, fmt.Errorf("failed to marshal sync metadata: %w", err)
	}

	if id, ok := s.FileID(models.MetadataBlobName); ok {
		if err := s.client.UpdateFile(ctx, s.token, id, content); err != nil {
			return models.SyncMetadata{}, fmt.Errorf("failed to update sync metadata: %w", err)
		}
	} else {
		id, err := s.client.CreateFile(ctx, s.token, models.MetadataBlobName, content)
		if err != nil {
			return models.SyncMetadata{}, fmt.Errorf("failed to create sync metadata: %w", err)
		}
		s.RegisterFileID(models.MetadataBlobName, id)
	}

	return reconciled, nil
}

// readMetadata читает блоб метаданных. Отсутствие и порча - ожидаемые
// ситуации, дают дефолт; транспортная ошибка возвращается наружу.
// Id блоба берется из карты сессии; lookupFallback включает одиночный
// поиск по имени на случай, когда блоб создала другая реплика уже после
// нашего листинга.
func (s *Session) readMetadata(ctx context.Context, lookupFallback bool) (models.SyncMetadata, error) {
	id, ok := s.FileID(models.MetadataBlobName)
	if !ok {
		if !lookupFallback {
			return models.NewSyncMetadata(), nil
		}
		foundID, err := s.client.FindFileByName(ctx, s.token, models.MetadataBlobName)
		if err != nil {
			return models.SyncMetadata{}, fmt.Errorf("failed to look up sync metadata: %w", err)
		}
		if foundID == "" {
			return models.NewSyncMetadata(), nil
		}
		s.RegisterFileID(models.MetadataBlobName, foundID)
		id = foundID
	}

	meta, err := blobstore.GetFile[models.SyncMetadata](ctx, s.client, s.token, id)
	if err != nil {
		if errors.Is(err, blobstore.ErrFileNotFound) || errors.Is(err, blobstore.ErrCorruptContent) {
			s.logger.Warn("sync metadata missing or corrupt, using defaults", "error", err)
			return models.NewSyncMetadata(), nil
		}
		return models.SyncMetadata{}, fmt.Errorf("failed to read sync metadata: %w", err)
	}

	if meta.PartitionVersions == nil {
		meta.PartitionVersions = make(map[string]int64)
	}
	if meta.DeletedEntries == nil {
		meta.DeletedEntries = make(map[string]int64)
	}
	return meta, nil
}
