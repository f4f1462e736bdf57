package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/kotobako/internal/client/storage"
)

// SyncState - локальное состояние синхронизации реплики. Живет рядом с
// данными, никогда не уходит на сервер целиком: на сервер попадают только
// tombstone'ы и версии через sync_metadata.json.
type SyncState struct {
	// Последние синхронизированные версии партиций
	PartitionVersions map[string]int64 `json:"partitionVersions"`
	FsrsVersions      map[string]int64 `json:"fsrsVersions"`
	ReviewVersions    map[string]int64 `json:"reviewVersions"`

	// Партиции с локальными изменениями, ожидающими push
	DirtyPartitions map[string]bool `json:"dirtyPartitions"`
	DirtyFsrs       map[string]bool `json:"dirtyFsrs"`
	DirtyReviews    map[string]bool `json:"dirtyReviews"`

	// Локальные tombstone'ы, еще не опубликованные в метаданных
	LocalTombstones map[string]int64 `json:"localTombstones"`

	// Кеш name -> id удаленных блобов: позволяет будущим сессиям
	// обходиться без полного листинга для известных имен
	FileIDs map[string]string `json:"fileIds"`
}

// NewSyncState возвращает инициализированное пустое состояние
func NewSyncState() *SyncState {
	return &SyncState{
		PartitionVersions: make(map[string]int64),
		FsrsVersions:      make(map[string]int64),
		ReviewVersions:    make(map[string]int64),
		DirtyPartitions:   make(map[string]bool),
		DirtyFsrs:         make(map[string]bool),
		DirtyReviews:      make(map[string]bool),
		LocalTombstones:   make(map[string]int64),
		FileIDs:           make(map[string]string),
	}
}

// LoadSyncState читает состояние синхронизации; отсутствующее - пустое
func (s *Store) LoadSyncState(ctx context.Context) (*SyncState, error) {
	data, err := s.kv.Get(ctx, keySyncState)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return NewSyncState(), nil
		}
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}

	state := NewSyncState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync state: %w", err)
	}
	// nil-карты после десериализации старых версий состояния
	ensureInitialized(state)
	return state, nil
}

// SaveSyncState сохраняет состояние синхронизации
func (s *Store) SaveSyncState(ctx context.Context, state *SyncState) error {
	data, err := marshal(state)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, keySyncState, data)
}

func ensureInitialized(state *SyncState) {
	if state.PartitionVersions == nil {
		state.PartitionVersions = make(map[string]int64)
	}
	if state.FsrsVersions == nil {
		state.FsrsVersions = make(map[string]int64)
	}
	if state.ReviewVersions == nil {
		state.ReviewVersions = make(map[string]int64)
	}
	if state.DirtyPartitions == nil {
		state.DirtyPartitions = make(map[string]bool)
	}
	if state.DirtyFsrs == nil {
		state.DirtyFsrs = make(map[string]bool)
	}
	if state.DirtyReviews == nil {
		state.DirtyReviews = make(map[string]bool)
	}
	if state.LocalTombstones == nil {
		state.LocalTombstones = make(map[string]int64)
	}
	if state.FileIDs == nil {
		state.FileIDs = make(map[string]string)
	}
}
