package syncsession

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/kotobako/internal/client/blobstore"
	"github.com/iudanet/kotobako/internal/models"
	"github.com/iudanet/kotobako/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestOpen_OneListingOneMetadataRead(t *testing.T) {
	meta := models.SyncMetadata{
		PartitionVersions: map[string]int64{"2024-01-15": 3},
		DeletedEntries:    map[string]int64{"dead": 1700000000000},
	}

	mockAPI := &blobstore.APIMock{
		ListFilesFunc: func(ctx context.Context, token string) ([]api.File, error) {
			return []api.File{
				{ID: "meta-id", Name: models.MetadataBlobName},
				{ID: "part-id", Name: "vocab_2024-01-15.json"},
			}, nil
		},
		GetFileRawFunc: func(ctx context.Context, token, id string) ([]byte, error) {
			assert.Equal(t, "meta-id", id)
			return mustMarshal(t, meta), nil
		},
	}

	cache := map[string]string{"vocab_2023-12-01.json": "stale-id"}
	session, err := Open(context.Background(), mockAPI, "token", cache, testLogger())
	require.NoError(t, err)

	assert.Len(t, mockAPI.ListFilesCalls(), 1)
	assert.Len(t, mockAPI.GetFileRawCalls(), 1)

	// Снапшот метаданных зафиксирован
	assert.Equal(t, int64(3), session.Metadata().PartitionVersions["2024-01-15"])

	// Находки листинга влиты в персистентный кеш
	assert.Equal(t, "meta-id", cache[models.MetadataBlobName])
	assert.Equal(t, "part-id", cache["vocab_2024-01-15.json"])

	// Имена из кеша, которых не было в листинге, доступны как fallback
	id, ok := session.FileID("vocab_2023-12-01.json")
	assert.True(t, ok)
	assert.Equal(t, "stale-id", id)
}

func TestOpen_MissingMetadataDefaults(t *testing.T) {
	mockAPI := &blobstore.APIMock{
		ListFilesFunc: func(ctx context.Context, token string) ([]api.File, error) {
			return nil, nil
		},
	}

	session, err := Open(context.Background(), mockAPI, "token", nil, testLogger())
	require.NoError(t, err)

	assert.Empty(t, session.Metadata().PartitionVersions)
	assert.Empty(t, session.Metadata().DeletedEntries)
	// Листинг авторитетен: отдельного lookup по имени при открытии нет
	assert.Empty(t, mockAPI.FindFileByNameCalls())
}

func TestOpen_CorruptMetadataDefaults(t *testing.T) {
	mockAPI := &blobstore.APIMock{
		ListFilesFunc: func(ctx context.Context, token string) ([]api.File, error) {
			return []api.File{{ID: "meta-id", Name: models.MetadataBlobName}}, nil
		},
		GetFileRawFunc: func(ctx context.Context, token, id string) ([]byte, error) {
			return []byte("{broken"), nil
		},
	}

	session, err := Open(context.Background(), mockAPI, "token", nil, testLogger())
	require.NoError(t, err)
	assert.Empty(t, session.Metadata().PartitionVersions)
}

func TestOpen_EmptyToken(t *testing.T) {
	_, err := Open(context.Background(), &blobstore.APIMock{}, "", nil, testLogger())
	assert.Error(t, err)
}

func TestCommit_CreatesMetadataWhenAbsent(t *testing.T) {
	var created []byte

	mockAPI := &blobstore.APIMock{
		ListFilesFunc: func(ctx context.Context, token string) ([]api.File, error) {
			return nil, nil
		},
		FindFileByNameFunc: func(ctx context.Context, token, name string) (string, error) {
			return "", nil
		},
		CreateFileFunc: func(ctx context.Context, token, name string, content []byte) (string, error) {
			assert.Equal(t, models.MetadataBlobName, name)
			created = content
			return "new-meta-id", nil
		},
	}

	cache := map[string]string{}
	session, err := Open(context.Background(), mockAPI, "token", cache, testLogger())
	require.NoError(t, err)

	session.BumpPartition("2024-01-15", 1)
	session.BumpFsrs("2024-01", 2)

	reconciled, err := session.Commit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), reconciled.PartitionVersions["2024-01-15"])
	assert.Equal(t, int64(2), reconciled.FsrsPartitionVersions["2024-01"])

	var written models.SyncMetadata
	require.NoError(t, json.Unmarshal(created, &written))
	assert.Equal(t, reconciled.PartitionVersions, written.PartitionVersions)

	// Id созданного блоба попал в персистентный кеш
	assert.Equal(t, "new-meta-id", cache[models.MetadataBlobName])
}

func TestCommit_MergesConcurrentWriter(t *testing.T) {
	baseline := models.SyncMetadata{
		PartitionVersions: map[string]int64{"2024-01-15": 1},
		DeletedEntries:    map[string]int64{"tomb-initial": time.Now().UnixMilli()},
	}
	// Состояние, записанное другой репликой между Open и Commit
	concurrent := models.SyncMetadata{
		PartitionVersions: map[string]int64{"2024-01-15": 5, "2024-01-20": 2},
		DeletedEntries:    map[string]int64{"tomb-other": time.Now().UnixMilli()},
	}

	reads := 0
	var updated []byte
	mockAPI := &blobstore.APIMock{
		ListFilesFunc: func(ctx context.Context, token string) ([]api.File, error) {
			return []api.File{{ID: "meta-id", Name: models.MetadataBlobName}}, nil
		},
		GetFileRawFunc: func(ctx context.Context, token, id string) ([]byte, error) {
			reads++
			if reads == 1 {
				return mustMarshal(t, baseline), nil
			}
			return mustMarshal(t, concurrent), nil
		},
		UpdateFileFunc: func(ctx context.Context, token, id string, content []byte) error {
			assert.Equal(t, "meta-id", id)
			updated = content
			return nil
		},
	}

	session, err := Open(context.Background(), mockAPI, "token", nil, testLogger())
	require.NoError(t, err)

	// Push-фаза этой сессии
	session.BumpPartition("2024-01-15", 3)
	session.BumpPartition("2024-02-01", 1)
	session.AddTombstone("tomb-local", time.Now().UnixMilli())

	reconciled, err := session.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, reads, "commit must re-read metadata fresh")

	// Версии: покомпонентный максимум свежих значений и патча
	assert.Equal(t, int64(5), reconciled.PartitionVersions["2024-01-15"])
	assert.Equal(t, int64(2), reconciled.PartitionVersions["2024-01-20"])
	assert.Equal(t, int64(1), reconciled.PartitionVersions["2024-02-01"])

	// Tombstone'ы: объединение свежих, стартового снапшота и локальных
	assert.Contains(t, reconciled.DeletedEntries, "tomb-initial")
	assert.Contains(t, reconciled.DeletedEntries, "tomb-other")
	assert.Contains(t, reconciled.DeletedEntries, "tomb-local")

	require.NotNil(t, updated)
	var written models.SyncMetadata
	require.NoError(t, json.Unmarshal(updated, &written))
	assert.Equal(t, reconciled.PartitionVersions, written.PartitionVersions)
	assert.Equal(t, reconciled.DeletedEntries, written.DeletedEntries)
}

func TestCommit_GarbageCollectsExpiredTombstones(t *testing.T) {
	now := time.Now()
	baseline := models.SyncMetadata{
		PartitionVersions: map[string]int64{},
		DeletedEntries: map[string]int64{
			"expired": now.Add(-31 * 24 * time.Hour).UnixMilli(),
			"alive":   now.Add(-24 * time.Hour).UnixMilli(),
		},
	}

	mockAPI := &blobstore.APIMock{
		ListFilesFunc: func(ctx context.Context, token string) ([]api.File, error) {
			return []api.File{{ID: "meta-id", Name: models.MetadataBlobName}}, nil
		},
		GetFileRawFunc: func(ctx context.Context, token, id string) ([]byte, error) {
			return mustMarshal(t, baseline), nil
		},
		UpdateFileFunc: func(ctx context.Context, token, id string, content []byte) error {
			return nil
		},
	}

	session, err := Open(context.Background(), mockAPI, "token", nil, testLogger())
	require.NoError(t, err)
	session.now = func() time.Time { return now }

	reconciled, err := session.Commit(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, reconciled.DeletedEntries, "expired")
	assert.Contains(t, reconciled.DeletedEntries, "alive")
}

func TestCommit_Twice(t *testing.T) {
	mockAPI := &blobstore.APIMock{
		ListFilesFunc: func(ctx context.Context, token string) ([]api.File, error) {
			return nil, nil
		},
		FindFileByNameFunc: func(ctx context.Context, token, name string) (string, error) {
			return "", nil
		},
		CreateFileFunc: func(ctx context.Context, token, name string, content []byte) (string, error) {
			return "id", nil
		},
	}

	session, err := Open(context.Background(), mockAPI, "token", nil, testLogger())
	require.NoError(t, err)

	_, err = session.Commit(context.Background())
	require.NoError(t, err)

	_, err = session.Commit(context.Background())
	assert.Error(t, err)
}

func TestCommit_LookupFallbackFindsConcurrentlyCreatedBlob(t *testing.T) {
	// Листинг при открытии блоба не видел, но к моменту commit другая
	// реплика его создала: fallback lookup должен привести к update,
	// а не к созданию дубликата
	concurrent := models.SyncMetadata{
		PartitionVersions: map[string]int64{"2024-01-15": 4},
		DeletedEntries:    map[string]int64{},
	}

	mockAPI := &blobstore.APIMock{
		ListFilesFunc: func(ctx context.Context, token string) ([]api.File, error) {
			return nil, nil
		},
		FindFileByNameFunc: func(ctx context.Context, token, name string) (string, error) {
			assert.Equal(t, models.MetadataBlobName, name)
			return "late-meta-id", nil
		},
		GetFileRawFunc: func(ctx context.Context, token, id string) ([]byte, error) {
			assert.Equal(t, "late-meta-id", id)
			return mustMarshal(t, concurrent), nil
		},
		UpdateFileFunc: func(ctx context.Context, token, id string, content []byte) error {
			assert.Equal(t, "late-meta-id", id)
			return nil
		},
	}

	session, err := Open(context.Background(), mockAPI, "token", nil, testLogger())
	require.NoError(t, err)

	session.BumpPartition("2024-01-15", 2)

	reconciled, err := session.Commit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), reconciled.PartitionVersions["2024-01-15"])
	assert.Empty(t, mockAPI.CreateFileCalls())
	assert.Len(t, mockAPI.UpdateFileCalls(), 1)
}
