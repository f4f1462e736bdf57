package server_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientapi "github.com/iudanet/kotobako/internal/client/api"
	"github.com/iudanet/kotobako/internal/client/auth"
	"github.com/iudanet/kotobako/internal/client/blobstore"
	"github.com/iudanet/kotobako/internal/client/storage/boltdb"
	"github.com/iudanet/kotobako/internal/client/storage/memory"
	clientsync "github.com/iudanet/kotobako/internal/client/sync"
	"github.com/iudanet/kotobako/internal/client/vocab"
	"github.com/iudanet/kotobako/internal/clock"
	"github.com/iudanet/kotobako/internal/models"
)

// replica - полный клиентский стек одного устройства
type replica struct {
	store *vocab.Store
	sync  *clientsync.Service
}

func newReplica(t *testing.T, ts *httptest.Server) *replica {
	t.Helper()

	store := vocab.New(memory.New(), clock.New(), testLogger())
	return &replica{
		store: store,
		sync:  clientsync.NewService(blobstore.NewClient(ts.URL), store, testLogger()),
	}
}

// TestEndToEnd проверяет полный путь: регистрация с настоящей деривацией
// ключей, логин, получение токена и сходимость двух устройств через
// реальный сервер с SQLite хранилищем.
func TestEndToEnd(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	const password = "correct-horse-battery"

	// Регистрация и логин через настоящий крипто-стек
	authSvc := auth.NewService(
		clientapi.NewClient(ts.URL),
		auth.NewStore(newClientDB(t)),
		testLogger(),
	)

	_, err := authSvc.Register(ctx, "alice", password)
	require.NoError(t, err)
	_, err = authSvc.Login(ctx, "alice", password)
	require.NoError(t, err)

	token, err := authSvc.GetValidToken(ctx, password)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Устройство A добавляет записи и синхронизируется
	deviceA := newReplica(t, ts)
	require.NoError(t, deviceA.store.AddEntry(ctx, &models.VocabEntry{
		ID:        "e1",
		Word:      "猫",
		Reading:   "ねこ",
		Meaning:   "cat",
		DateAdded: "2025-01-02",
	}))
	require.NoError(t, deviceA.store.AddEntry(ctx, &models.VocabEntry{
		ID:        "e2",
		Word:      "犬",
		Reading:   "いぬ",
		Meaning:   "dog",
		DateAdded: "2025-01-03",
	}))

	resultA, err := deviceA.sync.Sync(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 2, resultA.PushedPartitions)

	// Устройство B подтягивает все с чистого состояния
	deviceB := newReplica(t, ts)
	resultB, err := deviceB.sync.Sync(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 2, resultB.PulledPartitions)

	entry, err := deviceB.store.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "猫", entry.Word)

	index, err := deviceB.store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, index.TotalCount)

	// Удаление на B доезжает до A через tombstone
	require.NoError(t, deviceB.store.DeleteEntry(ctx, "e2", "2025-01-03"))
	_, err = deviceB.sync.Sync(ctx, token)
	require.NoError(t, err)

	_, err = deviceA.sync.Sync(ctx, token)
	require.NoError(t, err)

	_, err = deviceA.store.GetEntry(ctx, "e2")
	assert.ErrorIs(t, err, vocab.ErrEntryNotFound)

	// Повторный проход без изменений - no-op
	result, err := deviceA.sync.Sync(ctx, token)
	require.NoError(t, err)
	assert.False(t, result.Changed())
}

func newClientDB(t *testing.T) *boltdb.Storage {
	t.Helper()

	db, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}
