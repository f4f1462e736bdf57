package vocab

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/kotobako/internal/client/storage"
	"github.com/iudanet/kotobako/internal/client/storage/memory"
	"github.com/iudanet/kotobako/internal/clock"
	"github.com/iudanet/kotobako/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(memory.New(), clock.New(), logger)
}

func newEntry(word, date string) *models.VocabEntry {
	return &models.VocabEntry{
		ID:        uuid.NewString(),
		Word:      word,
		Reading:   "よみ",
		Romaji:    "yomi",
		Meaning:   "meaning of " + word,
		DateAdded: date,
	}
}

func TestAddEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := newEntry("猫", "2024-01-15")
	require.NoError(t, store.AddEntry(ctx, entry))

	// Timestamp проставлен часами
	assert.Greater(t, entry.Timestamp, int64(0))

	got, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Word, got.Word)

	index, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-15"}, index.Dates)
	assert.Equal(t, 1, index.TotalCount)
}

func TestAddEntry_Invalid(t *testing.T) {
	store := newTestStore(t)

	err := store.AddEntry(context.Background(), &models.VocabEntry{ID: "x", Word: "猫", DateAdded: "not-a-date"})
	assert.Error(t, err)
}

func TestAddEntry_IndexSortedDescending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddEntry(ctx, newEntry("a", "2024-01-10")))
	require.NoError(t, store.AddEntry(ctx, newEntry("b", "2024-02-01")))
	require.NoError(t, store.AddEntry(ctx, newEntry("c", "2024-01-20")))
	require.NoError(t, store.AddEntry(ctx, newEntry("d", "2024-02-01")))

	index, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-01", "2024-01-20", "2024-01-10"}, index.Dates)
	assert.Equal(t, 4, index.TotalCount)
}

func TestUpdateEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := newEntry("猫", "2024-01-15")
	require.NoError(t, store.AddEntry(ctx, entry))
	firstTS := entry.Timestamp

	entry.Meaning = "cat (updated)"
	require.NoError(t, store.UpdateEntry(ctx, entry))

	got, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "cat (updated)", got.Meaning)
	// Timestamp строго растет при каждом изменении
	assert.Greater(t, got.Timestamp, firstTS)

	// Поисковая проекция обновлена атомарно с партицией
	found, err := store.Search(ctx, "updated")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, entry.ID, found[0].ID)
}

func TestUpdateEntry_MissingIsNoop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ghost := newEntry("霊", "2024-01-15")
	require.NoError(t, store.UpdateEntry(ctx, ghost))

	index, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, index.TotalCount)
}

func TestDeleteEntry_EmptyPartitionPruned(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := newEntry("猫", "2024-01-15")
	keep := newEntry("犬", "2024-01-20")
	require.NoError(t, store.AddEntry(ctx, entry))
	require.NoError(t, store.AddEntry(ctx, keep))

	require.NoError(t, store.DeleteEntry(ctx, entry.ID, entry.DateAdded))

	// Дата ушла из индекса, партиция не хранится пустой
	index, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-20"}, index.Dates)
	assert.Equal(t, 1, index.TotalCount)

	_, err = store.kv.Get(ctx, vocabKey("2024-01-15"))
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	// Поисковая запись удалена
	found, err := store.Search(ctx, "猫")
	require.NoError(t, err)
	assert.Empty(t, found)

	// Удаление зафиксировано как tombstone
	state, err := store.LoadSyncState(ctx)
	require.NoError(t, err)
	assert.Contains(t, state.LocalTombstones, entry.ID)
}

func TestDeleteEntry_MissingIsNoop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddEntry(ctx, newEntry("猫", "2024-01-15")))
	require.NoError(t, store.DeleteEntry(ctx, "no-such-id", "2024-01-15"))

	index, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, index.TotalCount)

	state, err := store.LoadSyncState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.LocalTombstones)
}

func TestGetEntriesByDates_MissingPartitionsYieldEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddEntry(ctx, newEntry("猫", "2024-01-15")))

	entries, err := store.GetEntriesByDates(ctx, []string{"2024-01-15", "2020-01-01"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSearch_CaseInsensitiveAcrossFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cat := newEntry("猫", "2024-01-15")
	cat.Romaji = "Neko"
	dog := newEntry("犬", "2024-01-20")
	dog.Note = "watch out, BITES"
	require.NoError(t, store.AddEntry(ctx, cat))
	require.NoError(t, store.AddEntry(ctx, dog))

	found, err := store.Search(ctx, "neko")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, cat.ID, found[0].ID)

	found, err = store.Search(ctx, "bites")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, dog.ID, found[0].ID)

	found, err = store.Search(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSearch_LoadsOnlyMatchingPartitions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	mem := memory.New()
	store := New(mem, clock.New(), logger)
	ctx := context.Background()

	require.NoError(t, store.AddEntry(ctx, newEntry("target", "2024-01-15")))
	require.NoError(t, store.AddEntry(ctx, newEntry("other", "2024-01-20")))
	require.NoError(t, store.AddEntry(ctx, newEntry("another", "2024-02-01")))

	// Подменяем KV на mock, считающий фактически прочитанные партиции
	var requested []string
	counting := &storage.KVMock{
		GetFunc: mem.Get,
		GetManyFunc: func(ctx context.Context, keys []string) (map[string][]byte, error) {
			requested = append(requested, keys...)
			return mem.GetMany(ctx, keys)
		},
	}
	store.kv = counting

	found, err := store.Search(ctx, "target")
	require.NoError(t, err)
	require.Len(t, found, 1)

	// Загружена ровно одна партиция - с единственной датой среди совпадений
	assert.Equal(t, []string{vocabKey("2024-01-15")}, requested)
}

func TestExportAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddEntry(ctx, newEntry("a", "2024-01-10")))
	require.NoError(t, store.AddEntry(ctx, newEntry("b", "2024-01-20")))
	require.NoError(t, store.AddEntry(ctx, newEntry("c", "2024-01-20")))

	entries, err := store.ExportAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestImportEntries_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entries := []models.VocabEntry{
		*newEntry("a", "2024-01-10"),
		*newEntry("b", "2024-01-20"),
	}

	added, err := store.ImportEntries(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// Повторный импорт тех же id ничего не добавляет
	added, err = store.ImportEntries(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	index, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, index.TotalCount)
}

func TestImportEntries_MergesIntoExistingPartition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddEntry(ctx, newEntry("existing", "2024-01-15")))

	added, err := store.ImportEntries(ctx, []models.VocabEntry{*newEntry("imported", "2024-01-15")})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	entries, err := store.GetEntriesByDates(ctx, []string{"2024-01-15"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	index, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-15"}, index.Dates)
	assert.Equal(t, 2, index.TotalCount)
}

func TestRebuildSearchIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := newEntry("猫", "2024-01-15")
	require.NoError(t, store.AddEntry(ctx, entry))

	// Ломаем проекцию и индекс
	require.NoError(t, store.kv.Set(ctx, keySearch, []byte("[]")))
	require.NoError(t, store.kv.Set(ctx, keyIndex, []byte(`{"dates":[],"totalCount":0}`)))

	require.NoError(t, store.RebuildSearchIndex(ctx))

	found, err := store.Search(ctx, "猫")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	index, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-15"}, index.Dates)
	assert.Equal(t, 1, index.TotalCount)
}

func TestReplacePartition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := newEntry("old", "2024-01-15")
	require.NoError(t, store.AddEntry(ctx, entry))

	merged := models.VocabPartition{
		Date: "2024-01-15",
		Entries: []models.VocabEntry{
			*newEntry("merged-a", "2024-01-15"),
			*newEntry("merged-b", "2024-01-15"),
		},
		Version: 7,
	}
	require.NoError(t, store.ReplacePartition(ctx, merged))

	entries, err := store.GetEntriesByDates(ctx, []string{"2024-01-15"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	index, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, index.TotalCount)

	// Старая запись ушла и из поисковой проекции
	found, err := store.Search(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReplacePartition_EmptyDeletesKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := newEntry("gone", "2024-01-15")
	require.NoError(t, store.AddEntry(ctx, entry))

	require.NoError(t, store.ReplacePartition(ctx, models.VocabPartition{Date: "2024-01-15", Version: 3}))

	_, err := store.kv.Get(ctx, vocabKey("2024-01-15"))
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	index, err := store.Index(ctx)
	require.NoError(t, err)
	assert.Empty(t, index.Dates)
	assert.Equal(t, 0, index.TotalCount)
}

func TestSyncState_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state, err := store.LoadSyncState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.PartitionVersions)

	state.PartitionVersions["2024-01-15"] = 3
	state.FileIDs["vocab_2024-01-15.json"] = "file-1"
	require.NoError(t, store.SaveSyncState(ctx, state))

	got, err := store.LoadSyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.PartitionVersions["2024-01-15"])
	assert.Equal(t, "file-1", got.FileIDs["vocab_2024-01-15.json"])
}

func TestRecordReview(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	reviewedAt := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC).Format(time.RFC3339)
	log := models.ReviewLog{VocabID: "vocab-1", Rating: 3, ReviewedAt: reviewedAt}
	state := models.CardState{Stability: 2.5, Reps: 1}

	require.NoError(t, store.RecordReview(ctx, log, state))

	reviews, err := store.GetReviewPartition(ctx, "2024-01")
	require.NoError(t, err)
	require.Len(t, reviews.Logs, 1)
	assert.Equal(t, log, reviews.Logs[0])

	fsrs, err := store.GetFsrsPartition(ctx, "2024-01")
	require.NoError(t, err)
	card, ok := fsrs.CardStates["vocab-1"]
	require.True(t, ok)
	require.NotNil(t, card.LastReview)
	assert.Equal(t, reviewedAt, *card.LastReview)

	syncState, err := store.LoadSyncState(ctx)
	require.NoError(t, err)
	assert.True(t, syncState.DirtyReviews["2024-01"])
	assert.True(t, syncState.DirtyFsrs["2024-01"])

	// Повторная запись того же повторения - no-op
	require.NoError(t, store.RecordReview(ctx, log, state))
	reviews, err = store.GetReviewPartition(ctx, "2024-01")
	require.NoError(t, err)
	assert.Len(t, reviews.Logs, 1)
}
