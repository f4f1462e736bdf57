package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/iudanet/kotobako/internal/client/storage"
	"github.com/iudanet/kotobako/internal/models"
	"github.com/iudanet/kotobako/internal/validation"
)

// AddEntry добавляет запись в партицию ее даты, обновляет индекс и поисковую
// проекцию. Timestamp проставляется часами хранилища; все три записи попадают
// в KV одним атомарным batch'ем.
func (s *Store) AddEntry(ctx context.Context, entry *models.VocabEntry) error {
	if err := validation.ValidateEntry(entry); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}

	entry.Timestamp = s.clock.Next()

	partition, err := s.GetPartition(ctx, entry.DateAdded)
	if err != nil {
		return err
	}
	index, err := s.Index(ctx)
	if err != nil {
		return err
	}
	search, err := s.loadSearch(ctx)
	if err != nil {
		return err
	}
	state, err := s.LoadSyncState(ctx)
	if err != nil {
		return err
	}

	partition.Entries = append(partition.Entries, *entry)

	index.Dates = insertDateDesc(index.Dates, entry.DateAdded)
	index.TotalCount++

	search = append(search, models.NewSearchEntry(entry))

	state.DirtyPartitions[entry.DateAdded] = true

	return s.applyEntryWrite(ctx, partition, index, search, state)
}

// UpdateEntry заменяет запись в партиции ее даты (по id) и обновляет
// поисковую проекцию. Если записи нет - молча no-op.
func (s *Store) UpdateEntry(ctx context.Context, entry *models.VocabEntry) error {
	if err := validation.ValidateEntry(entry); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}

	partition, err := s.GetPartition(ctx, entry.DateAdded)
	if err != nil {
		return err
	}

	pos := -1
	for i := range partition.Entries {
		if partition.Entries[i].ID == entry.ID {
			pos = i
			break
		}
	}
	if pos < 0 {
		s.logger.Debug("update skipped: entry not found",
			"id", entry.ID, "date", entry.DateAdded)
		return nil
	}

	entry.Timestamp = s.clock.Next()
	partition.Entries[pos] = *entry

	search, err := s.loadSearch(ctx)
	if err != nil {
		return err
	}
	for i := range search {
		if search[i].ID == entry.ID {
			search[i] = models.NewSearchEntry(entry)
			break
		}
	}

	state, err := s.LoadSyncState(ctx)
	if err != nil {
		return err
	}
	state.DirtyPartitions[entry.DateAdded] = true

	index, err := s.Index(ctx)
	if err != nil {
		return err
	}

	return s.applyEntryWrite(ctx, partition, index, search, state)
}

// DeleteEntry удаляет запись из партиции, записывает tombstone и чинит
// индекс с поисковой проекцией. Пустая партиция удаляется целиком,
// а не хранится пустой. Если записи нет - молча no-op.
func (s *Store) DeleteEntry(ctx context.Context, id, date string) error {
	partition, err := s.GetPartition(ctx, date)
	if err != nil {
		return err
	}

	pos := -1
	for i := range partition.Entries {
		if partition.Entries[i].ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		s.logger.Debug("delete skipped: entry not found", "id", id, "date", date)
		return nil
	}

	partition.Entries = append(partition.Entries[:pos], partition.Entries[pos+1:]...)

	index, err := s.Index(ctx)
	if err != nil {
		return err
	}
	index.TotalCount--
	if len(partition.Entries) == 0 {
		index.Dates = removeDate(index.Dates, date)
	}

	search, err := s.loadSearch(ctx)
	if err != nil {
		return err
	}
	for i := range search {
		if search[i].ID == id {
			search = append(search[:i], search[i+1:]...)
			break
		}
	}

	state, err := s.LoadSyncState(ctx)
	if err != nil {
		return err
	}
	state.DirtyPartitions[date] = true
	// Удаление фиксируется явно: tombstone переживет гонку
	// с копией записи на другой реплике
	state.LocalTombstones[id] = s.clock.Next()

	return s.applyEntryWrite(ctx, partition, index, search, state)
}

// GetEntry возвращает запись по id через поисковую проекцию.
// Returns ErrEntryNotFound если записи нет.
func (s *Store) GetEntry(ctx context.Context, id string) (*models.VocabEntry, error) {
	search, err := s.loadSearch(ctx)
	if err != nil {
		return nil, err
	}

	date := ""
	for i := range search {
		if search[i].ID == id {
			date = search[i].Date
			break
		}
	}
	if date == "" {
		return nil, ErrEntryNotFound
	}

	partition, err := s.GetPartition(ctx, date)
	if err != nil {
		return nil, err
	}
	for i := range partition.Entries {
		if partition.Entries[i].ID == id {
			return partition.Entries[i].Clone(), nil
		}
	}
	return nil, ErrEntryNotFound
}

// GetEntriesByDates читает ровно запрошенные партиции одним batch-чтением.
// Отсутствующие партиции дают пустой список, а не ошибку.
func (s *Store) GetEntriesByDates(ctx context.Context, dates []string) ([]models.VocabEntry, error) {
	keys := make([]string, 0, len(dates))
	for _, date := range dates {
		keys = append(keys, vocabKey(date))
	}

	values, err := s.kv.GetMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to read partitions: %w", err)
	}

	var entries []models.VocabEntry
	for _, date := range dates {
		data, ok := values[vocabKey(date)]
		if !ok {
			continue
		}
		var partition models.VocabPartition
		if err := json.Unmarshal(data, &partition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal partition %s: %w", date, err)
		}
		entries = append(entries, partition.Entries...)
	}
	return entries, nil
}

// GetPartition возвращает партицию за дату; отсутствующая партиция - пустая
func (s *Store) GetPartition(ctx context.Context, date string) (models.VocabPartition, error) {
	partition := models.VocabPartition{Date: date}

	data, err := s.kv.Get(ctx, vocabKey(date))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return partition, nil
		}
		return partition, fmt.Errorf("failed to read partition %s: %w", date, err)
	}

	if err := json.Unmarshal(data, &partition); err != nil {
		return partition, fmt.Errorf("failed to unmarshal partition %s: %w", date, err)
	}
	return partition, nil
}

// ReplacePartition перезаписывает партицию целиком (результат слияния при
// pull), чинит индекс и поисковую проекцию за эту дату. Пустая партиция
// удаляется из хранилища.
func (s *Store) ReplacePartition(ctx context.Context, partition models.VocabPartition) error {
	old, err := s.GetPartition(ctx, partition.Date)
	if err != nil {
		return err
	}
	index, err := s.Index(ctx)
	if err != nil {
		return err
	}
	search, err := s.loadSearch(ctx)
	if err != nil {
		return err
	}

	index.TotalCount += len(partition.Entries) - len(old.Entries)
	if len(partition.Entries) == 0 {
		index.Dates = removeDate(index.Dates, partition.Date)
	} else {
		index.Dates = insertDateDesc(index.Dates, partition.Date)
	}

	// Перестраиваем поисковую проекцию за дату: чужие даты не трогаем
	filtered := search[:0]
	for _, se := range search {
		if se.Date != partition.Date {
			filtered = append(filtered, se)
		}
	}
	for i := range partition.Entries {
		filtered = append(filtered, models.NewSearchEntry(&partition.Entries[i]))
	}

	batch := storage.Batch{Put: make(map[string][]byte)}

	if len(partition.Entries) == 0 {
		batch.Delete = append(batch.Delete, vocabKey(partition.Date))
	} else {
		data, err := marshal(partition)
		if err != nil {
			return err
		}
		batch.Put[vocabKey(partition.Date)] = data
	}

	indexData, err := marshal(index)
	if err != nil {
		return err
	}
	batch.Put[keyIndex] = indexData

	searchData, err := marshal(filtered)
	if err != nil {
		return err
	}
	batch.Put[keySearch] = searchData

	return s.kv.Apply(ctx, batch)
}

// Index возвращает производный индекс; отсутствующий индекс - пустой
func (s *Store) Index(ctx context.Context) (models.Index, error) {
	var index models.Index

	data, err := s.kv.Get(ctx, keyIndex)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return index, nil
		}
		return index, fmt.Errorf("failed to read index: %w", err)
	}

	if err := json.Unmarshal(data, &index); err != nil {
		return index, fmt.Errorf("failed to unmarshal index: %w", err)
	}
	return index, nil
}

// applyEntryWrite собирает единый batch из партиции, индекса, поисковой
// проекции и sync state
func (s *Store) applyEntryWrite(
	ctx context.Context,
	partition models.VocabPartition,
	index models.Index,
	search []models.SearchEntry,
	state *SyncState,
) error {
	batch := storage.Batch{Put: make(map[string][]byte)}

	if len(partition.Entries) == 0 {
		batch.Delete = append(batch.Delete, vocabKey(partition.Date))
	} else {
		data, err := marshal(partition)
		if err != nil {
			return err
		}
		batch.Put[vocabKey(partition.Date)] = data
	}

	indexData, err := marshal(index)
	if err != nil {
		return err
	}
	batch.Put[keyIndex] = indexData

	searchData, err := marshal(search)
	if err != nil {
		return err
	}
	batch.Put[keySearch] = searchData

	stateData, err := marshal(state)
	if err != nil {
		return err
	}
	batch.Put[keySyncState] = stateData

	return s.kv.Apply(ctx, batch)
}

// insertDateDesc вставляет дату в отсортированный по убыванию список без дублей
func insertDateDesc(dates []string, date string) []string {
	for _, d := range dates {
		if d == date {
			return dates
		}
	}
	dates = append(dates, date)
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

func removeDate(dates []string, date string) []string {
	for i, d := range dates {
		if d == date {
			return append(dates[:i], dates[i+1:]...)
		}
	}
	return dates
}
