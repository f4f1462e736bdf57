package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iudanet/kotobako/internal/client/storage"
	"github.com/iudanet/kotobako/internal/models"
	"github.com/iudanet/kotobako/internal/validation"
)

// Search ищет подстроку (без учета регистра) по word, reading, romaji,
// meaning и note в плоской проекции. Полные записи материализуются только
// из партиций, в которых были совпадения: число загруженных партиций
// не превышает числа различных дат среди совпадений.
func (s *Store) Search(ctx context.Context, query string) ([]models.VocabEntry, error) {
	if err := validation.ValidateQuery(query); err != nil {
		return nil, err
	}

	search, err := s.loadSearch(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)

	// Группируем id совпадений по дате
	matchedByDate := make(map[string]map[string]bool)
	for _, se := range search {
		if !matchesQuery(se, q) {
			continue
		}
		if matchedByDate[se.Date] == nil {
			matchedByDate[se.Date] = make(map[string]bool)
		}
		matchedByDate[se.Date][se.ID] = true
	}
	if len(matchedByDate) == 0 {
		return nil, nil
	}

	dates := make([]string, 0, len(matchedByDate))
	for date := range matchedByDate {
		dates = append(dates, date)
	}

	entries, err := s.GetEntriesByDates(ctx, dates)
	if err != nil {
		return nil, err
	}

	var result []models.VocabEntry
	for _, e := range entries {
		if matchedByDate[e.DateAdded][e.ID] {
			result = append(result, e)
		}
	}
	return result, nil
}

func matchesQuery(se models.SearchEntry, q string) bool {
	for _, field := range []string{se.Word, se.Reading, se.Romaji, se.Meaning, se.Note} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// ExportAll загружает все партиции из индекса и конкатенирует записи.
// Используется для полного бэкапа.
func (s *Store) ExportAll(ctx context.Context) ([]models.VocabEntry, error) {
	index, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetEntriesByDates(ctx, index.Dates)
}

// ImportEntries импортирует записи: уже существующие id (по поисковой
// проекции) пропускаются, новые группируются по дате и вливаются в
// существующие партиции. Возвращает число реально добавленных записей.
func (s *Store) ImportEntries(ctx context.Context, entries []models.VocabEntry) (int, error) {
	search, err := s.loadSearch(ctx)
	if err != nil {
		return 0, err
	}

	existing := make(map[string]bool, len(search))
	for _, se := range search {
		existing[se.ID] = true
	}

	byDate := make(map[string][]models.VocabEntry)
	added := 0
	for _, e := range entries {
		if existing[e.ID] {
			continue
		}
		if err := validation.ValidateEntry(&e); err != nil {
			return 0, fmt.Errorf("invalid import entry %s: %w", e.ID, err)
		}
		existing[e.ID] = true
		byDate[e.DateAdded] = append(byDate[e.DateAdded], e)
		added++
	}
	if added == 0 {
		return 0, nil
	}

	index, err := s.Index(ctx)
	if err != nil {
		return 0, err
	}
	state, err := s.LoadSyncState(ctx)
	if err != nil {
		return 0, err
	}

	batch := storage.Batch{Put: make(map[string][]byte)}

	for date, newEntries := range byDate {
		partition, err := s.GetPartition(ctx, date)
		if err != nil {
			return 0, err
		}
		for i := range newEntries {
			if newEntries[i].Timestamp == 0 {
				newEntries[i].Timestamp = s.clock.Next()
			}
			partition.Entries = append(partition.Entries, newEntries[i])
			search = append(search, models.NewSearchEntry(&newEntries[i]))
		}

		data, err := marshal(partition)
		if err != nil {
			return 0, err
		}
		batch.Put[vocabKey(date)] = data

		index.Dates = insertDateDesc(index.Dates, date)
		index.TotalCount += len(newEntries)
		state.DirtyPartitions[date] = true
	}

	indexData, err := marshal(index)
	if err != nil {
		return 0, err
	}
	batch.Put[keyIndex] = indexData

	searchData, err := marshal(search)
	if err != nil {
		return 0, err
	}
	batch.Put[keySearch] = searchData

	stateData, err := marshal(state)
	if err != nil {
		return 0, err
	}
	batch.Put[keySyncState] = stateData

	if err := s.kv.Apply(ctx, batch); err != nil {
		return 0, err
	}
	return added, nil
}

// RebuildSearchIndex пересчитывает поисковую проекцию и индекс из всех
// партиций. Операция починки, не часть обычного пути записи.
func (s *Store) RebuildSearchIndex(ctx context.Context) error {
	keys, err := s.kv.Keys(ctx, prefixVocab)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	values, err := s.kv.GetMany(ctx, keys)
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	var search []models.SearchEntry
	index := models.Index{}
	for _, key := range keys {
		var partition models.VocabPartition
		if err := json.Unmarshal(values[key], &partition); err != nil {
			return fmt.Errorf("failed to unmarshal partition %s: %w", key, err)
		}
		if len(partition.Entries) == 0 {
			continue
		}
		for i := range partition.Entries {
			search = append(search, models.NewSearchEntry(&partition.Entries[i]))
		}
		index.Dates = insertDateDesc(index.Dates, partition.Date)
		index.TotalCount += len(partition.Entries)
	}

	batch := storage.Batch{Put: make(map[string][]byte)}

	searchData, err := marshal(search)
	if err != nil {
		return err
	}
	batch.Put[keySearch] = searchData

	indexData, err := marshal(index)
	if err != nil {
		return err
	}
	batch.Put[keyIndex] = indexData

	s.logger.Info("search index rebuilt",
		"partitions", len(index.Dates), "entries", index.TotalCount)

	return s.kv.Apply(ctx, batch)
}

// loadSearch читает поисковую проекцию; отсутствующая проекция - пустая
func (s *Store) loadSearch(ctx context.Context) ([]models.SearchEntry, error) {
	data, err := s.kv.Get(ctx, keySearch)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read search projection: %w", err)
	}

	var search []models.SearchEntry
	if err := json.Unmarshal(data, &search); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search projection: %w", err)
	}
	return search, nil
}
