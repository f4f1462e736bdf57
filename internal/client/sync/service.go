// Package sync реализует оркестратор синхронизации: один проход
// pull+push над партициями словаря, состояний планировщика и журнала
// повторений, с ограниченным числом одновременных удаленных операций.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/iudanet/kotobako/internal/client/blobstore"
	"github.com/iudanet/kotobako/internal/client/syncsession"
	"github.com/iudanet/kotobako/internal/client/vocab"
	"github.com/iudanet/kotobako/internal/merge"
	"github.com/iudanet/kotobako/internal/models"
	"github.com/iudanet/kotobako/internal/parallel"
)

// ErrSyncInProgress возвращается при попытке запустить второй проход
// синхронизации, пока не завершился первый
var ErrSyncInProgress = errors.New("sync already in progress")

// Result contains sync operation results
type Result struct {
	PulledPartitions int // партиций словаря получено с сервера
	PushedPartitions int // партиций словаря отправлено на сервер
	PulledMonths     int // месячных партиций (fsrs + журнал) получено
	PushedMonths     int // месячных партиций (fsrs + журнал) отправлено
	ChangedEntries   int // записей изменилось локально в результате pull
	Failed           int // партиций, не синхронизированных из-за ошибок
}

// Changed сообщает, изменилось ли что-нибудь за проход
func (r *Result) Changed() bool {
	return r.PulledPartitions+r.PushedPartitions+r.PulledMonths+r.PushedMonths > 0
}

// Service handles synchronization between the local store and the blob store
type Service struct {
	client      blobstore.API
	store       *vocab.Store
	logger      *slog.Logger
	concurrency int

	// Один проход за раз: защита не мьютексом, а in-flight флагом -
	// второй вызов получает ошибку, а не блокируется
	inFlight atomic.Bool
}

// NewService creates a new sync service
func NewService(client blobstore.API, store *vocab.Store, logger *slog.Logger) *Service {
	return &Service{
		client:      client,
		store:       store,
		logger:      logger,
		concurrency: parallel.DefaultConcurrency,
	}
}

// PendingChanges возвращает число локальных изменений, ожидающих push
func (s *Service) PendingChanges(ctx context.Context) (int, error) {
	state, err := s.store.LoadSyncState(ctx)
	if err != nil {
		return 0, err
	}
	return len(state.DirtyPartitions) + len(state.DirtyFsrs) +
		len(state.DirtyReviews) + len(state.LocalTombstones), nil
}

// Sync выполняет один полный проход синхронизации:
//  1. Открывает сессию (один листинг + одно чтение метаданных).
//  2. Pull: партиции, чья удаленная версия больше локально
//     синхронизированной, скачиваются параллельно и вливаются в локальное
//     хранилище по правилам LWW.
//  3. Push: партиции с локальными изменениями перечитываются с сервера,
//     сливаются и записываются с версией max(local, remote)+1.
//  4. Commit метаданных по протоколу re-read-merge-write.
//
// Ошибка отдельной партиции не прерывает проход: она останется грязной
// и уйдет при следующем вызове.
func (s *Service) Sync(ctx context.Context, token string) (*Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.inFlight.Store(false)

	s.logger.Info("starting sync pass")
	result := &Result{}

	state, err := s.store.LoadSyncState(ctx)
	if err != nil {
		return nil, err
	}

	session, err := syncsession.Open(ctx, s.client, token, state.FileIDs, s.logger)
	if err != nil {
		return nil, err
	}
	meta := session.Metadata()

	// Tombstone'ы для слияния: удаленные плюс еще не опубликованные локальные
	tombstones := merge.UnionTombstones(meta.DeletedEntries, state.LocalTombstones)

	if err := s.pullVocab(ctx, session, state, tombstones, result); err != nil {
		return nil, err
	}
	if err := s.pullMonthly(ctx, session, state, result); err != nil {
		return nil, err
	}

	if err := s.pushVocab(ctx, session, state, tombstones, result); err != nil {
		return nil, err
	}
	if err := s.pushMonthly(ctx, session, state, result); err != nil {
		return nil, err
	}

	for id, deletedAt := range state.LocalTombstones {
		session.AddTombstone(id, deletedAt)
	}

	if _, err := session.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sync metadata: %w", err)
	}

	// Локальные tombstone'ы опубликованы (или собраны как мусор) - чистим
	state.LocalTombstones = make(map[string]int64)

	state.FileIDs = session.FileIDCache()
	if err := s.store.SaveSyncState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save sync state: %w", err)
	}

	s.logger.Info("sync pass finished",
		"pulled", result.PulledPartitions,
		"pushed", result.PushedPartitions,
		"pulled_months", result.PulledMonths,
		"pushed_months", result.PushedMonths,
		"changed_entries", result.ChangedEntries,
		"failed", result.Failed)

	return result, nil
}

// pulledPartition - результат скачивания одной партиции словаря
type pulledPartition struct {
	date      string
	partition models.VocabPartition
	version   int64
}

// pullVocab скачивает и вливает партиции словаря, чья удаленная версия
// больше локально синхронизированной. Скачивание параллельное, слияние
// и локальная запись последовательные.
func (s *Service) pullVocab(
	ctx context.Context,
	session *syncsession.Session,
	state *vocab.SyncState,
	tombstones map[string]int64,
	result *Result,
) error {
	meta := session.Metadata()

	var toPull []pulledPartition
	for date, remoteVer := range meta.PartitionVersions {
		if remoteVer > state.PartitionVersions[date] {
			toPull = append(toPull, pulledPartition{date: date, version: remoteVer})
		}
	}
	if len(toPull) == 0 {
		return nil
	}

	fetched := parallel.Map(ctx, toPull, s.concurrency,
		func(ctx context.Context, item pulledPartition) (pulledPartition, error) {
			partition, err := s.fetchVocabPartition(ctx, session, item.date)
			if err != nil {
				return item, err
			}
			item.partition = partition
			return item, nil
		})

	for i, r := range fetched {
		if !r.Fulfilled() {
			s.logger.Warn("failed to pull partition",
				"date", toPull[i].date, "error", r.Err)
			result.Failed++
			continue
		}
		item := r.Value

		local, err := s.store.GetPartition(ctx, item.date)
		if err != nil {
			return err
		}

		// Двигаем часы вперед: новые локальные timestamp должны быть
		// больше всего, что уже видели реплики
		for i := range item.partition.Entries {
			s.store.Clock().Observe(item.partition.Entries[i].Timestamp)
		}

		mergedEntries := merge.Entries(local.Entries, item.partition.Entries, tombstones)
		result.ChangedEntries += merge.CountChangedEntries(local.Entries, mergedEntries)

		mergedPartition := models.VocabPartition{
			Date:    item.date,
			Entries: mergedEntries,
			Version: item.version,
		}
		if err := s.store.ReplacePartition(ctx, mergedPartition); err != nil {
			return err
		}
		state.PartitionVersions[item.date] = item.version
		result.PulledPartitions++
	}

	return nil
}

// pushedPartition - результат push одной партиции словаря
type pushedPartition struct {
	date      string
	partition models.VocabPartition
	createdID string
	blobName  string
}

// pushVocab отправляет партиции с локальными изменениями: каждая
// перечитывается с сервера, сливается и записывается с версией
// max(local, remote)+1. Удаленные операции параллельные, локальные
// записи и патчи сессии последовательные.
func (s *Service) pushVocab(
	ctx context.Context,
	session *syncsession.Session,
	state *vocab.SyncState,
	tombstones map[string]int64,
	result *Result,
) error {
	var dirty []string
	for date := range state.DirtyPartitions {
		dirty = append(dirty, date)
	}
	if len(dirty) == 0 {
		return nil
	}

	pushed := parallel.Map(ctx, dirty, s.concurrency,
		func(ctx context.Context, date string) (pushedPartition, error) {
			return s.pushOneVocab(ctx, session, state, tombstones, date)
		})

	for i, r := range pushed {
		if !r.Fulfilled() {
			// Партиция остается грязной и уйдет на следующем проходе
			s.logger.Warn("failed to push partition",
				"date", dirty[i], "error", r.Err)
			result.Failed++
			continue
		}
		item := r.Value

		if item.createdID != "" {
			session.RegisterFileID(item.blobName, item.createdID)
		}
		session.BumpPartition(item.date, item.partition.Version)

		if err := s.store.ReplacePartition(ctx, item.partition); err != nil {
			return err
		}
		state.PartitionVersions[item.date] = item.partition.Version
		delete(state.DirtyPartitions, item.date)
		result.PushedPartitions++
	}

	return nil
}

// pushOneVocab выполняет удаленную часть push для одной партиции:
// свежее чтение, чистое слияние, запись. Локальное состояние не трогает.
func (s *Service) pushOneVocab(
	ctx context.Context,
	session *syncsession.Session,
	state *vocab.SyncState,
	tombstones map[string]int64,
	date string,
) (pushedPartition, error) {
	out := pushedPartition{date: date, blobName: models.VocabBlobName(date)}

	local, err := s.store.GetPartition(ctx, date)
	if err != nil {
		return out, err
	}

	remote, err := s.fetchVocabPartition(ctx, session, date)
	if err != nil {
		return out, err
	}

	mergedEntries := merge.Entries(local.Entries, remote.Entries, tombstones)

	newVersion := state.PartitionVersions[date]
	if remote.Version > newVersion {
		newVersion = remote.Version
	}
	newVersion++

	out.partition = models.VocabPartition{
		Date:    date,
		Entries: mergedEntries,
		Version: newVersion,
	}

	// Пустая партиция пишется пустой: у хранилища нет операции удаления,
	// а пустое содержимое корректно сливается на любой реплике
	content, err := json.Marshal(out.partition)
	if err != nil {
		return out, fmt.Errorf("failed to marshal partition %s: %w", date, err)
	}

	if id, ok := session.FileID(out.blobName); ok {
		if err := s.client.UpdateFile(ctx, session.Token(), id, content); err != nil {
			return out, err
		}
	} else {
		createdID, err := s.client.CreateFile(ctx, session.Token(), out.blobName, content)
		if err != nil {
			return out, err
		}
		out.createdID = createdID
	}

	return out, nil
}

// fetchVocabPartition читает удаленную партицию словаря. Отсутствие
// и порча дают пустую партицию; транспортная ошибка возвращается наружу.
func (s *Service) fetchVocabPartition(
	ctx context.Context,
	session *syncsession.Session,
	date string,
) (models.VocabPartition, error) {
	empty := models.VocabPartition{Date: date}

	id, ok := session.FileID(models.VocabBlobName(date))
	if !ok {
		return empty, nil
	}

	partition, err := blobstore.GetFile[models.VocabPartition](ctx, s.client, session.Token(), id)
	if err != nil {
		if errors.Is(err, blobstore.ErrFileNotFound) || errors.Is(err, blobstore.ErrCorruptContent) {
			s.logger.Warn("remote partition missing or corrupt, treating as empty",
				"date", date, "error", err)
			return empty, nil
		}
		return empty, err
	}
	partition.Date = date
	return partition, nil
}
