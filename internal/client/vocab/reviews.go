package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/kotobako/internal/client/storage"
	"github.com/iudanet/kotobako/internal/models"
	"github.com/iudanet/kotobako/internal/validation"
)

// GetFsrsPartition возвращает месячную партицию состояний планировщика;
// отсутствующая партиция - пустая
func (s *Store) GetFsrsPartition(ctx context.Context, month string) (models.FsrsPartition, error) {
	partition := models.NewFsrsPartition()

	data, err := s.kv.Get(ctx, fsrsKey(month))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return partition, nil
		}
		return partition, fmt.Errorf("failed to read fsrs partition %s: %w", month, err)
	}

	if err := json.Unmarshal(data, &partition); err != nil {
		return partition, fmt.Errorf("failed to unmarshal fsrs partition %s: %w", month, err)
	}
	if partition.CardStates == nil {
		partition.CardStates = make(map[string]models.CardState)
	}
	return partition, nil
}

// SaveFsrsPartition сохраняет месячную партицию состояний планировщика
func (s *Store) SaveFsrsPartition(ctx context.Context, month string, partition models.FsrsPartition) error {
	data, err := marshal(partition)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, fsrsKey(month), data)
}

// GetReviewPartition возвращает месячную партицию журнала повторений;
// отсутствующая партиция - пустая
func (s *Store) GetReviewPartition(ctx context.Context, month string) (models.ReviewPartition, error) {
	var partition models.ReviewPartition

	data, err := s.kv.Get(ctx, reviewsKey(month))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return partition, nil
		}
		return partition, fmt.Errorf("failed to read review partition %s: %w", month, err)
	}

	if err := json.Unmarshal(data, &partition); err != nil {
		return partition, fmt.Errorf("failed to unmarshal review partition %s: %w", month, err)
	}
	return partition, nil
}

// SaveReviewPartition сохраняет месячную партицию журнала повторений
func (s *Store) SaveReviewPartition(ctx context.Context, month string, partition models.ReviewPartition) error {
	data, err := marshal(partition)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, reviewsKey(month), data)
}

// RecordReview добавляет запись в журнал повторений и обновляет состояние
// карточки. Обе месячные партиции и sync state пишутся одним batch'ем.
// Месяц выводится из reviewed_at (первые 7 символов ISO-8601).
func (s *Store) RecordReview(ctx context.Context, log models.ReviewLog, state models.CardState) error {
	if log.VocabID == "" {
		return fmt.Errorf("review log: vocab_id cannot be empty")
	}
	if len(log.ReviewedAt) < len(validation.MonthLayout) {
		return fmt.Errorf("review log: invalid reviewed_at %q", log.ReviewedAt)
	}
	month := log.ReviewedAt[:len(validation.MonthLayout)]
	if err := validation.ValidateMonth(month); err != nil {
		return fmt.Errorf("review log: %w", err)
	}

	reviews, err := s.GetReviewPartition(ctx, month)
	if err != nil {
		return err
	}
	fsrs, err := s.GetFsrsPartition(ctx, month)
	if err != nil {
		return err
	}
	syncState, err := s.LoadSyncState(ctx)
	if err != nil {
		return err
	}

	// Журнал append-only: дубликат по составному ключу не добавляем
	for _, existing := range reviews.Logs {
		if existing.Key() == log.Key() {
			return nil
		}
	}
	reviews.Logs = append(reviews.Logs, log)

	state.LastReview = &log.ReviewedAt
	fsrs.CardStates[log.VocabID] = state

	syncState.DirtyReviews[month] = true
	syncState.DirtyFsrs[month] = true

	batch := storage.Batch{Put: make(map[string][]byte)}

	reviewsData, err := marshal(reviews)
	if err != nil {
		return err
	}
	batch.Put[reviewsKey(month)] = reviewsData

	fsrsData, err := marshal(fsrs)
	if err != nil {
		return err
	}
	batch.Put[fsrsKey(month)] = fsrsData

	stateData, err := marshal(syncState)
	if err != nil {
		return err
	}
	batch.Put[keySyncState] = stateData

	return s.kv.Apply(ctx, batch)
}
