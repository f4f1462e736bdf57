package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/kotobako/internal/client/blobstore"
	"github.com/iudanet/kotobako/internal/client/syncsession"
	"github.com/iudanet/kotobako/internal/client/vocab"
	"github.com/iudanet/kotobako/internal/merge"
	"github.com/iudanet/kotobako/internal/models"
	"github.com/iudanet/kotobako/internal/parallel"
)

// monthKind различает два вида месячных партиций
type monthKind int

const (
	kindFsrs monthKind = iota
	kindReviews
)

func (k monthKind) blobName(month string) string {
	if k == kindFsrs {
		return models.FsrsBlobName(month)
	}
	return models.ReviewsBlobName(month)
}

// pulledMonth - результат скачивания одной месячной партиции
type pulledMonth struct {
	kind    monthKind
	month   string
	version int64
	fsrs    models.FsrsPartition
	reviews models.ReviewPartition
}

// pullMonthly скачивает и вливает месячные партиции планировщика и журнала
// повторений по версиям из метаданных
func (s *Service) pullMonthly(
	ctx context.Context,
	session *syncsession.Session,
	state *vocab.SyncState,
	result *Result,
) error {
	meta := session.Metadata()

	var toPull []pulledMonth
	for month, remoteVer := range meta.FsrsPartitionVersions {
		if remoteVer > state.FsrsVersions[month] {
			toPull = append(toPull, pulledMonth{kind: kindFsrs, month: month, version: remoteVer})
		}
	}
	for month, remoteVer := range meta.ReviewPartitionVersions {
		if remoteVer > state.ReviewVersions[month] {
			toPull = append(toPull, pulledMonth{kind: kindReviews, month: month, version: remoteVer})
		}
	}
	if len(toPull) == 0 {
		return nil
	}

	fetched := parallel.Map(ctx, toPull, s.concurrency,
		func(ctx context.Context, item pulledMonth) (pulledMonth, error) {
			id, ok := session.FileID(item.kind.blobName(item.month))
			if !ok {
				return item, nil
			}
			switch item.kind {
			case kindFsrs:
				partition, err := s.fetchFsrs(ctx, session, id, item.month)
				if err != nil {
					return item, err
				}
				item.fsrs = partition
			case kindReviews:
				partition, err := s.fetchReviews(ctx, session, id, item.month)
				if err != nil {
					return item, err
				}
				item.reviews = partition
			}
			return item, nil
		})

	for i, r := range fetched {
		if !r.Fulfilled() {
			s.logger.Warn("failed to pull monthly partition",
				"month", toPull[i].month, "error", r.Err)
			result.Failed++
			continue
		}
		item := r.Value

		switch item.kind {
		case kindFsrs:
			local, err := s.store.GetFsrsPartition(ctx, item.month)
			if err != nil {
				return err
			}
			merged := merge.FsrsStates(local, item.fsrs)
			if err := s.store.SaveFsrsPartition(ctx, item.month, merged); err != nil {
				return err
			}
			state.FsrsVersions[item.month] = item.version
		case kindReviews:
			local, err := s.store.GetReviewPartition(ctx, item.month)
			if err != nil {
				return err
			}
			merged := merge.ReviewLogs(local, item.reviews)
			if err := s.store.SaveReviewPartition(ctx, item.month, merged); err != nil {
				return err
			}
			state.ReviewVersions[item.month] = item.version
		}
		result.PulledMonths++
	}

	return nil
}

// pushedMonth - результат push одной месячной партиции
type pushedMonth struct {
	kind      monthKind
	month     string
	version   int64
	fsrs      models.FsrsPartition
	reviews   models.ReviewPartition
	createdID string
	blobName  string
}

// pushMonthly отправляет грязные месячные партиции тем же протоколом
// read-merge-write, что и партиции словаря
func (s *Service) pushMonthly(
	ctx context.Context,
	session *syncsession.Session,
	state *vocab.SyncState,
	result *Result,
) error {
	var dirty []pushedMonth
	for month := range state.DirtyFsrs {
		dirty = append(dirty, pushedMonth{kind: kindFsrs, month: month})
	}
	for month := range state.DirtyReviews {
		dirty = append(dirty, pushedMonth{kind: kindReviews, month: month})
	}
	if len(dirty) == 0 {
		return nil
	}

	pushed := parallel.Map(ctx, dirty, s.concurrency,
		func(ctx context.Context, item pushedMonth) (pushedMonth, error) {
			return s.pushOneMonth(ctx, session, state, item)
		})

	for i, r := range pushed {
		if !r.Fulfilled() {
			s.logger.Warn("failed to push monthly partition",
				"month", dirty[i].month, "error", r.Err)
			result.Failed++
			continue
		}
		item := r.Value

		if item.createdID != "" {
			session.RegisterFileID(item.blobName, item.createdID)
		}

		switch item.kind {
		case kindFsrs:
			session.BumpFsrs(item.month, item.version)
			if err := s.store.SaveFsrsPartition(ctx, item.month, item.fsrs); err != nil {
				return err
			}
			state.FsrsVersions[item.month] = item.version
			delete(state.DirtyFsrs, item.month)
		case kindReviews:
			session.BumpReviews(item.month, item.version)
			if err := s.store.SaveReviewPartition(ctx, item.month, item.reviews); err != nil {
				return err
			}
			state.ReviewVersions[item.month] = item.version
			delete(state.DirtyReviews, item.month)
		}
		result.PushedMonths++
	}

	return nil
}

// pushOneMonth выполняет удаленную часть push для одной месячной партиции
func (s *Service) pushOneMonth(
	ctx context.Context,
	session *syncsession.Session,
	state *vocab.SyncState,
	item pushedMonth,
) (pushedMonth, error) {
	item.blobName = item.kind.blobName(item.month)

	var content []byte
	var remoteVersion int64

	switch item.kind {
	case kindFsrs:
		local, err := s.store.GetFsrsPartition(ctx, item.month)
		if err != nil {
			return item, err
		}
		remote := models.NewFsrsPartition()
		if id, ok := session.FileID(item.blobName); ok {
			remote, err = s.fetchFsrs(ctx, session, id, item.month)
			if err != nil {
				return item, err
			}
		}
		remoteVersion = remote.Version

		merged := merge.FsrsStates(local, remote)
		merged.Version = nextVersion(state.FsrsVersions[item.month], remoteVersion)
		item.fsrs = merged
		item.version = merged.Version

		content, err = json.Marshal(merged)
		if err != nil {
			return item, fmt.Errorf("failed to marshal fsrs partition %s: %w", item.month, err)
		}
	case kindReviews:
		local, err := s.store.GetReviewPartition(ctx, item.month)
		if err != nil {
			return item, err
		}
		var remote models.ReviewPartition
		if id, ok := session.FileID(item.blobName); ok {
			remote, err = s.fetchReviews(ctx, session, id, item.month)
			if err != nil {
				return item, err
			}
		}
		remoteVersion = remote.Version

		merged := merge.ReviewLogs(local, remote)
		merged.Version = nextVersion(state.ReviewVersions[item.month], remoteVersion)
		item.reviews = merged
		item.version = merged.Version

		content, err = json.Marshal(merged)
		if err != nil {
			return item, fmt.Errorf("failed to marshal review partition %s: %w", item.month, err)
		}
	}

	if id, ok := session.FileID(item.blobName); ok {
		if err := s.client.UpdateFile(ctx, session.Token(), id, content); err != nil {
			return item, err
		}
	} else {
		createdID, err := s.client.CreateFile(ctx, session.Token(), item.blobName, content)
		if err != nil {
			return item, err
		}
		item.createdID = createdID
	}

	return item, nil
}

func nextVersion(local, remote int64) int64 {
	if remote > local {
		return remote + 1
	}
	return local + 1
}

func (s *Service) fetchFsrs(
	ctx context.Context,
	session *syncsession.Session,
	id, month string,
) (models.FsrsPartition, error) {
	partition, err := blobstore.GetFile[models.FsrsPartition](ctx, s.client, session.Token(), id)
	if err != nil {
		if errors.Is(err, blobstore.ErrFileNotFound) || errors.Is(err, blobstore.ErrCorruptContent) {
			s.logger.Warn("remote fsrs partition missing or corrupt, treating as empty",
				"month", month, "error", err)
			return models.NewFsrsPartition(), nil
		}
		return models.FsrsPartition{}, err
	}
	if partition.CardStates == nil {
		partition.CardStates = make(map[string]models.CardState)
	}
	return partition, nil
}

func (s *Service) fetchReviews(
	ctx context.Context,
	session *syncsession.Session,
	id, month string,
) (models.ReviewPartition, error) {
	partition, err := blobstore.GetFile[models.ReviewPartition](ctx, s.client, session.Token(), id)
	if err != nil {
		if errors.Is(err, blobstore.ErrFileNotFound) || errors.Is(err, blobstore.ErrCorruptContent) {
			s.logger.Warn("remote review partition missing or corrupt, treating as empty",
				"month", month, "error", err)
			return models.ReviewPartition{}, nil
		}
		return models.ReviewPartition{}, err
	}
	return partition, nil
}
