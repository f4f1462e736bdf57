// Package vocab реализует локальное партиционированное хранилище словаря:
// партиции по дате добавления, производный индекс и плоская поисковая
// проекция. Все мутации применяются одним атомарным batch'ем, чтобы запись
// никогда не была видна без своего индекса и поисковой записи.
package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/kotobako/internal/client/storage"
	"github.com/iudanet/kotobako/internal/clock"
)

// Ключи в KV-хранилище
const (
	keyIndex     = "index"
	keySearch    = "search"
	keySyncState = "sync/state"

	prefixVocab   = "vocab/"
	prefixFsrs    = "fsrs/"
	prefixReviews = "reviews/"
)

// ErrEntryNotFound возвращается при запросе записи по несуществующему id
var ErrEntryNotFound = errors.New("vocab entry not found")

// Store - локальное хранилище словаря поверх KV
type Store struct {
	kv     storage.KV
	clock  *clock.Clock
	logger *slog.Logger
}

// New создает хранилище поверх произвольной KV-реализации
func New(kv storage.KV, clk *clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		clock:  clk,
		logger: logger,
	}
}

// Clock возвращает часы записи хранилища. Нужен движку синхронизации,
// чтобы подвинуть часы вперед при появлении более свежих удаленных timestamp.
func (s *Store) Clock() *clock.Clock {
	return s.clock
}

func vocabKey(date string) string {
	return prefixVocab + date
}

func fsrsKey(month string) string {
	return prefixFsrs + month
}

func reviewsKey(month string) string {
	return prefixReviews + month
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	return data, nil
}
