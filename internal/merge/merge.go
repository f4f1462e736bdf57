// Package merge содержит чистые функции разрешения конфликтов между
// локальной и удаленной копиями данных. Пакет не выполняет I/O: вся
// коммутативность и идемпотентность слияния проверяется юнит-тестами.
package merge

import (
	"sort"
	"time"

	"github.com/iudanet/kotobako/internal/models"
	"github.com/iudanet/kotobako/pkg/api"
)

// TombstoneRetention - окно хранения tombstone'ов. После его истечения
// удаление забывается, и реплика со старой неудаленной копией может
// воскресить запись при следующей синхронизации.
const TombstoneRetention = 30 * 24 * time.Hour

// Entries сливает локальные и удаленные записи одной партиции по правилу LWW.
// Карта результата засевается локальными записями, затем удаленная запись
// принимается, только если локального аналога нет или ее timestamp строго больше.
// Записи с id из tombstones исключаются безусловно, независимо от timestamp
// обеих сторон: пока tombstone не собран сборщиком, удаление побеждает любую
// выжившую копию (в том числе легитимное пересоздание того же id).
func Entries(local, remote []models.VocabEntry, tombstones map[string]int64) []models.VocabEntry {
	byID := make(map[string]int, len(local)) // id -> позиция в result
	result := make([]models.VocabEntry, 0, len(local)+len(remote))

	for _, e := range local {
		if _, deleted := tombstones[e.ID]; deleted {
			continue
		}
		byID[e.ID] = len(result)
		result = append(result, e)
	}

	for _, e := range remote {
		if _, deleted := tombstones[e.ID]; deleted {
			continue
		}

		pos, exists := byID[e.ID]
		if !exists {
			byID[e.ID] = len(result)
			result = append(result, e)
			continue
		}

		// Удаленная версия побеждает только при строго большем timestamp;
		// при равенстве остается локальная копия.
		if e.Timestamp > result[pos].Timestamp {
			result[pos] = e
		}
	}

	return result
}

// FsrsStates сливает две партиции состояний планировщика по id карточки.
// «Повторялась» строго информативнее, чем «не повторялась»: удаленное
// состояние с last_review вытесняет локальное без него. Если обе стороны
// повторялись, побеждает строго более позднее last_review, иначе остается
// локальное состояние. Версия результата - максимум версий сторон.
func FsrsStates(local, remote models.FsrsPartition) models.FsrsPartition {
	merged := models.FsrsPartition{
		CardStates: make(map[string]models.CardState, len(local.CardStates)+len(remote.CardStates)),
		Version:    maxInt64(local.Version, remote.Version),
	}

	for id, state := range local.CardStates {
		merged.CardStates[id] = state
	}

	for id, remoteState := range remote.CardStates {
		localState, exists := merged.CardStates[id]
		if !exists {
			merged.CardStates[id] = remoteState
			continue
		}

		if localState.LastReview == nil {
			if remoteState.LastReview != nil {
				merged.CardStates[id] = remoteState
			}
			continue
		}

		// ISO-8601 фиксированной ширины: сравнение строк = сравнение времени
		if remoteState.LastReview != nil && *remoteState.LastReview > *localState.LastReview {
			merged.CardStates[id] = remoteState
		}
	}

	return merged
}

// ReviewLogs сливает две партиции журнала повторений: конкатенация,
// дедупликация по составному ключу (первое вхождение побеждает), сортировка
// по reviewed_at по возрастанию. Версия результата - максимум версий сторон.
func ReviewLogs(local, remote models.ReviewPartition) models.ReviewPartition {
	seen := make(map[string]bool, len(local.Logs)+len(remote.Logs))
	logs := make([]models.ReviewLog, 0, len(local.Logs)+len(remote.Logs))

	for _, l := range local.Logs {
		if seen[l.Key()] {
			continue
		}
		seen[l.Key()] = true
		logs = append(logs, l)
	}
	for _, l := range remote.Logs {
		if seen[l.Key()] {
			continue
		}
		seen[l.Key()] = true
		logs = append(logs, l)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].ReviewedAt < logs[j].ReviewedAt
	})

	return models.ReviewPartition{
		Logs:    logs,
		Version: maxInt64(local.Version, remote.Version),
	}
}

// CleanTombstones возвращает только те tombstone'ы, чей возраст относительно
// now меньше окна хранения. Истекшие отбрасываются.
func CleanTombstones(deleted map[string]int64, now time.Time) map[string]int64 {
	kept := make(map[string]int64, len(deleted))
	cutoff := now.Add(-TombstoneRetention).UnixMilli()

	for id, deletedAt := range deleted {
		if deletedAt > cutoff {
			kept[id] = deletedAt
		}
	}

	return kept
}

// CountChangedEntries считает, насколько after отличается от before:
// новые id, id с изменившимся timestamp и id, исчезнувшие из after (удаления).
// Метрика для UI/телеметрии, на корректность слияния не влияет.
func CountChangedEntries(before, after []models.VocabEntry) int {
	beforeTS := make(map[string]int64, len(before))
	for _, e := range before {
		beforeTS[e.ID] = e.Timestamp
	}

	changed := 0
	afterIDs := make(map[string]bool, len(after))

	for _, e := range after {
		afterIDs[e.ID] = true
		ts, existed := beforeTS[e.ID]
		if !existed || ts != e.Timestamp {
			changed++
		}
	}

	for id := range beforeTS {
		if !afterIDs[id] {
			changed++
		}
	}

	return changed
}

// BuildFileIDMap строит проекцию name -> id из результата листинга
func BuildFileIDMap(files []api.File) map[string]string {
	m := make(map[string]string, len(files))
	for _, f := range files {
		m[f.Name] = f.ID
	}
	return m
}

// MaxVersions сливает две карты версий, беря максимум по каждому ключу.
// Версия никогда не регрессирует, повторное применение патча безвредно.
func MaxVersions(base, patch map[string]int64) map[string]int64 {
	merged := make(map[string]int64, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		if v > merged[k] {
			merged[k] = v
		}
	}
	return merged
}

// UnionTombstones объединяет два множества tombstone'ов.
// При совпадении id берется более позднее время удаления.
func UnionTombstones(a, b map[string]int64) map[string]int64 {
	merged := make(map[string]int64, len(a)+len(b))
	for id, ts := range a {
		merged[id] = ts
	}
	for id, ts := range b {
		if ts > merged[id] {
			merged[id] = ts
		}
	}
	return merged
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
