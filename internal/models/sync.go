package models

// Имена удаленных блобов. Схема фиксирована: все клиенты должны использовать
// одни и те же имена, иначе реплики не увидят данные друг друга.
const (
	// MetadataBlobName singleton-блоб с метаданными синхронизации
	MetadataBlobName = "sync_metadata.json"

	// IndexBlobName зарезервированное имя для удаленного индекса.
	// Не создается и не читается текущей логикой синхронизации.
	IndexBlobName = "vocab_index.json"
)

// VocabBlobName возвращает имя блоба партиции словаря за дату YYYY-MM-DD
func VocabBlobName(date string) string {
	return "vocab_" + date + ".json"
}

// FsrsBlobName возвращает имя блоба партиции состояний планировщика за месяц YYYY-MM
func FsrsBlobName(month string) string {
	return "fsrs_" + month + ".json"
}

// ReviewsBlobName возвращает имя блоба партиции журнала повторений за месяц YYYY-MM
func ReviewsBlobName(month string) string {
	return "reviews_" + month + ".json"
}

// SyncMetadata - singleton-блоб с общим состоянием синхронизации.
// DeletedEntries - множество tombstone'ов: удаление фиксируется явно
// (id -> время удаления в unix millis), а не как отсутствие записи,
// чтобы «запись удалена» пережила гонку с «запись существует» на репликах,
// которые еще не видели удаление.
type SyncMetadata struct {
	PartitionVersions       map[string]int64 `json:"partitionVersions"`
	DeletedEntries          map[string]int64 `json:"deletedEntries"`
	FsrsPartitionVersions   map[string]int64 `json:"fsrsPartitionVersions,omitempty"`
	ReviewPartitionVersions map[string]int64 `json:"reviewPartitionVersions,omitempty"`
}

// NewSyncMetadata возвращает пустые метаданные (дефолт при отсутствии блоба)
func NewSyncMetadata() SyncMetadata {
	return SyncMetadata{
		PartitionVersions: make(map[string]int64),
		DeletedEntries:    make(map[string]int64),
	}
}

// CardState - состояние карточки планировщика для одной словарной записи.
// Поля планирования непрозрачны для движка синхронизации; при слиянии
// используется только LastReview.
type CardState struct {
	Due        string  `json:"due,omitempty"`
	Stability  float64 `json:"stability"`
	Difficulty float64 `json:"difficulty"`
	Reps       int     `json:"reps"`
	Lapses     int     `json:"lapses"`
	State      int     `json:"state"`
	LastReview *string `json:"last_review"` // ISO-8601 UTC, nil если карточка ни разу не повторялась
}

// FsrsPartition - месячная партиция состояний планировщика
type FsrsPartition struct {
	CardStates map[string]CardState `json:"cardStates"`
	Version    int64                `json:"version"`
}

// NewFsrsPartition возвращает пустую партицию состояний
func NewFsrsPartition() FsrsPartition {
	return FsrsPartition{CardStates: make(map[string]CardState)}
}

// ReviewLog - одна запись журнала повторений, append-only.
// Уникально идентифицируется составным ключом (VocabID, ReviewedAt).
type ReviewLog struct {
	VocabID    string `json:"vocab_id"`
	Rating     int    `json:"rating"`
	ReviewedAt string `json:"reviewed_at"` // ISO-8601 UTC фиксированной ширины: лексикографический порядок равен хронологическому
}

// Key возвращает составной ключ для дедупликации журнала
func (l ReviewLog) Key() string {
	return l.VocabID + "|" + l.ReviewedAt
}

// ReviewPartition - месячная партиция журнала повторений
type ReviewPartition struct {
	Logs    []ReviewLog `json:"logs"`
	Version int64       `json:"version"`
}
