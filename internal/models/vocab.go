package models

// VocabEntry представляет одну словарную запись пользователя.
// Поля слова (word, reading, romaji и т.д.) - непрозрачные данные для движка
// синхронизации: он оперирует только ID, DateAdded и Timestamp.
type VocabEntry struct {
	ID              string   `json:"id"`              // ID уникальный идентификатор записи, генерируется клиентом, не переиспользуется
	Word            string   `json:"word"`            // Word слово
	Reading         string   `json:"reading"`         // Reading чтение (кана)
	Romaji          string   `json:"romaji"`          // Romaji латинская транскрипция
	Meaning         string   `json:"meaning"`         // Meaning перевод
	PartOfSpeech    string   `json:"pos"`             // PartOfSpeech часть речи
	ExampleSentence string   `json:"exampleSentence"` // ExampleSentence пример употребления
	ExampleSource   string   `json:"exampleSource"`   // ExampleSource источник примера
	Note            string   `json:"note"`            // Note произвольная заметка
	Tags            []string `json:"tags"`            // Tags набор тегов
	DateAdded       string   `json:"dateAdded"`       // DateAdded календарная дата YYYY-MM-DD, ключ партиции
	Timestamp       int64    `json:"timestamp"`       // Timestamp логическое время записи (unix millis), строго растет при каждом изменении
}

// Clone создает глубокую копию записи
func (e *VocabEntry) Clone() *VocabEntry {
	tags := make([]string, len(e.Tags))
	copy(tags, e.Tags)

	c := *e
	c.Tags = tags
	return &c
}

// VocabPartition представляет единицу удаленного хранения: все записи
// с одинаковой DateAdded плюс монотонный счетчик версии партиции.
type VocabPartition struct {
	Date    string       `json:"date"`
	Entries []VocabEntry `json:"entries"`
	Version int64        `json:"version"`
}

// Index - производная структура: список дат (по убыванию) и общее число записей.
// Восстанавливается из партиций, никогда не является источником истины.
type Index struct {
	Dates      []string `json:"dates"`
	TotalCount int      `json:"totalCount"`
}

// SearchEntry - денормализованная проекция VocabEntry для поиска подстроки
// без загрузки всех партиций. Инвариант: ровно одна SearchEntry на живую запись.
type SearchEntry struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Word    string `json:"word"`
	Reading string `json:"reading"`
	Romaji  string `json:"romaji"`
	Meaning string `json:"meaning"`
	Note    string `json:"note"`
}

// NewSearchEntry строит поисковую проекцию записи
func NewSearchEntry(e *VocabEntry) SearchEntry {
	return SearchEntry{
		ID:      e.ID,
		Date:    e.DateAdded,
		Word:    e.Word,
		Reading: e.Reading,
		Romaji:  e.Romaji,
		Meaning: e.Meaning,
		Note:    e.Note,
	}
}
