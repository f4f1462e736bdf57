package validation

import (
	"fmt"
	"time"

	"github.com/iudanet/kotobako/internal/models"
)

const (
	// DateLayout формат ключа дневной партиции
	DateLayout = "2006-01-02"
	// MonthLayout формат ключа месячной партиции
	MonthLayout = "2006-01"
)

// ValidateDate проверяет, что date - календарная дата в формате YYYY-MM-DD
func ValidateDate(date string) error {
	if date == "" {
		return fmt.Errorf("date cannot be empty")
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("date must be in YYYY-MM-DD format: %w", err)
	}
	return nil
}

// ValidateMonth проверяет, что month - месяц в формате YYYY-MM
func ValidateMonth(month string) error {
	if month == "" {
		return fmt.Errorf("month cannot be empty")
	}
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return fmt.Errorf("month must be in YYYY-MM format: %w", err)
	}
	return nil
}

// ValidateEntry проверяет минимальные требования к словарной записи
// перед сохранением в локальное хранилище
func ValidateEntry(e *models.VocabEntry) error {
	if e == nil {
		return fmt.Errorf("entry is nil")
	}
	if e.ID == "" {
		return fmt.Errorf("entry id cannot be empty")
	}
	if e.Word == "" {
		return fmt.Errorf("word cannot be empty")
	}
	if err := ValidateDate(e.DateAdded); err != nil {
		return fmt.Errorf("invalid dateAdded: %w", err)
	}
	return nil
}

// ValidateQuery проверяет поисковый запрос
func ValidateQuery(query string) error {
	if query == "" {
		return fmt.Errorf("search query cannot be empty")
	}
	return nil
}
