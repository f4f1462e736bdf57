// Package parallel предоставляет ограниченный параллельный запуск операций
// над набором элементов. Используется для партиционных чтений/записей в
// удаленное хранилище: лимит одновременных запросов уважает rate limit
// сервера, а отказ одного элемента не прерывает остальные.
package parallel

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultConcurrency - лимит одновременных удаленных операций по умолчанию
const DefaultConcurrency = 5

// Result - результат обработки одного элемента.
// Ошибка фиксируется на месте элемента, не прерывая обработку остальных.
type Result[R any] struct {
	Value R
	Err   error
}

// Fulfilled сообщает, завершился ли элемент успешно
func (r Result[R]) Fulfilled() bool {
	return r.Err == nil
}

// Map выполняет fn над каждым элементом items пулом из
// min(concurrency, len(items)) воркеров, разбирающих элементы через общий
// счетчик индексов. Результаты возвращаются в порядке входного среза
// независимо от порядка завершения. Если ctx отменен, оставшиеся элементы
// получают ctx.Err() без вызова fn.
func Map[T, R any](ctx context.Context, items []T, concurrency int, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	var next atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for {
				i := int(next.Add(1)) - 1
				if i >= len(items) {
					return
				}

				if err := ctx.Err(); err != nil {
					results[i] = Result[R]{Err: err}
					continue
				}

				value, err := fn(ctx, items[i])
				results[i] = Result[R]{Value: value, Err: err}
			}
		}()
	}

	wg.Wait()
	return results
}
