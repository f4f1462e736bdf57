// Package clock предоставляет источник логического времени записи.
package clock

import (
	"sync"
	"time"
)

// Clock выдает строго возрастающие timestamps в unix миллисекундах.
// Timestamp записи используется как tie-breaker при LWW-слиянии, поэтому
// два последовательных локальных изменения одной записи обязаны получить
// разные значения даже в пределах одной миллисекунды.
type Clock struct {
	last int64
	now  func() time.Time
	mu   sync.Mutex
}

// New создает новый Clock на основе системного времени
func New() *Clock {
	return &Clock{now: time.Now}
}

// NewWithNowFunc создает Clock с заданным источником времени.
// Используется в тестах.
func NewWithNowFunc(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Next возвращает следующий timestamp: max(now, last+1).
// Гарантирует строгую монотонность в пределах процесса; между репликами
// порядок обеспечивается обычным ходом физического времени.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts

	return ts
}

// Observe подтягивает счетчик к удаленному timestamp, чтобы следующая
// локальная запись гарантированно перебила принятую удаленную версию.
func (c *Clock) Observe(remote int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remote > c.last {
		c.last = remote
	}
}
