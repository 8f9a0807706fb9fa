// Package ratelimit реализует ограничение частоты запросов по скользящему окну.
package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow ограничивает число запросов на ключ за скользящее окно.
// Для каждого ключа хранятся метки времени запросов внутри окна.
type SlidingWindow struct {
	entries  map[string][]time.Time
	now      func() time.Time
	cleanupC chan struct{}
	name     string
	limit    int
	window   time.Duration
	mu       sync.Mutex
	stopOnce sync.Once
}

// NewSlidingWindow создает limiter и запускает периодическую очистку ключей.
// name - имя правила, возвращаемое Chain при отказе
// limit - максимальное количество запросов за окно
// window - длина окна; 0 отключает ограничение
func NewSlidingWindow(name string, limit int, window time.Duration) *SlidingWindow {
	return NewSlidingWindowWithClock(name, limit, window, time.Now)
}

// NewSlidingWindowWithClock создает limiter с заданными часами (для тестов)
func NewSlidingWindowWithClock(name string, limit int, window time.Duration, now func() time.Time) *SlidingWindow {
	sw := &SlidingWindow{
		entries:  make(map[string][]time.Time),
		now:      now,
		cleanupC: make(chan struct{}),
		name:     name,
		limit:    limit,
		window:   window,
	}

	go sw.cleanup()

	return sw
}

// Name возвращает имя правила
func (sw *SlidingWindow) Name() string { return sw.name }

// Limit возвращает максимальное количество запросов за окно
func (sw *SlidingWindow) Limit() int { return sw.limit }

// Window возвращает длину окна
func (sw *SlidingWindow) Window() time.Duration { return sw.window }

// Allow проверяет и учитывает запрос для ключа.
// Устаревшие метки отбрасываются, и при отказе сохраняется уже очищенный список.
func (sw *SlidingWindow) Allow(key string) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	recent := sw.prune(sw.entries[key], now)

	if len(recent) >= sw.limit && sw.window > 0 {
		sw.store(key, recent)
		return false
	}

	sw.store(key, append(recent, now))
	return true
}

// Remaining возвращает, сколько запросов еще допустимо для ключа в текущем окне
func (sw *SlidingWindow) Remaining(key string) int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.window <= 0 {
		return sw.limit
	}

	n := sw.limit - len(sw.prune(sw.entries[key], sw.now()))
	if n < 0 {
		return 0
	}
	return n
}

// RetryAfter возвращает время до освобождения слота для ключа.
// Ноль, если запрос был бы принят сейчас.
func (sw *SlidingWindow) RetryAfter(key string) time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.window <= 0 {
		return 0
	}

	now := sw.now()
	recent := sw.prune(sw.entries[key], now)
	if len(recent) < sw.limit {
		return 0
	}
	// слот освободится, когда из окна выйдет метка, превышающая лимит
	return recent[len(recent)-sw.limit].Add(sw.window).Sub(now)
}

// Len возвращает количество отслеживаемых ключей
func (sw *SlidingWindow) Len() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return len(sw.entries)
}

// Reset забывает все ключи
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.entries = make(map[string][]time.Time)
}

// Sweep удаляет ключи, у которых все метки вышли за окно
func (sw *SlidingWindow) Sweep() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	for key, ts := range sw.entries {
		recent := sw.prune(ts, now)
		if len(recent) == 0 {
			delete(sw.entries, key)
			continue
		}
		sw.entries[key] = recent
	}
}

// Stop останавливает cleanup goroutine. Повторный вызов безопасен.
func (sw *SlidingWindow) Stop() {
	sw.stopOnce.Do(func() {
		close(sw.cleanupC)
	})
}

// cleanup периодически вызывает Sweep
func (sw *SlidingWindow) cleanup() {
	interval := sw.window
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.Sweep()
		case <-sw.cleanupC:
			return
		}
	}
}

// prune оставляет только метки, для которых now - ts < window.
// Метки хранятся по возрастанию, поэтому достаточно найти первую актуальную.
func (sw *SlidingWindow) prune(ts []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= sw.window {
		i++
	}
	return ts[i:]
}

func (sw *SlidingWindow) store(key string, ts []time.Time) {
	if len(ts) == 0 {
		delete(sw.entries, key)
		return
	}
	sw.entries[key] = ts
}
