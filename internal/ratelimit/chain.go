package ratelimit

// Limiter ограничитель частоты запросов по ключу
type Limiter interface {
	Allow(key string) bool
	Name() string
}

// Chain объединяет несколько ограничителей для одного ключа.
// Запрос допускается, только если его допускают все ограничители.
type Chain struct {
	limiters []Limiter
}

// NewChain создает цепочку. Ограничители проверяются в переданном порядке.
func NewChain(limiters ...Limiter) *Chain {
	return &Chain{limiters: limiters}
}

// Allow проверяет ключ по всем ограничителям по очереди.
// При отказе возвращает имя первого отказавшего ограничителя;
// следующие за ним ограничители запрос не учитывают.
func (c *Chain) Allow(key string) (bool, string) {
	for _, l := range c.limiters {
		if !l.Allow(key) {
			return false, l.Name()
		}
	}
	return true, ""
}

// Stop останавливает очистку во всех ограничителях, которые ее поддерживают
func (c *Chain) Stop() {
	for _, l := range c.limiters {
		if s, ok := l.(interface{ Stop() }); ok {
			s.Stop()
		}
	}
}
