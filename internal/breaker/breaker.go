// Package breaker реализует circuit breaker для одной внешней зависимости.
package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// State состояние circuit breaker
type State int

// Состояния circuit breaker
const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String возвращает имя состояния
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	}
	return "UNKNOWN"
}

// Значения по умолчанию
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 5 * time.Minute
)

// Config параметры circuit breaker
type Config struct {
	// Now часы; по умолчанию time.Now
	Now func() time.Time
	// OnStateChange вызывается после смены состояния (под блокировкой не вызывается)
	OnStateChange func(from, to State)
	// Name имя защищаемой зависимости, используется в логах
	Name             string
	FailureThreshold int
	ResetTimeout     time.Duration
}

// CircuitBreaker защищает вызовы внешней зависимости.
// Безопасен для конкурентного использования.
type CircuitBreaker struct {
	lastFailureTime time.Time
	logger          *slog.Logger
	now             func() time.Time
	onStateChange   func(from, to State)
	name            string
	failureCount    int
	threshold       int
	resetTimeout    time.Duration
	state           State
	trialInFlight   bool
	mu              sync.Mutex
}

// New создает circuit breaker в состоянии CLOSED
func New(cfg Config, logger *slog.Logger) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CircuitBreaker{
		logger:        logger,
		now:           cfg.Now,
		onStateChange: cfg.OnStateChange,
		name:          cfg.Name,
		threshold:     cfg.FailureThreshold,
		resetTimeout:  cfg.ResetTimeout,
		state:         StateClosed,
	}
}

// CanAttempt сообщает, можно ли сейчас обращаться к зависимости.
// В состоянии OPEN по истечении resetTimeout breaker переходит в HALF_OPEN
// и пропускает ровно одну пробную попытку до записи ее результата.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()

	switch cb.state {
	case StateClosed:
		cb.mu.Unlock()
		return true

	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.resetTimeout {
			cb.mu.Unlock()
			return false
		}
		from := cb.transition(StateHalfOpen)
		cb.trialInFlight = true
		cb.mu.Unlock()
		cb.notify(from, StateHalfOpen)
		return true

	default:
		if cb.trialInFlight {
			cb.mu.Unlock()
			return false
		}
		cb.trialInFlight = true
		cb.mu.Unlock()
		return true
	}
}

// RecordSuccess сбрасывает счетчик ошибок и закрывает breaker
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	cb.failureCount = 0
	cb.trialInFlight = false
	if cb.state == StateClosed {
		cb.mu.Unlock()
		return
	}
	from := cb.transition(StateClosed)
	cb.mu.Unlock()

	cb.notify(from, StateClosed)
}

// RecordFailure учитывает ошибку вызова зависимости
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	cb.failureCount++
	cb.trialInFlight = false

	if cb.failureCount < cb.threshold {
		cb.mu.Unlock()
		return
	}

	cb.lastFailureTime = cb.now()
	if cb.state == StateOpen {
		cb.mu.Unlock()
		return
	}
	from := cb.transition(StateOpen)
	failures := cb.failureCount
	cb.mu.Unlock()

	cb.logger.Warn("Circuit breaker opened",
		"dependency", cb.name,
		"failures", failures,
		"reset_timeout", cb.resetTimeout.String(),
	)
	cb.notify(from, StateOpen)
}

// State возвращает текущее состояние
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures возвращает текущее количество ошибок
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

// transition меняет состояние; вызывается под блокировкой
func (cb *CircuitBreaker) transition(to State) State {
	from := cb.state
	cb.state = to
	return from
}

func (cb *CircuitBreaker) notify(from, to State) {
	cb.logger.Info("Circuit breaker state changed",
		"dependency", cb.name,
		"from", from.String(),
		"to", to.String(),
	)
	if cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}
