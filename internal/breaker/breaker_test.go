package breaker

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t  time.Time
	mu sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cb := New(Config{
		Name:             "sentry",
		FailureThreshold: threshold,
		ResetTimeout:     reset,
		Now:              clock.Now,
	}, logger)
	return cb, clock
}

func TestNew_Defaults(t *testing.T) {
	cb := New(Config{}, nil)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, DefaultFailureThreshold, cb.threshold)
	assert.Equal(t, DefaultResetTimeout, cb.resetTimeout)
	assert.True(t, cb.CanAttempt())
}

func TestState_String(t *testing.T) {
	tests := []struct {
		want  string
		state State
	}{
		{state: StateClosed, want: "CLOSED"},
		{state: StateOpen, want: "OPEN"},
		{state: StateHalfOpen, want: "HALF_OPEN"},
		{state: State(42), want: "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.CanAttempt())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 3, cb.Failures())
	assert.False(t, cb.CanAttempt())
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	assert.Equal(t, 0, cb.Failures())

	// после успеха снова нужны три ошибки подряд
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenSingleTrial(t *testing.T) {
	cb, clock := newTestBreaker(2, time.Minute)
	cb.RecordFailure()
	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	// попытки во время OPEN не влияют на пробную попытку
	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		assert.False(t, cb.CanAttempt())
	}

	clock.Advance(10 * time.Second)
	assert.True(t, cb.CanAttempt(), "first check after reset timeout is granted")
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.False(t, cb.CanAttempt(), "second check while trial is in flight is denied")
	assert.False(t, cb.CanAttempt())
}

func TestCircuitBreaker_HalfOpenSuccessCloses(t *testing.T) {
	cb, clock := newTestBreaker(2, time.Minute)
	cb.RecordFailure()
	cb.RecordFailure()
	clock.Advance(time.Minute)
	require.True(t, cb.CanAttempt())

	cb.RecordSuccess()

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
	assert.True(t, cb.CanAttempt())
	assert.True(t, cb.CanAttempt())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(2, time.Minute)
	cb.RecordFailure()
	cb.RecordFailure()
	clock.Advance(time.Minute)
	require.True(t, cb.CanAttempt())

	cb.RecordFailure()

	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.CanAttempt(), "reset timeout restarts from the trial failure")

	clock.Advance(59 * time.Second)
	assert.False(t, cb.CanAttempt())
	clock.Advance(time.Second)
	assert.True(t, cb.CanAttempt())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := New(Config{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		Now:              clock.Now,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cb.RecordFailure()
	clock.Advance(time.Second)
	cb.CanAttempt()
	cb.RecordSuccess()

	assert.Equal(t, []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}, transitions)
}

func TestCircuitBreaker_LogsOpen(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cb := New(Config{Name: "sentry", FailureThreshold: 1}, logger)

	cb.RecordFailure()

	assert.Contains(t, logBuf.String(), "Circuit breaker opened")
	assert.Contains(t, logBuf.String(), "sentry")
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb, _ := newTestBreaker(1000, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cb.CanAttempt() {
				cb.RecordFailure()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}
