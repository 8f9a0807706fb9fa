// Package conflict разрешает конфликты между изменением клиента и серверной
// записью по правилу Last-Write-Wins.
package conflict

import (
	"time"

	"github.com/iudanet/zendfast/internal/models"
)

// Resolver разрешает конфликты. Часы используются только когда ни одна
// из сторон не содержит метки времени.
type Resolver struct {
	now func() time.Time
}

// NewResolver создает Resolver с системными часами
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// NewResolverWithClock создает Resolver с заданными часами (для тестов)
func NewResolverWithClock(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

var defaultResolver = NewResolver()

// Resolve разрешает конфликт с помощью Resolver по умолчанию
func Resolve(change models.LocalChange, remote models.Record) models.ConflictResolution {
	return defaultResolver.Resolve(change, remote)
}

// ResolveBatch разрешает пакет изменений с помощью Resolver по умолчанию
func ResolveBatch(changes []models.LocalChange, remotes map[string]models.Record) []models.ConflictResolution {
	return defaultResolver.ResolveBatch(changes, remotes)
}

// Resolve определяет, какая версия записи должна остаться.
// Правила:
// 1. Серверной записи нет - побеждает клиент (новая запись)
// 2. Удаление побеждает всегда, метки времени не сравниваются
// 3. Побеждает более поздняя метка времени
// 4. При равенстве побеждает клиент, конфликт не фиксируется
func (r *Resolver) Resolve(change models.LocalChange, remote models.Record) models.ConflictResolution {
	if remote == nil {
		return localWins(change)
	}

	if change.Action == models.ActionDelete {
		return localWins(change)
	}

	clock := &lazyClock{now: r.now}
	localTime, localOK := timestamp(change.Data, change.LocalTimestamp, clock)
	remoteTime, remoteOK := timestamp(remote, "", clock)

	// Нераспознанную метку времени считаем ничьей
	if !localOK || !remoteOK {
		return localWins(change)
	}

	switch {
	case localTime.After(remoteTime):
		return localWins(change)
	case remoteTime.After(localTime):
		return models.ConflictResolution{
			Winner:       models.WinnerRemote,
			ShouldUpdate: false,
			Conflict: &models.Conflict{
				Table:        change.Table,
				LocalData:    change.Data,
				RemoteData:   remote,
				ResolvedData: remote,
			},
		}
	default:
		return localWins(change)
	}
}

// ResolveBatch разрешает каждое изменение независимо.
// remotes индексируется идентификатором записи; отсутствие записи означает новую запись.
func (r *Resolver) ResolveBatch(changes []models.LocalChange, remotes map[string]models.Record) []models.ConflictResolution {
	out := make([]models.ConflictResolution, 0, len(changes))
	for _, change := range changes {
		var remote models.Record
		if id, ok := change.Data.ID(); ok {
			remote = remotes[id]
		}
		out = append(out, r.Resolve(change, remote))
	}
	return out
}

// timestamp извлекает метку времени записи по приоритету
// updated_at > created_at > timestamp > fallback > текущее время.
func timestamp(record models.Record, fallback string, clock *lazyClock) (time.Time, bool) {
	if v, ok := record.FirstPresent(models.ColumnUpdatedAt, models.ColumnCreatedAt, models.ColumnTimestamp); ok {
		return models.ParseTime(v)
	}
	if fallback != "" {
		return models.ParseTime(fallback)
	}
	return clock.get(), true
}

// lazyClock читает часы не более одного раза за разрешение конфликта,
// чтобы обе стороны без меток времени получили одно и то же значение.
type lazyClock struct {
	now  func() time.Time
	t    time.Time
	read bool
}

func (c *lazyClock) get() time.Time {
	if !c.read {
		c.t = c.now()
		c.read = true
	}
	return c.t
}

func localWins(change models.LocalChange) models.ConflictResolution {
	return models.ConflictResolution{
		Winner:       models.WinnerLocal,
		ShouldUpdate: true,
		FinalData:    change.Data,
	}
}
