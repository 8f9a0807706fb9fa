package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ISOTimeLayout формат меток времени в ответах API (UTC, миллисекунды)
const ISOTimeLayout = "2006-01-02T15:04:05.000Z"

// Record строка таблицы в виде JSON-объекта
type Record map[string]any

// Clone возвращает копию записи верхнего уровня.
// Вложенные значения не копируются.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Present сообщает, задано ли в записи значение по ключу.
// Пустые строки, нули, false и null считаются отсутствующими.
func (r Record) Present(key string) bool {
	v, ok := r[key]
	if !ok {
		return false
	}
	return truthy(v)
}

// ID возвращает идентификатор записи в строковом виде
func (r Record) ID() (string, bool) {
	if !r.Present(ColumnID) {
		return "", false
	}
	return stringify(r[ColumnID])
}

// Owner возвращает user_id записи, если он задан строкой
func (r Record) Owner() (string, bool) {
	if !r.Present(ColumnUserID) {
		return "", false
	}
	s, ok := r[ColumnUserID].(string)
	return s, ok
}

// FirstPresent возвращает первое заданное значение среди ключей в порядке приоритета.
func (r Record) FirstPresent(keys ...string) (any, bool) {
	for _, k := range keys {
		if r.Present(k) {
			return r[k], true
		}
	}
	return nil, false
}

// ModifiedAt возвращает время изменения записи: updated_at, затем created_at,
// затем timestamp. Второе значение false, если ни одно поле не распознано.
func (r Record) ModifiedAt() (time.Time, bool) {
	v, ok := r.FirstPresent(ColumnUpdatedAt, ColumnCreatedAt, ColumnTimestamp)
	if !ok {
		return time.Time{}, false
	}
	return ParseTime(v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime разбирает метку времени: ISO-8601 строку или число миллисекунд
// с начала эпохи. Строки без зоны считаются UTC.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms), true
		}
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return millisToTime(f)
	case float64:
		return millisToTime(t)
	case int64:
		return time.UnixMilli(t), true
	case int:
		return time.UnixMilli(int64(t)), true
	}
	return time.Time{}, false
}

// FormatTime форматирует время так же, как Date.toISOString на клиенте
func FormatTime(t time.Time) string {
	return t.UTC().Format(ISOTimeLayout)
}

func millisToTime(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(f)), true
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	case int:
		return t != 0
	case int64:
		return t != 0
	}
	return true
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}
