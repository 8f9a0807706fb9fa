// Package reporting пересылает отчеты об ошибках в Sentry.
// Контекст отчета очищается от чувствительных данных до отправки и логирования.
package reporting

import "regexp"

// Redacted значение, которым заменяются чувствительные поля
const Redacted = "[REDACTED]"

// allowedFields поля контекста, которые разрешено передавать
var allowedFields = map[string]struct{}{
	"function_name": {},
	"stack_trace":   {},
	"timestamp":     {},
	"error_type":    {},
	"user_agent":    {},
	"platform":      {},
	"environment":   {},
	"request_id":    {},
	"http_status":   {},
	"url":           {},
	"method":        {},
}

var sensitivePattern = regexp.MustCompile(`(?i)password|token|key|secret|auth|bearer|email|phone|ssn|credit|card|api[_-]?key`)

// Sanitize возвращает копию контекста без чувствительных данных.
// Ключи, похожие на секреты, заменяются на [REDACTED], остальные
// сохраняются только из белого списка. Вложенные объекты под
// разрешенными ключами очищаются рекурсивно.
func Sanitize(context map[string]any) map[string]any {
	out := make(map[string]any)

	for key, value := range context {
		if sensitivePattern.MatchString(key) {
			out[key] = Redacted
			continue
		}

		if _, ok := allowedFields[key]; !ok {
			continue
		}

		if nested, ok := value.(map[string]any); ok {
			out[key] = Sanitize(nested)
			continue
		}
		out[key] = value
	}

	return out
}
