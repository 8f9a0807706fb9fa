package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iudanet/zendfast/internal/models"
)

// EnvelopeContentType тип содержимого envelope для Sentry
const EnvelopeContentType = "application/x-sentry-envelope"

const (
	eventPlatform   = "go"
	unknownFunction = "unknown"
)

type envelopeHeader struct {
	EventID string `json:"event_id"`
	DSN     string `json:"dsn"`
	SentAt  string `json:"sent_at"`
}

type itemHeader struct {
	Type        string `json:"type"`
	ContentType string `json:"content_type"`
}

type eventUser struct {
	ID string `json:"id"`
}

type stackFrame struct {
	Filename string `json:"filename"`
	Function string `json:"function,omitempty"`
}

type stacktrace struct {
	Frames []stackFrame `json:"frames"`
}

type event struct {
	Extra       map[string]any    `json:"extra"`
	Tags        map[string]string `json:"tags"`
	Stacktrace  *stacktrace       `json:"stacktrace,omitempty"`
	User        eventUser         `json:"user"`
	EventID     string            `json:"event_id"`
	Platform    string            `json:"platform"`
	Environment string            `json:"environment"`
	Level       string            `json:"level"`
	Message     string            `json:"message"`
	Timestamp   int64             `json:"timestamp"`
}

// BuildEnvelope форматирует отчет как Sentry envelope из трех JSON-строк:
// заголовок envelope, заголовок элемента и само событие.
func BuildEnvelope(report models.ErrorReport, eventID, dsn, environment string, now time.Time) ([]byte, error) {
	ts := now.Unix()
	if report.Timestamp != nil {
		ts = *report.Timestamp / 1000
	}

	functionName := report.FunctionName
	if functionName == "" {
		functionName = unknownFunction
	}

	ev := event{
		EventID:     eventID,
		Timestamp:   ts,
		Platform:    eventPlatform,
		Environment: environment,
		Level:       "error",
		Message:     report.Error,
		User:        eventUser{ID: report.UserID},
		Extra:       Sanitize(report.Context),
		Tags:        map[string]string{"function_name": functionName},
	}
	if report.StackTrace != "" {
		ev.Stacktrace = &stacktrace{Frames: []stackFrame{{
			Filename: "zendfast",
			Function: report.FunctionName,
		}}}
	}

	lines := []any{
		envelopeHeader{EventID: eventID, DSN: dsn, SentAt: models.FormatTime(now)},
		itemHeader{Type: "event", ContentType: "application/json"},
		ev,
	}

	var buf bytes.Buffer
	for i, line := range lines {
		b, err := json.Marshal(line)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal envelope line %d: %w", i, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}
