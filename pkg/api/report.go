package api

// ErrorReportRequest тело POST /functions/v1/sentry-error-report
type ErrorReportRequest struct {
	Context      map[string]any `json:"context"`
	Timestamp    *int64         `json:"timestamp,omitempty"`
	Error        string         `json:"error"`
	UserID       string         `json:"userId"`
	StackTrace   string         `json:"stackTrace,omitempty"`
	FunctionName string         `json:"functionName,omitempty"`
}

// ErrorReportResponse ответ на отчет об ошибке
type ErrorReportResponse struct {
	ErrorID      string `json:"error_id"`
	Message      string `json:"message"`
	Success      bool   `json:"success"`
	SentToSentry bool   `json:"sent_to_sentry"`
}
