package models

// ErrorReport отчет об ошибке, пересылаемый в трекер ошибок
type ErrorReport struct {
	Context      map[string]any
	Timestamp    *int64 // Timestamp миллисекунды с начала эпохи
	Error        string
	UserID       string
	StackTrace   string
	FunctionName string
}
