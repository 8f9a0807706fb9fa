// Package api описывает JSON-контракт HTTP API сервера синхронизации.
package api

// Record строка синхронизируемой таблицы
type Record = map[string]any

// LocalChange изменение, сделанное клиентом офлайн
type LocalChange struct {
	Data           Record `json:"data"`
	Table          string `json:"table"`
	Action         string `json:"action"`
	LocalTimestamp string `json:"localTimestamp"`
}

// SyncRequest тело POST /functions/v1/sync-user-data
type SyncRequest struct {
	// LastSyncTimestamp ISO-8601; пустое значение означает полную выборку
	LastSyncTimestamp *string       `json:"lastSyncTimestamp,omitempty"`
	Changes           []LocalChange `json:"changes"`
}

// Conflict конфликт, в котором победила серверная версия
type Conflict struct {
	LocalData    Record `json:"localData"`
	RemoteData   Record `json:"remoteData"`
	ResolvedData Record `json:"resolvedData,omitempty"`
	Table        string `json:"table"`
}

// SyncError ошибка обработки отдельного изменения
type SyncError struct {
	Data   Record `json:"data,omitempty"`
	Table  string `json:"table"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

// SyncResponse результат синхронизации
type SyncResponse struct {
	ServerChanges   map[string][]Record `json:"serverChanges"`
	ServerTimestamp string              `json:"serverTimestamp"`
	Conflicts       []Conflict          `json:"conflicts"`
	Errors          []SyncError         `json:"errors"`
	Success         bool                `json:"success"`
}
