package models

import "time"

// Table идентификатор синхронизируемой таблицы
type Table string

// Синхронизируемые таблицы
const (
	TableFastingSessions Table = "fasting_sessions"
	TableHydrationLogs   Table = "hydration_logs"
	TableUserMetrics     Table = "user_metrics"
)

// Action тип изменения, пришедшего от клиента
type Action string

// Поддерживаемые действия
const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid проверяет, что действие известно
func (a Action) Valid() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Колонки, общие для всех синхронизируемых таблиц
const (
	ColumnID        = "id"
	ColumnUserID    = "user_id"
	ColumnUpdatedAt = "updated_at"
	ColumnCreatedAt = "created_at"
	ColumnTimestamp = "timestamp"
)

// TableDescriptor описывает таблицу: ключ записи, колонку владельца
// и колонку, по которой определяется время последнего изменения.
type TableDescriptor struct {
	Name           Table
	KeyColumn      string
	OwnerColumn    string
	ModifiedColumn string
}

var syncTables = []TableDescriptor{
	{Name: TableFastingSessions, KeyColumn: ColumnID, OwnerColumn: ColumnUserID, ModifiedColumn: ColumnUpdatedAt},
	// в hydration_logs нет updated_at
	{Name: TableHydrationLogs, KeyColumn: ColumnID, OwnerColumn: ColumnUserID, ModifiedColumn: ColumnCreatedAt},
	{Name: TableUserMetrics, KeyColumn: ColumnID, OwnerColumn: ColumnUserID, ModifiedColumn: ColumnUpdatedAt},
}

// SyncTables возвращает дескрипторы всех синхронизируемых таблиц
// в фиксированном порядке.
func SyncTables() []TableDescriptor {
	out := make([]TableDescriptor, len(syncTables))
	copy(out, syncTables)
	return out
}

// LookupTable возвращает дескриптор таблицы по имени.
func LookupTable(name Table) (TableDescriptor, bool) {
	for _, d := range syncTables {
		if d.Name == name {
			return d, true
		}
	}
	return TableDescriptor{}, false
}

// LocalChange изменение, сделанное клиентом офлайн.
// После отправки не модифицируется: сервер работает с копией Data.
type LocalChange struct {
	Data           Record `json:"data"`
	Table          Table  `json:"table"`
	Action         Action `json:"action"`
	LocalTimestamp string `json:"localTimestamp"`
}

// Winner сторона, победившая при разрешении конфликта
type Winner string

// Возможные победители
const (
	WinnerLocal  Winner = "local"
	WinnerRemote Winner = "remote"
)

// Conflict описывает конфликт, в котором победила серверная версия
type Conflict struct {
	LocalData    Record `json:"localData"`
	RemoteData   Record `json:"remoteData"`
	ResolvedData Record `json:"resolvedData,omitempty"`
	Table        Table  `json:"table"`
}

// ConflictResolution результат разрешения конфликта для одного изменения.
// ShouldUpdate и Conflict взаимоисключающие.
type ConflictResolution struct {
	FinalData    Record
	Conflict     *Conflict
	Winner       Winner
	ShouldUpdate bool
}

// SyncError ошибка обработки отдельного изменения в пакете
type SyncError struct {
	Data   Record `json:"data,omitempty"`
	Table  Table  `json:"table"`
	Action Action `json:"action"`
	Error  string `json:"error"`
}

// SyncResult результат синхронизации одного пакета
type SyncResult struct {
	ServerTimestamp time.Time
	ServerChanges   map[Table][]Record
	Conflicts       []Conflict
	Errors          []SyncError
	Success         bool
}
