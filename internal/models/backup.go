package models

// BackupStatusSuccess статус успешной резервной копии
const BackupStatusSuccess = "success"

// BackupStats размеры резервной копии на каждом этапе
type BackupStats struct {
	RecordCounts     map[Table]int `json:"record_counts"`
	CompressionRatio string        `json:"compression_ratio"`
	OriginalSize     int           `json:"original_size_bytes"`
	CompressedSize   int           `json:"compressed_size_bytes"`
	EncryptedSize    int           `json:"encrypted_size_bytes"`
}

// RetentionCleanup результат удаления устаревших копий
type RetentionCleanup struct {
	Filenames []string `json:"filenames"`
	Deleted   int      `json:"old_backups_deleted"`
}

// BackupResult результат выполнения резервного копирования
type BackupResult struct {
	RetentionCleanup RetentionCleanup `json:"retention_cleanup"`
	Status           string           `json:"status"`
	Message          string           `json:"message"`
	Filename         string           `json:"filename"`
	StoragePath      string           `json:"storage_path"`
	Timestamp        string           `json:"timestamp"`
	RequestSource    string           `json:"request_source"`
	DataStats        BackupStats      `json:"data_stats"`
	ExecutionTimeMs  int64            `json:"execution_time_ms"`
}
