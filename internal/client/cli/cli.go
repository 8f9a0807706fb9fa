// Package cli команды клиента синхронизации.
package cli

import (
	"context"
	"errors"

	httpClient "github.com/iudanet/zendfast/internal/client/api"
	"github.com/iudanet/zendfast/internal/client/iocli"
	"github.com/iudanet/zendfast/internal/client/storage"
	"github.com/iudanet/zendfast/internal/client/sync"
	"github.com/iudanet/zendfast/pkg/api"
)

// Переменные окружения, дополняющие флаги
const (
	EnvAccessToken = "ZENDFAST_ACCESS_TOKEN"
	EnvServiceKey  = "SUPABASE_SERVICE_ROLE_KEY"
	EnvJWTSecret   = "ZENDFAST_JWT_SECRET"
)

var (
	errNoAccessToken = errors.New("access token is required: use --token or " + EnvAccessToken)
	errNoServiceKey  = errors.New("service role key is required: set " + EnvServiceKey)
	errNoJWTSecret   = errors.New("JWT secret is required: set " + EnvJWTSecret)
)

// SyncService операции синхронизации, используемые командами
type SyncService interface {
	Record(ctx context.Context, table, action string, data api.Record) (api.LocalChange, error)
	Sync(ctx context.Context, accessToken string) (*sync.SyncResult, error)
	GetPendingSyncCount(ctx context.Context) (int, error)
}

var _ SyncService = (*sync.Service)(nil)

// Options секреты, переданные флагами или через окружение
type Options struct {
	AccessToken string
	ServiceKey  string
	JWTSecret   string
}

type Cli struct {
	io          iocli.IO
	apiClient   httpClient.ClientAPI
	syncService SyncService
	records     storage.RecordStorage
	opts        Options
}

func New(io iocli.IO, apiClient httpClient.ClientAPI, syncService SyncService, records storage.RecordStorage, opts Options) *Cli {
	return &Cli{
		io:          io,
		apiClient:   apiClient,
		syncService: syncService,
		records:     records,
		opts:        opts,
	}
}

func PrintUsage(out iocli.IO) {
	out.Println("Zendfast Sync Client")
	out.Println()
	out.Println("Usage:")
	out.Println("  zendfast [OPTIONS] COMMAND")
	out.Println()
	out.Println("Options:")
	out.Println("  --version                    Show version information")
	out.Println("  --server URL                 Server URL (default: http://localhost:8080)")
	out.Println("  --db PATH                    Path to local database (default: zendfast-client.db)")
	out.Println("  --token TOKEN                Access token (default: $" + EnvAccessToken + ")")
	out.Println()
	out.Println("Commands:")
	out.Println("  health                                   Check server availability")
	out.Println("  add <table> <action> [key=value ...]     Record a local change (insert, update, delete)")
	out.Println("  list <table>                             Show local copy of a table")
	out.Println("  pending                                  Show number of unsent changes")
	out.Println("  sync                                     Push local changes and pull server changes")
	out.Println("  report <user-id> <message>               Send an error report")
	out.Println("  backup [hours] [source]                  Trigger a server backup ($" + EnvServiceKey + ")")
	out.Println("  decrypt-backup <file> [output]           Decrypt a downloaded backup")
	out.Println("  token <user-id> [ttl]                    Issue a test access token ($" + EnvJWTSecret + ")")
	out.Println()
	out.Println("Tables: fasting_sessions, hydration_logs, user_metrics")
	out.Println()
	out.Println("Examples:")
	out.Println("  zendfast add hydration_logs insert amount_ml=250")
	out.Println("  zendfast add fasting_sessions update id=7f1c plan='\"16:8\"'")
	out.Println("  zendfast --token $TOKEN sync")
	out.Println("  zendfast decrypt-backup backup_20250110_020000.json.gz.enc backup.json")
}
