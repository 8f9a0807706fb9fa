package cli

import (
	"context"
	"fmt"
)

// Run выполняет команду args[0] с аргументами args[1:]
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		PrintUsage(c.io)
		return fmt.Errorf("command is required")
	}

	command, rest := args[0], args[1:]
	switch command {
	case "health":
		return c.runHealth(ctx)
	case "add":
		return c.runAdd(ctx, rest)
	case "list":
		return c.runList(ctx, rest)
	case "pending":
		return c.runPending(ctx)
	case "sync":
		return c.runSync(ctx)
	case "report":
		return c.runReport(ctx, rest)
	case "backup":
		return c.runBackup(ctx, rest)
	case "decrypt-backup":
		return c.runDecryptBackup(rest)
	case "token":
		return c.runToken(rest)
	default:
		PrintUsage(c.io)
		return fmt.Errorf("unknown command: %s", command)
	}
}
