package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")

	if c.opts.AccessToken == "" {
		return errNoAccessToken
	}

	c.io.Println()
	c.io.Println("Starting synchronization with server...")

	result, err := c.syncService.Sync(ctx, c.opts.AccessToken)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Synchronization completed")
	c.io.Println()
	c.io.Printf("Pushed to server:   %d changes in %d request(s)\n", result.Pushed, result.Batches)
	c.io.Printf("Pulled from server: %d records\n", result.Pulled)
	if result.Conflicts > 0 {
		c.io.Printf("Conflicts (server version kept): %d\n", result.Conflicts)
	}
	if len(result.Errors) > 0 {
		c.io.Printf("Rejected by server: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			c.io.Printf("  %s %s: %s\n", e.Action, e.Table, e.Error)
		}
	}
	c.io.Printf("Checkpoint: %s\n", result.ServerTimestamp)

	return nil
}

func (c *Cli) runPending(ctx context.Context) error {
	count, err := c.syncService.GetPendingSyncCount(ctx)
	if err != nil {
		return err
	}

	if count == 0 {
		c.io.Println("✓ All changes synchronized with server")
		return nil
	}

	c.io.Printf("⚠️  Pending sync: %d change(s) waiting to be synchronized\n", count)
	c.io.Println("Run 'zendfast sync' to synchronize with server.")
	return nil
}
