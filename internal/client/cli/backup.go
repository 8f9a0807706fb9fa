package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/iudanet/zendfast/internal/server/backup"
)

func (c *Cli) runBackup(ctx context.Context, args []string) error {
	if c.opts.ServiceKey == "" {
		return errNoServiceKey
	}
	if len(args) > 2 {
		return fmt.Errorf("usage: backup [hours] [source]")
	}

	var hours int
	if len(args) > 0 {
		h, err := strconv.Atoi(args[0])
		if err != nil || h <= 0 {
			return fmt.Errorf("invalid hours: %s", args[0])
		}
		hours = h
	}
	var source string
	if len(args) > 1 {
		source = args[1]
	}

	result, err := c.apiClient.TriggerBackup(ctx, c.opts.ServiceKey, hours, source)
	if err != nil {
		return err
	}

	c.io.Printf("✓ %s\n", result.Message)
	c.io.Printf("File:        %s\n", result.StoragePath)
	c.io.Printf("Size:        %d bytes (compression %s)\n", result.DataStats.EncryptedSize, result.DataStats.CompressionRatio)
	for table, n := range result.DataStats.RecordCounts {
		c.io.Printf("  %-18s %d\n", table, n)
	}
	if result.RetentionCleanup.Deleted > 0 {
		c.io.Printf("Old backups deleted: %d\n", result.RetentionCleanup.Deleted)
	}
	c.io.Printf("Took %d ms\n", result.ExecutionTimeMs)
	return nil
}

func (c *Cli) runDecryptBackup(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: decrypt-backup <file> [output]")
	}

	sealed, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	passphrase, err := c.io.ReadPassword("Backup passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}
	if passphrase == "" {
		return fmt.Errorf("passphrase cannot be empty")
	}

	doc, err := backup.Decode(sealed, passphrase)
	if err != nil {
		return fmt.Errorf("failed to decrypt backup: %w", err)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	if len(args) == 1 {
		_, err = c.io.Write(append(out, '\n'))
		return err
	}

	if err := os.WriteFile(args[1], out, 0o600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	c.io.Printf("✓ Backup generated at %s (%d hours) written to %s\n", doc.GeneratedAt, doc.Hours, args[1])
	for table, n := range doc.Counts {
		c.io.Printf("  %-18s %d\n", table, n)
	}
	return nil
}
