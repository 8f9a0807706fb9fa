package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iudanet/zendfast/internal/models"
	"github.com/iudanet/zendfast/pkg/api"
)

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: add <table> <action> [key=value ...]")
	}

	data, err := parseFields(args[2:])
	if err != nil {
		return err
	}

	change, err := c.syncService.Record(ctx, args[0], args[1], data)
	if err != nil {
		return err
	}

	c.io.Printf("✓ Recorded %s on %s (id: %v)\n", change.Action, change.Table, change.Data[models.ColumnID])

	if count, err := c.syncService.GetPendingSyncCount(ctx); err == nil {
		c.io.Printf("Pending sync: %d change(s)\n", count)
	}
	return nil
}

func (c *Cli) runList(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: list <table>")
	}
	if _, ok := models.LookupTable(models.Table(args[0])); !ok {
		return fmt.Errorf("unknown table: %s", args[0])
	}

	records, err := c.records.ListRecords(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if len(records) == 0 {
		c.io.Printf("No records in %s\n", args[0])
		return nil
	}

	c.io.Printf("=== %s (%d) ===\n", args[0], len(records))
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		c.io.Println(string(line))
	}
	return nil
}

// parseFields разбирает аргументы key=value. Значение, являющееся
// корректным JSON (число, true, null, "строка"), сохраняет тип;
// остальное становится строкой. id всегда строка.
func parseFields(args []string) (api.Record, error) {
	data := make(api.Record, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", arg)
		}
		if key == models.ColumnID {
			data[key] = raw
			continue
		}
		data[key] = parseValue(raw)
	}
	return data, nil
}

func parseValue(raw string) any {
	if !json.Valid([]byte(raw)) {
		return raw
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	return v
}
