package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/zendfast/pkg/api"
)

// functionName имя источника в отчетах об ошибках
const functionName = "zendfast-cli"

func (c *Cli) runHealth(ctx context.Context) error {
	resp, err := c.apiClient.Health(ctx)
	if err != nil {
		return err
	}

	c.io.Printf("Status:  %s\n", resp.Status)
	if resp.Version != "" {
		c.io.Printf("Version: %s\n", resp.Version)
	}
	return nil
}

func (c *Cli) runReport(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: report <user-id> <message>")
	}

	ts := time.Now().UnixMilli()
	resp, err := c.apiClient.ReportError(ctx, api.ErrorReportRequest{
		Error:        strings.Join(args[1:], " "),
		UserID:       args[0],
		FunctionName: functionName,
		Timestamp:    &ts,
		Context:      map[string]any{"source": "cli"},
	})
	if err != nil {
		return err
	}

	c.io.Println(resp.Message)
	c.io.Printf("Error ID: %s\n", resp.ErrorID)
	return nil
}
