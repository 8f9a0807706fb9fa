package cli

import (
	"fmt"
	"time"

	"github.com/iudanet/zendfast/internal/server/identity"
)

const defaultTokenTTL = time.Hour

func (c *Cli) runToken(args []string) error {
	if c.opts.JWTSecret == "" {
		return errNoJWTSecret
	}
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: token <user-id> [ttl]")
	}

	ttl := defaultTokenTTL
	if len(args) == 2 {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid ttl: %s", args[1])
		}
		ttl = d
	}

	token, err := identity.IssueToken([]byte(c.opts.JWTSecret), args[0], ttl)
	if err != nil {
		return err
	}

	c.io.Println(token)
	return nil
}
