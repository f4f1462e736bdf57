package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/kotobako/internal/client/auth"
	"github.com/iudanet/kotobako/internal/client/sync"
)

// Sync выполняет полный проход синхронизации с сервером
func (c *Cli) Sync(ctx context.Context, passwords Passwords) error {
	password, err := c.masterPassword(passwords)
	if err != nil {
		return err
	}

	token, err := c.authService.GetValidToken(ctx, password)
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			return fmt.Errorf("not logged in, run 'kotobako login' first")
		}
		return err
	}

	result, err := c.syncService.Sync(ctx, token)
	if err != nil {
		if errors.Is(err, sync.ErrSyncInProgress) {
			return fmt.Errorf("sync is already running")
		}
		return err
	}

	if !result.Changed() {
		c.io.Println("Already up to date.")
	} else {
		c.io.Printf("Pulled %d and pushed %d vocabulary partitions\n",
			result.PulledPartitions, result.PushedPartitions)
		if result.PulledMonths > 0 || result.PushedMonths > 0 {
			c.io.Printf("Pulled %d and pushed %d review months\n",
				result.PulledMonths, result.PushedMonths)
		}
		if result.ChangedEntries > 0 {
			c.io.Printf("%d entries changed locally\n", result.ChangedEntries)
		}
	}

	if result.Failed > 0 {
		c.io.Printf("%d partitions failed and will be retried on next sync\n", result.Failed)
	}

	return nil
}

// Pending показывает количество несинхронизированных изменений
func (c *Cli) Pending(ctx context.Context) error {
	pending, err := c.syncService.PendingChanges(ctx)
	if err != nil {
		return err
	}

	if pending == 0 {
		c.io.Println("Everything is synced.")
		return nil
	}

	c.io.Printf("Pending changes: %d\n", pending)
	return nil
}
