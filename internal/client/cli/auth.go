package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/kotobako/internal/client/auth"
)

// Register регистрирует новый аккаунт. Пароль запрашивается дважды.
func (c *Cli) Register(ctx context.Context) error {
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.io.ReadPassword("Master password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	confirm, err := c.io.ReadPassword("Confirm master password: ")
	if err != nil {
		return fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	result, err := c.authService.Register(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Printf("Registered %s (user id %s)\n", result.Username, result.UserID)
	c.io.Println("Run 'kotobako login' to start a session.")
	return nil
}

// Login выполняет вход и сохраняет зашифрованные токены локально
func (c *Cli) Login(ctx context.Context, passwords Passwords) error {
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.masterPassword(passwords)
	if err != nil {
		return err
	}

	result, err := c.authService.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Printf("Logged in as %s\n", result.Username)
	return nil
}

// Logout удаляет локальную сессию
func (c *Cli) Logout(ctx context.Context) error {
	if err := c.authService.Logout(ctx); err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			c.io.Println("Not logged in.")
			return nil
		}
		return err
	}

	c.io.Println("Logged out.")
	return nil
}

// Status показывает состояние сессии без master password
func (c *Cli) Status(ctx context.Context) error {
	data, err := c.authService.Status(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			c.io.Println("Not logged in.")
			return nil
		}
		return err
	}

	c.io.Printf("Logged in as %s\n", data.Username)

	expiresAt := time.Unix(data.ExpiresAt, 0)
	if time.Now().After(expiresAt) {
		c.io.Println("Access token expired (will be refreshed on next sync).")
	} else {
		c.io.Printf("Access token valid until %s\n", expiresAt.Format(time.RFC3339))
	}

	pending, err := c.syncService.PendingChanges(ctx)
	if err != nil {
		return err
	}
	c.io.Printf("Pending changes: %d\n", pending)

	return nil
}
