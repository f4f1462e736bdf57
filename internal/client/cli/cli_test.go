package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/kotobako/internal/client/iocli"
	"github.com/iudanet/kotobako/internal/client/storage/memory"
	"github.com/iudanet/kotobako/internal/client/vocab"
	"github.com/iudanet/kotobako/internal/clock"
	"github.com/iudanet/kotobako/internal/models"
)

// captureIO собирает весь вывод команд в буфер
type captureIO struct {
	*iocli.IOMock
	out strings.Builder
}

func newCaptureIO() *captureIO {
	c := &captureIO{}
	c.IOMock = &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			c.out.WriteString(fmt.Sprintln(a...))
		},
		PrintfFunc: func(format string, a ...any) {
			fmt.Fprintf(&c.out, format, a...)
		},
	}
	return c
}

func newTestCli(t *testing.T) (*Cli, *captureIO) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := vocab.New(memory.New(), clock.New(), logger)

	io := newCaptureIO()
	return New(io, nil, store, nil), io
}

func addEntry(t *testing.T, c *Cli, word, meaning, date string) string {
	t.Helper()

	require.NoError(t, c.Add(context.Background(), []string{
		"-word", word, "-meaning", meaning, "-date", date,
	}))

	entries, err := c.store.Search(context.Background(), word)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	return entries[0].ID
}

func TestAddAndGet(t *testing.T) {
	c, io := newTestCli(t)
	ctx := context.Background()

	id := addEntry(t, c, "猫", "cat", "2025-01-02")

	require.NoError(t, c.Get(ctx, []string{id}))
	assert.Contains(t, io.out.String(), "猫")
	assert.Contains(t, io.out.String(), "cat")
}

func TestAdd_InvalidDate(t *testing.T) {
	c, _ := newTestCli(t)

	err := c.Add(context.Background(), []string{"-word", "x", "-date", "01.02.2025"})
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	c, _ := newTestCli(t)

	err := c.Get(context.Background(), []string{"no-such-id"})
	assert.ErrorContains(t, err, "not found")
}

func TestList(t *testing.T) {
	c, io := newTestCli(t)
	ctx := context.Background()

	addEntry(t, c, "猫", "cat", "2025-01-02")
	addEntry(t, c, "犬", "dog", "2025-01-03")

	require.NoError(t, c.List(ctx, nil))
	out := io.out.String()
	assert.Contains(t, out, "猫")
	assert.Contains(t, out, "犬")
	assert.Contains(t, out, "2 entries across 2 days")

	io.out.Reset()
	require.NoError(t, c.List(ctx, []string{"-date", "2025-01-02"}))
	out = io.out.String()
	assert.Contains(t, out, "猫")
	assert.NotContains(t, out, "犬")
}

func TestSearch(t *testing.T) {
	c, io := newTestCli(t)
	ctx := context.Background()

	addEntry(t, c, "猫", "cat", "2025-01-02")
	addEntry(t, c, "犬", "dog", "2025-01-03")

	io.out.Reset()
	require.NoError(t, c.Search(ctx, []string{"dog"}))
	out := io.out.String()
	assert.Contains(t, out, "犬")
	assert.NotContains(t, out, "猫")

	io.out.Reset()
	require.NoError(t, c.Search(ctx, []string{"zebra"}))
	assert.Contains(t, io.out.String(), "No matches")
}

func TestDelete(t *testing.T) {
	c, io := newTestCli(t)
	ctx := context.Background()

	id := addEntry(t, c, "猫", "cat", "2025-01-02")

	require.NoError(t, c.Delete(ctx, []string{id}))
	assert.Contains(t, io.out.String(), "Deleted")

	err := c.Get(ctx, []string{id})
	assert.ErrorContains(t, err, "not found")
}

func TestExportAndImport(t *testing.T) {
	c, io := newTestCli(t)
	ctx := context.Background()

	addEntry(t, c, "猫", "cat", "2025-01-02")
	addEntry(t, c, "犬", "dog", "2025-01-03")

	exportPath := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, c.Export(ctx, []string{"-o", exportPath}))

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)

	var entries []models.VocabEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, 2)

	// Импорт в чистый клиент
	fresh, freshIO := newTestCli(t)
	require.NoError(t, fresh.Import(ctx, []string{exportPath}))
	assert.Contains(t, freshIO.out.String(), "Imported 2 of 2")

	// Повторный импорт ничего не добавляет
	freshIO.out.Reset()
	require.NoError(t, fresh.Import(ctx, []string{exportPath}))
	assert.Contains(t, freshIO.out.String(), "Imported 0 of 2")

	// Экспорт в stdout
	io.out.Reset()
	require.NoError(t, c.Export(ctx, nil))
	assert.Contains(t, io.out.String(), "猫")
}

func TestReview(t *testing.T) {
	c, io := newTestCli(t)
	ctx := context.Background()

	id := addEntry(t, c, "猫", "cat", "2025-01-02")

	require.NoError(t, c.Review(ctx, []string{"-rating", "4", id}))
	assert.Contains(t, io.out.String(), "rating 4")

	month := time.Now().UTC().Format("2006-01")
	partition, err := c.store.GetFsrsPartition(ctx, month)
	require.NoError(t, err)
	state, ok := partition.CardStates[id]
	require.True(t, ok)
	assert.Equal(t, 1, state.Reps)
	require.NotNil(t, state.LastReview)

	reviews, err := c.store.GetReviewPartition(ctx, month)
	require.NoError(t, err)
	require.Len(t, reviews.Logs, 1)
	assert.Equal(t, 4, reviews.Logs[0].Rating)

	// Оценка вне диапазона
	assert.Error(t, c.Review(ctx, []string{"-rating", "9", id}))
}

func TestRebuildIndex(t *testing.T) {
	c, io := newTestCli(t)
	ctx := context.Background()

	addEntry(t, c, "猫", "cat", "2025-01-02")

	require.NoError(t, c.RebuildIndex(ctx))
	assert.Contains(t, io.out.String(), "1 entries across 1 days")
}

func TestMasterPassword_Sources(t *testing.T) {
	c, _ := newTestCli(t)

	// Файл
	path := filepath.Join(t.TempDir(), "pw")
	require.NoError(t, os.WriteFile(path, []byte("file-password\n"), 0o600))

	pw, err := c.masterPassword(Passwords{FromFile: path})
	require.NoError(t, err)
	assert.Equal(t, "file-password", pw)

	// Аргумент
	pw, err = c.masterPassword(Passwords{FromArgs: "arg-password"})
	require.NoError(t, err)
	assert.Equal(t, "arg-password", pw)

	// Переменная окружения перекрывает остальные источники
	t.Setenv(passwordEnvVar, "env-password")
	pw, err = c.masterPassword(Passwords{FromArgs: "arg-password"})
	require.NoError(t, err)
	assert.Equal(t, "env-password", pw)
}

func TestMasterPassword_Prompt(t *testing.T) {
	c, io := newTestCli(t)
	io.ReadPasswordFunc = func(prompt string) (string, error) {
		return "prompted-password", nil
	}

	pw, err := c.masterPassword(Passwords{})
	require.NoError(t, err)
	assert.Equal(t, "prompted-password", pw)
	assert.Len(t, io.ReadPasswordCalls(), 1)
}
