package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/iudanet/kotobako/internal/models"
)

// Export выгружает все записи в JSON (stdout или файл)
func (c *Cli) Export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	output := fs.String("o", "", "write to file instead of stdout")

	if err := fs.Parse(args); err != nil {
		return err
	}

	entries, err := c.store.ExportAll(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}

	if *output == "" {
		c.io.Println(string(data))
		return nil
	}

	if err := os.WriteFile(*output, data, 0o600); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}

	c.io.Printf("Exported %d entries to %s\n", len(entries), *output)
	return nil
}

// Import загружает записи из JSON файла. Существующие id пропускаются.
func (c *Cli) Import(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: kotobako import FILE")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	var entries []models.VocabEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse import file: %w", err)
	}

	added, err := c.store.ImportEntries(ctx, entries)
	if err != nil {
		return err
	}

	c.io.Printf("Imported %d of %d entries (%d already present)\n",
		added, len(entries), len(entries)-added)
	return nil
}

// RebuildIndex пересобирает поисковый индекс из партиций
func (c *Cli) RebuildIndex(ctx context.Context) error {
	if err := c.store.RebuildSearchIndex(ctx); err != nil {
		return err
	}

	index, err := c.store.Index(ctx)
	if err != nil {
		return err
	}

	c.io.Printf("Rebuilt index: %d entries across %d days\n",
		index.TotalCount, len(index.Dates))
	return nil
}
