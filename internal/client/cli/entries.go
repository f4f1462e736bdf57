package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/kotobako/internal/client/vocab"
	"github.com/iudanet/kotobako/internal/models"
	"github.com/iudanet/kotobako/internal/validation"
)

// Add добавляет словарную запись
func (c *Cli) Add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	word := fs.String("word", "", "the word itself (required)")
	reading := fs.String("reading", "", "kana reading")
	romaji := fs.String("romaji", "", "latin transcription")
	meaning := fs.String("meaning", "", "translation")
	pos := fs.String("pos", "", "part of speech")
	example := fs.String("example", "", "example sentence")
	source := fs.String("source", "", "example source")
	note := fs.String("note", "", "free-form note")
	tags := fs.String("tags", "", "comma-separated tags")
	date := fs.String("date", time.Now().Format(validation.DateLayout), "partition date YYYY-MM-DD")

	if err := fs.Parse(args); err != nil {
		return err
	}

	entry := &models.VocabEntry{
		ID:              uuid.New().String(),
		Word:            *word,
		Reading:         *reading,
		Romaji:          *romaji,
		Meaning:         *meaning,
		PartOfSpeech:    *pos,
		ExampleSentence: *example,
		ExampleSource:   *source,
		Note:            *note,
		DateAdded:       *date,
	}
	if *tags != "" {
		for _, tag := range strings.Split(*tags, ",") {
			entry.Tags = append(entry.Tags, strings.TrimSpace(tag))
		}
	}

	if err := c.store.AddEntry(ctx, entry); err != nil {
		return err
	}

	c.io.Printf("Added %s (%s)\n", entry.Word, entry.ID)
	return nil
}

// List показывает записи: все даты или одну партицию
func (c *Cli) List(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	date := fs.String("date", "", "show a single partition YYYY-MM-DD")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *date != "" {
		partition, err := c.store.GetPartition(ctx, *date)
		if err != nil {
			return err
		}
		c.printEntries(partition.Entries)
		return nil
	}

	index, err := c.store.Index(ctx)
	if err != nil {
		return err
	}
	if index.TotalCount == 0 {
		c.io.Println("No entries.")
		return nil
	}

	entries, err := c.store.GetEntriesByDates(ctx, index.Dates)
	if err != nil {
		return err
	}

	c.printEntries(entries)
	c.io.Printf("%d entries across %d days\n", index.TotalCount, len(index.Dates))
	return nil
}

// Get показывает одну запись по id
func (c *Cli) Get(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: kotobako get ID")
	}

	entry, err := c.store.GetEntry(ctx, args[0])
	if err != nil {
		if errors.Is(err, vocab.ErrEntryNotFound) {
			return fmt.Errorf("entry %s not found", args[0])
		}
		return err
	}

	c.io.Printf("ID:       %s\n", entry.ID)
	c.io.Printf("Word:     %s\n", entry.Word)
	if entry.Reading != "" {
		c.io.Printf("Reading:  %s\n", entry.Reading)
	}
	if entry.Romaji != "" {
		c.io.Printf("Romaji:   %s\n", entry.Romaji)
	}
	if entry.Meaning != "" {
		c.io.Printf("Meaning:  %s\n", entry.Meaning)
	}
	if entry.PartOfSpeech != "" {
		c.io.Printf("POS:      %s\n", entry.PartOfSpeech)
	}
	if entry.ExampleSentence != "" {
		c.io.Printf("Example:  %s\n", entry.ExampleSentence)
	}
	if entry.Note != "" {
		c.io.Printf("Note:     %s\n", entry.Note)
	}
	if len(entry.Tags) > 0 {
		c.io.Printf("Tags:     %s\n", strings.Join(entry.Tags, ", "))
	}
	c.io.Printf("Added:    %s\n", entry.DateAdded)
	return nil
}

// Search ищет записи по подстроке
func (c *Cli) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: kotobako search QUERY")
	}

	query := strings.Join(args, " ")
	entries, err := c.store.Search(ctx, query)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		c.io.Println("No matches.")
		return nil
	}

	c.printEntries(entries)
	return nil
}

// Delete удаляет запись по id
func (c *Cli) Delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: kotobako delete ID")
	}

	id := args[0]
	entry, err := c.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, vocab.ErrEntryNotFound) {
			return fmt.Errorf("entry %s not found", id)
		}
		return err
	}

	if err := c.store.DeleteEntry(ctx, id, entry.DateAdded); err != nil {
		return err
	}

	c.io.Printf("Deleted %s (%s)\n", entry.Word, id)
	return nil
}

func (c *Cli) printEntries(entries []models.VocabEntry) {
	for _, e := range entries {
		line := e.Word
		if e.Reading != "" {
			line += " [" + e.Reading + "]"
		}
		if e.Meaning != "" {
			line += " - " + e.Meaning
		}
		c.io.Printf("%s  %s  %s\n", e.DateAdded, e.ID, line)
	}
}
