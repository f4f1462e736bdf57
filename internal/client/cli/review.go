package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/iudanet/kotobako/internal/client/vocab"
	"github.com/iudanet/kotobako/internal/models"
)

// Review записывает повторение карточки с оценкой 1..4
func (c *Cli) Review(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	rating := fs.Int("rating", 3, "review rating: 1=again 2=hard 3=good 4=easy")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: kotobako review [--rating N] ID")
	}
	if *rating < 1 || *rating > 4 {
		return fmt.Errorf("rating must be between 1 and 4")
	}

	id := fs.Arg(0)
	entry, err := c.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, vocab.ErrEntryNotFound) {
			return fmt.Errorf("entry %s not found", id)
		}
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	month := now[:7]

	// Текущее состояние карточки, если уже есть
	partition, err := c.store.GetFsrsPartition(ctx, month)
	if err != nil {
		return err
	}
	state := partition.CardStates[id]
	state.Reps++
	if *rating == 1 {
		state.Lapses++
	}

	log := models.ReviewLog{
		VocabID:    id,
		Rating:     *rating,
		ReviewedAt: now,
	}

	if err := c.store.RecordReview(ctx, log, state); err != nil {
		return err
	}

	c.io.Printf("Recorded review of %s (rating %d)\n", entry.Word, *rating)
	return nil
}
