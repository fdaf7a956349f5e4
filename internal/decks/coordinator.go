// Package decks persists decks. Coordinator.Save is the authoritative gate:
// it re-validates against freshly loaded catalog data and writes the deck in
// one transaction.
package decks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"riftbound/internal/catalog"
	"riftbound/internal/deck"
	"riftbound/internal/errors"
	"riftbound/pkg/database"
	"riftbound/pkg/logging"
	"riftbound/pkg/models"
)

// SaveInput is a save request. A zero DeckID, or one the user does not own,
// creates a new deck.
type SaveInput struct {
	DeckID      int64  `json:"deck_id,omitempty"`
	Name        string `json:"deck_name"`
	Description string `json:"description"`
	deck.Input
}

type SaveOutput struct {
	DeckID  int64       `json:"deck_id"`
	Created bool        `json:"created"`
	Report  deck.Report `json:"report"`
}

// ValidationFailure rejects a save whose deck breaks a rule. It carries the
// whole report; its message is the first blocking entry.
type ValidationFailure struct {
	Report deck.Report
}

func (f *ValidationFailure) Error() string {
	return f.Report.FirstError()
}

// Unwrap exposes the failure as a FailedPrecondition for code-based callers.
func (f *ValidationFailure) Unwrap() error {
	return errors.FailedPrecondition(f.Report.FirstError())
}

type Coordinator struct {
	DB      *sql.DB
	Catalog catalog.Source
	Repo    *Repo
	Log     logging.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewCoordinator(db *sql.DB, cat catalog.Source, log logging.Logger) *Coordinator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Coordinator{
		DB:       db,
		Catalog:  cat,
		Repo:     NewRepo(db),
		Log:      log.With(map[string]any{"component": "decks"}),
		inFlight: make(map[string]struct{}),
	}
}

// tryLock allows one save per user at a time.
func (c *Coordinator) tryLock(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[userID]; busy {
		return false
	}
	c.inFlight[userID] = struct{}{}
	return true
}

func (c *Coordinator) unlock(userID string) {
	c.mu.Lock()
	delete(c.inFlight, userID)
	c.mu.Unlock()
}

// Save validates in against the live catalog and stores it. Rule violations
// come back as *ValidationFailure and nothing is written.
func (c *Coordinator) Save(ctx context.Context, userID string, in SaveInput) (*SaveOutput, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.InvalidArgument("Deck name is required")
	}
	if in.LegendID <= 0 {
		return nil, errors.InvalidArgument("Champion Legend is required")
	}

	if !c.tryLock(userID) {
		return nil, errors.Aborted("a save is already in progress")
	}
	defer c.unlock(userID)

	snap, err := c.Catalog.Snapshot(ctx, in.CardIDs())
	if err != nil {
		c.Log.Error("catalog snapshot failed", err, map[string]any{"user_id": userID})
		return nil, errors.Wrap(err, "failed to save deck")
	}
	report := deck.Validate(in.Input, snap)
	if !report.Saveable {
		c.Log.Debug("deck rejected", map[string]any{
			"user_id": userID,
			"deck_id": in.DeckID,
			"reason":  report.FirstError(),
		})
		return nil, &ValidationFailure{Report: report}
	}

	out := &SaveOutput{Report: report}
	err = database.WithTransaction(ctx, c.DB, func(tx *sql.Tx) error {
		id, created, err := writeHeader(ctx, tx, userID, name, in)
		if err != nil {
			return err
		}
		out.DeckID = id
		out.Created = created

		for _, slot := range models.Slots() {
			for _, cardID := range in.Zone(slot) {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO deck_cards (deck_id, card_id, slot, quantity)
					VALUES (?, ?, ?, 1)
					ON CONFLICT(deck_id, card_id, slot) DO UPDATE SET quantity = quantity + 1
				`, id, cardID, string(slot)); err != nil {
					return fmt.Errorf("insert deck card %d: %w", cardID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		c.Log.Error("save deck failed", err, map[string]any{"user_id": userID, "deck_id": in.DeckID})
		return nil, errors.Wrap(err, "failed to save deck")
	}

	c.Log.Info("deck saved", map[string]any{
		"user_id": userID,
		"deck_id": out.DeckID,
		"created": out.Created,
	})
	return out, nil
}

// writeHeader updates the deck if userID owns in.DeckID and clears its cards;
// otherwise it inserts a new deck.
func writeHeader(ctx context.Context, tx *sql.Tx, userID, name string, in SaveInput) (int64, bool, error) {
	if in.DeckID > 0 {
		res, err := tx.ExecContext(ctx, `
			UPDATE decks
			SET deck_name = ?, description = ?, champion_legend_id = ?, chosen_champion_id = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND user_id = ?
		`, name, in.Description, in.LegendID, in.ChosenChampionID, in.DeckID, userID)
		if err != nil {
			return 0, false, fmt.Errorf("update deck: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM deck_cards WHERE deck_id = ?`, in.DeckID); err != nil {
				return 0, false, fmt.Errorf("clear deck cards: %w", err)
			}
			return in.DeckID, false, nil
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO decks (user_id, deck_name, description, champion_legend_id, chosen_champion_id)
		VALUES (?, ?, ?, ?, ?)
	`, userID, name, in.Description, in.LegendID, in.ChosenChampionID)
	if err != nil {
		return 0, false, fmt.Errorf("insert deck: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("last insert id: %w", err)
	}
	return id, true, nil
}

// Hydrate loads an owned deck back into an editable Input.
func (c *Coordinator) Hydrate(ctx context.Context, userID string, deckID int64) (*models.Deck, deck.Input, error) {
	d, err := c.Repo.Get(ctx, deckID)
	if err != nil {
		return nil, deck.Input{}, errors.Wrap(err, "failed to load deck")
	}
	if d == nil || d.UserID != userID {
		return nil, deck.Input{}, errors.NotFound("Deck not found")
	}
	entries, err := c.Repo.Entries(ctx, deckID)
	if err != nil {
		return nil, deck.Input{}, errors.Wrap(err, "failed to load deck")
	}
	return d, deck.InputFromEntries(d.LegendID, d.ChosenChampionID, entries), nil
}
