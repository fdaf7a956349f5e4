package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"riftbound/internal/catalog"
	"riftbound/pkg/database"
	"riftbound/pkg/logging"
	"riftbound/pkg/utils"
)

func main() {
	var (
		cardsOut = flag.String("cards", "data/cards.csv", "output CSV path for the card catalog")
		decksOut = flag.String("decks", "data/deck_cards.csv", "output CSV path for saved deck contents")
	)
	flag.Parse()

	cfg, err := utils.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.NewZapLogger("export-csv", cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Error("db open failed", err, nil)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Error("db migrate failed", err, nil)
		os.Exit(1)
	}

	if err := exportCards(ctx, catalog.NewRepo(db), *cardsOut); err != nil {
		log.Error("export cards failed", err, map[string]any{"path": *cardsOut})
		os.Exit(1)
	}
	if err := exportDeckCards(ctx, db, *decksOut); err != nil {
		log.Error("export decks failed", err, map[string]any{"path": *decksOut})
		os.Exit(1)
	}

	log.Info("export finished", map[string]any{"cards": *cardsOut, "decks": *decksOut})
}

func create(outPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, err
	}
	return os.Create(outPath)
}

// exportCards writes the columns import-csv reads back.
func exportCards(ctx context.Context, repo *catalog.Repo, outPath string) error {
	cat, err := repo.All(ctx)
	if err != nil {
		return err
	}

	f, err := create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "name", "card_code", "card_type", "rarity", "region", "champion",
		"energy", "power", "price", "set_name", "card_art_url", "flavor_text", "description", "is_featured"}); err != nil {
		return err
	}

	for _, c := range cat.Cards() {
		if err := w.Write([]string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Code,
			string(c.Type),
			string(c.Rarity),
			c.Region,
			c.Champion,
			strconv.Itoa(c.Energy),
			strconv.Itoa(c.Power),
			strconv.FormatFloat(c.Price, 'f', 2, 64),
			c.SetName,
			c.ArtURL,
			c.FlavorText,
			c.Description,
			strconv.FormatBool(c.Featured),
		}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func exportDeckCards(ctx context.Context, db *sql.DB, outPath string) error {
	f, err := create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"deck_id", "deck_name", "user_id", "is_published", "slot", "card_code", "quantity"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT d.id, d.deck_name, d.user_id, d.is_published, dc.slot, c.card_code, dc.quantity
		FROM decks d
		JOIN deck_cards dc ON dc.deck_id = d.id
		JOIN cards c ON c.id = dc.card_id
		ORDER BY d.id, dc.slot, c.card_code
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			deckID    int64
			name      string
			userID    string
			published bool
			slot      string
			code      string
			qty       int
		)
		if err := rows.Scan(&deckID, &name, &userID, &published, &slot, &code, &qty); err != nil {
			return err
		}
		if err := w.Write([]string{
			strconv.FormatInt(deckID, 10),
			name,
			userID,
			strconv.FormatBool(published),
			slot,
			code,
			strconv.Itoa(qty),
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
