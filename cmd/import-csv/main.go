package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"riftbound/internal/catalog"
	"riftbound/internal/collection"
	"riftbound/pkg/database"
	"riftbound/pkg/logging"
	"riftbound/pkg/models"
	"riftbound/pkg/utils"
)

func main() {
	var (
		cardsIn      = flag.String("cards", "data/cards.csv", "input CSV path for the card catalog")
		collectionIn = flag.String("collection", "", "optional input CSV path for user collections")
	)
	flag.Parse()

	cfg, err := utils.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.NewZapLogger("import-csv", cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
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

	n, err := importCards(ctx, catalog.NewRepo(db), *cardsIn)
	if err != nil {
		log.Error("import cards failed", err, map[string]any{"path": *cardsIn})
		os.Exit(1)
	}
	log.Info("imported cards", map[string]any{"path": *cardsIn, "count": n})

	if *collectionIn != "" {
		n, err := importCollection(ctx, collection.NewRepo(db), *collectionIn)
		if err != nil {
			log.Error("import collection failed", err, map[string]any{"path": *collectionIn})
			os.Exit(1)
		}
		log.Info("imported collection rows", map[string]any{"path": *collectionIn, "count": n})
	}
}

func importCards(ctx context.Context, repo *catalog.Repo, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return 0, err
	}

	count := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}
		if len(row) == 0 {
			continue
		}

		c, err := cardFromRow(header, row)
		if err != nil {
			return count, err
		}
		if c == nil {
			continue
		}
		if err := repo.Upsert(ctx, *c); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func cardFromRow(header map[string]int, row []string) (*models.Card, error) {
	rawID := valueAt(header, row, "id")
	name := valueAt(header, row, "name")
	code := valueAt(header, row, "card_code")
	if rawID == "" || name == "" || code == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", rawID, err)
	}
	cardType, err := models.ParseCardType(valueAt(header, row, "card_type"))
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", code, err)
	}
	rarity, err := models.ParseRarity(valueAt(header, row, "rarity"))
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", code, err)
	}
	energy, err := parseInt(valueAt(header, row, "energy"))
	if err != nil {
		return nil, fmt.Errorf("parse energy for %s: %w", code, err)
	}
	power, err := parseInt(valueAt(header, row, "power"))
	if err != nil {
		return nil, fmt.Errorf("parse power for %s: %w", code, err)
	}
	var price float64
	if raw := valueAt(header, row, "price"); raw != "" {
		if price, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("parse price for %s: %w", code, err)
		}
	}

	return &models.Card{
		ID:          id,
		Name:        name,
		Code:        code,
		Type:        cardType,
		Rarity:      rarity,
		Region:      valueAt(header, row, "region"),
		Champion:    valueAt(header, row, "champion"),
		Energy:      energy,
		Power:       power,
		Price:       price,
		SetName:     valueAt(header, row, "set_name"),
		ArtURL:      valueAt(header, row, "card_art_url"),
		FlavorText:  valueAt(header, row, "flavor_text"),
		Description: valueAt(header, row, "description"),
		Featured:    parseBool(valueAt(header, row, "is_featured")),
	}, nil
}

// importCollection applies user_id,card_id,quantity rows through the
// collection repo so the same quantity rules hold as over HTTP.
func importCollection(ctx context.Context, repo *collection.Repo, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return 0, err
	}

	count := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}

		userID := valueAt(header, row, "user_id")
		rawCard := valueAt(header, row, "card_id")
		if userID == "" || rawCard == "" {
			continue
		}
		cardID, err := strconv.ParseInt(rawCard, 10, 64)
		if err != nil {
			return count, fmt.Errorf("parse card_id for %s: %w", userID, err)
		}
		qty, err := parseInt(valueAt(header, row, "quantity"))
		if err != nil {
			return count, fmt.Errorf("parse quantity for %s/%d: %w", userID, cardID, err)
		}
		if err := repo.UpdateQuantity(ctx, userID, cardID, qty); err != nil {
			return count, fmt.Errorf("%s/%d: %w", userID, cardID, err)
		}
		count++
	}
	return count, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
