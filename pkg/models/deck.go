package models

import (
	"fmt"
	"time"
)

// Slot names a deck zone. The values are also the stored deck_cards.slot.
type Slot string

const (
	SlotMainDeck     Slot = "main_deck"
	SlotRuneDeck     Slot = "rune_deck"
	SlotBattlefields Slot = "battlefields"
)

// Slots lists the zones in save order.
func Slots() []Slot {
	return []Slot{SlotMainDeck, SlotRuneDeck, SlotBattlefields}
}

func ParseSlot(s string) (Slot, error) {
	switch s {
	case "main_deck", "main":
		return SlotMainDeck, nil
	case "rune_deck", "rune":
		return SlotRuneDeck, nil
	case "battlefields", "battlefield":
		return SlotBattlefields, nil
	default:
		return "", fmt.Errorf("unknown zone %q", s)
	}
}

type Deck struct {
	ID               int64      `json:"id"`
	UserID           string     `json:"user_id"`
	Username         string     `json:"username,omitempty"`
	Name             string     `json:"deck_name"`
	Description      string     `json:"description"`
	LegendID         int64      `json:"champion_legend_id"`
	ChosenChampionID int64      `json:"chosen_champion_id"`
	Published        bool       `json:"is_published"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	FeaturedCardID   int64      `json:"featured_card_id,omitempty"`
	ViewCount        int        `json:"view_count"`
	LikeCount        int        `json:"like_count"`
	CopyCount        int        `json:"copy_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type DeckCardEntry struct {
	DeckID   int64 `json:"deck_id"`
	CardID   int64 `json:"card_id"`
	Slot     Slot  `json:"slot"`
	Quantity int   `json:"quantity"`
}

// DeckCard is an entry joined with its catalog record.
type DeckCard struct {
	Card
	Slot     Slot `json:"slot"`
	Quantity int  `json:"quantity"`
}
