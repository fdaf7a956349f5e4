package models

import (
	"fmt"
	"strings"
)

// CardType is the closed set of card types printed on Riftbound cards.
type CardType string

const (
	CardTypeLegend      CardType = "Legend"
	CardTypeChampion    CardType = "Champion"
	CardTypeSignature   CardType = "Signature"
	CardTypeUnit        CardType = "Unit"
	CardTypeSpell       CardType = "Spell"
	CardTypeEquipment   CardType = "Equipment"
	CardTypeLandmark    CardType = "Landmark"
	CardTypeRune        CardType = "Rune"
	CardTypeBattlefield CardType = "Battlefield"
)

var cardTypes = []CardType{
	CardTypeLegend,
	CardTypeChampion,
	CardTypeSignature,
	CardTypeUnit,
	CardTypeSpell,
	CardTypeEquipment,
	CardTypeLandmark,
	CardTypeRune,
	CardTypeBattlefield,
}

// CardTypes returns every known card type in display order.
func CardTypes() []CardType {
	out := make([]CardType, len(cardTypes))
	copy(out, cardTypes)
	return out
}

// ParseCardType accepts the stored spelling case-insensitively.
// "Gear" is the older printing of Equipment.
func ParseCardType(s string) (CardType, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "gear") {
		return CardTypeEquipment, nil
	}
	for _, t := range cardTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown card type %q", s)
}

func (t CardType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (t *CardType) UnmarshalText(b []byte) error {
	v, err := ParseCardType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Rarity is independent of CardType; a Champion-rarity card may be typed Unit.
type Rarity string

const (
	RarityCommon       Rarity = "Common"
	RarityUncommon     Rarity = "Uncommon"
	RarityRare         Rarity = "Rare"
	RarityEpic         Rarity = "Epic"
	RarityShowcase     Rarity = "Showcase"
	RarityPromo        Rarity = "Promo"
	RarityOvernumbered Rarity = "Overnumbered"
	RarityChampion     Rarity = "Champion"
)

var rarities = []Rarity{
	RarityCommon,
	RarityUncommon,
	RarityRare,
	RarityEpic,
	RarityShowcase,
	RarityPromo,
	RarityOvernumbered,
	RarityChampion,
}

func ParseRarity(s string) (Rarity, error) {
	s = strings.TrimSpace(s)
	for _, r := range rarities {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown rarity %q", s)
}

func (r Rarity) MarshalText() ([]byte, error) {
	return []byte(r), nil
}

func (r *Rarity) UnmarshalText(b []byte) error {
	v, err := ParseRarity(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// NeutralRegion is the catalog spelling for a card without domain identity.
const NeutralRegion = "None"

type Card struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Code        string   `json:"card_code"`
	Type        CardType `json:"card_type"`
	Rarity      Rarity   `json:"rarity"`
	Region      string   `json:"region,omitempty"`
	Champion    string   `json:"champion,omitempty"`
	Energy      int      `json:"energy"`
	Power       int      `json:"power"`
	Price       float64  `json:"price"`
	SetName     string   `json:"set_name,omitempty"`
	ArtURL      string   `json:"card_art_url,omitempty"`
	FlavorText  string   `json:"flavor_text,omitempty"`
	Description string   `json:"description,omitempty"`
	Featured    bool     `json:"is_featured"`
}

// Neutral reports whether the card carries no domain identity.
func (c Card) Neutral() bool {
	return c.Region == "" || c.Region == NeutralRegion
}
