package deck

import (
	"riftbound/internal/catalog"
	"riftbound/pkg/models"
)

// Deck construction limits.
const (
	MainDeckMin       = 40
	RuneDeckSize      = 12
	MaxCopies         = 3
	MaxSignatureCards = 3
)

// The predicates below are the only place the deck rules are written down.
// Validate and Composition.AddToZone both call them.

func isLegend(c *models.Card) bool {
	return c != nil && c.Type == models.CardTypeLegend
}

// IsChampionEligible reports whether c may be designated the chosen champion.
func IsChampionEligible(c *models.Card) bool {
	return c != nil && (c.Type == models.CardTypeChampion || c.Rarity == models.RarityChampion)
}

func isSignature(c *models.Card) bool {
	return c != nil && c.Type == models.CardTypeSignature
}

func championTagMatches(legend, champion *models.Card) bool {
	return champion.Champion == legend.Champion
}

func signatureMatches(legend, sig *models.Card) bool {
	return sig.Champion == legend.Champion
}

// matchesDomain is true for neutral cards and cards of the legend's region.
func matchesDomain(legend, c *models.Card) bool {
	return c.Neutral() || c.Region == legend.Region
}

// fitsZone reports whether c's card type belongs in zone: runes only in
// the rune deck, battlefields only in battlefields, and neither legends,
// runes nor battlefields in the main deck.
func fitsZone(zone models.Slot, c *models.Card) bool {
	switch zone {
	case models.SlotMainDeck:
		switch c.Type {
		case models.CardTypeLegend, models.CardTypeRune, models.CardTypeBattlefield:
			return false
		}
		return true
	case models.SlotRuneDeck:
		return c.Type == models.CardTypeRune
	case models.SlotBattlefields:
		return c.Type == models.CardTypeBattlefield
	}
	return false
}

func copiesOf(zone []int64, id int64) int {
	n := 0
	for _, z := range zone {
		if z == id {
			n++
		}
	}
	return n
}

func countSignatures(zone []int64, cat catalog.Catalog) int {
	n := 0
	for _, id := range zone {
		if c, ok := cat.Card(id); ok && isSignature(c) {
			n++
		}
	}
	return n
}

// battlefieldNameTaken reports whether a card named name already sits in zone.
func battlefieldNameTaken(zone []int64, cat catalog.Catalog, name string) bool {
	for _, id := range zone {
		if c, ok := cat.Card(id); ok && c.Name == name {
			return true
		}
	}
	return false
}

// distinct keeps the first occurrence of every id.
func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
