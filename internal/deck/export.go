package deck

import (
	"fmt"
	"strings"

	"riftbound/internal/catalog"
	"riftbound/pkg/models"
)

var sectionTitles = map[models.Slot]string{
	models.SlotMainDeck:     "Main Deck:",
	models.SlotRuneDeck:     "Rune Deck:",
	models.SlotBattlefields: "Battlefields:",
}

// Export renders in as plain text that ParseDeckCode reads back. Cards
// missing from cat are left out.
func Export(in Input, cat catalog.Catalog) string {
	var sb strings.Builder
	sb.WriteString("# Riftbound Deck Export\n\n")

	if c, ok := cat.Card(in.LegendID); ok {
		fmt.Fprintf(&sb, "Champion Legend: %s\n", c.Name)
	}
	if c, ok := cat.Card(in.ChosenChampionID); ok {
		fmt.Fprintf(&sb, "Chosen Champion: %s\n", c.Name)
	}

	entries := in.Entries()
	for _, slot := range models.Slots() {
		sb.WriteString("\n")
		sb.WriteString(sectionTitles[slot])
		sb.WriteString("\n")
		for _, e := range entries {
			if e.Slot != slot {
				continue
			}
			c, ok := cat.Card(e.CardID)
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "%dx %s\n", e.Quantity, c.Code)
		}
	}
	return sb.String()
}
