package deck

import (
	"math"

	"riftbound/pkg/models"
)

// Stats summarizes a stored deck for the deck view.
type Stats struct {
	UniqueCards   int                     `json:"unique_cards"`
	TotalCards    int                     `json:"total_cards"`
	AverageEnergy float64                 `json:"average_energy"`
	TypeBreakdown map[models.CardType]int `json:"type_breakdown"`
	Groups        Groups                  `json:"groups"`
}

// Groups splits a deck the way the deck view lists it. Champion rarity wins
// over card type.
type Groups struct {
	Champions []models.DeckCard `json:"champions"`
	Units     []models.DeckCard `json:"units"`
	Spells    []models.DeckCard `json:"spells"`
	Other     []models.DeckCard `json:"other"`
}

func Summarize(cards []models.DeckCard) Stats {
	s := Stats{
		TypeBreakdown: make(map[models.CardType]int),
		Groups: Groups{
			Champions: []models.DeckCard{},
			Units:     []models.DeckCard{},
			Spells:    []models.DeckCard{},
			Other:     []models.DeckCard{},
		},
	}

	energy := 0
	seen := make(map[int64]struct{}, len(cards))
	for _, dc := range cards {
		if _, ok := seen[dc.ID]; !ok {
			seen[dc.ID] = struct{}{}
			s.UniqueCards++
		}
		s.TotalCards += dc.Quantity
		energy += dc.Energy * dc.Quantity
		s.TypeBreakdown[dc.Type] += dc.Quantity

		switch {
		case dc.Rarity == models.RarityChampion:
			s.Groups.Champions = append(s.Groups.Champions, dc)
		case dc.Type == models.CardTypeUnit:
			s.Groups.Units = append(s.Groups.Units, dc)
		case dc.Type == models.CardTypeSpell:
			s.Groups.Spells = append(s.Groups.Spells, dc)
		default:
			s.Groups.Other = append(s.Groups.Other, dc)
		}
	}
	if s.TotalCards > 0 {
		s.AverageEnergy = math.Round(float64(energy)/float64(s.TotalCards)*10) / 10
	}
	return s
}
