// Package testutil holds shared fixtures for package tests: a small
// synthetic card catalog, a migrated sqlite database and an in-memory Redis.
package testutil

import (
	"fmt"

	"riftbound/internal/catalog"
	"riftbound/internal/deck"
	"riftbound/pkg/models"
)

// Fixture card ids.
const (
	DariusLegend      int64 = 1
	GarenLegend       int64 = 2
	DariusChampion    int64 = 3
	GarenChampion     int64 = 4
	DariusRarityUnit  int64 = 5 // Unit with Champion rarity
	DariusSignature   int64 = 6
	GarenSignature    int64 = 7
	DariusSignature2  int64 = 8
	HowlingAbyss      int64 = 10
	HowlingAbyssAlt   int64 = 11 // same name, different printing
	SummonersRift     int64 = 12
	FirstNeutralUnit  int64 = 20 // 20..39 are neutral units
	NoxusUnit         int64 = 50
	DemaciaUnit       int64 = 51
	NeutralRune       int64 = 60
	NoxusRune         int64 = 61
	NeutralSpell      int64 = 70
	neutralUnitsCount       = 20
)

// Code is the fixture card code for id.
func Code(id int64) string {
	return fmt.Sprintf("OGN-%03d", id)
}

func card(id int64, name string, t models.CardType, r models.Rarity, region, champion string, energy int) models.Card {
	return models.Card{
		ID:       id,
		Name:     name,
		Code:     Code(id),
		Type:     t,
		Rarity:   r,
		Region:   region,
		Champion: champion,
		Energy:   energy,
		Price:    0.25,
		SetName:  "Origins",
	}
}

// Cards returns the fixture catalog records.
func Cards() []models.Card {
	cards := []models.Card{
		card(DariusLegend, "Darius, Hand of Noxus", models.CardTypeLegend, models.RarityRare, "Noxus", "Darius", 0),
		card(GarenLegend, "Garen, Might of Demacia", models.CardTypeLegend, models.RarityRare, "Demacia", "Garen", 0),
		card(DariusChampion, "Darius", models.CardTypeChampion, models.RarityEpic, "Noxus", "Darius", 5),
		card(GarenChampion, "Garen", models.CardTypeChampion, models.RarityEpic, "Demacia", "Garen", 5),
		card(DariusRarityUnit, "Darius, Executioner", models.CardTypeUnit, models.RarityChampion, "Noxus", "Darius", 6),
		card(DariusSignature, "Noxian Guillotine", models.CardTypeSignature, models.RarityRare, "Noxus", "Darius", 3),
		card(GarenSignature, "Decisive Strike", models.CardTypeSignature, models.RarityRare, "Demacia", "Garen", 3),
		card(DariusSignature2, "Apprehend", models.CardTypeSignature, models.RarityRare, "Noxus", "Darius", 2),
		card(HowlingAbyss, "Howling Abyss", models.CardTypeBattlefield, models.RarityCommon, models.NeutralRegion, "", 0),
		card(HowlingAbyssAlt, "Howling Abyss", models.CardTypeBattlefield, models.RarityShowcase, models.NeutralRegion, "", 0),
		card(SummonersRift, "Summoner's Rift", models.CardTypeBattlefield, models.RarityCommon, models.NeutralRegion, "", 0),
		card(NoxusUnit, "Noxian Drummer", models.CardTypeUnit, models.RarityCommon, "Noxus", "", 2),
		card(DemaciaUnit, "Vanguard Captain", models.CardTypeUnit, models.RarityCommon, "Demacia", "", 2),
		card(NeutralRune, "Rune of Power", models.CardTypeRune, models.RarityCommon, models.NeutralRegion, "", 0),
		card(NoxusRune, "Fury Rune", models.CardTypeRune, models.RarityCommon, "Noxus", "", 0),
		card(NeutralSpell, "Hextech Ray", models.CardTypeSpell, models.RarityCommon, "", "", 1),
	}
	for i := range int64(neutralUnitsCount) {
		id := FirstNeutralUnit + i
		cards = append(cards, card(id, fmt.Sprintf("Recruit %d", id), models.CardTypeUnit, models.RarityCommon, "", "", int(i%5)+1))
	}
	return cards
}

func Catalog() *catalog.Memory {
	return catalog.NewMemory(Cards()...)
}

// NeutralMain returns n neutral unit ids, three copies per card.
func NeutralMain(n int) []int64 {
	out := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, FirstNeutralUnit+int64(i/deck.MaxCopies)%neutralUnitsCount)
	}
	return out
}

// Repeat returns id n times.
func Repeat(id int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = id
	}
	return out
}

// LegalInput is a saveable Darius deck: 40 main, 12 runes, two battlefields.
func LegalInput() deck.Input {
	return deck.Input{
		LegendID:         DariusLegend,
		ChosenChampionID: DariusChampion,
		MainDeck:         NeutralMain(deck.MainDeckMin),
		RuneDeck:         Repeat(NeutralRune, deck.RuneDeckSize),
		Battlefields:     []int64{HowlingAbyss, SummonersRift},
	}
}
