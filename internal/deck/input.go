// Package deck holds the deck composition model and the rule checks that
// decide whether a deck may be saved. Everything here is pure: card facts
// come from the catalog.Catalog handed in by the caller.
package deck

import (
	"riftbound/pkg/models"
)

// Input is the wire and storage shape of a deck under construction.
// Zones are unit lists: a card id repeated N times means N copies.
// Zero ids mean "not selected".
type Input struct {
	LegendID         int64   `json:"champion_legend_id"`
	ChosenChampionID int64   `json:"chosen_champion_id"`
	MainDeck         []int64 `json:"main_deck"`
	RuneDeck         []int64 `json:"rune_deck"`
	Battlefields     []int64 `json:"battlefields"`
}

// Clone returns a deep copy with non-nil zone slices.
func (in Input) Clone() Input {
	return Input{
		LegendID:         in.LegendID,
		ChosenChampionID: in.ChosenChampionID,
		MainDeck:         append([]int64{}, in.MainDeck...),
		RuneDeck:         append([]int64{}, in.RuneDeck...),
		Battlefields:     append([]int64{}, in.Battlefields...),
	}
}

// Zone returns the unit list stored for slot, or nil for an unknown slot.
func (in Input) Zone(slot models.Slot) []int64 {
	switch slot {
	case models.SlotMainDeck:
		return in.MainDeck
	case models.SlotRuneDeck:
		return in.RuneDeck
	case models.SlotBattlefields:
		return in.Battlefields
	}
	return nil
}

func (in *Input) zonePtr(slot models.Slot) *[]int64 {
	switch slot {
	case models.SlotMainDeck:
		return &in.MainDeck
	case models.SlotRuneDeck:
		return &in.RuneDeck
	case models.SlotBattlefields:
		return &in.Battlefields
	}
	return nil
}

// CardIDs lists every referenced id once, legend and chosen champion first.
func (in Input) CardIDs() []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	add := func(id int64) {
		if id <= 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(in.LegendID)
	add(in.ChosenChampionID)
	for _, slot := range models.Slots() {
		for _, id := range in.Zone(slot) {
			add(id)
		}
	}
	return out
}

// Entries aggregates the unit lists into per-slot quantities, in
// first-appearance order within each slot.
func (in Input) Entries() []models.DeckCardEntry {
	var out []models.DeckCardEntry
	for _, slot := range models.Slots() {
		idx := make(map[int64]int)
		for _, id := range in.Zone(slot) {
			if i, ok := idx[id]; ok {
				out[i].Quantity++
				continue
			}
			idx[id] = len(out)
			out = append(out, models.DeckCardEntry{CardID: id, Slot: slot, Quantity: 1})
		}
	}
	return out
}

// InputFromEntries expands stored quantities back into unit lists.
func InputFromEntries(legendID, championID int64, entries []models.DeckCardEntry) Input {
	in := Input{
		LegendID:         legendID,
		ChosenChampionID: championID,
		MainDeck:         []int64{},
		RuneDeck:         []int64{},
		Battlefields:     []int64{},
	}
	for _, e := range entries {
		zone := in.zonePtr(e.Slot)
		if zone == nil {
			continue
		}
		for range e.Quantity {
			*zone = append(*zone, e.CardID)
		}
	}
	return in
}
