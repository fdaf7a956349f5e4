package deck

import (
	"fmt"

	"riftbound/internal/catalog"
	"riftbound/internal/errors"
	"riftbound/pkg/models"
)

// Reason explains the outcome of an interactive add.
type Reason string

const (
	ReasonOK                   Reason = "ok"
	ReasonMaxCopies            Reason = "max_copies"
	ReasonSignatureCap         Reason = "signature_cap"
	ReasonSignatureTag         Reason = "signature_tag"
	ReasonRuneDeckFull         Reason = "rune_deck_full"
	ReasonDuplicateBattlefield Reason = "duplicate_battlefield"
	ReasonUnknownCard          Reason = "unknown_card"
	ReasonUnknownZone          Reason = "unknown_zone"
	ReasonWrongZone            Reason = "wrong_zone"
)

var reasonMessages = map[Reason]string{
	ReasonOK:                   "",
	ReasonMaxCopies:            fmt.Sprintf("Maximum %d copies allowed per card", MaxCopies),
	ReasonSignatureCap:         fmt.Sprintf("Maximum %d Signature cards allowed", MaxSignatureCards),
	ReasonSignatureTag:         "Signature cards must match your Champion Legend's tag",
	ReasonRuneDeckFull:         fmt.Sprintf("Rune deck must be exactly %d cards", RuneDeckSize),
	ReasonDuplicateBattlefield: "Cannot include more than one Battlefield of the same name",
	ReasonUnknownCard:          "Card not found",
	ReasonUnknownZone:          "Unknown deck zone",
	ReasonWrongZone:            "This card type cannot go in that zone",
}

type AddResult struct {
	Added   bool   `json:"added"`
	Reason  Reason `json:"reason"`
	Message string `json:"message,omitempty"`
	CardID  int64  `json:"card_id"`
}

func result(r Reason, id int64) AddResult {
	return AddResult{Added: r == ReasonOK, Reason: r, Message: reasonMessages[r], CardID: id}
}

type Counts struct {
	MainDeck     int `json:"main_deck"`
	RuneDeck     int `json:"rune_deck"`
	Battlefields int `json:"battlefields"`
	Signature    int `json:"signature"`
}

// Composition is one editing session's deck, bound to the catalog it is
// checked against. It is not safe for concurrent use.
type Composition struct {
	cat catalog.Catalog
	in  Input
}

func NewComposition(cat catalog.Catalog) *Composition {
	return FromInput(cat, Input{})
}

// FromInput copies in, so later edits never alias the caller's slices.
func FromInput(cat catalog.Catalog, in Input) *Composition {
	return &Composition{cat: cat, in: in.Clone()}
}

// Input returns a copy of the current state.
func (c *Composition) Input() Input {
	return c.in.Clone()
}

func (c *Composition) Legend() (*models.Card, bool) {
	if c.in.LegendID <= 0 {
		return nil, false
	}
	return c.cat.Card(c.in.LegendID)
}

// SetLegend replaces the legend. The chosen champion and the zones are kept
// as they are; Validate reports whatever no longer fits.
func (c *Composition) SetLegend(id int64) error {
	card, ok := c.cat.Card(id)
	if !ok {
		return errors.NotFoundf("card %d not found", id)
	}
	if !isLegend(card) {
		return errors.InvalidArgumentf("%s is not a Champion Legend", card.Name)
	}
	c.in.LegendID = id
	return nil
}

// SetChosenChampion only records the designation; it does not add the
// card to the main deck.
func (c *Composition) SetChosenChampion(id int64) error {
	card, ok := c.cat.Card(id)
	if !ok {
		return errors.NotFoundf("card %d not found", id)
	}
	if !IsChampionEligible(card) {
		return errors.InvalidArgumentf("%s cannot be a Chosen Champion", card.Name)
	}
	c.in.ChosenChampionID = id
	return nil
}

func (c *Composition) ClearChosenChampion() {
	c.in.ChosenChampionID = 0
}

// AddToZone appends one copy of id to zone unless an interactive check
// rejects it. These checks give early feedback only; Validate stays the
// authority at save time.
func (c *Composition) AddToZone(zone models.Slot, id int64) AddResult {
	target := c.in.zonePtr(zone)
	if target == nil {
		return result(ReasonUnknownZone, id)
	}
	card, ok := c.cat.Card(id)
	if !ok {
		return result(ReasonUnknownCard, id)
	}
	if !fitsZone(zone, card) {
		return result(ReasonWrongZone, id)
	}

	switch zone {
	case models.SlotMainDeck:
		if copiesOf(c.in.MainDeck, id) >= MaxCopies {
			return result(ReasonMaxCopies, id)
		}
		if isSignature(card) {
			if countSignatures(c.in.MainDeck, c.cat) >= MaxSignatureCards {
				return result(ReasonSignatureCap, id)
			}
			if legend, ok := c.Legend(); ok && !signatureMatches(legend, card) {
				return result(ReasonSignatureTag, id)
			}
		}
	case models.SlotRuneDeck:
		if len(c.in.RuneDeck) >= RuneDeckSize {
			return result(ReasonRuneDeckFull, id)
		}
	case models.SlotBattlefields:
		if battlefieldNameTaken(c.in.Battlefields, c.cat, card.Name) {
			return result(ReasonDuplicateBattlefield, id)
		}
	}

	*target = append(*target, id)
	return result(ReasonOK, id)
}

// RemoveFromZone drops one occurrence of id and reports whether one existed.
func (c *Composition) RemoveFromZone(zone models.Slot, id int64) bool {
	target := c.in.zonePtr(zone)
	if target == nil {
		return false
	}
	for i, z := range *target {
		if z == id {
			*target = append((*target)[:i], (*target)[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Composition) Counts() Counts {
	return Counts{
		MainDeck:     len(c.in.MainDeck),
		RuneDeck:     len(c.in.RuneDeck),
		Battlefields: len(c.in.Battlefields),
		Signature:    countSignatures(c.in.MainDeck, c.cat),
	}
}

// Clear empties every zone and drops the legend and chosen champion.
func (c *Composition) Clear() {
	c.in = Input{}.Clone()
}

func (c *Composition) Validate() Report {
	return Validate(c.in, c.cat)
}
