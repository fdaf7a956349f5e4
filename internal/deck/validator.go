package deck

import (
	"fmt"

	"riftbound/internal/catalog"
	"riftbound/pkg/models"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Entry codes. They are stable and safe for clients to switch on.
const (
	CodeLegendMissing        = "legend_missing"
	CodeLegendInvalid        = "legend_invalid"
	CodeChampionMissing      = "champion_missing"
	CodeChampionInvalid      = "champion_invalid"
	CodeChampionTag          = "champion_tag_mismatch"
	CodeMainDeckSize         = "main_deck_size"
	CodeMainDeckCount        = "main_deck_count"
	CodeRuneDeckSize         = "rune_deck_size"
	CodeRuneDeckComplete     = "rune_deck_complete"
	CodeMaxCopies            = "max_copies"
	CodeSignatureCap         = "signature_cap"
	CodeSignatureTag         = "signature_tag"
	CodeDomainIdentity       = "domain_identity"
	CodeWrongZone            = "wrong_zone"
	CodeDuplicateBattlefield = "duplicate_battlefield"
	CodeUnknownCard          = "unknown_card"
)

type Entry struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	CardID   int64    `json:"card_id,omitempty"`
	Blocking bool     `json:"blocking"`
}

// Report is the ordered outcome of Validate. Saveable is false as soon as
// one entry blocks; an unstarted rune deck is a blocking warning.
type Report struct {
	Entries  []Entry `json:"entries"`
	Saveable bool    `json:"is_saveable"`
}

// Errors returns the blocking entries in report order.
func (r Report) Errors() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Blocking {
			out = append(out, e)
		}
	}
	return out
}

// FirstError is the message of the first blocking entry, or "".
func (r Report) FirstError() string {
	for _, e := range r.Entries {
		if e.Blocking {
			return e.Message
		}
	}
	return ""
}

// Has reports whether any entry carries code.
func (r Report) Has(code string) bool {
	for _, e := range r.Entries {
		if e.Code == code {
			return true
		}
	}
	return false
}

type reportBuilder struct {
	entries []Entry
}

func (b *reportBuilder) fail(code, msg string, cardID int64) {
	b.entries = append(b.entries, Entry{Severity: SeverityError, Code: code, Message: msg, CardID: cardID, Blocking: true})
}

func (b *reportBuilder) add(sev Severity, code, msg string, blocking bool) {
	b.entries = append(b.entries, Entry{Severity: sev, Code: code, Message: msg, Blocking: blocking})
}

func (b *reportBuilder) report() Report {
	r := Report{Entries: b.entries, Saveable: true}
	if r.Entries == nil {
		r.Entries = []Entry{}
	}
	for _, e := range r.Entries {
		if e.Blocking {
			r.Saveable = false
			break
		}
	}
	return r
}

// Validate checks in against cat and returns every finding in a fixed order:
// legend, chosen champion, main deck size, rune deck size, copy cap,
// signature cards, domain identity, zone card types, battlefield names,
// unknown cards.
// It never fails; a broken deck is described by the report.
func Validate(in Input, cat catalog.Catalog) Report {
	var b reportBuilder

	var legend *models.Card
	if in.LegendID <= 0 {
		b.fail(CodeLegendMissing, "Must select a Champion Legend", 0)
	} else if c, ok := cat.Card(in.LegendID); !ok || !isLegend(c) {
		b.fail(CodeLegendInvalid, "Invalid Champion Legend", in.LegendID)
	} else {
		legend = c
	}

	if in.ChosenChampionID <= 0 {
		b.fail(CodeChampionMissing, "Must select a Chosen Champion", 0)
	} else if c, ok := cat.Card(in.ChosenChampionID); !ok || !IsChampionEligible(c) {
		b.fail(CodeChampionInvalid, "Invalid Chosen Champion", in.ChosenChampionID)
	} else if legend != nil && !championTagMatches(legend, c) {
		b.fail(CodeChampionTag, "Chosen Champion must match Champion Legend's tag", in.ChosenChampionID)
	}

	if n := len(in.MainDeck); n < MainDeckMin {
		b.fail(CodeMainDeckSize, fmt.Sprintf("Main deck must have at least %d cards (currently %d)", MainDeckMin, n), 0)
	} else {
		b.add(SeverityInfo, CodeMainDeckCount, fmt.Sprintf("Main deck: %d cards", n), false)
	}

	switch n := len(in.RuneDeck); {
	case n == RuneDeckSize:
		b.add(SeverityInfo, CodeRuneDeckComplete, fmt.Sprintf("Rune deck complete: %d cards", RuneDeckSize), false)
	case n == 0:
		b.add(SeverityWarning, CodeRuneDeckSize, fmt.Sprintf("Rune deck must be exactly %d cards (currently %d)", RuneDeckSize, n), true)
	default:
		b.fail(CodeRuneDeckSize, fmt.Sprintf("Rune deck must be exactly %d cards (currently %d)", RuneDeckSize, n), 0)
	}

	all := make([]int64, 0, len(in.MainDeck)+len(in.RuneDeck)+len(in.Battlefields))
	all = append(all, in.MainDeck...)
	all = append(all, in.RuneDeck...)
	all = append(all, in.Battlefields...)
	all = distinct(all)

	mainIDs := distinct(in.MainDeck)
	for _, id := range mainIDs {
		if copiesOf(in.MainDeck, id) > MaxCopies {
			b.fail(CodeMaxCopies, fmt.Sprintf("Maximum %d copies allowed per card (%s)", MaxCopies, cardName(cat, id)), id)
		}
	}

	if n := countSignatures(in.MainDeck, cat); n > MaxSignatureCards {
		b.fail(CodeSignatureCap, fmt.Sprintf("Too many Signature cards (%d/%d)", n, MaxSignatureCards), 0)
	}
	if legend != nil {
		for _, id := range mainIDs {
			c, ok := cat.Card(id)
			if ok && isSignature(c) && !signatureMatches(legend, c) {
				b.fail(CodeSignatureTag, "Signature cards must match Champion Legend's tag", id)
			}
		}

		for _, id := range all {
			c, ok := cat.Card(id)
			if ok && !matchesDomain(legend, c) {
				b.fail(CodeDomainIdentity, fmt.Sprintf("Card '%s' does not match Domain Identity (%s)", c.Name, c.Region), id)
			}
		}
	}

	for _, slot := range models.Slots() {
		for _, id := range distinct(in.Zone(slot)) {
			c, ok := cat.Card(id)
			if ok && !fitsZone(slot, c) {
				b.fail(CodeWrongZone, fmt.Sprintf("%s (%s) cannot be in the %s", c.Name, c.Type, zoneNames[slot]), id)
			}
		}
	}

	reported := make(map[string]struct{})
	for i, id := range in.Battlefields {
		c, ok := cat.Card(id)
		if !ok {
			continue
		}
		if _, done := reported[c.Name]; done {
			continue
		}
		if battlefieldNameTaken(in.Battlefields[:i], cat, c.Name) {
			reported[c.Name] = struct{}{}
			b.fail(CodeDuplicateBattlefield, fmt.Sprintf("Cannot include more than one Battlefield of the same name (%s)", c.Name), id)
		}
	}

	for _, id := range all {
		if _, ok := cat.Card(id); !ok {
			b.fail(CodeUnknownCard, fmt.Sprintf("Unknown card #%d", id), id)
		}
	}

	return b.report()
}

var zoneNames = map[models.Slot]string{
	models.SlotMainDeck:     "main deck",
	models.SlotRuneDeck:     "rune deck",
	models.SlotBattlefields: "battlefields",
}

func cardName(cat catalog.Catalog, id int64) string {
	if c, ok := cat.Card(id); ok {
		return c.Name
	}
	return fmt.Sprintf("#%d", id)
}
