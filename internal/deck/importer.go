package deck

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"riftbound/internal/catalog"
	"riftbound/internal/errors"
	"riftbound/pkg/models"
)

var (
	ttsDetect   = regexp.MustCompile(`[A-Z]+-\d+-\d+`)
	ttsToken    = regexp.MustCompile(`^([A-Z]+-\d+)-\d+$`)
	lineSplit   = regexp.MustCompile(`\r?\n|\s{2,}`)
	countedLine = regexp.MustCompile(`^(\d+)x?\s+([A-Z]+-\d+)`)
	bareLine    = regexp.MustCompile(`^([A-Z]+-\d+)`)
)

// CodeCount is one parsed deck code line: a base card code and how many copies.
type CodeCount struct {
	Code     string `json:"card_code"`
	Quantity int    `json:"quantity"`
}

// IsTTSFormat reports whether text holds Tabletop Simulator codes
// (SET-NUMBER-VARIANT) anywhere.
func IsTTSFormat(text string) bool {
	return ttsDetect.MatchString(text)
}

// ParseDeckCode reads either TTS or "Nx CODE" style text. Codes are tallied
// in order of first appearance; unparseable lines are skipped.
func ParseDeckCode(text string) []CodeCount {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	t := newTally()
	if IsTTSFormat(text) {
		for _, tok := range strings.Fields(text) {
			if m := ttsToken.FindStringSubmatch(tok); m != nil {
				t.add(m[1], 1)
			}
		}
		return t.out
	}

	for _, line := range lineSplit.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := countedLine.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				continue
			}
			t.add(m[2], n)
			continue
		}
		if m := bareLine.FindStringSubmatch(line); m != nil {
			t.add(m[1], 1)
		}
	}
	return t.out
}

type tally struct {
	idx map[string]int
	out []CodeCount
}

func newTally() *tally {
	return &tally{idx: make(map[string]int)}
}

func (t *tally) add(code string, n int) {
	if i, ok := t.idx[code]; ok {
		t.out[i].Quantity += n
		return
	}
	t.idx[code] = len(t.out)
	t.out = append(t.out, CodeCount{Code: code, Quantity: n})
}

type ResolvedCard struct {
	Card     models.Card `json:"card"`
	Quantity int         `json:"quantity"`
}

type ImportResult struct {
	Cards    []ResolvedCard `json:"cards"`
	NotFound []string       `json:"not_found"`
}

// Codes lists the parsed codes, for fetching a catalog snapshot.
func Codes(entries []CodeCount) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Code
	}
	return out
}

// Resolve looks every code up case-insensitively. Codes the catalog does not
// know are collected in NotFound rather than failing the import.
func Resolve(entries []CodeCount, cat catalog.Catalog) ImportResult {
	res := ImportResult{Cards: []ResolvedCard{}, NotFound: []string{}}
	for _, e := range entries {
		c, ok := cat.CardByCode(e.Code)
		if !ok {
			res.NotFound = append(res.NotFound, e.Code)
			continue
		}
		res.Cards = append(res.Cards, ResolvedCard{Card: *c, Quantity: e.Quantity})
	}
	return res
}

// Rejection records the copies of one imported card that did not fit.
type Rejection struct {
	CardID   int64  `json:"card_id"`
	Code     string `json:"card_code"`
	Reason   Reason `json:"reason"`
	Message  string `json:"message"`
	Quantity int    `json:"quantity"`
}

type ApplyResult struct {
	Imported int         `json:"imported"`
	Added    int         `json:"added"`
	Rejected []Rejection `json:"rejected"`
	NotFound []string    `json:"not_found"`
	Message  string      `json:"message"`
}

// ApplyImport adds resolved cards to comp. Legends become the deck's legend,
// runes go to the rune deck, battlefields to the battlefields and everything
// else to the main deck. Each copy passes through AddToZone, so the usual
// interactive limits apply.
func ApplyImport(comp *Composition, res ImportResult) ApplyResult {
	out := ApplyResult{Rejected: []Rejection{}, NotFound: res.NotFound}
	if out.NotFound == nil {
		out.NotFound = []string{}
	}

	for _, rc := range res.Cards {
		card := rc.Card
		if card.Type == models.CardTypeLegend {
			if err := comp.SetLegend(card.ID); err != nil {
				out.Rejected = append(out.Rejected, Rejection{
					CardID: card.ID, Code: card.Code, Reason: ReasonUnknownCard,
					Message: errors.GetMessage(err), Quantity: rc.Quantity,
				})
				continue
			}
			out.Imported++
			out.Added++
			continue
		}

		zone := zoneFor(card.Type)
		added := 0
		for i := 0; i < rc.Quantity; i++ {
			r := comp.AddToZone(zone, card.ID)
			if !r.Added {
				out.Rejected = append(out.Rejected, Rejection{
					CardID: card.ID, Code: card.Code, Reason: r.Reason,
					Message: r.Message, Quantity: rc.Quantity - i,
				})
				break
			}
			added++
		}
		if added > 0 {
			out.Imported++
			out.Added += added
		}
	}

	out.Message = fmt.Sprintf("Successfully imported %d card types", out.Imported)
	if len(out.NotFound) > 0 {
		out.Message += ". Not found: " + strings.Join(out.NotFound, ", ")
	}
	return out
}

func zoneFor(t models.CardType) models.Slot {
	switch t {
	case models.CardTypeRune:
		return models.SlotRuneDeck
	case models.CardTypeBattlefield:
		return models.SlotBattlefields
	default:
		return models.SlotMainDeck
	}
}
