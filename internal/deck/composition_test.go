package deck_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riftbound/internal/deck"
	"riftbound/internal/errors"
	"riftbound/internal/testutil"
	"riftbound/pkg/models"
)

func newComp(t *testing.T) *deck.Composition {
	t.Helper()
	return deck.NewComposition(testutil.Catalog())
}

func TestAddToZoneCopyCap(t *testing.T) {
	c := newComp(t)
	for i := 0; i < deck.MaxCopies; i++ {
		r := c.AddToZone(models.SlotMainDeck, testutil.NoxusUnit)
		require.True(t, r.Added, "copy %d", i+1)
		assert.Equal(t, deck.ReasonOK, r.Reason)
	}

	r := c.AddToZone(models.SlotMainDeck, testutil.NoxusUnit)
	assert.False(t, r.Added)
	assert.Equal(t, deck.ReasonMaxCopies, r.Reason)
	assert.Equal(t, "Maximum 3 copies allowed per card", r.Message)
	assert.Equal(t, 3, c.Counts().MainDeck)
}

func TestAddToZoneSignatures(t *testing.T) {
	c := newComp(t)

	// no legend yet: the tag is not checked
	assert.True(t, c.AddToZone(models.SlotMainDeck, testutil.GarenSignature).Added)
	c.RemoveFromZone(models.SlotMainDeck, testutil.GarenSignature)

	require.NoError(t, c.SetLegend(testutil.DariusLegend))
	r := c.AddToZone(models.SlotMainDeck, testutil.GarenSignature)
	assert.Equal(t, deck.ReasonSignatureTag, r.Reason)
	assert.Equal(t, "Signature cards must match your Champion Legend's tag", r.Message)

	for _, id := range []int64{testutil.DariusSignature, testutil.DariusSignature, testutil.DariusSignature2} {
		require.True(t, c.AddToZone(models.SlotMainDeck, id).Added)
	}
	r = c.AddToZone(models.SlotMainDeck, testutil.DariusSignature2)
	assert.Equal(t, deck.ReasonSignatureCap, r.Reason)
	assert.Equal(t, "Maximum 3 Signature cards allowed", r.Message)
	assert.Equal(t, 3, c.Counts().Signature)
}

func TestAddToZoneRuneDeckFull(t *testing.T) {
	c := newComp(t)
	for i := 0; i < deck.RuneDeckSize; i++ {
		require.True(t, c.AddToZone(models.SlotRuneDeck, testutil.NeutralRune).Added)
	}
	r := c.AddToZone(models.SlotRuneDeck, testutil.NeutralRune)
	assert.Equal(t, deck.ReasonRuneDeckFull, r.Reason)
	assert.Equal(t, "Rune deck must be exactly 12 cards", r.Message)
	assert.Equal(t, deck.RuneDeckSize, c.Counts().RuneDeck)
}

func TestAddToZoneBattlefieldName(t *testing.T) {
	c := newComp(t)
	require.True(t, c.AddToZone(models.SlotBattlefields, testutil.HowlingAbyss).Added)

	r := c.AddToZone(models.SlotBattlefields, testutil.HowlingAbyssAlt)
	assert.Equal(t, deck.ReasonDuplicateBattlefield, r.Reason)
	assert.Equal(t, "Cannot include more than one Battlefield of the same name", r.Message)

	assert.True(t, c.AddToZone(models.SlotBattlefields, testutil.SummonersRift).Added)
	assert.Equal(t, 2, c.Counts().Battlefields)
}

func TestAddToZoneUnknowns(t *testing.T) {
	c := newComp(t)
	assert.Equal(t, deck.ReasonUnknownCard, c.AddToZone(models.SlotMainDeck, 999).Reason)
	assert.Equal(t, deck.ReasonUnknownZone, c.AddToZone(models.Slot("sideboard"), testutil.NoxusUnit).Reason)
	assert.Equal(t, deck.Counts{}, c.Counts())
}

func TestAddToZoneWrongZone(t *testing.T) {
	c := newComp(t)
	require.NoError(t, c.SetLegend(testutil.DariusLegend))

	for _, tc := range []struct {
		zone models.Slot
		id   int64
	}{
		{models.SlotMainDeck, testutil.GarenLegend},
		{models.SlotMainDeck, testutil.NeutralRune},
		{models.SlotMainDeck, testutil.HowlingAbyss},
		{models.SlotRuneDeck, testutil.NoxusUnit},
		{models.SlotBattlefields, testutil.NeutralSpell},
	} {
		r := c.AddToZone(tc.zone, tc.id)
		assert.False(t, r.Added, "%d -> %s", tc.id, tc.zone)
		assert.Equal(t, deck.ReasonWrongZone, r.Reason)
		assert.Equal(t, "This card type cannot go in that zone", r.Message)
	}
	assert.Equal(t, deck.Counts{}, c.Counts())

	assert.True(t, c.AddToZone(models.SlotMainDeck, testutil.DariusChampion).Added)
	assert.True(t, c.AddToZone(models.SlotMainDeck, testutil.NeutralSpell).Added)
}

// The interactive checks never let a deck through that the validator
// would reject for the same rule.
func TestAddToZoneAgreesWithValidator(t *testing.T) {
	c := deck.FromInput(testutil.Catalog(), testutil.LegalInput())
	for _, id := range []int64{testutil.FirstNeutralUnit, testutil.HowlingAbyssAlt} {
		zone := models.SlotMainDeck
		if id == testutil.HowlingAbyssAlt {
			zone = models.SlotBattlefields
		}
		assert.False(t, c.AddToZone(zone, id).Added)
	}
	assert.False(t, c.AddToZone(models.SlotRuneDeck, testutil.NeutralRune).Added)
	assert.True(t, c.Validate().Saveable)
}

func TestRemoveFromZone(t *testing.T) {
	c := newComp(t)
	c.AddToZone(models.SlotMainDeck, testutil.NoxusUnit)
	c.AddToZone(models.SlotMainDeck, testutil.NoxusUnit)

	assert.True(t, c.RemoveFromZone(models.SlotMainDeck, testutil.NoxusUnit))
	assert.Equal(t, []int64{testutil.NoxusUnit}, c.Input().MainDeck)
	assert.False(t, c.RemoveFromZone(models.SlotMainDeck, testutil.DemaciaUnit))
	assert.False(t, c.RemoveFromZone(models.Slot("nope"), testutil.NoxusUnit))
}

func TestSetLegendAndChampion(t *testing.T) {
	c := newComp(t)

	err := c.SetLegend(999)
	assert.True(t, errors.IsNotFound(err))
	err = c.SetLegend(testutil.DariusChampion)
	assert.True(t, errors.IsInvalidArgument(err))

	err = c.SetChosenChampion(testutil.NoxusUnit)
	assert.True(t, errors.IsInvalidArgument(err))
	require.NoError(t, c.SetChosenChampion(testutil.DariusRarityUnit))
	assert.Empty(t, c.Input().MainDeck, "designating does not add the card")

	require.NoError(t, c.SetLegend(testutil.DariusLegend))
	c.AddToZone(models.SlotMainDeck, testutil.NoxusUnit)

	// switching legends keeps the old selections; the validator flags them
	require.NoError(t, c.SetLegend(testutil.GarenLegend))
	in := c.Input()
	assert.Equal(t, testutil.DariusRarityUnit, in.ChosenChampionID)
	assert.Equal(t, []int64{testutil.NoxusUnit}, in.MainDeck)
	r := c.Validate()
	assert.True(t, r.Has(deck.CodeChampionTag))
	assert.True(t, r.Has(deck.CodeDomainIdentity))

	c.ClearChosenChampion()
	assert.Zero(t, c.Input().ChosenChampionID)
}

func TestClear(t *testing.T) {
	c := deck.FromInput(testutil.Catalog(), testutil.LegalInput())
	c.Clear()

	in := c.Input()
	assert.Zero(t, in.LegendID)
	assert.Zero(t, in.ChosenChampionID)
	assert.Empty(t, in.MainDeck)
	assert.Empty(t, in.RuneDeck)
	assert.Empty(t, in.Battlefields)
}

func TestFromInputDoesNotAlias(t *testing.T) {
	src := testutil.LegalInput()
	c := deck.FromInput(testutil.Catalog(), src)
	c.RemoveFromZone(models.SlotMainDeck, src.MainDeck[0])

	assert.Len(t, src.MainDeck, deck.MainDeckMin)
	assert.Len(t, c.Input().MainDeck, deck.MainDeckMin-1)
}

func TestEntriesRoundTrip(t *testing.T) {
	in := testutil.LegalInput()
	entries := in.Entries()

	total := 0
	for _, e := range entries {
		assert.GreaterOrEqual(t, e.Quantity, 1)
		total += e.Quantity
	}
	assert.Equal(t, len(in.MainDeck)+len(in.RuneDeck)+len(in.Battlefields), total)

	back := deck.InputFromEntries(in.LegendID, in.ChosenChampionID, entries)
	assert.Equal(t, in.LegendID, back.LegendID)
	assert.ElementsMatch(t, in.MainDeck, back.MainDeck)
	assert.ElementsMatch(t, in.RuneDeck, back.RuneDeck)
	assert.ElementsMatch(t, in.Battlefields, back.Battlefields)

	ids := in.CardIDs()
	assert.Equal(t, []int64{testutil.DariusLegend, testutil.DariusChampion}, ids[:2])
}
