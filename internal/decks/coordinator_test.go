package decks

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"

	"riftbound/internal/deck"
	"riftbound/internal/errors"
	"riftbound/internal/testutil"
	"riftbound/pkg/models"
)

type CoordinatorTestSuite struct {
	suite.Suite
	db    *sql.DB
	coord *Coordinator
	ctx   context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	testutil.SeedCards(s.T(), s.db)
	testutil.SeedUser(s.T(), s.db, "u1", "alice")
	testutil.SeedUser(s.T(), s.db, "u2", "bob")
	s.coord = NewCoordinator(s.db, testutil.Catalog(), nil)
	s.ctx = context.Background()
}

func legalSave(name string) SaveInput {
	return SaveInput{Name: name, Input: testutil.LegalInput()}
}

func (s *CoordinatorTestSuite) countRows(table string, deckID int64) int {
	var n int
	col := "deck_id"
	if table == "decks" {
		col = "id"
	}
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE `+col+` = ?`, deckID).Scan(&n))
	return n
}

func (s *CoordinatorTestSuite) TestSaveCreatesDeck() {
	out, err := s.coord.Save(s.ctx, "u1", legalSave("  Noxus Aggro "))
	s.Require().NoError(err)
	s.True(out.Created)
	s.Positive(out.DeckID)
	s.True(out.Report.Saveable)

	d, err := s.coord.Repo.Get(s.ctx, out.DeckID)
	s.Require().NoError(err)
	s.Require().NotNil(d)
	s.Equal("Noxus Aggro", d.Name)
	s.Equal("alice", d.Username)
	s.Equal(testutil.DariusLegend, d.LegendID)
	s.Equal(testutil.DariusChampion, d.ChosenChampionID)
	s.False(d.Published)

	// 14 distinct neutral units, one rune, two battlefields
	s.Equal(17, s.countRows("deck_cards", out.DeckID))

	var total int
	s.Require().NoError(s.db.QueryRow(`SELECT SUM(quantity) FROM deck_cards WHERE deck_id = ?`, out.DeckID).Scan(&total))
	s.Equal(40+12+2, total)
}

func (s *CoordinatorTestSuite) TestSaveUpdatesOwnedDeck() {
	out, err := s.coord.Save(s.ctx, "u1", legalSave("First"))
	s.Require().NoError(err)

	in := legalSave("Second")
	in.DeckID = out.DeckID
	in.MainDeck = append(in.MainDeck, testutil.NoxusUnit)
	again, err := s.coord.Save(s.ctx, "u1", in)
	s.Require().NoError(err)
	s.False(again.Created)
	s.Equal(out.DeckID, again.DeckID)

	d, err := s.coord.Repo.Get(s.ctx, out.DeckID)
	s.Require().NoError(err)
	s.Equal("Second", d.Name)
	s.Equal(18, s.countRows("deck_cards", out.DeckID))
}

func (s *CoordinatorTestSuite) TestSaveForeignDeckIDCreatesNewDeck() {
	out, err := s.coord.Save(s.ctx, "u1", legalSave("Alice's"))
	s.Require().NoError(err)

	in := legalSave("Bob's")
	in.DeckID = out.DeckID
	theirs, err := s.coord.Save(s.ctx, "u2", in)
	s.Require().NoError(err)
	s.True(theirs.Created)
	s.NotEqual(out.DeckID, theirs.DeckID)

	d, err := s.coord.Repo.Get(s.ctx, out.DeckID)
	s.Require().NoError(err)
	s.Equal("Alice's", d.Name)
	s.Equal("u1", d.UserID)
}

func (s *CoordinatorTestSuite) TestSaveRequestChecks() {
	in := legalSave("   ")
	_, err := s.coord.Save(s.ctx, "u1", in)
	s.Require().Error(err)
	s.True(errors.IsInvalidArgument(err))
	s.Equal("Deck name is required", errors.GetMessage(err))

	in = legalSave("No legend")
	in.LegendID = 0
	_, err = s.coord.Save(s.ctx, "u1", in)
	s.Require().Error(err)
	s.Equal("Champion Legend is required", errors.GetMessage(err))
}

func (s *CoordinatorTestSuite) TestRejectedSaveWritesNothing() {
	in := legalSave("Too small")
	in.MainDeck = in.MainDeck[:39]

	out, err := s.coord.Save(s.ctx, "u1", in)
	s.Nil(out)

	var vf *ValidationFailure
	s.Require().ErrorAs(err, &vf)
	s.False(vf.Report.Saveable)
	s.Equal("Main deck must have at least 40 cards (currently 39)", err.Error())
	s.True(errors.IsFailedPrecondition(err))

	var n int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM decks`).Scan(&n))
	s.Zero(n)
}

func (s *CoordinatorTestSuite) TestRejectedUpdateKeepsStoredDeck() {
	out, err := s.coord.Save(s.ctx, "u1", legalSave("Keep me"))
	s.Require().NoError(err)

	in := legalSave("Broken")
	in.DeckID = out.DeckID
	in.RuneDeck = in.RuneDeck[:11]
	_, err = s.coord.Save(s.ctx, "u1", in)
	s.Require().Error(err)

	d, err := s.coord.Repo.Get(s.ctx, out.DeckID)
	s.Require().NoError(err)
	s.Equal("Keep me", d.Name)
	s.Equal(17, s.countRows("deck_cards", out.DeckID))
}

func (s *CoordinatorTestSuite) TestFailedWriteRollsBack() {
	out, err := s.coord.Save(s.ctx, "u1", legalSave("Original"))
	s.Require().NoError(err)

	// battlefield rows are written last, after the header and main deck
	_, err = s.db.Exec(`
		CREATE TRIGGER fail_battlefields BEFORE INSERT ON deck_cards
		WHEN NEW.slot = 'battlefields'
		BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	s.Require().NoError(err)

	in := legalSave("Renamed")
	in.DeckID = out.DeckID
	in.MainDeck = append(in.MainDeck, testutil.NoxusUnit)
	_, err = s.coord.Save(s.ctx, "u1", in)
	s.Require().Error(err)
	s.Equal(errors.CodeInternal, errors.GetCode(err))
	s.Equal("failed to save deck", errors.GetMessage(err))

	d, err := s.coord.Repo.Get(s.ctx, out.DeckID)
	s.Require().NoError(err)
	s.Equal("Original", d.Name)
	s.Equal(17, s.countRows("deck_cards", out.DeckID))

	var n int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM decks`).Scan(&n))
	s.Equal(1, n)

	// the per-user save slot is released after the failure
	_, err = s.db.Exec(`DROP TRIGGER fail_battlefields`)
	s.Require().NoError(err)
	_, err = s.coord.Save(s.ctx, "u1", in)
	s.NoError(err)
}

func (s *CoordinatorTestSuite) TestHydrateRoundTrip() {
	in := legalSave("Round trip")
	in.MainDeck = append(in.MainDeck, testutil.NoxusUnit, testutil.NoxusUnit)
	out, err := s.coord.Save(s.ctx, "u1", in)
	s.Require().NoError(err)

	d, got, err := s.coord.Hydrate(s.ctx, "u1", out.DeckID)
	s.Require().NoError(err)
	s.Equal(out.DeckID, d.ID)
	s.Equal(in.LegendID, got.LegendID)
	s.Equal(in.ChosenChampionID, got.ChosenChampionID)
	s.ElementsMatch(in.MainDeck, got.MainDeck)
	s.ElementsMatch(in.RuneDeck, got.RuneDeck)
	s.ElementsMatch(in.Battlefields, got.Battlefields)
	s.True(deck.Validate(got, testutil.Catalog()).Saveable)

	_, _, err = s.coord.Hydrate(s.ctx, "u2", out.DeckID)
	s.True(errors.IsNotFound(err))
	_, _, err = s.coord.Hydrate(s.ctx, "u1", 9999)
	s.True(errors.IsNotFound(err))
}

func (s *CoordinatorTestSuite) TestConcurrentSaveIsAborted() {
	s.Require().True(s.coord.tryLock("u1"))
	defer s.coord.unlock("u1")

	_, err := s.coord.Save(s.ctx, "u1", legalSave("Busy"))
	s.Require().Error(err)
	s.True(errors.IsAborted(err))
	s.Equal("a save is already in progress", errors.GetMessage(err))

	// other users are not blocked
	_, err = s.coord.Save(s.ctx, "u2", legalSave("Free"))
	s.NoError(err)
}

func (s *CoordinatorTestSuite) TestEntriesAreStoredPerSlot() {
	out, err := s.coord.Save(s.ctx, "u1", legalSave("Slots"))
	s.Require().NoError(err)

	entries, err := s.coord.Repo.Entries(s.ctx, out.DeckID)
	s.Require().NoError(err)

	bySlot := map[models.Slot]int{}
	for _, e := range entries {
		bySlot[e.Slot] += e.Quantity
	}
	s.Equal(40, bySlot[models.SlotMainDeck])
	s.Equal(12, bySlot[models.SlotRuneDeck])
	s.Equal(2, bySlot[models.SlotBattlefields])
}
