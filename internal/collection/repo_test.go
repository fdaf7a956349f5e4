package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"riftbound/internal/errors"
	"riftbound/internal/testutil"
)

type RepoTestSuite struct {
	suite.Suite
	repo *Repo
	ctx  context.Context
}

func TestRepoSuite(t *testing.T) {
	suite.Run(t, new(RepoTestSuite))
}

func (s *RepoTestSuite) SetupTest() {
	db := testutil.NewTestDB(s.T())
	testutil.SeedCards(s.T(), db)
	testutil.SeedUser(s.T(), db, "u1", "alice")
	s.repo = NewRepo(db)
	s.ctx = context.Background()
}

func (s *RepoTestSuite) TestUpdateQuantity() {
	s.Require().NoError(s.repo.UpdateQuantity(s.ctx, "u1", testutil.NoxusUnit, 2))
	s.Require().NoError(s.repo.UpdateQuantity(s.ctx, "u1", testutil.DariusChampion, 1))
	s.Require().NoError(s.repo.UpdateQuantity(s.ctx, "u1", testutil.NoxusUnit, 3))

	owned, err := s.repo.OwnedCounts(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(map[int64]int{testutil.NoxusUnit: 3, testutil.DariusChampion: 1}, owned)

	items, total, err := s.repo.List(s.ctx, "u1", 0, 0)
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(items, 2)
	s.Equal(testutil.DariusChampion, items[0].CardID, "ordered by card code")
	s.Equal("Darius", items[0].Card.Name)

	s.Require().NoError(s.repo.UpdateQuantity(s.ctx, "u1", testutil.NoxusUnit, 0))
	owned, err = s.repo.OwnedCounts(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(map[int64]int{testutil.DariusChampion: 1}, owned)

	// removing a card that is not owned is fine
	s.NoError(s.repo.UpdateQuantity(s.ctx, "u1", testutil.NoxusUnit, 0))
}

func (s *RepoTestSuite) TestUpdateQuantityErrors() {
	err := s.repo.UpdateQuantity(s.ctx, "u1", 9999, 1)
	s.True(errors.IsNotFound(err))
	s.Equal("Card not found", errors.GetMessage(err))

	err = s.repo.UpdateQuantity(s.ctx, "u1", testutil.NoxusUnit, -1)
	s.True(errors.IsInvalidArgument(err))
	s.Equal("Quantity cannot be negative", errors.GetMessage(err))
}

func (s *RepoTestSuite) TestStats() {
	s.Require().NoError(s.repo.UpdateQuantity(s.ctx, "u1", testutil.NoxusUnit, 3))
	s.Require().NoError(s.repo.UpdateQuantity(s.ctx, "u1", testutil.NeutralRune, 5))

	st, err := s.repo.Stats(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(2, st.UniqueCards)
	s.Equal(8, st.TotalCards)
	s.InDelta(2.0, st.TotalValue, 0.0001)

	empty, err := s.repo.Stats(s.ctx, "nobody")
	s.Require().NoError(err)
	s.Zero(empty.TotalCards)
}

func (s *RepoTestSuite) TestWishlistIsIdempotent() {
	s.Require().NoError(s.repo.AddToWishlist(s.ctx, "u1", testutil.GarenLegend))
	s.Require().NoError(s.repo.AddToWishlist(s.ctx, "u1", testutil.GarenLegend))

	items, err := s.repo.Wishlist(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("Garen, Might of Demacia", items[0].Card.Name)

	in, err := s.repo.InWishlist(s.ctx, "u1", testutil.GarenLegend)
	s.Require().NoError(err)
	s.True(in)

	s.Require().NoError(s.repo.RemoveFromWishlist(s.ctx, "u1", testutil.GarenLegend))
	s.Require().NoError(s.repo.RemoveFromWishlist(s.ctx, "u1", testutil.GarenLegend))
	items, err = s.repo.Wishlist(s.ctx, "u1")
	s.Require().NoError(err)
	s.Empty(items)

	s.True(errors.IsNotFound(s.repo.AddToWishlist(s.ctx, "u1", 9999)))
}
