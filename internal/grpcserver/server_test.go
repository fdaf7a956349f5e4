package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"riftbound/internal/deck"
	"riftbound/internal/testutil"
)

type ServerTestSuite struct {
	suite.Suite
	srv    *grpc.Server
	conn   *grpc.ClientConn
	client *DeckServiceClient
	ctx    context.Context
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	lis := bufconn.Listen(1 << 20)
	s.srv = NewGRPCServer(NewServer(testutil.Catalog()), nil)
	go func() { _ = s.srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	s.Require().NoError(err)
	s.conn = conn
	s.client = NewDeckServiceClient(conn)
	s.ctx = context.Background()
}

func (s *ServerTestSuite) TearDownTest() {
	_ = s.conn.Close()
	s.srv.Stop()
}

func (s *ServerTestSuite) TestValidateDeck() {
	resp, err := s.client.ValidateDeck(s.ctx, &ValidateDeckRequest{Deck: testutil.LegalInput()})
	s.Require().NoError(err)
	s.True(resp.Report.Saveable)

	in := testutil.LegalInput()
	in.RuneDeck = nil
	resp, err = s.client.ValidateDeck(s.ctx, &ValidateDeckRequest{Deck: in})
	s.Require().NoError(err)
	s.False(resp.Report.Saveable)
	s.True(resp.Report.Has(deck.CodeRuneDeckSize))
}

func (s *ServerTestSuite) TestParseDeckCode() {
	resp, err := s.client.ParseDeckCode(s.ctx, &ParseDeckCodeRequest{Code: "OGN-050-1 OGN-050-2 OGN-999-1"})
	s.Require().NoError(err)
	s.Equal("tts", resp.Format)
	s.Equal([]deck.CodeCount{{Code: "OGN-050", Quantity: 2}, {Code: "OGN-999", Quantity: 1}}, resp.Entries)
	s.Require().Len(resp.Cards, 1)
	s.Equal("Noxian Drummer", resp.Cards[0].Card.Name)
	s.Equal([]string{"OGN-999"}, resp.NotFound)

	_, err = s.client.ParseDeckCode(s.ctx, &ParseDeckCodeRequest{Code: "  "})
	s.Equal(codes.InvalidArgument, status.Code(err))
}

func (s *ServerTestSuite) TestGetCard() {
	resp, err := s.client.GetCard(s.ctx, &GetCardRequest{ID: testutil.DariusLegend})
	s.Require().NoError(err)
	s.Equal("Darius, Hand of Noxus", resp.Card.Name)

	resp, err = s.client.GetCard(s.ctx, &GetCardRequest{Code: "ogn-003"})
	s.Require().NoError(err)
	s.Equal(testutil.DariusChampion, resp.Card.ID)

	_, err = s.client.GetCard(s.ctx, &GetCardRequest{ID: 9999})
	s.Equal(codes.NotFound, status.Code(err))
	s.Equal("Card not found", status.Convert(err).Message())

	_, err = s.client.GetCard(s.ctx, &GetCardRequest{})
	s.Equal(codes.InvalidArgument, status.Code(err))
}
