package decks

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"riftbound/internal/auth"
	"riftbound/internal/testutil"
)

type HandlerTestSuite struct {
	suite.Suite
	router *gin.Engine
	coord  *Coordinator
	alice  string
	bob    string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(s.T())
	testutil.SeedCards(s.T(), db)
	testutil.SeedUser(s.T(), db, "u1", "alice")
	testutil.SeedUser(s.T(), db, "u2", "bob")

	tokens := auth.TokenService{Secret: []byte("handler-test-secret"), Duration: time.Hour}
	users := auth.NewRepo(db)
	s.coord = NewCoordinator(db, testutil.Catalog(), nil)

	r := gin.New()
	api := r.Group("/api")
	h := NewHandler(s.coord, nil)
	h.RegisterRoutes(
		api.Group("", auth.AuthMiddleware(tokens, users)),
		api.Group("", auth.OptionalMiddleware(tokens, users)),
		nil,
	)
	s.router = r

	sign := func(id, name string) string {
		tok, _, err := tokens.Sign(&auth.User{ID: id, Username: name})
		s.Require().NoError(err)
		return tok
	}
	s.alice = sign("u1", "alice")
	s.bob = sign("u2", "bob")
}

func (s *HandlerTestSuite) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func (s *HandlerTestSuite) saveLegal(token, name string) int64 {
	w, body := s.do(http.MethodPost, "/api/decks", token, legalSave(name))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal(true, body["success"])
	s.Equal("Deck saved successfully", body["message"])
	return int64(body["deck_id"].(float64))
}

func deckPath(id int64, suffix string) string {
	return "/api/decks/" + strconv.FormatInt(id, 10) + suffix
}

func (s *HandlerTestSuite) TestSaveRequiresAuth() {
	w, _ := s.do(http.MethodPost, "/api/decks", "", legalSave("anon"))
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerTestSuite) TestSaveRejectionReturnsReport() {
	in := legalSave("Short")
	in.MainDeck = in.MainDeck[:10]

	w, body := s.do(http.MethodPost, "/api/decks", s.alice, in)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal(false, body["success"])
	s.Equal("Main deck must have at least 40 cards (currently 10)", body["message"])

	report := body["report"].(map[string]any)
	s.Equal(false, report["is_saveable"])
}

func (s *HandlerTestSuite) TestSaveMissingName() {
	in := legalSave("")
	w, body := s.do(http.MethodPost, "/api/decks", s.alice, in)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Deck name is required", body["message"])
}

func (s *HandlerTestSuite) TestPrivateDeckVisibility() {
	id := s.saveLegal(s.alice, "Secret")

	w, body := s.do(http.MethodGet, deckPath(id, ""), s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, body["is_owner"])
	stats := body["stats"].(map[string]any)
	s.Equal(float64(40+12+2), stats["total_cards"])

	w, _ = s.do(http.MethodGet, deckPath(id, ""), s.bob, nil)
	s.Equal(http.StatusNotFound, w.Code)
	w, _ = s.do(http.MethodGet, deckPath(id, ""), "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestPublishLikeCopy() {
	id := s.saveLegal(s.alice, "Public")

	w, _ := s.do(http.MethodPost, deckPath(id, "/publish"), s.bob, nil)
	s.Equal(http.StatusNotFound, w.Code, "only the owner may publish")

	w, body := s.do(http.MethodPost, deckPath(id, "/publish"), s.alice, gin.H{"featured_card_id": 9999})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Featured card not found", body["error"])

	w, body = s.do(http.MethodPost, deckPath(id, "/publish"), s.alice, gin.H{"featured_card_id": 3})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, body["is_published"])
	s.Equal(float64(3), body["featured_card_id"])

	w, body = s.do(http.MethodGet, deckPath(id, ""), "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(false, body["user_liked"])

	w, body = s.do(http.MethodPost, deckPath(id, "/like"), s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(1), body["like_count"])
	// liking twice does not count twice
	_, body = s.do(http.MethodPost, deckPath(id, "/like"), s.bob, nil)
	s.Equal(float64(1), body["like_count"])

	w, body = s.do(http.MethodPost, deckPath(id, "/copy"), s.bob, nil)
	s.Require().Equal(http.StatusCreated, w.Code)
	copyID := int64(body["deck_id"].(float64))
	s.NotEqual(id, copyID)

	w, body = s.do(http.MethodGet, deckPath(copyID, ""), s.bob, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	d := body["deck"].(map[string]any)
	s.Equal("Public (Copy)", d["deck_name"])
	s.Equal("u2", d["user_id"])

	w, body = s.do(http.MethodGet, "/api/community/decks", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(1), body["total"])

	w, _ = s.do(http.MethodDelete, deckPath(id, "/like"), s.bob, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerTestSuite) TestListAndDelete() {
	s.saveLegal(s.alice, "One")
	id := s.saveLegal(s.alice, "Two")

	w, body := s.do(http.MethodGet, "/api/decks", s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(float64(2), body["total"])

	w, _ = s.do(http.MethodDelete, deckPath(id, ""), s.bob, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodDelete, deckPath(id, ""), s.alice, nil)
	s.Equal(http.StatusNoContent, w.Code)

	_, body = s.do(http.MethodGet, "/api/decks", s.alice, nil)
	s.Equal(float64(1), body["total"])
}

func (s *HandlerTestSuite) TestExportThenImport() {
	id := s.saveLegal(s.alice, "Exported")

	w, body := s.do(http.MethodGet, deckPath(id, "/export"), s.alice, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	code := body["code"].(string)
	s.Contains(code, "Champion Legend: Darius, Hand of Noxus")

	w, body = s.do(http.MethodPost, "/api/decks/import", s.alice, gin.H{"code": code})
	s.Require().Equal(http.StatusOK, w.Code)
	d := body["deck"].(map[string]any)
	s.Len(d["main_deck"], 40)
	s.Len(d["rune_deck"], 12)
	s.Len(d["battlefields"], 2)
	// legends are exported by name, so the imported deck has none
	report := body["report"].(map[string]any)
	s.Equal(false, report["is_saveable"])

	w, _ = s.do(http.MethodPost, "/api/decks/import", s.alice, gin.H{"code": "   "})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestValidateEndpoint() {
	w, body := s.do(http.MethodPost, "/api/decks/validate", s.alice, testutil.LegalInput())
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(true, body["is_saveable"])

	w, _ = s.do(http.MethodGet, "/api/decks/abc", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}
