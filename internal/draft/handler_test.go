package draft

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
	"riftbound/internal/decks"
	"riftbound/internal/testutil"
)

type HandlerTestSuite struct {
	suite.Suite
	router *gin.Engine
	store  *Store
	coord  *decks.Coordinator
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db := testutil.NewTestDB(s.T())
	testutil.SeedCards(s.T(), db)
	testutil.SeedUser(s.T(), db, "u1", "alice")
	client, _ := testutil.NewTestRedis(s.T())

	cat := testutil.Catalog()
	s.store = NewStore(client, time.Hour)
	s.coord = decks.NewCoordinator(db, cat, nil)

	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: "u1", Username: "alice"})
		c.Next()
	})
	NewHandler(s.store, cat, s.coord, nil).RegisterRoutes(api, nil)
	s.router = r
}

func (s *HandlerTestSuite) do(method, path string, body any) (int, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/drafts/current"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func counts(body map[string]any) map[string]any {
	return body["counts"].(map[string]any)
}

func (s *HandlerTestSuite) TestEmptyDraft() {
	code, body := s.do(http.MethodGet, "", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(float64(0), counts(body)["main_deck"])
	report := body["report"].(map[string]any)
	s.Equal(false, report["is_saveable"])
}

func (s *HandlerTestSuite) TestLegendAndChampion() {
	code, body := s.do(http.MethodPut, "/legend", gin.H{"card_id": testutil.NoxusUnit})
	s.Equal(http.StatusBadRequest, code)
	s.Equal("Noxian Drummer is not a Champion Legend", body["error"])

	code, _ = s.do(http.MethodPut, "/legend", gin.H{"card_id": 999})
	s.Equal(http.StatusNotFound, code)

	code, body = s.do(http.MethodPut, "/legend", gin.H{"card_id": testutil.DariusLegend})
	s.Require().Equal(http.StatusOK, code)
	draft := body["draft"].(map[string]any)["deck"].(map[string]any)
	s.Equal(float64(testutil.DariusLegend), draft["champion_legend_id"])

	code, _ = s.do(http.MethodPut, "/champion", gin.H{"card_id": testutil.DariusRarityUnit})
	s.Equal(http.StatusOK, code)

	code, body = s.do(http.MethodDelete, "/champion", nil)
	s.Require().Equal(http.StatusOK, code)
	draft = body["draft"].(map[string]any)["deck"].(map[string]any)
	s.Equal(float64(0), draft["chosen_champion_id"])
}

func (s *HandlerTestSuite) TestAddCardRules() {
	for i := 0; i < 3; i++ {
		code, body := s.do(http.MethodPost, "/cards", gin.H{"zone": "main_deck", "card_id": testutil.NoxusUnit})
		s.Require().Equal(http.StatusOK, code)
		s.Equal(true, body["result"].(map[string]any)["added"])
	}

	_, body := s.do(http.MethodPost, "/cards", gin.H{"zone": "main", "card_id": testutil.NoxusUnit})
	res := body["result"].(map[string]any)
	s.Equal(false, res["added"])
	s.Equal("max_copies", res["reason"])
	s.Equal("Maximum 3 copies allowed per card", res["message"])
	s.Equal(float64(3), counts(body)["main_deck"])

	_, body = s.do(http.MethodPost, "/cards", gin.H{"zone": "sideboard", "card_id": testutil.NoxusUnit})
	s.Equal("unknown_zone", body["result"].(map[string]any)["reason"])

	_, body = s.do(http.MethodPost, "/cards", gin.H{"zone": "rune_deck", "card_id": testutil.NoxusUnit})
	s.Equal("wrong_zone", body["result"].(map[string]any)["reason"])
	s.Equal(float64(0), counts(body)["rune_deck"])

	code, body := s.do(http.MethodDelete, "/cards/main_deck/"+strconv.FormatInt(testutil.NoxusUnit, 10), nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(float64(2), counts(body)["main_deck"])

	code, _ = s.do(http.MethodDelete, "/cards/rune_deck/"+strconv.FormatInt(testutil.NoxusUnit, 10), nil)
	s.Equal(http.StatusNotFound, code)
}

func (s *HandlerTestSuite) TestImportSaveAndReload() {
	in := testutil.LegalInput()
	var text bytes.Buffer
	text.WriteString("1 " + testutil.Code(testutil.DariusLegend) + "\n")
	for _, e := range in.Entries() {
		text.WriteString(strconv.Itoa(e.Quantity) + "x " + testutil.Code(e.CardID) + "\n")
	}
	text.WriteString("2x XXX-999\n")

	code, body := s.do(http.MethodPost, "/import", gin.H{"code": text.String(), "replace": true})
	s.Require().Equal(http.StatusOK, code)
	imp := body["import"].(map[string]any)
	s.Equal([]any{"XXX-999"}, imp["not_found"])
	s.Equal(float64(40), counts(body)["main_deck"])
	s.Equal(float64(12), counts(body)["rune_deck"])

	code, body = s.do(http.MethodPost, "/save", nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal("Deck name is required", body["error"])

	s.do(http.MethodPut, "/meta", gin.H{"deck_name": "Imported"})
	code, body = s.do(http.MethodPost, "/save", nil)
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Equal("Must select a Chosen Champion", body["message"])

	s.do(http.MethodPut, "/champion", gin.H{"card_id": testutil.DariusChampion})
	code, body = s.do(http.MethodPost, "/save", nil)
	s.Require().Equal(http.StatusCreated, code)
	deckID := int64(body["deck_id"].(float64))

	// a second save updates the same deck
	code, body = s.do(http.MethodPost, "/save", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(float64(deckID), body["deck_id"])

	code, _ = s.do(http.MethodDelete, "", nil)
	s.Equal(http.StatusNoContent, code)

	code, body = s.do(http.MethodPost, "/load/"+strconv.FormatInt(deckID, 10), nil)
	s.Require().Equal(http.StatusOK, code)
	d := body["draft"].(map[string]any)
	s.Equal("Imported", d["deck_name"])
	s.Equal(float64(deckID), d["deck_id"])
	s.Equal(true, body["report"].(map[string]any)["is_saveable"])

	code, body = s.do(http.MethodGet, "/export", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Contains(body["code"], "Chosen Champion: Darius\n")

	code, _ = s.do(http.MethodPost, "/load/9999", nil)
	s.Equal(http.StatusNotFound, code)
}

func (s *HandlerTestSuite) TestExportWithoutDraft() {
	code, _ := s.do(http.MethodGet, "/export", nil)
	s.Equal(http.StatusNotFound, code)
}
