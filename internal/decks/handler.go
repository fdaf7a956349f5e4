package decks

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"riftbound/internal/auth"
	"riftbound/internal/deck"
	apperrors "riftbound/internal/errors"
	"riftbound/internal/sync"
)

type Handler struct {
	Coord *Coordinator
	Repo  *Repo
	Hub   *sync.Hub
}

func NewHandler(coord *Coordinator, hub *sync.Hub) *Handler {
	return &Handler{Coord: coord, Repo: coord.Repo, Hub: hub}
}

// RegisterRoutes mounts the deck routes. protected requires a token,
// optional accepts anonymous viewers. limit guards save and import.
func (h *Handler) RegisterRoutes(protected, optional *gin.RouterGroup, limit gin.HandlerFunc) {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	protected.POST("/decks", limit, h.save)
	protected.GET("/decks", h.listMine)
	protected.POST("/decks/validate", h.validate)
	protected.POST("/decks/import", limit, h.importCode)
	protected.GET("/decks/:id/export", h.export)
	protected.DELETE("/decks/:id", h.remove)
	protected.POST("/decks/:id/publish", h.publish)
	protected.POST("/decks/:id/unpublish", h.unpublish)
	protected.POST("/decks/:id/like", h.like)
	protected.DELETE("/decks/:id/like", h.unlike)
	protected.POST("/decks/:id/copy", h.copyDeck)

	optional.GET("/decks/:id", h.view)
	optional.GET("/community/decks", h.community)
}

func (h *Handler) publish(c *gin.Context) { h.setPublished(c, true) }

func (h *Handler) unpublish(c *gin.Context) { h.setPublished(c, false) }

func (h *Handler) like(c *gin.Context) { h.setLike(c, true) }

func (h *Handler) unlike(c *gin.Context) { h.setLike(c, false) }

func (h *Handler) emit(ev sync.DeckEvent) {
	if h.Hub == nil {
		return
	}
	ev.At = time.Now().UTC()
	go h.Hub.Publish(ev)
}

func deckID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deck id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) save(c *gin.Context) {
	claims := auth.MustGetClaims(c)

	var req SaveInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid json"})
		return
	}

	out, err := h.Coord.Save(c.Request.Context(), claims.UserID, req)
	if err != nil {
		var vf *ValidationFailure
		if errors.As(err, &vf) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"message": vf.Error(),
				"report":  vf.Report,
			})
			return
		}
		code := apperrors.GetCode(err)
		if code == apperrors.CodeInternal {
			_ = c.Error(err)
		}
		c.JSON(code.HTTPStatus(), gin.H{"success": false, "message": apperrors.GetMessage(err)})
		return
	}

	h.emit(sync.DeckEvent{
		Type:     sync.EventDeckSaved,
		UserID:   claims.UserID,
		DeckID:   out.DeckID,
		DeckName: strings.TrimSpace(req.Name),
	})

	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success": true,
		"message": "Deck saved successfully",
		"deck_id": out.DeckID,
		"report":  out.Report,
	})
}

func (h *Handler) listMine(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.ListByUser(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) community(c *gin.Context) {
	q := CommunityQuery{
		Search: c.Query("search"),
		Limit:  parseInt(c.Query("limit"), 20),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if v := c.Query("legend_id"); v != "" {
		q.LegendID, _ = strconv.ParseInt(v, 10, 64)
	}

	items, total, err := h.Repo.ListPublished(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
		"items":  items,
	})
}

func (h *Handler) view(c *gin.Context) {
	id, ok := deckID(c)
	if !ok {
		return
	}
	viewer := auth.UserID(c)
	ctx := c.Request.Context()

	d, err := h.Repo.GetVisible(ctx, id, viewer)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
		return
	}
	if err := h.Repo.IncrementViews(ctx, id); err != nil {
		_ = c.Error(err)
	} else {
		d.ViewCount++
	}

	cards, err := h.Repo.Cards(ctx, id)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	liked, err := h.Repo.Liked(ctx, viewer, id)
	if err != nil {
		_ = c.Error(err)
	}

	c.JSON(http.StatusOK, gin.H{
		"deck":       d,
		"cards":      cards,
		"stats":      deck.Summarize(cards),
		"user_liked": liked,
		"is_owner":   viewer != "" && viewer == d.UserID,
	})
}

func (h *Handler) export(c *gin.Context) {
	id, ok := deckID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	d, err := h.Repo.GetVisible(ctx, id, auth.UserID(c))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
		return
	}
	entries, err := h.Repo.Entries(ctx, id)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	in := deck.InputFromEntries(d.LegendID, d.ChosenChampionID, entries)
	snap, err := h.Coord.Catalog.Snapshot(ctx, in.CardIDs())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deck_id": id, "code": deck.Export(in, snap)})
}

func (h *Handler) validate(c *gin.Context) {
	var in deck.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	snap, err := h.Coord.Catalog.Snapshot(c.Request.Context(), in.CardIDs())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validate failed"})
		return
	}
	c.JSON(http.StatusOK, deck.Validate(in, snap))
}

type importReq struct {
	Code string `json:"code"`
}

// importCode parses deck text into a fresh composition without saving it.
func (h *Handler) importCode(c *gin.Context) {
	var req importReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please paste a deck code"})
		return
	}

	parsed := deck.ParseDeckCode(req.Code)
	if len(parsed) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid cards found in the deck code"})
		return
	}
	snap, err := h.Coord.Catalog.SnapshotCodes(c.Request.Context(), deck.Codes(parsed))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	comp := deck.NewComposition(snap)
	res := deck.ApplyImport(comp, deck.Resolve(parsed, snap))
	c.JSON(http.StatusOK, gin.H{
		"deck":   comp.Input(),
		"counts": comp.Counts(),
		"import": res,
		"report": comp.Validate(),
	})
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := deckID(c)
	if !ok {
		return
	}
	claims := auth.MustGetClaims(c)

	deleted, err := h.Repo.Delete(c.Request.Context(), id, claims.UserID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
		return
	}
	h.emit(sync.DeckEvent{Type: sync.EventDeckDeleted, UserID: claims.UserID, DeckID: id})
	c.Status(http.StatusNoContent)
}

type publishReq struct {
	FeaturedCardID int64 `json:"featured_card_id"`
}

func (h *Handler) setPublished(c *gin.Context, publish bool) {
	id, ok := deckID(c)
	if !ok {
		return
	}
	claims := auth.MustGetClaims(c)
	ctx := c.Request.Context()

	var (
		updated bool
		err     error
	)
	if publish {
		var req publishReq
		// body is optional
		_ = c.ShouldBindJSON(&req)
		if req.FeaturedCardID > 0 {
			card, err := h.Coord.Catalog.GetByID(ctx, req.FeaturedCardID)
			if err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
				return
			}
			if card == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Featured card not found"})
				return
			}
		}
		updated, err = h.Repo.Publish(ctx, id, claims.UserID, req.FeaturedCardID)
	} else {
		updated, err = h.Repo.Unpublish(ctx, id, claims.UserID)
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
		return
	}

	d, err := h.Repo.Get(ctx, id)
	if err != nil || d == nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch updated failed"})
		return
	}
	ev := sync.EventDeckUnpublished
	if publish {
		ev = sync.EventDeckPublished
	}
	h.emit(sync.DeckEvent{Type: ev, UserID: claims.UserID, DeckID: id, DeckName: d.Name})
	c.JSON(http.StatusOK, d)
}

func (h *Handler) setLike(c *gin.Context, like bool) {
	id, ok := deckID(c)
	if !ok {
		return
	}
	claims := auth.MustGetClaims(c)
	ctx := c.Request.Context()

	d, err := h.Repo.GetVisible(ctx, id, claims.UserID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "like failed"})
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
		return
	}

	var count int
	if like {
		count, err = h.Repo.Like(ctx, claims.UserID, id)
	} else {
		count, err = h.Repo.Unlike(ctx, claims.UserID, id)
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "like failed"})
		return
	}

	h.emit(sync.DeckEvent{Type: sync.EventDeckLiked, UserID: d.UserID, DeckID: id, LikeCount: count})
	c.JSON(http.StatusOK, gin.H{"deck_id": id, "liked": like, "like_count": count})
}

func (h *Handler) copyDeck(c *gin.Context) {
	id, ok := deckID(c)
	if !ok {
		return
	}
	claims := auth.MustGetClaims(c)
	ctx := c.Request.Context()

	src, err := h.Repo.GetVisible(ctx, id, claims.UserID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "copy failed"})
		return
	}
	if src == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Deck not found"})
		return
	}

	newID, err := h.Repo.Copy(ctx, claims.UserID, src)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "copy failed"})
		return
	}
	h.emit(sync.DeckEvent{Type: sync.EventDeckCopied, UserID: src.UserID, DeckID: id, CopyCount: src.CopyCount + 1})
	c.JSON(http.StatusCreated, gin.H{"success": true, "deck_id": newID, "source_id": id})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
