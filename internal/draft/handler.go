package draft

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"riftbound/internal/auth"
	"riftbound/internal/catalog"
	"riftbound/internal/deck"
	"riftbound/internal/decks"
	apperrors "riftbound/internal/errors"
	"riftbound/internal/sync"
	"riftbound/pkg/models"
)

type Handler struct {
	Store   *Store
	Catalog catalog.Source
	Coord   *decks.Coordinator
	Hub     *sync.Hub
}

func NewHandler(store *Store, cat catalog.Source, coord *decks.Coordinator, hub *sync.Hub) *Handler {
	return &Handler{Store: store, Catalog: cat, Coord: coord, Hub: hub}
}

// RegisterRoutes mounts the draft builder under rg, which must require auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	g := rg.Group("/drafts/current")
	g.GET("", h.get)
	g.DELETE("", h.remove)
	g.PUT("/meta", h.setMeta)
	g.PUT("/legend", h.setLegend)
	g.PUT("/champion", h.setChampion)
	g.DELETE("/champion", h.clearChampion)
	g.POST("/cards", h.addCard)
	g.DELETE("/cards/:zone/:card_id", h.removeCard)
	g.POST("/clear", h.clear)
	g.POST("/import", limit, h.importCode)
	g.GET("/export", h.export)
	g.POST("/load/:deck_id", h.load)
	g.POST("/save", limit, h.save)
}

// compose binds d to a catalog snapshot holding its cards plus extra ids.
func (h *Handler) compose(ctx context.Context, d *Draft, extra ...int64) (*deck.Composition, error) {
	snap, err := h.Catalog.Snapshot(ctx, append(d.Deck.CardIDs(), extra...))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load cards")
	}
	return deck.FromInput(snap, d.Deck), nil
}

func state(d *Draft, comp *deck.Composition, extra gin.H) gin.H {
	out := gin.H{
		"draft":  d,
		"counts": comp.Counts(),
		"report": comp.Validate(),
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// mutate runs op against the caller's draft inside a store update and
// responds with the new state.
func (h *Handler) mutate(c *gin.Context, op func(ctx context.Context, d *Draft) (*deck.Composition, gin.H, error)) {
	userID := auth.UserID(c)
	ctx := c.Request.Context()

	var (
		comp  *deck.Composition
		extra gin.H
	)
	d, err := h.Store.Update(ctx, userID, func(d *Draft) error {
		var err error
		comp, extra, err = op(ctx, d)
		if err != nil {
			return err
		}
		d.Deck = comp.Input()
		return nil
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, state(d, comp, extra))
}

func (h *Handler) get(c *gin.Context) {
	ctx := c.Request.Context()
	d, err := h.Store.GetOrNew(ctx, auth.UserID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	comp, err := h.compose(ctx, d)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, state(d, comp, nil))
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Store.Delete(c.Request.Context(), auth.UserID(c)); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type metaReq struct {
	Name        string `json:"deck_name"`
	Description string `json:"description"`
}

func (h *Handler) setMeta(c *gin.Context) {
	var req metaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	h.mutate(c, func(ctx context.Context, d *Draft) (*deck.Composition, gin.H, error) {
		d.Name = strings.TrimSpace(req.Name)
		d.Description = req.Description
		comp, err := h.compose(ctx, d)
		return comp, nil, err
	})
}

type cardReq struct {
	Zone   string `json:"zone"`
	CardID int64  `json:"card_id"`
}

func bindCard(c *gin.Context) (cardReq, bool) {
	var req cardReq
	if err := c.ShouldBindJSON(&req); err != nil || req.CardID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card_id is required"})
		return req, false
	}
	return req, true
}

func (h *Handler) setLegend(c *gin.Context) {
	req, ok := bindCard(c)
	if !ok {
		return
	}
	h.mutate(c, func(ctx context.Context, d *Draft) (*deck.Composition, gin.H, error) {
		comp, err := h.compose(ctx, d, req.CardID)
		if err != nil {
			return nil, nil, err
		}
		return comp, nil, comp.SetLegend(req.CardID)
	})
}

func (h *Handler) setChampion(c *gin.Context) {
	req, ok := bindCard(c)
	if !ok {
		return
	}
	h.mutate(c, func(ctx context.Context, d *Draft) (*deck.Composition, gin.H, error) {
		comp, err := h.compose(ctx, d, req.CardID)
		if err != nil {
			return nil, nil, err
		}
		return comp, nil, comp.SetChosenChampion(req.CardID)
	})
}

func (h *Handler) clearChampion(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, d *Draft) (*deck.Composition, gin.H, error) {
		comp, err := h.compose(ctx, d)
		if err != nil {
			return nil, nil, err
		}
		comp.ClearChosenChampion()
		return comp, nil, nil
	})
}

// addCard answers 200 even when a rule refuses the card; the result says
// whether it was added and why not.
func (h *Handler) addCard(c *gin.Context) {
	req, ok := bindCard(c)
	if !ok {
		return
	}
	zone, err := models.ParseSlot(req.Zone)
	if err != nil {
		zone = models.Slot(req.Zone)
	}
	h.mutate(c, func(ctx context.Context, d *Draft) (*deck.Composition, gin.H, error) {
		comp, err := h.compose(ctx, d, req.CardID)
		if err != nil {
			return nil, nil, err
		}
		res := comp.AddToZone(zone, req.CardID)
		return comp, gin.H{"result": res}, nil
	})
}

func (h *Handler) removeCard(c *gin.Context) {
	zone, err := models.ParseSlot(c.Param("zone"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown deck zone"})
		return
	}
	id, err := strconv.ParseInt(c.Param("card_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}
	h.mutate(c, func(ctx context.Context, d *Draft) (*deck.Composition, gin.H, error) {
		comp, err := h.compose(ctx, d)
		if err != nil {
			return nil, nil, err
		}
		if !comp.RemoveFromZone(zone, id) {
			return nil, nil, apperrors.NotFound("Card is not in that zone")
		}
		return comp, nil, nil
	})
}

func (h *Handler) clear(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, d *Draft) (*deck.Composition, gin.H, error) {
		comp, err := h.compose(ctx, d)
		if err != nil {
			return nil, nil, err
		}
		comp.Clear()
		return comp, nil, nil
	})
}

type importReq struct {
	Code    string `json:"code"`
	Replace bool   `json:"replace"`
}

// importCode adds the cards of a pasted deck code. With replace the draft
// is cleared first.
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

	h.mutate(c, func(ctx context.Context, d *Draft) (*deck.Composition, gin.H, error) {
		if req.Replace {
			d.Deck = deck.Input{}.Clone()
		}
		imported, err := h.Catalog.SnapshotCodes(ctx, deck.Codes(parsed))
		if err != nil {
			return nil, nil, apperrors.Wrap(err, "failed to load cards")
		}
		current, err := h.Catalog.Snapshot(ctx, d.Deck.CardIDs())
		if err != nil {
			return nil, nil, apperrors.Wrap(err, "failed to load cards")
		}
		comp := deck.FromInput(catalog.Merge(current, imported), d.Deck)
		res := deck.ApplyImport(comp, deck.Resolve(parsed, imported))
		return comp, gin.H{"import": res}, nil
	})
}

func (h *Handler) export(c *gin.Context) {
	ctx := c.Request.Context()
	d, err := h.Store.Get(ctx, auth.UserID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	snap, err := h.Catalog.Snapshot(ctx, d.Deck.CardIDs())
	if err != nil {
		apperrors.Respond(c, apperrors.Wrap(err, "failed to load cards"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": deck.Export(d.Deck, snap)})
}

// load replaces the draft with a saved deck the caller owns.
func (h *Handler) load(c *gin.Context) {
	deckID, err := strconv.ParseInt(c.Param("deck_id"), 10, 64)
	if err != nil || deckID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deck id"})
		return
	}
	userID := auth.UserID(c)
	ctx := c.Request.Context()

	saved, in, err := h.Coord.Hydrate(ctx, userID, deckID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	d := &Draft{
		UserID:      userID,
		DeckID:      saved.ID,
		Name:        saved.Name,
		Description: saved.Description,
		Deck:        in,
	}
	comp, err := h.compose(ctx, d)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	// the whole draft is replaced, so no read-modify-write is needed
	if err := h.Store.Put(ctx, d); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, state(d, comp, nil))
}

// save stores the draft as a deck. A rejected deck answers 422 with the
// report and leaves the draft untouched.
func (h *Handler) save(c *gin.Context) {
	userID := auth.UserID(c)
	ctx := c.Request.Context()

	d, err := h.Store.Get(ctx, userID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	out, err := h.Coord.Save(ctx, userID, decks.SaveInput{
		DeckID:      d.DeckID,
		Name:        d.Name,
		Description: d.Description,
		Input:       d.Deck,
	})
	if err != nil {
		var vf *decks.ValidationFailure
		if errors.As(err, &vf) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"message": vf.Error(),
				"report":  vf.Report,
			})
			return
		}
		apperrors.Respond(c, err)
		return
	}

	// later saves of this draft update the same deck
	if _, err := h.Store.Update(ctx, userID, func(d *Draft) error {
		d.DeckID = out.DeckID
		return nil
	}); err != nil {
		_ = c.Error(err)
	}
	if h.Hub != nil {
		go h.Hub.Publish(sync.DeckEvent{
			Type:     sync.EventDeckSaved,
			UserID:   userID,
			DeckID:   out.DeckID,
			DeckName: d.Name,
			At:       time.Now().UTC(),
		})
	}

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
