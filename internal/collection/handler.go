package collection

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"riftbound/internal/auth"
	"riftbound/internal/errors"
	"riftbound/internal/sync"
)

type Handler struct {
	Repo *Repo
	Hub  *sync.Hub
}

func NewHandler(repo *Repo, hub *sync.Hub) *Handler {
	return &Handler{Repo: repo, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/collection", h.list)
	rg.GET("/collection/stats", h.stats)
	rg.GET("/collection/owned", h.owned)
	rg.PUT("/collection/:card_id", h.setQuantity)
	rg.GET("/wishlist", h.wishlist)
	rg.GET("/wishlist/:card_id", h.inWishlist)
	rg.POST("/wishlist/:card_id", h.addWish)
	rg.DELETE("/wishlist/:card_id", h.removeWish)
}

func cardParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("card_id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card_id required"})
		return 0, false
	}
	return id, true
}

func (h *Handler) publish(ev sync.CollectionEvent) {
	if h.Hub == nil {
		return
	}
	ev.At = time.Now().UTC()
	go h.Hub.Publish(ev)
}

type quantityReq struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) setQuantity(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	cardID, ok := cardParam(c)
	if !ok {
		return
	}

	var req quantityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	if err := h.Repo.UpdateQuantity(c.Request.Context(), claims.UserID, cardID, *req.Quantity); err != nil {
		errors.Respond(c, err)
		return
	}

	h.publish(sync.CollectionEvent{
		Type:     sync.EventCollectionUpdate,
		UserID:   claims.UserID,
		CardID:   cardID,
		Quantity: *req.Quantity,
	})
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Collection updated",
		"quantity": *req.Quantity,
	})
}

func (h *Handler) setWish(c *gin.Context, add bool) {
	claims := auth.MustGetClaims(c)
	cardID, ok := cardParam(c)
	if !ok {
		return
	}

	var (
		err error
		msg string
	)
	if add {
		err = h.Repo.AddToWishlist(c.Request.Context(), claims.UserID, cardID)
		msg = "Added to wishlist"
	} else {
		err = h.Repo.RemoveFromWishlist(c.Request.Context(), claims.UserID, cardID)
		msg = "Removed from wishlist"
	}
	if err != nil {
		errors.Respond(c, err)
		return
	}

	h.publish(sync.CollectionEvent{
		Type:       sync.EventWishlistUpdate,
		UserID:     claims.UserID,
		CardID:     cardID,
		InWishlist: add,
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

func (h *Handler) addWish(c *gin.Context) { h.setWish(c, true) }

func (h *Handler) removeWish(c *gin.Context) { h.setWish(c, false) }

// inWishlist backs the wishlist toggle on a card's detail view.
func (h *Handler) inWishlist(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	cardID, ok := cardParam(c)
	if !ok {
		return
	}
	in, err := h.Repo.InWishlist(c.Request.Context(), claims.UserID, cardID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "wishlist check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"card_id": cardID, "in_wishlist": in})
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, limit, offset)
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

func (h *Handler) wishlist(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	items, err := h.Repo.Wishlist(c.Request.Context(), claims.UserID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) stats(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	s, err := h.Repo.Stats(c.Request.Context(), claims.UserID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// owned returns card id -> quantity for "you own N" badges in the builder.
func (h *Handler) owned(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	counts, err := h.Repo.OwnedCounts(c.Request.Context(), claims.UserID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "owned failed"})
		return
	}
	out := make(map[string]int, len(counts))
	for id, n := range counts {
		out[strconv.FormatInt(id, 10)] = n
	}
	c.JSON(http.StatusOK, gin.H{"owned": out})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
