package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                 // GET /cards
	rg.GET("/facets", h.facets)        // GET /cards/facets
	rg.GET("/code/:code", h.getByCode) // GET /cards/code/:code
	rg.GET("/:id", h.getByID)          // GET /cards/:id
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Search:   c.Query("search"),
		Champion: c.Query("champion"),
		Rarity:   c.Query("rarity"),
		Type:     c.Query("type"),
		Region:   c.Query("region"),
		Sort:     c.Query("sort"),
		Limit:    parseInt(c.Query("limit"), 50),
		Offset:   parseInt(c.Query("offset"), 0),
	}
	// "All" is what the filter dropdowns send for no filter
	for _, f := range []*string{&q.Champion, &q.Rarity, &q.Type, &q.Region} {
		if strings.EqualFold(strings.TrimSpace(*f), "all") {
			*f = ""
		}
	}

	total, err := h.Repo.Count(c.Request.Context(), q)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), q)
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

func (h *Handler) facets(c *gin.Context) {
	f, err := h.Repo.Facets(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "facets failed"})
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}
	card, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *Handler) getByCode(c *gin.Context) {
	card, err := h.Repo.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, card)
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
