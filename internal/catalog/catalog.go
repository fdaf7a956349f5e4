// Package catalog provides read access to the card catalog. Lookups that
// miss are an ordinary outcome: in-memory lookups return false and
// repository lookups return a nil card with a nil error.
package catalog

import (
	"context"
	"sort"
	"strings"

	"riftbound/pkg/models"
)

// Catalog is the read-only view the deck engine validates against.
type Catalog interface {
	Card(id int64) (*models.Card, bool)
	CardByCode(code string) (*models.Card, bool)
}

// Source fetches fresh catalog views from storage.
type Source interface {
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	GetByCode(ctx context.Context, code string) (*models.Card, error)
	Snapshot(ctx context.Context, ids []int64) (*Memory, error)
	SnapshotCodes(ctx context.Context, codes []string) (*Memory, error)
}

// Memory is an immutable catalog held in maps keyed by id and lower-cased code.
type Memory struct {
	byID   map[int64]*models.Card
	byCode map[string]*models.Card
}

func NewMemory(cards ...models.Card) *Memory {
	m := &Memory{
		byID:   make(map[int64]*models.Card, len(cards)),
		byCode: make(map[string]*models.Card, len(cards)),
	}
	for i := range cards {
		c := cards[i]
		m.byID[c.ID] = &c
		if c.Code != "" {
			m.byCode[normalizeCode(c.Code)] = &c
		}
	}
	return m
}

// Card returns a copy so callers cannot mutate the catalog.
func (m *Memory) Card(id int64) (*models.Card, bool) {
	c, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

func (m *Memory) CardByCode(code string) (*models.Card, bool) {
	c, ok := m.byCode[normalizeCode(code)]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

func (m *Memory) Len() int {
	return len(m.byID)
}

// Cards lists every card ordered by code.
func (m *Memory) Cards() []models.Card {
	out := make([]models.Card, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (m *Memory) GetByID(_ context.Context, id int64) (*models.Card, error) {
	c, _ := m.Card(id)
	return c, nil
}

func (m *Memory) GetByCode(_ context.Context, code string) (*models.Card, error) {
	c, _ := m.CardByCode(code)
	return c, nil
}

// Snapshot returns the subset of m holding ids.
func (m *Memory) Snapshot(_ context.Context, ids []int64) (*Memory, error) {
	cards := make([]models.Card, 0, len(ids))
	for _, id := range uniqueIDs(ids) {
		if c, ok := m.byID[id]; ok {
			cards = append(cards, *c)
		}
	}
	return NewMemory(cards...), nil
}

func (m *Memory) SnapshotCodes(_ context.Context, codes []string) (*Memory, error) {
	cards := make([]models.Card, 0, len(codes))
	for _, code := range codes {
		if c, ok := m.byCode[normalizeCode(code)]; ok {
			cards = append(cards, *c)
		}
	}
	return NewMemory(cards...), nil
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Merge combines snapshots into one catalog. Later snapshots win on id
// collisions.
func Merge(parts ...*Memory) *Memory {
	var cards []models.Card
	for _, m := range parts {
		if m == nil {
			continue
		}
		for _, c := range m.byID {
			cards = append(cards, *c)
		}
	}
	return NewMemory(cards...)
}
