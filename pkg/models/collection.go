package models

import "time"

type CollectionItem struct {
	UserID    string    `json:"user_id"`
	CardID    int64     `json:"card_id"`
	Quantity  int       `json:"quantity"`
	Card      *Card     `json:"card,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WishlistItem struct {
	UserID    string    `json:"user_id"`
	CardID    int64     `json:"card_id"`
	Card      *Card     `json:"card,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CollectionStats struct {
	UniqueCards int     `json:"unique_cards"`
	TotalCards  int     `json:"total_cards"`
	TotalValue  float64 `json:"total_value"`
}
