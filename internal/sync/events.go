package sync

import "time"

const (
	EventDeckSaved        = "deck.saved"
	EventDeckDeleted      = "deck.deleted"
	EventDeckPublished    = "deck.published"
	EventDeckUnpublished  = "deck.unpublished"
	EventDeckLiked        = "deck.liked"
	EventDeckCopied       = "deck.copied"
	EventCollectionUpdate = "collection.update"
	EventWishlistUpdate   = "wishlist.update"
)

// Event is anything the hub can deliver. Audience is the user id a private
// event is addressed to, or "" for events every client may see.
type Event interface {
	Audience() string
}

type DeckEvent struct {
	Type      string    `json:"type"`
	UserID    string    `json:"user_id"`
	DeckID    int64     `json:"deck_id"`
	DeckName  string    `json:"deck_name,omitempty"`
	LikeCount int       `json:"like_count,omitempty"`
	CopyCount int       `json:"copy_count,omitempty"`
	At        time.Time `json:"at"`
}

// Saves and deletes are private; publication, likes and copies are public.
func (e DeckEvent) Audience() string {
	switch e.Type {
	case EventDeckSaved, EventDeckDeleted:
		return e.UserID
	}
	return ""
}

type CollectionEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	CardID     int64     `json:"card_id"`
	Quantity   int       `json:"quantity"`
	InWishlist bool      `json:"in_wishlist"`
	At         time.Time `json:"at"`
}

func (e CollectionEvent) Audience() string {
	return e.UserID
}
