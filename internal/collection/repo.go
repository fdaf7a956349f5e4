// Package collection tracks the cards each user owns and wants.
package collection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"riftbound/internal/errors"
	"riftbound/pkg/database"
	"riftbound/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func cardExists(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, cardID int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = ?`, cardID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check card: %w", err)
	}
	return true, nil
}

// UpdateQuantity sets how many copies of a card the user owns. Zero removes
// the card from the collection.
func (r *Repo) UpdateQuantity(ctx context.Context, userID string, cardID int64, qty int) error {
	return database.WithTransaction(ctx, r.DB, func(tx *sql.Tx) error {
		ok, err := cardExists(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NotFound("Card not found")
		}
		if qty < 0 {
			return errors.InvalidArgument("Quantity cannot be negative")
		}

		if qty == 0 {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM user_collections WHERE user_id = ? AND card_id = ?
			`, userID, cardID); err != nil {
				return fmt.Errorf("delete collection item: %w", err)
			}
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_collections (user_id, card_id, quantity, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(user_id, card_id) DO UPDATE SET
				quantity = excluded.quantity,
				updated_at = CURRENT_TIMESTAMP
		`, userID, cardID, qty); err != nil {
			return fmt.Errorf("upsert collection item: %w", err)
		}
		return nil
	})
}

// AddToWishlist is idempotent.
func (r *Repo) AddToWishlist(ctx context.Context, userID string, cardID int64) error {
	ok, err := cardExists(ctx, r.DB, cardID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NotFound("Card not found")
	}
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_wishlist (user_id, card_id) VALUES (?, ?)
		ON CONFLICT(user_id, card_id) DO NOTHING
	`, userID, cardID); err != nil {
		return fmt.Errorf("add to wishlist: %w", err)
	}
	return nil
}

// RemoveFromWishlist is idempotent.
func (r *Repo) RemoveFromWishlist(ctx context.Context, userID string, cardID int64) error {
	if _, err := r.DB.ExecContext(ctx, `
		DELETE FROM user_wishlist WHERE user_id = ? AND card_id = ?
	`, userID, cardID); err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	return nil
}

const joinedCardColumns = `c.id, c.name, c.card_code, c.card_type, c.rarity, COALESCE(c.region, ''),
	COALESCE(c.champion, ''), COALESCE(c.energy, 0), c.price, COALESCE(c.card_art_url, '')`

func scanJoinedCard(dest []any, c *models.Card) []any {
	return append(dest, &c.ID, &c.Name, &c.Code, &c.Type, &c.Rarity, &c.Region,
		&c.Champion, &c.Energy, &c.Price, &c.ArtURL)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return limit, max(offset, 0)
}

// List pages through the user's collection by card code.
func (r *Repo) List(ctx context.Context, userID string, limit, offset int) ([]models.CollectionItem, int, error) {
	limit, offset = clampPage(limit, offset)

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_collections WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count collection: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT uc.user_id, uc.quantity, uc.updated_at, `+joinedCardColumns+`
		FROM user_collections uc
		JOIN cards c ON c.id = uc.card_id
		WHERE uc.user_id = ?
		ORDER BY c.card_code
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list collection: %w", err)
	}
	defer rows.Close()

	out := make([]models.CollectionItem, 0, limit)
	for rows.Next() {
		var (
			it      models.CollectionItem
			card    models.Card
			updated time.Time
		)
		dest := scanJoinedCard([]any{&it.UserID, &it.Quantity, &updated}, &card)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan collection row: %w", err)
		}
		it.CardID = card.ID
		it.Card = &card
		it.UpdatedAt = updated
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

func (r *Repo) Wishlist(ctx context.Context, userID string) ([]models.WishlistItem, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT w.user_id, w.created_at, `+joinedCardColumns+`
		FROM user_wishlist w
		JOIN cards c ON c.id = w.card_id
		WHERE w.user_id = ?
		ORDER BY w.created_at DESC, c.card_code
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	out := []models.WishlistItem{}
	for rows.Next() {
		var (
			it   models.WishlistItem
			card models.Card
		)
		dest := scanJoinedCard([]any{&it.UserID, &it.CreatedAt}, &card)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan wishlist row: %w", err)
		}
		it.CardID = card.ID
		it.Card = &card
		out = append(out, it)
	}
	return out, rows.Err()
}

// Stats values the collection at catalog price.
func (r *Repo) Stats(ctx context.Context, userID string) (*models.CollectionStats, error) {
	var s models.CollectionStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(uc.quantity), 0), COALESCE(SUM(uc.quantity * c.price), 0)
		FROM user_collections uc
		JOIN cards c ON c.id = uc.card_id
		WHERE uc.user_id = ?
	`, userID).Scan(&s.UniqueCards, &s.TotalCards, &s.TotalValue)
	if err != nil {
		return nil, fmt.Errorf("collection stats: %w", err)
	}
	return &s, nil
}

// OwnedCounts maps card id to owned quantity.
func (r *Repo) OwnedCounts(ctx context.Context, userID string) (map[int64]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT card_id, quantity FROM user_collections WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("owned counts: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var (
			id  int64
			qty int
		)
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("scan owned count: %w", err)
		}
		out[id] = qty
	}
	return out, rows.Err()
}

// InWishlist reports whether the card is on the user's wishlist.
func (r *Repo) InWishlist(ctx context.Context, userID string, cardID int64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `
		SELECT 1 FROM user_wishlist WHERE user_id = ? AND card_id = ?
	`, userID, cardID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check wishlist: %w", err)
	}
	return true, nil
}
