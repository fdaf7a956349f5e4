package decks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"riftbound/pkg/database"
	"riftbound/pkg/models"
)

const deckColumns = `d.id, d.user_id, u.username, d.deck_name, d.description, d.champion_legend_id,
	d.chosen_champion_id, d.is_published, d.published_at, d.featured_card_id,
	d.view_count, d.like_count, d.copy_count, d.created_at, d.updated_at`

// Summary is a deck header as listed, with its card total and legend name.
type Summary struct {
	models.Deck
	LegendName string `json:"legend_name"`
	TotalCards int    `json:"total_cards"`
}

type CommunityQuery struct {
	Search   string // deck name substring
	LegendID int64
	Limit    int
	Offset   int
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func scanDeck(row interface{ Scan(...any) error }, extra ...any) (*models.Deck, error) {
	var (
		d           models.Deck
		publishedAt sql.NullTime
		featured    sql.NullInt64
	)
	dest := []any{&d.ID, &d.UserID, &d.Username, &d.Name, &d.Description, &d.LegendID,
		&d.ChosenChampionID, &d.Published, &publishedAt, &featured,
		&d.ViewCount, &d.LikeCount, &d.CopyCount, &d.CreatedAt, &d.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		d.PublishedAt = &t
	}
	d.FeaturedCardID = featured.Int64
	return &d, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*models.Deck, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+deckColumns+`
		FROM decks d
		JOIN users u ON u.id = d.user_id
		WHERE d.id = ?
	`, id)
	d, err := scanDeck(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get deck: %w", err)
	}
	return d, nil
}

// GetVisible returns the deck only if it is published or owned by viewerID.
func (r *Repo) GetVisible(ctx context.Context, id int64, viewerID string) (*models.Deck, error) {
	d, err := r.Get(ctx, id)
	if err != nil || d == nil {
		return nil, err
	}
	if !d.Published && d.UserID != viewerID {
		return nil, nil
	}
	return d, nil
}

func (r *Repo) listSummaries(ctx context.Context, where string, args []any, order string, limit, offset int) ([]Summary, error) {
	q := `
		SELECT ` + deckColumns + `, COALESCE(l.name, ''),
			(SELECT COALESCE(SUM(quantity), 0) FROM deck_cards dc WHERE dc.deck_id = d.id)
		FROM decks d
		JOIN users u ON u.id = d.user_id
		LEFT JOIN cards l ON l.id = d.champion_legend_id
		WHERE ` + where + `
		ORDER BY ` + order + `
		LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0, limit)
	for rows.Next() {
		var s Summary
		d, err := scanDeck(rows, &s.LegendName, &s.TotalCards)
		if err != nil {
			return nil, fmt.Errorf("scan deck row: %w", err)
		}
		s.Deck = *d
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return limit, max(offset, 0)
}

// ListByUser returns the user's decks, most recently updated first.
func (r *Repo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Summary, int, error) {
	limit, offset = clampPage(limit, offset)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count decks: %w", err)
	}
	items, err := r.listSummaries(ctx, "d.user_id = ?", []any{userID}, "d.updated_at DESC, d.id DESC", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListPublished returns community decks, newest publication first.
func (r *Repo) ListPublished(ctx context.Context, q CommunityQuery) ([]Summary, int, error) {
	limit, offset := clampPage(q.Limit, q.Offset)

	where := []string{"d.is_published = 1"}
	var args []any
	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "LOWER(d.deck_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	if q.LegendID > 0 {
		where = append(where, "d.champion_legend_id = ?")
		args = append(args, q.LegendID)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM decks d WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count published decks: %w", err)
	}
	items, err := r.listSummaries(ctx, cond, args, "d.published_at DESC, d.id DESC", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repo) Entries(ctx context.Context, deckID int64) ([]models.DeckCardEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT deck_id, card_id, slot, quantity
		FROM deck_cards
		WHERE deck_id = ?
		ORDER BY id
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("list deck entries: %w", err)
	}
	defer rows.Close()

	var out []models.DeckCardEntry
	for rows.Next() {
		var e models.DeckCardEntry
		var slot string
		if err := rows.Scan(&e.DeckID, &e.CardID, &slot, &e.Quantity); err != nil {
			return nil, fmt.Errorf("scan deck entry: %w", err)
		}
		e.Slot = models.Slot(slot)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Cards returns the deck's entries joined with their catalog records.
func (r *Repo) Cards(ctx context.Context, deckID int64) ([]models.DeckCard, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.name, c.card_code, c.card_type, c.rarity, COALESCE(c.region, ''),
			COALESCE(c.champion, ''), COALESCE(c.energy, 0), COALESCE(c.power, 0), c.price,
			COALESCE(c.card_art_url, ''), dc.slot, dc.quantity
		FROM deck_cards dc
		JOIN cards c ON c.id = dc.card_id
		WHERE dc.deck_id = ?
		ORDER BY c.card_code
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("list deck cards: %w", err)
	}
	defer rows.Close()

	out := []models.DeckCard{}
	for rows.Next() {
		var dc models.DeckCard
		var cardType, rarity, slot string
		if err := rows.Scan(&dc.ID, &dc.Name, &dc.Code, &cardType, &rarity, &dc.Region, &dc.Champion,
			&dc.Energy, &dc.Power, &dc.Price, &dc.ArtURL, &slot, &dc.Quantity); err != nil {
			return nil, fmt.Errorf("scan deck card: %w", err)
		}
		if dc.Type, err = models.ParseCardType(cardType); err != nil {
			return nil, fmt.Errorf("deck card %d: %w", dc.ID, err)
		}
		if dc.Rarity, err = models.ParseRarity(rarity); err != nil {
			return nil, fmt.Errorf("deck card %d: %w", dc.ID, err)
		}
		dc.Slot = models.Slot(slot)
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) IncrementViews(ctx context.Context, id int64) error {
	if _, err := r.DB.ExecContext(ctx, `UPDATE decks SET view_count = view_count + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM decks
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete deck: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// Publish makes an owned deck public. featuredCardID 0 keeps the current one.
func (r *Repo) Publish(ctx context.Context, id int64, userID string, featuredCardID int64) (bool, error) {
	var featured any
	if featuredCardID > 0 {
		featured = featuredCardID
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE decks
		SET is_published = 1,
			published_at = COALESCE(published_at, CURRENT_TIMESTAMP),
			featured_card_id = COALESCE(?, featured_card_id)
		WHERE id = ? AND user_id = ?
	`, featured, id, userID)
	if err != nil {
		return false, fmt.Errorf("publish deck: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

func (r *Repo) Unpublish(ctx context.Context, id int64, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE decks
		SET is_published = 0, published_at = NULL
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("unpublish deck: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// Like records userID's like once and returns the deck's like count.
func (r *Repo) Like(ctx context.Context, userID string, deckID int64) (int, error) {
	return r.setLike(ctx, userID, deckID, `
		INSERT INTO deck_likes (user_id, deck_id) VALUES (?, ?)
		ON CONFLICT(user_id, deck_id) DO NOTHING`)
}

func (r *Repo) Unlike(ctx context.Context, userID string, deckID int64) (int, error) {
	return r.setLike(ctx, userID, deckID, `DELETE FROM deck_likes WHERE user_id = ? AND deck_id = ?`)
}

func (r *Repo) setLike(ctx context.Context, userID string, deckID int64, stmt string) (int, error) {
	var count int
	err := database.WithTransaction(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmt, userID, deckID); err != nil {
			return fmt.Errorf("toggle like: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE decks
			SET like_count = (SELECT COUNT(*) FROM deck_likes WHERE deck_id = ?)
			WHERE id = ?
		`, deckID, deckID); err != nil {
			return fmt.Errorf("update like count: %w", err)
		}
		return tx.QueryRowContext(ctx, `SELECT like_count FROM decks WHERE id = ?`, deckID).Scan(&count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repo) Liked(ctx context.Context, userID string, deckID int64) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM deck_likes WHERE user_id = ? AND deck_id = ?
	`, userID, deckID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return n > 0, nil
}

// Copy clones a deck and its cards into a new private deck owned by userID
// and bumps the source's copy count. It returns the new deck id.
func (r *Repo) Copy(ctx context.Context, userID string, src *models.Deck) (int64, error) {
	var newID int64
	err := database.WithTransaction(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO decks (user_id, deck_name, description, champion_legend_id, chosen_champion_id)
			VALUES (?, ?, ?, ?, ?)
		`, userID, src.Name+" (Copy)", src.Description, src.LegendID, src.ChosenChampionID)
		if err != nil {
			return fmt.Errorf("insert copy: %w", err)
		}
		if newID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO deck_cards (deck_id, card_id, slot, quantity)
			SELECT ?, card_id, slot, quantity FROM deck_cards WHERE deck_id = ?
		`, newID, src.ID); err != nil {
			return fmt.Errorf("copy deck cards: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE decks SET copy_count = copy_count + 1 WHERE id = ?`, src.ID); err != nil {
			return fmt.Errorf("increment copy count: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}
