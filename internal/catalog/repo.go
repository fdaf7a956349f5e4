package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"riftbound/pkg/models"
)

const cardColumns = `id, name, card_code, card_type, rarity, region, champion, energy, power,
	price, set_name, card_art_url, flavor_text, description, is_featured`

// snapshotChunk keeps IN lists below sqlite's host parameter limit.
const snapshotChunk = 500

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Search   string // name or card_code, substring
	Champion string
	Rarity   string
	Type     string
	Region   string
	Sort     string // "name" (default) or "card_code"
	Limit    int
	Offset   int
}

// Facets are the distinct values offered by the card filters.
type Facets struct {
	Regions   []string `json:"regions"`
	Champions []string `json:"champions"`
	Rarities  []string `json:"rarities"`
	Types     []string `json:"card_types"`
	Sets      []string `json:"sets"`
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	var (
		c        models.Card
		cardType string
		rarity   string
		region   sql.NullString
		champion sql.NullString
		energy   sql.NullInt64
		power    sql.NullInt64
		setName  sql.NullString
		artURL   sql.NullString
		flavor   sql.NullString
		desc     sql.NullString
		featured bool
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Code, &cardType, &rarity, &region, &champion,
		&energy, &power, &c.Price, &setName, &artURL, &flavor, &desc, &featured); err != nil {
		return nil, err
	}

	t, err := models.ParseCardType(cardType)
	if err != nil {
		return nil, fmt.Errorf("card %d: %w", c.ID, err)
	}
	r, err := models.ParseRarity(rarity)
	if err != nil {
		return nil, fmt.Errorf("card %d: %w", c.ID, err)
	}
	c.Type = t
	c.Rarity = r
	c.Region = region.String
	c.Champion = champion.String
	c.Energy = int(energy.Int64)
	c.Power = int(power.Int64)
	c.SetName = setName.String
	c.ArtURL = artURL.String
	c.FlavorText = flavor.String
	c.Description = desc.String
	c.Featured = featured
	return &c, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get card by id: %w", err)
	}
	return c, nil
}

// GetByCode matches card_code case-insensitively (the column is NOCASE).
func (r *Repo) GetByCode(ctx context.Context, code string) (*models.Card, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE card_code = ?`, strings.TrimSpace(code))
	c, err := scanCard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get card by code: %w", err)
	}
	return c, nil
}

// Snapshot loads the referenced cards into a fresh Memory catalog.
// Missing ids are simply absent from the result.
func (r *Repo) Snapshot(ctx context.Context, ids []int64) (*Memory, error) {
	ids = uniqueIDs(ids)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	cards, err := r.loadIn(ctx, "id", args)
	if err != nil {
		return nil, fmt.Errorf("snapshot cards: %w", err)
	}
	return NewMemory(cards...), nil
}

func (r *Repo) SnapshotCodes(ctx context.Context, codes []string) (*Memory, error) {
	seen := make(map[string]struct{}, len(codes))
	args := make([]any, 0, len(codes))
	for _, code := range codes {
		n := normalizeCode(code)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		args = append(args, n)
	}
	cards, err := r.loadIn(ctx, "card_code", args)
	if err != nil {
		return nil, fmt.Errorf("snapshot cards by code: %w", err)
	}
	return NewMemory(cards...), nil
}

// All loads the whole catalog.
func (r *Repo) All(ctx context.Context) (*Memory, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY card_code`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	cards, err := collectCards(rows)
	if err != nil {
		return nil, err
	}
	return NewMemory(cards...), nil
}

func (r *Repo) loadIn(ctx context.Context, column string, args []any) ([]models.Card, error) {
	var out []models.Card
	for start := 0; start < len(args); start += snapshotChunk {
		end := min(start+snapshotChunk, len(args))
		chunk := args[start:end]

		q := `SELECT ` + cardColumns + ` FROM cards WHERE ` + column +
			` IN (` + strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",") + `)`
		rows, err := r.DB.QueryContext(ctx, q, chunk...)
		if err != nil {
			return nil, err
		}
		cards, err := collectCards(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, cards...)
	}
	return out, nil
}

func collectCards(rows *sql.Rows) ([]models.Card, error) {
	var out []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Card, error) {
	sqlStr, args := buildListSQL(q, false)
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards, err := collectCards(rows)
	if err != nil {
		return nil, err
	}
	if cards == nil {
		cards = []models.Card{}
	}
	return cards, nil
}

// buildListSQL builds either COUNT(*) or the paged SELECT for q.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	base := `SELECT ` + cardColumns + ` FROM cards`
	if countOnly {
		base = `SELECT COUNT(*) FROM cards`
	}

	var where []string
	var args []any

	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(card_code) LIKE ?)")
		kw := "%" + strings.ToLower(s) + "%"
		args = append(args, kw, kw)
	}
	if s := strings.TrimSpace(q.Champion); s != "" {
		where = append(where, "champion = ?")
		args = append(args, s)
	}
	if s := strings.TrimSpace(q.Rarity); s != "" {
		where = append(where, "LOWER(rarity) = ?")
		args = append(args, strings.ToLower(s))
	}
	if s := strings.TrimSpace(q.Type); s != "" {
		// the Champion type filter also matches Champion-rarity cards
		if strings.EqualFold(s, string(models.CardTypeChampion)) {
			where = append(where, "(card_type = 'Champion' OR rarity = 'Champion')")
		} else {
			where = append(where, "LOWER(card_type) = ?")
			args = append(args, strings.ToLower(s))
		}
	}
	if s := strings.TrimSpace(q.Region); s != "" {
		where = append(where, "region = ?")
		args = append(args, s)
	}

	sqlStr := base
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		if q.Sort == "card_code" {
			sqlStr += " ORDER BY card_code ASC"
		} else {
			sqlStr += " ORDER BY name ASC, card_code ASC"
		}
		limit := q.Limit
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		offset := max(q.Offset, 0)
		sqlStr += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	return sqlStr, args
}

func (r *Repo) Facets(ctx context.Context) (*Facets, error) {
	var f Facets
	var err error
	if f.Regions, err = r.distinct(ctx, "region"); err != nil {
		return nil, err
	}
	if f.Champions, err = r.distinct(ctx, "champion"); err != nil {
		return nil, err
	}
	if f.Rarities, err = r.distinct(ctx, "rarity"); err != nil {
		return nil, err
	}
	if f.Types, err = r.distinct(ctx, "card_type"); err != nil {
		return nil, err
	}
	if f.Sets, err = r.distinct(ctx, "set_name"); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repo) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT DISTINCT `+column+` FROM cards
		WHERE `+column+` IS NOT NULL AND `+column+` != '' AND `+column+` != 'None'
		ORDER BY `+column)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces a catalog card keyed by id.
func (r *Repo) Upsert(ctx context.Context, c models.Card) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO cards (id, name, card_code, card_type, rarity, region, champion, energy, power,
			price, set_name, card_art_url, flavor_text, description, is_featured)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			card_code = excluded.card_code,
			card_type = excluded.card_type,
			rarity = excluded.rarity,
			region = excluded.region,
			champion = excluded.champion,
			energy = excluded.energy,
			power = excluded.power,
			price = excluded.price,
			set_name = excluded.set_name,
			card_art_url = excluded.card_art_url,
			flavor_text = excluded.flavor_text,
			description = excluded.description,
			is_featured = excluded.is_featured
	`, c.ID, c.Name, c.Code, string(c.Type), string(c.Rarity), nullString(c.Region), nullString(c.Champion),
		c.Energy, c.Power, c.Price, nullString(c.SetName), nullString(c.ArtURL), nullString(c.FlavorText),
		nullString(c.Description), c.Featured)
	if err != nil {
		return fmt.Errorf("upsert card %s: %w", c.Code, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
