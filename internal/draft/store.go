// Package draft keeps each user's in-progress deck in Redis so the builder
// survives reloads and can be edited from several clients.
package draft

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"riftbound/internal/deck"
	"riftbound/internal/errors"
	redisclient "riftbound/internal/redis"
)

const (
	draftKeyPrefix = "draft:user:"
	activeKey      = "draft:active"
	defaultTTL     = 24 * time.Hour

	errUserIDEmpty = "user ID cannot be empty"
	errDraftNil    = "draft cannot be nil"
)

// Draft is the working copy of a deck. DeckID is set when the draft was
// loaded from a saved deck, so saving it updates that deck.
type Draft struct {
	UserID      string     `json:"user_id"`
	DeckID      int64      `json:"deck_id,omitempty"`
	Name        string     `json:"deck_name"`
	Description string     `json:"description"`
	Deck        deck.Input `json:"deck"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Store struct {
	client redisclient.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore returns a store whose drafts expire ttl after their last write.
func NewStore(client redisclient.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{client: client, ttl: ttl, now: time.Now}
}

func draftKey(userID string) string {
	return draftKeyPrefix + userID
}

// Get returns the user's draft or a NotFound error.
func (s *Store) Get(ctx context.Context, userID string) (*Draft, error) {
	if userID == "" {
		return nil, errors.InvalidArgument(errUserIDEmpty)
	}
	raw, err := s.client.Get(ctx, draftKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NotFoundf("no draft found for user %s", userID)
		}
		return nil, errors.Wrapf(err, "failed to get draft")
	}

	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal draft")
	}
	d.Deck = d.Deck.Clone()
	return &d, nil
}

// GetOrNew returns the stored draft, or an empty one that is not yet stored.
func (s *Store) GetOrNew(ctx context.Context, userID string) (*Draft, error) {
	d, err := s.Get(ctx, userID)
	if errors.IsNotFound(err) {
		return &Draft{UserID: userID, Deck: deck.Input{}.Clone()}, nil
	}
	return d, err
}

// maxUpdateAttempts bounds optimistic retries when clients race on a draft.
const maxUpdateAttempts = 5

// Update applies fn to the user's draft (a new empty one if none exists)
// under WATCH, so concurrent edits from other clients are never lost. An
// error from fn aborts the update and is returned as is.
func (s *Store) Update(ctx context.Context, userID string, fn func(d *Draft) error) (*Draft, error) {
	if userID == "" {
		return nil, errors.InvalidArgument(errUserIDEmpty)
	}
	key := draftKey(userID)

	var (
		out   *Draft
		fnErr error
	)
	txf := func(tx *redis.Tx) error {
		d := &Draft{UserID: userID, Deck: deck.Input{}.Clone()}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, d); err != nil {
				return err
			}
			d.Deck = d.Deck.Clone()
		}

		if fnErr = fn(d); fnErr != nil {
			return fnErr
		}

		d.UpdatedAt = s.now().UTC()
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			pipe.ZAdd(ctx, activeKey, redis.Z{Score: float64(d.UpdatedAt.Unix()), Member: userID})
			return nil
		})
		if err == nil {
			out = d
		}
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return out, nil
		case err == redis.TxFailedErr:
			continue
		case fnErr != nil && err == fnErr:
			return nil, fnErr
		default:
			return nil, errors.Wrapf(err, "failed to update draft")
		}
	}
	return nil, errors.Aborted("draft was modified concurrently, please retry")
}

// Put writes the draft and refreshes its expiry.
func (s *Store) Put(ctx context.Context, d *Draft) error {
	if d == nil {
		return errors.InvalidArgument(errDraftNil)
	}
	if d.UserID == "" {
		return errors.InvalidArgument(errUserIDEmpty)
	}

	d.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(d)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal draft")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, draftKey(d.UserID), data, s.ttl)
	pipe.ZAdd(ctx, activeKey, redis.Z{Score: float64(d.UpdatedAt.Unix()), Member: d.UserID})
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to store draft")
	}
	return nil
}

// Delete removes the draft. Deleting a missing draft is not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.InvalidArgument(errUserIDEmpty)
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, draftKey(userID))
	pipe.ZRem(ctx, activeKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to delete draft")
	}
	return nil
}

// Active counts drafts written within the ttl window and trims older
// index entries.
func (s *Store) Active(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.ttl).Unix()
	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, activeKey, "-inf", "("+strconv.FormatInt(cutoff, 10))
	count := pipe.ZCard(ctx, activeKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrapf(err, "failed to count drafts")
	}
	return count.Val(), nil
}
