package redishandler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/election-observer/internal/models"
)

var ErrTokenNotFound = errors.New("refresh token not found")

// RefreshTokenStore keeps one hash per issued refresh token under
// refresh_token:<userId>:<tokenId>, expiring with the token itself.
type RefreshTokenStore struct {
	rdb *redis.Client
}

func NewRefreshTokenStore(rdb *redis.Client) *RefreshTokenStore {
	return &RefreshTokenStore{rdb: rdb}
}

func refreshKey(userID, tokenID string) string {
	return fmt.Sprintf("refresh_token:%s:%s", userID, tokenID)
}

func (s *RefreshTokenStore) Save(ctx context.Context, tok models.RefreshToken) error {
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now()
	}
	key := refreshKey(tok.UserID, tok.ID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"id":         tok.ID,
			"user_id":    tok.UserID,
			"token":      tok.Token,
			"expires_at": tok.ExpiresAt.UTC().Format(time.RFC3339),
			"created_at": tok.CreatedAt.UTC().Format(time.RFC3339),
		})
		pipe.ExpireAt(ctx, key, tok.ExpiresAt)
		return nil
	})
	return err
}

func (s *RefreshTokenStore) Find(ctx context.Context, userID, tokenID string) (*models.RefreshToken, error) {
	data, err := s.rdb.HGetAll(ctx, refreshKey(userID, tokenID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrTokenNotFound
	}

	var tok models.RefreshToken
	if err := mapstructure.Decode(data, &tok); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, data["expires_at"]); err == nil {
		tok.ExpiresAt = t
	}
	if t, err := time.Parse(time.RFC3339, data["created_at"]); err == nil {
		tok.CreatedAt = t
	}
	return &tok, nil
}

func (s *RefreshTokenStore) Delete(ctx context.Context, userID, tokenID string) error {
	return s.rdb.Del(ctx, refreshKey(userID, tokenID)).Err()
}

// DeleteAllForUser revokes every refresh token issued to userID.
func (s *RefreshTokenStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	var cursor uint64
	var keys []string
	var err error
	deleted := 0
	pattern := fmt.Sprintf("refresh_token:%s:*", userID)
	for {
		keys, cursor, err = s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := s.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}
