package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyLeaderboard = "club:leaderboard"

// Leaderboard guarda o ranking completo serializado em JSON com TTL
type Leaderboard struct {
	R   redis.Cmdable
	TTL time.Duration
}

func NewLeaderboard(r redis.Cmdable, ttl time.Duration) *Leaderboard {
	return &Leaderboard{R: r, TTL: ttl}
}

func (c *Leaderboard) Load(ctx context.Context, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyLeaderboard).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Leaderboard) Save(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyLeaderboard, b, c.TTL).Err()
}

func (c *Leaderboard) Invalidate(ctx context.Context) error {
	return c.R.Del(ctx, keyLeaderboard).Err()
}
