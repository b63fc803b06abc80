package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// ChannelBetChanges é o canal default lido pelo hub /ws do bet-service
const ChannelBetChanges = "bet_changes_broadcast"

type RedisBroadcaster struct {
	r redis.Cmdable
}

func NewRedisBroadcaster(r redis.Cmdable) *RedisBroadcaster {
	return &RedisBroadcaster{r: r}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, payload []byte) error {
	if channel == "" {
		channel = ChannelBetChanges
	}
	return b.r.Publish(ctx, channel, payload).Err()
}
