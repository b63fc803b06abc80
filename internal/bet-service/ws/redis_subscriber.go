package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal Redis Pub/Sub alimentado pelo
// activity-worker e repassa cada BetChange ao Hub
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				HandlePayload(log, hub, []byte(msg.Payload))
			}
		}
	}()
}

// HandlePayload decodifica uma mensagem do canal e faz o broadcast
func HandlePayload(log *zap.Logger, hub *Hub, payload []byte) {
	var change events.BetChange
	if err := json.Unmarshal(payload, &change); err != nil {
		log.Warn("ws subscriber unmarshal error", zap.Error(err))
		return
	}
	hub.Broadcast(change)
}
