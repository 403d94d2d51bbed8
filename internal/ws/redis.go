package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// StartEventSubscriber relays the shared event channel to lobby clients, so
// the lobby sees sessions hosted by every server instance.
func (h *Hub) StartEventSubscriber(ctx context.Context, rdb *redis.Client, channel string) {
	if rdb == nil {
		log.Info().Msg("[WS] Redis client not set; lobby fed from local sessions only")
		return
	}

	pubsub := rdb.Subscribe(ctx, channel)
	h.mu.Lock()
	h.lobbyRemote = true
	h.mu.Unlock()

	go func() {
		defer pubsub.Close()
		log.Info().Str("channel", channel).Msg("[WS] event subscriber started")

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("[WS] event subscriber stopping")
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				h.RelayToLobby([]byte(msg.Payload))
			}
		}
	}()
}

// RelayToLobby wraps a published {"session_id","event"} payload as a lobby
// event message.
func (h *Hub) RelayToLobby(payload []byte) {
	if h.RoomSize("") == 0 {
		return
	}
	var p struct {
		SessionID string          `json:"session_id"`
		Event     json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(payload, &p); err != nil || p.SessionID == "" {
		log.Warn().Err(err).Msg("[WS] invalid event payload")
		return
	}
	h.Broadcast("", outgoing{Type: "event", SessionID: p.SessionID, Data: p.Event})
}
