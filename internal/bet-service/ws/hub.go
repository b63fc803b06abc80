package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

// client serializa escritas: gorilla/websocket aceita um único writer por conexão
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas do feed de apostas
// subs: userID (ou "*") -> conjunto de clientes inscritos
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão; cada cliente pode
// assinar vários usuários
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer conn.Close()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.UserID == "" {
				h.reply(c, map[string]string{"type": "error", "error": "userId required"})
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.UserID]; !ok {
				h.subs[msg.UserID] = make(map[*client]struct{})
			}
			h.subs[msg.UserID][c] = struct{}{}
			h.mu.Unlock()
			h.reply(c, map[string]string{"type": "subscribed", "userId": msg.UserID})
		case "unsubscribe":
			h.mu.Lock()
			if m, ok := h.subs[msg.UserID]; ok {
				delete(m, c)
				if len(m) == 0 {
					delete(h.subs, msg.UserID)
				}
			}
			h.mu.Unlock()
		case "ping":
			h.reply(c, map[string]string{"type": "pong"})
		}
	}

	// remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for key, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, key)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) reply(c *client, v any) {
	b, _ := json.Marshal(v)
	_ = c.write(b)
}

// Broadcast envia a mudança para quem assina o dono da aposta e para "*"
func (h *Hub) Broadcast(change events.BetChange) int {
	h.mu.RLock()
	targets := make(map[*client]struct{})
	for _, key := range []string{change.Bet.UserID, AllUsers} {
		for c := range h.subs[key] {
			targets[c] = struct{}{}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return 0
	}

	b, err := json.Marshal(change)
	if err != nil {
		h.log.Warn("ws marshal failed", zap.Error(err))
		return 0
	}
	sent := 0
	for c := range targets {
		if err := c.write(b); err == nil {
			sent++
		}
	}
	return sent
}
