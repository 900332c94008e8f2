package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub gestiona conexiones WebSocket y suscripciones a franjas de sorteo
// subs: mapea drawSlot al conjunto de conexiones suscritas
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// drawSlot -> set of connections
	subs map[string]map[*websocket.Conn]struct{}
}

// NewHub crea una instancia de Hub con política de origen (CORS) a medida
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*websocket.Conn]struct{}),
	}
}

// HandleWS gestiona el ciclo de vida de una conexión WebSocket
// Permite subscribe/unsubscribe por franja y responde a pings
// Cada cliente puede suscribirse a varias franjas
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[msg.DrawSlot]; !ok {
				h.subs[msg.DrawSlot] = make(map[*websocket.Conn]struct{})
			}
			h.subs[msg.DrawSlot][conn] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			if m, ok := h.subs[msg.DrawSlot]; ok {
				delete(m, conn)
				if len(m) == 0 {
					delete(h.subs, msg.DrawSlot)
				}
			}
			h.mu.Unlock()
		case "ping":
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		}
	}
	// Quita la conexión de todas las suscripciones al desconectar
	h.mu.Lock()
	for _, set := range h.subs {
		delete(set, conn)
	}
	h.mu.Unlock()
}

// Broadcast envía un resultado liquidado a todos los clientes suscritos a la franja
func (h *Hub) Broadcast(update ResultUpdate) {
	h.mu.RLock()
	conns := h.subs[update.DrawSlot]
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(update)
	for c := range conns {
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}
