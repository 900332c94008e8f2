package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// PubSubChannel define el canal Redis Pub/Sub usado para el broadcast de resultados
const PubSubChannel = "draw_results_broadcast"

// StartRedisSubscriber inicia una goroutine que escucha el canal Redis Pub/Sub
// y reenvía los resultados recibidos a los clientes WebSocket conectados vía Hub
//
// Funcionamiento:
// - Recibe mensajes JSON del canal Redis
// - Deserializa a ResultUpdate
// - Llama hub.Broadcast para enviarlos a los clientes suscritos
func StartRedisSubscriber(ctx context.Context, r *redis.Client, hub *Hub) {
	sub := r.Subscribe(ctx, PubSubChannel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // cierra la suscripción al terminar el contexto
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var upd ResultUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Printf("ws subscriber unmarshal error: %v", err)
					continue
				}
				hub.Broadcast(upd) // envía el resultado a los clientes suscritos
			}
		}
	}()
}
