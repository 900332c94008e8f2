package ws

// ClientMsg representa un mensaje recibido del cliente WebSocket
// Type: subscribe | unsubscribe | ping
// DrawSlot: obligatorio para subscribe/unsubscribe
type ClientMsg struct {
	Type     string `json:"type"`     // subscribe | unsubscribe | ping
	DrawSlot string `json:"drawSlot"` // requerido en subscribe/unsubscribe
}

// ResultUpdate es un resultado liquidado enviado a los clientes WebSocket
type ResultUpdate struct {
	DrawSlot string      `json:"drawSlot"`
	Payload  interface{} `json:"payload"`
}
