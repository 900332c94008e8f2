package events

// Evento publicado en el tópico "bet_accepted" tras confirmar una apuesta.
type BetAccepted struct {
	BetID       string `json:"bet_id"`
	TicketCode  string `json:"ticket_code"`
	UserID      string `json:"user_id"`
	IssuerID    string `json:"issuer_id,omitempty"` // vendedor que creó al cliente
	DrawDate    string `json:"draw_date"`           // YYYY-MM-DD
	DrawSlot    string `json:"draw_slot"`           // MEDIODIA | TARDE | NOCHE
	Number      string `json:"number"`              // "00".."99"
	AmountCents int64  `json:"amount_cents"`
	Mode        string `json:"mode"` // TIEMPOS | REVENTADOS
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
