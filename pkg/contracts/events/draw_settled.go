package events

import "time"

// Evento emitido por el draw-service cuando un sorteo queda liquidado.
type DrawSettled struct {
	ResultID        string    `json:"result_id"`
	DrawDate        string    `json:"draw_date"` // YYYY-MM-DD
	DrawSlot        string    `json:"draw_slot"`
	WinningNumber   string    `json:"winning_number"`
	IsReventado     bool      `json:"is_reventado"`
	ReventadoNumber string    `json:"reventado_number,omitempty"`
	ProcessedCount  int       `json:"processed_count"`
	Winners         int       `json:"winners"`
	PaidOutCents    int64     `json:"paid_out_cents"`
	SettledAt       time.Time `json:"settled_at"`
}
