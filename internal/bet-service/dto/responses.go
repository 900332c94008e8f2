package dto

import "time"

type PlaceBetResponse struct {
	BetID           string `json:"betId"`
	TicketCode      string `json:"ticketCode"`
	Status          string `json:"status"`
	NewBalanceCents int64  `json:"new_balance_cents"`
}

// LimitReachedResponse acompaña el 409 cuando se excede el límite del número
type LimitReachedResponse struct {
	Error         string `json:"error"`
	Number        string `json:"number"`
	Draw          string `json:"draw"`
	LimitCents    int64  `json:"limit_cents"`
	ExposureCents int64  `json:"exposure_cents"`
	HeadroomCents int64  `json:"headroom_cents"`
}

type BetResponse struct {
	BetID       string     `json:"betId"`
	TicketCode  string     `json:"ticketCode"`
	UserID      string     `json:"userId"`
	DrawDate    string     `json:"draw_date"`
	DrawSlot    string     `json:"draw_slot"`
	Number      string     `json:"number"`
	AmountCents int64      `json:"amount_cents"`
	Mode        string     `json:"mode"`
	Status      string     `json:"status"`
	PrizeCents  int64      `json:"prize_cents"`
	CreatedAt   time.Time  `json:"created_at"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
}
