package dto

import "time"

type SettleResponse struct {
	ResultID       string `json:"resultId"`
	DrawDate       string `json:"draw_date"`
	DrawSlot       string `json:"draw_slot"`
	ProcessedCount int    `json:"processedCount"`
	Winners        int    `json:"winners"`
	PaidOutCents   int64  `json:"paid_out_cents"`
}

type ResultResponse struct {
	ID              string    `json:"id"`
	DrawDate        string    `json:"draw_date"`
	DrawSlot        string    `json:"draw_slot"`
	WinningNumber   string    `json:"winning_number,omitempty"`
	IsReventado     bool      `json:"is_reventado"`
	ReventadoNumber string    `json:"reventado_number,omitempty"`
	Status          string    `json:"status"`
	PublishedAt     time.Time `json:"published_at"`
}

type LimitResponse struct {
	Draw           string    `json:"draw"`
	Number         string    `json:"number"`
	MaxAmountCents int64     `json:"max_amount_cents"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type NumberStatResponse struct {
	Number         string `json:"number"`
	ExposureCents  int64  `json:"exposure_cents"`
	LimitCents     int64  `json:"limit_cents"`    // -1 = ilimitado
	HeadroomCents  int64  `json:"headroom_cents"` // -1 = ilimitado
	PendingTickets int    `json:"pending_tickets"`
}

type MultipliersResponse struct {
	Standard   int64 `json:"multiplier_standard"`
	Reventados int64 `json:"multiplier_reventados"`
}

type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}
