package dto

// RechargeRequest acredita saldo a un usuario (acción de vendedor o admin)
type RechargeRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ActorID     string `json:"actorId"`
	Reference   string `json:"reference,omitempty"`
	Force       bool   `json:"force,omitempty"` // permite recargar usuarios suspendidos
}

// WithdrawRequest retira saldo de un usuario
type WithdrawRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ActorID     string `json:"actorId"`
	Reference   string `json:"reference,omitempty"`
}
