package dto

// SettleRequest publica el número ganador y dispara la liquidación del día
type SettleRequest struct {
	DrawSlot        string `json:"drawSlot"`
	WinningNumber   string `json:"winningNumber"`
	IsReventado     bool   `json:"isReventado"`
	ReventadoNumber string `json:"reventadoNumber,omitempty"`
	ActorID         string `json:"actorId"`
}

// UpdateLimitRequest fija el límite de exposición de un número o el global
// Sentinelas en max_amount_cents: -1 ilimitado, -2 quita el override, 0 bloquea
type UpdateLimitRequest struct {
	Draw           string `json:"draw"`
	Number         string `json:"number"` // "00".."99" o "ALL"
	MaxAmountCents int64  `json:"max_amount_cents"`
	ActorID        string `json:"actorId"`
}

// UpdateMultiplierRequest cambia un multiplicador global de pago
type UpdateMultiplierRequest struct {
	Key     string `json:"key"` // multiplier_standard | multiplier_reventados
	Value   int64  `json:"value"`
	ActorID string `json:"actorId"`
}

// PurgeRequest es una acción destructiva: exige la frase exacta de confirmación
type PurgeRequest struct {
	ConfirmationPhrase string `json:"confirmationPhrase"`
	RetentionDays      int    `json:"retentionDays,omitempty"`
	ActorID            string `json:"actorId"`
}
