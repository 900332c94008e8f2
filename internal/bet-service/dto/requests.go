package dto

// PlaceBetRequest es la solicitud de colocación de una apuesta
type PlaceBetRequest struct {
	UserID      string `json:"userId"`
	Draw        string `json:"draw"`   // MEDIODIA | TARDE | NOCHE
	Number      string `json:"number"` // "00".."99"
	AmountCents int64  `json:"amount_cents"`
	Mode        string `json:"mode"` // TIEMPOS | REVENTADOS
}
