package repo

import "time"

// Bet es el modelo de apuesta persistido en Postgres.
type Bet struct {
	ID          string
	TicketCode  string
	UserID      string
	DrawDate    string // YYYY-MM-DD
	DrawSlot    string
	Number      string
	AmountCents int64
	Mode        string
	Status      string
	PrizeCents  int64
	CreatedAt   time.Time
	SettledAt   *time.Time
}

// PlaceParams son los datos validados de una solicitud de apuesta.
type PlaceParams struct {
	UserID      string
	DrawSlot    string
	Number      string
	AmountCents int64
	Mode        string
}

// ListFilter acota la consulta de apuestas globales.
type ListFilter struct {
	DrawDate string // vacío = sin filtro
	DrawSlot string
	Status   string
	UserID   string
	IssuerID string // alcance de vendedor: solo apuestas de sus clientes
	Limit    int
}
