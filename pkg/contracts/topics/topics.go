package topics

const (
	// Apuestas
	BetAccepted = "bet_accepted"

	// Sorteos
	DrawSettled = "draw_settled"

	// DLQs
	BetAcceptedDLQ = "bet_accepted_dlq"
	DrawSettledDLQ = "draw_settled_dlq"
)
