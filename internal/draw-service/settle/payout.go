package settle

import "github.com/tiempospro/tiempos-core/internal/shared/domain"

// Multipliers son los multiplicadores globales vigentes al momento de liquidar.
type Multipliers struct {
	Standard   int64 // default 90
	Reventados int64 // default 200
}

// MultiplierFor elige el multiplicador de pago de una apuesta ganadora.
// El reventados solo aplica cuando la apuesta es REVENTADOS y el sorteo
// efectivamente reventó; en cualquier otro caso (incluida una apuesta
// REVENTADOS en un sorteo que no reventó) paga el estándar.
func (m Multipliers) MultiplierFor(mode string, drawReventado bool) int64 {
	if mode == domain.ModeReventados && drawReventado {
		return m.Reventados
	}
	return m.Standard
}

// Prize calcula el premio como multiplicación entera, sin punto flotante.
func Prize(amountCents, multiplier int64) int64 {
	return amountCents * multiplier
}

// Wins decide si la apuesta acierta: igualdad exacta del número de dos dígitos.
func Wins(betNumber, winningNumber string) bool {
	return betNumber == winningNumber
}
