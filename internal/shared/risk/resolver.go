package risk

import (
	"fmt"

	"github.com/tiempospro/tiempos-core/internal/shared/domain"
)

// LimitReachedError rechaza una apuesta que excedería el límite de exposición
// del número. Expone el margen restante para el mensaje al usuario.
type LimitReachedError struct {
	DrawSlot      string
	Number        string
	LimitCents    int64
	ExposureCents int64
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("limit reached for %s/%s: remaining headroom %d cents",
		e.Number, e.DrawSlot, e.HeadroomCents())
}

// HeadroomCents devuelve cuánto se puede apostar todavía sobre el número.
func (e *LimitReachedError) HeadroomCents() int64 {
	h := e.LimitCents - e.ExposureCents
	if h < 0 {
		return 0
	}
	return h
}

// EffectiveLimit resuelve el límite vigente para un (número, sorteo):
// override específico si existe, si no el global ALL, si no ilimitado.
// Es función pura de la configuración actual; se reevalúa en cada intento
// de colocación, nunca se cachea.
func EffectiveLimit(override, global *int64) int64 {
	if override != nil {
		return *override
	}
	if global != nil {
		return *global
	}
	return domain.LimitUnlimited
}

// Check valida que exposure + amount quepa bajo el límite. Un límite de 0
// bloquea el número por completo; LimitUnlimited nunca rechaza.
func Check(slot, number string, limitCents, exposureCents, amountCents int64) error {
	if limitCents == domain.LimitUnlimited {
		return nil
	}
	if exposureCents+amountCents > limitCents {
		return &LimitReachedError{
			DrawSlot:      slot,
			Number:        number,
			LimitCents:    limitCents,
			ExposureCents: exposureCents,
		}
	}
	return nil
}
