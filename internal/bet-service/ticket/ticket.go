package ticket

import (
	"strings"

	"github.com/google/uuid"
)

// alfabeto sin 0/O ni 1/I para que el código se pueda dictar por teléfono
const alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// New genera un código de tiquete único y legible, ej. "TP-7KQ2M9XR".
// La entropía sale de un UUID v4; la unicidad la respalda el índice UNIQUE
// de bets.ticket_code.
func New() string {
	id := uuid.New()
	var b strings.Builder
	b.WriteString("TP-")
	// 8 símbolos de 5 bits = 40 bits de los 122 aleatorios del UUID
	var acc uint64
	for i := 0; i < 5; i++ {
		acc = acc<<8 | uint64(id[i])
	}
	for i := 0; i < 8; i++ {
		b.WriteByte(alphabet[(acc>>uint(35-i*5))&31])
	}
	return b.String()
}
