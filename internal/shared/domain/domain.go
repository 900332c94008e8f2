package domain

import (
	"fmt"
	"time"
)

// Roles de usuario de la plataforma
const (
	RoleSuperAdmin = "SUPERADMIN"
	RoleVendedor   = "VENDEDOR"
	RoleCliente    = "CLIENTE"
)

// Estados de usuario
const (
	UserActive    = "ACTIVE"
	UserSuspended = "SUSPENDED"
	UserDeleted   = "DELETED"
)

// Modalidades de juego
const (
	ModeTiempos    = "TIEMPOS"
	ModeReventados = "REVENTADOS"
)

// Estados de una apuesta. PENDING es el único estado no terminal.
const (
	BetPending  = "PENDING"
	BetWon      = "WON"
	BetLost     = "LOST"
	BetRefunded = "REFUNDED"
)

// Estados de un sorteo
const (
	DrawOpen      = "OPEN"
	DrawVerifying = "VERIFYING"
	DrawClosed    = "CLOSED"
)

// Tipos de asiento en el ledger
const (
	EntryCredit           = "CREDIT"
	EntryDebit            = "DEBIT"
	EntryFee              = "FEE"
	EntryAdjustment       = "ADJUSTMENT"
	EntryCommissionPayout = "COMMISSION_PAYOUT"
)

// Número comodín para el límite global de un sorteo
const NumberAll = "ALL"

// Sentinelas para límites de riesgo (fuera del dominio de montos en centavos)
const (
	LimitUnlimited int64 = -1
	LimitReset     int64 = -2
)

// Franjas diarias de sorteo, con hora de cierre fija (hora local de Costa Rica)
const (
	SlotMediodia = "MEDIODIA"
	SlotTarde    = "TARDE"
	SlotNoche    = "NOCHE"
)

// Slots lista las tres franjas en orden cronológico.
var Slots = []string{SlotMediodia, SlotTarde, SlotNoche}

// cutoffs por franja: hora y minuto del cierre de apuestas
var cutoffs = map[string][2]int{
	SlotMediodia: {12, 55},
	SlotTarde:    {16, 30},
	SlotNoche:    {19, 30},
}

// Timezone carga la zona horaria de los sorteos. Si el sistema no trae la
// base tzdata cae a UTC-6 fijo (Costa Rica no tiene horario de verano).
func Timezone() *time.Location {
	loc, err := time.LoadLocation("America/Costa_Rica")
	if err != nil {
		return time.FixedZone("CST", -6*60*60)
	}
	return loc
}

// ValidSlot indica si s es una franja de sorteo conocida.
func ValidSlot(s string) bool {
	_, ok := cutoffs[s]
	return ok
}

// ValidMode indica si m es una modalidad de juego conocida.
func ValidMode(m string) bool {
	return m == ModeTiempos || m == ModeReventados
}

// ValidNumber valida un número jugable: exactamente dos dígitos, "00".."99".
func ValidNumber(n string) bool {
	if len(n) != 2 {
		return false
	}
	return n[0] >= '0' && n[0] <= '9' && n[1] >= '0' && n[1] <= '9'
}

// CutoffFor devuelve el instante de cierre de la franja para el día de t.
func CutoffFor(slot string, t time.Time) (time.Time, error) {
	hm, ok := cutoffs[slot]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown draw slot %q", slot)
	}
	local := t.In(Timezone())
	return time.Date(local.Year(), local.Month(), local.Day(), hm[0], hm[1], 0, 0, Timezone()), nil
}

// SlotOpenAt indica si la franja todavía acepta apuestas en el instante t.
func SlotOpenAt(slot string, t time.Time) bool {
	cut, err := CutoffFor(slot, t)
	if err != nil {
		return false
	}
	return t.Before(cut)
}

// DrawDate normaliza t a la fecha de sorteo (YYYY-MM-DD en hora local).
func DrawDate(t time.Time) string {
	return t.In(Timezone()).Format("2006-01-02")
}

// CronSpec devuelve la expresión cron del cierre de la franja (para el scheduler).
func CronSpec(slot string) string {
	hm := cutoffs[slot]
	return fmt.Sprintf("%d %d * * *", hm[1], hm[0])
}
