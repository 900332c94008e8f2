package audit

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Severidad de un evento de auditoría
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Acciones auditadas
const (
	ActionWalletCredit     = "WALLET_CREDIT"
	ActionWalletDebit      = "WALLET_DEBIT"
	ActionBetPlaced        = "BET_PLACED"
	ActionBetPayout        = "BET_PAYOUT"
	ActionDrawSettled      = "DRAW_SETTLED"
	ActionLimitUpdated     = "RISK_LIMIT_UPDATED"
	ActionSettingsUpdated  = "SETTINGS_UPDATED"
	ActionCommissionPayout = "COMMISSION_PAYOUT"
	ActionBetsPurged       = "BETS_PURGED"
)

// Entry es un registro del rastro de auditoría. Toda mutación del ledger
// debe reflejarse acá: es requisito duro, no telemetría opcional.
type Entry struct {
	ActorID  string
	Action   string
	Severity string
	TargetID string
	Metadata map[string]any
}

// Record inserta la entrada dentro de la transacción en curso, de modo que
// el asiento contable y su rastro se confirmen o se reviertan juntos.
func Record(ctx context.Context, tx *sql.Tx, e Entry) error {
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	meta := []byte("{}")
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		meta = b
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_log (actor_id, action, severity, target_id, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())`,
		nullable(e.ActorID), e.Action, e.Severity, nullable(e.TargetID), meta,
	)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
