package repo

import (
	"context"
	"database/sql"

	"github.com/tiempospro/tiempos-core/internal/shared/audit"
	"github.com/tiempospro/tiempos-core/internal/shared/domain"
	"github.com/tiempospro/tiempos-core/internal/shared/ledger"
)

// Postgres implementa el pago de comisiones de vendedores tras una liquidación.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// CommissionRateBp lee la tasa de comisión global en puntos básicos.
func (p *Postgres) CommissionRateBp(ctx context.Context) (int64, error) {
	var bp int64
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key='commission_rate_bp'`).Scan(&bp)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return bp, err
}

// VendorTotals agrega, por vendedor, el total apostado por sus clientes en el
// sorteo liquidado (todas las apuestas ya terminales de esa fecha/franja).
func (p *Postgres) VendorTotals(ctx context.Context, drawDate, slot string) (map[string]int64, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT u.issuer_id::text, SUM(b.amount_cents)
		FROM bets b
		JOIN users u ON u.id = b.user_id
		WHERE b.draw_date=$1 AND b.draw_slot=$2
		  AND b.status IN ('WON','LOST')
		  AND u.issuer_id IS NOT NULL
		GROUP BY u.issuer_id`, drawDate, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var vendor string
		var cents int64
		if err := rows.Scan(&vendor, &cents); err != nil {
			return nil, err
		}
		totals[vendor] = cents
	}
	return totals, rows.Err()
}

// PayCommission acredita la comisión de un vendedor por un sorteo. Idempotente:
// la PK (vendor_id, draw_result_id) de commission_payouts impide pagar dos
// veces aunque el evento se reprocese.
func (p *Postgres) PayCommission(ctx context.Context, vendorID, resultID string, amountCents int64) (paid bool, err error) {
	if amountCents <= 0 {
		return false, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO commission_payouts (vendor_id, draw_result_id, amount_cents)
		VALUES ($1,$2,$3)
		ON CONFLICT (vendor_id, draw_result_id) DO NOTHING`,
		vendorID, resultID, amountCents)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil // ya pagado
	}

	if _, err = ledger.Credit(ctx, tx, vendorID, amountCents, domain.EntryCommissionPayout, resultID, map[string]any{
		"result_id": resultID,
	}); err != nil {
		return false, err
	}

	if err = audit.Record(ctx, tx, audit.Entry{
		Action:   audit.ActionCommissionPayout,
		TargetID: vendorID,
		Metadata: map[string]any{"result_id": resultID, "amount_cents": amountCents},
	}); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
