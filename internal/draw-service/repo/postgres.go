package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tiempospro/tiempos-core/internal/draw-service/settle"
	"github.com/tiempospro/tiempos-core/internal/shared/audit"
	"github.com/tiempospro/tiempos-core/internal/shared/domain"
	"github.com/tiempospro/tiempos-core/internal/shared/ledger"
	"github.com/tiempospro/tiempos-core/internal/shared/risk"
)

var (
	ErrDuplicateSettlement = errors.New("draw already settled")
	ErrNotFound            = errors.New("not found")
)

// Postgres implementa resultados de sorteo, liquidación, límites de riesgo y
// configuración global.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

// SettleParams es la publicación de un resultado.
type SettleParams struct {
	DrawSlot        string
	WinningNumber   string
	IsReventado     bool
	ReventadoNumber string
	ActorID         string
}

// SettleSummary resume una liquidación ejecutada.
type SettleSummary struct {
	ResultID       string
	DrawDate       string
	ProcessedCount int
	Winners        int
	PaidOutCents   int64
}

// Settle publica el resultado y liquida el sorteo del día en UNA transacción:
// cada apuesta PENDING de la franja termina WON o LOST exactamente una vez y
// los ganadores se acreditan vía ledger. El índice único (draw_date, draw_slot)
// es el candado de idempotencia: un sorteo ya CLOSED rechaza la segunda
// liquidación sin efecto alguno.
func (p *Postgres) Settle(ctx context.Context, params SettleParams) (SettleSummary, error) {
	drawDate := domain.DrawDate(p.now())

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return SettleSummary{}, err
	}
	defer tx.Rollback()

	// Cierra el resultado. El WHERE del ON CONFLICT deja pasar solo filas no
	// CLOSED (OPEN/VERIFYING del scheduler); si ya estaba CLOSED no vuelve fila.
	var resultID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO draw_results (id, draw_date, draw_slot, winning_number, is_reventado, reventado_number, status, published_at)
		VALUES ($1,$2,$3,$4,$5,$6,'CLOSED',NOW())
		ON CONFLICT (draw_date, draw_slot) DO UPDATE
		   SET winning_number=EXCLUDED.winning_number,
		       is_reventado=EXCLUDED.is_reventado,
		       reventado_number=EXCLUDED.reventado_number,
		       status='CLOSED',
		       published_at=NOW()
		 WHERE draw_results.status <> 'CLOSED'
		RETURNING id`,
		uuid.NewString(), drawDate, params.DrawSlot, params.WinningNumber,
		params.IsReventado, nullable(params.ReventadoNumber),
	).Scan(&resultID)
	if err == sql.ErrNoRows {
		return SettleSummary{}, ErrDuplicateSettlement
	}
	if err != nil {
		return SettleSummary{}, err
	}

	mult, err := multipliers(ctx, tx)
	if err != nil {
		return SettleSummary{}, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, ticket_code, user_id, number, amount_cents, mode
		FROM bets
		WHERE draw_date=$1 AND draw_slot=$2 AND status='PENDING'
		FOR UPDATE`, drawDate, params.DrawSlot)
	if err != nil {
		return SettleSummary{}, err
	}

	type pending struct {
		id, ticket, userID, number, mode string
		amountCents                      int64
	}
	var bets []pending
	for rows.Next() {
		var b pending
		if err := rows.Scan(&b.id, &b.ticket, &b.userID, &b.number, &b.amountCents, &b.mode); err != nil {
			rows.Close()
			return SettleSummary{}, err
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return SettleSummary{}, err
	}
	rows.Close()

	sum := SettleSummary{ResultID: resultID, DrawDate: drawDate, ProcessedCount: len(bets)}
	var lost []string

	for _, b := range bets {
		if !settle.Wins(b.number, params.WinningNumber) {
			lost = append(lost, b.id)
			continue
		}

		prize := settle.Prize(b.amountCents, mult.MultiplierFor(b.mode, params.IsReventado))
		if _, err = tx.ExecContext(ctx, `
			UPDATE bets SET status='WON', prize_cents=$1, settled_at=NOW() WHERE id=$2`,
			prize, b.id); err != nil {
			return SettleSummary{}, err
		}

		if _, err = ledger.Credit(ctx, tx, b.userID, prize, domain.EntryCredit, b.ticket, map[string]any{
			"draw_date": drawDate,
			"draw_slot": params.DrawSlot,
			"result_id": resultID,
		}); err != nil {
			return SettleSummary{}, err
		}

		if err = audit.Record(ctx, tx, audit.Entry{
			ActorID:  params.ActorID,
			Action:   audit.ActionBetPayout,
			TargetID: b.id,
			Metadata: map[string]any{"ticket_code": b.ticket, "prize_cents": prize, "result_id": resultID},
		}); err != nil {
			return SettleSummary{}, err
		}

		sum.Winners++
		sum.PaidOutCents += prize
	}

	if len(lost) > 0 {
		if _, err = tx.ExecContext(ctx, `
			UPDATE bets SET status='LOST', settled_at=NOW() WHERE id = ANY($1)`,
			pq.Array(lost)); err != nil {
			return SettleSummary{}, err
		}
	}

	if err = audit.Record(ctx, tx, audit.Entry{
		ActorID:  params.ActorID,
		Action:   audit.ActionDrawSettled,
		Severity: audit.SeverityWarning,
		TargetID: resultID,
		Metadata: map[string]any{
			"draw_date":      drawDate,
			"draw_slot":      params.DrawSlot,
			"winning_number": params.WinningNumber,
			"is_reventado":   params.IsReventado,
			"processed":      len(bets),
			"winners":        sum.Winners,
			"paid_out_cents": sum.PaidOutCents,
		},
	}); err != nil {
		return SettleSummary{}, err
	}

	if err = tx.Commit(); err != nil {
		return SettleSummary{}, err
	}
	return sum, nil
}

// Result es un resultado publicado (o franja en verificación).
type Result struct {
	ID              string
	DrawDate        string
	DrawSlot        string
	WinningNumber   string
	IsReventado     bool
	ReventadoNumber string
	Status          string
	PublishedAt     time.Time
}

// Results lista los resultados de una fecha (default: hoy).
func (p *Postgres) Results(ctx context.Context, date string) ([]Result, error) {
	if date == "" {
		date = domain.DrawDate(p.now())
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, draw_date::text, draw_slot, COALESCE(winning_number,''), is_reventado, COALESCE(reventado_number,''), status, published_at
		FROM draw_results WHERE draw_date=$1
		ORDER BY draw_slot`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.DrawDate, &r.DrawSlot, &r.WinningNumber, &r.IsReventado, &r.ReventadoNumber, &r.Status, &r.PublishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkVerifying pasa la franja del día a VERIFYING al llegar el corte, sin
// tocar resultados ya cerrados. Lo dispara el scheduler.
func (p *Postgres) MarkVerifying(ctx context.Context, slot string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO draw_results (id, draw_date, draw_slot, status)
		VALUES ($1,$2,$3,'VERIFYING')
		ON CONFLICT (draw_date, draw_slot) DO UPDATE SET status='VERIFYING'
		WHERE draw_results.status = 'OPEN'`,
		uuid.NewString(), domain.DrawDate(p.now()), slot)
	return err
}

// Limit es un límite de riesgo configurado.
type Limit struct {
	DrawSlot       string
	Number         string // "00".."99" o "ALL"
	MaxAmountCents int64  // -1 = ilimitado
	UpdatedAt      time.Time
}

// UpdateLimit fija el límite de un número (o el global ALL). El centinela
// -2 elimina el override y el número vuelve a heredar el global; -1 lo deja
// ilimitado; 0 bloquea el número.
func (p *Postgres) UpdateLimit(ctx context.Context, slot, number string, maxAmountCents int64, actorID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if maxAmountCents == domain.LimitReset {
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM risk_limits WHERE draw_slot=$1 AND number=$2`, slot, number); err != nil {
			return err
		}
	} else {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO risk_limits (draw_slot, number, max_amount_cents, updated_at)
			VALUES ($1,$2,$3,NOW())
			ON CONFLICT (draw_slot, number) DO UPDATE SET max_amount_cents=$3, updated_at=NOW()`,
			slot, number, maxAmountCents); err != nil {
			return err
		}
	}

	if err = audit.Record(ctx, tx, audit.Entry{
		ActorID:  actorID,
		Action:   audit.ActionLimitUpdated,
		Metadata: map[string]any{"draw_slot": slot, "number": number, "max_amount_cents": maxAmountCents},
	}); err != nil {
		return err
	}

	return tx.Commit()
}

// Limits lista los límites configurados de una franja.
func (p *Postgres) Limits(ctx context.Context, slot string) ([]Limit, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT draw_slot, number, max_amount_cents, updated_at
		FROM risk_limits WHERE draw_slot=$1
		ORDER BY number`, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Limit
	for rows.Next() {
		var l Limit
		if err := rows.Scan(&l.DrawSlot, &l.Number, &l.MaxAmountCents, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// NumberStat es la exposición pendiente de un número contra su límite vigente.
type NumberStat struct {
	Number         string
	ExposureCents  int64
	LimitCents     int64 // -1 = ilimitado
	HeadroomCents  int64 // -1 = ilimitado
	PendingTickets int
}

// Stats calcula la exposición por número de la franja de hoy directo de banco
// (camino de respaldo del panel de riesgo; el camino rápido es Redis).
func (p *Postgres) Stats(ctx context.Context, slot string) ([]NumberStat, error) {
	drawDate := domain.DrawDate(p.now())

	rows, err := p.db.QueryContext(ctx, `
		SELECT number, SUM(amount_cents), COUNT(*)
		FROM bets
		WHERE draw_date=$1 AND draw_slot=$2 AND status='PENDING'
		GROUP BY number ORDER BY number`, drawDate, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []NumberStat
	for rows.Next() {
		var s NumberStat
		if err := rows.Scan(&s.Number, &s.ExposureCents, &s.PendingTickets); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	limits, err := p.Limits(ctx, slot)
	if err != nil {
		return nil, err
	}
	var global *int64
	overrides := make(map[string]*int64, len(limits))
	for i := range limits {
		v := limits[i].MaxAmountCents
		if limits[i].Number == domain.NumberAll {
			global = &v
		} else {
			overrides[limits[i].Number] = &v
		}
	}

	for i := range stats {
		lim := risk.EffectiveLimit(overrides[stats[i].Number], global)
		stats[i].LimitCents = lim
		if lim == domain.LimitUnlimited {
			stats[i].HeadroomCents = domain.LimitUnlimited
		} else if h := lim - stats[i].ExposureCents; h > 0 {
			stats[i].HeadroomCents = h
		}
	}
	return stats, nil
}

// Multipliers lee los multiplicadores globales vigentes.
func (p *Postgres) Multipliers(ctx context.Context) (settle.Multipliers, error) {
	return multipliers(ctx, p.db)
}

// SetMultiplier actualiza un multiplicador global (solo SuperAdmin; el rol
// lo valida la capa HTTP). Queda auditado.
func (p *Postgres) SetMultiplier(ctx context.Context, key string, value int64, actorID string) error {
	if key != "multiplier_standard" && key != "multiplier_reventados" {
		return fmt.Errorf("unknown setting %q", key)
	}
	if value <= 0 {
		return fmt.Errorf("multiplier must be a positive integer")
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1,$2)
		ON CONFLICT (key) DO UPDATE SET value=$2`, key, value); err != nil {
		return err
	}

	if err = audit.Record(ctx, tx, audit.Entry{
		ActorID:  actorID,
		Action:   audit.ActionSettingsUpdated,
		Severity: audit.SeverityWarning,
		Metadata: map[string]any{"key": key, "value": value},
	}); err != nil {
		return err
	}

	return tx.Commit()
}

// PurgeTerminalBets borra apuestas terminales con más de retentionDays días.
// Nunca toca apuestas PENDING. Acción destructiva: auditada como CRITICAL.
func (p *Postgres) PurgeTerminalBets(ctx context.Context, retentionDays int, actorID string) (int64, error) {
	if retentionDays < 1 {
		retentionDays = 30
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM bets
		WHERE status IN ('WON','LOST','REFUNDED')
		AND created_at < NOW() - make_interval(days => $1)`, retentionDays)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()

	if err = audit.Record(ctx, tx, audit.Entry{
		ActorID:  actorID,
		Action:   audit.ActionBetsPurged,
		Severity: audit.SeverityCritical,
		Metadata: map[string]any{"deleted": n, "retention_days": retentionDays},
	}); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func multipliers(ctx context.Context, q queryer) (settle.Multipliers, error) {
	m := settle.Multipliers{Standard: 90, Reventados: 200}
	if err := q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key='multiplier_standard'`).Scan(&m.Standard); err != nil && err != sql.ErrNoRows {
		return m, err
	}
	if err := q.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key='multiplier_reventados'`).Scan(&m.Reventados); err != nil && err != sql.ErrNoRows {
		return m, err
	}
	return m, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
