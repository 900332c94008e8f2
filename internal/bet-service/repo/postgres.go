package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tiempospro/tiempos-core/internal/bet-service/ticket"
	"github.com/tiempospro/tiempos-core/internal/shared/audit"
	"github.com/tiempospro/tiempos-core/internal/shared/domain"
	"github.com/tiempospro/tiempos-core/internal/shared/ledger"
	"github.com/tiempospro/tiempos-core/internal/shared/risk"
)

var (
	ErrUserSuspended = errors.New("user is suspended")
	ErrDrawClosed    = errors.New("draw is closed for betting")
	ErrNotFound      = errors.New("not found")

	ErrInsufficientFunds = ledger.ErrInsufficientFunds
)

// Postgres implementa la colocación y consulta de apuestas.
type Postgres struct {
	db  *sql.DB
	now func() time.Time // inyectable en tests para el corte de franja
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

// PlaceResult es el resultado de una colocación aceptada.
type PlaceResult struct {
	Bet             Bet
	IssuerID        string
	NewBalanceCents int64
}

// Place acepta o rechaza una apuesta como UNA transacción: chequeo de corte,
// lock consultivo por (fecha, franja, número), exposición vs límite vigente,
// débito del ledger, inserción de la apuesta y espejo de auditoría. Si
// cualquier paso falla no queda efecto parcial.
func (p *Postgres) Place(ctx context.Context, params PlaceParams) (PlaceResult, error) {
	now := p.now()
	if !domain.SlotOpenAt(params.DrawSlot, now) {
		return PlaceResult{}, ErrDrawClosed
	}
	drawDate := domain.DrawDate(now)

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return PlaceResult{}, err
	}
	defer tx.Rollback()

	// Serializa colocaciones concurrentes sobre el mismo (número, sorteo):
	// dos apuestas simultáneas no pueden pasar juntas el chequeo de límite.
	lockKey := fmt.Sprintf("%s|%s|%s", drawDate, params.DrawSlot, params.Number)
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return PlaceResult{}, err
	}

	// Resultado ya publicado = la franja no acepta más apuestas hoy
	var published bool
	if err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM draw_results WHERE draw_date=$1 AND draw_slot=$2 AND status='CLOSED')`,
		drawDate, params.DrawSlot).Scan(&published); err != nil {
		return PlaceResult{}, err
	}
	if published {
		return PlaceResult{}, ErrDrawClosed
	}

	u, err := ledger.LockUser(ctx, tx, params.UserID)
	if err != nil {
		return PlaceResult{}, err
	}
	if u.Status != domain.UserActive {
		return PlaceResult{}, ErrUserSuspended
	}
	if params.AmountCents > u.BalanceCents {
		return PlaceResult{}, ErrInsufficientFunds
	}

	// Límite vigente: override del número, si no el global ALL, si no ilimitado
	override, err := p.limitFor(ctx, tx, params.DrawSlot, params.Number)
	if err != nil {
		return PlaceResult{}, err
	}
	global, err := p.limitFor(ctx, tx, params.DrawSlot, domain.NumberAll)
	if err != nil {
		return PlaceResult{}, err
	}
	limit := risk.EffectiveLimit(override, global)

	var exposure int64
	if err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents),0) FROM bets
		WHERE draw_date=$1 AND draw_slot=$2 AND number=$3 AND status='PENDING'`,
		drawDate, params.DrawSlot, params.Number).Scan(&exposure); err != nil {
		return PlaceResult{}, err
	}
	if err = risk.Check(params.DrawSlot, params.Number, limit, exposure, params.AmountCents); err != nil {
		return PlaceResult{}, err
	}

	bet := Bet{
		ID:          uuid.NewString(),
		TicketCode:  ticket.New(),
		UserID:      params.UserID,
		DrawDate:    drawDate,
		DrawSlot:    params.DrawSlot,
		Number:      params.Number,
		AmountCents: params.AmountCents,
		Mode:        params.Mode,
		Status:      domain.BetPending,
		CreatedAt:   now,
	}

	entry, err := ledger.Debit(ctx, tx, params.UserID, params.AmountCents, domain.EntryDebit, bet.TicketCode, map[string]any{
		"draw_slot": params.DrawSlot,
		"number":    params.Number,
		"mode":      params.Mode,
	})
	if err != nil {
		return PlaceResult{}, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, ticket_code, user_id, draw_date, draw_slot, number, amount_cents, mode, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'PENDING',$9)`,
		bet.ID, bet.TicketCode, bet.UserID, bet.DrawDate, bet.DrawSlot, bet.Number,
		bet.AmountCents, bet.Mode, bet.CreatedAt,
	); err != nil {
		return PlaceResult{}, err
	}

	if err = audit.Record(ctx, tx, audit.Entry{
		ActorID:  params.UserID,
		Action:   audit.ActionBetPlaced,
		TargetID: bet.ID,
		Metadata: map[string]any{
			"ticket_code":  bet.TicketCode,
			"draw_slot":    bet.DrawSlot,
			"number":       bet.Number,
			"amount_cents": bet.AmountCents,
			"mode":         bet.Mode,
		},
	}); err != nil {
		return PlaceResult{}, err
	}

	if err = tx.Commit(); err != nil {
		return PlaceResult{}, err
	}

	return PlaceResult{Bet: bet, IssuerID: u.IssuerID, NewBalanceCents: entry.BalanceAfter}, nil
}

// limitFor lee el límite configurado para (franja, número); nil = sin fila (heredar).
func (p *Postgres) limitFor(ctx context.Context, tx *sql.Tx, slot, number string) (*int64, error) {
	var v int64
	err := tx.QueryRowContext(ctx,
		`SELECT max_amount_cents FROM risk_limits WHERE draw_slot=$1 AND number=$2`,
		slot, number).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Get devuelve una apuesta por id.
func (p *Postgres) Get(ctx context.Context, betID string) (Bet, error) {
	var b Bet
	var settled sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT id, ticket_code, user_id, draw_date::text, draw_slot, number, amount_cents, mode, status, prize_cents, created_at, settled_at
		FROM bets WHERE id=$1`, betID).
		Scan(&b.ID, &b.TicketCode, &b.UserID, &b.DrawDate, &b.DrawSlot, &b.Number,
			&b.AmountCents, &b.Mode, &b.Status, &b.PrizeCents, &b.CreatedAt, &settled)
	if err == sql.ErrNoRows {
		return Bet{}, ErrNotFound
	}
	if err != nil {
		return Bet{}, err
	}
	if settled.Valid {
		t := settled.Time
		b.SettledAt = &t
	}
	return b, nil
}

// List consulta apuestas con filtros opcionales. IssuerID restringe el
// alcance a los clientes emitidos por ese vendedor (getGlobalBets).
func (p *Postgres) List(ctx context.Context, f ListFilter) ([]Bet, error) {
	q := `
		SELECT b.id, b.ticket_code, b.user_id, b.draw_date::text, b.draw_slot, b.number,
		       b.amount_cents, b.mode, b.status, b.prize_cents, b.created_at, b.settled_at
		FROM bets b`
	var args []any
	var conds []string
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.IssuerID != "" {
		q += ` JOIN users u ON u.id = b.user_id`
		add("u.issuer_id=$%d", f.IssuerID)
	}
	if f.DrawDate != "" {
		add("b.draw_date=$%d", f.DrawDate)
	}
	if f.DrawSlot != "" {
		add("b.draw_slot=$%d", f.DrawSlot)
	}
	if f.Status != "" {
		add("b.status=$%d", f.Status)
	}
	if f.UserID != "" {
		add("b.user_id=$%d", f.UserID)
	}
	for i, c := range conds {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	q += fmt.Sprintf(" ORDER BY b.created_at DESC LIMIT %d", limit)

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bet
	for rows.Next() {
		var b Bet
		var settled sql.NullTime
		if err := rows.Scan(&b.ID, &b.TicketCode, &b.UserID, &b.DrawDate, &b.DrawSlot, &b.Number,
			&b.AmountCents, &b.Mode, &b.Status, &b.PrizeCents, &b.CreatedAt, &settled); err != nil {
			return nil, err
		}
		if settled.Valid {
			t := settled.Time
			b.SettledAt = &t
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
