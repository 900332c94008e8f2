package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tiempospro/tiempos-core/internal/shared/audit"
	"github.com/tiempospro/tiempos-core/internal/shared/domain"
	"github.com/tiempospro/tiempos-core/internal/shared/ledger"
)

// Postgres implementa las operaciones de billetera contra el banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrUserNotActive = errors.New("user is not active")

	// re-export de los centinela del ledger para los handlers
	ErrNotFound          = ledger.ErrUserNotFound
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	ErrInvalidAmount     = ledger.ErrInvalidAmount
)

// GetWallet devuelve el estado actual de la billetera del usuario.
func (p *Postgres) GetWallet(ctx context.Context, userID string) (ledger.User, error) {
	var u ledger.User
	var issuer sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, role, COALESCE(issuer_id::text,''), status, balance_cents
		FROM users WHERE id=$1`, userID).
		Scan(&u.ID, &u.Name, &u.Role, &issuer, &u.Status, &u.BalanceCents)
	if err == sql.ErrNoRows {
		return ledger.User{}, ErrNotFound
	}
	if err != nil {
		return ledger.User{}, err
	}
	if issuer.Valid {
		u.IssuerID = issuer.String
	}
	return u, nil
}

// Recharge acredita saldo al usuario destino en una sola transacción:
// lock de fila + asiento encadenado + espejo de auditoría.
// force permite recargar usuarios suspendidos (solo admins); usuarios
// eliminados nunca reciben fondos.
func (p *Postgres) Recharge(ctx context.Context, targetID string, amountCents int64, actorID, reference string, force bool) (txID string, newBalance int64, err error) {
	if amountCents <= 0 {
		return "", 0, ErrInvalidAmount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	u, err := ledger.LockUser(ctx, tx, targetID)
	if err != nil {
		return "", 0, err
	}
	if u.Status == domain.UserDeleted || (u.Status != domain.UserActive && !force) {
		return "", 0, ErrUserNotActive
	}

	entry, err := ledger.Credit(ctx, tx, targetID, amountCents, domain.EntryCredit, reference, map[string]any{
		"actor_id": actorID,
		"channel":  "recharge",
	})
	if err != nil {
		return "", 0, err
	}

	if err = audit.Record(ctx, tx, audit.Entry{
		ActorID:  actorID,
		Action:   audit.ActionWalletCredit,
		TargetID: targetID,
		Metadata: map[string]any{"amount_cents": amountCents, "tx_id": entry.ID, "reference": reference},
	}); err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}
	return entry.ID, entry.BalanceAfter, nil
}

// Withdraw retira saldo del usuario destino. Falla con ErrInsufficientFunds
// sin tocar el saldo; la operación completa es una única transacción.
func (p *Postgres) Withdraw(ctx context.Context, targetID string, amountCents int64, actorID, reference string) (txID string, newBalance int64, err error) {
	if amountCents <= 0 {
		return "", 0, ErrInvalidAmount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	u, err := ledger.LockUser(ctx, tx, targetID)
	if err != nil {
		return "", 0, err
	}
	if u.Status == domain.UserDeleted {
		return "", 0, ErrUserNotActive
	}

	entry, err := ledger.Debit(ctx, tx, targetID, amountCents, domain.EntryDebit, reference, map[string]any{
		"actor_id": actorID,
		"channel":  "withdraw",
	})
	if err != nil {
		return "", 0, err
	}

	if err = audit.Record(ctx, tx, audit.Entry{
		ActorID:  actorID,
		Action:   audit.ActionWalletDebit,
		TargetID: targetID,
		Metadata: map[string]any{"amount_cents": amountCents, "tx_id": entry.ID, "reference": reference},
	}); err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}
	return entry.ID, entry.BalanceAfter, nil
}

// Statement lista los últimos asientos del usuario, del más reciente al más viejo.
func (p *Postgres) Statement(ctx context.Context, userID string, limit int) ([]ledger.Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, amount_cents, balance_before, balance_after, entry_type, COALESCE(reference,''), created_at
		FROM ledger
		WHERE user_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.AmountCents, &e.BalanceBefore, &e.BalanceAfter, &e.EntryType, &e.Reference, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
