package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errores centinela compartidos por todos los repos que tocan el ledger
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be a positive integer of cents")
)

// User es la fila de usuario bloqueada dentro de la transacción.
type User struct {
	ID           string
	Name         string
	Role         string
	IssuerID     string
	Status       string
	BalanceCents int64
}

// Entry es un asiento inmutable del ledger. El monto va con signo:
// positivo = crédito, negativo = débito.
type Entry struct {
	ID            string
	UserID        string
	AmountCents   int64
	BalanceBefore int64
	BalanceAfter  int64
	EntryType     string
	Reference     string
	CreatedAt     time.Time
}

// LockUser toma el lock de fila del usuario (FOR UPDATE) y devuelve su estado.
// Toda mutación de saldo del mismo usuario queda serializada detrás de este lock.
func LockUser(ctx context.Context, tx *sql.Tx, userID string) (User, error) {
	var u User
	var issuer sql.NullString
	err := tx.QueryRowContext(ctx, `
		SELECT id, name, role, COALESCE(issuer_id::text,''), status, balance_cents
		FROM users WHERE id=$1 FOR UPDATE`, userID).
		Scan(&u.ID, &u.Name, &u.Role, &issuer, &u.Status, &u.BalanceCents)
	if err == sql.ErrNoRows {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	if issuer.Valid {
		u.IssuerID = issuer.String
	}
	return u, nil
}

// Credit agrega saldo al usuario y asienta la entrada encadenada
// (balance_after = balance_before + monto). Debe llamarse dentro de la
// transacción que engloba la operación de negocio.
func Credit(ctx context.Context, tx *sql.Tx, userID string, amountCents int64, entryType, reference string, metadata map[string]any) (Entry, error) {
	return apply(ctx, tx, userID, amountCents, entryType, reference, metadata)
}

// Debit descuenta saldo del usuario. Falla con ErrInsufficientFunds si el
// monto supera el saldo actual; el saldo nunca queda negativo.
func Debit(ctx context.Context, tx *sql.Tx, userID string, amountCents int64, entryType, reference string, metadata map[string]any) (Entry, error) {
	return apply(ctx, tx, userID, -amountCents, entryType, reference, metadata)
}

func apply(ctx context.Context, tx *sql.Tx, userID string, signedCents int64, entryType, reference string, metadata map[string]any) (Entry, error) {
	if signedCents == 0 {
		return Entry{}, ErrInvalidAmount
	}

	u, err := LockUser(ctx, tx, userID)
	if err != nil {
		return Entry{}, err
	}

	after := u.BalanceCents + signedCents
	if after < 0 {
		return Entry{}, ErrInsufficientFunds
	}

	meta := []byte("{}")
	if metadata != nil {
		if meta, err = json.Marshal(metadata); err != nil {
			return Entry{}, err
		}
	}

	e := Entry{
		ID:            uuid.NewString(),
		UserID:        userID,
		AmountCents:   signedCents,
		BalanceBefore: u.BalanceCents,
		BalanceAfter:  after,
		EntryType:     entryType,
		Reference:     reference,
		CreatedAt:     time.Now(),
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO ledger (id, user_id, amount_cents, balance_before, balance_after, entry_type, reference, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.UserID, e.AmountCents, e.BalanceBefore, e.BalanceAfter, e.EntryType, nullable(e.Reference), meta, e.CreatedAt,
	); err != nil {
		return Entry{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET balance_cents=$1 WHERE id=$2`, after, userID); err != nil {
		return Entry{}, err
	}

	return e, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
