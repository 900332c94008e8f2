package repo

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN is not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("db connection: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../../db/schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE audit_log, commission_payouts, ledger, bets, draw_results, risk_limits, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("reset db: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *sql.DB, role string, issuerID string) string {
	t.Helper()
	id := uuid.NewString()
	var issuer any
	if issuerID != "" {
		issuer = issuerID
	}
	_, err := db.Exec(`INSERT INTO users (id, name, role, issuer_id, status, balance_cents) VALUES ($1,'Test',$2,$3,'ACTIVE',0)`,
		id, role, issuer)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedSettledBet(t *testing.T, db *sql.DB, userID, status string, amountCents int64) {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO bets (id, ticket_code, user_id, draw_date, draw_slot, number, amount_cents, mode, status, settled_at)
		VALUES ($1,$2,$3,'2025-03-10','NOCHE','42',$4,'TIEMPOS',$5,NOW())`,
		id, "TP-"+id[:8], userID, amountCents, status)
	if err != nil {
		t.Fatalf("seed bet: %v", err)
	}
}

func seedResult(t *testing.T, db *sql.DB) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO draw_results (id, draw_date, draw_slot, winning_number, status)
		VALUES ($1,'2025-03-10','NOCHE','42','CLOSED')`, id)
	if err != nil {
		t.Fatalf("seed result: %v", err)
	}
	return id
}

func TestVendorTotals(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgres(db)
	ctx := context.Background()

	vendor := seedUser(t, db, "VENDEDOR", "")
	clientA := seedUser(t, db, "CLIENTE", vendor)
	clientB := seedUser(t, db, "CLIENTE", vendor)
	direct := seedUser(t, db, "CLIENTE", "") // sin vendedor, no genera comisión

	seedSettledBet(t, db, clientA, "WON", 5000)
	seedSettledBet(t, db, clientB, "LOST", 3000)
	seedSettledBet(t, db, direct, "LOST", 9000)

	totals, err := repo.VendorTotals(ctx, "2025-03-10", "NOCHE")
	if err != nil {
		t.Fatalf("vendor totals: %v", err)
	}
	if len(totals) != 1 || totals[vendor] != 8000 {
		t.Fatalf("totals = %v", totals)
	}
}

func TestPayCommissionIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgres(db)
	ctx := context.Background()

	vendor := seedUser(t, db, "VENDEDOR", "")
	resultID := seedResult(t, db)

	paid, err := repo.PayCommission(ctx, vendor, resultID, 800)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !paid {
		t.Fatal("first payout not applied")
	}

	// el reprocesamiento del mismo evento no paga de nuevo
	paid, err = repo.PayCommission(ctx, vendor, resultID, 800)
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if paid {
		t.Fatal("double commission payout")
	}

	var balance int64
	if err := db.QueryRow(`SELECT balance_cents FROM users WHERE id=$1`, vendor).Scan(&balance); err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 800 {
		t.Fatalf("vendor balance %d, want 800", balance)
	}
}

func TestPayCommissionZeroAmountNoop(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgres(db)

	vendor := seedUser(t, db, "VENDEDOR", "")
	resultID := seedResult(t, db)

	paid, err := repo.PayCommission(context.Background(), vendor, resultID, 0)
	if err != nil || paid {
		t.Fatalf("zero amount: paid=%v err=%v", paid, err)
	}
}
