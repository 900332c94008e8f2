package repo

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/tiempospro/tiempos-core/internal/shared/domain"
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
	if _, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES
			('multiplier_standard', 90), ('multiplier_reventados', 200), ('commission_rate_bp', 1000)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`); err != nil {
		t.Fatalf("reset settings: %v", err)
	}
	return db
}

func newTestRepo(db *sql.DB) (*Postgres, string) {
	at := time.Date(2025, 3, 10, 20, 0, 0, 0, domain.Timezone())
	return &Postgres{db: db, now: func() time.Time { return at }}, domain.DrawDate(at)
}

func seedUser(t *testing.T, db *sql.DB, balanceCents int64) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO users (id, name, role, status, balance_cents) VALUES ($1,'Test','CLIENTE','ACTIVE',$2)`,
		id, balanceCents)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedPendingBet(t *testing.T, db *sql.DB, userID, drawDate, slot, number string, amountCents int64, mode string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO bets (id, ticket_code, user_id, draw_date, draw_slot, number, amount_cents, mode, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'PENDING')`,
		id, "TP-"+id[:8], userID, drawDate, slot, number, amountCents, mode)
	if err != nil {
		t.Fatalf("seed bet: %v", err)
	}
	return id
}

func getBalance(t *testing.T, db *sql.DB, userID string) int64 {
	t.Helper()
	var b int64
	if err := db.QueryRow(`SELECT balance_cents FROM users WHERE id=$1`, userID).Scan(&b); err != nil {
		t.Fatalf("get balance: %v", err)
	}
	return b
}

func betStatus(t *testing.T, db *sql.DB, betID string) (status string, prize int64) {
	t.Helper()
	if err := db.QueryRow(`SELECT status, prize_cents FROM bets WHERE id=$1`, betID).Scan(&status, &prize); err != nil {
		t.Fatalf("bet status: %v", err)
	}
	return status, prize
}

func TestSettlePaysWinnersAndMarksLosers(t *testing.T) {
	db := openTestDB(t)
	repo, drawDate := newTestRepo(db)
	ctx := context.Background()

	winner := seedUser(t, db, 5000) // ya debitado al apostar
	loser := seedUser(t, db, 0)
	winBet := seedPendingBet(t, db, winner, drawDate, "NOCHE", "42", 5000, "TIEMPOS")
	loseBet := seedPendingBet(t, db, loser, drawDate, "NOCHE", "13", 2000, "TIEMPOS")

	sum, err := repo.Settle(ctx, SettleParams{DrawSlot: "NOCHE", WinningNumber: "42", ActorID: winner})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if sum.ProcessedCount != 2 || sum.Winners != 1 || sum.PaidOutCents != 450000 {
		t.Fatalf("summary = %+v", sum)
	}

	if status, prize := betStatus(t, db, winBet); status != "WON" || prize != 450000 {
		t.Fatalf("winner bet: %s/%d", status, prize)
	}
	if status, _ := betStatus(t, db, loseBet); status != "LOST" {
		t.Fatalf("loser bet: %s", status)
	}

	// 5000 restantes + 5000×90 de premio
	if got := getBalance(t, db, winner); got != 455000 {
		t.Fatalf("winner balance %d, want 455000", got)
	}
	if got := getBalance(t, db, loser); got != 0 {
		t.Fatalf("loser balance %d, want 0", got)
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo, drawDate := newTestRepo(db)
	ctx := context.Background()

	winner := seedUser(t, db, 0)
	seedPendingBet(t, db, winner, drawDate, "TARDE", "07", 1000, "TIEMPOS")

	if _, err := repo.Settle(ctx, SettleParams{DrawSlot: "TARDE", WinningNumber: "07", ActorID: winner}); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	balance := getBalance(t, db, winner)

	_, err := repo.Settle(ctx, SettleParams{DrawSlot: "TARDE", WinningNumber: "07", ActorID: winner})
	if !errors.Is(err, ErrDuplicateSettlement) {
		t.Fatalf("expected ErrDuplicateSettlement, got %v", err)
	}
	if got := getBalance(t, db, winner); got != balance {
		t.Fatalf("double payout: %d != %d", got, balance)
	}
}

func TestSettleOverVerifyingRow(t *testing.T) {
	db := openTestDB(t)
	repo, drawDate := newTestRepo(db)
	ctx := context.Background()

	// el scheduler ya dejó la franja en VERIFYING
	if _, err := db.Exec(`
		INSERT INTO draw_results (id, draw_date, draw_slot, status)
		VALUES ($1,$2,'NOCHE','VERIFYING')`, uuid.NewString(), drawDate); err != nil {
		t.Fatalf("seed verifying: %v", err)
	}

	sum, err := repo.Settle(ctx, SettleParams{DrawSlot: "NOCHE", WinningNumber: "99"})
	if err != nil {
		t.Fatalf("settle over verifying: %v", err)
	}
	if sum.ResultID == "" {
		t.Fatal("missing result id")
	}

	results, err := repo.Results(ctx, drawDate)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 1 || results[0].Status != "CLOSED" || results[0].WinningNumber != "99" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSettleReventadosMultiplier(t *testing.T) {
	db := openTestDB(t)
	repo, drawDate := newTestRepo(db)
	ctx := context.Background()

	reventado := seedUser(t, db, 0)
	standard := seedUser(t, db, 0)
	seedPendingBet(t, db, reventado, drawDate, "MEDIODIA", "42", 1000, "REVENTADOS")
	seedPendingBet(t, db, standard, drawDate, "MEDIODIA", "42", 1000, "TIEMPOS")

	sum, err := repo.Settle(ctx, SettleParams{
		DrawSlot: "MEDIODIA", WinningNumber: "42",
		IsReventado: true, ReventadoNumber: "42",
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if sum.Winners != 2 || sum.PaidOutCents != 290000 {
		t.Fatalf("summary = %+v", sum)
	}

	// reventados cobra 200x, tiempos sigue en 90x aunque haya reventado
	if got := getBalance(t, db, reventado); got != 200000 {
		t.Fatalf("reventados balance %d, want 200000", got)
	}
	if got := getBalance(t, db, standard); got != 90000 {
		t.Fatalf("standard balance %d, want 90000", got)
	}
}

func TestSettleReventadosBetWithoutReventado(t *testing.T) {
	db := openTestDB(t)
	repo, drawDate := newTestRepo(db)
	ctx := context.Background()

	user := seedUser(t, db, 0)
	seedPendingBet(t, db, user, drawDate, "NOCHE", "42", 1000, "REVENTADOS")

	if _, err := repo.Settle(ctx, SettleParams{DrawSlot: "NOCHE", WinningNumber: "42"}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	// apostó reventados pero el sorteo no reventó: paga el estándar
	if got := getBalance(t, db, user); got != 90000 {
		t.Fatalf("balance %d, want 90000", got)
	}
}

func TestUpdateLimitSentinels(t *testing.T) {
	db := openTestDB(t)
	repo, _ := newTestRepo(db)
	ctx := context.Background()

	actor := seedUser(t, db, 0)

	if err := repo.UpdateLimit(ctx, "NOCHE", "42", 50000, actor); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	limits, err := repo.Limits(ctx, "NOCHE")
	if err != nil {
		t.Fatalf("limits: %v", err)
	}
	if len(limits) != 1 || limits[0].MaxAmountCents != 50000 {
		t.Fatalf("unexpected limits: %+v", limits)
	}

	// -2 elimina el override
	if err := repo.UpdateLimit(ctx, "NOCHE", "42", domain.LimitReset, actor); err != nil {
		t.Fatalf("reset limit: %v", err)
	}
	limits, err = repo.Limits(ctx, "NOCHE")
	if err != nil {
		t.Fatalf("limits: %v", err)
	}
	if len(limits) != 0 {
		t.Fatalf("override not removed: %+v", limits)
	}
}

func TestStatsMergesLimits(t *testing.T) {
	db := openTestDB(t)
	repo, drawDate := newTestRepo(db)
	ctx := context.Background()

	user := seedUser(t, db, 0)
	seedPendingBet(t, db, user, drawDate, "NOCHE", "42", 8000, "TIEMPOS")
	seedPendingBet(t, db, user, drawDate, "NOCHE", "42", 1000, "TIEMPOS")
	seedPendingBet(t, db, user, drawDate, "NOCHE", "13", 500, "TIEMPOS")

	actor := seedUser(t, db, 0)
	if err := repo.UpdateLimit(ctx, "NOCHE", "42", 10000, actor); err != nil {
		t.Fatalf("set limit: %v", err)
	}

	stats, err := repo.Stats(ctx, "NOCHE")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 numbers, got %d", len(stats))
	}
	byNumber := make(map[string]NumberStat)
	for _, s := range stats {
		byNumber[s.Number] = s
	}
	if s := byNumber["42"]; s.ExposureCents != 9000 || s.LimitCents != 10000 || s.HeadroomCents != 1000 || s.PendingTickets != 2 {
		t.Fatalf("stat 42 = %+v", s)
	}
	if s := byNumber["13"]; s.LimitCents != domain.LimitUnlimited || s.HeadroomCents != domain.LimitUnlimited {
		t.Fatalf("stat 13 = %+v", s)
	}
}

func TestSetMultiplierValidation(t *testing.T) {
	db := openTestDB(t)
	repo, _ := newTestRepo(db)
	ctx := context.Background()

	actor := seedUser(t, db, 0)

	if err := repo.SetMultiplier(ctx, "multiplier_standard", 85, actor); err != nil {
		t.Fatalf("set multiplier: %v", err)
	}
	m, err := repo.Multipliers(ctx)
	if err != nil {
		t.Fatalf("multipliers: %v", err)
	}
	if m.Standard != 85 || m.Reventados != 200 {
		t.Fatalf("multipliers = %+v", m)
	}

	if err := repo.SetMultiplier(ctx, "house_edge", 10, actor); err == nil {
		t.Fatal("unknown key accepted")
	}
	if err := repo.SetMultiplier(ctx, "multiplier_standard", 0, actor); err == nil {
		t.Fatal("non-positive multiplier accepted")
	}
}

func TestPurgeTerminalBetsKeepsPending(t *testing.T) {
	db := openTestDB(t)
	repo, drawDate := newTestRepo(db)
	ctx := context.Background()

	user := seedUser(t, db, 0)
	pending := seedPendingBet(t, db, user, drawDate, "NOCHE", "42", 1000, "TIEMPOS")
	old := seedPendingBet(t, db, user, drawDate, "NOCHE", "13", 1000, "TIEMPOS")
	if _, err := db.Exec(`UPDATE bets SET status='LOST', created_at=NOW()-INTERVAL '60 days' WHERE id=$1`, old); err != nil {
		t.Fatalf("age bet: %v", err)
	}

	n, err := repo.PurgeTerminalBets(ctx, 30, user)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
	if status, _ := betStatus(t, db, pending); status != "PENDING" {
		t.Fatalf("pending bet touched: %s", status)
	}
}
