package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tiempospro/tiempos-core/internal/bet-service/dto"
	"github.com/tiempospro/tiempos-core/internal/bet-service/repo"
	"github.com/tiempospro/tiempos-core/internal/shared/domain"
	"github.com/tiempospro/tiempos-core/internal/shared/risk"
	"github.com/tiempospro/tiempos-core/pkg/contracts/events"
)

// el repositorio real satisface la interfaz del handler
var _ Repo = (*repo.Postgres)(nil)

type stubRepo struct {
	placeRes repo.PlaceResult
	placeErr error
	getRes   repo.Bet
	getErr   error
	listRes  []repo.Bet
}

func (s *stubRepo) Place(context.Context, repo.PlaceParams) (repo.PlaceResult, error) {
	return s.placeRes, s.placeErr
}
func (s *stubRepo) Get(context.Context, string) (repo.Bet, error)        { return s.getRes, s.getErr }
func (s *stubRepo) List(context.Context, repo.ListFilter) ([]repo.Bet, error) {
	return s.listRes, nil
}

type stubPublisher struct{}

func (stubPublisher) PublishBetAccepted(context.Context, events.BetAccepted) error { return nil }

func doPlace(t *testing.T, r Repo, body string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(zap.NewNop(), r, stubPublisher{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bets", strings.NewReader(body))
	srv.Router().ServeHTTP(rec, req)
	return rec
}

const validBody = `{"userId":"u1","draw":"NOCHE","number":"42","amount_cents":5000,"mode":"TIEMPOS"}`

func TestPlaceBetCreated(t *testing.T) {
	st := &stubRepo{placeRes: repo.PlaceResult{
		Bet: repo.Bet{
			ID: "b1", TicketCode: "TP-AAAA2222", UserID: "u1",
			DrawDate: "2025-03-10", DrawSlot: domain.SlotNoche, Number: "42",
			AmountCents: 5000, Mode: domain.ModeTiempos, Status: domain.BetPending,
			CreatedAt: time.Now(),
		},
		NewBalanceCents: 5000,
	}}

	rec := doPlace(t, st, validBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201", rec.Code)
	}
	var got dto.PlaceBetResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BetID != "b1" || got.TicketCode != "TP-AAAA2222" || got.NewBalanceCents != 5000 {
		t.Fatalf("response = %+v", got)
	}
}

func TestPlaceBetValidation(t *testing.T) {
	bad := []string{
		`{`,
		`{"userId":"","draw":"NOCHE","number":"42","amount_cents":100,"mode":"TIEMPOS"}`,
		`{"userId":"u1","draw":"MADRUGADA","number":"42","amount_cents":100,"mode":"TIEMPOS"}`,
		`{"userId":"u1","draw":"NOCHE","number":"4","amount_cents":100,"mode":"TIEMPOS"}`,
		`{"userId":"u1","draw":"NOCHE","number":"42","amount_cents":0,"mode":"TIEMPOS"}`,
		`{"userId":"u1","draw":"NOCHE","number":"42","amount_cents":100,"mode":"PARLAY"}`,
	}
	for _, body := range bad {
		if rec := doPlace(t, &stubRepo{}, body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status %d, want 400", body, rec.Code)
		}
	}
}

func TestPlaceBetErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{repo.ErrInsufficientFunds, http.StatusConflict},
		{repo.ErrDrawClosed, http.StatusConflict},
		{repo.ErrUserSuspended, http.StatusForbidden},
	}
	for _, c := range cases {
		rec := doPlace(t, &stubRepo{placeErr: c.err}, validBody)
		if rec.Code != c.code {
			t.Errorf("%v: status %d, want %d", c.err, rec.Code, c.code)
		}
	}
}

func TestPlaceBetLimitReachedPayload(t *testing.T) {
	st := &stubRepo{placeErr: &risk.LimitReachedError{
		DrawSlot: domain.SlotNoche, Number: "42",
		LimitCents: 10000, ExposureCents: 8000,
	}}

	rec := doPlace(t, st, validBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409", rec.Code)
	}
	var got dto.LimitReachedResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.HeadroomCents != 2000 || got.Number != "42" || got.Draw != domain.SlotNoche {
		t.Fatalf("response = %+v", got)
	}
}

func TestGetBetNotFound(t *testing.T) {
	srv := NewServer(zap.NewNop(), &stubRepo{getErr: repo.ErrNotFound}, stubPublisher{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/bets/nope", nil)
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}
