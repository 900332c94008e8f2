package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tiempospro/tiempos-core/internal/bet-service/dto"
	"github.com/tiempospro/tiempos-core/internal/bet-service/repo"
	"github.com/tiempospro/tiempos-core/internal/shared/domain"
	"github.com/tiempospro/tiempos-core/internal/shared/ledger"
	"github.com/tiempospro/tiempos-core/internal/shared/risk"
	"github.com/tiempospro/tiempos-core/pkg/contracts/events"
)

// Repo define las operaciones de apuestas usadas por el handler HTTP
type Repo interface {
	Place(ctx context.Context, params repo.PlaceParams) (repo.PlaceResult, error)
	Get(ctx context.Context, betID string) (repo.Bet, error)
	List(ctx context.Context, f repo.ListFilter) ([]repo.Bet, error)
}

type Server struct {
	log  *zap.Logger
	repo Repo
	publ interface {
		PublishBetAccepted(context.Context, events.BetAccepted) error
	}
}

func NewServer(log *zap.Logger, r Repo, p interface {
	PublishBetAccepted(context.Context, events.BetAccepted) error
}) *Server {
	return &Server{log: log, repo: r, publ: p}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/bets", s.placeBet)
	r.Get("/bets", s.listBets)
	r.Get("/bets/{id}", s.getBet)
	return r
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 ||
		!domain.ValidSlot(req.Draw) || !domain.ValidNumber(req.Number) || !domain.ValidMode(req.Mode) {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	res, err := s.repo.Place(r.Context(), repo.PlaceParams{
		UserID:      req.UserID,
		DrawSlot:    req.Draw,
		Number:      req.Number,
		AmountCents: req.AmountCents,
		Mode:        req.Mode,
	})
	if err != nil {
		s.writePlaceError(w, req, err)
		return
	}

	// Publicación best effort: la apuesta ya está confirmada en banco;
	// el evento alimenta el cache de exposición y los paneles en vivo.
	if err := s.publ.PublishBetAccepted(r.Context(), events.BetAccepted{
		BetID:       res.Bet.ID,
		TicketCode:  res.Bet.TicketCode,
		UserID:      res.Bet.UserID,
		IssuerID:    res.IssuerID,
		DrawDate:    res.Bet.DrawDate,
		DrawSlot:    res.Bet.DrawSlot,
		Number:      res.Bet.Number,
		AmountCents: res.Bet.AmountCents,
		Mode:        res.Bet.Mode,
	}); err != nil {
		s.log.Warn("bet_accepted publish failed", zap.String("betId", res.Bet.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		BetID:           res.Bet.ID,
		TicketCode:      res.Bet.TicketCode,
		Status:          res.Bet.Status,
		NewBalanceCents: res.NewBalanceCents,
	})
}

// writePlaceError traduce el rechazo de colocación a HTTP. Los rechazos de
// validación son resultados esperados, no fallas: van con su código y detalle.
func (s *Server) writePlaceError(w http.ResponseWriter, req dto.PlaceBetRequest, err error) {
	var limErr *risk.LimitReachedError
	switch {
	case errors.As(err, &limErr):
		writeJSON(w, http.StatusConflict, dto.LimitReachedResponse{
			Error:         "limit reached",
			Number:        limErr.Number,
			Draw:          limErr.DrawSlot,
			LimitCents:    limErr.LimitCents,
			ExposureCents: limErr.ExposureCents,
			HeadroomCents: limErr.HeadroomCents(),
		})
	case errors.Is(err, repo.ErrInsufficientFunds):
		http.Error(w, "insufficient funds", http.StatusConflict)
	case errors.Is(err, repo.ErrUserSuspended):
		http.Error(w, "user is suspended", http.StatusForbidden)
	case errors.Is(err, repo.ErrDrawClosed):
		http.Error(w, "draw is closed for betting", http.StatusConflict)
	case errors.Is(err, ledger.ErrUserNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	default:
		s.log.Error("place bet failed", zap.String("userId", req.UserID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := s.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toBetResponse(b))
}

// listBets devuelve apuestas con filtros; issuerId acota el alcance a los
// clientes de un vendedor.
func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	bets, err := s.repo.List(r.Context(), repo.ListFilter{
		DrawDate: q.Get("date"),
		DrawSlot: q.Get("draw"),
		Status:   q.Get("status"),
		UserID:   q.Get("userId"),
		IssuerID: q.Get("issuerId"),
		Limit:    limit,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.BetResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, toBetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func toBetResponse(b repo.Bet) dto.BetResponse {
	return dto.BetResponse{
		BetID:       b.ID,
		TicketCode:  b.TicketCode,
		UserID:      b.UserID,
		DrawDate:    b.DrawDate,
		DrawSlot:    b.DrawSlot,
		Number:      b.Number,
		AmountCents: b.AmountCents,
		Mode:        b.Mode,
		Status:      b.Status,
		PrizeCents:  b.PrizeCents,
		CreatedAt:   b.CreatedAt,
		SettledAt:   b.SettledAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
