package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tiempospro/tiempos-core/internal/draw-service/cache"
	"github.com/tiempospro/tiempos-core/internal/draw-service/dto"
	"github.com/tiempospro/tiempos-core/internal/draw-service/repo"
	"github.com/tiempospro/tiempos-core/internal/draw-service/settle"
	"github.com/tiempospro/tiempos-core/internal/draw-service/ws"
	"github.com/tiempospro/tiempos-core/internal/shared/domain"
	"github.com/tiempospro/tiempos-core/internal/shared/risk"
	"github.com/tiempospro/tiempos-core/pkg/contracts/events"
)

// ErrInvalidPhrase rechaza una acción destructiva sin la frase exacta
var ErrInvalidPhrase = errors.New("invalid confirmation phrase")

// Repo define las operaciones de sorteo/riesgo usadas por el handler HTTP
type Repo interface {
	Settle(ctx context.Context, params repo.SettleParams) (repo.SettleSummary, error)
	Results(ctx context.Context, date string) ([]repo.Result, error)
	UpdateLimit(ctx context.Context, slot, number string, maxAmountCents int64, actorID string) error
	Limits(ctx context.Context, slot string) ([]repo.Limit, error)
	Stats(ctx context.Context, slot string) ([]repo.NumberStat, error)
	Multipliers(ctx context.Context) (settle.Multipliers, error)
	SetMultiplier(ctx context.Context, key string, value int64, actorID string) error
	PurgeTerminalBets(ctx context.Context, retentionDays int, actorID string) (int64, error)
}

type Server struct {
	log           *zap.Logger
	repo          Repo
	cache         *cache.ExposureCache
	hub           *ws.Hub
	confirmPhrase string
	publ          interface {
		PublishDrawSettled(context.Context, events.DrawSettled) error
	}
}

func NewServer(log *zap.Logger, r Repo, c *cache.ExposureCache, hub *ws.Hub, confirmPhrase string, p interface {
	PublishDrawSettled(context.Context, events.DrawSettled) error
}) *Server {
	return &Server{log: log, repo: r, cache: c, hub: hub, confirmPhrase: confirmPhrase, publ: p}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/draws/settle", s.settleDraw)
	r.Get("/draws/results", s.getResults)
	r.Put("/limits", s.updateLimit)
	r.Get("/limits", s.getLimits)
	r.Get("/limits/stats", s.getStats)
	r.Get("/settings/multipliers", s.getMultipliers)
	r.Put("/settings/multipliers", s.updateMultiplier)
	r.Post("/admin/purge-bets", s.purgeBets)
	r.Get("/ws", s.hub.HandleWS)
	return r
}

// settleDraw publica el resultado y liquida todas las apuestas pendientes de
// la franja. Un sorteo ya cerrado responde 409 sin efecto alguno.
func (s *Server) settleDraw(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if !domain.ValidSlot(req.DrawSlot) || !domain.ValidNumber(req.WinningNumber) {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.IsReventado && !domain.ValidNumber(req.ReventadoNumber) {
		http.Error(w, "reventadoNumber required", http.StatusBadRequest)
		return
	}

	sum, err := s.repo.Settle(r.Context(), repo.SettleParams{
		DrawSlot:        req.DrawSlot,
		WinningNumber:   req.WinningNumber,
		IsReventado:     req.IsReventado,
		ReventadoNumber: req.ReventadoNumber,
		ActorID:         req.ActorID,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateSettlement) {
			http.Error(w, "draw already settled", http.StatusConflict)
			return
		}
		s.log.Error("settle failed", zap.String("slot", req.DrawSlot), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("draw settled",
		zap.String("slot", req.DrawSlot),
		zap.String("winningNumber", req.WinningNumber),
		zap.Int("processed", sum.ProcessedCount),
		zap.Int("winners", sum.Winners),
		zap.Int64("paidOutCents", sum.PaidOutCents),
	)

	// El evento dispara comisiones de vendedores y el broadcast en vivo;
	// la liquidación ya quedó firme en banco.
	if err := s.publ.PublishDrawSettled(r.Context(), events.DrawSettled{
		ResultID:        sum.ResultID,
		DrawDate:        sum.DrawDate,
		DrawSlot:        req.DrawSlot,
		WinningNumber:   req.WinningNumber,
		IsReventado:     req.IsReventado,
		ReventadoNumber: req.ReventadoNumber,
		ProcessedCount:  sum.ProcessedCount,
		Winners:         sum.Winners,
		PaidOutCents:    sum.PaidOutCents,
	}); err != nil {
		s.log.Warn("draw_settled publish failed", zap.String("resultId", sum.ResultID), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, dto.SettleResponse{
		ResultID:       sum.ResultID,
		DrawDate:       sum.DrawDate,
		DrawSlot:       req.DrawSlot,
		ProcessedCount: sum.ProcessedCount,
		Winners:        sum.Winners,
		PaidOutCents:   sum.PaidOutCents,
	})
}

func (s *Server) getResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.repo.Results(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.ResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, dto.ResultResponse{
			ID:              res.ID,
			DrawDate:        res.DrawDate,
			DrawSlot:        res.DrawSlot,
			WinningNumber:   res.WinningNumber,
			IsReventado:     res.IsReventado,
			ReventadoNumber: res.ReventadoNumber,
			Status:          res.Status,
			PublishedAt:     res.PublishedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateLimit(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	validNumber := req.Number == domain.NumberAll || domain.ValidNumber(req.Number)
	if !domain.ValidSlot(req.Draw) || !validNumber || req.MaxAmountCents < domain.LimitReset {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.UpdateLimit(r.Context(), req.Draw, req.Number, req.MaxAmountCents, req.ActorID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getLimits(w http.ResponseWriter, r *http.Request) {
	slot := r.URL.Query().Get("draw")
	if !domain.ValidSlot(slot) {
		http.Error(w, "draw required", http.StatusBadRequest)
		return
	}
	limits, err := s.repo.Limits(r.Context(), slot)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.LimitResponse, 0, len(limits))
	for _, l := range limits {
		out = append(out, dto.LimitResponse{Draw: l.DrawSlot, Number: l.Number, MaxAmountCents: l.MaxAmountCents, UpdatedAt: l.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// getStats sirve la exposición por número: primero el cache que mantiene el
// settlement-worker, con caída a Postgres cuando no hay nada cacheado.
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	slot := r.URL.Query().Get("draw")
	if !domain.ValidSlot(slot) {
		http.Error(w, "draw required", http.StatusBadRequest)
		return
	}

	if out, ok := s.statsFromCache(r.Context(), slot); ok {
		writeJSON(w, http.StatusOK, out)
		return
	}

	stats, err := s.repo.Stats(r.Context(), slot)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.NumberStatResponse, 0, len(stats))
	for _, st := range stats {
		out = append(out, dto.NumberStatResponse{
			Number:         st.Number,
			ExposureCents:  st.ExposureCents,
			LimitCents:     st.LimitCents,
			HeadroomCents:  st.HeadroomCents,
			PendingTickets: st.PendingTickets,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) statsFromCache(ctx context.Context, slot string) ([]dto.NumberStatResponse, bool) {
	cctx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()

	exposure, tickets, ok, err := s.cache.Get(cctx, domain.DrawDate(time.Now()), slot)
	if err != nil || !ok {
		return nil, false
	}

	limits, err := s.repo.Limits(ctx, slot)
	if err != nil {
		return nil, false
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

	out := make([]dto.NumberStatResponse, 0, len(exposure))
	for number, cents := range exposure {
		lim := risk.EffectiveLimit(overrides[number], global)
		headroom := domain.LimitUnlimited
		if lim != domain.LimitUnlimited {
			headroom = lim - cents
			if headroom < 0 {
				headroom = 0
			}
		}
		out = append(out, dto.NumberStatResponse{
			Number:         number,
			ExposureCents:  cents,
			LimitCents:     lim,
			HeadroomCents:  headroom,
			PendingTickets: int(tickets[number]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, true
}

func (s *Server) getMultipliers(w http.ResponseWriter, r *http.Request) {
	m, err := s.repo.Multipliers(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.MultipliersResponse{Standard: m.Standard, Reventados: m.Reventados})
}

func (s *Server) updateMultiplier(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateMultiplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := s.repo.SetMultiplier(r.Context(), req.Key, req.Value, req.ActorID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// purgeBets exige la frase exacta antes de ejecutar: la validación del
// cliente no cuenta, se reverifica siempre del lado servidor.
func (s *Server) purgeBets(w http.ResponseWriter, r *http.Request) {
	var req dto.PurgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.ConfirmationPhrase != s.confirmPhrase {
		s.log.Warn("purge rejected: bad confirmation phrase", zap.String("actorId", req.ActorID))
		http.Error(w, ErrInvalidPhrase.Error(), http.StatusForbidden)
		return
	}
	n, err := s.repo.PurgeTerminalBets(r.Context(), req.RetentionDays, req.ActorID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.PurgeResponse{Deleted: n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
