package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/tiempospro/tiempos-core/internal/shared/ledger"
	"github.com/tiempospro/tiempos-core/internal/wallet-service/dto"
	"github.com/tiempospro/tiempos-core/internal/wallet-service/repo"
)

// Repo define la interfaz de operaciones de billetera usada por el handler HTTP
type Repo interface {
	GetWallet(ctx context.Context, userID string) (ledger.User, error)
	Recharge(ctx context.Context, targetID string, amountCents int64, actorID, reference string, force bool) (txID string, newBalance int64, err error)
	Withdraw(ctx context.Context, targetID string, amountCents int64, actorID, reference string) (txID string, newBalance int64, err error)
	Statement(ctx context.Context, userID string, limit int) ([]ledger.Entry, error)
}

// Server expone los endpoints HTTP de billetera
type Server struct {
	log  *zap.Logger
	repo Repo
}

// NewServer instancia el servidor HTTP de wallet
func NewServer(log *zap.Logger, repo Repo) *Server { return &Server{log: log, repo: repo} }

// Router devuelve el mux HTTP con las rutas de la API de wallet
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/wallet", s.getWallet)           // GET ?userId=...
	mux.HandleFunc("/wallet/ledger", s.getStatement) // GET ?userId=...&limit=...
	mux.HandleFunc("/wallet/recharge", s.recharge)   // POST
	mux.HandleFunc("/wallet/withdraw", s.withdraw)   // POST
	return mux
}

// getWallet devuelve el saldo y estado del usuario
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	u, err := s.repo.GetWallet(r.Context(), userID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, dto.WalletResponse{UserID: u.ID, Role: u.Role, Status: u.Status, BalanceCents: u.BalanceCents})
}

// getStatement devuelve los últimos asientos del ledger del usuario
func (s *Server) getStatement(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.repo.Statement(r.Context(), userID, limit)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LedgerEntryResponse{
			ID:            e.ID,
			AmountCents:   e.AmountCents,
			BalanceBefore: e.BalanceBefore,
			BalanceAfter:  e.BalanceAfter,
			EntryType:     e.EntryType,
			Reference:     e.Reference,
			CreatedAt:     e.CreatedAt,
		})
	}
	writeJSON(w, out)
}

// recharge acredita saldo al usuario destino
func (s *Server) recharge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ActorID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	txID, bal, err := s.repo.Recharge(r.Context(), req.UserID, req.AmountCents, req.ActorID, req.Reference, req.Force)
	if err != nil {
		s.log.Warn("recharge rejected", zap.String("userId", req.UserID), zap.Error(err))
		writeRepoError(w, err)
		return
	}
	writeJSON(w, dto.MutationResponse{UserID: req.UserID, TxID: txID, NewBalanceCents: bal})
}

// withdraw retira saldo del usuario destino
func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ActorID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	txID, bal, err := s.repo.Withdraw(r.Context(), req.UserID, req.AmountCents, req.ActorID, req.Reference)
	if err != nil {
		s.log.Warn("withdraw rejected", zap.String("userId", req.UserID), zap.Error(err))
		writeRepoError(w, err)
		return
	}
	writeJSON(w, dto.MutationResponse{UserID: req.UserID, TxID: txID, NewBalanceCents: bal})
}

// writeRepoError traduce errores de dominio a códigos HTTP
func writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrInsufficientFunds):
		http.Error(w, "insufficient funds", http.StatusConflict)
	case errors.Is(err, repo.ErrUserNotActive):
		http.Error(w, "user is not active", http.StatusForbidden)
	case errors.Is(err, repo.ErrInvalidAmount):
		http.Error(w, "invalid amount", http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON serializa y envía la respuesta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
