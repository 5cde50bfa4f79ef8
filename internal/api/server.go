package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fabrik/internal/config"
	"fabrik/internal/economy"
	"fabrik/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	eco     *economy.Service
	store   *economy.Store
	metrics *metrics.Collector
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, eco *economy.Service, store *economy.Store, collector *metrics.Collector) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		eco:     eco,
		store:   store,
		metrics: collector,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/accounts/{userID}", func(r chi.Router) {
			r.Post("/ensure", s.handleEnsure)
			r.Get("/", s.handleFetch)
			r.Delete("/", s.handleDelete)
			r.Post("/reset", s.handleReset)

			r.Post("/work", s.handleWork)
			r.Post("/daily", s.handleDaily)
			r.Post("/deposit", s.handleDeposit)
			r.Post("/withdraw", s.handleWithdraw)
			r.Post("/add-money", s.handleAddMoney)
			r.Post("/remove-money", s.handleRemoveMoney)

			r.Get("/fabric", s.handleFabric)
			r.Post("/fabric/collect", s.handleCollect)
			r.Post("/fabric/hire", s.handleHire)
			r.Post("/fabric/pay", s.handlePay)
			r.Post("/fabric/sell", s.handleSell)
			r.Post("/fabric/reset", s.handleFabricReset)

			r.Post("/store/buy", s.handleBuy)
		})

		r.Post("/transfers", s.handleTransfer)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/store/items", s.handleStoreItems)
	})
}

func scope(r *http.Request) (userID, guildID string) {
	return chi.URLParam(r, "userID"), strings.TrimSpace(r.URL.Query().Get("guild"))
}

// observe records metrics for one dispatched action.
func (s *Server) observe(action, outcome string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveAction(action, outcome, time.Since(started))
	}
}

func (s *Server) handleEnsure(w http.ResponseWriter, r *http.Request) {
	userID, guildID := scope(r)
	acc, err := s.eco.Ensure(r.Context(), userID, guildID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": acc, "action_id": actionID(r)})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	userID, guildID := scope(r)
	acc, err := s.eco.Fetch(r.Context(), userID, guildID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": acc})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, guildID := scope(r)
	acc, err := s.eco.Delete(r.Context(), userID, guildID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": acc, "action_id": actionID(r)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	userID, guildID := scope(r)
	acc, err := s.eco.ResetAccount(r.Context(), userID, guildID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": acc, "action_id": actionID(r)})
}

func (s *Server) handleWork(w http.ResponseWriter, r *http.Request) {
	s.handleGrant(w, r, "work", s.eco.Work)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	s.handleGrant(w, r, "daily", s.eco.Daily)
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request, name string,
	grant func(ctx context.Context, userID, guildID string) (*economy.GrantResult, error)) {
	started := time.Now()
	userID, guildID := scope(r)
	res, err := grant(r.Context(), userID, guildID)
	if err != nil {
		s.observe(name, "error", started)
		writeDomainError(w, err)
		return
	}
	outcome := "ok"
	if res.Err != "" {
		outcome = "denied"
	}
	s.observe(name, outcome, started)
	writeJSON(w, http.StatusOK, map[string]any{
		"err":       res.Err,
		"account":   res.Account,
		"amount":    res.Amount,
		"remaining": res.Remaining,
		"action_id": actionID(r),
	})
}

type amountBody struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, "deposit", s.eco.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, "withdraw", s.eco.Withdraw)
}

func (s *Server) handleAddMoney(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, "add_money", s.eco.AddMoney)
}

func (s *Server) handleRemoveMoney(w http.ResponseWriter, r *http.Request) {
	s.handleAmountOp(w, r, "remove_money", s.eco.RemoveMoney)
}

func (s *Server) handleAmountOp(w http.ResponseWriter, r *http.Request, name string,
	op func(ctx context.Context, amount int64, userID, guildID string) (*economy.Account, error)) {
	started := time.Now()
	userID, guildID := scope(r)
	var in amountBody
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := op(r.Context(), in.Amount, userID, guildID)
	if err != nil {
		s.observe(name, "error", started)
		writeDomainError(w, err)
		return
	}
	s.observe(name, "ok", started)
	writeJSON(w, http.StatusOK, map[string]any{"account": acc, "action_id": actionID(r)})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var in struct {
		Amount int64  `json:"amount"`
		From   string `json:"from"`
		To     string `json:"to"`
		Guild  string `json:"guild,omitempty"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := s.eco.Transfer(r.Context(), in.Amount, in.From, in.To, in.Guild)
	if err != nil {
		s.observe("transfer", "error", started)
		writeDomainError(w, err)
		return
	}
	s.observe("transfer", "ok", started)
	writeJSON(w, http.StatusOK, map[string]any{"account": acc, "action_id": actionID(r)})
}

func (s *Server) handleFabric(w http.ResponseWriter, r *http.Request) {
	userID, guildID := scope(r)
	if r.URL.Query().Get("cached") == "1" {
		if view, ok := s.eco.CachedFabric(userID, guildID); ok {
			writeJSON(w, http.StatusOK, map[string]any{"fabric": view, "cached": true})
			return
		}
		// Not in the last snapshot; fall through to the live derivation.
	}
	view, err := s.eco.Fabric(r.Context(), userID, guildID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fabric": view})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	s.handleFabricOp(w, r, "collect", s.eco.Collect)
}

func (s *Server) handleHire(w http.ResponseWriter, r *http.Request) {
	s.handleFabricOp(w, r, "hire", s.eco.Hire)
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	s.handleFabricOp(w, r, "pay", s.eco.Pay)
}

func (s *Server) handleFabricReset(w http.ResponseWriter, r *http.Request) {
	s.handleFabricOp(w, r, "fabric_reset", s.eco.ResetFabric)
}

func (s *Server) handleFabricOp(w http.ResponseWriter, r *http.Request, name string,
	op func(ctx context.Context, userID, guildID string) (*economy.FabricView, error)) {
	started := time.Now()
	userID, guildID := scope(r)
	view, err := op(r.Context(), userID, guildID)
	if err != nil {
		s.observe(name, "error", started)
		writeDomainError(w, err)
		return
	}
	s.observe(name, "ok", started)
	writeJSON(w, http.StatusOK, map[string]any{"fabric": view, "action_id": actionID(r)})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	userID, guildID := scope(r)
	var in struct {
		Percentage int64 `json:"percentage"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.eco.Sell(r.Context(), in.Percentage, userID, guildID)
	if err != nil {
		s.observe("sell", "error", started)
		writeDomainError(w, err)
		return
	}
	s.observe("sell", "ok", started)
	writeJSON(w, http.StatusOK, map[string]any{"fabric": view, "action_id": actionID(r)})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	var guildID *string
	if g := strings.TrimSpace(r.URL.Query().Get("guild")); g != "" {
		guildID = &g
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	if r.URL.Query().Get("cached") == "1" {
		rows, refreshedAt, ok := s.eco.CachedLeaderboard(guildID, limit)
		if ok {
			writeJSON(w, http.StatusOK, map[string]any{
				"leaderboard":  rows,
				"refreshed_at": refreshedAt,
				"cached":       true,
			})
			return
		}
		// Cache never filled yet; fall through to the live ranking.
	}

	rows, err := s.eco.Leaderboard(r.Context(), guildID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

func (s *Server) handleStoreItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.store.Items()})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	userID, guildID := scope(r)
	var in struct {
		ItemID string `json:"item_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rcpt, err := s.store.Buy(r.Context(), userID, guildID, in.ItemID)
	if err != nil {
		s.observe("buy", "error", started)
		writeDomainError(w, err)
		return
	}
	outcome := "ok"
	if rcpt.Err != "" {
		outcome = "denied"
	}
	s.observe("buy", outcome, started)
	writeJSON(w, http.StatusOK, map[string]any{"receipt": rcpt, "action_id": actionID(r)})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, economy.ErrInvalidAmount),
		errors.Is(err, economy.ErrInvalidPercentage),
		errors.Is(err, economy.ErrInvalidUserID),
		errors.Is(err, economy.ErrItemNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, economy.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, economy.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, economy.ErrFabricSold):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

// actionID tags every mutating call for log correlation; callers may pin
// their own via the Action-Id header.
func actionID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get("Action-Id"))
	if id != "" {
		return id
	}
	return uuid.NewString()
}
