// Package api serves the hotel over HTTP.
// GET endpoints are public (read-only observation).
// Lifecycle POST endpoints require a bearer token; guest endpoints are
// rate limited per IP instead.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"

	"github.com/belindacoding/liminal-hotel/internal/engine"
	"github.com/belindacoding/liminal-hotel/internal/rules"
	"github.com/belindacoding/liminal-hotel/internal/world"
)

const (
	maxStreamConns = 16
	maxBodyBytes   = 64 << 10
)

// Server serves the hotel state over HTTP.
type Server struct {
	Hotel       *engine.Hotel
	Port        int
	AdminKey    string   // Bearer token for lifecycle endpoints. Empty = disabled.
	Wallet      string   // Address entry payments go to.
	EntryFee    *big.Int // Minimum entry payment in wei.
	DevMode     bool
	CORSOrigins []string

	streamConns atomic.Int32
	upgrader    websocket.Upgrader
}

// Handler builds the routed, compressed handler.
func (s *Server) Handler() http.Handler {
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     s.allowedOrigin,
	}
	enterLimiter := NewRateLimiter(5, time.Minute)
	actionLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	// Public observation.
	mux.HandleFunc("GET /world/state", s.handleState)
	mux.HandleFunc("GET /world/hotel/info", s.handleInfo)
	mux.HandleFunc("GET /world/results", s.handleResults)
	mux.HandleFunc("GET /world/agent/{id}", s.handleGuest)
	mux.HandleFunc("GET /world/agent/{id}/memories", s.handleGuestMemories)
	mux.HandleFunc("GET /world/agent/{id}/original-memories", s.handleOriginalMemories)
	mux.HandleFunc("GET /world/agent/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /world/conversations", s.handleConversations)
	mux.HandleFunc("GET /world/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /world/events", s.handleEvents)

	// Guests.
	mux.HandleFunc("POST /world/enter", RateLimitMiddleware(enterLimiter, s.handleEnter))
	mux.HandleFunc("POST /world/action", RateLimitMiddleware(actionLimiter, s.handleAction))
	mux.HandleFunc("POST /world/checkout", RateLimitMiddleware(actionLimiter, s.handleCheckout))

	// Admin.
	mux.HandleFunc("POST /world/hotel/open", s.adminOnly(s.handleOpen))
	mux.HandleFunc("POST /world/hotel/close", s.adminOnly(s.handleClose))

	// The stream hijacks the connection, so it stays outside the gzip wrapper.
	root := http.NewServeMux()
	root.HandleFunc("GET /world/stream", s.handleStream)
	root.Handle("/", gzhttp.GzipHandler(mux))

	return s.corsMiddleware(root)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "", "dev_mode", s.DevMode)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
		return true
	}
	for _, o := range s.CORSOrigins {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}

// corsMiddleware adds CORS headers for allowed dashboard origins.
// Localhost dev servers are always allowed.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Origin") != "" && s.allowedOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no HOTEL_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- Observation ---

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Hotel.Snapshot(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := s.Hotel.State(ctx)
	if err != nil {
		s.fail(w, err)
		return
	}
	snap, err := s.Hotel.Snapshot(ctx)
	if err != nil {
		s.fail(w, err)
		return
	}
	fee := "0"
	if s.EntryFee != nil {
		fee = s.EntryFee.String()
	}
	cfg := s.Hotel.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":                "The Liminal Hotel",
		"status":              state.Status,
		"tick":                state.Tick,
		"mood":                state.Mood,
		"active_guests":       snap.Hotel.ActiveGuests,
		"max_guests":          cfg.MaxGuests,
		"max_external_guests": cfg.MaxExternalGuests,
		"total_guests":        state.TotalGuests,
		"total_trades":        state.TotalTrades,
		"entry_fee_wei":       fee,
		"hotel_wallet":        s.Wallet,
		"dev_mode":            s.DevMode,
		"tick_interval_sec":   cfg.TickInterval.Seconds(),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	results, err := s.Hotel.Results(ctx)
	if err != nil {
		s.fail(w, err)
		return
	}
	board, err := s.Hotel.Leaderboard(ctx)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leaderboard": board,
		"guests":      results,
	})
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	g, err := s.Hotel.Guest(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	room, _ := world.Lookup(g.Room)
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":             g,
		"room":              room,
		"available_actions": rules.AvailableActions(g),
	})
}

func (s *Server) handleGuestMemories(w http.ResponseWriter, r *http.Request) {
	mems, err := s.Hotel.GuestMemories(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": mems})
}

func (s *Server) handleOriginalMemories(w http.ResponseWriter, r *http.Request) {
	mems, err := s.Hotel.OriginalMemories(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": mems})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := s.Hotel.History(r.Context(), r.PathValue("id"), queryLimit(r, 50, 500))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": logs})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.Hotel.Conversations(r.Context(), queryLimit(r, 20, 200))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.Hotel.Leaderboard(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": board})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.Hotel.Events(r.Context(), queryLimit(r, 50, 500))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// --- Guests ---

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	var req engine.EnterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.Hotel.Enter(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body too large")
		return
	}
	req, err := rules.DecodeRequest(body)
	if err != nil {
		code, reason := engine.Classify(err)
		writeJSON(w, http.StatusBadRequest, engine.Response{
			Error:            reason,
			Code:             code,
			AvailableActions: []rules.ActionType{},
			Timestamp:        time.Now().Unix(),
		})
		return
	}
	resp, err := s.Hotel.Process(r.Context(), req)
	if err != nil {
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type checkoutRequest struct {
	AgentID string `json:"agent_id"`
	GuestID string `json:"guest_id"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := req.AgentID
	if id == "" {
		id = req.GuestID
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}
	res, err := s.Hotel.Checkout(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Admin ---

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	cast, err := s.Hotel.Open(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": engine.StatusOpen,
		"guests": cast,
	})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.Hotel.Close(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": engine.StatusFinished})
}

// --- helpers ---

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var verr *rules.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, engine.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrGuestNotFound), errors.Is(err, engine.ErrMemoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrPaymentRejected):
		return http.StatusPaymentRequired
	case errors.Is(err, engine.ErrHotelClosed):
		return http.StatusForbidden
	case engine.IsClientError(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error body. Server faults are logged and hidden.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func queryLimit(r *http.Request, def, ceiling int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= ceiling {
			return n
		}
	}
	return def
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
