// Package httpapi exposes a Registry over plain JSON HTTP, following the
// teacher's apps/server/internal/auth/http.go conventions for request
// decoding and error responses.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"pokerserver/holdem"
	"pokerserver/room"
)

// Server wires a room.Registry onto an http.ServeMux.
type Server struct {
	registry *room.Registry
	logger   *log.Logger
}

func NewServer(registry *room.Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{registry: registry, logger: logger}
}

// RegisterRoutes attaches every route from the request surface to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /rooms", s.handleListRooms)
	mux.HandleFunc("POST /rooms", s.handleCreateRoom)
	mux.HandleFunc("POST /rooms/{id}/join", s.handleJoinRoom)
	mux.HandleFunc("POST /rooms/{id}/start", s.handleStartHand)
	mux.HandleFunc("POST /rooms/{id}/action", s.handleSubmitAction)
	mux.HandleFunc("GET /rooms/{id}", s.handleFetchState)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.ListRooms())
}

type createRoomRequest struct {
	HostName      string `json:"host_name"`
	TotalSeats    int    `json:"total_seats"`
	AIPlayers     int    `json:"ai_players"`
	StartingStack int64  `json:"starting_stack"`
	SmallBlind    int64  `json:"small_blind"`
	BigBlind      int64  `json:"big_blind"`
}

type createRoomResponse struct {
	RoomID       string `json:"room_id"`
	PlayerID     string `json:"player_id"`
	PlayerSecret string `json:"player_secret"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StartingStack == 0 {
		req.StartingStack = 2000
	}
	if req.SmallBlind == 0 {
		req.SmallBlind = 10
	}
	if req.BigBlind == 0 {
		req.BigBlind = 20
	}

	rm, host, err := s.registry.CreateRoom(req.HostName, req.TotalSeats, req.AIPlayers, req.StartingStack, req.SmallBlind, req.BigBlind)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createRoomResponse{
		RoomID:       rm.ID(),
		PlayerID:     host.ID,
		PlayerSecret: host.Secret,
	})
}

type joinRoomRequest struct {
	PlayerName string `json:"player_name"`
}

type joinRoomResponse struct {
	PlayerID     string `json:"player_id"`
	PlayerSecret string `json:"player_secret"`
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	seat, err := s.registry.JoinRoom(r.PathValue("id"), req.PlayerName)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinRoomResponse{PlayerID: seat.ID, PlayerSecret: seat.Secret})
}

type startHandRequest struct {
	PlayerID     string `json:"player_id"`
	PlayerSecret string `json:"player_secret"`
}

func (s *Server) handleStartHand(w http.ResponseWriter, r *http.Request) {
	var req startHandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := s.registry.StartHand(r.PathValue("id"), req.PlayerID, req.PlayerSecret)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type submitActionRequest struct {
	PlayerID     string `json:"player_id"`
	PlayerSecret string `json:"player_secret"`
	Action       string `json:"action"`
	Amount       int64  `json:"amount"`
}

func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	var req submitActionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, ok := holdem.ParseAction(req.Action)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}
	snap, err := s.registry.SubmitAction(r.PathValue("id"), req.PlayerID, req.PlayerSecret, action, req.Amount)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleFetchState(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	secret := r.URL.Query().Get("player_secret")
	snap, err := s.registry.FetchState(r.PathValue("id"), playerID, secret)
	if err != nil {
		writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// writeRoomError maps a room/holdem error to the status codes the request
// surface table specifies: 400 for rule violations and capacity, 403 for
// secret/host mismatch, 404 for unknown room/player, 503 for room limit.
func writeRoomError(w http.ResponseWriter, err error) {
	var invalidAction *room.InvalidActionError
	switch {
	case errors.As(err, &invalidAction):
		writeError(w, http.StatusBadRequest, invalidAction.Error())
	case errors.Is(err, room.ErrRoomLimit):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, room.ErrUnknownRoom), errors.Is(err, room.ErrUnknownPlayer):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, room.ErrNotHost), errors.Is(err, room.ErrSecretMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WithCORS wraps next with a permissive CORS policy, matching spec's
// explicit stance that CORS hardening is the deployment's concern, not
// this service's.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
