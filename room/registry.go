package room

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"pokerserver/aiadapter"
	"pokerserver/holdem"
)

// Registry owns every live room, keyed by its 6-character code. Cross-room
// operations (creation, listing, lookup) are guarded by the registry's own
// mutex, which is never held across a room-level call that might block.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*Room
	maxRooms int
	aiClient *aiadapter.Client
	logger   *log.Logger
}

func NewRegistry(maxRooms int, aiClient *aiadapter.Client, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		maxRooms: maxRooms,
		aiClient: aiClient,
		logger:   logger,
	}
}

func newRoomCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:6])
}

// CreateRoom validates the requested table shape, allocates a room code,
// and seats the host as the room's first player.
func (reg *Registry) CreateRoom(hostName string, totalSeats, aiPlayers int, startingStack, smallBlind, bigBlind int64) (*Room, *holdem.Seat, error) {
	if totalSeats < 2 || totalSeats > 9 {
		return nil, nil, fmt.Errorf("total_seats must be between 2 and 9")
	}
	if aiPlayers < 0 || aiPlayers >= totalSeats {
		return nil, nil, fmt.Errorf("ai_players must be fewer than total_seats")
	}
	if startingStack < 100 {
		return nil, nil, fmt.Errorf("starting_stack must be at least 100")
	}
	if smallBlind < 1 {
		return nil, nil, fmt.Errorf("small_blind must be at least 1")
	}
	if bigBlind < 2 || bigBlind < smallBlind {
		return nil, nil, fmt.Errorf("big_blind must be at least 2 and at least small_blind")
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if len(reg.rooms) >= reg.maxRooms {
		return nil, nil, ErrRoomLimit
	}
	code := newRoomCode()
	for _, exists := reg.rooms[code]; exists; _, exists = reg.rooms[code] {
		code = newRoomCode()
	}
	r := newRoom(code, hostName, totalSeats, aiPlayers, startingStack, smallBlind, bigBlind, reg.aiClient, reg.logger)
	reg.rooms[code] = r
	reg.logger.Info("room created", "room_id", code, "total_seats", totalSeats, "ai_players", aiPlayers)

	host, _, _ := r.seatByID(r.hostPlayerID)
	return r, host, nil
}

// GetRoom looks a room up by its code.
func (reg *Registry) GetRoom(roomID string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[roomID]
	if !ok {
		return nil, ErrUnknownRoom
	}
	return r, nil
}

// JoinRoom seats a new human player in an existing room.
func (reg *Registry) JoinRoom(roomID, name string) (*holdem.Seat, error) {
	r, err := reg.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	return r.AddPlayer(name)
}

// StartHand begins the next hand, then drives any automated first-to-act
// seat to completion before returning the resulting snapshot.
func (reg *Registry) StartHand(roomID, playerID, secret string) (Snapshot, error) {
	r, err := reg.GetRoom(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := r.StartHand(playerID, secret); err != nil {
		return Snapshot{}, err
	}
	r.AutoPlay()
	return r.StateFor(playerID, secret)
}

// SubmitAction applies a human action, then drives auto-play to completion
// before returning the resulting snapshot.
func (reg *Registry) SubmitAction(roomID, playerID, secret string, action holdem.ActionType, amount int64) (Snapshot, error) {
	r, err := reg.GetRoom(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := r.HandleAction(playerID, secret, action, amount); err != nil {
		return Snapshot{}, err
	}
	r.AutoPlay()
	return r.StateFor(playerID, secret)
}

// FetchState returns a snapshot of the room, optionally as a specific
// viewer when playerID/secret are both supplied.
func (reg *Registry) FetchState(roomID, playerID, secret string) (Snapshot, error) {
	r, err := reg.GetRoom(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	return r.StateFor(playerID, secret)
}

// ListRooms returns a summary of every live room.
func (reg *Registry) ListRooms() []Summary {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	return out
}
