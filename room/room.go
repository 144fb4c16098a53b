// Package room coordinates a single poker table: seating, hand lifecycle,
// and driving automated seats through the AI adapter between human turns.
package room

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"pokerserver/aiadapter"
	"pokerserver/card"
	"pokerserver/holdem"
)

const secretBytes = 32

// Room is a single table: its seat list, host, current Hand, and the
// mutex guarding all of it. A Room never holds another Room's mutex, and
// never holds its own mutex across the AI adapter's network call — see
// AutoPlay.
type Room struct {
	mu sync.Mutex

	id            string
	hostPlayerID  string
	totalSeats    int
	aiPlayers     int
	startingStack int64
	smallBlind    int64
	bigBlind      int64
	createdAt     time.Time

	seats       []*holdem.Seat
	dealerIndex int
	hasDealt    bool
	hand        *holdem.Hand

	// forcedDealer/forcedDeck pin the next StartHand's dealer seat and card
	// order; both are cleared after one use. Exercised only by this
	// package's own tests to reconstruct spec.md's literal scenarios.
	forcedDealer *int
	forcedDeck   []card.Card

	stateVersion uint64

	rng      *mrand.Rand
	aiClient *aiadapter.Client
	logger   *log.Logger
}

func newRoom(id, hostName string, totalSeats, aiPlayers int, startingStack, smallBlind, bigBlind int64, aiClient *aiadapter.Client, logger *log.Logger) *Room {
	r := &Room{
		id:            id,
		totalSeats:    totalSeats,
		aiPlayers:     aiPlayers,
		startingStack: startingStack,
		smallBlind:    smallBlind,
		bigBlind:      bigBlind,
		createdAt:     time.Now().UTC(),
		stateVersion:  1,
		rng:           mrand.New(mrand.NewSource(time.Now().UnixNano())),
		aiClient:      aiClient,
		logger:        logger.With("room_id", id),
	}
	host := r.addSeatLocked(hostName, false, true)
	r.hostPlayerID = host.ID
	return r
}

func mustSecret() string {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// secretsEqual compares two opaque player secrets in constant time, per
// spec's requirement that secret comparison not leak timing information.
func secretsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (r *Room) humanSlots() int {
	return r.totalSeats - r.aiPlayers
}

func (r *Room) humanCount() int {
	n := 0
	for _, s := range r.seats {
		if !s.IsAutomated {
			n++
		}
	}
	return n
}

func (r *Room) automatedCount() int {
	n := 0
	for _, s := range r.seats {
		if s.IsAutomated {
			n++
		}
	}
	return n
}

func (r *Room) addSeatLocked(name string, isAutomated, isHost bool) *holdem.Seat {
	seat := &holdem.Seat{
		ID:          uuid.NewString(),
		Name:        name,
		Chair:       len(r.seats),
		IsAutomated: isAutomated,
		IsHost:      isHost,
		Stack:       r.startingStack,
	}
	if !isAutomated {
		seat.Secret = mustSecret()
	}
	r.seats = append(r.seats, seat)
	r.stateVersion++
	return seat
}

// AddPlayer seats a new human player. It fails with ErrRoomFull once the
// configured human slot budget, or the room's total seat count, is
// exhausted.
func (r *Room) AddPlayer(name string) (*holdem.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.humanCount() >= r.humanSlots() {
		return nil, ErrRoomFull
	}
	if len(r.seats) >= r.totalSeats {
		return nil, ErrRoomFull
	}
	seat := r.addSeatLocked(name, false, false)
	r.logger.Info("player joined", "player_id", seat.ID, "name", name, "seat", seat.Chair)
	return seat, nil
}

func (r *Room) spawnAutomatedSeatsLocked() {
	needed := r.aiPlayers - r.automatedCount()
	for i := 0; i < needed; i++ {
		bot := r.addSeatLocked(fmt.Sprintf("Bot %d", r.automatedCount()+1), true, false)
		r.logger.Info("spawned automated seat", "player_id", bot.ID, "seat", bot.Chair)
	}
}

func (r *Room) aliveSeatIndices() []int {
	var alive []int
	for i, s := range r.seats {
		if s.Stack > 0 && !s.Busted {
			alive = append(alive, i)
		}
	}
	return alive
}

func (r *Room) nextDealerPosition() (int, error) {
	alive := r.aliveSeatIndices()
	if len(alive) == 0 {
		return 0, ErrTooFewChipped
	}
	if !r.hasDealt {
		return alive[r.rng.Intn(len(alive))], nil
	}
	n := len(r.seats)
	for offset := 1; offset <= n; offset++ {
		idx := (r.dealerIndex + offset) % n
		for _, a := range alive {
			if a == idx {
				return idx, nil
			}
		}
	}
	return alive[0], nil
}

func (r *Room) seatByID(playerID string) (*holdem.Seat, int, bool) {
	for i, s := range r.seats {
		if s.ID == playerID {
			return s, i, true
		}
	}
	return nil, -1, false
}

func (r *Room) verifySecretLocked(playerID, secret string) (*holdem.Seat, error) {
	seat, _, ok := r.seatByID(playerID)
	if !ok {
		return nil, ErrUnknownPlayer
	}
	if !secretsEqual(seat.Secret, secret) {
		return nil, ErrSecretMismatch
	}
	return seat, nil
}

// StartHand begins the next hand. requesterID/secret must identify the
// host. The caller is responsible for calling AutoPlay afterwards to drive
// any automated first-to-act seat.
func (r *Room) StartHand(requesterID, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	requester, err := r.verifySecretLocked(requesterID, secret)
	if err != nil {
		return err
	}
	if requester.ID != r.hostPlayerID {
		return ErrNotHost
	}
	if r.hand != nil && !r.hand.HandOver {
		return ErrHandInProgress
	}

	r.spawnAutomatedSeatsLocked()

	chipped := 0
	for _, s := range r.seats {
		if s.Stack > 0 {
			chipped++
		}
	}
	if chipped < 2 {
		return ErrTooFewChipped
	}

	dealer, err := r.nextDealerPosition()
	if err != nil {
		return err
	}
	cfg := holdem.Config{SmallBlind: r.smallBlind, BigBlind: r.bigBlind}
	if r.forcedDealer != nil {
		cfg.ForcedDealerChair = r.forcedDealer
		dealer = *r.forcedDealer
	}
	if r.forcedDeck != nil {
		cfg.DeckOverride = r.forcedDeck
	}
	r.forcedDealer = nil
	r.forcedDeck = nil
	h, err := holdem.Start(r.seats, dealer, cfg, r.rng)
	if err != nil {
		return err
	}
	r.dealerIndex = dealer
	r.hasDealt = true
	r.hand = h
	r.stateVersion++
	r.logger.Info("hand started", "dealer_seat", dealer, "small_blind", r.smallBlind, "big_blind", r.bigBlind)
	return nil
}

// HandleAction applies a human seat's action. Rule violations come back
// wrapped in InvalidActionError.
func (r *Room) HandleAction(playerID, secret string, action holdem.ActionType, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat, err := r.verifySecretLocked(playerID, secret)
	if err != nil {
		return err
	}
	_, idx, _ := r.seatByID(playerID)
	if r.hand == nil {
		return ErrNoActiveHand
	}
	if err := r.hand.ApplyAction(idx, action, amount); err != nil {
		return &InvalidActionError{Err: err}
	}
	r.stateVersion++
	r.logger.Info("action applied", "player_id", seat.ID, "action", action.String(), "amount", amount)
	return nil
}

// AutoPlay drives automated seats to act until the seat-to-act is human,
// the hand ends, or the Hand is replaced. It is the one method that
// releases r.mu across a call that may block for a non-trivial duration:
// the AI adapter's network round trip. Deliberately uses a background
// context rather than a caller's request context, because an abandoned
// HTTP request must not cancel an in-flight auto-play iteration — state
// progression is driven to a stable point regardless.
func (r *Room) AutoPlay() {
	for {
		h, idx, seatID := func() (*holdem.Hand, int, string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.hand == nil || r.hand.HandOver {
				return nil, -1, ""
			}
			idx := r.hand.CurrentPlayerIndex
			if idx == holdem.InvalidSeat || !r.seats[idx].IsAutomated {
				return nil, -1, ""
			}
			return r.hand, idx, r.seats[idx].ID
		}()
		if h == nil {
			return
		}

		actx := func() holdem.AIContext {
			r.mu.Lock()
			defer r.mu.Unlock()
			return r.hand.BuildAIContext(idx)
		}()

		decision := r.aiClient.ChooseAction(context.Background(), actx)

		r.mu.Lock()
		if r.hand == nil || r.hand.HandOver || r.hand != h {
			r.mu.Unlock()
			return
		}
		if r.hand.CurrentPlayerIndex != idx || r.seats[idx].ID != seatID {
			// Turn moved on for reasons unrelated to this decision (should
			// not happen under the single-room-mutex discipline, but stay
			// safe rather than apply a stale decision to the wrong seat).
			r.mu.Unlock()
			continue
		}
		if err := r.hand.ApplyAction(idx, decision.Action, decision.Amount); err != nil {
			fallbackAction, fallbackAmount := r.hand.FallbackAction(idx)
			_ = r.hand.ApplyAction(idx, fallbackAction, fallbackAmount)
			r.logger.Warn("automated decision rejected, applied fallback", "player_id", seatID, "reason", err)
		}
		r.stateVersion++
		r.mu.Unlock()
	}
}

// StateFor builds a snapshot for the given viewer. Pass an empty playerID
// to fetch a spectator-less public view. secret is verified only when
// playerID is non-empty.
func (r *Room) StateFor(playerID, secret string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var viewer *holdem.Seat
	if playerID != "" {
		v, err := r.verifySecretLocked(playerID, secret)
		if err != nil {
			return Snapshot{}, err
		}
		viewer = v
	}
	return r.buildSnapshotLocked(viewer), nil
}

func (r *Room) buildSnapshotLocked(viewer *holdem.Seat) Snapshot {
	snap := Snapshot{
		RoomID:       r.id,
		TotalSeats:   r.totalSeats,
		AIPlayers:    r.aiPlayers,
		SmallBlind:   r.smallBlind,
		BigBlind:     r.bigBlind,
		StateVersion: r.stateVersion,
		CreatedAt:    r.createdAt.Format("2006-01-02T15:04:05.000Z"),
		HostPlayerID: r.hostPlayerID,
		Phase:        holdem.PhaseWaiting.String(),
	}

	h := r.hand
	revealAll := h != nil && h.HandOver

	for _, s := range r.seats {
		reveal := revealAll || (viewer != nil && viewer.ID == s.ID)
		var cards any = len(s.HoleCards)
		if reveal {
			cards = card.Labels(s.HoleCards)
		}
		entry := SeatView{
			ID:     s.ID,
			Name:   s.Name,
			Stack:  s.Stack,
			Bet:    s.Bet,
			Seat:   s.Chair,
			IsAI:   s.IsAutomated,
			IsHost: s.IsHost,
			Folded: s.Folded,
			AllIn:  s.AllIn,
			Busted: s.Busted,
			Cards:  cards,
		}
		if viewer != nil && viewer.ID == s.ID {
			entry.Secret = s.Secret
		}
		snap.Players = append(snap.Players, entry)
	}

	if h != nil {
		snap.Phase = h.Phase.String()
		snap.Pot = h.Pot
		snap.CurrentBet = h.CurrentBet
		snap.CommunityCards = card.Labels(h.CommunityCards)
		snap.Actions = h.Actions
		snap.Winners = h.Winners
		snap.LastEvent = h.LastEvent
		if h.CurrentPlayerIndex != holdem.InvalidSeat {
			snap.CurrentPlayerID = r.seats[h.CurrentPlayerIndex].ID
		}
		if h.DealerIndex >= 0 && h.DealerIndex < len(r.seats) {
			snap.DealerPlayerID = r.seats[h.DealerIndex].ID
		}
		if h.SmallBlindIndex != holdem.InvalidSeat {
			snap.SmallBlindPlayerID = r.seats[h.SmallBlindIndex].ID
		}
		if h.BigBlindIndex != holdem.InvalidSeat {
			snap.BigBlindPlayerID = r.seats[h.BigBlindIndex].ID
		}
	}

	if viewer != nil && h != nil {
		_, idx, _ := r.seatByID(viewer.ID)
		toCall := h.CurrentBet - viewer.Bet
		if toCall < 0 {
			toCall = 0
		}
		legal := h.LegalActions(idx)
		legalNames := make([]string, len(legal))
		for i, a := range legal {
			legalNames[i] = a.String()
		}
		snap.Self = &SelfView{
			PlayerID:     viewer.ID,
			LegalActions: legalNames,
			ToCall:       toCall,
			Stack:        viewer.Stack,
		}
	}

	return snap
}

// Summary returns this room's list_rooms entry.
func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	phase := holdem.PhaseWaiting.String()
	if r.hand != nil {
		phase = r.hand.Phase.String()
	}
	return Summary{
		RoomID:     r.id,
		TotalSeats: r.totalSeats,
		AIPlayers:  r.aiPlayers,
		Humans:     r.humanCount(),
		Phase:      phase,
		CreatedAt:  r.createdAt.Format("2006-01-02T15:04:05.000Z"),
	}
}

// ID returns the room's code.
func (r *Room) ID() string { return r.id }

// pinNextHand forces the dealer seat and card order for the next StartHand
// call. Unexported: only this package's own tests reach for it.
func (r *Room) pinNextHand(dealer int, deck []card.Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := dealer
	r.forcedDealer = &d
	r.forcedDeck = deck
}
