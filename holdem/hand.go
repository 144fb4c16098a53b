package holdem

import (
	"fmt"
	"math/rand"
	"strconv"

	"pokerserver/card"
)

// Hand is the per-deal betting state machine. It references its owning
// Room's seat slice by index and never outlives it; Start builds a fresh
// Hand for each deal rather than resetting one in place.
type Hand struct {
	Seats       []*Seat
	DealerIndex int
	SmallBlind  int64
	BigBlind    int64

	Deck           card.Deck
	CommunityCards []card.Card
	Pot            int64
	Phase          Phase
	CurrentBet     int64
	MinRaise       int64

	// CurrentPlayerIndex is InvalidSeat when no seat is awaiting action
	// (waiting, or the hand is over).
	CurrentPlayerIndex int

	Actions   []ActionRecord
	HandOver  bool
	Winners   []WinnerEntry
	LastEvent string

	SmallBlindIndex int
	BigBlindIndex   int
}

// Start deals a new Hand over the given seats. dealerIndex must index into
// seats, unless cfg.ForcedDealerChair is set, in which case it takes
// precedence (test harnesses pinning a dealer for a literal scenario). rng
// drives the shuffle and is the caller's responsibility to seed; it is
// never read from a package-level source, except that a non-zero cfg.Seed
// replaces it with a freshly seeded source, for deterministic reconstruction
// of a past hand. If cfg.DeckOverride is set, the deck is used in that fixed
// order instead of being shuffled (cfg.Seed is then moot).
func Start(seats []*Seat, dealerIndex int, cfg Config, rng *rand.Rand) (*Hand, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	if cfg.ForcedDealerChair != nil {
		dealerIndex = *cfg.ForcedDealerChair
	}
	if dealerIndex < 0 || dealerIndex >= len(seats) {
		return nil, fmt.Errorf("dealer index %d out of range for %d seats", dealerIndex, len(seats))
	}

	active := 0
	for _, s := range seats {
		if s.Stack > 0 {
			active++
		}
	}
	if active < 2 {
		return nil, ErrNotEnoughPlayers
	}

	for _, s := range seats {
		s.resetForHand()
	}

	h := &Hand{
		Seats:              seats,
		DealerIndex:        dealerIndex,
		SmallBlind:         cfg.SmallBlind,
		BigBlind:           cfg.BigBlind,
		Phase:              PhasePreflop,
		MinRaise:           cfg.BigBlind,
		CurrentPlayerIndex: InvalidSeat,
		SmallBlindIndex:    InvalidSeat,
		BigBlindIndex:      InvalidSeat,
	}

	if len(cfg.DeckOverride) > 0 {
		h.Deck = card.FreshFrom(cfg.DeckOverride)
	} else {
		h.Deck = card.Fresh()
		h.Deck.Shuffle(rng)
	}

	h.dealHoleCards()

	// Heads-up is a special case of the otherwise-general "first seat
	// after the dealer" rule: canonically the dealer posts the small
	// blind and the lone opponent posts the big blind.
	var sbIdx, bbIdx int
	if countNonBusted(seats) == 2 && !seats[dealerIndex].Busted {
		sbIdx = dealerIndex
		bbIdx = h.nextMatching(dealerIndex, notBusted)
	} else {
		sbIdx = h.nextMatching(dealerIndex, notBusted)
		bbIdx = h.nextMatching(sbIdx, notBusted)
	}
	if sbIdx == InvalidSeat || bbIdx == InvalidSeat {
		return nil, ErrNotEnoughPlayers
	}
	h.SmallBlindIndex = sbIdx
	h.BigBlindIndex = bbIdx
	h.postBlind(sbIdx, h.SmallBlind, "small_blind")
	h.postBlind(bbIdx, h.BigBlind, "big_blind")

	var maxBet int64
	for _, s := range h.Seats {
		if s.Bet > maxBet {
			maxBet = s.Bet
		}
	}
	h.CurrentBet = maxBet
	h.MinRaise = h.BigBlind

	h.CurrentPlayerIndex = h.nextMatching(bbIdx, notFoldedBustedAllIn)
	if h.CurrentPlayerIndex == InvalidSeat {
		h.enterShowdown()
	}
	return h, nil
}

func notBusted(s *Seat) bool { return !s.Busted }

func countNonBusted(seats []*Seat) int {
	n := 0
	for _, s := range seats {
		if !s.Busted {
			n++
		}
	}
	return n
}

func notFoldedBustedAllIn(s *Seat) bool { return !s.Folded && !s.Busted && !s.AllIn }

// nextMatching scans seats clockwise starting just after start, wrapping
// once, and returns the index of the first seat matching pred, or
// InvalidSeat if none does.
func (h *Hand) nextMatching(start int, pred func(*Seat) bool) int {
	n := len(h.Seats)
	idx := (start + 1) % n
	for i := 0; i < n; i++ {
		if pred(h.Seats[idx]) {
			return idx
		}
		idx = (idx + 1) % n
	}
	return InvalidSeat
}

// orderFrom returns every seat index matching pred, in clockwise order
// starting just after start, covering exactly one lap.
func (h *Hand) orderFrom(start int, pred func(*Seat) bool) []int {
	n := len(h.Seats)
	idx := (start + 1) % n
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if pred(h.Seats[idx]) {
			out = append(out, idx)
		}
		idx = (idx + 1) % n
	}
	return out
}

func (h *Hand) dealHoleCards() {
	order := h.orderFrom(h.DealerIndex, notBusted)
	for pass := 0; pass < 2; pass++ {
		for _, idx := range order {
			drawn, ok := h.Deck.Draw(1)
			if !ok {
				return
			}
			h.Seats[idx].HoleCards = append(h.Seats[idx].HoleCards, drawn...)
		}
	}
}

func (h *Hand) postBlind(idx int, amount int64, label string) {
	s := h.Seats[idx]
	committed := min(s.Stack, amount)
	h.commit(s, committed)
	h.Actions = append(h.Actions, ActionRecord{
		PlayerID:   s.ID,
		PlayerName: s.Name,
		Action:     label,
		Amount:     committed,
		Phase:      h.Phase.String(),
	})
}

func (h *Hand) commit(s *Seat, amount int64) {
	if amount < 0 {
		amount = 0
	}
	if amount > s.Stack {
		amount = s.Stack
	}
	s.Stack -= amount
	s.Bet += amount
	h.Pot += amount
	if s.Stack == 0 && amount > 0 {
		s.AllIn = true
	}
}

// LegalActions returns the actions available to the seat at idx given the
// current betting state.
func (h *Hand) LegalActions(idx int) []ActionType {
	s := h.Seats[idx]
	if h.HandOver || s.Folded || s.AllIn || s.Busted {
		return nil
	}
	toCall := h.CurrentBet - s.Bet
	if toCall < 0 {
		toCall = 0
	}
	if toCall > 0 {
		actions := []ActionType{ActionFold, ActionCall}
		if s.Stack+s.Bet > h.CurrentBet {
			actions = append(actions, ActionRaise)
		}
		return actions
	}
	actions := []ActionType{ActionCheck}
	if s.Stack > 0 {
		actions = append(actions, ActionBet)
	}
	return actions
}

func legalContains(actions []ActionType, want ActionType) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}

// ApplyAction validates and applies one seat's action, then advances the
// Hand: to the next seat to act, to round completion, or to the showdown.
// A returned error leaves the Hand exactly as it was before the call.
func (h *Hand) ApplyAction(idx int, action ActionType, amount int64) error {
	if h.HandOver {
		return ErrHandOver
	}
	if idx != h.CurrentPlayerIndex {
		return ErrWrongTurn
	}
	s := h.Seats[idx]
	toCall := h.CurrentBet - s.Bet
	if toCall < 0 {
		toCall = 0
	}

	var loggedAmount int64
	switch action {
	case ActionFold:
		s.Folded = true

	case ActionCheck:
		if toCall != 0 {
			return ErrCannotCheck
		}

	case ActionCall:
		if toCall == 0 {
			return ErrNothingToCall
		}
		committed := min(s.Stack, toCall)
		h.commit(s, committed)
		loggedAmount = committed

	case ActionBet:
		if h.CurrentBet != 0 {
			return ErrBetNotAllowed
		}
		if amount < h.BigBlind {
			return ErrBelowMinBet
		}
		desiredTotal := min(s.Bet+s.Stack, amount)
		committed := desiredTotal - s.Bet
		if committed <= 0 {
			return ErrInsufficientChips
		}
		h.commit(s, committed)
		h.CurrentBet = s.Bet
		h.MinRaise = committed
		loggedAmount = s.Bet

	case ActionRaise:
		if h.CurrentBet == 0 {
			return ErrNothingToRaise
		}
		if amount <= h.CurrentBet {
			return ErrRaiseMustIncrease
		}
		minTotal := h.CurrentBet + h.MinRaise
		capTotal := s.Bet + s.Stack
		desired := amount
		if desired > capTotal {
			desired = capTotal
		}
		// A seat with chips to spare must raise to at least minTotal; only
		// a stack-limited (all-in) raise may fall short of it.
		if desired < minTotal && desired < capTotal {
			return ErrRaiseMustExceedCall
		}
		committed := desired - s.Bet
		if committed <= toCall {
			return ErrRaiseMustExceedCall
		}
		h.commit(s, committed)
		// A raise that is clamped below minTotal because the seat went
		// all-in leaves MinRaise unchanged. Seats that already acted still
		// face the higher CurrentBet and keep every legal action, raise
		// included.
		if desired >= minTotal {
			h.MinRaise = desired - h.CurrentBet
		}
		h.CurrentBet = desired
		loggedAmount = s.Bet

	default:
		return ErrUnknownAction
	}

	s.HasActed = true
	h.Actions = append(h.Actions, ActionRecord{
		PlayerID:   s.ID,
		PlayerName: s.Name,
		Action:     action.String(),
		Amount:     loggedAmount,
		Phase:      h.Phase.String(),
	})

	if h.activePlayerCount() <= 1 {
		h.finishSinglePlayer()
		return nil
	}
	h.advanceTurnOrRound(idx)
	return nil
}

func (h *Hand) activePlayerCount() int {
	n := 0
	for _, s := range h.Seats {
		if s.InHand() {
			n++
		}
	}
	return n
}

func (h *Hand) advanceTurnOrRound(from int) {
	next := h.nextMatching(from, func(s *Seat) bool {
		if s.Folded || s.Busted || s.AllIn {
			return false
		}
		return s.Bet != h.CurrentBet || !s.HasActed
	})
	if next == InvalidSeat {
		h.completeBettingRound()
		return
	}
	h.CurrentPlayerIndex = next
}

func (h *Hand) completeBettingRound() {
	for _, s := range h.Seats {
		s.Bet = 0
		s.HasActed = false
	}
	h.CurrentBet = 0
	h.MinRaise = h.BigBlind

	if h.Phase == PhaseRiver {
		h.enterShowdown()
		return
	}
	h.advanceBoard()
	h.CurrentPlayerIndex = h.nextMatching(h.DealerIndex, notFoldedBustedAllIn)
	if h.CurrentPlayerIndex == InvalidSeat {
		h.enterShowdown()
	}
}

func (h *Hand) advanceBoard() {
	switch h.Phase {
	case PhasePreflop:
		h.Phase = PhaseFlop
		drawn, _ := h.Deck.Draw(3)
		h.CommunityCards = append(h.CommunityCards, drawn...)
	case PhaseFlop:
		h.Phase = PhaseTurn
		drawn, _ := h.Deck.Draw(1)
		h.CommunityCards = append(h.CommunityCards, drawn...)
	case PhaseTurn:
		h.Phase = PhaseRiver
		drawn, _ := h.Deck.Draw(1)
		h.CommunityCards = append(h.CommunityCards, drawn...)
	}
}

func (h *Hand) dealRemainingBoard() {
	for len(h.CommunityCards) < 5 && h.Deck.Count() > 0 {
		drawn, ok := h.Deck.Draw(1)
		if !ok {
			return
		}
		h.CommunityCards = append(h.CommunityCards, drawn...)
	}
}

func (h *Hand) enterShowdown() {
	h.dealRemainingBoard()

	var contenders []*Seat
	for _, s := range h.Seats {
		if s.InHand() {
			contenders = append(contenders, s)
		}
	}
	if len(contenders) == 0 {
		h.finishHand(nil, "no players left")
		return
	}

	strengths := make(map[string]HandStrength, len(contenders))
	var best HandStrength
	first := true
	for _, s := range contenders {
		strength := EvaluateBestHand(s.HoleCards, h.CommunityCards)
		strengths[s.ID] = strength
		if first || CompareStrength(strength, best) > 0 {
			best = strength
			first = false
		}
	}

	var winners []*Seat
	for _, s := range contenders {
		if CompareStrength(strengths[s.ID], best) == 0 {
			winners = append(winners, s)
		}
	}
	h.awardPot(winners, &best)
}

func (h *Hand) finishSinglePlayer() {
	var remaining []*Seat
	for _, s := range h.Seats {
		if s.InHand() {
			remaining = append(remaining, s)
		}
	}
	if len(remaining) == 0 {
		h.finishHand(nil, "hand aborted")
		return
	}
	h.awardPot(remaining[:1], nil)
}

func (h *Hand) awardPot(winners []*Seat, strength *HandStrength) {
	if len(winners) == 0 {
		h.HandOver = true
		h.Pot = 0
		h.CurrentPlayerIndex = InvalidSeat
		h.Phase = PhaseShowdown
		return
	}

	n := int64(len(winners))
	share := h.Pot / n
	remainder := h.Pot % n
	handName := "No contest"
	if strength != nil {
		handName = handCategoryNames[strength.Category]
	}
	h.Winners = nil
	for i, w := range winners {
		extra := int64(0)
		if int64(i) < remainder {
			extra = 1
		}
		w.Stack += share + extra
		h.Winners = append(h.Winners, WinnerEntry{
			PlayerID:   w.ID,
			PlayerName: w.Name,
			Hand:       handName,
			Cards:      card.Labels(w.HoleCards),
		})
	}
	h.LastEvent = joinWinnerNames(winners) + " won " + strconv.FormatInt(h.Pot, 10) + " chips"
	h.Pot = 0
	h.HandOver = true
	h.CurrentPlayerIndex = InvalidSeat
	h.Phase = PhaseShowdown
}

func (h *Hand) finishHand(winners []*Seat, message string) {
	h.Winners = nil
	for _, w := range winners {
		h.Winners = append(h.Winners, WinnerEntry{
			PlayerID:   w.ID,
			PlayerName: w.Name,
			Hand:       message,
			Cards:      []string{},
		})
	}
	h.LastEvent = message
	h.Pot = 0
	h.CurrentPlayerIndex = InvalidSeat
	h.HandOver = true
	h.Phase = PhaseShowdown
}

// BuildAIContext snapshots everything an automated decider needs to pick a
// legal action for the seat at idx. It carries the most recent 12 entries
// of the action log.
func (h *Hand) BuildAIContext(idx int) AIContext {
	s := h.Seats[idx]
	toCall := h.CurrentBet - s.Bet
	if toCall < 0 {
		toCall = 0
	}
	legal := h.LegalActions(idx)
	legalNames := make([]string, len(legal))
	for i, a := range legal {
		legalNames[i] = a.String()
	}

	recent := h.Actions
	if len(recent) > 12 {
		recent = recent[len(recent)-12:]
	}

	return AIContext{
		PlayerID:       s.ID,
		PlayerName:     s.Name,
		HoleCards:      card.Labels(s.HoleCards),
		CommunityCards: card.Labels(h.CommunityCards),
		Pot:            h.Pot,
		Stack:          s.Stack,
		ToCall:         toCall,
		MinRaise:       h.MinRaise,
		Phase:          h.Phase.String(),
		LegalActions:   legalNames,
		RecentActions:  append([]ActionRecord(nil), recent...),
	}
}

// FallbackAction picks the engine's deterministic safe play: check if
// legal, otherwise call if affordable, otherwise fold.
func (h *Hand) FallbackAction(idx int) (ActionType, int64) {
	s := h.Seats[idx]
	toCall := h.CurrentBet - s.Bet
	legal := h.LegalActions(idx)
	if legalContains(legal, ActionCheck) {
		return ActionCheck, 0
	}
	if legalContains(legal, ActionCall) && s.Stack >= toCall {
		return ActionCall, 0
	}
	return ActionFold, 0
}

func joinWinnerNames(seats []*Seat) string {
	out := ""
	for i, s := range seats {
		if i > 0 {
			out += ", "
		}
		out += s.Name
	}
	return out
}

