package room

import (
	"errors"
	"testing"

	"pokerserver/aiadapter"
	"pokerserver/holdem"
)

func newTestRegistry(maxRooms int) *Registry {
	client := aiadapter.New(aiadapter.Config{}, nil)
	return NewRegistry(maxRooms, client, nil)
}

func TestCreateRoomValidation(t *testing.T) {
	reg := newTestRegistry(10)
	cases := []struct {
		name                                     string
		totalSeats, aiPlayers                    int
		startingStack, smallBlind, bigBlind      int64
		wantErr                                  bool
	}{
		{"valid", 6, 2, 2000, 10, 20, false},
		{"too few seats", 1, 0, 2000, 10, 20, true},
		{"too many seats", 10, 0, 2000, 10, 20, true},
		{"ai players fills table", 4, 4, 2000, 10, 20, true},
		{"stack too small", 4, 0, 10, 10, 20, true},
		{"big blind below small blind", 4, 0, 2000, 20, 10, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := reg.CreateRoom("host", tc.totalSeats, tc.aiPlayers, tc.startingStack, tc.smallBlind, tc.bigBlind)
			if tc.wantErr != (err != nil) {
				t.Fatalf("CreateRoom(%+v): err=%v, wantErr=%v", tc, err, tc.wantErr)
			}
		})
	}
}

func TestRegistryRoomLimit(t *testing.T) {
	reg := newTestRegistry(1)
	if _, _, err := reg.CreateRoom("host", 4, 0, 2000, 10, 20); err != nil {
		t.Fatalf("first CreateRoom: %v", err)
	}
	if _, _, err := reg.CreateRoom("host2", 4, 0, 2000, 10, 20); err != ErrRoomLimit {
		t.Fatalf("expected ErrRoomLimit, got %v", err)
	}
}

func TestAddPlayerFillsHumanSlots(t *testing.T) {
	reg := newTestRegistry(10)
	rm, _, err := reg.CreateRoom("host", 3, 1, 2000, 10, 20)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	// total_seats=3, ai_players=1 leaves 2 human slots; host already fills one.
	if _, err := rm.AddPlayer("second"); err != nil {
		t.Fatalf("AddPlayer second: %v", err)
	}
	if _, err := rm.AddPlayer("third"); err != ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestStartHandRequiresHost(t *testing.T) {
	reg := newTestRegistry(10)
	rm, host, err := reg.CreateRoom("host", 2, 0, 2000, 10, 20)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	guest, err := rm.AddPlayer("guest")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if err := rm.StartHand(guest.ID, guest.Secret); err != ErrNotHost {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if err := rm.StartHand(host.ID, "wrong-secret"); err != ErrSecretMismatch {
		t.Fatalf("expected ErrSecretMismatch, got %v", err)
	}
	if err := rm.StartHand(host.ID, host.Secret); err != nil {
		t.Fatalf("StartHand: %v", err)
	}
}

func TestStartHandNeedsTwoChipped(t *testing.T) {
	reg := newTestRegistry(10)
	rm, host, err := reg.CreateRoom("host", 4, 0, 2000, 10, 20)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := rm.StartHand(host.ID, host.Secret); err != ErrTooFewChipped {
		t.Fatalf("expected ErrTooFewChipped with a single seated player, got %v", err)
	}
}

func TestHandleActionRejectsWrongSecretAndUnknownPlayer(t *testing.T) {
	reg := newTestRegistry(10)
	rm, host, err := reg.CreateRoom("host", 2, 0, 2000, 10, 20)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	guest, err := rm.AddPlayer("guest")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if err := rm.StartHand(host.ID, host.Secret); err != nil {
		t.Fatalf("StartHand: %v", err)
	}

	if err := rm.HandleAction("not-a-player", "secret", holdem.ActionFold, 0); err != ErrUnknownPlayer {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
	if err := rm.HandleAction(guest.ID, "wrong", holdem.ActionFold, 0); err != ErrSecretMismatch {
		t.Fatalf("expected ErrSecretMismatch, got %v", err)
	}
}

func TestHandleActionWrapsRuleViolations(t *testing.T) {
	reg := newTestRegistry(10)
	rm, host, err := reg.CreateRoom("host", 2, 0, 2000, 10, 20)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := rm.AddPlayer("guest"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	// Pin the dealer to seat 0 (the host) so the heads-up small-blind
	// convention makes the host the first to act, deterministically.
	rm.pinNextHand(0, nil)
	if err := rm.StartHand(host.ID, host.Secret); err != nil {
		t.Fatalf("StartHand: %v", err)
	}

	snap, err := rm.StateFor(host.ID, host.Secret)
	if err != nil {
		t.Fatalf("StateFor: %v", err)
	}
	if snap.Self == nil || snap.CurrentPlayerID != host.ID {
		t.Fatalf("expected host to act first, snapshot: %+v", snap)
	}

	err = rm.HandleAction(host.ID, host.Secret, holdem.ActionRaise, 1)
	var invalid *InvalidActionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidActionError, got %T: %v", err, err)
	}
}

// TestAutoPlayDrivesHandToCompletion exercises the room with every seat
// automated but the host, using the AI adapter's deterministic fallback
// (no API key configured): check if legal, else call, else fold. AutoPlay
// must release the room mutex across each decision and still leave the
// hand in a stable, playable state when it returns.
func TestAutoPlayDrivesHandToCompletion(t *testing.T) {
	reg := newTestRegistry(10)
	rm, host, err := reg.CreateRoom("host", 4, 3, 2000, 10, 20)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	snap, err := reg.StartHand(rm.ID(), host.ID, host.Secret)
	if err != nil {
		t.Fatalf("StartHand: %v", err)
	}
	if snap.StateVersion <= 1 {
		t.Fatalf("expected state_version to advance past the initial seating value, got %d", snap.StateVersion)
	}

	// The only human is the host; auto-play must either leave the hand
	// waiting on the host or have finished the hand entirely (all the
	// automated seats folded around to a walk).
	if snap.CurrentPlayerID != "" && snap.CurrentPlayerID != host.ID {
		t.Fatalf("auto-play left an automated seat waiting to act: %s", snap.CurrentPlayerID)
	}
}

func TestStateVersionMonotonic(t *testing.T) {
	reg := newTestRegistry(10)
	rm, host, err := reg.CreateRoom("host", 2, 0, 2000, 10, 20)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	before, err := rm.StateFor(host.ID, host.Secret)
	if err != nil {
		t.Fatalf("StateFor: %v", err)
	}

	guest, err := rm.AddPlayer("guest")
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	afterJoin, err := rm.StateFor(host.ID, host.Secret)
	if err != nil {
		t.Fatalf("StateFor: %v", err)
	}
	if afterJoin.StateVersion <= before.StateVersion {
		t.Fatalf("state_version did not advance after AddPlayer: before=%d after=%d", before.StateVersion, afterJoin.StateVersion)
	}

	if err := rm.StartHand(host.ID, host.Secret); err != nil {
		t.Fatalf("StartHand: %v", err)
	}
	afterStart, err := rm.StateFor(host.ID, host.Secret)
	if err != nil {
		t.Fatalf("StateFor: %v", err)
	}
	if afterStart.StateVersion <= afterJoin.StateVersion {
		t.Fatalf("state_version did not advance after StartHand: afterJoin=%d afterStart=%d", afterJoin.StateVersion, afterStart.StateVersion)
	}

	actor := host
	if afterStart.CurrentPlayerID == guest.ID {
		actor = guest
	}
	if err := rm.HandleAction(actor.ID, actor.Secret, holdem.ActionCall, 0); err != nil {
		t.Fatalf("HandleAction: %v", err)
	}
	afterAction, err := rm.StateFor(host.ID, host.Secret)
	if err != nil {
		t.Fatalf("StateFor: %v", err)
	}
	if afterAction.StateVersion <= afterStart.StateVersion {
		t.Fatalf("state_version did not advance after HandleAction: afterStart=%d afterAction=%d", afterStart.StateVersion, afterAction.StateVersion)
	}
}

func TestFetchStateUnknownRoomAndSecretMismatch(t *testing.T) {
	reg := newTestRegistry(10)
	if _, err := reg.FetchState("NOSUCH", "", ""); err != ErrUnknownRoom {
		t.Fatalf("expected ErrUnknownRoom, got %v", err)
	}

	rm, host, err := reg.CreateRoom("host", 2, 0, 2000, 10, 20)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := reg.FetchState(rm.ID(), host.ID, "wrong"); err != ErrSecretMismatch {
		t.Fatalf("expected ErrSecretMismatch, got %v", err)
	}
}

func TestListRoomsReportsHumanCount(t *testing.T) {
	reg := newTestRegistry(10)
	rm, _, err := reg.CreateRoom("host", 4, 1, 2000, 10, 20)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := rm.AddPlayer("guest"); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}

	summaries := reg.ListRooms()
	if len(summaries) != 1 {
		t.Fatalf("expected 1 room, got %d", len(summaries))
	}
	if summaries[0].Humans != 2 {
		t.Fatalf("expected 2 humans (host + guest), got %d", summaries[0].Humans)
	}
	if summaries[0].AIPlayers != 1 {
		t.Fatalf("expected ai_players=1, got %d", summaries[0].AIPlayers)
	}
}
