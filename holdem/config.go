package holdem

import (
	"fmt"

	"pokerserver/card"
)

// Config holds the parameters a Hand is started with. Most fields are set
// once by the owning Room from its own configuration; ForcedDealerChair and
// DeckOverride exist so tests can pin otherwise-random choices.
type Config struct {
	SmallBlind int64
	BigBlind   int64

	// Seed seeds the Hand's own RNG when non-zero. Zero means the caller's
	// injected *rand.Rand is used as-is (see Start).
	Seed int64

	// ForcedDealerChair pins the dealer seat index for deterministic
	// reconstruction in tests; nil means the Room's own rotation applies.
	ForcedDealerChair *int

	// DeckOverride pins the full 52-card order, consumed from the tail via
	// Deck.Draw just like a shuffled deck. Used by rigged-deck tests (e.g.
	// forcing a split-pot showdown).
	DeckOverride []card.Card
}

func (c Config) validate() error {
	if c.SmallBlind < 0 || c.BigBlind <= 0 || c.SmallBlind > c.BigBlind {
		return fmt.Errorf("invalid blinds: sb=%d bb=%d", c.SmallBlind, c.BigBlind)
	}
	if err := validateDeckOverride(c.DeckOverride); err != nil {
		return err
	}
	return nil
}

func validateDeckOverride(deck []card.Card) error {
	if len(deck) == 0 {
		return nil
	}
	if len(deck) != len(card.All52) {
		return fmt.Errorf("deck override must contain %d cards, got %d", len(card.All52), len(deck))
	}
	seen := make(map[card.Card]struct{}, len(deck))
	for i, c := range deck {
		if _, ok := seen[c]; ok {
			return fmt.Errorf("deck override contains duplicate card at index %d: %v", i, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}
