package card

import "math/rand"

// Deck is an ordered sequence of cards. Per the dealing convention, cards
// are drawn from the tail.
type Deck []Card

// Fresh returns a full 52-card deck in deterministic order. Callers must
// shuffle it before dealing.
func Fresh() Deck {
	d := make(Deck, len(All52))
	copy(d, All52)
	return d
}

// FreshFrom builds a deck from an explicit 52-card order (e.g. a rigged
// deck injected by a test), used as-is without shuffling.
func FreshFrom(order []Card) Deck {
	d := make(Deck, len(order))
	copy(d, order)
	return d
}

// Count returns the number of cards remaining.
func (d Deck) Count() int {
	return len(d)
}

// Shuffle permutes the deck in place using the supplied random source.
// Callers inject a *rand.Rand explicitly rather than relying on the
// package-level source, so tests can reproduce deterministic permutations.
func (d Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
}

// Draw removes and returns n cards from the tail of the deck.
func (d *Deck) Draw(n int) ([]Card, bool) {
	total := len(*d)
	if n > total {
		return nil, false
	}
	drawn := make([]Card, n)
	copy(drawn, (*d)[total-n:])
	*d = (*d)[:total-n]
	return drawn, true
}
