package card

import (
	"fmt"
	"strings"
)

// Card packs a suit and rank into one byte: high nibble is Suit, low
// nibble is rank (1=A, 2..9, 10=T, 11=J, 12=Q, 13=K).
type Card byte

// String renders the 2-character wire label used throughout the snapshot
// schema: rank first, suit letter second (e.g. "AS", "TH", "9C").
func (c Card) String() string {
	if c == CardInvalid {
		return "Invalid"
	}
	if c == CardRear {
		return "Rear"
	}

	rank := c & 0x0F
	var rankStr string
	switch rank {
	case 1:
		rankStr = "A"
	case 10:
		rankStr = "T"
	case 11:
		rankStr = "J"
	case 12:
		rankStr = "Q"
	case 13:
		rankStr = "K"
	default:
		rankStr = fmt.Sprintf("%d", rank)
	}

	return rankStr + c.Suit().Letter()
}

// Rank returns the raw 1..13 rank value (A=1, K=13).
func (c Card) Rank() byte {
	if c == CardInvalid || c == CardRear {
		return 0
	}
	return byte(c & 0x0F)
}

// Suit returns the card's suit.
func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

func (c Card) IsAce() bool {
	return c.Rank() == 1
}

// Rank14 returns the rank value used for strength comparisons: Ace is 14,
// all other ranks are their face value. Straight detection separately
// recognizes the wheel (A-2-3-4-5) by also treating Ace as 1.
func (c Card) Rank14() int {
	r := int(c & 0x0F)
	if r == 1 {
		return 14
	}
	return r
}

// ParseCard converts a 2-3 character label such as "As", "Td", "10h" into a
// Card.
func ParseCard(label string) (Card, error) {
	if len(label) < 2 {
		return 0, fmt.Errorf("invalid card label: %q", label)
	}

	suitChar := label[len(label)-1]
	var suitBase Card
	switch suitChar {
	case 's', 'S':
		suitBase = 0x00
	case 'h', 'H':
		suitBase = 0x10
	case 'c', 'C':
		suitBase = 0x20
	case 'd', 'D':
		suitBase = 0x30
	default:
		return 0, fmt.Errorf("invalid suit in label %q", label)
	}

	rankStr := label[:len(label)-1]
	var rankVal Card
	switch strings.ToUpper(rankStr) {
	case "A":
		rankVal = 0x01
	case "2":
		rankVal = 0x02
	case "3":
		rankVal = 0x03
	case "4":
		rankVal = 0x04
	case "5":
		rankVal = 0x05
	case "6":
		rankVal = 0x06
	case "7":
		rankVal = 0x07
	case "8":
		rankVal = 0x08
	case "9":
		rankVal = 0x09
	case "T", "10":
		rankVal = 0x0A
	case "J":
		rankVal = 0x0B
	case "Q":
		rankVal = 0x0C
	case "K":
		rankVal = 0x0D
	default:
		return 0, fmt.Errorf("invalid rank in label %q", label)
	}

	return suitBase + rankVal, nil
}
