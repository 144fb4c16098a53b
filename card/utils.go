package card

// Labels renders a slice of cards as their 2-character wire labels, in
// order, for embedding in snapshots and AI prompts.
func Labels(cs []Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
