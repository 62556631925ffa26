package suggest

// lastCharEdits generates every prefix variant reachable by a single
// deletion, insertion, substitution, or transposition applied to the
// last one or two characters of prefix. This is intentionally narrower
// than general edit-distance fuzzy matching (§1 Non-goals: "typo
// correction beyond single-edit fuzzy fallback on short prefixes") — it
// only perturbs the tail, which is where a user mid-typing is most
// likely to have just made a mistake.
func lastCharEdits(prefix string) []string {
	runes := []rune(prefix)
	if len(runes) == 0 {
		return nil
	}

	variants := make([]string, 0, 2+2*26)

	// Deletion: drop the last character.
	variants = append(variants, string(runes[:len(runes)-1]))

	base := runes[:len(runes)-1]
	for c := 'a'; c <= 'z'; c++ {
		// Substitution: replace the last character.
		variants = append(variants, string(append(append([]rune{}, base...), c)))
		// Insertion: append a new character after the prefix as typed.
		variants = append(variants, string(append(append([]rune{}, runes...), c)))
	}

	// Transposition: swap the last two characters, e.g. "aplp" -> "appl".
	if len(runes) >= 2 {
		swapped := append([]rune{}, runes...)
		swapped[len(swapped)-1], swapped[len(swapped)-2] = swapped[len(swapped)-2], swapped[len(swapped)-1]
		variants = append(variants, string(swapped))
	}

	return variants
}
