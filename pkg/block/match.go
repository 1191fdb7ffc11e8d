package block

import (
	"sort"
	"strings"
)

// Choice is one configured (value, label) pair of a selection block.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// searchLimit caps ranked results returned by the search sub-protocol.
const searchLimit = 10

// matchChoice resolves a raw user answer against configured choices,
// first tier that matches wins:
//  1. exact value match
//  2. case-insensitive label match
//  3. similarity-ranked fallback over the remaining candidates
func matchChoice(choices []Choice, raw string) (Choice, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Choice{}, false
	}

	for _, c := range choices {
		if c.Value == raw {
			return c, true
		}
	}

	lowered := strings.ToLower(raw)
	for _, c := range choices {
		if strings.ToLower(c.Label) == lowered {
			return c, true
		}
	}

	ranked := rankChoices(choices, raw)
	if len(ranked) > 0 && ranked[0].score >= 0.5 {
		return ranked[0].choice, true
	}
	return Choice{}, false
}

type scoredChoice struct {
	choice Choice
	score  float64
	index  int
}

// rankChoices orders choices by similarity to the query, descending,
// with declaration order breaking ties. Scoring uses character-bigram
// overlap (Dice coefficient) over the lowercased label and value.
func rankChoices(choices []Choice, query string) []scoredChoice {
	ranked := make([]scoredChoice, 0, len(choices))
	for i, c := range choices {
		score := similarity(query, c.Label)
		if s := similarity(query, c.Value); s > score {
			score = s
		}
		ranked = append(ranked, scoredChoice{choice: c, score: score, index: i})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].index < ranked[j].index
	})
	return ranked
}

// similarity is the Dice coefficient over character bigrams. Exact
// (case-insensitive) matches score 1, disjoint strings score 0.
func similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	ba := bigrams(a)
	bb := bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	overlap := 0
	for g, n := range ba {
		if m, ok := bb[g]; ok {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}
	total := 0
	for _, n := range ba {
		total += n
	}
	for _, n := range bb {
		total += n
	}
	return 2 * float64(overlap) / float64(total)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}
