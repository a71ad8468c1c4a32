package game

import (
	"fmt"
	"sort"

	"github.com/robalobadob/tradeloop/internal/trade"
)

// OptionGenerator produces the partners offered to the player each round.
type OptionGenerator struct {
	rng   Rand
	rules Rules
}

// NewOptionGenerator returns a generator using rng (nil = global source).
func NewOptionGenerator(rules Rules, rng Rand) *OptionGenerator {
	if rng == nil {
		rng = globalRand{}
	}
	return &OptionGenerator{rng: rng, rules: rules}
}

// Candidates returns every partner of current that may legally be offered,
// strongest export first. start is "" when no streak is active.
//
// Excluded: current itself, the country the chain just came from, and every
// chain member except start. start is only admitted once streakCount has
// reached Rules.MinLoopLength.
func (o *OptionGenerator) Candidates(current *trade.Country, chain []string, streakCount int, start string) []string {
	previous := ""
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i] != current.Name {
			previous = chain[i]
			break
		}
	}
	inChain := make(map[string]struct{}, len(chain))
	for _, name := range chain {
		inChain[name] = struct{}{}
	}
	loopOpen := start != "" && streakCount >= o.rules.MinLoopLength

	out := make([]string, 0, len(current.Exports))
	for partner := range current.Exports {
		switch {
		case partner == current.Name:
			continue
		case partner == previous:
			continue
		case partner == start:
			if !loopOpen {
				continue
			}
		default:
			if _, seen := inChain[partner]; seen {
				continue
			}
		}
		out = append(out, partner)
	}

	sort.Slice(out, func(i, j int) bool {
		vi := trade.ComparableValue(current.Exports[out[i]])
		vj := trade.ComparableValue(current.Exports[out[j]])
		if vi != vj {
			return vi > vj
		}
		return out[i] < out[j]
	})
	return out
}

// Generate returns 2..MaxOptions distinct partner names for the round.
// It returns ErrNeedsReselect when fewer than two candidates exist.
// Once a loop may close but current does not export to start, no slot is
// reserved and up to MaxOptions ordinary partners are drawn.
func (o *OptionGenerator) Generate(current *trade.Country, chain []string, streakCount int, start string) ([]string, error) {
	if current == nil {
		return nil, fmt.Errorf("%w: no current country", ErrInvalidState)
	}
	candidates := o.Candidates(current, chain, streakCount, start)
	if len(candidates) < 2 {
		return nil, fmt.Errorf("%w: %q has %d playable partners", ErrNeedsReselect, current.Name, len(candidates))
	}

	// The start country gets a reserved slot once a loop may close, as long
	// as current actually exports to it.
	reserve := false
	if start != "" && streakCount >= o.rules.MinLoopLength {
		for _, c := range candidates {
			if c == start {
				reserve = true
				break
			}
		}
	}

	strongSize := len(candidates) / 2
	if strongSize < o.rules.MaxOptions {
		strongSize = o.rules.MaxOptions
	}
	if strongSize > len(candidates) {
		strongSize = len(candidates)
	}
	strong := append([]string(nil), candidates[:strongSize]...)
	o.rng.Shuffle(len(strong), func(i, j int) { strong[i], strong[j] = strong[j], strong[i] })

	take := o.rules.MaxOptions
	if reserve {
		take--
	}
	if take > len(strong) {
		take = len(strong)
	}
	picked := strong[:take]

	if reserve && !contains(picked, start) {
		picked = append(picked, start)
	}
	return picked, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
