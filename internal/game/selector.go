// internal/game/selector.go
//
// Country selection for new streaks.
// Responsibilities:
//   - PickStreakStart: bias toward well-connected, high-volume "hub" countries.
//   - PickNext: uniform fallback over every country.

package game

import (
	"fmt"
	"math"
	"sort"

	"github.com/robalobadob/tradeloop/internal/trade"
)

// Selector picks countries. The zero value is not usable; use NewSelector.
type Selector struct {
	rng   Rand
	rules Rules
}

// NewSelector returns a Selector using rng (nil = global source).
func NewSelector(rules Rules, rng Rand) *Selector {
	if rng == nil {
		rng = globalRand{}
	}
	return &Selector{rng: rng, rules: rules}
}

type rankedCountry struct {
	country *trade.Country
	volume  float64
}

// StartPool returns the countries PickStreakStart draws from, strongest first.
//
// Countries with fewer than Rules.MinPartners partners are dropped, the rest
// are ordered by total export volume, and the top StartPoolFraction (never
// fewer than MinStartPool, never more than what passed the filter) is kept.
func (s *Selector) StartPool(countries []*trade.Country) []*trade.Country {
	ranked := make([]rankedCountry, 0, len(countries))
	for _, c := range countries {
		if c.PartnerCount() < s.rules.MinPartners {
			continue
		}
		ranked = append(ranked, rankedCountry{country: c, volume: c.TotalVolume()})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].volume != ranked[j].volume {
			return ranked[i].volume > ranked[j].volume
		}
		return ranked[i].country.Name < ranked[j].country.Name
	})

	top := int(math.Floor(float64(len(ranked)) * s.rules.StartPoolFraction))
	if top < s.rules.MinStartPool {
		top = s.rules.MinStartPool
	}
	if top > len(ranked) {
		top = len(ranked)
	}
	out := make([]*trade.Country, top)
	for i := 0; i < top; i++ {
		out[i] = ranked[i].country
	}
	return out
}

// PickStreakStart selects the country a fresh streak begins on.
func (s *Selector) PickStreakStart(countries []*trade.Country) (*trade.Country, error) {
	pool := s.StartPool(countries)
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no country has at least %d trading partners", ErrInsufficientData, s.rules.MinPartners)
	}
	return pool[s.rng.IntN(len(pool))], nil
}

// PickNext picks uniformly among all countries, ignoring trade relations.
// It never forms a chain step; see Engine.startFreshStreak.
func (s *Selector) PickNext(countries []*trade.Country) (*trade.Country, error) {
	if len(countries) == 0 {
		return nil, fmt.Errorf("%w: empty country set", ErrInsufficientData)
	}
	return countries[s.rng.IntN(len(countries))], nil
}
