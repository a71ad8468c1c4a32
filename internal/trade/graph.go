// internal/trade/graph.go
//
// In-memory trade graph: countries and their directed export links.
// Responsibilities:
//   - Hold the full country set keyed by name.
//   - Answer lookups and link values for the game engine.
//   - Refuse construction when a link points at itself or at an unknown country.
//
// Notes:
//   - A Graph is never mutated after NewGraph returns. A reloaded dataset
//     produces a new Graph; sessions keep the one they started with.
//   - Callers must treat returned *Country values as read-only.

package trade

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound is returned for an unknown country or link.
	ErrNotFound = errors.New("trade: not found")
	// ErrSelfLink is returned when a country lists itself as an export partner.
	ErrSelfLink = errors.New("trade: self-referential export link")
	// ErrDanglingLink is returned when an export partner is not part of the graph.
	ErrDanglingLink = errors.New("trade: export partner not in graph")
	// ErrDuplicateCountry is returned when two countries share a name.
	ErrDuplicateCountry = errors.New("trade: duplicate country")
)

// Graph is the immutable set of countries, keyed by name.
type Graph struct {
	byName map[string]*Country
	sorted []*Country // by name, for deterministic iteration
}

// NewGraph builds a Graph from countries. Each country and its export map
// are copied so later changes to the input do not leak into the graph.
func NewGraph(countries []Country) (*Graph, error) {
	g := &Graph{byName: make(map[string]*Country, len(countries))}
	for _, c := range countries {
		if _, dup := g.byName[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCountry, c.Name)
		}
		cp := c
		cp.Exports = make(map[string]TradeLink, len(c.Exports))
		for partner, link := range c.Exports {
			cp.Exports[partner] = link
		}
		g.byName[c.Name] = &cp
		g.sorted = append(g.sorted, &cp)
	}
	for _, c := range g.sorted {
		for partner := range c.Exports {
			if partner == c.Name {
				return nil, fmt.Errorf("%w: %q", ErrSelfLink, c.Name)
			}
			if _, ok := g.byName[partner]; !ok {
				return nil, fmt.Errorf("%w: %q -> %q", ErrDanglingLink, c.Name, partner)
			}
		}
	}
	sort.Slice(g.sorted, func(i, j int) bool { return g.sorted[i].Name < g.sorted[j].Name })
	return g, nil
}

// Lookup returns the country named name.
func (g *Graph) Lookup(name string) (*Country, error) {
	if c, ok := g.byName[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: country %q", ErrNotFound, name)
}

// Link returns the export link from -> to.
func (g *Graph) Link(from, to string) (TradeLink, error) {
	c, err := g.Lookup(from)
	if err != nil {
		return TradeLink{}, err
	}
	link, ok := c.Exports[to]
	if !ok {
		return TradeLink{}, fmt.Errorf("%w: link %q -> %q", ErrNotFound, from, to)
	}
	return link, nil
}

// LinkValue returns the comparable value of from's exports to the named partner.
func (g *Graph) LinkValue(from *Country, to string) (float64, error) {
	if from == nil {
		return 0, fmt.Errorf("%w: nil source country", ErrNotFound)
	}
	link, ok := from.Exports[to]
	if !ok {
		return 0, fmt.Errorf("%w: link %q -> %q", ErrNotFound, from.Name, to)
	}
	return ComparableValue(link), nil
}

// Countries returns every country ordered by name.
func (g *Graph) Countries() []*Country {
	out := make([]*Country, len(g.sorted))
	copy(out, g.sorted)
	return out
}

// Len reports the number of countries.
func (g *Graph) Len() int { return len(g.sorted) }
