package game

import (
	"github.com/robalobadob/tradeloop/internal/trade"
)

// Outcome is the comparison of two offered partners.
type Outcome struct {
	Winner string
	Loser  string
	ValueA float64
	ValueB float64
	LinkA  trade.TradeLink
	LinkB  trade.TradeLink
}

// FirstWins reports whether choice A strictly out-exports choice B.
func (o Outcome) FirstWins() bool { return o.ValueA > o.ValueB }

// Evaluate compares current's exports to a and b. Ties go to b: the claim
// "current exports more to a" needs a strictly greater value.
func Evaluate(g *trade.Graph, current *trade.Country, a, b string) (Outcome, error) {
	va, err := g.LinkValue(current, a)
	if err != nil {
		return Outcome{}, err
	}
	vb, err := g.LinkValue(current, b)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{
		ValueA: va,
		ValueB: vb,
		LinkA:  current.Exports[a],
		LinkB:  current.Exports[b],
	}
	if va > vb {
		out.Winner, out.Loser = a, b
	} else {
		out.Winner, out.Loser = b, a
	}
	return out, nil
}
