package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/tradeloop/internal/trade"
)

func fallbackGraph(t *testing.T) *trade.Graph {
	t.Helper()
	g, err := trade.NewGraph([]trade.Country{
		{Name: "A", Exports: map[string]trade.TradeLink{
			"B": {TotalExportValue: 500, TopProductValue: 500, TopProduct: "Cars"},
			"C": {TotalExportValue: 0, TopProductValue: 200, TopProduct: "Oil"},
			"D": {TotalExportValue: 200, TopProductValue: 150, TopProduct: "Metals"},
		}},
		{Name: "B"}, {Name: "C"}, {Name: "D"},
	})
	require.NoError(t, err)
	return g
}

func TestEvaluate_FallbackValue(t *testing.T) {
	g := fallbackGraph(t)
	a, _ := g.Lookup("A")

	out, err := Evaluate(g, a, "B", "C")
	require.NoError(t, err)
	assert.Equal(t, "B", out.Winner)
	assert.Equal(t, "C", out.Loser)
	assert.Equal(t, 500.0, out.ValueA)
	assert.Equal(t, 200.0, out.ValueB)
	assert.True(t, out.FirstWins())
	assert.Equal(t, "Oil", out.LinkB.TopProduct)

	out, err = Evaluate(g, a, "C", "B")
	require.NoError(t, err)
	assert.Equal(t, "B", out.Winner)
	assert.False(t, out.FirstWins())
}

func TestEvaluate_TieGoesToSecond(t *testing.T) {
	g := fallbackGraph(t)
	a, _ := g.Lookup("A")

	// C falls back to 200, D has a 200 total.
	out, err := Evaluate(g, a, "C", "D")
	require.NoError(t, err)
	assert.Equal(t, out.ValueA, out.ValueB)
	assert.Equal(t, "D", out.Winner)
	assert.False(t, out.FirstWins())

	out, err = Evaluate(g, a, "D", "C")
	require.NoError(t, err)
	assert.Equal(t, "C", out.Winner)
	assert.False(t, out.FirstWins())
}

func TestEvaluate_NotFound(t *testing.T) {
	g := fallbackGraph(t)
	a, _ := g.Lookup("A")
	_, err := Evaluate(g, a, "B", "Atlantis")
	assert.ErrorIs(t, err, trade.ErrNotFound)
}
