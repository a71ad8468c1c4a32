package game

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robalobadob/tradeloop/internal/trade"
)

// links maps exporter -> partner -> comparable value.
type links map[string]map[string]float64

func buildGraph(t *testing.T, l links) *trade.Graph {
	t.Helper()
	names := map[string]struct{}{}
	for from, to := range l {
		names[from] = struct{}{}
		for p := range to {
			names[p] = struct{}{}
		}
	}
	var countries []trade.Country
	for name := range names {
		c := trade.Country{Name: name, ISOCode: name[:1], Exports: map[string]trade.TradeLink{}}
		for p, v := range l[name] {
			c.Exports[p] = trade.TradeLink{TotalExportValue: v, TopProductValue: v / 2, TopProduct: "Cars"}
		}
		countries = append(countries, c)
	}
	g, err := trade.NewGraph(countries)
	require.NoError(t, err)
	return g
}

// completeLinks connects every pair; values are distinct per exporter.
func completeLinks(names ...string) links {
	l := links{}
	for i, from := range names {
		l[from] = map[string]float64{}
		for j, to := range names {
			if i == j {
				continue
			}
			l[from][to] = float64(100*(i+1) + j + 1)
		}
	}
	return l
}

type recorder struct{ events []Event }

func (r *recorder) OnEvent(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) types() []EventType {
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) reset() { r.events = nil }

// rankOptions returns the engine's option indexes ordered by export value, best first.
func rankOptions(t *testing.T, e *Engine) []int {
	t.Helper()
	opts := e.Options()
	idx := make([]int, len(opts))
	for i := range idx {
		idx[i] = i
	}
	cur := e.Current()
	sort.Slice(idx, func(a, b int) bool {
		va := trade.ComparableValue(cur.Exports[opts[idx[a]]])
		vb := trade.ComparableValue(cur.Exports[opts[idx[b]]])
		return va > vb
	})
	return idx
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
