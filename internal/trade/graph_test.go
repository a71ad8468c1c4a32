package trade

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparableValue(t *testing.T) {
	tests := []struct {
		name string
		link TradeLink
		want float64
	}{
		{name: "total wins when set", link: TradeLink{TotalExportValue: 500, TopProductValue: 500, TopProduct: "Cars"}, want: 500},
		{name: "falls back to top product", link: TradeLink{TotalExportValue: 0, TopProductValue: 200, TopProduct: "Oil"}, want: 200},
		{name: "both unknown", link: TradeLink{}, want: 0},
		{name: "negative clamped", link: TradeLink{TotalExportValue: -3}, want: 0},
		{name: "NaN total falls back", link: TradeLink{TotalExportValue: math.NaN(), TopProductValue: 40}, want: 40},
		{name: "infinite total", link: TradeLink{TotalExportValue: math.Inf(1)}, want: 0},
		{name: "both NaN", link: TradeLink{TotalExportValue: math.NaN(), TopProductValue: math.NaN()}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComparableValue(tt.link)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}

func sampleCountries() []Country {
	return []Country{
		{Name: "A", ISOCode: "AA", Exports: map[string]TradeLink{
			"B": {TotalExportValue: 500, TopProductValue: 500, TopProduct: "Cars"},
			"C": {TotalExportValue: 0, TopProductValue: 200, TopProduct: "Oil"},
		}},
		{Name: "B", Exports: map[string]TradeLink{"A": {TotalExportValue: 10}}},
		{Name: "C"},
	}
}

func TestNewGraph(t *testing.T) {
	g, err := NewGraph(sampleCountries())
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())

	names := []string{}
	for _, c := range g.Countries() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)
}

func TestNewGraph_Rejects(t *testing.T) {
	t.Run("self link", func(t *testing.T) {
		_, err := NewGraph([]Country{{Name: "A", Exports: map[string]TradeLink{"A": {TotalExportValue: 1}}}})
		assert.True(t, errors.Is(err, ErrSelfLink))
	})
	t.Run("dangling link", func(t *testing.T) {
		_, err := NewGraph([]Country{{Name: "A", Exports: map[string]TradeLink{"Z": {TotalExportValue: 1}}}})
		assert.True(t, errors.Is(err, ErrDanglingLink))
	})
	t.Run("duplicate", func(t *testing.T) {
		_, err := NewGraph([]Country{{Name: "A"}, {Name: "A"}})
		assert.True(t, errors.Is(err, ErrDuplicateCountry))
	})
}

func TestNewGraph_CopiesInput(t *testing.T) {
	in := sampleCountries()
	g, err := NewGraph(in)
	require.NoError(t, err)

	in[0].Exports["B"] = TradeLink{TotalExportValue: 1}
	v, err := g.Link("A", "B")
	require.NoError(t, err)
	assert.Equal(t, 500.0, v.TotalExportValue)
}

func TestLookupAndLinkValue(t *testing.T) {
	g, err := NewGraph(sampleCountries())
	require.NoError(t, err)

	a, err := g.Lookup("A")
	require.NoError(t, err)

	vb, err := g.LinkValue(a, "B")
	require.NoError(t, err)
	vc, err := g.LinkValue(a, "C")
	require.NoError(t, err)
	assert.Equal(t, 500.0, vb)
	assert.Equal(t, 200.0, vc)
	assert.Greater(t, vb, vc)

	_, err = g.Lookup("Nowhere")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = g.LinkValue(a, "Nowhere")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = g.Link("C", "A")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountryVolume(t *testing.T) {
	g, err := NewGraph(sampleCountries())
	require.NoError(t, err)
	a, _ := g.Lookup("A")
	assert.Equal(t, 2, a.PartnerCount())
	assert.Equal(t, 700.0, a.TotalVolume())
}
