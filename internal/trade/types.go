// internal/trade/types.go
//
// Core entities of the trade graph.

package trade

import "math"

// Coordinates is a geographic position. The game logic never reads it;
// it is carried through for presentation.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TradeLink is one direction of trade (A -> B).
type TradeLink struct {
	TotalExportValue float64 `json:"totalExportValue"` // may be 0 when unknown
	TopProductValue  float64 `json:"topProductValue"`
	TopProduct       string  `json:"topProduct"`
}

// Country is a node of the graph. Exports maps partner name -> link.
type Country struct {
	Name        string               `json:"name"`
	ISOCode     string               `json:"isoCode"`
	Coordinates Coordinates          `json:"coordinates"`
	Exports     map[string]TradeLink `json:"exports"`
}

// PartnerCount is the number of outgoing export links.
func (c *Country) PartnerCount() int { return len(c.Exports) }

// TotalVolume sums the comparable value of every outgoing link.
func (c *Country) TotalVolume() float64 {
	var sum float64
	for _, l := range c.Exports {
		sum += ComparableValue(l)
	}
	return sum
}

// ComparableValue is the number guesses are judged on: the total export
// value, or the top product value when the total is unknown (zero).
// Negative and non-finite inputs count as zero.
func ComparableValue(l TradeLink) float64 {
	v := finite(l.TotalExportValue)
	if v == 0 {
		v = finite(l.TopProductValue)
	}
	if v < 0 {
		return 0
	}
	return v
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
