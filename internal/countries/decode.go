// internal/countries/decode.go
//
// Decodes the country dataset into trade.Country values.
// Responsibilities:
//   - Accept the raw JSON shape: name -> {code, coordinates, tradeLinks|exports}.
//   - Coerce numeric fields that arrive as strings, null or garbage to numbers (0 on failure).
//   - Treat NaN and infinite values as 0.
//   - Drop self-links and links to countries missing from the file.
//   - Raise a total that is smaller than its top-product value.
//   - Normalise legacy ISO codes.
//
// Dataset example:
//   {
//     "Canada": {
//       "code": "CA",
//       "coordinates": [56.1, -106.3],
//       "tradeLinks": {
//         "United States": {"totalTrade": 356000000, "topProductValue": 120000000, "topProduct": "Oil"}
//       }
//     }
//   }

package countries

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tradeloop/internal/trade"
)

// number decodes a finite JSON number or numeric string; anything else is 0.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
		b = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = 0
		return nil
	}
	*n = number(f)
	return nil
}

type rawLink struct {
	TotalTrade      number `json:"totalTrade"`
	TopProductValue number `json:"topProductValue"`
	TopProduct      string `json:"topProduct"`
}

type rawCountry struct {
	Code        string             `json:"code"`
	Coordinates []number           `json:"coordinates"`
	TradeLinks  map[string]rawLink `json:"tradeLinks"`
	Exports     map[string]rawLink `json:"exports"` // accepted alias of tradeLinks
}

// Decode parses a dataset and returns countries sorted by name, with every
// link cleaned so trade.NewGraph accepts them.
func Decode(data []byte) ([]trade.Country, error) {
	var raw map[string]rawCountry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("countries: decode dataset: %w", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]trade.Country, 0, len(raw))
	for _, name := range names {
		rc := raw[name]
		c := trade.Country{
			Name:    name,
			ISOCode: NormalizeCode(rc.Code),
			Exports: make(map[string]trade.TradeLink),
		}
		if len(rc.Coordinates) >= 2 {
			c.Coordinates = trade.Coordinates{Lat: float64(rc.Coordinates[0]), Lon: float64(rc.Coordinates[1])}
		}

		links := rc.TradeLinks
		if links == nil {
			links = rc.Exports
		}
		for partner, rl := range links {
			if partner == name {
				log.Warn().Str("country", name).Msg("dropping self-referential trade link")
				continue
			}
			if _, ok := raw[partner]; !ok {
				log.Warn().Str("country", name).Str("partner", partner).Msg("dropping trade link to unknown country")
				continue
			}
			total, top := float64(rl.TotalTrade), float64(rl.TopProductValue)
			if total < 0 {
				total = 0
			}
			if top < 0 {
				top = 0
			}
			if total < top {
				log.Debug().Str("country", name).Str("partner", partner).
					Float64("total", total).Float64("top", top).Msg("raising total to top product value")
				total = top
			}
			c.Exports[partner] = trade.TradeLink{
				TotalExportValue: total,
				TopProductValue:  top,
				TopProduct:       strings.TrimSpace(rl.TopProduct),
			}
		}
		out = append(out, c)
	}
	return out, nil
}
