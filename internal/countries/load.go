// internal/countries/load.go
//
// Loads the country dataset into a trade.Graph.
//
// Sources:
//   1. A file path (COUNTRIES_FILE), read on every Load call.
//   2. Otherwise the dataset embedded in assets/countries.json.
//
// The embedded graph is built once (sync.Once) and shared; it never changes.

package countries

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tradeloop/assets"
	"github.com/robalobadob/tradeloop/internal/trade"
)

var (
	embeddedOnce  sync.Once
	embeddedGraph *trade.Graph
	embeddedErr   error
)

// Embedded returns the graph built from the bundled dataset.
func Embedded() (*trade.Graph, error) {
	embeddedOnce.Do(func() {
		data, err := assets.CountriesJSON()
		if err != nil {
			embeddedErr = fmt.Errorf("countries: read embedded dataset: %w", err)
			return
		}
		embeddedGraph, embeddedErr = Parse(data)
	})
	return embeddedGraph, embeddedErr
}

// Load reads path, or falls back to the embedded dataset when path is empty.
func Load(path string) (*trade.Graph, error) {
	if path == "" {
		return Embedded()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("countries: read %s: %w", path, err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("countries: %s: %w", path, err)
	}
	log.Info().Str("file", path).Int("countries", g.Len()).Msg("country dataset loaded")
	return g, nil
}

// Parse decodes a dataset and builds its graph.
func Parse(data []byte) (*trade.Graph, error) {
	list, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return trade.NewGraph(list)
}
