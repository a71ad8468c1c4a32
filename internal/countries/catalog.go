// internal/countries/catalog.go
//
// Catalog holds the current country graph and lets it be swapped at runtime.
// Responsibilities:
//   - Hand out the latest graph to new games.
//   - Replace the graph when the dataset file changes (see Watcher).
//
// Notes:
//   - A swap never touches running games: each engine keeps the graph
//     it was created with.

package countries

import (
	"sync/atomic"

	"github.com/robalobadob/tradeloop/internal/trade"
)

// Catalog is safe for concurrent use.
type Catalog struct {
	path    string
	current atomic.Pointer[trade.Graph]
	loads   atomic.Int64
}

// NewCatalog loads path (or the embedded dataset when path is empty).
func NewCatalog(path string) (*Catalog, error) {
	g, err := Load(path)
	if err != nil {
		return nil, err
	}
	c := &Catalog{path: path}
	c.current.Store(g)
	c.loads.Store(1)
	return c, nil
}

// NewStaticCatalog wraps an existing graph. Reload is a no-op for it.
func NewStaticCatalog(g *trade.Graph) *Catalog {
	c := &Catalog{}
	c.current.Store(g)
	c.loads.Store(1)
	return c
}

// Graph returns the current graph.
func (c *Catalog) Graph() *trade.Graph { return c.current.Load() }

// Path is the dataset file, "" for the embedded one.
func (c *Catalog) Path() string { return c.path }

// Generation counts successful loads, starting at 1.
func (c *Catalog) Generation() int64 { return c.loads.Load() }

// Reload re-reads the dataset file. On failure the current graph is kept.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	g, err := Load(c.path)
	if err != nil {
		return err
	}
	c.current.Store(g)
	c.loads.Add(1)
	return nil
}
