// internal/bestscore/store.go
//
// Best-score persistence.
// Responsibilities:
//   - Keep one best loop score per player.
//   - Raise it only when a closed loop beats it (read-at-closure, write-if-greater).
//   - List the top players for the leaderboard.
//
// Implementations:
//   - Memory:   process-local map, used by tests and `play --ephemeral`.
//   - SQLite:   default for `serve` and `play` (see sqlite.go).
//   - Postgres: DB_DRIVER=postgres (see postgres.go).

package bestscore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNoPlayer is returned for an empty player ID.
var ErrNoPlayer = errors.New("bestscore: empty player id")

// Entry is one leaderboard row.
type Entry struct {
	PlayerID  string    `json:"playerId"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists best scores. A player with no record has a best of 0.
type Store interface {
	Best(ctx context.Context, playerID string) (float64, error)
	// Record stores score if it beats the player's best and returns the
	// resulting best and whether it changed.
	Record(ctx context.Context, playerID string, score float64) (best float64, improved bool, err error)
	Top(ctx context.Context, limit int) ([]Entry, error)
}

const defaultTop = 20

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	best map[string]Entry
}

func NewMemory() *Memory { return &Memory{best: make(map[string]Entry)} }

func (m *Memory) Best(_ context.Context, playerID string) (float64, error) {
	if playerID == "" {
		return 0, ErrNoPlayer
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.best[playerID].Score, nil
}

func (m *Memory) Record(_ context.Context, playerID string, score float64) (float64, bool, error) {
	if playerID == "" {
		return 0, false, ErrNoPlayer
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.best[playerID]
	if ok && score <= cur.Score {
		return cur.Score, false, nil
	}
	if !ok && score <= 0 {
		return 0, false, nil
	}
	m.best[playerID] = Entry{PlayerID: playerID, Score: score, UpdatedAt: time.Now().UTC()}
	return score, true, nil
}

func (m *Memory) Top(_ context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultTop
	}
	m.mu.RLock()
	out := make([]Entry, 0, len(m.best))
	for _, e := range m.best {
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
