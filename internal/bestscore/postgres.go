package bestscore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tradeloop/assets"
)

// Postgres is a Store over a single pgx connection. pgx.Conn is not safe
// for concurrent use, so every call holds mu.
type Postgres struct {
	mu   sync.Mutex
	conn *pgx.Conn
}

// ConnectPostgres connects, checks the session and creates the schema.
// The caller must Close the store.
func ConnectPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var username, database string
	if err := conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("query postgres session: %w", err)
	}
	log.Info().Str("database", database).Str("user", username).Msg("connected to postgres")

	p := &Postgres{conn: conn}
	if err := p.ensureSchema(ctx); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return p, nil
}

// ensureSchema runs every embedded migration; they are all CREATE ... IF NOT EXISTS.
func (p *Postgres) ensureSchema(ctx context.Context) error {
	files, err := assets.Migrations()
	if err != nil {
		return err
	}
	for _, f := range files {
		body, err := assets.FS.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := p.conn.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", f, err)
		}
	}
	return nil
}

func (p *Postgres) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.Close(ctx)
}

func (p *Postgres) Best(ctx context.Context, playerID string) (float64, error) {
	if playerID == "" {
		return 0, ErrNoPlayer
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.best(ctx, playerID)
}

func (p *Postgres) best(ctx context.Context, playerID string) (float64, error) {
	var best float64
	err := p.conn.QueryRow(ctx, `SELECT score FROM best_scores WHERE player_id = $1`, playerID).Scan(&best)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return best, err
}

func (p *Postgres) Record(ctx context.Context, playerID string, score float64) (float64, bool, error) {
	if playerID == "" {
		return 0, false, ErrNoPlayer
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if score <= 0 {
		best, err := p.best(ctx, playerID)
		return best, false, err
	}

	q := `
	INSERT INTO best_scores (player_id, score, updated_at) VALUES ($1, $2, now())
	ON CONFLICT (player_id) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at
	WHERE excluded.score > best_scores.score
	RETURNING score;
	`
	var stored float64
	err := p.conn.QueryRow(ctx, q, playerID, score).Scan(&stored)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("record best score: %w", err)
	}
	best, err := p.best(ctx, playerID)
	return best, false, err
}

func (p *Postgres) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultTop
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	rows, err := p.conn.Query(ctx, `
	SELECT player_id, score, updated_at FROM best_scores
	ORDER BY score DESC, updated_at ASC
	LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query best scores: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PlayerID, &e.Score, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan best score: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
