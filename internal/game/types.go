// internal/game/types.go
//
// Core type definitions for the trade-chain engine.
// Defines:
//   - Rules: tuning constants (points, loop length, selection pools).
//   - State: the engine's round state machine.
//   - Snapshot: read-only copy of engine state for presentation.
//   - Error kinds shared by selector, option generator and engine.

package game

import (
	"errors"
	"math/rand/v2"
)

var (
	// ErrInvalidState is returned when an engine method is called out of sequence.
	ErrInvalidState = errors.New("game: invalid state")
	// ErrInsufficientData is returned when no country can start a streak.
	ErrInsufficientData = errors.New("game: insufficient data")
	// ErrNeedsReselect signals that fewer than two options could be formed.
	// The engine recovers from it by starting a fresh streak.
	ErrNeedsReselect = errors.New("game: needs reselect")
)

// Rules holds the tunable constants of the game.
type Rules struct {
	BasePoints        float64 `yaml:"base_points" json:"basePoints" validate:"gt=0"`
	StreakMultiplier  float64 `yaml:"streak_multiplier" json:"streakMultiplier" validate:"gte=0"`
	MinLoopLength     int     `yaml:"min_loop_length" json:"minLoopLength" validate:"gte=1"`
	MinPartners       int     `yaml:"min_partners" json:"minPartners" validate:"gte=2,lte=3"`
	StartPoolFraction float64 `yaml:"start_pool_fraction" json:"startPoolFraction" validate:"gt=0,lte=1"`
	MinStartPool      int     `yaml:"min_start_pool" json:"minStartPool" validate:"gte=1"`
	MaxOptions        int     `yaml:"max_options" json:"maxOptions" validate:"gte=2,lte=3"`
}

// DefaultRules mirrors the shipped rules.yaml.
func DefaultRules() Rules {
	return Rules{
		BasePoints:        100,
		StreakMultiplier:  0.1,
		MinLoopLength:     3,
		MinPartners:       3,
		StartPoolFraction: 0.6,
		MinStartPool:      3,
		MaxOptions:        3,
	}
}

// Rand is the randomness the engine needs. *rand.Rand from math/rand/v2
// satisfies it; tests pass a seeded one.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// globalRand delegates to the math/rand/v2 top-level source.
type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// NewSeededRand returns a deterministic source.
func NewSeededRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// State is the round state of an engine.
type State string

const (
	StateAwaitingFirstChoice  State = "awaiting_first_choice"
	StateAwaitingSecondChoice State = "awaiting_second_choice"
	StateAwaitingSubmit       State = "awaiting_submit"
	StateResolvedIncorrect    State = "resolved_incorrect"
	StateLoopClosed           State = "loop_closed"
)

// Edge is a traversed trade link, kept for rendering the chain.
type Edge struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Product string `json:"product"`
}

// RoundDetail describes a resolved guess from the player's point of view.
type RoundDetail struct {
	ChosenName    string  `json:"chosenName"`
	OtherName     string  `json:"otherName"`
	ChosenValue   float64 `json:"chosenValue"`
	OtherValue    float64 `json:"otherValue"`
	ChosenProduct string  `json:"chosenProduct"`
	OtherProduct  string  `json:"otherProduct"`
}

// RoundResult is returned by SubmitGuess.
type RoundResult struct {
	Correct    bool        `json:"correct"`
	Detail     RoundDetail `json:"detail"`
	Points     float64     `json:"points"`
	Score      float64     `json:"score"`
	Streak     int         `json:"streak"`
	LoopClosed bool        `json:"loopClosed"`
	From       string      `json:"from"`
}

// Snapshot is a read-only copy of engine state.
type Snapshot struct {
	State        State        `json:"state"`
	Current      string       `json:"current"`
	CurrentISO   string       `json:"currentIso"`
	StreakStart  string       `json:"streakStart,omitempty"`
	Chain        []string     `json:"chain"`
	Edges        []Edge       `json:"edges"`
	Streak       int          `json:"streak"`
	Score        float64      `json:"score"`
	Options      []string     `json:"options"`
	FirstChoice  string       `json:"firstChoice,omitempty"`
	SecondChoice string       `json:"secondChoice,omitempty"`
	LastRound    *RoundResult `json:"lastRound,omitempty"`
}
