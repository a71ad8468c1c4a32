// internal/game/engine.go
//
// Streak engine for a single trade-chain game.
// Responsibilities:
//   - Pick streak starts and offer options each round.
//   - Record the player's first/second choice and judge the guess.
//   - Score, extend or reset the streak, and detect loop closure.
//   - Emit events for presentation (options, results, links).
//
// Notes:
//   - An Engine is single-threaded. Callers that share one across
//     goroutines wrap it in a Session.
//   - A returned error leaves the engine unchanged. Transitions that can only
//     fail after moving on (a dead end nobody can be reselected out of) roll
//     back to their entry state; events already emitted are not retracted.
//   - The engine does no I/O. Best-score persistence happens in the caller
//     when SubmitGuess reports LoopClosed.

package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/robalobadob/tradeloop/internal/trade"
)

// Engine holds the chain, streak and score of one player.
type Engine struct {
	graph     *trade.Graph
	rules     Rules
	rng       Rand
	selector  *Selector
	generator *OptionGenerator
	listeners []Listener

	state   State
	current *trade.Country
	start   *trade.Country // nil when no streak is active
	chain   []string
	edges   []Edge
	streak  int
	score   float64
	offered []string
	first   int // index into offered, -1 when unset
	second  int
	last    *RoundResult
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules overrides DefaultRules.
func WithRules(r Rules) Option { return func(e *Engine) { e.rules = r } }

// WithRand sets the randomness source.
func WithRand(r Rand) Option { return func(e *Engine) { e.rng = r } }

// WithListener subscribes l before the first round is offered.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

// NewEngine starts a game on g: a streak start is picked and the first
// options are offered. It fails with ErrInsufficientData when no country
// has enough trading partners.
func NewEngine(g *trade.Graph, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInsufficientData)
	}
	e := &Engine{graph: g, rules: DefaultRules(), first: -1, second: -1}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = globalRand{}
	}
	e.selector = NewSelector(e.rules, e.rng)
	e.generator = NewOptionGenerator(e.rules, e.rng)

	if err := e.startFreshStreak(); err != nil {
		return nil, err
	}
	if err := e.enterRound(); err != nil {
		return nil, err
	}
	return e, nil
}

// Subscribe adds a listener.
func (e *Engine) Subscribe(l Listener) { e.listeners = append(e.listeners, l) }

// Graph returns the graph the engine plays on.
func (e *Engine) Graph() *trade.Graph { return e.graph }

// Rules returns the engine's rules.
func (e *Engine) Rules() Rules { return e.rules }

func (e *Engine) State() State   { return e.state }
func (e *Engine) Score() float64 { return e.score }
func (e *Engine) Streak() int    { return e.streak }

// Current returns the country the player stands on.
func (e *Engine) Current() *trade.Country { return e.current }

// Options returns a copy of the offered partner names.
func (e *Engine) Options() []string { return append([]string(nil), e.offered...) }

// RecordChoice tags the option at index as the first, then the second choice.
func (e *Engine) RecordChoice(index int) error {
	if e.state != StateAwaitingFirstChoice && e.state != StateAwaitingSecondChoice {
		return fmt.Errorf("%w: cannot choose in state %s", ErrInvalidState, e.state)
	}
	if index < 0 || index >= len(e.offered) {
		return fmt.Errorf("%w: option %d out of range (have %d)", ErrInvalidState, index, len(e.offered))
	}
	if index == e.first {
		return fmt.Errorf("%w: option %d already chosen", ErrInvalidState, index)
	}
	if e.first < 0 {
		e.first = index
		e.state = StateAwaitingSecondChoice
		return nil
	}
	e.second = index
	e.state = StateAwaitingSubmit
	return nil
}

// ResetChoices clears pending choices. Score, streak and country are kept.
func (e *Engine) ResetChoices() error {
	switch e.state {
	case StateAwaitingFirstChoice, StateAwaitingSecondChoice, StateAwaitingSubmit:
	default:
		return fmt.Errorf("%w: nothing to reset in state %s", ErrInvalidState, e.state)
	}
	e.clearChoices()
	e.state = StateAwaitingFirstChoice
	return nil
}

// SubmitGuess judges "current exports more to the first choice than to the
// second". A correct guess scores and moves the player to the first choice
// (or closes the loop); an incorrect one wipes score and streak and leaves
// the engine in StateResolvedIncorrect until AdvanceAfterIncorrect.
func (e *Engine) SubmitGuess() (RoundResult, error) {
	if e.state != StateAwaitingSubmit {
		return RoundResult{}, fmt.Errorf("%w: submit needs two choices (state %s)", ErrInvalidState, e.state)
	}
	firstName, secondName := e.offered[e.first], e.offered[e.second]
	out, err := Evaluate(e.graph, e.current, firstName, secondName)
	if err != nil {
		return RoundResult{}, err
	}
	res := RoundResult{
		Correct: out.FirstWins(),
		From:    e.current.Name,
		Detail: RoundDetail{
			ChosenName:    firstName,
			OtherName:     secondName,
			ChosenValue:   out.ValueA,
			OtherValue:    out.ValueB,
			ChosenProduct: out.LinkA.TopProduct,
			OtherProduct:  out.LinkB.TopProduct,
		},
	}
	if !res.Correct {
		e.resolveIncorrect(&res)
		return res, nil
	}

	next, err := e.graph.Lookup(firstName)
	if err != nil {
		return RoundResult{}, err
	}
	saved := *e
	from := e.current
	res.Points = e.award()
	e.score += res.Points
	e.streak++
	e.chain = append(e.chain, from.Name)
	e.edges = append(e.edges, Edge{From: from.Name, To: next.Name, Product: out.LinkA.TopProduct})
	res.Score, res.Streak = e.score, e.streak
	res.LoopClosed = e.start != nil && next.Name == e.start.Name && e.streak >= e.rules.MinLoopLength
	e.last = &res
	e.clearChoices()

	e.emit(EventRoundResolved, RoundResolvedPayload{Correct: true, Detail: res.Detail})
	e.emit(EventLinkEstablished, LinkEstablishedPayload{
		From: from.Name, To: next.Name,
		FromPos: from.Coordinates, ToPos: next.Coordinates,
		Product: out.LinkA.TopProduct,
	})

	if res.LoopClosed {
		e.state = StateLoopClosed
		e.offered = nil
		e.emit(EventLoopClosed, LoopClosedPayload{
			FinalScore:   e.score,
			StreakLength: e.streak,
			StartCountry: e.start.Name,
		})
		return res, nil
	}

	e.current = next
	if err := e.enterRound(); err != nil {
		*e = saved
		return RoundResult{}, err
	}
	return res, nil
}

func (e *Engine) resolveIncorrect(res *RoundResult) {
	e.score = 0
	e.streak = 0
	e.start = nil
	e.chain = nil
	e.edges = nil
	e.offered = nil
	e.clearChoices()
	e.state = StateResolvedIncorrect
	e.last = res
	e.emit(EventRoundResolved, RoundResolvedPayload{Correct: false, Detail: res.Detail})
	e.emit(EventAllLinksCleared, AllLinksClearedPayload{})
}

// AdvanceAfterIncorrect begins a new streak after an incorrect guess.
// Any delay before calling it is the presentation's business.
func (e *Engine) AdvanceAfterIncorrect() error {
	if e.state != StateResolvedIncorrect {
		return fmt.Errorf("%w: no incorrect guess to advance from (state %s)", ErrInvalidState, e.state)
	}
	saved := *e
	if err := e.startFreshStreak(); err != nil {
		return err
	}
	if err := e.enterRound(); err != nil {
		*e = saved
		return err
	}
	return nil
}

// ResetGame zeroes score and streak and starts over. Allowed in any state;
// it is the only way out of StateLoopClosed.
func (e *Engine) ResetGame() error {
	start, err := e.selector.PickStreakStart(e.graph.Countries())
	if err != nil {
		return err
	}
	saved := *e
	e.score = 0
	e.last = nil
	e.edges = nil
	e.emit(EventAllLinksCleared, AllLinksClearedPayload{})
	e.beginStreakAt(start)
	if err := e.enterRound(); err != nil {
		*e = saved
		return err
	}
	return nil
}

// Snapshot returns a copy of the engine state for rendering.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		State:   e.state,
		Chain:   append([]string{}, e.chain...),
		Edges:   append([]Edge{}, e.edges...),
		Streak:  e.streak,
		Score:   e.score,
		Options: append([]string{}, e.offered...),
	}
	if e.current != nil {
		s.Current = e.current.Name
		s.CurrentISO = e.current.ISOCode
	}
	if e.start != nil {
		s.StreakStart = e.start.Name
	}
	if e.first >= 0 && e.first < len(e.offered) {
		s.FirstChoice = e.offered[e.first]
	}
	if e.second >= 0 && e.second < len(e.offered) {
		s.SecondChoice = e.offered[e.second]
	}
	if e.last != nil {
		last := *e.last
		s.LastRound = &last
	}
	return s
}

// ----------------------------- internals -----------------------------------

// award is the score for the next correct guess, rounded to cents.
func (e *Engine) award() float64 {
	p := e.rules.BasePoints * (1 + float64(e.streak)*e.rules.StreakMultiplier)
	return math.Round(p*100) / 100
}

func (e *Engine) startFreshStreak() error {
	start, err := e.selector.PickStreakStart(e.graph.Countries())
	if err != nil {
		return err
	}
	e.beginStreakAt(start)
	return nil
}

// beginStreakAt makes c the current country and the new streak start.
// Score is left alone; only an incorrect guess or ResetGame clears it.
func (e *Engine) beginStreakAt(c *trade.Country) {
	hadLinks := len(e.edges) > 0
	e.current = c
	e.start = c
	e.chain = nil
	e.edges = nil
	e.streak = 0
	if hadLinks {
		e.emit(EventAllLinksCleared, AllLinksClearedPayload{})
	}
}

// enterRound offers options for the current country. A dead end restarts
// the streak on a fresh hub country instead of failing.
func (e *Engine) enterRound() error {
	for attempt := 0; ; attempt++ {
		opts, err := e.generator.Generate(e.current, e.chain, e.streak, e.startName())
		if err == nil {
			e.offered = opts
			e.clearChoices()
			e.state = StateAwaitingFirstChoice
			e.emit(EventOptionsChanged, OptionsChangedPayload{
				Current:     e.current.Name,
				CurrentISO:  e.current.ISOCode,
				Coordinates: e.current.Coordinates,
				StreakStart: e.startName(),
				Options:     e.Options(),
			})
			return nil
		}
		if !errors.Is(err, ErrNeedsReselect) || attempt > e.graph.Len() {
			return err
		}
		if err := e.startFreshStreak(); err != nil {
			return err
		}
	}
}

func (e *Engine) startName() string {
	if e.start == nil {
		return ""
	}
	return e.start.Name
}

func (e *Engine) clearChoices() {
	e.first, e.second = -1, -1
}

func (e *Engine) emit(t EventType, payload any) {
	ev := Event{Type: t, Payload: payload}
	for _, l := range e.listeners {
		l.OnEvent(ev)
	}
}
