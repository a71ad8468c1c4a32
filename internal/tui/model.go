// internal/tui/model.go
//
// Terminal presentation of a single game.
// Responsibilities:
//   - Render the engine snapshot (current country, options, chain, score).
//   - Map key presses to engine calls.
//   - Pause on an incorrect guess, then start the next streak.
//   - Offer the final score of a closed loop to the best-score store.
//
// Notes:
//   - The model runs inside the bubbletea event loop, which is the engine's
//     only caller. Store I/O happens in tea.Cmds and comes back as messages.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/tradeloop/internal/bestscore"
	"github.com/robalobadob/tradeloop/internal/countries"
	"github.com/robalobadob/tradeloop/internal/game"
)

// DefaultAdvanceDelay is how long an incorrect result stays on screen.
const DefaultAdvanceDelay = 2 * time.Second

const feedSize = 6

// advanceMsg fires after an incorrect guess. pause identifies the guess
// that scheduled it.
type advanceMsg struct{ pause int }

// bestMsg carries a best-score read or write back into the model.
type bestMsg struct {
	best     float64
	improved bool
	err      error
}

// feed collects engine events as display lines.
type feed struct {
	lines []string
}

func (f *feed) OnEvent(ev game.Event) {
	var line string
	switch p := ev.Payload.(type) {
	case game.LinkEstablishedPayload:
		line = fmt.Sprintf("%s → %s  %s %s", p.From, p.To, countries.ProductIcon(p.Product), p.Product)
	case game.LoopClosedPayload:
		line = fmt.Sprintf("loop closed at %s after %d links", p.StartCountry, p.StreakLength)
	case game.AllLinksClearedPayload:
		line = "links cleared"
	default:
		return
	}
	f.lines = append(f.lines, line)
	if len(f.lines) > feedSize {
		f.lines = f.lines[len(f.lines)-feedSize:]
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	countryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	chosenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	goodStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	badStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the bubbletea model for one game.
type Model struct {
	engine   *game.Engine
	best     bestscore.Store // nil disables best scores
	playerID string
	feed     *feed

	advanceDelay time.Duration
	pause        int // bumped on every incorrect guess; stale ticks are dropped
	bestScore    float64
	newBest      bool
	err          error
	quitting     bool
}

// New wraps an engine. best may be nil.
func New(e *game.Engine, best bestscore.Store, playerID string) Model {
	f := &feed{}
	e.Subscribe(f)
	return Model{
		engine:       e,
		best:         best,
		playerID:     playerID,
		feed:         f,
		advanceDelay: DefaultAdvanceDelay,
	}
}

// WithAdvanceDelay returns a copy of m with a different pause after an
// incorrect guess. Zero waits for a key press.
func (m Model) WithAdvanceDelay(d time.Duration) Model {
	m.advanceDelay = d
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.best == nil {
		return nil
	}
	store, player := m.best, m.playerID
	return func() tea.Msg {
		b, err := store.Best(context.Background(), player)
		return bestMsg{best: b, err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case advanceMsg:
		if msg.pause == m.pause && m.engine.State() == game.StateResolvedIncorrect {
			m.err = m.engine.AdvanceAfterIncorrect()
		}
		return m, nil

	case bestMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.best > m.bestScore {
			m.bestScore = msg.best
		}
		m.newBest = msg.improved
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "1", "2", "3":
		idx := int(msg.String()[0] - '1')
		m.err = m.engine.RecordChoice(idx)

	case "r":
		m.err = m.engine.ResetChoices()

	case "n":
		m.newBest = false
		m.err = m.engine.ResetGame()

	case "enter", " ", "c":
		switch m.engine.State() {
		case game.StateAwaitingSubmit:
			return m.submit()
		case game.StateResolvedIncorrect:
			m.err = m.engine.AdvanceAfterIncorrect()
		case game.StateLoopClosed:
			m.newBest = false
			m.err = m.engine.ResetGame()
		}
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	res, err := m.engine.SubmitGuess()
	if err != nil {
		m.err = err
		return m, nil
	}
	switch {
	case !res.Correct && m.advanceDelay > 0:
		m.pause++
		pause := m.pause
		return m, tea.Tick(m.advanceDelay, func(time.Time) tea.Msg { return advanceMsg{pause: pause} })
	case res.LoopClosed && m.best != nil:
		store, player, score := m.best, m.playerID, res.Score
		return m, func() tea.Msg {
			b, improved, err := store.Record(context.Background(), player, score)
			return bestMsg{best: b, improved: improved, err: err}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.engine.Snapshot()
	var b strings.Builder

	b.WriteString(titleStyle.Render("TRADELOOP"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %.2f   %s %d   %s %.2f\n",
		labelStyle.Render("score"), s.Score,
		labelStyle.Render("streak"), s.Streak,
		labelStyle.Render("best"), m.bestScore)

	if s.Current != "" {
		fmt.Fprintf(&b, "%s %s (%s)", labelStyle.Render("you are in"),
			countryStyle.Render(s.Current), countries.NormalizeCode(s.CurrentISO))
		if s.StreakStart != "" && s.StreakStart != s.Current {
			fmt.Fprintf(&b, "   %s %s", labelStyle.Render("loop back to"), s.StreakStart)
		}
		b.WriteString("\n")
	}
	if len(s.Chain) > 0 {
		b.WriteString(labelStyle.Render("chain "))
		b.WriteString(strings.Join(append(append([]string{}, s.Chain...), s.Current), " → "))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if r := m.resultLine(s); r != "" {
		b.WriteString(boxStyle.Render(r))
		b.WriteString("\n\n")
	}

	switch s.State {
	case game.StateAwaitingFirstChoice, game.StateAwaitingSecondChoice, game.StateAwaitingSubmit:
		fmt.Fprintf(&b, "%s exports more to ... ?\n", s.Current)
		for i, name := range s.Options {
			line := fmt.Sprintf("  [%d] %s", i+1, name)
			switch name {
			case s.FirstChoice:
				line = chosenStyle.Render(line + "  (first)")
			case s.SecondChoice:
				line = chosenStyle.Render(line + "  (second)")
			}
			b.WriteString(line + "\n")
		}
	case game.StateLoopClosed:
		msg := fmt.Sprintf("Loop closed! Final score %.2f", s.Score)
		if m.newBest {
			msg += "  (new best)"
		}
		b.WriteString(goodStyle.Render(msg) + "\n")
	}

	if len(m.feed.lines) > 0 {
		b.WriteString("\n")
		for _, l := range m.feed.lines {
			b.WriteString(helpStyle.Render("  "+l) + "\n")
		}
	}
	if m.err != nil && !errors.Is(m.err, game.ErrNeedsReselect) {
		b.WriteString("\n" + badStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(m.help(s.State)))
	return b.String()
}

// resultLine explains the last judged guess.
func (m Model) resultLine(s game.Snapshot) string {
	r := s.LastRound
	if r == nil {
		return ""
	}
	d := r.Detail
	if r.Correct {
		return fmt.Sprintf("%s  %s exports more to %s (%s, mostly %s) than to %s (%s). +%.2f",
			goodStyle.Render("Correct!"), r.From,
			d.ChosenName, formatMoney(d.ChosenValue), d.ChosenProduct,
			d.OtherName, formatMoney(d.OtherValue), r.Points)
	}
	hi, hiV, lo, loV := d.OtherName, d.OtherValue, d.ChosenName, d.ChosenValue
	if d.ChosenValue > d.OtherValue {
		hi, hiV, lo, loV = lo, loV, hi, hiV
	}
	if hiV == loV {
		return fmt.Sprintf("%s  %s exports the same to %s and %s (%s). A tie does not count.",
			badStyle.Render("Incorrect!"), r.From, hi, lo, formatMoney(hiV))
	}
	return fmt.Sprintf("%s  %s exports more to %s (%s) than to %s (%s). Difference %s",
		badStyle.Render("Incorrect!"), r.From, hi, formatMoney(hiV), lo, formatMoney(loV),
		formatMoney(hiV-loV))
}

func (m Model) help(st game.State) string {
	switch st {
	case game.StateAwaitingSubmit:
		return "enter submit • r reset choices • n new game • q quit"
	case game.StateResolvedIncorrect:
		return "enter continue • n new game • q quit"
	case game.StateLoopClosed:
		return "enter / n new game • q quit"
	default:
		return "1-3 pick first then second • r reset choices • n new game • q quit"
	}
}

// Run plays m until the user quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
