package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/tradeloop/internal/bestscore"
	"github.com/robalobadob/tradeloop/internal/countries"
	"github.com/robalobadob/tradeloop/internal/daily"
	"github.com/robalobadob/tradeloop/internal/game"
	"github.com/robalobadob/tradeloop/internal/tui"
)

var (
	playEphemeral bool
	playDaily     bool
	playPlayer    string
	playLogFile   string
	playDelay     time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	Long: `Starts a game in the terminal.

Best scores go to the store configured by DB_DRIVER/DB_DSN unless
--ephemeral is given. --daily plays today's seeded game, the same one
every player gets on this UTC date.`,
	RunE: runPlay,
}

func init() {
	f := playCmd.Flags()
	f.BoolVar(&playEphemeral, "ephemeral", false, "keep best scores in memory only")
	f.BoolVar(&playDaily, "daily", false, "play today's daily game")
	f.StringVar(&playPlayer, "player", defaultPlayer(), "player name for best scores")
	f.StringVar(&playLogFile, "log-file", "", "write logs here (default: discard)")
	f.DurationVar(&playDelay, "advance-delay", tui.DefaultAdvanceDelay, "pause after an incorrect guess (0 waits for a key)")
}

func defaultPlayer() string {
	if u := os.Getenv("USER"); u != "" {
		return "local:" + u
	}
	return "local"
}

func runPlay(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The screen belongs to the UI; logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if playLogFile != "" {
		f, err := os.OpenFile(playLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	log.Logger = log.Output(out)

	g, err := countries.Load(cfg.CountriesFile)
	if err != nil {
		return err
	}

	var best bestscore.Store = bestscore.NewMemory()
	if !playEphemeral {
		s, closeBest, err := openBestStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeBest()
		best = s
	}

	opts := []game.Option{game.WithRules(cfg.Rules)}
	if playDaily {
		now := time.Now()
		opts = append(opts, game.WithRand(game.NewSeededRand(daily.Seed(now, cfg.DailySalt))))
		log.Info().Str("date", daily.DateKey(now)).Msg("daily game")
	}
	e, err := game.NewEngine(g, opts...)
	if err != nil {
		return err
	}

	return tui.Run(ctx, tui.New(e, best, playPlayer).WithAdvanceDelay(playDelay))
}
