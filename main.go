// main.go
//
// tradeloop CLI entry point.
// Commands:
//   - serve    HTTP + WebSocket game server (default when no command is given)
//   - play     play in the terminal
//   - inspect  look at the loaded dataset
//
// Configuration comes from .env and the environment (see internal/config);
// flags only override a few of those values.

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/tradeloop/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// cfg is loaded once by the root command before any subcommand runs.
var cfg config.Config

var prettyLogs bool

var rootCmd = &cobra.Command{
	Use:   "tradeloop",
	Short: "Trade-chain geography quiz: server and terminal client",
	Long: "tradeloop asks which trading partner a country exports more to, and\n" +
		"rewards streaks that loop back to the country they started from.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "human-readable console logs")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.Version = version
}

// loadConfig reads configuration and sets up the global logger.
func loadConfig(_ *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(); err != nil {
		return err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if prettyLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
