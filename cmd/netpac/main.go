// netpac is an authoritative multiplayer Pac-Man server speaking a small
// binary protocol over TCP.
//
// Usage:
//
//	netpac                   - Run the game server
//	netpac maps              - Load and validate the map directory
//	netpac play              - Join a server from this terminal
//	netpac scores            - Show the leaderboard from the round history
//	netpac rules             - Print the effective game rules as YAML
//
// Global flags:
//
//	-m, --maps <dir>   - Map directory (default: maps/)
//	-v                 - Verbose logging, repeat for caller info
//	--config <path>    - Rules YAML file
//	--db <path>        - Round history database (default: ~/.netpac/rounds.db)
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Global flags
	flagMapsDir string
	flagVerbose int
	flagConfig  string
	flagDBPath  string
	flagLogFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netpac",
	Short: "netpac - multiplayer Pac-Man server",
	Long: `netpac runs rounds of Pac-Man for any number of TCP clients.
Players are split between pacmen and ghosts; the server owns the game state
and streams it to every client.

Available commands:
  play     - Join a running server from this terminal
  maps     - Validate the map directory
  scores   - View the leaderboard or recent rounds
  rules    - Print the effective rules

Examples:
  netpac -p 8888 -m maps/
  netpac -vv --http :8080
  netpac --ssh :23234
  netpac play --addr localhost:8888 --name alice
  netpac maps -m ./maps
  netpac scores --recent`,
	Args:          cobra.NoArgs,
	Run:           runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagMapsDir, "maps", "m", "maps/", "Map directory")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "Verbose logging (-v debug, -vv debug with caller)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to rules YAML (default: search ~/.netpac/configs then ./configs)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.netpac/rounds.db", "Path to round history database (empty disables)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Also write logs to this file, with rotation")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(mapsCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(rulesCmd)
}

// logLevel maps the -v count to a level.
func logLevel(verbosity int) log.Level {
	if verbosity > 0 {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// newLogger builds the process logger. The returned func flushes and
// closes the log file, if any.
func newLogger(verbosity int, logFile string) (*log.Logger, func()) {
	var w io.Writer = os.Stderr
	cleanup := func() {}
	if logFile != "" {
		lj := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		}
		w = io.MultiWriter(os.Stderr, lj)
		cleanup = func() { _ = lj.Close() }
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    verbosity >= 2,
		Prefix:          "netpac",
		Level:           logLevel(verbosity),
	})
	return logger, cleanup
}
