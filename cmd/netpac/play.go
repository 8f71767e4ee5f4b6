package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/netpac/internal/client"
	"github.com/vovakirdan/netpac/internal/platform/tui"
)

var (
	flagPlayAddr string
	flagPlayName string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Join a server from this terminal",
	Long: `Connect to a netpac server and play in the terminal.

Controls:
  arrows/wasd/hjkl  move
  t or enter        chat
  q                 quit

Examples:
  netpac play
  netpac play --addr pac.example.com:8888 --name alice`,
	Args: cobra.NoArgs,
	Run:  runPlay,
}

func init() {
	playCmd.Flags().StringVarP(&flagPlayAddr, "addr", "a", "localhost:8888", "Server address")
	playCmd.Flags().StringVarP(&flagPlayName, "name", "n", defaultPlayerName(), "Player name")
}

func defaultPlayerName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "player"
}

func runPlay(_ *cobra.Command, _ []string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: play needs an interactive terminal"))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := client.Dial(dialCtx, flagPlayAddr, flagPlayName)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %s", joinError(err))))
		os.Exit(1)
	}
	defer c.Close()

	if err := tui.Run(ctx, c); err != nil {
		c.Close()
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

// joinError turns a rejected join into something a player can act on.
func joinError(err error) string {
	switch {
	case errors.Is(err, client.ErrNameInUse):
		return fmt.Sprintf("the name %q is taken, try --name", flagPlayName)
	case errors.Is(err, client.ErrServerFull):
		return "the server is full"
	default:
		return err.Error()
	}
}
