package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/netpac/internal/platform/tui"
	"github.com/vovakirdan/netpac/internal/storage"
)

var (
	flagScoresLimit  int
	flagScoresRecent bool
	flagScoresTUI    bool
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Show the leaderboard or recent rounds",
	Long: `Display players ranked by total score across all recorded rounds,
or the most recent rounds with --recent.

Examples:
  netpac scores
  netpac scores --limit 25
  netpac scores --recent
  netpac scores -i`,
	Args: cobra.NoArgs,
	Run:  runScores,
}

func init() {
	scoresCmd.Flags().IntVarP(&flagScoresLimit, "limit", "n", 10, "Number of rows to show")
	scoresCmd.Flags().BoolVar(&flagScoresRecent, "recent", false, "Show recent rounds instead of the leaderboard")
	scoresCmd.Flags().BoolVarP(&flagScoresTUI, "interactive", "i", false, "Browse the history in an interactive view")
}

func runScores(_ *cobra.Command, _ []string) {
	if flagDBPath == "" {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: no database configured (--db)"))
		os.Exit(1)
	}

	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error opening round history: %v", err)))
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case flagScoresTUI:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			err = fmt.Errorf("--interactive needs a terminal")
			break
		}
		width, height, sizeErr := term.GetSize(int(os.Stdout.Fd()))
		if sizeErr != nil {
			width, height = 80, 24
		}
		err = tui.RunScoreboard(store, width, height)
	case flagScoresRecent:
		err = printRecent(store, flagScoresLimit)
	default:
		err = printLeaderboard(store, flagScoresLimit)
	}
	if err != nil {
		store.Close()
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}

func printLeaderboard(store *storage.Store, limit int) error {
	top, err := store.TopPlayers(limit)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Leaderboard"))
	if len(top) == 0 {
		fmt.Println("No rounds recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(top))
	for i, p := range top {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			p.Name,
			strconv.FormatInt(p.Total, 10),
			strconv.Itoa(p.Best),
			strconv.Itoa(p.Rounds),
		})
	}
	fmt.Println(renderTable([]string{"Rank", "Name", "Total", "Best", "Rounds"}, rows, 0, 2, 3, 4))
	return nil
}

func printRecent(store *storage.Store, limit int) error {
	rounds, err := store.RecentRounds(limit)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Recent rounds"))
	if len(rounds) == 0 {
		fmt.Println("No rounds recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(rounds))
	for _, r := range rounds {
		winner := r.WinnerRole
		if winner == "" {
			winner = "-"
		}
		rows = append(rows, []string{
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			r.MapName,
			r.Reason,
			winner,
			strconv.FormatUint(r.Ticks, 10),
			r.EndedAt.Sub(r.StartedAt).Round(time.Second).String(),
		})
	}
	fmt.Println(renderTable([]string{"Ended", "Map", "Reason", "Winner", "Ticks", "Duration"}, rows, 4))
	return nil
}
