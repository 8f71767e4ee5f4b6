package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/netpac/internal/maps"
)

var mapsCmd = &cobra.Command{
	Use:   "maps",
	Short: "Load and validate the map directory",
	Long: `Loads every map in the map directory exactly as the server would and
prints its size and collectibles. Exits non-zero if any map is invalid.

Examples:
  netpac maps
  netpac maps -m ./maps`,
	Args: cobra.NoArgs,
	Run:  runMaps,
}

func runMaps(_ *cobra.Command, _ []string) {
	loaded, err := maps.LoadAll(flagMapsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Maps in %s", flagMapsDir)))
	fmt.Println(mapsTable(loaded))
	fmt.Println(dimStyle.Render("Maps are played in this order, then the rotation wraps."))
}

func mapsTable(loaded []*maps.Map) string {
	rows := make([][]string, 0, len(loaded))
	for i, m := range loaded {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Name(),
			strconv.Itoa(m.Width()),
			strconv.Itoa(m.Height()),
			strconv.Itoa(m.Count(maps.TileDot)),
			strconv.Itoa(m.Count(maps.TilePowerPellet) + m.Count(maps.TileInvincibility)),
		})
	}
	return renderTable([]string{"#", "Name", "Width", "Height", "Dots", "Powerups"}, rows, 0, 2, 3, 4, 5)
}
