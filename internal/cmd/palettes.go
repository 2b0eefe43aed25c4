package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/spheretex/internal/palette"
)

var palettesCmd = &cobra.Command{
	Use:   "palettes",
	Short: "List the named color palettes",
	RunE:  runPalettes,
}

func init() {
	rootCmd.AddCommand(palettesCmd)
}

func runPalettes(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTOPS\tCOLORS")

	for _, name := range palette.Names() {
		pal, err := palette.Lookup(name)
		if err != nil {
			return err
		}
		var colors string
		for i, stop := range pal.Stops() {
			if i > 0 {
				colors += " "
			}
			colors += fmt.Sprintf("#%02x%02x%02x", stop.Color.R, stop.Color.G, stop.Color.B)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, pal.Len(), colors)
	}

	return w.Flush()
}
