package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	shapefile "github.com/tingold/orb-shapefile"
)

// headerCmd represents the header command
var headerCmd = &cobra.Command{
	Use:   "header <file.shp>",
	Short: "Print the shapefile header",
	Long: `Print the 100-byte header of a shapefile.

Example:
  shpinfo header roads.shp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openReader(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		printHeader(cmd.OutOrStdout(), args[0], r.Header())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(headerCmd)
}

func printHeader(w io.Writer, name string, h *shapefile.Header) {
	field := func(label, format string, a ...interface{}) {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label), fmt.Sprintf(format, a...))
	}

	fmt.Fprintln(w, titleStyle.Render(name))
	field("Shape type", "%s (%d)", h.ShapeType, int32(h.ShapeType))
	field("File length", "%d words (%d bytes)", h.FileLength, int64(h.FileLength)*2)
	field("Version", "%d", h.Version)
	field("Bounds", "[%g %g] [%g %g]", h.Bound.Min[0], h.Bound.Min[1], h.Bound.Max[0], h.Bound.Max[1])
	if h.ZRange != [2]float64{} {
		field("Z range", "[%g %g]", h.ZRange[0], h.ZRange[1])
	}
	if h.MRange != [2]float64{} {
		field("M range", "[%g %g]", h.MRange[0], h.MRange[1])
	}
}
