package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	shapefile "github.com/tingold/orb-shapefile"
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <file.shp>",
	Short: "List the record offsets from the .shx index",
	Long: `List every entry of the .shx index next to a shapefile.
Offsets and lengths are in 16-bit words, as stored in the file.

Example:
  shpinfo index roads.shp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openReader(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		idx := r.Index()
		if idx == nil {
			return shapefile.ErrNoIndex
		}
		printIndex(cmd.OutOrStdout(), idx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func printIndex(w io.Writer, idx *shapefile.Index) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d records", idx.RecordCount())))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%8s %12s %10s", "record", "offset", "length")))
	for i, rec := range idx.Records {
		fmt.Fprintf(w, "%8d %12d %10d\n", i+1, rec.Offset, rec.ContentLength)
	}
}
