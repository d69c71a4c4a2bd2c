package cmd

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tingold/orb-shapefile/fgb"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <file.shp> <out.fgb>",
	Short: "Convert a shapefile to FlatGeobuf",
	Long: `Convert every non-null record of a shapefile to a FlatGeobuf feature.
Features carry the source record number and shape type as properties.

Example:
  shpinfo convert --wgs84 roads.shp roads.fgb`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		name, _ := cmd.Flags().GetString("name")
		noIndex, _ := cmd.Flags().GetBool("no-index")
		wgs84, _ := cmd.Flags().GetBool("wgs84")

		r, err := openReader(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		opts := &fgb.Options{
			Name:         name,
			IncludeIndex: !noIndex,
		}
		if wgs84 {
			opts.CRS = fgb.WGS84()
		}

		out, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, out.Close()) }()

		bw := bufio.NewWriter(out)
		if err := fgb.WriteShapefile(cmd.Context(), bw, r, opts); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}

		readerOptions(cmd).Logger.Debug("converted", "from", args[0], "to", args[1])
		return nil
	},
}

func init() {
	convertCmd.Flags().StringP("name", "n", "", "Layer name (defaults to the input file name)")
	convertCmd.Flags().Bool("no-index", false, "Skip the packed R-tree index")
	convertCmd.Flags().Bool("wgs84", false, "Tag the output with EPSG:4326")
	rootCmd.AddCommand(convertCmd)
}
