package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tingold/orb-shapefile/fgb"
)

// featuresCmd represents the features command
var featuresCmd = &cobra.Command{
	Use:   "features <file.fgb>",
	Short: "Print the features of a FlatGeobuf file as GeoJSON",
	Long: `Read back a FlatGeobuf file written by convert and print its features
as a GeoJSON FeatureCollection. The file needs its spatial index.

Examples:
  shpinfo features roads.fgb
  shpinfo features --bbox -74.1,40.6,-73.8,40.9 roads.fgb`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bbox, _ := cmd.Flags().GetString("bbox")
		indent, _ := cmd.Flags().GetBool("indent")

		r, err := fgb.NewReader(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		h := r.Header()
		readerOptions(cmd).Logger.Debug("opened", "path", args[0],
			"type", h.GeometryType, "features", h.FeaturesCount)

		if bbox == "" {
			fc, err := r.ReadAll()
			if err != nil {
				return err
			}
			return printCollection(cmd.OutOrStdout(), fc, indent)
		}

		bound, err := parseBound(bbox)
		if err != nil {
			return err
		}
		fc, err := r.Search(bound)
		if err != nil {
			return err
		}
		return printCollection(cmd.OutOrStdout(), fc, indent)
	},
}

func init() {
	featuresCmd.Flags().StringP("bbox", "b", "", "Print only features intersecting minx,miny,maxx,maxy")
	featuresCmd.Flags().Bool("indent", false, "Indent the GeoJSON output")
	rootCmd.AddCommand(featuresCmd)
}
