package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	shapefile "github.com/tingold/orb-shapefile"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file.shp>",
	Short: "Print records as GeoJSON",
	Long: `Print the records of a shapefile as a GeoJSON FeatureCollection.
Null records are left out.

Examples:
  shpinfo dump roads.shp
  shpinfo dump --record 12 roads.shp
  shpinfo dump --bbox -74.1,40.6,-73.8,40.9 roads.shp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, _ := cmd.Flags().GetInt("record")
		bbox, _ := cmd.Flags().GetString("bbox")
		indent, _ := cmd.Flags().GetBool("indent")

		r, err := openReader(cmd, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		var records []*shapefile.Record
		switch {
		case number > 0:
			rec, err := r.Record(number - 1)
			if err != nil {
				return err
			}
			records = []*shapefile.Record{rec}

		case bbox != "":
			bound, err := parseBound(bbox)
			if err != nil {
				return err
			}
			if records, err = r.Search(cmd.Context(), bound); err != nil {
				return err
			}

		default:
			if records, err = r.ReadAll(cmd.Context()); err != nil {
				return err
			}
		}

		return writeFeatures(cmd.OutOrStdout(), records, indent)
	},
}

func init() {
	dumpCmd.Flags().IntP("record", "r", 0, "Print only this record (1-based, needs the .shx index)")
	dumpCmd.Flags().StringP("bbox", "b", "", "Print only records intersecting minx,miny,maxx,maxy")
	dumpCmd.Flags().Bool("indent", false, "Indent the GeoJSON output")
	rootCmd.AddCommand(dumpCmd)
}

func writeFeatures(w io.Writer, records []*shapefile.Record, indent bool) error {
	fc := geojson.NewFeatureCollection()
	for _, rec := range records {
		if f := rec.Feature(); f != nil {
			fc.Append(f)
		}
	}
	return printCollection(w, fc, indent)
}

func printCollection(w io.Writer, fc *geojson.FeatureCollection, indent bool) error {
	var data []byte
	var err error
	if indent {
		data, err = json.MarshalIndent(fc, "", "  ")
	} else {
		data, err = json.Marshal(fc)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

// parseBound parses "minx,miny,maxx,maxy".
func parseBound(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox %q: expected minx,miny,maxx,maxy", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}

	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, fmt.Errorf("bbox %q: min greater than max", s)
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
