package cmd

import (
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	shapefile "github.com/tingold/orb-shapefile"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shpinfo",
	Short: "Inspect and convert ESRI shapefiles",
	Long: `shpinfo reads ESRI shapefiles (.shp with an optional .shx index).

It prints the file header and index, dumps records as GeoJSON and
converts shapefiles to FlatGeobuf.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("strict", false, "Fail on recoverable format inconsistencies")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output")
}

// readerOptions builds shapefile options from the global flags. Format
// warnings are logged to the command's error stream.
func readerOptions(cmd *cobra.Command) *shapefile.Options {
	strict, _ := cmd.Flags().GetBool("strict")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix: "shpinfo",
		Level:  level,
	})

	return &shapefile.Options{
		Logger: slog.New(handler),
		Strict: strict,
	}
}

// openReader loads the shapefile at path along with its index, if any.
func openReader(cmd *cobra.Command, path string) (*shapefile.Reader, error) {
	opts := readerOptions(cmd)
	r, err := shapefile.NewReader(path, opts)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("opened shapefile",
		"path", path,
		"shape_type", r.Header().ShapeType.String(),
		"indexed", r.Index() != nil)
	return r, nil
}
