package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	shapefile "github.com/tingold/orb-shapefile"
	"github.com/tingold/orb-shapefile/fgb"
)

type City struct {
	Name      string
	Longitude float64
	Latitude  float64
}

var cities = []City{
	{"Tokyo", 139.6917, 35.6895},
	{"New York", -73.9857, 40.7484},
	{"London", -0.1276, 51.5074},
	{"Paris", 2.3522, 48.8566},
	{"Beijing", 116.4074, 39.9042},
	{"Moscow", 37.6173, 55.7558},
	{"São Paulo", -46.6333, -23.5505},
	{"Mumbai", 72.8777, 19.0760},
	{"Los Angeles", -118.2437, 34.0522},
	{"Shanghai", 121.4737, 31.2304},
	{"Istanbul", 28.9784, 41.0082},
	{"Buenos Aires", -58.3816, -34.6037},
	{"Cairo", 31.2357, 30.0444},
	{"Sydney", 151.2093, -33.8688},
	{"Berlin", 13.4050, 52.5200},
}

type layer struct {
	shp, shx, fgb, geojson []byte
}

func buildLayer(ctx context.Context, logger *log.Logger) (*layer, error) {
	geometries := make([]orb.Geometry, len(cities))
	for i, city := range cities {
		geometries[i] = orb.Point{city.Longitude, city.Latitude}
	}

	opts := shapefile.DefaultOptions()
	var shp, shx bytes.Buffer
	if err := shapefile.WriteWithIndex(&shp, &shx, geometries, opts); err != nil {
		return nil, fmt.Errorf("writing shapefile: %w", err)
	}

	r, err := shapefile.NewReaderFromData(shp.Bytes(), shx.Bytes(), opts)
	if err != nil {
		return nil, fmt.Errorf("reading shapefile: %w", err)
	}

	var fgbBuf bytes.Buffer
	fgbOpts := &fgb.Options{
		Name:         "world_cities",
		Description:  "Major world cities",
		IncludeIndex: false,
		CRS:          fgb.WGS84(),
	}
	if err := fgb.WriteShapefile(ctx, &fgbBuf, r, fgbOpts); err != nil {
		return nil, fmt.Errorf("converting to FlatGeobuf: %w", err)
	}

	fc, err := r.ReadFeatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading features: %w", err)
	}
	for i, f := range fc.Features {
		f.Properties["name"] = cities[i].Name
	}
	geo, err := json.Marshal(fc)
	if err != nil {
		return nil, err
	}

	logger.Info("layer ready",
		"records", len(fc.Features),
		"shp_bytes", shp.Len(),
		"shx_bytes", shx.Len(),
		"fgb_bytes", fgbBuf.Len(),
		"geojson_bytes", len(geo))

	return &layer{shp: shp.Bytes(), shx: shx.Bytes(), fgb: fgbBuf.Bytes(), geojson: geo}, nil
}

func serve(contentType string, data []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write(data)
	}
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "demo",
	})

	l, err := buildLayer(context.Background(), logger)
	if err != nil {
		logger.Fatal("failed to build layer", "err", err)
	}

	http.HandleFunc("/cities.shp", serve("application/octet-stream", l.shp))
	http.HandleFunc("/cities.shx", serve("application/octet-stream", l.shx))
	http.HandleFunc("/cities.fgb", serve("application/octet-stream", l.fgb))
	http.HandleFunc("/cities.geojson", serve("application/geo+json", l.geojson))

	logger.Info("server starting", "addr", "http://localhost:8080")
	logger.Fatal(http.ListenAndServe(":8080", nil))
}
