package ingestion

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/poiesic/wayfind/core"
)

// GTFS feed files read by the importer.
const (
	routesFile    = "routes.txt"
	tripsFile     = "trips.txt"
	stopTimesFile = "stop_times.txt"
	stopsFile     = "stops.txt"
)

// DedupeTolerance is how close, in degrees on both axes, a stop must be to an
// existing bus utility to count as the same stop (about 11 meters).
const DedupeTolerance = 0.0001

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	North float64 `yaml:"north"`
	South float64 `yaml:"south"`
	East  float64 `yaml:"east"`
	West  float64 `yaml:"west"`
}

// CampusBounds covers the UBC Vancouver campus.
var CampusBounds = Bounds{
	North: 49.292569,
	South: 49.236203,
	East:  -123.195687,
	West:  -123.285719,
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p core.Position) bool {
	return p.Lat >= b.South && p.Lat <= b.North &&
		p.Lng >= b.West && p.Lng <= b.East
}

// near reports whether two positions are within tolerance on both axes.
func near(a, b core.Position, tolerance float64) bool {
	return math.Abs(a.Lat-b.Lat) < tolerance && math.Abs(a.Lng-b.Lng) < tolerance
}

// gtfsStop is one row of stops.txt.
type gtfsStop struct {
	id       string
	name     string
	position core.Position
}

// readRows calls fn for every data row of a GTFS file, skipping the header.
func readRows(fsys fs.FS, name string, fn func(row []string) error) error {
	f, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingFeedFile, name)
		}
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s: %w", name, err)
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformedRow, name, err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// parseRoutes maps route_id to route_short_name. Routes without a short name are left out.
func parseRoutes(fsys fs.FS) (map[string]string, error) {
	routes := make(map[string]string)
	err := readRows(fsys, routesFile, func(row []string) error {
		if len(row) < 3 {
			return nil
		}
		if shortName := strings.TrimSpace(row[2]); shortName != "" {
			routes[row[0]] = shortName
		}
		return nil
	})
	return routes, err
}

// parseTrips maps trip_id to route_id.
func parseTrips(fsys fs.FS) (map[string]string, error) {
	trips := make(map[string]string)
	err := readRows(fsys, tripsFile, func(row []string) error {
		if len(row) < 3 {
			return nil
		}
		trips[row[2]] = row[0]
		return nil
	})
	return trips, err
}

// parseStopTimes maps stop_id to the set of route_ids serving it.
func parseStopTimes(fsys fs.FS, trips map[string]string) (map[string]map[string]struct{}, error) {
	stopRoutes := make(map[string]map[string]struct{})
	err := readRows(fsys, stopTimesFile, func(row []string) error {
		if len(row) < 4 {
			return nil
		}
		routeID, ok := trips[row[0]]
		if !ok {
			return nil
		}
		stopID := row[3]
		routes, ok := stopRoutes[stopID]
		if !ok {
			routes = make(map[string]struct{})
			stopRoutes[stopID] = routes
		}
		routes[routeID] = struct{}{}
		return nil
	})
	return stopRoutes, err
}

// parseStops reads stops.txt in file order. Rows with unparseable coordinates are skipped.
func parseStops(fsys fs.FS) ([]gtfsStop, error) {
	var stops []gtfsStop
	err := readRows(fsys, stopsFile, func(row []string) error {
		if len(row) < 6 {
			return nil
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		if err != nil {
			return nil
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
		if err != nil {
			return nil
		}
		stops = append(stops, gtfsStop{
			id:       row[0],
			name:     row[2],
			position: core.Position{Lat: lat, Lng: lng},
		})
		return nil
	})
	return stops, err
}

// routeNumber is the number formed by the digits of a route name, or 0.
func routeNumber(name string) int {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, name)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// formatRoutes renders the routes serving a stop as "Route 99" or
// "Routes 4, 14, 99", ordered by route number. Returns "" when no route is named.
func formatRoutes(routeIDs map[string]struct{}, routeNames map[string]string) string {
	names := make([]string, 0, len(routeIDs))
	for id := range routeIDs {
		if name, ok := routeNames[id]; ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	slices.SortStableFunc(names, func(a, b string) int {
		return cmp.Compare(routeNumber(a), routeNumber(b))
	})

	switch len(names) {
	case 0:
		return ""
	case 1:
		return "Route " + names[0]
	default:
		return "Routes " + strings.Join(names, ", ")
	}
}
