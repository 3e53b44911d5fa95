package ingestion

import (
	"testing"
	"testing/fstest"

	"github.com/poiesic/wayfind/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFeed() fstest.MapFS {
	return fstest.MapFS{
		"routes.txt": {Data: []byte(
			"route_id,agency_id,route_short_name,route_long_name\n" +
				"6612,1,99,UBC/Commercial-Broadway\n" +
				"6613,1,4,UBC/Powell\n" +
				"6614,1,14,UBC/Hastings\n" +
				"6615,1,,Unnamed\n")},
		"trips.txt": {Data: []byte(
			"route_id,service_id,trip_id\n" +
				"6612,1,T1\n" +
				"6613,1,T2\n" +
				"6614,1,T3\n" +
				"6615,1,T4\n")},
		"stop_times.txt": {Data: []byte(
			"trip_id,arrival_time,departure_time,stop_id\n" +
				"T1,08:00:00,08:00:00,S1\n" +
				"T2,08:05:00,08:05:00,S1\n" +
				"T3,08:10:00,08:10:00,S1\n" +
				"T1,08:15:00,08:15:00,S2\n" +
				"T4,08:20:00,08:20:00,S4\n" +
				"T9,08:25:00,08:25:00,S4\n")},
		"stops.txt": {Data: []byte(
			"stop_id,stop_code,stop_name,stop_desc,stop_lat,stop_lon\n" +
				"S1,50001,UBC Exchange @ Bay 12,,49.2660,-123.2460\n" +
				"S2,50002,\"Wesbrook Mall @ 16th, EB\",,49.2550,-123.2370\n" +
				"S3,50003,Waterfront Station,,49.2857,-123.1115\n" +
				"S4,50004,Thunderbird Blvd,,49.2600,-123.2500\n" +
				"S5,50005,UBC Exchange @ Bay 12 (duplicate),,49.26605,-123.24605\n" +
				"S6,50006,Broken Row,,north,west\n")},
	}
}

func TestParseRoutes(t *testing.T) {
	routes, err := parseRoutes(testFeed())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"6612": "99", "6613": "4", "6614": "14"}, routes)
}

func TestParseTrips(t *testing.T) {
	trips, err := parseTrips(testFeed())
	require.NoError(t, err)
	assert.Equal(t, "6612", trips["T1"])
	assert.Len(t, trips, 4)
}

func TestParseStopTimes(t *testing.T) {
	feed := testFeed()
	trips, err := parseTrips(feed)
	require.NoError(t, err)

	stopRoutes, err := parseStopTimes(feed, trips)
	require.NoError(t, err)
	assert.Len(t, stopRoutes["S1"], 3)
	assert.Len(t, stopRoutes["S2"], 1)
	// T9 has no trip, only T4's route is recorded
	assert.Equal(t, map[string]struct{}{"6615": {}}, stopRoutes["S4"])
}

func TestParseStops(t *testing.T) {
	stops, err := parseStops(testFeed())
	require.NoError(t, err)
	require.Len(t, stops, 5, "rows with bad coordinates are dropped")
	assert.Equal(t, "S1", stops[0].id)
	assert.Equal(t, "Wesbrook Mall @ 16th, EB", stops[1].name)
	assert.InDelta(t, 49.2550, stops[1].position.Lat, 1e-9)
}

func TestReadRows_MissingFile(t *testing.T) {
	_, err := parseRoutes(fstest.MapFS{})
	assert.ErrorIs(t, err, ErrMissingFeedFile)
}

func TestFormatRoutes(t *testing.T) {
	names := map[string]string{"a": "99", "b": "4", "c": "14", "d": "R4", "e": "N10"}

	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"none", nil, ""},
		{"unnamed routes only", []string{"zz"}, ""},
		{"single", []string{"a"}, "Route 99"},
		{"numeric order", []string{"a", "b", "c"}, "Routes 4, 14, 99"},
		{"letters ignored for ordering", []string{"e", "a", "d"}, "Routes R4, N10, 99"},
		{"equal numbers tie break by name", []string{"d", "b"}, "Routes 4, R4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make(map[string]struct{})
			for _, id := range tt.ids {
				ids[id] = struct{}{}
			}
			assert.Equal(t, tt.want, formatRoutes(ids, names))
		})
	}
}

func TestRouteNumber(t *testing.T) {
	assert.Equal(t, 99, routeNumber("99"))
	assert.Equal(t, 4, routeNumber("R4"))
	assert.Equal(t, 0, routeNumber("Night"))
	assert.Equal(t, 0, routeNumber(""))
}

func TestBoundsContains(t *testing.T) {
	tests := []struct {
		name string
		pos  core.Position
		want bool
	}{
		{"campus center", core.Position{Lat: 49.2606, Lng: -123.2460}, true},
		{"north edge", core.Position{Lat: CampusBounds.North, Lng: -123.2460}, true},
		{"west edge", core.Position{Lat: 49.2606, Lng: CampusBounds.West}, true},
		{"downtown", core.Position{Lat: 49.2857, Lng: -123.1115}, false},
		{"too far south", core.Position{Lat: 49.2, Lng: -123.2460}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CampusBounds.Contains(tt.pos))
		})
	}
}

func TestNear(t *testing.T) {
	base := core.Position{Lat: 49.26741, Lng: -123.24795}
	assert.True(t, near(base, core.Position{Lat: 49.26745, Lng: -123.24790}, DedupeTolerance))
	assert.False(t, near(base, core.Position{Lat: 49.26760, Lng: -123.24795}, DedupeTolerance))
	assert.False(t, near(base, core.Position{Lat: 49.26741, Lng: -123.24780}, DedupeTolerance))
}
