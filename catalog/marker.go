package catalog

import "github.com/poiesic/wayfind/core"

// Marker palette.
const (
	ColorPrimary         Color = "#3B82F6"
	ColorWarning         Color = "#FFA500"
	ColorDanger          Color = "#B91C1C"
	ColorNeutral         Color = "#6B7280"
	ColorOutline         Color = "#FFFFFF"
	ColorSelectedOutline Color = "#393424"
)

const (
	markerScale         = 8
	selectedMarkerScale = 12
	markerStrokeWeight  = 2
)

// MarkerStyle describes how a utility is drawn on the map.
type MarkerStyle struct {
	Fill         Color   `json:"fill"`
	FillOpacity  float64 `json:"fillOpacity"`
	Stroke       Color   `json:"stroke"`
	StrokeWeight int     `json:"strokeWeight"`
	Scale        int     `json:"scale"`
}

// StatusColor maps a status to its marker fill. Unknown statuses draw as working.
func StatusColor(s core.Status) Color {
	switch s {
	case core.StatusReported:
		return ColorWarning
	case core.StatusBroken:
		return ColorDanger
	case core.StatusMaintenance:
		return ColorNeutral
	default:
		return ColorPrimary
	}
}

// MarkerFor returns the marker style for u. A utility is drawn as selected
// when selectedID is non-empty and equals u.ID.
func MarkerFor(u core.Utility, selectedID string) MarkerStyle {
	style := MarkerStyle{
		Fill:         StatusColor(u.Status),
		FillOpacity:  1,
		Stroke:       ColorOutline,
		StrokeWeight: markerStrokeWeight,
		Scale:        markerScale,
	}
	if selectedID != "" && selectedID == u.ID {
		style.Stroke = ColorSelectedOutline
		style.Scale = selectedMarkerScale
	}
	return style
}
