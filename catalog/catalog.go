// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog is the fixed registry of utility categories.
//
// The registry is static, ordered, read-only data: a category id as stored in
// core.Utility.Type, a display label, and a color token. Icons are a
// presentation concern and are not part of the registry.
package catalog

// Color is a visual accent token in #RRGGBB form.
type Color string

// UnknownColor is returned for category ids that are not registered.
const UnknownColor Color = "#9CA3AF"

// Category is a single registry entry.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color Color  `json:"color"`
}

// Registered category ids.
const (
	Water     = "water"
	Microwave = "microwave"
	Bike      = "bike"
	Emergency = "emergency"
	Food      = "food"
	Parking   = "parking"
	Bus       = "bus"
)

var categories = []Category{
	{ID: Water, Label: "Water Stations", Color: "#3B82F6"},
	{ID: Microwave, Label: "Microwaves", Color: "#8B5CF6"},
	{ID: Bike, Label: "Bike Storage", Color: "#10B981"},
	{ID: Emergency, Label: "Emergency", Color: "#EF4444"},
	{ID: Food, Label: "Food & Drink", Color: "#F97316"},
	{ID: Parking, Label: "Parking Lots", Color: "#FACC15"},
	{ID: Bus, Label: "Bus Stops and Stations", Color: "#FFFFFF"},
}

// Categories returns a copy of the registry in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Lookup returns the category registered under id.
func Lookup(id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// IsKnown reports whether id is a registered category.
func IsKnown(id string) bool {
	_, ok := Lookup(id)
	return ok
}

// ColorForCategory returns the registered color for id, or UnknownColor.
func ColorForCategory(id string) Color {
	if c, ok := Lookup(id); ok {
		return c.Color
	}
	return UnknownColor
}

// ToggleCategory returns a new selection with id removed if it was selected,
// or appended if it was not. The input slice is never modified.
func ToggleCategory(selected []string, id string) []string {
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, s := range selected {
		if s == id {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, id)
	}
	return out
}
