package search

import (
	"testing"

	"github.com/poiesic/wayfind/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUtilities() []core.Utility {
	return []core.Utility{
		{
			ID:          "1",
			Name:        "Water Fountain",
			Type:        "water",
			Building:    "Nest",
			Floor:       "1",
			Status:      core.StatusWorking,
			LastChecked: "2023-01-01",
		},
		{
			ID:          "2",
			Name:        "Microwave",
			Type:        "microwave",
			Building:    "Life",
			Floor:       "2",
			Status:      core.StatusWorking,
			LastChecked: "2023-01-01",
		},
		{
			ID:          "3",
			Name:        "Broken Fountain",
			Type:        "water",
			Building:    "Chemistry",
			Floor:       "1",
			Status:      core.StatusReported,
			Reports:     5,
			LastChecked: "2023-01-01",
		},
	}
}

func ids(utilities []core.Utility) []string {
	out := make([]string, len(utilities))
	for i, u := range utilities {
		out[i] = u.ID
	}
	return out
}

func TestSearch_EmptySelectionAndQuery(t *testing.T) {
	utilities := sampleUtilities()

	t.Run("empty query returns nothing", func(t *testing.T) {
		result := Search(utilities, nil, "")
		require.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("whitespace query returns nothing", func(t *testing.T) {
		assert.Empty(t, Search(utilities, []string{}, "   "))
		assert.Empty(t, Search(utilities, nil, "\t\n "))
	})

	t.Run("empty collection", func(t *testing.T) {
		assert.Empty(t, Search(nil, []string{"water"}, "fountain"))
		assert.Empty(t, Search(nil, nil, ""))
	})
}

func TestSearch_CategoryFilter(t *testing.T) {
	utilities := sampleUtilities()

	t.Run("filters by category in input order", func(t *testing.T) {
		result := Search(utilities, []string{"water"}, "")
		assert.Equal(t, []string{"1", "3"}, ids(result))
		for _, u := range result {
			assert.Equal(t, "water", u.Type)
		}
	})

	t.Run("multiple categories keep input order", func(t *testing.T) {
		result := Search(utilities, []string{"water", "microwave"}, "  ")
		assert.Equal(t, []string{"1", "2", "3"}, ids(result))
	})

	t.Run("selection order does not matter", func(t *testing.T) {
		a := Search(utilities, []string{"microwave", "water"}, "")
		b := Search(utilities, []string{"water", "microwave"}, "")
		assert.Equal(t, ids(a), ids(b))
	})

	t.Run("unknown category matches nothing", func(t *testing.T) {
		assert.Empty(t, Search(utilities, []string{"bank"}, ""))
	})
}

func TestSearch_Query(t *testing.T) {
	utilities := sampleUtilities()

	t.Run("matches name", func(t *testing.T) {
		result := Search(utilities, []string{"water", "microwave"}, "Fountain")
		assert.Equal(t, []string{"1", "3"}, ids(result))
	})

	t.Run("matches building", func(t *testing.T) {
		result := Search(utilities, []string{"water", "microwave"}, "Life")
		require.Len(t, result, 1)
		assert.Equal(t, "Life", result[0].Building)
	})

	t.Run("combines category and query", func(t *testing.T) {
		result := Search(utilities, []string{"water"}, "Chemistry")
		require.Len(t, result, 1)
		assert.Equal(t, "Broken Fountain", result[0].Name)
	})

	t.Run("category scope excludes matching records of other types", func(t *testing.T) {
		extra := append(sampleUtilities(), core.Utility{
			ID:       "4",
			Name:     "Chemistry Microwave",
			Type:     "microwave",
			Building: "Chemistry",
		})
		result := Search(extra, []string{"water"}, "Chemistry")
		assert.Equal(t, []string{"3"}, ids(result))

		global := Search(extra, nil, "Chemistry")
		assert.ElementsMatch(t, []string{"3", "4"}, ids(global))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, Search(utilities, []string{"water"}, "Space Station"))
	})

	t.Run("global search spans categories", func(t *testing.T) {
		result := Search(utilities, nil, "fountain")
		assert.Equal(t, []string{"1", "3"}, ids(result))
	})

	t.Run("query is case and whitespace insensitive", func(t *testing.T) {
		assert.Equal(t, ids(Search(utilities, nil, "nest")), ids(Search(utilities, nil, "  NEST ")))
	})

	t.Run("matches type", func(t *testing.T) {
		result := Search(utilities, nil, "microwave")
		assert.Equal(t, []string{"2"}, ids(result))
	})
}

func TestSearch_Ranking(t *testing.T) {
	t.Run("exact name match ranks above partial building match", func(t *testing.T) {
		utilities := []core.Utility{
			{ID: "b", Name: "Broken Fountain", Building: "Chemistry Lab Annex", Type: "water"},
			{ID: "a", Name: "Chemistry Lab", Building: "Other", Type: "water"},
		}
		result := Search(utilities, nil, "Chemistry Lab")
		assert.Equal(t, []string{"a", "b"}, ids(result))
	})

	t.Run("exact building match outweighs name prefix", func(t *testing.T) {
		// building exact: 100 * 0.9 = 90; name prefix: 80
		utilities := []core.Utility{
			{ID: "lab", Name: "Chemistry Lab", Building: "Other", Type: "water"},
			{ID: "fountain", Name: "Broken Fountain", Building: "Chemistry", Type: "water"},
		}
		result := Rank(utilities, nil, "Chemistry")
		require.Len(t, result, 2)
		assert.Equal(t, "fountain", result[0].Utility.ID)
		assert.Equal(t, 90, result[0].Score)
		assert.Equal(t, "lab", result[1].Utility.ID)
		assert.Equal(t, 80, result[1].Score)
	})

	t.Run("multi-term query spanning fields", func(t *testing.T) {
		utilities := []core.Utility{
			{ID: "1", Name: "Water Fountain", Building: "Nest", Type: "water"},
			{ID: "3", Name: "Broken Fountain", Building: "Chemistry Block B", Type: "water"},
		}
		result := Search(utilities, nil, "broken chemistry")
		assert.Equal(t, []string{"3"}, ids(result))
	})

	t.Run("deep field match", func(t *testing.T) {
		utilities := []core.Utility{
			{ID: "1", Name: "Water Fountain", Building: "Nest", Floor: "1", Type: "water"},
			{ID: "2", Name: "Microwave", Building: "Life", Floor: "Lower Level Basement", Type: "microwave"},
			{ID: "3", Name: "Bike Rack", Building: "Outside", Type: "bike"},
		}
		result := Rank(utilities, nil, "basement")
		require.Len(t, result, 1)
		assert.Equal(t, "2", result[0].Utility.ID)
		assert.Equal(t, 42, result[0].Score) // word prefix 60 * 0.7
	})

	t.Run("ties keep input order", func(t *testing.T) {
		utilities := []core.Utility{
			{ID: "z", Name: "Microwave", Type: "microwave"},
			{ID: "y", Name: "Bike Rack", Type: "bike"},
			{ID: "x", Name: "Microwave", Type: "microwave"},
			{ID: "w", Name: "Microwave", Type: "microwave"},
		}
		result := Search(utilities, nil, "microwave")
		assert.Equal(t, []string{"z", "x", "w"}, ids(result))
	})

	t.Run("scores descend", func(t *testing.T) {
		utilities := []core.Utility{
			{ID: "inner", Name: "Minibus Shelter", Type: "parking"},
			{ID: "word", Name: "Main Bus Stop", Type: "parking"},
			{ID: "building", Name: "Transit Loop", Building: "Bus Depot", Type: "parking"},
			{ID: "prefix", Name: "Bus Exchange", Type: "parking"},
			{ID: "exact", Name: "Bus", Type: "parking"},
		}
		result := Rank(utilities, nil, "bus")
		require.Len(t, result, 5)

		got := make([]string, len(result))
		scores := make([]int, len(result))
		for i, r := range result {
			got[i] = r.Utility.ID
			scores[i] = r.Score
		}
		assert.Equal(t, []string{"exact", "prefix", "building", "word", "inner"}, got)
		assert.Equal(t, []int{100, 80, 72, 60, 40}, scores)
	})
}

func TestSearch_UnknownType(t *testing.T) {
	utilities := []core.Utility{
		{ID: "v", Name: "Vending Machine", Type: "vending", Building: "Nest"},
		{ID: "1", Name: "Water Fountain", Type: "water", Building: "Nest"},
	}

	t.Run("eligible for global search", func(t *testing.T) {
		assert.Equal(t, []string{"v"}, ids(Search(utilities, nil, "vending")))
	})

	t.Run("never matches a category filter", func(t *testing.T) {
		assert.Equal(t, []string{"1"}, ids(Search(utilities, []string{"water"}, "nest")))
		assert.Empty(t, Search(utilities, []string{"water"}, "vending"))
	})
}

func TestSearch_Deterministic(t *testing.T) {
	utilities := sampleUtilities()
	queries := []string{"", "fountain", "broken chemistry", "1", "water"}
	selections := [][]string{nil, {"water"}, {"microwave", "water"}}

	for _, q := range queries {
		for _, s := range selections {
			first := Search(utilities, s, q)
			for i := 0; i < 5; i++ {
				assert.Equal(t, first, Search(utilities, s, q))
			}
		}
	}
}

func TestSearch_DoesNotMutateInput(t *testing.T) {
	utilities := sampleUtilities()
	before := sampleUtilities()
	selected := []string{"microwave", "water"}

	_ = Search(utilities, selected, "fountain")
	_ = Search(utilities, selected, "")

	assert.Equal(t, before, utilities)
	assert.Equal(t, []string{"microwave", "water"}, selected)
}

func TestRank_FilterOnlyHasZeroScores(t *testing.T) {
	result := Rank(sampleUtilities(), []string{"water"}, "")
	require.Len(t, result, 2)
	for _, r := range result {
		assert.Zero(t, r.Score)
	}
}
