// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package recommend

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/tomtom215/cobasket/internal/graph"
)

func row(anchor, other string, together, anchorOrders int64) graph.CoOccurrence {
	return graph.CoOccurrence{
		Anchor:       graph.ItemID(anchor),
		Other:        graph.ItemID(other),
		Together:     together,
		AnchorOrders: anchorOrders,
	}
}

func ids(values ...string) []graph.ItemID {
	out := make([]graph.ItemID, len(values))
	for i, v := range values {
		out[i] = graph.ItemID(v)
	}
	return out
}

func TestRank(t *testing.T) {
	base := Options{NumRecommendations: 5}

	tests := []struct {
		name string
		rows []graph.CoOccurrence
		opts Options
		want Recommendations
	}{
		{
			name: "example scenario",
			rows: []graph.CoOccurrence{
				row("1", "2", 2, 3), row("1", "3", 1, 3),
				row("2", "1", 2, 2), row("3", "1", 1, 1),
			},
			opts: base,
			want: Recommendations{"1": ids("2", "3"), "2": ids("1"), "3": ids("1")},
		},
		{
			name: "threshold equal to percentage is excluded",
			rows: []graph.CoOccurrence{row("1", "2", 1, 2), row("1", "3", 1, 2)},
			opts: Options{NumRecommendations: 5, ThresholdPercent: 50},
			want: Recommendations{},
		},
		{
			name: "threshold just below percentage is included",
			rows: []graph.CoOccurrence{row("1", "2", 1, 2), row("1", "3", 1, 2)},
			opts: Options{NumRecommendations: 5, ThresholdPercent: 49.99},
			want: Recommendations{"1": ids("2", "3")},
		},
		{
			name: "anchor frequency equal to minimum is excluded",
			rows: []graph.CoOccurrence{row("1", "2", 2, 2), row("2", "1", 2, 3)},
			opts: Options{NumRecommendations: 5, MinItemOrderedCount: 2},
			want: Recommendations{"2": ids("1")},
		},
		{
			name: "ties break by ascending identifier",
			rows: []graph.CoOccurrence{
				row("x", "b", 1, 4), row("x", "10", 1, 4),
				row("x", "a", 1, 4), row("x", "9", 1, 4),
				row("x", "top", 3, 4),
			},
			opts: base,
			want: Recommendations{"x": ids("top", "9", "10", "a", "b")},
		},
		{
			name: "no rows",
			opts: base,
			want: Recommendations{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rank(tt.rows, tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rank() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRank_Truncation(t *testing.T) {
	// Anchor "0" appears in 55 orders; neighbour k shares k of them.
	var rows []graph.CoOccurrence
	for k := 1; k <= 10; k++ {
		rows = append(rows, row("0", strconv.Itoa(k), int64(k), 55))
	}

	got := rank(rows, Options{NumRecommendations: 5})
	want := ids("10", "9", "8", "7", "6")
	if !reflect.DeepEqual(got["0"], want) {
		t.Errorf("rank()[0] = %v, want %v", got["0"], want)
	}
}

func TestApproximatePercent(t *testing.T) {
	r := row("1", "2", 2, 3)
	if got := approximatePercent(&r); got < 66.66 || got > 66.67 {
		t.Errorf("approximatePercent() = %v, want ~66.67", got)
	}
	zero := row("1", "2", 1, 0)
	if got := approximatePercent(&zero); got != 0 {
		t.Errorf("approximatePercent() with no anchor orders = %v, want 0", got)
	}
}
