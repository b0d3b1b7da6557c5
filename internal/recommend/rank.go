// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package recommend

import (
	"sort"

	"github.com/tomtom215/cobasket/internal/graph"
)

// candidate is one scored neighbour of an anchor item.
type candidate struct {
	item    graph.ItemID
	percent float64
}

// approximatePercent is 100 * together / anchorOrders. The multiplicity of
// the ORDERED_TOGETHER edge is used as-is.
func approximatePercent(row *graph.CoOccurrence) float64 {
	if row.AnchorOrders <= 0 {
		return 0
	}
	return 100.0 * float64(row.Together) / float64(row.AnchorOrders)
}

// rank scores co-occurrence rows and keeps, per anchor, the top candidates
// strictly above both thresholds.
func rank(rows []graph.CoOccurrence, opts Options) Recommendations {
	byAnchor := make(map[graph.ItemID][]candidate)
	for i := range rows {
		row := &rows[i]
		if row.AnchorOrders <= opts.MinItemOrderedCount {
			continue
		}
		pct := approximatePercent(row)
		if pct <= opts.ThresholdPercent {
			continue
		}
		byAnchor[row.Anchor] = append(byAnchor[row.Anchor], candidate{item: row.Other, percent: pct})
	}

	out := make(Recommendations, len(byAnchor))
	for anchor, cands := range byAnchor {
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].percent != cands[j].percent {
				return cands[i].percent > cands[j].percent
			}
			return cands[i].item.Less(cands[j].item)
		})

		n := max(0, min(len(cands), opts.NumRecommendations))
		items := make([]graph.ItemID, n)
		for i := 0; i < n; i++ {
			items[i] = cands[i].item
		}
		out[anchor] = items
	}
	return out
}
