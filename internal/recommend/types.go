// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package recommend

import (
	"strconv"
	"time"

	"github.com/tomtom215/cobasket/internal/config"
	"github.com/tomtom215/cobasket/internal/graph"
	"github.com/tomtom215/cobasket/internal/source"
	"github.com/tomtom215/cobasket/internal/validation"
)

// Options are the scoring parameters of one recommendation request.
// Options is comparable and doubles as the result cache key.
type Options struct {
	// NumRecommendations caps the list returned per anchor item.
	NumRecommendations int `json:"numRecommendations" validate:"min=1"`

	// ThresholdPercent is the exclusive lower bound on the co-occurrence
	// percentage.
	ThresholdPercent float64 `json:"thresholdPercent" validate:"gte=0,lte=100"`

	// MinOrderCount is the exclusive lower bound on the total order count.
	MinOrderCount int64 `json:"minOrderCount" validate:"gte=0"`

	// MinItemOrderedCount is the exclusive lower bound on an anchor's order
	// frequency.
	MinItemOrderedCount int64 `json:"minItemOrderedCount" validate:"gte=0"`
}

// DefaultOptions returns the configured defaults.
func DefaultOptions(cfg *config.RecommendConfig) Options {
	return Options{
		NumRecommendations:  cfg.DefaultNumRecommendations,
		ThresholdPercent:    cfg.DefaultThresholdPercent,
		MinOrderCount:       cfg.DefaultMinOrderCount,
		MinItemOrderedCount: cfg.DefaultMinItemOrderedCount,
	}
}

// Request is a recommendation request. A non-empty OrderJSONPath triggers a
// fresh ingest from that locator before scoring.
type Request struct {
	Options

	OrderJSONPath string `json:"orderJsonPath,omitempty"`
	IsRemotePath  bool   `json:"isRemotePath"`
}

// Locator returns the source locator named by the request, and false when
// the request does not ask for an ingest.
func (r *Request) Locator() (source.Locator, bool) {
	if r.OrderJSONPath == "" {
		return source.Locator{}, false
	}
	return source.Locator{Path: r.OrderJSONPath, Remote: r.IsRemotePath}, true
}

// maxLocatorLength bounds orderJsonPath.
const maxLocatorLength = 4096

// Validate checks the option tags, the configured recommendation limit, and
// the locator. Remote locators must be http(s) URLs.
func (r *Request) Validate(maxRecommendations int) *validation.RequestValidationError {
	errs := []*validation.RequestValidationError{
		validation.ValidateStruct(&r.Options),
		validation.ValidateVar("orderJsonPath", r.OrderJSONPath, "omitempty,max="+strconv.Itoa(maxLocatorLength)),
	}
	if maxRecommendations > 0 {
		errs = append(errs, validation.ValidateVar("numRecommendations", r.NumRecommendations,
			"lte="+strconv.Itoa(maxRecommendations)))
	}
	if r.IsRemotePath && r.OrderJSONPath != "" {
		errs = append(errs, validation.ValidateVar("orderJsonPath", r.OrderJSONPath, "httpurl"))
	}
	return validation.Join(errs...)
}

// Recommendations maps an anchor item to its ranked co-purchased items.
// Values are shared with the result cache and must not be modified.
type Recommendations map[graph.ItemID][]graph.ItemID

// Result is the outcome of a successful request.
type Result struct {
	Recommendations Recommendations
	OrderCount      int64
	DatasetVersion  uint64
	CacheHit        bool

	// Ingest is set when the request ran an ingest.
	Ingest *IngestReport
}

// IngestReport describes one reset, ingest and build cycle. Error is set,
// and the counts are zero, when the cycle failed after the store was reset.
type IngestReport struct {
	Locator         string        `json:"locator"`
	Orders          int64         `json:"orders"`
	Items           int64         `json:"items"`
	Ordered         int64         `json:"ordered_edges"`
	OrderedTogether int64         `json:"ordered_together_edges"`
	Duration        time.Duration `json:"duration_ns"`
	CompletedAt     time.Time     `json:"completed_at"`
	DatasetVersion  uint64        `json:"dataset_version"`
	Error           Kind          `json:"error,omitempty"`
}

// Status describes the loaded dataset.
type Status struct {
	Backend        string        `json:"backend"`
	DatasetVersion uint64        `json:"dataset_version"`
	Graph          graph.Stats   `json:"graph"`
	LastIngest     *IngestReport `json:"last_ingest,omitempty"`
	Cache          *CacheStatus  `json:"cache,omitempty"`
	SourceBreaker  string        `json:"source_breaker,omitempty"`
}

// CacheStatus reports the result cache. Hits and Misses count since start;
// Pruned is the number of expired entries dropped while taking the report.
type CacheStatus struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Pruned  int   `json:"pruned"`
}
