// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cobasket/internal/recommend"
	"github.com/tomtom215/cobasket/internal/validation"
)

// maxBodyBytes caps request bodies. Bodies carry options and a locator, never
// order data.
const maxBodyBytes = 64 << 10

// recommendBody is the wire form of a recommendation request. Pointers tell
// an absent option (use the default) from an explicit zero.
type recommendBody struct {
	NumRecommendations  *int     `json:"numRecommendations"`
	ThresholdPercent    *float64 `json:"thresholdPercent"`
	MinOrderCount       *int64   `json:"minOrderCount"`
	MinItemOrderedCount *int64   `json:"minItemOrderedCount"`
	OrderJSONPath       *string  `json:"orderJsonPath"`
	IsRemotePath        *bool    `json:"isRemotePath"`
}

// ingestBody is the body of POST /api/v1/ingest.
type ingestBody struct {
	OrderJSONPath string `json:"orderJsonPath" validate:"required,max=4096"`
	IsRemotePath  bool   `json:"isRemotePath"`
}

func (b *ingestBody) validate() *validation.RequestValidationError {
	verr := validation.ValidateStruct(b)
	if b.IsRemotePath && b.OrderJSONPath != "" {
		verr = validation.Join(verr, validation.ValidateVar("orderJsonPath", b.OrderJSONPath, "httpurl"))
	}
	return verr
}

// readBody reads a JSON body into dst. An empty body leaves dst untouched
// and reports false.
func readBody(w http.ResponseWriter, r *http.Request, dst interface{}) (bool, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return false, nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return false, &requestError{field: "body", message: fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes)}
		}
		return false, &requestError{field: "body", message: "request body could not be read"}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, &requestError{field: "body", message: "request body is not valid JSON: " + err.Error()}
	}
	return true, nil
}

// parseRecommendRequest builds a request from the JSON body, falling back
// to query parameters for options the body leaves out, then to defaults.
func parseRecommendRequest(w http.ResponseWriter, r *http.Request, defaults recommend.Options) (recommend.Request, error) {
	var body recommendBody
	if _, err := readBody(w, r, &body); err != nil {
		return recommend.Request{}, err
	}
	if err := body.fillFromQuery(r.URL.Query()); err != nil {
		return recommend.Request{}, err
	}

	req := recommend.Request{Options: defaults}
	if body.NumRecommendations != nil {
		req.NumRecommendations = *body.NumRecommendations
	}
	if body.ThresholdPercent != nil {
		req.ThresholdPercent = *body.ThresholdPercent
	}
	if body.MinOrderCount != nil {
		req.MinOrderCount = *body.MinOrderCount
	}
	if body.MinItemOrderedCount != nil {
		req.MinItemOrderedCount = *body.MinItemOrderedCount
	}
	if body.OrderJSONPath != nil {
		req.OrderJSONPath = *body.OrderJSONPath
	}
	if body.IsRemotePath != nil {
		req.IsRemotePath = *body.IsRemotePath
	}
	return req, nil
}

func (b *recommendBody) fillFromQuery(q url.Values) error {
	var err error
	if b.NumRecommendations == nil && q.Has("numRecommendations") {
		var n int
		if n, err = strconv.Atoi(q.Get("numRecommendations")); err != nil {
			return queryError("numRecommendations", "an integer")
		}
		b.NumRecommendations = &n
	}
	if b.ThresholdPercent == nil && q.Has("thresholdPercent") {
		var f float64
		if f, err = strconv.ParseFloat(q.Get("thresholdPercent"), 64); err != nil {
			return queryError("thresholdPercent", "a number")
		}
		b.ThresholdPercent = &f
	}
	if b.MinOrderCount == nil && q.Has("minOrderCount") {
		var n int64
		if n, err = strconv.ParseInt(q.Get("minOrderCount"), 10, 64); err != nil {
			return queryError("minOrderCount", "an integer")
		}
		b.MinOrderCount = &n
	}
	if b.MinItemOrderedCount == nil && q.Has("minItemOrderedCount") {
		var n int64
		if n, err = strconv.ParseInt(q.Get("minItemOrderedCount"), 10, 64); err != nil {
			return queryError("minItemOrderedCount", "an integer")
		}
		b.MinItemOrderedCount = &n
	}
	if b.OrderJSONPath == nil && q.Has("orderJsonPath") {
		p := q.Get("orderJsonPath")
		b.OrderJSONPath = &p
	}
	if b.IsRemotePath == nil && q.Has("isRemotePath") {
		var v bool
		if v, err = strconv.ParseBool(q.Get("isRemotePath")); err != nil {
			return queryError("isRemotePath", "a boolean")
		}
		b.IsRemotePath = &v
	}
	return nil
}

func queryError(field, want string) error {
	return &requestError{field: field, message: field + " must be " + want}
}
