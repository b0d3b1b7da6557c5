// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cobasket/internal/graph"
	"github.com/tomtom215/cobasket/internal/validation"
)

// orderRecord is one element of the order document:
//
//	{"orderId": "A-1", "lineItems": [{"itemId": 17}, {"itemId": "sku-9"}]}
//
// Fields other than these are ignored.
type orderRecord struct {
	OrderID   string     `json:"orderId" validate:"omitempty,max=256,itemid"`
	LineItems []lineItem `json:"lineItems" validate:"required,dive"`
}

type lineItem struct {
	ItemID flexibleID `json:"itemId" validate:"itemid,max=256"`
}

// flexibleID accepts a JSON string or a JSON integer. Integers keep their
// decimal text, so 17 and "17" name the same item.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("itemId must be a string or an integer, got %s", data)
	}
	*f = flexibleID(strconv.FormatInt(n, 10))
	return nil
}

// Decode parses an order document into orders ready for loading. The
// document is a JSON array of order records, a single record, or a stream of
// newline-delimited records. Records without an orderId get a generated one.
//
// Decoding is all-or-nothing: any malformed record fails the whole document
// with ErrInvalidDocument.
func Decode(data []byte) ([]graph.Order, error) {
	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if verr := validation.ValidateSlice(records); verr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, verr)
	}

	orders := make([]graph.Order, len(records))
	seen := make(map[string]int, len(records))
	for i := range records {
		id := records[i].OrderID
		if id != "" {
			if first, dup := seen[id]; dup {
				return nil, fmt.Errorf("%w: orderId %q appears in records %d and %d", ErrInvalidDocument, id, first, i)
			}
			seen[id] = i
		} else {
			id = uuid.NewString()
		}

		items := make([]graph.ItemID, len(records[i].LineItems))
		for j, li := range records[i].LineItems {
			items[j] = graph.ItemID(li.ItemID)
		}
		orders[i] = graph.Order{ID: id, Items: items}
	}
	return orders, nil
}

func decodeRecords(data []byte) ([]orderRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	if trimmed[0] == '[' {
		var records []orderRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var records []orderRecord
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	for {
		var r orderRecord
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, r)
	}
	return records, nil
}
