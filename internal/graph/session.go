// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package graph

import (
	"context"
	"io"
)

// sessionState is the bookkeeping shared by every backend session.
type sessionState struct {
	mode   AccessMode
	closed bool
}

// check rejects calls on a closed session, mutations on a read session and
// calls with a finished context.
func (s *sessionState) check(ctx context.Context, write bool) error {
	if s.closed {
		return ErrClosed
	}
	if write && s.mode != ReadWrite {
		return ErrReadOnly
	}
	return ctx.Err()
}

// closeQuietly closes a resource on a path where the Close error is not
// actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
