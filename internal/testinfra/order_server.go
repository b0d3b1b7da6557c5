// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

//go:build integration

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// OrderServer serves order documents over HTTP for remote-locator tests and
// counts the requests it receives.
type OrderServer struct {
	Server *httptest.Server

	mu        sync.Mutex
	documents map[string][]byte
	requests  map[string]int
}

// NewOrderServer starts a server that is closed when the test ends.
func NewOrderServer(t *testing.T) *OrderServer {
	t.Helper()

	s := &OrderServer{
		documents: make(map[string][]byte),
		requests:  make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		doc, ok := s.documents[r.URL.Path]
		s.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(doc) //nolint:errcheck
	}))
	t.Cleanup(s.Server.Close)
	return s
}

// Put publishes body at path and returns its URL.
func (s *OrderServer) Put(path string, body []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[path] = body
	return s.Server.URL + path
}

// Requests returns how often path was fetched.
func (s *OrderServer) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}
