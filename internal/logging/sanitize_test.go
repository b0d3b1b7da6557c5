// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package logging

import (
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "***"},
		{"abcdefghijkl", "***"},
		{"abcdefghijklmnop", "abcd...mnop"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		notWant []string
	}{
		{
			name: "plain URL unchanged",
			in:   "https://shop.example.com/orders.json",
			want: []string{"https://shop.example.com/orders.json"},
		},
		{
			name:    "password masked",
			in:      "bolt://neo4j:hunter2@db:7687",
			want:    []string{"neo4j:xxxxx@db:7687"},
			notWant: []string{"hunter2"},
		},
		{
			name:    "sensitive query masked",
			in:      "https://cdn.example.com/orders.json?token=0123456789abcdefXYZ&page=2",
			want:    []string{"page=2", "token=0123...fXYZ"},
			notWant: []string{"0123456789abcdefXYZ"},
		},
		{
			name:    "query key match is case insensitive",
			in:      "https://s3.example.com/o.json?X-Amz-Signature=deadbeefdeadbeefdeadbeef",
			notWant: []string{"deadbeefdeadbeefdeadbeef"},
		},
		{
			name: "local path untouched",
			in:   "/data/orders.json",
			want: []string{"/data/orders.json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeURL(tt.in)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("SanitizeURL(%q) = %q, want it to contain %q", tt.in, got, w)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(got, nw) {
					t.Errorf("SanitizeURL(%q) = %q leaks %q", tt.in, got, nw)
				}
			}
		})
	}
}
