// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

package logging

import (
	"net/url"
	"strings"
)

// sensitiveKeys are query parameter names whose values never reach the logs.
var sensitiveKeys = map[string]bool{
	"access_token":    true,
	"token":           true,
	"password":        true,
	"secret":          true,
	"api_key":         true,
	"apikey":          true,
	"key":             true,
	"sig":             true,
	"signature":       true,
	"authorization":   true,
	"x-amz-signature": true,
}

// SanitizeToken masks a secret, keeping the first and last 4 characters of
// long values.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeURL masks the password in the userinfo and the values of
// sensitive query parameters. Remote order locators and store URIs go
// through it before being logged. Strings that do not parse as URLs with a
// scheme are returned unchanged.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}

	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}

	if u.RawQuery != "" {
		q := u.Query()
		for k, vals := range q {
			if !sensitiveKeys[strings.ToLower(k)] {
				continue
			}
			for i := range vals {
				vals[i] = SanitizeToken(vals[i])
			}
			q[k] = vals
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}
