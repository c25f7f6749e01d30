package logger

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameters that must never reach the logs.
var sensitiveParams = []string{
	"password",
	"code",
	"secret",
	"token",
	"access_token",
	"refresh_token",
}

// SanitizeQueryString reports whether a raw query string carries sensitive
// parameters and should be redacted from request logs.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		// Unparseable query strings are redacted rather than guessed at.
		return true
	}

	for key := range values {
		lower := strings.ToLower(key)
		for _, sensitive := range sensitiveParams {
			if lower == sensitive {
				return true
			}
		}
	}
	return false
}
