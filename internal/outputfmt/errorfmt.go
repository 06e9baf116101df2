// Package outputfmt prepares error text for display in Telegram chats.
package outputfmt

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	urlRE      = regexp.MustCompile(`https?://[^\s"'<>]+`)
	botPathRE  = regexp.MustCompile(`/bot\d+:[A-Za-z0-9_-]+`)
	secretKeys = []string{"token", "secret", "password", "apikey"}
)

// FormatErrorForDisplay returns err as text safe to post in an admin chat.
func FormatErrorForDisplay(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeErrorText(err.Error())
}

// SanitizeErrorText reduces absolute URLs to path and query, masks secret
// query values, and replaces bot credentials in Bot API paths with
// "/bot<redacted>".
func SanitizeErrorText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = urlRE.ReplaceAllStringFunc(raw, stripHost)
	return botPathRE.ReplaceAllLiteralString(raw, "/bot<redacted>")
}

func stripHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	out := u.EscapedPath()
	if out == "" {
		out = "/"
	}
	q := u.Query()
	if len(q) == 0 {
		return out
	}
	for k := range q {
		if secretKey(k) {
			q.Set(k, "[redacted]")
		}
	}
	return out + "?" + q.Encode()
}

func secretKey(key string) bool {
	k := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(key)))
	if k == "key" {
		return true
	}
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
