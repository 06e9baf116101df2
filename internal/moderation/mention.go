package moderation

import (
	"fmt"
	"strings"

	"github.com/quailyquaily/modguard/internal/event"
	"github.com/quailyquaily/modguard/internal/telegram"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// displayUser renders u for plain-text notices: the public handle when there
// is one, else the display name.
func displayUser(u *event.User) string {
	if u == nil {
		return "user"
	}
	if h := strings.TrimSpace(u.Username); h != "" {
		return "@" + h
	}
	return telegram.DisplayName(&telegram.User{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName})
}

// mentionHTML renders a mention that pings u in an HTML-mode message.
func mentionHTML(u *event.User) string {
	if u == nil {
		return "user"
	}
	if h := strings.TrimSpace(u.Username); h != "" {
		return "@" + escapeHTML(h)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, escapeHTML(displayUser(u)))
}
