package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/x-monitor/internal/models"
)

// FormatTweet renders a tweet into the channel-agnostic notification
// message: author, full text, a human time display (relative phrase plus
// absolute timestamp), and a link back to the original tweet. The markup
// is the restricted Telegram HTML subset; plain-text channels strip it at
// delivery time.
func FormatTweet(tweet *models.Tweet, user *models.TwitterUser) string {
	username := user.Username
	if username == "" {
		username = "Unknown"
	}
	name := user.Name
	if name == "" {
		name = username
	}
	tweetURL := fmt.Sprintf("https://twitter.com/%s/status/%s", username, tweet.ID)

	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s</b> <i>@%s</i>\n\n", name, username)
	b.WriteString(tweet.Text)
	b.WriteString("\n\n")

	if !tweet.CreatedAt.IsZero() {
		absolute := tweet.CreatedAt.Format("2006-01-02 15:04:05")
		if relative := relativeTime(time.Since(tweet.CreatedAt)); relative != "" {
			fmt.Fprintf(&b, "🕐 <i>%s</i> • <code>%s</code>\n\n", relative, absolute)
		} else {
			fmt.Fprintf(&b, "🕐 <code>%s</code>\n\n", absolute)
		}
	}

	fmt.Fprintf(&b, "<a href=\"%s\">🔗 View tweet</a>", tweetURL)

	return b.String()
}

// relativeTime renders an age as a short relative phrase. Ages of a week
// or more return "" and the caller shows only the absolute timestamp.
func relativeTime(age time.Duration) string {
	switch {
	case age < 0:
		return ""
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		mins := int(age.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case age < 24*time.Hour:
		hours := int(age.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case age < 7*24*time.Hour:
		days := int(age.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return ""
	}
}
