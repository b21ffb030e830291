package models

import "time"

// RetweetMarker is the sentinel stored in Tweet.InReplyToStatusID for
// retweets. It is distinct from any real tweet id.
const RetweetMarker = "RT"

// TweetURL is a URL entity extracted from a tweet
type TweetURL struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
	DisplayURL  string `json:"display_url"`
}

// TweetMetrics holds public engagement counters
type TweetMetrics struct {
	Retweets int `json:"retweet_count"`
	Likes    int `json:"like_count"`
	Replies  int `json:"reply_count"`
	Quotes   int `json:"quote_count"`
}

// Tweet is a unit fetched from the platform. It is ephemeral and never
// persisted.
//
// InReplyToStatusID carries the normalized reply/retweet marker:
//   - nil: ordinary tweet
//   - RetweetMarker ("RT"): retweet
//   - "<id>": reply to that tweet
//   - "": reply whose parent id is unknown (reply-to-user evidence only)
type Tweet struct {
	ID                string       `json:"id"`
	Text              string       `json:"text"`
	CreatedAt         time.Time    `json:"created_at"`
	AuthorID          string       `json:"author_id"`
	InReplyToStatusID *string      `json:"in_reply_to_status_id"`
	Metrics           TweetMetrics `json:"public_metrics"`
	URLs              []TweetURL   `json:"urls"`
}

// IsOriginal reports whether the tweet is neither a reply nor a retweet
func (t *Tweet) IsOriginal() bool {
	return t.InReplyToStatusID == nil
}

// IsRetweet reports whether the tweet carries the retweet sentinel
func (t *Tweet) IsRetweet() bool {
	return t.InReplyToStatusID != nil && *t.InReplyToStatusID == RetweetMarker
}

// IsReply reports whether the tweet is a reply (known or unknown parent)
func (t *Tweet) IsReply() bool {
	return t.InReplyToStatusID != nil && *t.InReplyToStatusID != RetweetMarker
}

// ExpandedURLs returns the best-form URL for every URL entity
func (t *Tweet) ExpandedURLs() []string {
	urls := make([]string, 0, len(t.URLs))
	for _, u := range t.URLs {
		switch {
		case u.ExpandedURL != "":
			urls = append(urls, u.ExpandedURL)
		case u.DisplayURL != "":
			urls = append(urls, u.DisplayURL)
		case u.URL != "":
			urls = append(urls, u.URL)
		}
	}
	return urls
}

// TwitterUser is the resolved identity of a platform account
type TwitterUser struct {
	RestID          string `json:"rest_id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}
