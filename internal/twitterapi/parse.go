package twitterapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/x-monitor/internal/models"
)

// twitterTimeLayout is the legacy created_at format of the platform API
const twitterTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// parseUserResponse extracts the resolved account from the nested /user
// response. The path to the account is provider-specific and not
// contractually stable, so every access is optional.
func parseUserResponse(body []byte, username string) (*models.TwitterUser, error) {
	userResult := gjson.GetBytes(body, "result.data.user.result")
	if !userResult.Exists() {
		return nil, ErrUserNotFound
	}

	restID := userResult.Get("rest_id").String()
	if restID == "" {
		return nil, fmt.Errorf("user rest_id not found in response")
	}

	core := userResult.Get("core")
	legacy := userResult.Get("legacy")

	name := core.Get("name").String()
	if name == "" {
		name = legacy.Get("name").String()
	}
	if name == "" {
		name = username
	}

	screenName := core.Get("screen_name").String()
	if screenName == "" {
		screenName = username
	}

	return &models.TwitterUser{
		RestID:   restID,
		Username: screenName,
		Name:     name,
	}, nil
}

// parseTimelineResponse walks the nested /user-tweets timeline structure and
// normalizes every tweet entry into the flat models.Tweet shape. Ad entries
// and other non-tweet typenames are skipped.
func parseTimelineResponse(body []byte, fallbackAuthorID string) ([]models.Tweet, []models.TwitterUser) {
	var tweets []models.Tweet
	var users []models.TwitterUser
	seenUsers := make(map[string]bool)

	instructions := gjson.GetBytes(body, "result.timeline.instructions")
	instructions.ForEach(func(_, instruction gjson.Result) bool {
		if instruction.Get("type").String() != "TimelineAddEntries" {
			return true
		}

		instruction.Get("entries").ForEach(func(_, entry gjson.Result) bool {
			content := entry.Get("content")
			if content.Get("entryType").String() != "TimelineTimelineItem" ||
				content.Get("itemContent.itemType").String() != "TimelineTweet" {
				return true
			}

			tweetResult := content.Get("itemContent.tweet_results.result")
			legacy := tweetResult.Get("legacy")

			// Skip non-tweet entries (ads, tombstones)
			if tweetResult.Get("__typename").String() != "Tweet" || !legacy.Exists() {
				return true
			}

			tweetID := tweetResult.Get("rest_id").String()
			if tweetID == "" {
				return true
			}

			// Collect the author once per timeline
			userResult := tweetResult.Get("core.user_results.result")
			authorID := userResult.Get("rest_id").String()
			if userResult.Get("__typename").String() == "User" && authorID != "" && !seenUsers[authorID] {
				seenUsers[authorID] = true
				name := userResult.Get("core.name").String()
				if name == "" {
					name = userResult.Get("legacy.name").String()
				}
				avatar := userResult.Get("avatar.image_url").String()
				if avatar == "" {
					avatar = userResult.Get("legacy.profile_image_url_https").String()
				}
				users = append(users, models.TwitterUser{
					RestID:          authorID,
					Username:        userResult.Get("core.screen_name").String(),
					Name:            name,
					ProfileImageURL: avatar,
				})
			}
			if authorID == "" {
				authorID = fallbackAuthorID
			}

			tweets = append(tweets, normalizeTweet(tweetID, authorID, tweetResult, legacy))
			return true
		})
		return true
	})

	return tweets, users
}

// normalizeTweet flattens one timeline tweet entry, collapsing the
// provider's reply and retweet signals into the single marker on
// models.Tweet.
func normalizeTweet(tweetID, authorID string, tweetResult, legacy gjson.Result) models.Tweet {
	// Prefer the note_tweet text (long tweets) over the truncated full_text
	text := legacy.Get("full_text").String()
	if note := tweetResult.Get("note_tweet.note_tweet_results.result.text").String(); note != "" {
		text = note
	}

	// Retweet detection: explicit reference fields OR the "RT @" text prefix.
	// The prefix heuristic can misread an ordinary tweet that legitimately
	// starts with "RT @"; this false-positive source is accepted for parity
	// with the upstream behavior.
	isRetweet := strings.HasPrefix(strings.TrimSpace(text), "RT @") ||
		tweetResult.Get("retweeted_status_result").Exists() ||
		legacy.Get("retweeted_status").Exists()

	// Reply detection: a reply-to-status id marks a reply, and so does a
	// reply-to-user id without one (the parent id is then unknown).
	inReplyToStatusID := legacy.Get("in_reply_to_status_id_str").String()
	if inReplyToStatusID == "" {
		inReplyToStatusID = legacy.Get("in_reply_to_status_id").String()
	}
	isReply := inReplyToStatusID != "" || legacy.Get("in_reply_to_user_id_str").Exists()

	var marker *string
	switch {
	case isRetweet:
		rt := models.RetweetMarker
		marker = &rt
	case isReply:
		parent := inReplyToStatusID // "" when only reply-to-user evidence exists
		marker = &parent
	}

	var createdAt time.Time
	if raw := legacy.Get("created_at").String(); raw != "" {
		if parsed, err := time.Parse(twitterTimeLayout, raw); err == nil {
			createdAt = parsed
		}
	}

	var urls []models.TweetURL
	legacy.Get("entities.urls").ForEach(func(_, u gjson.Result) bool {
		entity := models.TweetURL{
			URL:         u.Get("url").String(),
			ExpandedURL: u.Get("expanded_url").String(),
			DisplayURL:  u.Get("display_url").String(),
		}
		if entity.ExpandedURL == "" {
			entity.ExpandedURL = entity.URL
		}
		urls = append(urls, entity)
		return true
	})

	return models.Tweet{
		ID:                tweetID,
		Text:              text,
		CreatedAt:         createdAt,
		AuthorID:          authorID,
		InReplyToStatusID: marker,
		Metrics: models.TweetMetrics{
			Retweets: int(legacy.Get("retweet_count").Int()),
			Likes:    int(legacy.Get("favorite_count").Int()),
			Replies:  int(legacy.Get("reply_count").Int()),
			Quotes:   int(legacy.Get("quote_count").Int()),
		},
		URLs: urls,
	}
}
