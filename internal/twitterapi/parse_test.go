package twitterapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-monitor/internal/models"
)

const userResponseFixture = `{
	"result": {
		"data": {
			"user": {
				"result": {
					"rest_id": "42",
					"core": {"name": "Alice Chain", "screen_name": "alice"},
					"legacy": {"name": "legacy name"}
				}
			}
		}
	}
}`

func TestParseUserResponse(t *testing.T) {
	user, err := parseUserResponse([]byte(userResponseFixture), "alice")
	require.NoError(t, err)

	assert.Equal(t, "42", user.RestID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice Chain", user.Name)
}

func TestParseUserResponseLegacyNameFallback(t *testing.T) {
	body := `{"result":{"data":{"user":{"result":{"rest_id":"42","legacy":{"name":"Old Alice"}}}}}}`

	user, err := parseUserResponse([]byte(body), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Old Alice", user.Name)
	assert.Equal(t, "alice", user.Username)
}

func TestParseUserResponseMissingUser(t *testing.T) {
	_, err := parseUserResponse([]byte(`{"result":{"data":{}}}`), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestParseUserResponseMissingRestID(t *testing.T) {
	_, err := parseUserResponse([]byte(`{"result":{"data":{"user":{"result":{"core":{"name":"x"}}}}}}`), "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

// timelineFixture carries one of each entry shape the provider emits:
// an ordinary tweet with a long-form note and a URL entity, a reply,
// a reply with only reply-to-user evidence, a structural retweet, an
// "RT @" prefixed tweet, a tombstone, and a cursor entry.
const timelineFixture = `{
	"result": {
		"timeline": {
			"instructions": [
				{"type": "TimelineClearCache"},
				{"type": "TimelineAddEntries", "entries": [
					{"content": {"entryType": "TimelineTimelineItem", "itemContent": {"itemType": "TimelineTweet", "tweet_results": {"result": {
						"__typename": "Tweet",
						"rest_id": "1006",
						"note_tweet": {"note_tweet_results": {"result": {"text": "full long announcement text"}}},
						"core": {"user_results": {"result": {
							"__typename": "User",
							"rest_id": "42",
							"core": {"name": "Alice Chain", "screen_name": "alice"},
							"avatar": {"image_url": "https://pbs.example.com/alice.jpg"}
						}}},
						"legacy": {
							"full_text": "truncated announcement…",
							"created_at": "Tue Oct 14 10:00:00 +0000 2025",
							"retweet_count": 12,
							"favorite_count": 80,
							"reply_count": 3,
							"quote_count": 1,
							"entities": {"urls": [
								{"url": "https://t.co/abc", "expanded_url": "https://claim.example.com", "display_url": "claim.example.com"},
								{"url": "https://t.co/def", "expanded_url": "", "display_url": "t.co/def"}
							]}
						}
					}}}}},
					{"content": {"entryType": "TimelineTimelineItem", "itemContent": {"itemType": "TimelineTweet", "tweet_results": {"result": {
						"__typename": "Tweet",
						"rest_id": "1005",
						"legacy": {
							"full_text": "@bob agreed",
							"created_at": "Tue Oct 14 09:00:00 +0000 2025",
							"in_reply_to_status_id_str": "990",
							"in_reply_to_user_id_str": "77"
						}
					}}}}},
					{"content": {"entryType": "TimelineTimelineItem", "itemContent": {"itemType": "TimelineTweet", "tweet_results": {"result": {
						"__typename": "Tweet",
						"rest_id": "1004",
						"legacy": {
							"full_text": "@bob no parent id here",
							"created_at": "Tue Oct 14 08:00:00 +0000 2025",
							"in_reply_to_user_id_str": "77"
						}
					}}}}},
					{"content": {"entryType": "TimelineTimelineItem", "itemContent": {"itemType": "TimelineTweet", "tweet_results": {"result": {
						"__typename": "Tweet",
						"rest_id": "1003",
						"retweeted_status_result": {"result": {"rest_id": "888"}},
						"legacy": {
							"full_text": "RT @bob: their announcement",
							"created_at": "Tue Oct 14 07:00:00 +0000 2025"
						}
					}}}}},
					{"content": {"entryType": "TimelineTimelineItem", "itemContent": {"itemType": "TimelineTweet", "tweet_results": {"result": {
						"__typename": "Tweet",
						"rest_id": "1002",
						"legacy": {
							"full_text": "RT @carol: manual retweet style",
							"created_at": "Tue Oct 14 06:00:00 +0000 2025"
						}
					}}}}},
					{"content": {"entryType": "TimelineTimelineItem", "itemContent": {"itemType": "TimelineTweet", "tweet_results": {"result": {
						"__typename": "TweetTombstone"
					}}}}},
					{"content": {"entryType": "TimelineTimelineCursor", "value": "HBaAgK..."}}
				]}
			]
		}
	}
}`

func TestParseTimelineResponse(t *testing.T) {
	tweets, users := parseTimelineResponse([]byte(timelineFixture), "42")

	require.Len(t, tweets, 5)

	byID := make(map[string]models.Tweet, len(tweets))
	for _, tw := range tweets {
		byID[tw.ID] = tw
	}

	// Ordinary tweet: note text wins over the truncated full_text
	original := byID["1006"]
	assert.Equal(t, "full long announcement text", original.Text)
	assert.True(t, original.IsOriginal())
	assert.Equal(t, "42", original.AuthorID)
	assert.Equal(t, 12, original.Metrics.Retweets)
	assert.Equal(t, 80, original.Metrics.Likes)
	assert.Equal(t, time.Date(2025, 10, 14, 10, 0, 0, 0, time.UTC), original.CreatedAt.UTC())
	assert.Equal(t, []string{"https://claim.example.com", "https://t.co/def"}, original.ExpandedURLs())

	// Reply with a known parent id
	reply := byID["1005"]
	assert.True(t, reply.IsReply())
	require.NotNil(t, reply.InReplyToStatusID)
	assert.Equal(t, "990", *reply.InReplyToStatusID)

	// Reply with only reply-to-user evidence keeps the empty marker
	orphanReply := byID["1004"]
	assert.True(t, orphanReply.IsReply())
	require.NotNil(t, orphanReply.InReplyToStatusID)
	assert.Equal(t, "", *orphanReply.InReplyToStatusID)

	// Structural retweet and "RT @" prefix both carry the sentinel
	structuralRT := byID["1003"]
	assert.True(t, structuralRT.IsRetweet())
	prefixRT := byID["1002"]
	assert.True(t, prefixRT.IsRetweet())

	// Author collected once from the timeline
	require.Len(t, users, 1)
	assert.Equal(t, "42", users[0].RestID)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "Alice Chain", users[0].Name)
	assert.Equal(t, "https://pbs.example.com/alice.jpg", users[0].ProfileImageURL)
}

func TestParseTimelineResponseFallbackAuthor(t *testing.T) {
	tweets, users := parseTimelineResponse([]byte(timelineFixture), "42")
	require.NotEmpty(t, tweets)

	// Entries without embedded user data inherit the requested rest_id
	for _, tw := range tweets {
		assert.Equal(t, "42", tw.AuthorID)
	}
	assert.Len(t, users, 1)
}

func TestParseTimelineResponseEmpty(t *testing.T) {
	tweets, users := parseTimelineResponse([]byte(`{"result":{"timeline":{"instructions":[]}}}`), "42")
	assert.Empty(t, tweets)
	assert.Empty(t, users)

	tweets, _ = parseTimelineResponse([]byte(`not json at all`), "42")
	assert.Empty(t, tweets)
}
