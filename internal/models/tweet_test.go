package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func marker(s string) *string {
	return &s
}

func TestTweetMarkers(t *testing.T) {
	ordinary := Tweet{ID: "1"}
	assert.True(t, ordinary.IsOriginal())
	assert.False(t, ordinary.IsRetweet())
	assert.False(t, ordinary.IsReply())

	retweet := Tweet{ID: "2", InReplyToStatusID: marker(RetweetMarker)}
	assert.False(t, retweet.IsOriginal())
	assert.True(t, retweet.IsRetweet())
	assert.False(t, retweet.IsReply())

	reply := Tweet{ID: "3", InReplyToStatusID: marker("990")}
	assert.False(t, reply.IsOriginal())
	assert.False(t, reply.IsRetweet())
	assert.True(t, reply.IsReply())

	// Reply-to-user evidence without a parent id
	orphan := Tweet{ID: "4", InReplyToStatusID: marker("")}
	assert.True(t, orphan.IsReply())
	assert.False(t, orphan.IsOriginal())
}

func TestExpandedURLs(t *testing.T) {
	tweet := Tweet{URLs: []TweetURL{
		{URL: "https://t.co/a", ExpandedURL: "https://claim.example.com", DisplayURL: "claim.example.com"},
		{URL: "https://t.co/b", DisplayURL: "t.co/b"},
		{URL: "https://t.co/c"},
		{},
	}}

	assert.Equal(t, []string{
		"https://claim.example.com",
		"t.co/b",
		"https://t.co/c",
	}, tweet.ExpandedURLs())
}
