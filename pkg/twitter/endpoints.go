package twitter

import "strings"

const (
	// BaseURL is the base URL for the Twitter API
	BaseURL = "https://api.twitter.com"

	// TweetsEndpoint creates a post (API v2)
	TweetsEndpoint = "/2/tweets"

	// MaxTweetLength is the default character limit for one post
	MaxTweetLength = 280
)

// GetTweetsURL constructs the post creation URL for a base URL
func GetTweetsURL(baseURL string) string {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return strings.TrimRight(baseURL, "/") + TweetsEndpoint
}
