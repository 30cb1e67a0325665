package twitter

import "strings"

// CreateTweetRequest is the body of POST /2/tweets
type CreateTweetRequest struct {
	Text string `json:"text"`
}

// CreateTweetResponse is returned for a created post
type CreateTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// APIError is the problem document the API returns on failure
type APIError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Status int    `json:"status"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Summary returns the most specific human-readable message available
func (e *APIError) Summary() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case len(e.Errors) > 0:
		msgs := make([]string, 0, len(e.Errors))
		for _, item := range e.Errors {
			msgs = append(msgs, item.Message)
		}
		return strings.Join(msgs, "; ")
	default:
		return e.Title
	}
}
