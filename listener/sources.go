package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
)

// Post is a single social post from a tracked handle.
type Post struct {
	Link string `json:"link"`
	Text string `json:"text"`
}

// PostSource fetches recent posts for a handle.
type PostSource interface {
	Posts(ctx context.Context, handle string, limit int) ([]Post, error)
}

// NewsItem is one RSS/Atom entry.
type NewsItem struct {
	Link    string
	Title   string
	Summary string
}

// NewsSource fetches recent entries from a feed URL.
type NewsSource interface {
	Fetch(ctx context.Context, feedURL string, limit int) ([]NewsItem, error)
}

// HTTPPostSource pulls posts from a scraper proxy exposing
// GET {base}/tweets/{handle}?limit=N returning {"tweets": [...]}.
type HTTPPostSource struct {
	client *resty.Client
}

// NewHTTPPostSource creates a post source against the given base URL.
func NewHTTPPostSource(baseURL string) *HTTPPostSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second)
	return &HTTPPostSource{client: client}
}

func (s *HTTPPostSource) Posts(ctx context.Context, handle string, limit int) ([]Post, error) {
	var body struct {
		Tweets []Post `json:"tweets"`
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetResult(&body).
		Get("/tweets/" + handle)
	if err != nil {
		return nil, fmt.Errorf("fetch posts for %s: %w", handle, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch posts for %s: status %d", handle, resp.StatusCode())
	}
	if len(body.Tweets) > limit {
		body.Tweets = body.Tweets[:limit]
	}
	return body.Tweets, nil
}

// FeedSource reads RSS/Atom feeds.
type FeedSource struct {
	parser *gofeed.Parser
}

func NewFeedSource() *FeedSource {
	return &FeedSource{parser: gofeed.NewParser()}
}

func (s *FeedSource) Fetch(ctx context.Context, feedURL string, limit int) ([]NewsItem, error) {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	items := feed.Items
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]NewsItem, 0, len(items))
	for _, it := range items {
		out = append(out, NewsItem{
			Link:    it.Link,
			Title:   it.Title,
			Summary: it.Description,
		})
	}
	return out, nil
}
