package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	tweetrivia "github.com/tweetrivia/tweetrivia"
)

// Client fetches a user's recent tweets from the Twitter API v2 using
// bearer-token auth.
type Client struct {
	// BaseURL may be overridden for testing. Defaults to the public API.
	BaseURL string

	bearerToken string
	client      *http.Client
	logger      *slog.Logger
}

const (
	defaultBaseURL = "https://api.twitter.com"

	// maxPosts caps how many tweets one fetch returns.
	maxPosts = 100
	// lookback bounds how far back fetched tweets may reach.
	lookback = 365 * 24 * time.Hour

	requestTimeout = 30 * time.Second
)

// NewClient creates a new Twitter API client.
func NewClient(bearerToken string, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:     defaultBaseURL,
		bearerToken: bearerToken,
		client:      &http.Client{Timeout: requestTimeout},
		logger:      logger.With(slog.String("module", "twitter")),
	}
}

// FetchPosts returns up to 100 of the user's tweets from the last year as
// posts, newest first. An unknown user or any API failure logs the cause and
// returns an empty slice; the generation pipeline treats missing source
// material as an empty game, not an error.
func (c *Client) FetchPosts(ctx context.Context, username string) []tweetrivia.Post {
	posts, err := c.fetch(ctx, username)
	if err != nil {
		c.logger.Warn("Failed to fetch posts", "username", username, "error", err)
		return nil
	}

	return posts
}

func (c *Client) fetch(ctx context.Context, username string) ([]tweetrivia.Post, error) {
	userID, err := c.lookupUserID(ctx, username)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("max_results", fmt.Sprintf("%d", maxPosts))
	query.Set("tweet.fields", "created_at,text")
	query.Set("start_time", time.Now().Add(-lookback).UTC().Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/2/users/%s/tweets?%s", c.BaseURL, userID, query.Encode())

	var payload struct {
		Data []struct {
			Text      string `json:"text"`
			CreatedAt string `json:"created_at"`
		} `json:"data"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	posts := make([]tweetrivia.Post, 0, len(payload.Data))
	for _, tweet := range payload.Data {
		posts = append(posts, tweetrivia.Post{
			Text:      tweet.Text,
			CreatedAt: tweet.CreatedAt,
		})
	}

	return tweetrivia.NormalizePosts(posts), nil
}

func (c *Client) lookupUserID(ctx context.Context, username string) (string, error) {
	endpoint := fmt.Sprintf("%s/2/users/by/username/%s", c.BaseURL, url.PathEscape(username))

	var payload struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return "", err
	}

	if payload.Data.ID == "" {
		return "", fmt.Errorf("user %s not found", username)
	}

	return payload.Data.ID, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
