// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Headline is one item from a news source, used as raw material for the
// analyze stage.
type Headline struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// Fetcher retrieves current headlines for the fetch stage.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Headline, error)
}

// HTTPFetcher pulls headlines from a JSON feed endpoint. The feed is
// expected to return a JSON array of objects with title, url, and
// summary fields.
type HTTPFetcher struct {
	feedURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher for the given feed URL.
func NewHTTPFetcher(feedURL string) *HTTPFetcher {
	return &HTTPFetcher{
		feedURL: feedURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]Headline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("feed read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed error (status %d): %s", resp.StatusCode, string(body))
	}

	var headlines []Headline
	if err := json.Unmarshal(body, &headlines); err != nil {
		return nil, fmt.Errorf("feed unmarshal: %w", err)
	}
	return headlines, nil
}
