package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ScrapeResult is the extracted main content of one web page.
type ScrapeResult struct {
	Content string
	Title   string
	URL     string
}

type firecrawlScrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type firecrawlScrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title     string `json:"title"`
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
	Error string `json:"error"`
}

// FirecrawlClient calls the Firecrawl scrape API over HTTP.
type FirecrawlClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewFirecrawlClient(apiKey string) *FirecrawlClient {
	return &FirecrawlClient{
		apiKey:     apiKey,
		baseURL:    "https://api.firecrawl.dev",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewFirecrawlClientWithBaseURL is used by tests to point the client at a stub server.
func NewFirecrawlClientWithBaseURL(apiKey, baseURL string) *FirecrawlClient {
	c := NewFirecrawlClient(apiKey)
	c.baseURL = baseURL
	return c
}

// Scrape extracts the main content of a page as markdown.
func (c *FirecrawlClient) Scrape(ctx context.Context, url string) (*ScrapeResult, error) {
	payload, err := json.Marshal(firecrawlScrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("firecrawl scrape failed: status code %d: %s", resp.StatusCode, string(body))
	}

	var scrapeResponse firecrawlScrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&scrapeResponse); err != nil {
		return nil, fmt.Errorf("failed to decode firecrawl response: %v", err)
	}

	if !scrapeResponse.Success {
		return nil, fmt.Errorf("firecrawl scrape failed: %s", scrapeResponse.Error)
	}

	result := &ScrapeResult{
		Content: scrapeResponse.Data.Markdown,
		Title:   scrapeResponse.Data.Metadata.Title,
		URL:     scrapeResponse.Data.Metadata.SourceURL,
	}
	if result.URL == "" {
		result.URL = url
	}
	return result, nil
}
