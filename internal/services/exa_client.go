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

// SearchCategory is one of the fixed Exa search categories.
type SearchCategory string

const (
	CategoryCompany         SearchCategory = "company"
	CategoryResearchPaper   SearchCategory = "research paper"
	CategoryNews            SearchCategory = "news"
	CategoryPDF             SearchCategory = "pdf"
	CategoryGitHub          SearchCategory = "github"
	CategoryTweet           SearchCategory = "tweet"
	CategoryPersonalSite    SearchCategory = "personal site"
	CategoryLinkedInProfile SearchCategory = "linkedin profile"
	CategoryFinancialReport SearchCategory = "financial report"
)

// AllSearchCategories lists every category in registry order.
var AllSearchCategories = []SearchCategory{
	CategoryCompany,
	CategoryResearchPaper,
	CategoryNews,
	CategoryPDF,
	CategoryGitHub,
	CategoryTweet,
	CategoryPersonalSite,
	CategoryLinkedInProfile,
	CategoryFinancialReport,
}

// ExaResult is one search hit as returned by the Exa API.
type ExaResult struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	PublishedDate string   `json:"publishedDate"`
	Author        string   `json:"author"`
	Highlights    []string `json:"highlights"`
	Text          string   `json:"text"`
}

type exaSearchRequest struct {
	Query      string             `json:"query"`
	Category   string             `json:"category"`
	NumResults int                `json:"numResults"`
	Contents   exaContentsRequest `json:"contents"`
}

type exaContentsRequest struct {
	Text       bool `json:"text"`
	Highlights bool `json:"highlights"`
}

type exaSearchResponse struct {
	Results []ExaResult `json:"results"`
}

// ExaClient calls the Exa search API over HTTP.
type ExaClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewExaClient(apiKey string) *ExaClient {
	return &ExaClient{
		apiKey:     apiKey,
		baseURL:    "https://api.exa.ai",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewExaClientWithBaseURL is used by tests to point the client at a stub server.
func NewExaClientWithBaseURL(apiKey, baseURL string) *ExaClient {
	c := NewExaClient(apiKey)
	c.baseURL = baseURL
	return c
}

// SearchAndContents runs a category-scoped search returning ten results with
// text and highlight snippets.
func (c *ExaClient) SearchAndContents(ctx context.Context, query string, category SearchCategory) ([]ExaResult, error) {
	payload, err := json.Marshal(exaSearchRequest{
		Query:      query,
		Category:   string(category),
		NumResults: 10,
		Contents:   exaContentsRequest{Text: true, Highlights: true},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("exa search failed: status code %d: %s", resp.StatusCode, string(body))
	}

	var searchResponse exaSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("failed to decode exa response: %v", err)
	}

	return searchResponse.Results, nil
}
