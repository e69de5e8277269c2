package services

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
)

const (
	ToolTypeSearchExa = "searchExa"
	ToolTypeScrapeURL = "scrapeUrl"
)

// ToolSelection is one client-side tool choice, round-tripped from the
// request body. It is request-scoped configuration, not a stored entity.
type ToolSelection struct {
	Type     string         `json:"type"`
	Category SearchCategory `json:"category,omitempty"`
}

// searchToolNames maps each category to the function name the model calls.
var searchToolNames = map[SearchCategory]string{
	CategoryCompany:         "searchCompany",
	CategoryResearchPaper:   "searchResearchPaper",
	CategoryNews:            "searchNews",
	CategoryPDF:             "searchPDF",
	CategoryGitHub:          "searchGitHub",
	CategoryTweet:           "searchTweet",
	CategoryPersonalSite:    "searchPersonalSite",
	CategoryLinkedInProfile: "searchLinkedInProfile",
	CategoryFinancialReport: "searchFinancialReport",
}

var searchToolDescriptions = map[SearchCategory]string{
	CategoryCompany:         "Search for company information including profiles, news, and financial data",
	CategoryResearchPaper:   "Search for academic papers, research publications, and scientific studies",
	CategoryNews:            "Search for recent news articles, press releases, and current events",
	CategoryPDF:             "Search for PDF documents including reports, white papers, and documentation",
	CategoryGitHub:          "Search for GitHub repositories, code, documentation, and issues",
	CategoryTweet:           "Search for tweets and Twitter content from individuals and organizations",
	CategoryPersonalSite:    "Search for personal websites, blogs, and individual online presences",
	CategoryLinkedInProfile: "Search for LinkedIn profiles of professionals and organizations",
	CategoryFinancialReport: "Search for financial reports, earnings statements, and economic data",
}

// SearchProvider runs a category-scoped web search.
type SearchProvider interface {
	SearchAndContents(ctx context.Context, query string, category SearchCategory) ([]ExaResult, error)
}

// ScrapeProvider extracts the main content of a web page.
type ScrapeProvider interface {
	Scrape(ctx context.Context, url string) (*ScrapeResult, error)
}

// Tool is one capability the model may invoke: a name, a parameter schema
// and a handler. Handlers never return Go errors; failures are reported as
// {error, message} payloads so the model can react to them.
type Tool struct {
	Name        string
	Description string
	Parameters  *genai.Schema
	Execute     func(ctx context.Context, args map[string]interface{}) map[string]interface{}
}

// ToolRegistry is the fixed catalog of search and scrape capabilities.
type ToolRegistry struct {
	tools map[string]Tool
}

func NewToolRegistry(search SearchProvider, scraper ScrapeProvider) *ToolRegistry {
	registry := &ToolRegistry{tools: make(map[string]Tool)}

	for _, category := range AllSearchCategories {
		category := category
		registry.tools[searchToolNames[category]] = Tool{
			Name:        searchToolNames[category],
			Description: searchToolDescriptions[category],
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {
						Type:        genai.TypeString,
						Description: "The search query",
					},
				},
				Required: []string{"query"},
			},
			Execute: func(ctx context.Context, args map[string]interface{}) map[string]interface{} {
				query, _ := args["query"].(string)
				return executeSearch(ctx, search, query, category)
			},
		}
	}

	registry.tools[ToolTypeScrapeURL] = Tool{
		Name:        ToolTypeScrapeURL,
		Description: "Scrape and extract content from a URL",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"url": {
					Type:        genai.TypeString,
					Description: "The URL to scrape",
				},
			},
			Required: []string{"url"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) map[string]interface{} {
			url, _ := args["url"].(string)
			return executeScrape(ctx, scraper, url)
		},
	}

	return registry
}

// splitToolSelections filters a selection list into its valid search
// categories (in selection order, deduplicated) and the scrape flag.
func splitToolSelections(selections []ToolSelection) ([]SearchCategory, bool) {
	var categories []SearchCategory
	seen := make(map[SearchCategory]bool)
	hasURLScrape := false

	for _, selection := range selections {
		switch selection.Type {
		case ToolTypeSearchExa:
			if _, ok := searchToolNames[selection.Category]; ok && !seen[selection.Category] {
				seen[selection.Category] = true
				categories = append(categories, selection.Category)
			}
		case ToolTypeScrapeURL:
			hasURLScrape = true
		}
	}

	return categories, hasURLScrape
}

// ValidToolSelection reports whether a selection names a registered capability.
func ValidToolSelection(selection ToolSelection) bool {
	switch selection.Type {
	case ToolTypeSearchExa:
		_, ok := searchToolNames[selection.Category]
		return ok
	case ToolTypeScrapeURL:
		return true
	default:
		return false
	}
}

// ActiveToolNames computes the allow-list of callable tools for a request:
// exactly the union of the selected search categories and the scrape flag.
// Tools not selected are excluded entirely, in registry order.
func (r *ToolRegistry) ActiveToolNames(selections []ToolSelection) []string {
	selected, hasURLScrape := splitToolSelections(selections)

	selectedSet := make(map[SearchCategory]bool, len(selected))
	for _, category := range selected {
		selectedSet[category] = true
	}

	var names []string
	for _, category := range AllSearchCategories {
		if selectedSet[category] {
			names = append(names, searchToolNames[category])
		}
	}
	if hasURLScrape {
		names = append(names, ToolTypeScrapeURL)
	}
	return names
}

// Declarations builds the genai tool declarations for an allow-list. Names
// not present in the registry are skipped.
func (r *ToolRegistry) Declarations(names []string) []*genai.Tool {
	var declarations []*genai.FunctionDeclaration
	for _, name := range names {
		tool, ok := r.tools[name]
		if !ok {
			continue
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}
	if len(declarations) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// Execute runs a named tool. The second return is false when the tool is
// not part of the registry.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, bool) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return tool.Execute(ctx, args), true
}

func executeSearch(ctx context.Context, search SearchProvider, query string, category SearchCategory) map[string]interface{} {
	log.Debug().Str("query", query).Str("category", string(category)).Msg("Searching Exa")

	results, err := search.SearchAndContents(ctx, query, category)
	if err != nil {
		log.Error().Err(err).Str("category", string(category)).Msg("Error searching Exa")
		return map[string]interface{}{
			"error":   "Failed to search Exa",
			"message": err.Error(),
		}
	}

	formatted := make([]interface{}, 0, len(results))
	for _, result := range results {
		formatted = append(formatted, formatSearchResult(result))
	}

	return map[string]interface{}{"results": formatted}
}

// formatSearchResult shapes one hit for the model: highlights always
// present, author defaulted and long text truncated.
func formatSearchResult(result ExaResult) map[string]interface{} {
	author := result.Author
	if author == "" {
		author = "Unknown"
	}

	text := "No text available"
	if result.Text != "" {
		text = result.Text
		if runes := []rune(text); len(runes) > 500 {
			text = string(runes[:500]) + "..."
		}
	}

	highlights := make([]interface{}, 0, len(result.Highlights))
	for _, h := range result.Highlights {
		highlights = append(highlights, h)
	}

	return map[string]interface{}{
		"title":         result.Title,
		"url":           result.URL,
		"publishedDate": result.PublishedDate,
		"author":        author,
		"highlights":    highlights,
		"text":          text,
	}
}

func executeScrape(ctx context.Context, scraper ScrapeProvider, url string) map[string]interface{} {
	log.Debug().Str("url", url).Msg("Scraping URL")

	result, err := scraper.Scrape(ctx, url)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Error scraping URL")
		return map[string]interface{}{
			"error":   "Failed to scrape URL",
			"message": err.Error(),
		}
	}

	return map[string]interface{}{
		"content": result.Content,
		"title":   result.Title,
		"url":     result.URL,
	}
}
