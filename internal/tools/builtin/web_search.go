package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/agentoven/quant-go/internal/models"
)

// WebSearchTool performs a web search via DuckDuckGo's HTML endpoint and
// returns a formatted list of results.
type WebSearchTool struct{}

func (WebSearchTool) Name() string { return "web_search" }

func (WebSearchTool) Description() string {
	return "Search the web and return a list of results with titles, URLs, and snippets."
}

func (WebSearchTool) SecurityLevel() models.SecurityLevel { return models.Moderate }

func (WebSearchTool) ParametersSchema() models.ParameterSchema {
	return models.NewParameterSchema().
		WithRequired("query", models.StringProp("The search query")).
		WithProperty("limit", models.NumberProp("Maximum number of results to return (default: 10)"))
}

type webSearchArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResult struct {
	Title   string
	URL     string
	Snippet string
}

func (WebSearchTool) Execute(ctx context.Context, raw json.RawMessage, tc *models.ToolContext) (*models.ToolResult, error) {
	var args webSearchArgs
	if err := json.Unmarshal(raw, &args); err != nil || args.Query == "" {
		return models.ErrorResult("missing required parameter: query"), nil
	}

	limit := 10
	if args.Limit > 0 {
		limit = args.Limit
	}

	searchURL := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(args.Query)

	fetchCtx, cancel := context.WithTimeout(ctx, effectiveHTTPTimeout(tc))
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, searchURL, nil)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("failed to build request: %s", err)), nil
	}
	req.Header.Set("User-Agent", "quant-cli/1.0")

	resp, err := sharedFetchClient().Do(req)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("search request failed: %s", err)), nil
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("failed to parse search results: %s", err)), nil
	}

	var results []searchResult
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(results) >= limit {
			return false
		}
		link := sel.Find(".result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())

		if title == "" || href == "" {
			return true
		}
		results = append(results, searchResult{
			Title:   title,
			URL:     unwrapDuckDuckGoRedirect(href),
			Snippet: snippet,
		})
		return true
	})

	if len(results) == 0 {
		return models.SuccessResult(fmt.Sprintf("No results found for: %s", args.Query)), nil
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}

	output := truncateUTF8(b.String(), effectiveMaxOutputLen(tc), "Output")
	return models.SuccessResult(output), nil
}

// unwrapDuckDuckGoRedirect recovers the real target URL from a
// DuckDuckGo "/l/?uddg=<encoded>" redirect link.
func unwrapDuckDuckGoRedirect(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	uddg := parsed.Query().Get("uddg")
	if uddg == "" {
		if strings.HasPrefix(href, "//") {
			return "https:" + href
		}
		return href
	}
	decoded, err := url.QueryUnescape(uddg)
	if err != nil {
		return href
	}
	return decoded
}
