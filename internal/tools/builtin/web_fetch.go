package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/agentoven/quant-go/internal/models"
)

var (
	fetchClientOnce sync.Once
	fetchClient     *http.Client
)

// sharedFetchClient returns a process-wide HTTP client whose dialer
// refuses to connect to private, loopback, or otherwise internal
// addresses, closing the resolve-then-check TOCTOU window a naive
// "resolve host, check IP, then fetch" approach would leave open.
func sharedFetchClient() *http.Client {
	fetchClientOnce.Do(func() {
		dialer := &net.Dialer{}
		transport := &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					if isPrivateIP(ip) {
						return nil, fmt.Errorf("refusing to connect to private address: %s", ip)
					}
				}
				return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
			},
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
		fetchClient = &http.Client{Transport: transport}
	})
	return fetchClient
}

// isPrivateIP reports whether ip is loopback, link-local, unspecified,
// or within a private/CGNAT range and therefore off-limits for fetches.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		privateBlocks := []string{
			"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16",
			"100.64.0.0/10", "169.254.0.0/16", "127.0.0.0/8",
		}
		for _, block := range privateBlocks {
			_, cidr, err := net.ParseCIDR(block)
			if err == nil && cidr.Contains(ip4) {
				return true
			}
		}
		return false
	}
	return ip.IsPrivate()
}

// WebFetchTool retrieves a URL and returns its content, optionally
// converted from HTML to text or scoped by a CSS selector.
type WebFetchTool struct{}

func (WebFetchTool) Name() string { return "web_fetch" }

func (WebFetchTool) Description() string {
	return "Fetch the content of a URL. HTML responses are converted to readable text by default; JSON responses are pretty-printed."
}

func (WebFetchTool) SecurityLevel() models.SecurityLevel { return models.Moderate }

func (WebFetchTool) ParametersSchema() models.ParameterSchema {
	return models.NewParameterSchema().
		WithRequired("url", models.StringProp("The URL to fetch (must be http or https)")).
		WithProperty("raw", models.BoolProp("Return the raw response body instead of extracting text (default: false)")).
		WithProperty("selector", models.StringProp("CSS selector to scope extraction to (e.g. 'article', '.content')"))
}

type webFetchArgs struct {
	URL      string `json:"url"`
	Raw      bool   `json:"raw"`
	Selector string `json:"selector"`
}

func (WebFetchTool) Execute(ctx context.Context, raw json.RawMessage, tc *models.ToolContext) (*models.ToolResult, error) {
	var args webFetchArgs
	if err := json.Unmarshal(raw, &args); err != nil || args.URL == "" {
		return models.ErrorResult("missing required parameter: url"), nil
	}

	parsed, err := url.Parse(args.URL)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("invalid URL: %s", err)), nil
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return models.ErrorResult("url must use http or https scheme"), nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, effectiveHTTPTimeout(tc))
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, args.URL, nil)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("failed to build request: %s", err)), nil
	}
	req.Header.Set("User-Agent", "quant-cli/1.0")

	resp, err := sharedFetchClient().Do(req)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("failed to fetch url: %s", err)), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("failed to read response body: %s", err)), nil
	}

	if resp.StatusCode >= 400 {
		return models.ErrorResult(fmt.Sprintf("request failed with status %d", resp.StatusCode)), nil
	}

	contentType := resp.Header.Get("Content-Type")

	var output string
	switch {
	case args.Raw:
		output = string(body)
	case strings.Contains(contentType, "application/json"):
		var pretty interface{}
		if err := json.Unmarshal(body, &pretty); err == nil {
			if formatted, err := json.MarshalIndent(pretty, "", "  "); err == nil {
				output = string(formatted)
			} else {
				output = string(body)
			}
		} else {
			output = string(body)
		}
	case strings.Contains(contentType, "text/html"):
		if args.Selector != "" {
			output, err = extractWithSelector(body, args.Selector)
			if err != nil {
				return models.ErrorResult(err.Error()), nil
			}
		} else {
			output, err = htmlToText(body)
			if err != nil {
				return models.ErrorResult(fmt.Sprintf("failed to parse HTML: %s", err)), nil
			}
		}
	default:
		output = string(body)
	}

	output = truncateUTF8(output, effectiveMaxOutputLen(tc), "Output")
	return models.SuccessResult(output), nil
}

// contentContainerSelectors lists the elements most likely to hold a
// page's primary content, in preference order. The first one present in
// the document wins; if none match, the whole body is walked instead.
var contentContainerSelectors = []string{
	"article", "main", "[role=main]", ".content", "#content", ".post", ".article", "body",
}

// htmlToText extracts visible text from an HTML document, skipping
// script/style/noscript elements and inserting line breaks at
// block-level boundaries. It prefers a likely main-content container
// over the whole document when one is present.
func htmlToText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()

	root := doc.Selection
	for _, sel := range contentContainerSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			root = found
			break
		}
	}

	blockTags := map[string]bool{
		"p": true, "div": true, "br": true, "li": true, "h1": true, "h2": true,
		"h3": true, "h4": true, "h5": true, "h6": true, "tr": true, "blockquote": true,
	}

	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, node *goquery.Selection) {
			if goquery.NodeName(node) == "#text" {
				text := strings.TrimSpace(node.Text())
				if text != "" {
					b.WriteString(text)
					b.WriteString(" ")
				}
				return
			}
			walk(node)
			if blockTags[goquery.NodeName(node)] {
				b.WriteString("\n")
			}
		})
	}
	walk(root)

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n"), nil
}

// extractWithSelector returns the text of every element matching a CSS
// selector, joined with a visible separator.
func extractWithSelector(body []byte, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var parts []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	if len(parts) == 0 {
		return fmt.Sprintf("no elements matched selector: %s", selector), nil
	}
	return strings.Join(parts, "\n\n---\n\n"), nil
}
