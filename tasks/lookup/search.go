package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"strikebot/utils"
)

// MaxResults caps one search.
const MaxResults = 25

var ErrNoResults = errors.New("no results found")

// Result is one web search hit.
type Result struct {
	Title   string
	Snippet string
	URL     string
}

// Summary is the Wikipedia extract shown above results whose top hit is a wiki page.
type Summary struct {
	Title   string
	Extract string
	URL     string
}

// Search scrapes the DuckDuckGo HTML endpoint and enriches Wikipedia hits.
type Search struct {
	client *http.Client
	// SearchURL receives the query as the q parameter.
	SearchURL string
	// SummaryURL is a format string taking the escaped page title.
	SummaryURL string
}

func NewSearch(client *http.Client) *Search {
	return &Search{
		client:     client,
		SearchURL:  "https://html.duckduckgo.com/html/",
		SummaryURL: "https://en.wikipedia.org/api/rest_v1/page/summary/%s",
	}
}

// Query returns up to MaxResults organic results for q.
func (s *Search) Query(ctx context.Context, q string) ([]Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrNoResults
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.SearchURL+"?"+url.Values{"q": {q}}.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; strikebot)")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: %s", req.URL.Host, resp.Status)
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	results := ResultsFromHTML(doc)
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results, nil
}

// ResultsFromHTML extracts result links and snippets from a DuckDuckGo
// results page. Ads are skipped.
func ResultsFromHTML(doc *html.Node) []Result {
	var out []Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			classes := attr(n, "class")
			switch {
			case hasClass(classes, "result--ad"):
				return
			case n.Data == "a" && hasClass(classes, "result__a"):
				out = append(out, Result{Title: text(n), URL: resolveLink(attr(n, "href"))})
				return
			case hasClass(classes, "result__snippet"):
				if len(out) > 0 {
					out[len(out)-1].Snippet = text(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classes, want string) bool {
	for _, c := range strings.Fields(classes) {
		if c == want {
			return true
		}
	}
	return false
}

var spaces = regexp.MustCompile(`\s+`)

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(spaces.ReplaceAllString(b.String(), " "))
}

// resolveLink unwraps DuckDuckGo redirect links ("//duckduckgo.com/l/?uddg=...").
func resolveLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}

var wikiPath = regexp.MustCompile(`^/wiki/([^#?]+)`)

// WikipediaSummary returns the summary of pageURL when it is a Wikipedia article.
func (s *Search) WikipediaSummary(ctx context.Context, pageURL string) (*Summary, bool) {
	u, err := url.Parse(pageURL)
	if err != nil || !strings.HasSuffix(u.Host, "wikipedia.org") {
		return nil, false
	}
	m := wikiPath.FindStringSubmatch(u.EscapedPath())
	if m == nil {
		return nil, false
	}
	var body struct {
		Title   string `json:"title"`
		Extract string `json:"extract"`
	}
	header := http.Header{"Accept": {"application/json"}}
	if err := utils.GetJSON(ctx, s.client, fmt.Sprintf(s.SummaryURL, m[1]), header, &body); err != nil {
		return nil, false
	}
	extract := strings.TrimSpace(body.Extract)
	if body.Title == "" || extract == "" {
		return nil, false
	}
	if len([]rune(extract)) > 500 {
		extract = truncate(extract, 500) + "…"
	}
	return &Summary{Title: body.Title, Extract: extract, URL: pageURL}, true
}
