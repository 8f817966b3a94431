package counters

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var followersPattern = regexp.MustCompile(`(?i)([\d][\d.,]*)\s*([KMB])?\s*(?:followers|volgers)`)

// Scrape reads a follower count from a public profile page. It looks at the
// description meta tags first and then at visible text.
func Scrape(client *http.Client, rawURL string) Fetcher {
	if rawURL == "" {
		return nil
	}
	return FetcherFunc(func(ctx context.Context) (int64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return 0, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; strikebot)")
		req.Header.Set("Accept-Language", "en-US,en;q=0.8")
		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return 0, fmt.Errorf("GET %s: %s", req.URL.Host, resp.Status)
		}
		doc, err := html.Parse(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return 0, err
		}
		if n, ok := FollowersFromHTML(doc); ok {
			return n, nil
		}
		return 0, ErrNoData
	})
}

// FollowersFromHTML searches a parsed page for a "<n> followers" phrase.
func FollowersFromHTML(doc *html.Node) (int64, bool) {
	var metas, texts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			if n.Data == "meta" {
				var name, content string
				for _, a := range n.Attr {
					switch strings.ToLower(a.Key) {
					case "name", "property":
						name = strings.ToLower(a.Val)
					case "content":
						content = a.Val
					}
				}
				if strings.HasSuffix(name, "description") {
					metas = append(metas, content)
				}
			}
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				texts = append(texts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, s := range append(metas, texts...) {
		if n, ok := parseFollowers(s); ok {
			return n, true
		}
	}
	return 0, false
}

func parseFollowers(s string) (int64, bool) {
	m := followersPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	num, suffix := m[1], strings.ToUpper(m[2])
	if suffix == "" {
		digits := strings.NewReplacer(".", "", ",", "").Replace(num)
		n, err := strconv.ParseInt(digits, 10, 64)
		return n, err == nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	switch suffix {
	case "K":
		f *= 1e3
	case "M":
		f *= 1e6
	case "B":
		f *= 1e9
	}
	return int64(math.Round(f)), true
}
