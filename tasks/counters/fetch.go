package counters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"strikebot/platform"
	"strikebot/utils"
)

// ErrNoData means a source is not configured or returned nothing usable.
var ErrNoData = errors.New("counter source returned no data")

// Fetcher reads the current value of one counter. Any error means "no data".
type Fetcher interface {
	Fetch(ctx context.Context) (int64, error)
}

type FetcherFunc func(ctx context.Context) (int64, error)

func (f FetcherFunc) Fetch(ctx context.Context) (int64, error) {
	return f(ctx)
}

// FirstOf tries each fetcher in order and returns the first value found.
func FirstOf(fetchers ...Fetcher) Fetcher {
	return FetcherFunc(func(ctx context.Context) (int64, error) {
		errs := make([]error, 0, len(fetchers))
		for _, f := range fetchers {
			if f == nil {
				continue
			}
			v, err := f.Fetch(ctx)
			if err == nil {
				return v, nil
			}
			errs = append(errs, err)
		}
		if len(errs) == 0 {
			return 0, ErrNoData
		}
		return 0, errors.Join(errs...)
	})
}

// Members counts guild members through the platform.
func Members(p platform.Platform, guildID string) Fetcher {
	return FetcherFunc(func(ctx context.Context) (int64, error) {
		n, err := p.MemberCount(ctx, guildID)
		return int64(n), err
	})
}

// jsonNumber accepts numbers and digit strings.
func jsonNumber(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func withClient(ctx context.Context, client *http.Client) context.Context {
	if client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// TwitchConfig configures the Helix follower lookup.
type TwitchConfig struct {
	ClientID      string
	ClientSecret  string
	BroadcasterID string
	TokenURL      string
	APIBase       string
}

// Twitch reads the follower total from Helix with an app access token. The
// token source caches the token until it expires.
func Twitch(ctx context.Context, client *http.Client, cfg TwitchConfig) Fetcher {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.BroadcasterID == "" {
		return nil
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://id.twitch.tv/oauth2/token"
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.twitch.tv/helix"
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	authed := cc.Client(withClient(ctx, client))
	if client != nil {
		authed.Timeout = client.Timeout
	}

	endpoint := cfg.APIBase + "/channels/followers?broadcaster_id=" + url.QueryEscape(cfg.BroadcasterID)
	return FetcherFunc(func(ctx context.Context) (int64, error) {
		var body struct {
			Total *int64 `json:"total"`
		}
		if err := utils.GetJSON(ctx, authed, endpoint, http.Header{"Client-Id": {cfg.ClientID}}, &body); err != nil {
			return 0, err
		}
		if body.Total == nil {
			return 0, ErrNoData
		}
		return *body.Total, nil
	})
}

// InstagramConfig configures the Graph API lookup.
type InstagramConfig struct {
	UserID       string
	AccessToken  string
	GraphVersion string
	APIBase      string
}

// Instagram reads followers_count of a business account from the Graph API.
func Instagram(client *http.Client, cfg InstagramConfig) Fetcher {
	if cfg.UserID == "" || cfg.AccessToken == "" {
		return nil
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://graph.facebook.com"
	}
	q := url.Values{"fields": {"followers_count"}, "access_token": {cfg.AccessToken}}
	endpoint := fmt.Sprintf("%s/%s/%s?%s", cfg.APIBase, cfg.GraphVersion, url.PathEscape(cfg.UserID), q.Encode())
	return FetcherFunc(func(ctx context.Context) (int64, error) {
		var body map[string]interface{}
		if err := utils.GetJSON(ctx, client, endpoint, nil, &body); err != nil {
			return 0, err
		}
		if n, ok := jsonNumber(body["followers_count"]); ok {
			return n, nil
		}
		return 0, ErrNoData
	})
}

// TikTokConfig configures the v2 user info lookup.
type TikTokConfig struct {
	AccessToken string
	APIBase     string
}

// TikTok reads follower_count from the v2 user info endpoint.
func TikTok(client *http.Client, cfg TikTokConfig) Fetcher {
	if cfg.AccessToken == "" {
		return nil
	}
	if cfg.APIBase == "" {
		cfg.APIBase = "https://open.tiktokapis.com"
	}
	endpoint := cfg.APIBase + "/v2/user/info/?fields=follower_count"
	header := http.Header{"Authorization": {"Bearer " + cfg.AccessToken}}
	return FetcherFunc(func(ctx context.Context) (int64, error) {
		var body struct {
			Data struct {
				User map[string]interface{} `json:"user"`
			} `json:"data"`
		}
		if err := utils.GetJSON(ctx, client, endpoint, header, &body); err != nil {
			return 0, err
		}
		if n, ok := jsonNumber(body.Data.User["follower_count"]); ok {
			return n, nil
		}
		return 0, ErrNoData
	})
}

// URL reads a number from an endpoint returning either JSON with the number
// under key, or a plain text body whose digits form the number.
func URL(client *http.Client, rawURL, key string) Fetcher {
	if rawURL == "" {
		return nil
	}
	if key == "" {
		key = "count"
	}
	return FetcherFunc(func(ctx context.Context) (int64, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return 0, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return 0, fmt.Errorf("GET %s: %s", req.URL.Host, resp.Status)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return 0, err
		}

		trimmed := strings.TrimSpace(string(body))
		if strings.Contains(resp.Header.Get("Content-Type"), "application/json") || strings.HasPrefix(trimmed, "{") {
			var data map[string]interface{}
			if err := json.Unmarshal(body, &data); err != nil {
				return 0, err
			}
			if n, ok := jsonNumber(data[key]); ok {
				return n, nil
			}
			return 0, ErrNoData
		}

		digits := strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, trimmed)
		if digits == "" {
			return 0, ErrNoData
		}
		return strconv.ParseInt(digits, 10, 64)
	})
}
