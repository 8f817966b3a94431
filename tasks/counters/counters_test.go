package counters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/net/html"

	"strikebot/model"
	"strikebot/platform/platformtest"
	"strikebot/utils/database"
)

func ptr(v int64) *int64 {
	return &v
}

func TestStabilityKeepsLastKnownGood(t *testing.T) {
	fetches := []*int64{ptr(120), nil, nil, ptr(95)}
	want := []int64{120, 120, 120, 95}

	var cached *int64
	for i, f := range fetches {
		cached = Stabilize(f, cached)
		require.NotNil(t, cached)
		assert.Equal(t, want[i], *cached, "fetch %d", i)
	}
}

func TestResolveOverride(t *testing.T) {
	assert.Equal(t, int64(500), *Resolve(ptr(300), ptr(500)))
	assert.Equal(t, int64(600), *Resolve(ptr(600), ptr(500)))
	assert.Equal(t, int64(500), *Resolve(nil, ptr(500)))
	assert.Equal(t, int64(42), *Resolve(ptr(42), nil))
	assert.Nil(t, Resolve(nil, nil))
}

func TestFormatCount(t *testing.T) {
	cases := map[string]*int64{
		"—":         nil,
		"0":         ptr(0),
		"999":       ptr(999),
		"1.000":     ptr(1000),
		"12.345":    ptr(12345),
		"1.234.567": ptr(1234567),
	}
	for want, n := range cases {
		assert.Equal(t, want, FormatCount(n))
	}
	assert.Equal(t, "👥 Members: 1.024", ChannelName("👥 Members: {count}", ptr(1024)))
	assert.Len(t, []rune(ChannelName(strings.Repeat("x", 150)+"{count}", nil)), 100)
}

func TestParseFollowers(t *testing.T) {
	cases := map[string]int64{
		"1.2M Followers, 30 Following, 200 Posts": 1200000,
		"12,345 followers":                        12345,
		"3.4K volgers":                            3400,
		"812 Followers":                           812,
	}
	for in, want := range cases {
		n, ok := parseFollowers(in)
		require.True(t, ok, in)
		assert.Equal(t, want, n, in)
	}
	_, ok := parseFollowers("no numbers here")
	assert.False(t, ok)
}

func TestFollowersFromHTML(t *testing.T) {
	page := `<html><head><meta property="og:description" content="45.6K Followers, 12 Following"></head>
<body><script>var followers = 1;</script><p>hello</p></body></html>`
	doc, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)
	n, ok := FollowersFromHTML(doc)
	require.True(t, ok)
	assert.Equal(t, int64(45600), n)
}

func TestURLFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"followers": "1234"}`)
		case "/text":
			fmt.Fprint(w, "12,345")
		default:
			http.Error(w, "nope", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	n, err := URL(srv.Client(), srv.URL+"/json", "followers").Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), n)

	n, err = URL(srv.Client(), srv.URL+"/text", "").Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), n)

	_, err = URL(srv.Client(), srv.URL+"/broken", "").Fetch(ctx)
	assert.Error(t, err)

	assert.Nil(t, URL(srv.Client(), "", ""))
}

func TestTwitchCachesAppToken(t *testing.T) {
	var tokens atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			tokens.Add(1)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"app-token","token_type":"bearer","expires_in":3600}`)
		case "/helix/channels/followers":
			if r.Header.Get("Authorization") != "Bearer app-token" || r.Header.Get("Client-Id") != "cid" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "b1", r.URL.Query().Get("broadcaster_id"))
			fmt.Fprint(w, `{"total": 5120, "data": []}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	f := Twitch(ctx, srv.Client(), TwitchConfig{
		ClientID: "cid", ClientSecret: "secret", BroadcasterID: "b1",
		TokenURL: srv.URL + "/token", APIBase: srv.URL + "/helix",
	})
	require.NotNil(t, f)
	for range 3 {
		n, err := f.Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5120), n)
	}
	assert.Equal(t, int32(1), tokens.Load())

	assert.Nil(t, Twitch(ctx, srv.Client(), TwitchConfig{ClientID: "cid"}))
}

func TestInstagramAndTikTok(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v19.0/ig1"):
			assert.Equal(t, "followers_count", r.URL.Query().Get("fields"))
			fmt.Fprint(w, `{"followers_count": 777, "id": "ig1"}`)
		case r.URL.Path == "/v2/user/info/":
			if r.Header.Get("Authorization") != "Bearer tt" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"data": {"user": {"follower_count": 31000}}, "error": {"code": "ok"}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	n, err := Instagram(srv.Client(), InstagramConfig{UserID: "ig1", AccessToken: "tok", GraphVersion: "v19.0", APIBase: srv.URL}).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(777), n)

	n, err = TikTok(srv.Client(), TikTokConfig{AccessToken: "tt", APIBase: srv.URL}).Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(31000), n)

	_, err = TikTok(srv.Client(), TikTokConfig{AccessToken: "wrong", APIBase: srv.URL}).Fetch(ctx)
	assert.Error(t, err)
}

func TestFirstOf(t *testing.T) {
	failing := FetcherFunc(func(context.Context) (int64, error) { return 0, ErrNoData })
	ok := FetcherFunc(func(context.Context) (int64, error) { return 9, nil })

	n, err := FirstOf(nil, failing, ok).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	_, err = FirstOf(nil).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store, err := database.Open(ctx, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	cache := NewRedisCache(client, NewStoreCache(store))
	v, err := cache.Get(ctx, "g1", model.CounterTwitch)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, cache.Set(ctx, "g1", model.CounterTwitch, 4321))
	got, err := mr.Get("strikebot:counter:g1:twitch")
	require.NoError(t, err)
	assert.Equal(t, "4321", got)

	// falls back to the database once Redis lost the key
	mr.FlushAll()
	v, err = cache.Get(ctx, "g1", model.CounterTwitch)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, int64(4321), *v)
}

type UpdaterTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *database.Store
	fake    *platformtest.Fake
	updater *Updater
	twitch  []*int64
	calls   int
}

func (s *UpdaterTestSuite) SetupTest() {
	s.ctx = context.Background()
	store, err := database.Open(s.ctx, filepath.Join(s.T().TempDir(), "counters.db"))
	s.Require().NoError(err)
	s.store = store

	s.fake = platformtest.New("bot")
	s.fake.AddGuild("g1", "Guild", "owner")
	for i := 0; i < 3; i++ {
		s.fake.AddMember("g1", fmt.Sprintf("u%d", i), "user")
	}
	s.twitch = nil
	s.calls = 0

	twitch := FetcherFunc(func(context.Context) (int64, error) {
		i := s.calls
		s.calls++
		if i >= len(s.twitch) || s.twitch[i] == nil {
			return 0, ErrNoData
		}
		return *s.twitch[i], nil
	})
	updater, err := New(&Config{
		GuildID:  "g1",
		Store:    store,
		Cache:    NewStoreCache(store),
		Platform: s.fake,
		Fetchers: map[model.CounterKind]Fetcher{
			model.CounterMembers: Members(s.fake, "g1"),
			model.CounterTwitch:  twitch,
		},
		Templates:    map[string]string{"twitch": "Twitch: {count}"},
		CategoryName: "Stats",
	})
	s.Require().NoError(err)
	s.updater = updater
}

func (s *UpdaterTestSuite) TearDownTest() {
	s.store.Close()
}

func TestUpdaterTestSuite(t *testing.T) {
	suite.Run(t, new(UpdaterTestSuite))
}

func (s *UpdaterTestSuite) channelName(kind model.CounterKind) string {
	bindings, err := s.store.CounterChannels(s.ctx, "g1")
	s.Require().NoError(err)
	channels, err := s.fake.GuildChannels(s.ctx, "g1")
	s.Require().NoError(err)
	for _, b := range bindings {
		if b.Kind != kind {
			continue
		}
		for _, c := range channels {
			if c.ID == b.ChannelID {
				return c.Name
			}
		}
	}
	return ""
}

func (s *UpdaterTestSuite) TestEnsureChannelsIsIdempotent() {
	first, err := s.updater.EnsureChannels(s.ctx)
	s.Require().NoError(err)
	s.Len(first, len(model.CounterKinds))

	second, err := s.updater.EnsureChannels(s.ctx)
	s.Require().NoError(err)
	s.Equal(first, second)

	channels, err := s.fake.GuildChannels(s.ctx, "g1")
	s.Require().NoError(err)
	s.Len(channels, len(model.CounterKinds)+1)
	s.Equal("Twitch: —", s.channelName(model.CounterTwitch))
}

func (s *UpdaterTestSuite) TestRefreshStabilityAndRenames() {
	s.twitch = []*int64{ptr(120), nil, nil, ptr(95)}
	want := []string{"Twitch: 120", "Twitch: 120", "Twitch: 120", "Twitch: 95"}

	renames := 0
	for i := range want {
		_, err := s.updater.Refresh(s.ctx)
		s.Require().NoError(err)
		s.Equal(want[i], s.channelName(model.CounterTwitch), "tick %d", i)
		if i == 0 {
			renames = s.fake.RenameN
		}
	}
	s.Equal("👥 Members: 3", s.channelName(model.CounterMembers))
	// ticks 2 and 3 leave every name unchanged
	s.Equal(renames+1, s.fake.RenameN)
}

func (s *UpdaterTestSuite) TestOverrideWinsUntilExceeded() {
	s.twitch = []*int64{ptr(300), ptr(600)}
	s.Require().NoError(s.updater.SetOverride(s.ctx, model.CounterTwitch, ptr(500)))

	states, err := s.updater.Refresh(s.ctx)
	s.Require().NoError(err)
	s.Equal("Twitch: 500", s.channelName(model.CounterTwitch))
	for _, st := range states {
		if st.Kind == model.CounterTwitch {
			s.Equal(int64(300), *st.Cached)
			s.Equal(int64(500), *st.Override)
		}
	}

	_, err = s.updater.Refresh(s.ctx)
	s.Require().NoError(err)
	s.Equal("Twitch: 600", s.channelName(model.CounterTwitch))

	s.Require().NoError(s.updater.SetOverride(s.ctx, model.CounterTwitch, nil))
	states, err = s.updater.States(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(states, len(model.CounterKinds))
	s.Nil(states[1].Override)
	s.Equal(int64(600), *states[1].Cached)

	s.Error(s.updater.SetOverride(s.ctx, "youtube", ptr(1)))
}

