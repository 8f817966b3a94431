package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"strikebot/discipline"
	"strikebot/giveaway"
	"strikebot/model"
	"strikebot/utils"
	"strikebot/utils/clock/mocks"
	"strikebot/utils/database"
)

const (
	guildID = "100"
	crewID  = "42"
	userID  = "43"
)

type fakeAccess struct {
	levels map[string]string
}

func (f *fakeAccess) Level(_ context.Context, userID string) (string, *discordgo.Member, error) {
	level, ok := f.levels[userID]
	if !ok {
		return utils.UserPermission, nil, platformNotFound
	}
	return level, &discordgo.Member{User: &discordgo.User{ID: userID, Username: "name-" + userID}}, nil
}

func (f *fakeAccess) TextChannels(context.Context) ([]*discordgo.Channel, error) {
	return []*discordgo.Channel{{ID: "c1", Name: "general"}}, nil
}

var platformNotFound = errors.New("member not found")

type fakeModeration struct {
	mu       sync.Mutex
	unmuted  []string
	cleared  []*discipline.WarnInput
	unmuteOK bool
}

func (f *fakeModeration) Unmute(_ context.Context, _, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unmuted = append(f.unmuted, userID)
	return f.unmuteOK
}

func (f *fakeModeration) DeleteWarn(_ context.Context, in *discipline.WarnInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, in)
	return nil
}

type fakeGiveaways struct {
	created *giveaway.CreateInput
	err     error
}

func (f *fakeGiveaways) Create(_ context.Context, in *giveaway.CreateInput) (*model.Giveaway, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = in
	return &model.Giveaway{ID: 7, Prize: in.Prize, ChannelID: in.ChannelID}, nil
}

func (f *fakeGiveaways) Cancel(_ context.Context, id int64, _ string) error {
	if id != 7 {
		return giveaway.ErrGiveawayNotFound
	}
	return nil
}

func (f *fakeGiveaways) Reroll(_ context.Context, id int64, _ string) ([]string, error) {
	if id != 7 {
		return nil, giveaway.ErrGiveawayNotFound
	}
	return []string{"u1"}, nil
}

type fakeCounters struct {
	overrides map[model.CounterKind]*int64
}

func (f *fakeCounters) States(context.Context) ([]model.CounterState, error) {
	var out []model.CounterState
	for _, k := range model.CounterKinds {
		out = append(out, model.CounterState{Kind: k, Override: f.overrides[k]})
	}
	return out, nil
}

func (f *fakeCounters) SetOverride(_ context.Context, kind model.CounterKind, value *int64) error {
	f.overrides[kind] = value
	return nil
}

type DashboardTestSuite struct {
	suite.Suite
	mockCtrl   *gomock.Controller
	mockClock  *mocks.MockClock
	now        time.Time
	store      *database.Store
	moderation *fakeModeration
	giveaways  *fakeGiveaways
	counters   *fakeCounters
	discord    *httptest.Server
	server     *Server
}

func TestDashboardTestSuite(t *testing.T) {
	suite.Run(t, new(DashboardTestSuite))
}

func (s *DashboardTestSuite) SetupTest() {
	ctx := context.Background()
	s.mockCtrl = gomock.NewController(s.T())
	s.mockClock = mocks.NewMockClock(s.mockCtrl)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.mockClock.EXPECT().Now().DoAndReturn(func() time.Time { return s.now }).AnyTimes()

	store, err := database.Open(ctx, filepath.Join(s.T().TempDir(), "dashboard.db"))
	s.Require().NoError(err)
	s.store = store
	s.T().Cleanup(func() { _ = store.Close() })

	s.discord = httptest.NewServer(http.HandlerFunc(s.fakeDiscord))
	s.T().Cleanup(s.discord.Close)

	s.moderation = &fakeModeration{unmuteOK: true}
	s.giveaways = &fakeGiveaways{}
	s.counters = &fakeCounters{overrides: map[model.CounterKind]*int64{}}

	server, err := New(Config{
		PublicBaseURL: "http://dash.example",
		ClientID:      "client",
		ClientSecret:  "secret",
		SessionSecret: "session-secret",
		GuildID:       guildID,
		AuthURL:       s.discord.URL + "/oauth2/authorize",
		TokenURL:      s.discord.URL + "/api/oauth2/token",
		APIBase:       s.discord.URL + "/api",
		Access:        &fakeAccess{levels: map[string]string{crewID: utils.CrewPermission, userID: utils.UserPermission}},
		Moderation:    s.moderation,
		Giveaways:     s.giveaways,
		Counters:      s.counters,
		Store:         store,
		Clock:         s.mockClock,
		StartedAt:     func() time.Time { return s.now.Add(-time.Hour) },
	})
	s.Require().NoError(err)
	s.server = server
}

func (s *DashboardTestSuite) fakeDiscord(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/oauth2/token":
		s.NoError(r.ParseForm())
		s.Equal("good-code", r.PostForm.Get("code"))
		s.Equal("client", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	case "/api/users/@me":
		s.Equal("Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"` + crewID + `","username":"crewmate"}`))
	default:
		http.NotFound(w, r)
	}
}

func (s *DashboardTestSuite) do(method, path, body, asUser string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if asUser != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: s.server.sessions.issue(asUser, s.now)})
	}
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (s *DashboardTestSuite) decode(rec *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), out))
}

func (s *DashboardTestSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "", "")
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"ok":true}`, rec.Body.String())
}

func (s *DashboardTestSuite) TestMetrics() {
	rec := s.do(http.MethodGet, "/metrics", "", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "go_goroutines")
}

func (s *DashboardTestSuite) TestLoginFlowSetsSessionCookie() {
	rec := s.do(http.MethodGet, "/auth/login", "", "")
	s.Require().Equal(http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	s.Require().NoError(err)
	s.Equal("/oauth2/authorize", loc.Path)
	s.Equal("http://dash.example/auth/callback", loc.Query().Get("redirect_uri"))
	s.Equal("identify guilds", loc.Query().Get("scope"))
	state := loc.Query().Get("state")
	s.Require().NotEmpty(state)

	rec = s.do(http.MethodGet, "/auth/callback?code=good-code&state="+state, "", "")
	s.Require().Equal(http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal(sessionCookie, cookies[0].Name)
	s.False(cookies[0].Secure)
	s.True(cookies[0].HttpOnly)
	id, ok := s.server.sessions.parse(cookies[0].Value, s.now)
	s.True(ok)
	s.Equal(crewID, id)

	// States are single use.
	rec = s.do(http.MethodGet, "/auth/callback?code=good-code&state="+state, "", "")
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *DashboardTestSuite) TestCallbackRejectsExpiredState() {
	state := s.server.oauth.newState(s.now)
	s.now = s.now.Add(11 * time.Minute)
	rec := s.do(http.MethodGet, "/auth/callback?code=good-code&state="+state, "", "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.JSONEq(`{"error":"invalid or expired state"}`, rec.Body.String())
}

func (s *DashboardTestSuite) TestMe() {
	rec := s.do(http.MethodGet, "/api/me", "", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("null", strings.TrimSpace(rec.Body.String()))

	rec = s.do(http.MethodGet, "/api/me", "", crewID)
	var me meResponse
	s.decode(rec, &me)
	s.Equal(meResponse{UserID: crewID, Username: "name-" + crewID, Level: utils.CrewPermission, Allowed: true}, me)

	rec = s.do(http.MethodGet, "/api/me", "", userID)
	s.decode(rec, &me)
	s.False(me.Allowed)
}

func (s *DashboardTestSuite) TestAccessControl() {
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/warns", "", "").Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/api/warns", "", userID).Code)
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/api/warns", "", "999").Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/api/warns", "", crewID).Code)
}

func (s *DashboardTestSuite) TestWarnsListsOnlyWarnedMembers() {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := s.store.IncrementWarns(ctx, guildID, "1", s.now)
		s.Require().NoError(err)
	}
	_, err := s.store.IncrementWarns(ctx, guildID, "2", s.now)
	s.Require().NoError(err)
	_, err = s.store.IncrementStrikes(ctx, guildID, "3", s.now)
	s.Require().NoError(err)

	rec := s.do(http.MethodGet, "/api/warns", "", crewID)
	var resp itemsResponse[warnItem]
	s.decode(rec, &resp)
	s.Require().Len(resp.Items, 2)
	s.Equal("1", resp.Items[0].UserID)
	s.Equal(2, resp.Items[0].Warns)
	s.Equal("2", resp.Items[1].UserID)
}

func (s *DashboardTestSuite) TestClearWarns() {
	rec := s.do(http.MethodPost, "/api/warns/clear", `{"user_id":"555"}`, crewID)
	s.Equal(http.StatusOK, rec.Code)
	s.Require().Len(s.moderation.cleared, 1)
	s.Equal("555", s.moderation.cleared[0].TargetID)
	s.Equal(crewID, s.moderation.cleared[0].ModeratorID)

	rec = s.do(http.MethodPost, "/api/warns/clear", `{"user_id":"abc"}`, crewID)
	s.Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPost, "/api/warns/clear", `{"user_id":"1","extra":true}`, crewID)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *DashboardTestSuite) TestMutesAndUnmute() {
	unmuteAt := s.now.Add(24 * time.Hour)
	s.Require().NoError(s.store.UpsertMute(context.Background(), model.MuteRecord{
		GuildID: guildID, UserID: "777", RoleIDs: []string{"a", "b"}, UnmuteAt: unmuteAt,
	}))

	rec := s.do(http.MethodGet, "/api/mutes", "", crewID)
	var resp itemsResponse[muteItem]
	s.decode(rec, &resp)
	s.Require().Len(resp.Items, 1)
	s.Equal("777", resp.Items[0].UserID)
	s.Equal(unmuteAt.Unix(), resp.Items[0].UnmuteAt)
	s.Equal("2025-06-02 12:00", resp.Items[0].UnmuteAtHuman)
	s.Equal(2, resp.Items[0].RestoredRoles)

	rec = s.do(http.MethodPost, "/api/mutes/unmute", `{"user_id":"777"}`, crewID)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal([]string{"777"}, s.moderation.unmuted)

	s.moderation.unmuteOK = false
	rec = s.do(http.MethodPost, "/api/mutes/unmute", `{"user_id":"777"}`, crewID)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *DashboardTestSuite) TestCreateGiveaway() {
	rec := s.do(http.MethodPost, "/api/giveaways",
		`{"channel_id":"c1","prize":"Nitro","end":"2h","winners":2,"max_participants":10}`, crewID)
	s.Require().Equal(http.StatusCreated, rec.Code)
	s.JSONEq(`{"ok":true,"id":7}`, rec.Body.String())
	in := s.giveaways.created
	s.Require().NotNil(in)
	s.Equal(guildID, in.GuildID)
	s.Equal(crewID, in.CreatorID)
	s.Equal(s.now.Add(2*time.Hour), in.EndAt)
	s.Equal(2, in.WinnersCount)
	s.Equal(10, in.MaxParticipants)

	rec = s.do(http.MethodPost, "/api/giveaways", `{"channel_id":"c1","prize":"Nitro","end":"soon"}`, crewID)
	s.Equal(http.StatusBadRequest, rec.Code)

	s.giveaways.err = giveaway.ErrForbidden
	rec = s.do(http.MethodPost, "/api/giveaways/create", `{"channel_id":"c1","prize":"Nitro","end":"1d"}`, crewID)
	s.Equal(http.StatusForbidden, rec.Code)
	s.JSONEq(`{"error":"only admins and crew can manage giveaways"}`, rec.Body.String())
}

func (s *DashboardTestSuite) TestGiveawayActions() {
	s.Equal(http.StatusOK, s.do(http.MethodPost, "/api/giveaways/7/cancel", "", crewID).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/api/giveaways/8/cancel", "", crewID).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/giveaways/x/cancel", "", crewID).Code)

	rec := s.do(http.MethodPost, "/api/giveaways/7/reroll", "", crewID)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"ok":true,"winners":["u1"]}`, rec.Body.String())
}

func (s *DashboardTestSuite) TestRecentGiveaways() {
	ctx := context.Background()
	id, err := s.store.CreateGiveaway(ctx, &model.Giveaway{
		GuildID: guildID, ChannelID: "c1", CreatorID: crewID, Prize: "Nitro",
		EndAt: s.now.Add(time.Hour), WinnersCount: 1, CreatedAt: s.now,
	})
	s.Require().NoError(err)
	_, err = s.store.AddEntry(ctx, id, "u1", s.now)
	s.Require().NoError(err)

	rec := s.do(http.MethodGet, "/api/giveaways", "", crewID)
	var resp itemsResponse[giveawayItem]
	s.decode(rec, &resp)
	s.Require().Len(resp.Items, 1)
	s.Equal("Nitro", resp.Items[0].Prize)
	s.Equal(1, resp.Items[0].Entries)
	s.False(resp.Items[0].Ended)
	s.Equal([]string{}, resp.Items[0].Winners)
}

func (s *DashboardTestSuite) TestCounters() {
	rec := s.do(http.MethodPost, "/api/counters/override", `{"kind":"twitch","value":1500}`, crewID)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().NotNil(s.counters.overrides[model.CounterTwitch])
	s.Equal(int64(1500), *s.counters.overrides[model.CounterTwitch])

	rec = s.do(http.MethodGet, "/api/counters", "", crewID)
	var resp itemsResponse[model.CounterState]
	s.decode(rec, &resp)
	s.Require().Len(resp.Items, len(model.CounterKinds))

	rec = s.do(http.MethodPost, "/api/counters/override", `{"kind":"twitch","value":null}`, crewID)
	s.Equal(http.StatusOK, rec.Code)
	s.Nil(s.counters.overrides[model.CounterTwitch])

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/counters/override", `{"kind":"youtube"}`, crewID).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/counters/override", `{"kind":"tiktok","value":-1}`, crewID).Code)
}

func (s *DashboardTestSuite) TestCountersDisabled() {
	s.server.cfg.Counters = nil
	rec := s.do(http.MethodGet, "/api/counters", "", crewID)
	s.Equal(http.StatusNotFound, rec.Code)
	s.JSONEq(`{"error":"counters disabled"}`, rec.Body.String())
}

func (s *DashboardTestSuite) TestStatusAndChannels() {
	rec := s.do(http.MethodGet, "/api/status", "", crewID)
	s.Require().Equal(http.StatusOK, rec.Code)
	var status statusResponse
	s.decode(rec, &status)
	s.Equal("1h0m0s", status.Uptime)
	s.NotEmpty(status.GoVersion)

	rec = s.do(http.MethodGet, "/api/channels", "", crewID)
	s.JSONEq(`{"items":[{"id":"c1","name":"general"}]}`, rec.Body.String())
}
