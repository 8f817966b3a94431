package discipline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"strikebot/model"
	"strikebot/platform/platformtest"
	"strikebot/utils/clock/mocks"
	"strikebot/utils/database"
	"strikebot/utils/idempotency"
)

const (
	guildID = "g1"
	modID   = "mod"
	userID  = "u1"
	adminID = "admin"
	botID   = "bot"
	logChan = "modlog"
)

type EngineTestSuite struct {
	suite.Suite
	mockCtrl  *gomock.Controller
	mockClock *mocks.MockClock
	store     *database.Store
	fake      *platformtest.Fake
	engine    *Engine
	ctx       context.Context
	now       time.Time

	hook     *httptest.Server
	hookMu      sync.Mutex
	payloads    []WebhookPayload
	bannedFirst []bool

	actions int
}

func (s *EngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.mockCtrl = gomock.NewController(s.T())
	s.mockClock = mocks.NewMockClock(s.mockCtrl)
	s.now = time.Date(2025, 4, 19, 12, 0, 0, 0, time.UTC)
	s.mockClock.EXPECT().Now().DoAndReturn(func() time.Time { return s.now }).AnyTimes()

	store, err := database.Open(s.ctx, filepath.Join(s.T().TempDir(), "discipline.db"))
	s.Require().NoError(err)
	s.store = store

	s.fake = platformtest.New(botID)
	s.fake.AddGuild(guildID, "Test Guild", "owner")
	for _, r := range []*discordgo.Role{
		{ID: "r-member", Name: "Member", Position: 2},
		{ID: "r-vip", Name: "VIP", Position: 3},
		{ID: "r-boost", Name: "Server Booster", Position: 2, Managed: true},
		{ID: "r-s1", Name: "Strike 1", Position: 1},
		{ID: "r-s2", Name: "Strike 2", Position: 1},
		{ID: "r-s3", Name: "Strike 3", Position: 1},
		{ID: "r-muted", Name: "Muted", Position: 1},
		{ID: "r-bot", Name: "Bot", Position: 10},
		{ID: "r-admin", Name: "Admin", Position: 20},
	} {
		s.fake.AddRole(guildID, r)
	}
	s.fake.AddMember(guildID, botID, "strikebot", "r-bot")
	s.fake.AddMember(guildID, userID, "spammer", "r-member", "r-vip", "r-boost")
	s.fake.AddMember(guildID, adminID, "boss", "r-admin")

	s.payloads, s.bannedFirst = nil, nil
	s.hook = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p WebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err == nil {
			s.hookMu.Lock()
			s.payloads = append(s.payloads, p)
			s.bannedFirst = append(s.bannedFirst, s.fake.Banned(p.DiscordUserID))
			s.hookMu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	engine, err := New(&Config{
		Store:           store,
		Platform:        s.fake,
		Guard:           idempotency.New(store, s.mockClock),
		Clock:           s.mockClock,
		HTTPClient:      s.hook.Client(),
		ModLogChannelID: logChan,
		BanWebhookURL:   s.hook.URL,
	})
	s.Require().NoError(err)
	s.engine = engine
}

func (s *EngineTestSuite) TearDownTest() {
	s.hook.Close()
	s.store.Close()
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) strike(target, reason string) (*StrikeOutcome, error) {
	s.actions++
	return s.engine.ApplyStrike(s.ctx, &StrikeInput{
		GuildID:     guildID,
		ModeratorID: modID,
		TargetID:    target,
		Reason:      reason,
		ActionID:    "action-" + itoa(s.actions),
	})
}

func (s *EngineTestSuite) mute(target string) *model.MuteRecord {
	rec, err := s.engine.MuteOf(s.ctx, guildID, target)
	s.Require().NoError(err)
	return rec
}

func (s *EngineTestSuite) TestThreeStrikeLadder() {
	out, err := s.strike(userID, "spam")
	s.Require().NoError(err)
	s.Equal(1, out.Strikes)
	s.Equal(model.PunishmentMute, out.Punishment)
	s.Equal(24*time.Hour, out.Duration)
	s.ElementsMatch([]string{"r-boost", "r-s1", "r-muted"}, s.fake.MemberRoles(guildID, userID))

	rec := s.mute(userID)
	s.Require().NotNil(rec)
	s.ElementsMatch([]string{"r-member", "r-vip"}, rec.RoleIDs)
	s.Equal(s.now.Add(24*time.Hour).Unix(), rec.UnmuteAt.Unix())

	s.now = s.now.Add(time.Hour)
	out, err = s.strike(userID, "spam again")
	s.Require().NoError(err)
	s.Equal(2, out.Strikes)
	s.Equal(7*24*time.Hour, out.Duration)
	s.ElementsMatch([]string{"r-boost", "r-s2", "r-muted"}, s.fake.MemberRoles(guildID, userID))

	rec = s.mute(userID)
	s.Require().NotNil(rec)
	s.ElementsMatch([]string{"r-member", "r-vip"}, rec.RoleIDs)
	s.Equal(s.now.Add(7*24*time.Hour).Unix(), rec.UnmuteAt.Unix())

	out, err = s.strike(userID, "final")
	s.Require().NoError(err)
	s.Equal(3, out.Strikes)
	s.Equal(model.PunishmentBan, out.Punishment)
	s.Contains(s.fake.Bans, userID)

	strikes, err := s.engine.Strikes(s.ctx, guildID, userID)
	s.Require().NoError(err)
	s.Zero(strikes)
	s.Nil(s.mute(userID))

	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.Require().Len(s.payloads, 1)
	s.Equal(WebhookPayload{GuildID: guildID, DiscordUserID: userID, DiscordTag: "spammer", Reason: "final", Event: "strike3_ban"}, s.payloads[0])
	s.Equal([]bool{true}, s.bannedFirst, "webhook must not hold up the ban")
	s.Len(s.fake.DMs[userID], 3)
	s.Len(s.fake.Sent[logChan], 3)
}

func (s *EngineTestSuite) TestFailedStrikeBanIsAudited() {
	_, err := s.strike(userID, "one")
	s.Require().NoError(err)
	_, err = s.strike(userID, "two")
	s.Require().NoError(err)

	s.fake.BanErr = errors.New("missing permissions")
	out, err := s.strike(userID, "three")
	s.ErrorIs(err, ErrBanFailed)
	s.Require().NotNil(out)
	s.Equal(model.PunishmentBan, out.Punishment)

	strikes, err := s.engine.Strikes(s.ctx, guildID, userID)
	s.Require().NoError(err)
	s.Zero(strikes)

	sent := s.fake.Sent[logChan]
	s.Require().Len(sent, 3)
	last := sent[2].Embeds[0]
	s.Equal("Strike 3: ban", last.Title)
	failed := last.Fields[len(last.Fields)-1]
	s.Equal("Ban failed", failed.Name)
	s.Equal("missing permissions", failed.Value)

	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.Len(s.payloads, 1)
}

func (s *EngineTestSuite) TestDMsUseEngineClock() {
	_, err := s.strike(userID, "spam")
	s.Require().NoError(err)
	s.now = s.now.Add(90 * time.Minute)
	s.True(s.engine.Unmute(s.ctx, guildID, userID))

	dms := s.fake.DMs[userID]
	s.Require().Len(dms, 2)
	s.Equal("2025-04-19T12:00:00Z", dms[0].Embeds[0].Timestamp)
	s.Equal("2025-04-19T13:30:00Z", dms[1].Embeds[0].Timestamp)
}

func (s *EngineTestSuite) TestRetriedActionIsIgnored() {
	in := &StrikeInput{GuildID: guildID, ModeratorID: modID, TargetID: userID, Reason: "spam", ActionID: "interaction-42"}
	out, err := s.engine.ApplyStrike(s.ctx, in)
	s.Require().NoError(err)
	s.False(out.AlreadyProcessed)

	out, err = s.engine.ApplyStrike(s.ctx, in)
	s.Require().NoError(err)
	s.True(out.AlreadyProcessed)

	strikes, err := s.engine.Strikes(s.ctx, guildID, userID)
	s.Require().NoError(err)
	s.Equal(1, strikes)
	s.Equal(1, s.fake.RoleEditCount())
	s.Len(s.fake.DMs[userID], 1)
}

func (s *EngineTestSuite) TestMuteRoundTrip() {
	before := s.fake.MemberRoles(guildID, userID)
	_, err := s.strike(userID, "spam")
	s.Require().NoError(err)

	s.True(s.engine.Unmute(s.ctx, guildID, userID))
	s.ElementsMatch(append(before, "r-s1"), s.fake.MemberRoles(guildID, userID))
	s.Nil(s.mute(userID))
}

func (s *EngineTestSuite) TestRoleGainedWhileMutedIsKept() {
	_, err := s.strike(userID, "spam")
	s.Require().NoError(err)
	s.Require().NoError(s.fake.AddMemberRole(s.ctx, guildID, userID, "r-s2"))

	s.True(s.engine.Unmute(s.ctx, guildID, userID))
	s.ElementsMatch([]string{"r-member", "r-vip", "r-boost", "r-s1", "r-s2"}, s.fake.MemberRoles(guildID, userID))
}

func (s *EngineTestSuite) TestPollerAndManualUnmuteRestoreOnce() {
	_, err := s.strike(userID, "spam")
	s.Require().NoError(err)

	s.now = s.now.Add(25 * time.Hour)
	due, err := s.store.DueMutes(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(due, 1)

	s.True(s.engine.Unmute(s.ctx, guildID, userID))
	result, err := s.engine.ExpireMute(s.ctx, due[0])
	s.Require().NoError(err)
	s.Equal(Skipped, result)

	// one edit for the mute and one for the restore
	s.Equal(2, s.fake.RoleEditCount())
}

func (s *EngineTestSuite) TestExpireMuteRestoresAndDeletes() {
	_, err := s.strike(userID, "spam")
	s.Require().NoError(err)

	s.now = s.now.Add(24 * time.Hour)
	due, err := s.store.DueMutes(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(due, 1)

	result, err := s.engine.ExpireMute(s.ctx, due[0])
	s.Require().NoError(err)
	s.Equal(Restored, result)
	s.ElementsMatch([]string{"r-member", "r-vip", "r-boost", "r-s1"}, s.fake.MemberRoles(guildID, userID))
	s.Nil(s.mute(userID))
}

func (s *EngineTestSuite) TestExpireMuteSkipsExtendedMute() {
	_, err := s.strike(userID, "spam")
	s.Require().NoError(err)

	s.now = s.now.Add(25 * time.Hour)
	due, err := s.store.DueMutes(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(due, 1)

	_, err = s.strike(userID, "spam again")
	s.Require().NoError(err)

	result, err := s.engine.ExpireMute(s.ctx, due[0])
	s.Require().NoError(err)
	s.Equal(Skipped, result)
	s.Contains(s.fake.MemberRoles(guildID, userID), "r-muted")
	s.NotNil(s.mute(userID))
}

func (s *EngineTestSuite) TestExpireMuteDropsOrphans() {
	_, err := s.strike(userID, "spam")
	s.Require().NoError(err)
	s.fake.RemoveMember(guildID, userID)

	s.now = s.now.Add(25 * time.Hour)
	due, err := s.store.DueMutes(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(due, 1)

	result, err := s.engine.ExpireMute(s.ctx, due[0])
	s.Require().NoError(err)
	s.Equal(Orphaned, result)
	s.Nil(s.mute(userID))
}

func (s *EngineTestSuite) TestExpireMuteKeepsRecordWhenRestoreFails() {
	_, err := s.strike(userID, "spam")
	s.Require().NoError(err)
	s.fake.SetRolesErr = errors.New("missing permissions")

	s.now = s.now.Add(25 * time.Hour)
	due, err := s.store.DueMutes(s.ctx, s.now)
	s.Require().NoError(err)
	s.Require().Len(due, 1)

	_, err = s.engine.ExpireMute(s.ctx, due[0])
	s.ErrorIs(err, ErrRoleEditFailed)
	s.NotNil(s.mute(userID))
}

func (s *EngineTestSuite) TestInsufficientRank() {
	_, err := s.strike(adminID, "nope")
	s.ErrorIs(err, ErrInsufficientRank)

	strikes, err := s.engine.Strikes(s.ctx, guildID, adminID)
	s.Require().NoError(err)
	s.Zero(strikes)
	s.Zero(s.fake.RoleEditCount())
}

func (s *EngineTestSuite) TestRolesMissing() {
	s.fake.DeleteRole(guildID, "r-muted")

	_, err := s.strike(userID, "spam")
	s.ErrorIs(err, ErrRolesMissing)

	strikes, err := s.engine.Strikes(s.ctx, guildID, userID)
	s.Require().NoError(err)
	s.Zero(strikes)
}

func (s *EngineTestSuite) TestRoleEditFailureKeepsStrike() {
	s.fake.SetRolesErr = errors.New("missing permissions")

	_, err := s.strike(userID, "spam")
	s.ErrorIs(err, ErrRoleEditFailed)

	strikes, err := s.engine.Strikes(s.ctx, guildID, userID)
	s.Require().NoError(err)
	s.Equal(1, strikes)
}

func (s *EngineTestSuite) TestFailedBanStillClearsRecords() {
	for range 2 {
		_, err := s.strike(userID, "spam")
		s.Require().NoError(err)
	}
	s.fake.BanErr = errors.New("missing permissions")

	out, err := s.strike(userID, "final")
	s.ErrorIs(err, ErrBanFailed)
	s.Contains(err.Error(), "missing permissions")
	s.Require().NotNil(out)
	s.Equal(3, out.Strikes)

	strikes, err := s.engine.Strikes(s.ctx, guildID, userID)
	s.Require().NoError(err)
	s.Zero(strikes)
	s.Nil(s.mute(userID))
}

func (s *EngineTestSuite) TestUnmuteWithoutMuteChangesNothing() {
	s.True(s.engine.Unmute(s.ctx, guildID, userID))
	s.Zero(s.fake.RoleEditCount())
}

func (s *EngineTestSuite) TestUnmuteSkipsDeletedRoles() {
	_, err := s.strike(userID, "spam")
	s.Require().NoError(err)
	s.fake.DeleteRole(guildID, "r-vip")

	s.True(s.engine.Unmute(s.ctx, guildID, userID))
	s.ElementsMatch([]string{"r-member", "r-boost", "r-s1"}, s.fake.MemberRoles(guildID, userID))
}

func (s *EngineTestSuite) TestUnmuteRemovesStrayMutedRole() {
	s.Require().NoError(s.fake.AddMemberRole(s.ctx, guildID, userID, "r-muted"))

	s.True(s.engine.Unmute(s.ctx, guildID, userID))
	s.NotContains(s.fake.MemberRoles(guildID, userID), "r-muted")
}

func (s *EngineTestSuite) TestResetStrikes() {
	_, err := s.strike(userID, "spam")
	s.Require().NoError(err)

	s.Require().NoError(s.engine.ResetStrikes(s.ctx, guildID, userID))
	strikes, err := s.engine.Strikes(s.ctx, guildID, userID)
	s.Require().NoError(err)
	s.Zero(strikes)
	s.NotContains(s.fake.MemberRoles(guildID, userID), "r-s1")

	s.Require().NoError(s.engine.ResetStrikes(s.ctx, guildID, userID))
}

func (s *EngineTestSuite) TestWarnings() {
	for i := 1; i <= 2; i++ {
		out, err := s.engine.IncrementWarn(s.ctx, &WarnInput{GuildID: guildID, ModeratorID: modID, TargetID: userID, ActionID: "warn-" + itoa(i)})
		s.Require().NoError(err)
		s.Equal(i, out.Warns)
	}
	s.Len(s.fake.DMs[userID], 2)
	s.Zero(s.fake.RoleEditCount())

	_, err := s.engine.DecrementWarn(s.ctx, &WarnInput{GuildID: guildID, TargetID: userID, ActionID: "rm-0"}, 0)
	s.ErrorIs(err, ErrInvalidAmount)

	out, err := s.engine.DecrementWarn(s.ctx, &WarnInput{GuildID: guildID, TargetID: userID, ActionID: "rm-1"}, 5)
	s.Require().NoError(err)
	s.Zero(out.Warns)

	_, err = s.engine.IncrementWarn(s.ctx, &WarnInput{GuildID: guildID, TargetID: userID, ActionID: "warn-3"})
	s.Require().NoError(err)
	s.Require().NoError(s.engine.DeleteWarn(s.ctx, &WarnInput{GuildID: guildID, TargetID: userID}))
	warns, err := s.engine.Warns(s.ctx, guildID, userID)
	s.Require().NoError(err)
	s.Zero(warns)
}

func (s *EngineTestSuite) TestWarnDeliveredWhenDMFails() {
	s.fake.DMErr = errors.New("cannot send messages to this user")

	out, err := s.engine.IncrementWarn(s.ctx, &WarnInput{GuildID: guildID, TargetID: userID, ActionID: "warn-1"})
	s.Require().NoError(err)
	s.Equal(1, out.Warns)
}

func (s *EngineTestSuite) TestKick() {
	ok, err := s.engine.Kick(s.ctx, &ModerationInput{GuildID: guildID, ModeratorID: modID, TargetID: userID, ActionID: "kick-1"})
	s.Require().NoError(err)
	s.True(ok)
	s.Equal([]string{userID}, s.fake.Kicks)

	ok, err = s.engine.Kick(s.ctx, &ModerationInput{GuildID: guildID, ModeratorID: modID, TargetID: adminID, ActionID: "kick-2"})
	s.ErrorIs(err, ErrInsufficientRank)
	s.True(ok)
}

func (s *EngineTestSuite) TestBanRejectsDeleteDays() {
	_, err := s.engine.Ban(s.ctx, &ModerationInput{GuildID: guildID, TargetID: userID, ActionID: "ban-1", DeleteDays: 8})
	s.Error(err)
	s.Empty(s.fake.Bans)
}

func (s *EngineTestSuite) TestPurgeByAuthor() {
	s.fake.AddMessage("general", userID, s.now.Add(-20*24*time.Hour))
	for i, author := range []string{userID, "u2", userID, userID, "u2"} {
		s.fake.AddMessage("general", author, s.now.Add(time.Duration(i-10)*time.Minute))
	}

	n, err := s.engine.Purge(s.ctx, &PurgeInput{GuildID: guildID, ChannelID: "general", ModeratorID: modID, UserID: userID, Amount: 10})
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Len(s.fake.Deleted, 3)

	_, err = s.engine.Purge(s.ctx, &PurgeInput{ChannelID: "general", Amount: 201})
	s.Error(err)
}

func (s *EngineTestSuite) TestEnsureRoles() {
	s.fake.AddGuild("g2", "Fresh", "owner")
	s.fake.AddChannel("g2", &discordgo.Channel{ID: "c-text", Type: discordgo.ChannelTypeGuildText})
	s.fake.AddChannel("g2", &discordgo.Channel{ID: "c-voice", Type: discordgo.ChannelTypeGuildVoice})
	s.fake.AddChannel("g2", &discordgo.Channel{ID: "c-staff", Type: discordgo.ChannelTypeGuildCategory})
	s.engine.hiddenCategoryIDs = []string{"c-staff"}

	result, err := s.engine.EnsureRoles(s.ctx, "g2")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"Strike 1", "Strike 2", "Strike 3", "Muted"}, result.CreatedRoles)
	s.Equal(2, result.UpdatedChannels)

	channels, err := s.fake.GuildChannels(s.ctx, "g2")
	s.Require().NoError(err)
	for _, c := range channels {
		switch c.ID {
		case "c-text":
			s.Require().Len(c.PermissionOverwrites, 1)
			s.Equal(int64(mutedDeny), c.PermissionOverwrites[0].Deny)
		case "c-staff":
			s.Require().Len(c.PermissionOverwrites, 1)
			s.Equal(int64(discordgo.PermissionViewChannel), c.PermissionOverwrites[0].Deny)
		default:
			s.Empty(c.PermissionOverwrites)
		}
	}

	result, err = s.engine.EnsureRoles(s.ctx, "g2")
	s.Require().NoError(err)
	s.Empty(result.CreatedRoles)
	s.Zero(result.UpdatedChannels)
}
