package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"strikebot/model"
)

type StoreTestSuite struct {
	suite.Suite
	store   *Store
	ctx     context.Context
	testNow time.Time
}

func (s *StoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	store, err := Open(s.ctx, filepath.Join(s.T().TempDir(), "data", "test.db"))
	s.Require().NoError(err)
	s.store = store
	s.testNow = time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
}

func (s *StoreTestSuite) TearDownTest() {
	s.store.Close()
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) TestMigrateIsRepeatable() {
	s.Require().NoError(s.store.Migrate(s.ctx))
}

func (s *StoreTestSuite) TestStrikesIncrementByOne() {
	for want := 1; want <= 4; want++ {
		n, err := s.store.IncrementStrikes(s.ctx, "g1", "u1", s.testNow)
		s.Require().NoError(err)
		s.Equal(want, n)
	}

	n, err := s.store.GetStrikes(s.ctx, "g1", "u2")
	s.Require().NoError(err)
	s.Equal(0, n)

	s.Require().NoError(s.store.DeleteStrikes(s.ctx, "g1", "u1"))
	s.Require().NoError(s.store.DeleteStrikes(s.ctx, "g1", "u1"))
	n, err = s.store.GetStrikes(s.ctx, "g1", "u1")
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *StoreTestSuite) TestWarnsFloorAtZero() {
	_, err := s.store.IncrementWarns(s.ctx, "g1", "u1", s.testNow)
	s.Require().NoError(err)
	n, err := s.store.IncrementWarns(s.ctx, "g1", "u1", s.testNow)
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.store.DecrementWarns(s.ctx, "g1", "u1", 5, s.testNow)
	s.Require().NoError(err)
	s.Equal(0, n)

	n, err = s.store.DecrementWarns(s.ctx, "g1", "nobody", 1, s.testNow)
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *StoreTestSuite) TestListDisciplineMergesCounters() {
	_, err := s.store.IncrementWarns(s.ctx, "g1", "u1", s.testNow)
	s.Require().NoError(err)
	_, err = s.store.IncrementStrikes(s.ctx, "g1", "u1", s.testNow)
	s.Require().NoError(err)
	_, err = s.store.IncrementStrikes(s.ctx, "g1", "u2", s.testNow)
	s.Require().NoError(err)

	records, err := s.store.ListDiscipline(s.ctx, "g1")
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(model.DisciplineRecord{GuildID: "g1", UserID: "u1", Strikes: 1, Warns: 1, UpdatedAt: s.testNow}, records[0])
	s.Equal("u2", records[1].UserID)
	s.Equal(0, records[1].Warns)
}

func (s *StoreTestSuite) TestMuteLifecycle() {
	rec := model.MuteRecord{GuildID: "g1", UserID: "u1", RoleIDs: []string{"r1", "r2"}, UnmuteAt: s.testNow.Add(time.Hour)}
	s.Require().NoError(s.store.UpsertMute(s.ctx, rec))

	got, err := s.store.GetMute(s.ctx, "g1", "u1")
	s.Require().NoError(err)
	s.Equal(rec, *got)

	due, err := s.store.DueMutes(s.ctx, s.testNow)
	s.Require().NoError(err)
	s.Empty(due)

	due, err = s.store.DueMutes(s.ctx, s.testNow.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal([]string{"r1", "r2"}, due[0].RoleIDs)

	deleted, err := s.store.DeleteMute(s.ctx, "g1", "u1")
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.store.DeleteMute(s.ctx, "g1", "u1")
	s.Require().NoError(err)
	s.False(deleted)

	_, err = s.store.GetMute(s.ctx, "g1", "u1")
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreTestSuite) TestActionsMarkOnce() {
	marked, err := s.store.MarkAction(s.ctx, "i1", s.testNow)
	s.Require().NoError(err)
	s.True(marked)

	marked, err = s.store.MarkAction(s.ctx, "i1", s.testNow)
	s.Require().NoError(err)
	s.False(marked)

	seen, err := s.store.ActionSeen(s.ctx, "i1")
	s.Require().NoError(err)
	s.True(seen)

	pruned, err := s.store.PruneActions(s.ctx, s.testNow.Add(time.Second))
	s.Require().NoError(err)
	s.Equal(int64(1), pruned)

	seen, err = s.store.ActionSeen(s.ctx, "i1")
	s.Require().NoError(err)
	s.False(seen)
}

func (s *StoreTestSuite) TestGiveawayLifecycle() {
	id, err := s.store.CreateGiveaway(s.ctx, &model.Giveaway{
		GuildID:      "g1",
		ChannelID:    "c1",
		Prize:        "Steam key",
		EndAt:        s.testNow.Add(time.Hour),
		WinnersCount: 2,
		CreatedAt:    s.testNow,
	})
	s.Require().NoError(err)
	s.Require().NoError(s.store.SetGiveawayMessage(s.ctx, id, "m1"))

	added, err := s.store.AddEntry(s.ctx, id, "u1", s.testNow)
	s.Require().NoError(err)
	s.True(added)
	added, err = s.store.AddEntry(s.ctx, id, "u1", s.testNow)
	s.Require().NoError(err)
	s.False(added)
	_, err = s.store.AddEntry(s.ctx, id, "u2", s.testNow.Add(time.Second))
	s.Require().NoError(err)

	entries, err := s.store.ListEntries(s.ctx, id)
	s.Require().NoError(err)
	s.Equal([]string{"u1", "u2"}, entries)

	due, err := s.store.DueGiveaways(s.ctx, s.testNow.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal("m1", due[0].MessageID)
	s.Empty(due[0].WinnerIDs)

	ended, err := s.store.EndGiveaway(s.ctx, id, []string{"u2"})
	s.Require().NoError(err)
	s.True(ended)
	ended, err = s.store.EndGiveaway(s.ctx, id, []string{"u1"})
	s.Require().NoError(err)
	s.False(ended)

	g, err := s.store.GetGiveaway(s.ctx, id)
	s.Require().NoError(err)
	s.True(g.Ended)
	s.Equal([]string{"u2"}, g.WinnerIDs)

	s.Require().NoError(s.store.SetGiveawayWinners(s.ctx, id, []string{"u1"}))
	summaries, err := s.store.RecentGiveaways(s.ctx, "g1", 20)
	s.Require().NoError(err)
	s.Require().Len(summaries, 1)
	s.Equal(2, summaries[0].EntryCount)
	s.Equal([]string{"u1"}, summaries[0].WinnerIDs)

	removed, err := s.store.RemoveEntry(s.ctx, id, "u1")
	s.Require().NoError(err)
	s.True(removed)
	removed, err = s.store.RemoveEntry(s.ctx, id, "u1")
	s.Require().NoError(err)
	s.False(removed)

	s.Require().NoError(s.store.DeleteGiveaway(s.ctx, id))
	n, err := s.store.CountEntries(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(0, n)
}

func (s *StoreTestSuite) TestCounterValues() {
	_, ok, err := s.store.CachedCounter(s.ctx, "g1", model.CounterTwitch)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.SetCachedCounter(s.ctx, "g1", model.CounterTwitch, 120))
	s.Require().NoError(s.store.SetCachedCounter(s.ctx, "g1", model.CounterTwitch, 95))
	v, ok, err := s.store.CachedCounter(s.ctx, "g1", model.CounterTwitch)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(int64(95), v)

	s.Require().NoError(s.store.SetCounterOverride(s.ctx, "g1", model.CounterTwitch, 500))
	v, ok, err = s.store.CounterOverride(s.ctx, "g1", model.CounterTwitch)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(int64(500), v)

	s.Require().NoError(s.store.ClearCounterOverride(s.ctx, "g1", model.CounterTwitch))
	_, ok, err = s.store.CounterOverride(s.ctx, "g1", model.CounterTwitch)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.UpsertCounterChannel(s.ctx, model.CounterChannel{GuildID: "g1", Kind: model.CounterMembers, ChannelID: "vc1"}))
	s.Require().NoError(s.store.UpsertCounterChannel(s.ctx, model.CounterChannel{GuildID: "g1", Kind: model.CounterMembers, ChannelID: "vc2"}))
	channels, err := s.store.CounterChannels(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal([]model.CounterChannel{{GuildID: "g1", Kind: model.CounterMembers, ChannelID: "vc2"}}, channels)
}
