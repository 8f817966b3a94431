package idempotency

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"strikebot/utils/clock/mocks"
	"strikebot/utils/database"
)

type GuardTestSuite struct {
	suite.Suite
	mockCtrl  *gomock.Controller
	mockClock *mocks.MockClock
	store     *database.Store
	guard     *Guard
	ctx       context.Context
	now       time.Time
}

func (s *GuardTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.mockCtrl = gomock.NewController(s.T())
	s.mockClock = mocks.NewMockClock(s.mockCtrl)
	s.now = time.Date(2025, 4, 19, 12, 0, 0, 0, time.UTC)
	s.mockClock.EXPECT().Now().DoAndReturn(func() time.Time { return s.now }).AnyTimes()

	store, err := database.Open(s.ctx, filepath.Join(s.T().TempDir(), "guard.db"))
	s.Require().NoError(err)
	s.store = store
	s.guard = New(store, s.mockClock)
}

func (s *GuardTestSuite) TearDownTest() {
	s.store.Close()
}

func TestGuardTestSuite(t *testing.T) {
	suite.Run(t, new(GuardTestSuite))
}

func (s *GuardTestSuite) TestClaimOnlyOnce() {
	ok, err := s.guard.Claim(s.ctx, "interaction-1")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.guard.Claim(s.ctx, "interaction-1")
	s.Require().NoError(err)
	s.False(ok)

	seen, err := s.guard.Seen(s.ctx, "interaction-1")
	s.Require().NoError(err)
	s.True(seen)
}

func (s *GuardTestSuite) TestEmptyIDAlwaysClaimable() {
	for i := 0; i < 2; i++ {
		ok, err := s.guard.Claim(s.ctx, "")
		s.Require().NoError(err)
		s.True(ok)
	}
}

func (s *GuardTestSuite) TestExpiredIDsArePruned() {
	s.Require().NoError(s.guard.Mark(s.ctx, "old"))

	s.now = s.now.Add(Retention + time.Minute)
	ok, err := s.guard.Claim(s.ctx, "fresh")
	s.Require().NoError(err)
	s.True(ok)

	seen, err := s.guard.Seen(s.ctx, "old")
	s.Require().NoError(err)
	s.False(seen)

	ok, err = s.guard.Claim(s.ctx, "old")
	s.Require().NoError(err)
	s.True(ok)
}
