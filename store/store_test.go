package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-coach/performance"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	store *Store
	clock time.Time
}

func (s *StoreTestSuite) SetupTest() {
	st, err := Open(filepath.Join(s.T().TempDir(), "history.db"))
	s.Require().NoError(err)

	s.clock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time {
		s.clock = s.clock.Add(time.Minute)
		return s.clock
	}
	s.store = st
}

func (s *StoreTestSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func report(total int, tier performance.Tier) *performance.ComparisonReport {
	r := &performance.ComparisonReport{TotalScore: total, Tier: tier}
	r.Pitch.Score = 91.5
	r.Pitch.Issues = []string{}
	r.Rhythm.TempoAccuracy = 80
	r.Feedback.Overall = "Good performance."
	return r
}

func (s *StoreTestSuite) TestSaveAndGet() {
	ctx := context.Background()
	id, err := s.store.Save(ctx, "ref.wav", "take1.wav", report(84, performance.TierGood))
	s.Require().NoError(err)
	s.Positive(id)

	rec, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.Equal(id, rec.ID)
	s.Equal("ref.wav", rec.Reference)
	s.Equal("take1.wav", rec.Recording)
	s.Equal(84, rec.TotalScore)
	s.Equal(performance.TierGood, rec.Tier)
	s.True(rec.CreatedAt.Equal(time.Date(2025, 3, 1, 12, 1, 0, 0, time.UTC)), rec.CreatedAt)
	s.Equal(91.5, rec.Report.Pitch.Score)
	s.Equal(80.0, rec.Report.Rhythm.TempoAccuracy)
	s.Equal("Good performance.", rec.Report.Feedback.Overall)
}

func (s *StoreTestSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), 42)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreTestSuite) TestListNewestFirst() {
	ctx := context.Background()
	for i, total := range []int{55, 72, 93} {
		_, err := s.store.Save(ctx, "ref.wav", fmt.Sprintf("take%d.wav", i), report(total, performance.TierFair))
		s.Require().NoError(err)
	}

	all, err := s.store.List(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(93, all[0].TotalScore)
	s.Equal(55, all[2].TotalScore)
	s.True(all[0].CreatedAt.After(all[1].CreatedAt))

	limited, err := s.store.List(ctx, 2)
	s.Require().NoError(err)
	s.Len(limited, 2)
	s.Equal(72, limited[1].TotalScore)
}

func (s *StoreTestSuite) TestListEmpty() {
	records, err := s.store.List(context.Background(), 10)
	s.Require().NoError(err)
	s.NotNil(records)
	s.Empty(records)
}

func (s *StoreTestSuite) TestSaveNil() {
	_, err := s.store.Save(context.Background(), "a", "b", nil)
	s.Error(err)
}

func (s *StoreTestSuite) TestReopenKeepsHistory() {
	path := filepath.Join(s.T().TempDir(), "persist.db")
	st, err := Open(path)
	s.Require().NoError(err)
	id, err := st.Save(context.Background(), "ref.wav", "take.wav", report(70, performance.TierFair))
	s.Require().NoError(err)
	s.Require().NoError(st.Close())

	st, err = Open(path)
	s.Require().NoError(err)
	defer st.Close()

	rec, err := st.Get(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(70, rec.TotalScore)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
