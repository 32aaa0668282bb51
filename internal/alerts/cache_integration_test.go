//go:build integration

package alerts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medledger/internal/alerts"
	"medledger/internal/platform/config"
	platformredis "medledger/internal/platform/redis"
	id "medledger/pkg/domain"
	"medledger/pkg/testutil/containers"
)

type RecencyCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *alerts.RecencyCache
}

func TestRecencyCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RecencyCacheSuite))
}

func (s *RecencyCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	client, err := platformredis.New(config.RedisConfig{
		URL:          s.redis.URL,
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	s.Require().NoError(err)
	s.cache = alerts.NewRecencyCache(client)
}

func (s *RecencyCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RecencyCacheSuite) TestRecordAndRecentIDs() {
	ctx := context.Background()
	programID := id.NewProgramID()
	now := time.Now()

	older := &alerts.Alert{ID: id.NewAlertID(), ProgramID: programID, RaisedAt: now.Add(-time.Hour)}
	newer := &alerts.Alert{ID: id.NewAlertID(), ProgramID: programID, RaisedAt: now}
	s.Require().NoError(s.cache.Record(ctx, older))
	s.Require().NoError(s.cache.Record(ctx, newer))

	ids, err := s.cache.RecentIDs(ctx, programID, now.Add(-2*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(ids, 2)
	s.Equal(newer.ID, ids[0], "newest first")

	ids, err = s.cache.RecentIDs(ctx, programID, now.Add(-time.Minute))
	s.Require().NoError(err)
	s.Require().Len(ids, 1)
	s.Equal(newer.ID, ids[0])
}

func (s *RecencyCacheSuite) TestProgramsAreIsolated() {
	ctx := context.Background()
	first := id.NewProgramID()
	second := id.NewProgramID()
	now := time.Now()

	s.Require().NoError(s.cache.Record(ctx,
		&alerts.Alert{ID: id.NewAlertID(), ProgramID: first, RaisedAt: now}))

	ids, err := s.cache.RecentIDs(ctx, second, now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Empty(ids)
}
