//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bianchenglequ/OneClick/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_sync_runs.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM sync_results")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM sync_runs")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestRunStore_SaveAndGet() {
	store := NewRunStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	status := &domain.SyncStatus{
		Total:     3,
		Completed: 1,
		Failed:    2,
		StartTime: now.Add(-time.Minute),
		EndTime:   now,
		Results: []domain.SyncResult{
			{
				Success:    true,
				Platform:   "csdn",
				Message:    "synced to CSDN",
				Data:       map[string]any{"id": "42"},
				StatusCode: 200,
			},
			{
				Duplicate:  true,
				Platform:   "cnblogs",
				Message:    "博客园 already has a post with this title",
				StatusCode: 200,
			},
			{
				Platform:   "zhihu",
				Message:    "知乎 rejected the post: 请先登录",
				StatusCode: 401,
			},
		},
	}

	id, err := store.SaveRun(s.ctx, status)
	s.Require().NoError(err)
	s.Require().Positive(id)

	run, err := store.GetRun(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(3, run.Total)
	s.Equal(1, run.Completed)
	s.Equal(2, run.Failed)
	s.Require().Len(run.Results, 3)

	s.True(run.Results[0].Success)
	s.Equal("csdn", run.Results[0].Platform)
	s.True(run.Results[1].Duplicate)
	s.False(run.Results[1].Success)
	s.Equal(401, run.Results[2].StatusCode)
}

func (s *PostgresIntegrationSuite) TestRunStore_SaveRunWithoutResults() {
	store := NewRunStore(s.db)
	now := time.Now().Truncate(time.Microsecond)

	id, err := store.SaveRun(s.ctx, &domain.SyncStatus{
		StartTime: now,
		EndTime:   now,
	})
	s.Require().NoError(err)

	run, err := store.GetRun(s.ctx, id)
	s.Require().NoError(err)
	s.Zero(run.Total)
	s.Empty(run.Results)
}

func (s *PostgresIntegrationSuite) TestRunStore_RecentRuns() {
	store := NewRunStore(s.db)
	base := time.Now().Truncate(time.Microsecond)

	for i := 0; i < 5; i++ {
		_, err := store.SaveRun(s.ctx, &domain.SyncStatus{
			Total:     1,
			Completed: 1,
			StartTime: base.Add(time.Duration(i) * time.Minute),
			EndTime:   base.Add(time.Duration(i)*time.Minute + time.Second),
		})
		s.Require().NoError(err)
	}

	runs, err := store.RecentRuns(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(runs, 3)
	s.True(runs[0].StartedAt.After(runs[1].StartedAt))
	s.True(runs[1].StartedAt.After(runs[2].StartedAt))
}
