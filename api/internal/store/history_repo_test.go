package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"typing-assistant/api/internal/correction"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, DefaultRecentLimit},
		{0, DefaultRecentLimit},
		{1, 1},
		{50, 50},
		{MaxRecentLimit, MaxRecentLimit},
		{MaxRecentLimit + 1, MaxRecentLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in), "ClampLimit(%d)", tt.in)
	}
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("typo_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestHistoryRepo_Integration(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewHistoryRepo(db)

	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema creation must be idempotent")
	require.NoError(t, repo.Ping(ctx))

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ok := correction.Result{
		ID:        uuid.NewString(),
		Source:    "web",
		Task:      correction.TaskWord,
		Input:     "a b c",
		Corrected: "a x c",
		Metrics:   correction.ComputeMetrics("a b c", "a x c"),
		Engine:    "gemini",
		Model:     "gemini-2.0-flash",
		CreatedAt: base,
	}
	failed := correction.Result{
		ID:     uuid.NewString(),
		Source: "telegram",
		Task:   correction.TaskSpacing,
		Input:  "",
		Failure: &correction.Failure{
			Kind:  correction.MalformedUpstreamResponse,
			Cause: errors.New("gemini: no candidates"),
		},
		CreatedAt: base.Add(time.Minute),
	}
	failed.Corrected = failed.Failure.Message()
	failed.Metrics = correction.ComputeMetrics(failed.Input, failed.Corrected)

	require.NoError(t, repo.Save(ctx, ok))
	require.NoError(t, repo.Save(ctx, failed))
	require.NoError(t, repo.Save(ctx, ok), "duplicate ids are ignored")

	got, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, failed.ID, got[0].ID, "newest first")
	assert.Equal(t, ok.ID, got[1].ID)

	assert.Equal(t, ok.Metrics.ErrorCount, got[1].Metrics.ErrorCount)
	require.NotNil(t, got[1].Metrics.AccuracyRate)
	assert.InDelta(t, *ok.Metrics.AccuracyRate, *got[1].Metrics.AccuracyRate, 1e-9)
	assert.Nil(t, got[1].Failure)
	assert.True(t, base.Equal(got[1].CreatedAt))

	require.NotNil(t, got[0].Failure)
	assert.Equal(t, correction.MalformedUpstreamResponse, got[0].Failure.Kind)
	assert.Equal(t, failed.Failure.Message(), got[0].Failure.Message())
	assert.Nil(t, got[0].Metrics.AccuracyRate)

	one, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	byID, err := repo.Get(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, "a x c", byID.Corrected)

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryRepo_RecentEmpty(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewHistoryRepo(db)
	require.NoError(t, repo.EnsureSchema(ctx))

	got, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestOpen_BadDSN(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Open(ctx, "postgres://nobody:x@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	assert.Error(t, err)
}
