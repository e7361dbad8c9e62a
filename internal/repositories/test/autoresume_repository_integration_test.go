package repositories_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ytpm/services-export/internal/models/po"
	"github.com/ytpm/services-export/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func TestAutoResumeRepository_PauseResumeLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	applyAllMigrations(ctx, t, pool)

	repo := repositories.NewAutoResumeRepository(pool, log.NewStdLogger(io.Discard))
	userID := uuid.New()

	_, err = repo.Get(ctx, nil, userID)
	require.ErrorIs(t, err, repositories.ErrAutoResumeNotFound)

	state, err := repo.UpsertActive(ctx, nil, userID)
	require.NoError(t, err)
	require.Equal(t, po.AutoResumeStatusActive, state.Status)
	require.Nil(t, state.PausedReason)

	// 冷却未到期：Resume 不生效，ListPausedDue 不返回
	until := time.Now().Add(8 * time.Hour).UTC()
	state, err = repo.Pause(ctx, nil, userID, po.PausedReasonQuotaExceeded, until)
	require.NoError(t, err)
	require.Equal(t, po.AutoResumeStatusPaused, state.Status)
	require.NotNil(t, state.PausedReason)
	require.Equal(t, po.PausedReasonQuotaExceeded, *state.PausedReason)
	require.NotNil(t, state.PausedUntil)
	require.NotNil(t, state.NextAttempt)

	resumed, err := repo.Resume(ctx, nil, userID, time.Now())
	require.NoError(t, err)
	require.False(t, resumed)

	due, err := repo.ListPausedDue(ctx, nil, time.Now(), 10)
	require.NoError(t, err)
	require.Empty(t, due)

	// 冷却到期后恢复并清除暂停字段
	past := time.Now().Add(-time.Minute).UTC()
	_, err = repo.Pause(ctx, nil, userID, po.PausedReasonQuotaExceeded, past)
	require.NoError(t, err)

	due, err = repo.ListPausedDue(ctx, nil, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, userID, due[0].UserID)

	resumed, err = repo.Resume(ctx, nil, userID, time.Now())
	require.NoError(t, err)
	require.True(t, resumed)

	state, err = repo.Get(ctx, nil, userID)
	require.NoError(t, err)
	require.Equal(t, po.AutoResumeStatusActive, state.Status)
	require.Nil(t, state.PausedReason)
	require.Nil(t, state.PausedUntil)

	require.NoError(t, repo.Delete(ctx, nil, userID))
	_, err = repo.Get(ctx, nil, userID)
	require.ErrorIs(t, err, repositories.ErrAutoResumeNotFound)

	// 重复删除为空操作
	require.NoError(t, repo.Delete(ctx, nil, userID))
}

func TestAutoResumeRepository_ListActiveOrdersByStaleness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	applyAllMigrations(ctx, t, pool)

	repo := repositories.NewAutoResumeRepository(pool, log.NewStdLogger(io.Discard))

	attempted := uuid.New()
	fresh := uuid.New()

	_, err = repo.UpsertActive(ctx, nil, attempted)
	require.NoError(t, err)
	_, err = repo.UpsertActive(ctx, nil, fresh)
	require.NoError(t, err)

	require.NoError(t, repo.MarkAttempt(ctx, nil, attempted, time.Now().Add(30*time.Minute)))

	// 从未尝试过的用户排在最前
	active, err := repo.ListActive(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, fresh, active[0].UserID)
	require.Equal(t, attempted, active[1].UserID)
	require.NotNil(t, active[1].LastAttempt)
	require.NotNil(t, active[1].NextAttempt)

	active, err = repo.ListActive(ctx, nil, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, fresh, active[0].UserID)
}
