package repositories_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ytpm/services-export/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func TestQuotaRepository_IncrementAndGetDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	applyAllMigrations(ctx, t, pool)

	repo := repositories.NewQuotaRepository(pool, log.NewStdLogger(io.Discard))
	userID := uuid.New()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// 首次累加建行
	rec, err := repo.Increment(ctx, nil, userID, day, 3, 10000)
	require.NoError(t, err)
	require.EqualValues(t, 3, rec.ConsumedUnits)
	require.EqualValues(t, 10000, rec.DailyLimit)

	// 再次累加走 upsert 的更新分支，daily_limit 保持建行值
	rec, err = repo.Increment(ctx, nil, userID, day, 100, 9999)
	require.NoError(t, err)
	require.EqualValues(t, 103, rec.ConsumedUnits)
	require.EqualValues(t, 10000, rec.DailyLimit)

	rec, err = repo.GetDay(ctx, nil, userID, day)
	require.NoError(t, err)
	require.EqualValues(t, 103, rec.ConsumedUnits)

	// 隔日即新账本
	nextDay := day.AddDate(0, 0, 1)
	_, err = repo.GetDay(ctx, nil, userID, nextDay)
	require.ErrorIs(t, err, repositories.ErrQuotaRecordNotFound)

	rec, err = repo.Increment(ctx, nil, userID, nextDay, 1, 10000)
	require.NoError(t, err)
	require.EqualValues(t, 1, rec.ConsumedUnits)

	// 用户间隔离
	_, err = repo.GetDay(ctx, nil, uuid.New(), day)
	require.ErrorIs(t, err, repositories.ErrQuotaRecordNotFound)
}
