package repositories_test

import (
	"context"
	"io"
	"testing"

	"github.com/ytpm/services-export/internal/repositories"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_AccessToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	applyAllMigrations(ctx, t, pool)

	repo := repositories.NewAccountRepository(pool, log.NewStdLogger(io.Discard))

	// 无行
	_, err = repo.AccessToken(ctx, nil, uuid.New())
	require.ErrorIs(t, err, repositories.ErrNoAccessToken)

	// token 为 NULL
	nullUser := uuid.New()
	_, err = pool.Exec(ctx, `INSERT INTO oauth_accounts (user_id, provider) VALUES ($1, 'google')`, nullUser)
	require.NoError(t, err)
	_, err = repo.AccessToken(ctx, nil, nullUser)
	require.ErrorIs(t, err, repositories.ErrNoAccessToken)

	// 非 google provider 不可用
	otherProvider := uuid.New()
	_, err = pool.Exec(ctx, `INSERT INTO oauth_accounts (user_id, provider, access_token) VALUES ($1, 'github', 'gho_token')`, otherProvider)
	require.NoError(t, err)
	_, err = repo.AccessToken(ctx, nil, otherProvider)
	require.ErrorIs(t, err, repositories.ErrNoAccessToken)

	// 正常读取
	userID := uuid.New()
	_, err = pool.Exec(ctx, `INSERT INTO oauth_accounts (user_id, provider, access_token) VALUES ($1, 'google', 'ya29.valid')`, userID)
	require.NoError(t, err)

	token, err := repo.AccessToken(ctx, nil, userID)
	require.NoError(t, err)
	require.Equal(t, "ya29.valid", token)
}
