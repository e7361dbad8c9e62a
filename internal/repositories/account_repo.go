package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoAccessToken 表示该用户没有可用的 OAuth access token。
var ErrNoAccessToken = errors.New("no access token for user")

// googleProvider 是 oauth_accounts 表中 Google OAuth 的 provider 标识。
const googleProvider = "google"

// AccountRepository 封装 oauth_accounts 表的只读访问。
// Token 由外部认证层写入与刷新，本服务只消费。
type AccountRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewAccountRepository 构造 AccountRepository。
func NewAccountRepository(db *pgxpool.Pool, logger log.Logger) *AccountRepository {
	return &AccountRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// AccessToken 返回该用户当前的 Google access token。
// 无行或 token 为空均返回 ErrNoAccessToken。
func (r *AccountRepository) AccessToken(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (string, error) {
	q := querier(r.db, sess)
	var token pgtype.Text
	err := q.QueryRow(ctx, `
SELECT access_token
FROM oauth_accounts
WHERE user_id = $1 AND provider = $2`, userID, googleProvider).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoAccessToken
		}
		return "", fmt.Errorf("get access token: %w", err)
	}
	if !token.Valid || token.String == "" {
		return "", ErrNoAccessToken
	}
	return token.String, nil
}
