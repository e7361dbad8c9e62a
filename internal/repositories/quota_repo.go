package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ytpm/services-export/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrQuotaRecordNotFound 表示当日尚无配额记录（按零消耗处理）。
var ErrQuotaRecordNotFound = errors.New("quota record not found")

// QuotaRepository 封装 quota_usage 表的访问逻辑。
// 累加通过单条 upsert 完成，行内更新即为原子性边界。
type QuotaRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewQuotaRepository 构造 QuotaRepository。
func NewQuotaRepository(db *pgxpool.Pool, logger log.Logger) *QuotaRepository {
	return &QuotaRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// Increment 原子累加当日消耗；当日无记录时以 dailyLimit 建行。
// 返回累加后的记录。
func (r *QuotaRepository) Increment(ctx context.Context, sess txmanager.Session, userID uuid.UUID, day time.Time, units, dailyLimit int64) (*po.QuotaRecord, error) {
	q := querier(r.db, sess)
	var rec po.QuotaRecord
	err := q.QueryRow(ctx, `
INSERT INTO quota_usage (user_id, usage_date, consumed_units, daily_limit)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, usage_date)
DO UPDATE SET consumed_units = quota_usage.consumed_units + EXCLUDED.consumed_units,
              updated_at     = now()
RETURNING user_id, usage_date, consumed_units, daily_limit, updated_at`,
		userID, day, units, dailyLimit,
	).Scan(&rec.UserID, &rec.UsageDate, &rec.ConsumedUnits, &rec.DailyLimit, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("increment quota usage: %w", err)
	}
	return &rec, nil
}

// GetDay 返回指定配额日的记录；无记录返回 ErrQuotaRecordNotFound，不建行。
func (r *QuotaRepository) GetDay(ctx context.Context, sess txmanager.Session, userID uuid.UUID, day time.Time) (*po.QuotaRecord, error) {
	q := querier(r.db, sess)
	var rec po.QuotaRecord
	err := q.QueryRow(ctx, `
SELECT user_id, usage_date, consumed_units, daily_limit, updated_at
FROM quota_usage
WHERE user_id = $1 AND usage_date = $2`,
		userID, day,
	).Scan(&rec.UserID, &rec.UsageDate, &rec.ConsumedUnits, &rec.DailyLimit, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuotaRecordNotFound
		}
		return nil, fmt.Errorf("get quota record: %w", err)
	}
	return &rec, nil
}
