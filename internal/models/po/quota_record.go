package po

import (
	"time"

	"github.com/google/uuid"
)

// QuotaRecord 表示 quota_usage 表的数据库实体。
// 每用户每自然日（UTC 零点截断）一行，consumed_units 只增不减；
// 新的一天新建行，旧行永不重置。
type QuotaRecord struct {
	UserID        uuid.UUID `db:"user_id"`        // 所属用户
	UsageDate     time.Time `db:"usage_date"`     // 配额日（UTC 零点）
	ConsumedUnits int64     `db:"consumed_units"` // 当日累计消耗单位
	DailyLimit    int64     `db:"daily_limit"`    // 建行时固化的每日上限
	UpdatedAt     time.Time `db:"updated_at"`     // 最近一次累加时间
}
