package po

import (
	"time"

	"github.com/google/uuid"
)

// AutoResumeStatus 表示自动续抓状态机的状态。
type AutoResumeStatus string

// 自动续抓状态常量定义
const (
	AutoResumeStatusActive AutoResumeStatus = "active" // 调度器每轮都会处理
	AutoResumeStatusPaused AutoResumeStatus = "paused" // 冷却中，paused_until 到期后恢复
)

// PausedReasonQuotaExceeded 因配额触顶而暂停。
const PausedReasonQuotaExceeded = "quota_exceeded"

// AutoResumeState 表示 auto_resume_states 表的数据库实体。
// 每用户至多一行；没有行即表示该用户未启用自动续抓（与 paused 不同）。
type AutoResumeState struct {
	UserID       uuid.UUID        `db:"user_id"`       // 主键
	Status       AutoResumeStatus `db:"status"`        // active / paused
	PausedReason *string          `db:"paused_reason"` // 暂停原因
	PausedUntil  *time.Time       `db:"paused_until"`  // 冷却截止时间
	LastAttempt  *time.Time       `db:"last_attempt"`  // 最近一次调度尝试
	NextAttempt  *time.Time       `db:"next_attempt"`  // 预计下次调度时间
	CreatedAt    time.Time        `db:"created_at"`    // 启用时间
	UpdatedAt    time.Time        `db:"updated_at"`    // 最近更新时间
}

// PauseElapsed 判断冷却期是否已过。
func (s *AutoResumeState) PauseElapsed(now time.Time) bool {
	if s.Status != AutoResumeStatusPaused || s.PausedUntil == nil {
		return false
	}
	return !now.Before(*s.PausedUntil)
}
