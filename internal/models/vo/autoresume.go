package vo

import (
	"time"

	"github.com/google/uuid"
	"github.com/ytpm/services-export/internal/models/po"
)

// AutoResumeView 封装单个用户的自动续抓状态。
// Enabled 为 false 时其余字段无意义（用户未启用，区别于 paused）。
type AutoResumeView struct {
	Enabled      bool       `json:"enabled"`
	Status       string     `json:"status,omitempty"`
	PausedReason *string    `json:"paused_reason,omitempty"`
	PausedUntil  *time.Time `json:"paused_until,omitempty"`
	LastAttempt  *time.Time `json:"last_attempt,omitempty"`
	NextAttempt  *time.Time `json:"next_attempt,omitempty"`
}

// NewAutoResumeView 从领域实体构造状态视图；state 为 nil 表示未启用。
func NewAutoResumeView(state *po.AutoResumeState) *AutoResumeView {
	if state == nil {
		return &AutoResumeView{Enabled: false}
	}
	return &AutoResumeView{
		Enabled:      true,
		Status:       string(state.Status),
		PausedReason: state.PausedReason,
		PausedUntil:  state.PausedUntil,
		LastAttempt:  state.LastAttempt,
		NextAttempt:  state.NextAttempt,
	}
}

// AutoResumeOutcomeKind 标记单个用户一轮调度处理的结局。
// 显式的结果变体，调用方禁止通过解析错误文本来分类。
type AutoResumeOutcomeKind string

// 结局常量定义
const (
	AutoResumeOutcomeComplete AutoResumeOutcomeKind = "complete" // 导出已全部完成
	AutoResumeOutcomePaused   AutoResumeOutcomeKind = "paused"   // 配额触顶，进入冷却
	AutoResumeOutcomeProgress AutoResumeOutcomeKind = "progress" // 正常推进了一页
	AutoResumeOutcomeError    AutoResumeOutcomeKind = "error"    // 该用户处理失败（不影响其他用户）
)

// AutoResumeOutcome 描述调度器处理单个用户的结果。
type AutoResumeOutcome struct {
	Kind           AutoResumeOutcomeKind `json:"kind"`
	UserID         uuid.UUID             `json:"user_id"`
	VideosImported int64                 `json:"videos_imported"`
	Message        string                `json:"message,omitempty"`
}

// AutoResumeRunSummary 汇总调度器一轮运行的结果。
type AutoResumeRunSummary struct {
	Processed int      `json:"processed"`
	Paused    int      `json:"paused"`
	Completed int      `json:"completed"`
	Resumed   int      `json:"resumed"`
	Errors    []string `json:"errors"`
	Duration  string   `json:"duration"`
}

// RecordOutcome 将单用户结局并入汇总。
func (s *AutoResumeRunSummary) RecordOutcome(o AutoResumeOutcome) {
	s.Processed++
	switch o.Kind {
	case AutoResumeOutcomePaused:
		s.Paused++
	case AutoResumeOutcomeComplete:
		s.Completed++
	case AutoResumeOutcomeError:
		s.Errors = append(s.Errors, o.UserID.String()+": "+o.Message)
	}
}
