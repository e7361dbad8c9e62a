// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射数据库表结构，不直接暴露给上层业务逻辑。
package po

import (
	"time"

	"github.com/google/uuid"
)

// SourceType 表示导出来源的类别。
type SourceType string

// 来源类别常量定义
const (
	SourceTypePlaylist SourceType = "playlist" // 用户自建或收藏的播放列表
	SourceTypeChannel  SourceType = "channel"  // 订阅频道的 uploads 播放列表
)

// SourceStatus 表示来源的抓取生命周期状态，只允许单向推进。
type SourceStatus string

// 来源状态常量定义
const (
	SourceStatusPending    SourceStatus = "pending"     // 已登记，尚未开始抓取
	SourceStatusInProgress SourceStatus = "in_progress" // 抓取中，last_page_token 为续传游标
	SourceStatusCompleted  SourceStatus = "completed"   // 已完全抓取，游标清空
)

// ExportSource 表示 export_sources 表的数据库实体。
// 每行对应一个用户的一个播放列表或一个订阅频道的 uploads 列表，
// (user_id, source_type, source_id) 唯一，行本身永不删除。
type ExportSource struct {
	ID             int64        `db:"id"`               // 主键，同时作为 FIFO 平局裁决
	UserID         uuid.UUID    `db:"user_id"`          // 所属用户
	SourceType     SourceType   `db:"source_type"`      // playlist / channel
	SourceID       string       `db:"source_id"`        // YouTube 播放列表 ID（频道为合成的 UU… ID）
	OriginalID     *string      `db:"original_id"`      // 频道来源保留真实频道 ID（UC…）
	SourceTitle    string       `db:"source_title"`     // 展示用标题
	Status         SourceStatus `db:"status"`           // 状态机，只进不退
	LastPageToken  *string      `db:"last_page_token"`  // 分页游标；nil 表示从头开始或已抓完
	TotalItems     int64        `db:"total_items"`      // 提供方报告的条目总数
	ImportedItems  int64        `db:"imported_items"`   // 累计已处理条目数（含重复）
	LastImportedAt *time.Time   `db:"last_imported_at"` // 最近一次成功落库时间
	CreatedAt      time.Time    `db:"created_at"`       // 登记时间
	UpdatedAt      time.Time    `db:"updated_at"`       // 最近更新时间
}

// Incomplete 判断来源是否仍有待抓取的页面。
func (s *ExportSource) Incomplete() bool {
	return s.Status != SourceStatusCompleted
}

// SourceStatusCounts 聚合某用户各状态的来源数量。
type SourceStatusCounts struct {
	Total      int64
	Pending    int64
	InProgress int64
	Completed  int64
}

// HasIncompleteWork 判断是否仍有未抓完的来源。
func (c SourceStatusCounts) HasIncompleteWork() bool {
	return c.Pending > 0 || c.InProgress > 0
}
