// Package vo 定义视图对象（View Objects），用于向上层传递业务数据。
// VO 对象由 Service 层返回，经 Controller 层序列化为 API 响应，隔离内部数据结构。
package vo

import (
	"time"

	"github.com/ytpm/services-export/internal/models/po"
)

// InitExportResult 描述一次导出初始化的结果。
// AlreadyInitialized 为 true 时表示本次调用是幂等空操作，计数来自已有数据。
type InitExportResult struct {
	PlaylistSources    int64 `json:"playlist_sources"`
	ChannelSources     int64 `json:"channel_sources"`
	TotalSources       int64 `json:"total_sources"`
	AlreadyCompleted   int64 `json:"already_completed"`
	AlreadyInitialized bool  `json:"already_initialized"`
}

// BatchReport 描述一次 ProcessBatch 调用的结果。
// ShouldStop 表示配额触顶（正常暂停，而非错误）；ExportComplete 表示无来源可处理。
type BatchReport struct {
	SourceID       string        `json:"source_id,omitempty"`
	SourceTitle    string        `json:"source_title,omitempty"`
	SourceType     po.SourceType `json:"source_type,omitempty"`
	VideosImported int64         `json:"videos_imported"`
	HasMore        bool          `json:"has_more"`
	QuotaUsedToday int64         `json:"quota_used_today"`
	QuotaCeiling   int64         `json:"quota_ceiling"`
	ShouldStop     bool          `json:"should_stop"`
	ExportComplete bool          `json:"export_complete"`
}

// QuotaStatus 描述某用户当日的配额消耗情况。
type QuotaStatus struct {
	ConsumedUnits  int64   `json:"consumed_units"`
	DailyLimit     int64   `json:"daily_limit"`
	RemainingUnits int64   `json:"remaining_units"`
	PercentUsed    float64 `json:"percent_used"`
}

// ExportStatus 汇总某用户导出的整体进度。
type ExportStatus struct {
	TotalSources        int64      `json:"total_sources"`
	CompletedSources    int64      `json:"completed_sources"`
	InProgressSources   int64      `json:"in_progress_sources"`
	PendingSources      int64      `json:"pending_sources"`
	TotalVideosImported int64      `json:"total_videos_imported"`
	EnglishVideosCount  int64      `json:"english_videos_count"`
	QuotaUsedToday      int64      `json:"quota_used_today"`
	QuotaCeiling        int64      `json:"quota_ceiling"`
	LastImportedAt      *time.Time `json:"last_imported_at"`
	HasIncompleteWork   bool       `json:"has_incomplete_work"`
}

// VideoItem 封装单条已导出视频的展示视图。
type VideoItem struct {
	VideoID      string     `json:"video_id"`
	Title        string     `json:"title"`
	ChannelID    string     `json:"channel_id"`
	ChannelTitle string     `json:"channel_title"`
	Language     string     `json:"language"`
	SourceType   string     `json:"source_type"`
	SourceTitle  string     `json:"source_title"`
	PublishedAt  *time.Time `json:"published_at"`
	ThumbnailURL string     `json:"thumbnail_url"`
}

// NewVideoItem 从领域实体构造展示 VO。
func NewVideoItem(v *po.ExportedVideo) *VideoItem {
	if v == nil {
		return nil
	}
	return &VideoItem{
		VideoID:      v.VideoID,
		Title:        v.Title,
		ChannelID:    v.ChannelID,
		ChannelTitle: v.ChannelTitle,
		Language:     v.Language,
		SourceType:   string(v.SourceType),
		SourceTitle:  v.SourceTitle,
		PublishedAt:  v.PublishedAt,
		ThumbnailURL: v.ThumbnailURL,
	}
}

// VideoPage 封装分页查询结果。
type VideoPage struct {
	Items []*VideoItem `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}
