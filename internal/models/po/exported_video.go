package po

import (
	"time"

	"github.com/google/uuid"
)

// ExportedVideo 表示 exported_videos 表的数据库实体。
// (user_id, video_id) 唯一；插入采用忽略冲突语义，首个写入者胜出，
// 之后行不再被本子系统修改或删除。
type ExportedVideo struct {
	ID           int64      `db:"id"`            // 主键
	UserID       uuid.UUID  `db:"user_id"`       // 所属用户
	VideoID      string     `db:"video_id"`      // YouTube 视频 ID
	Title        string     `db:"title"`         // 视频标题
	ChannelID    string     `db:"channel_id"`    // 上传频道 ID
	ChannelTitle string     `db:"channel_title"` // 上传频道名称
	Language     string     `db:"language"`      // 音频语言代码（可能为空）
	SourceType   SourceType `db:"source_type"`   // 首次抓到该视频的来源类别
	SourceID     string     `db:"source_id"`     // 首次抓到该视频的来源 ID
	SourceTitle  string     `db:"source_title"`  // 首次抓到该视频的来源标题
	PublishedAt  *time.Time `db:"published_at"`  // 发布时间
	ThumbnailURL string     `db:"thumbnail_url"` // 缩略图 URL
	CreatedAt    time.Time  `db:"created_at"`    // 落库时间
}
