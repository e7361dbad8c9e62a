package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytpm/services-export/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VideoRepository 封装 exported_videos 表的访问逻辑。
// 插入一律忽略 (user_id, video_id) 冲突：首个写入者胜出，已有行不更新。
type VideoRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewVideoRepository 构造 VideoRepository。
func NewVideoRepository(db *pgxpool.Pool, logger log.Logger) *VideoRepository {
	return &VideoRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// CreateVideoInput 描述落库一条视频所需的字段。
type CreateVideoInput struct {
	UserID       uuid.UUID
	VideoID      string
	Title        string
	ChannelID    string
	ChannelTitle string
	Language     string
	SourceType   po.SourceType
	SourceID     string
	SourceTitle  string
	PublishedAt  *time.Time
	ThumbnailURL string
}

const insertVideoSQL = `
INSERT INTO exported_videos
  (user_id, video_id, title, channel_id, channel_title, language,
   source_type, source_id, source_title, published_at, thumbnail_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (user_id, video_id) DO NOTHING`

// BulkInsert 批量落库一页视频，重复的视频静默跳过，返回实际插入行数。
// 同一页重放两次不会产生重复行，这是断点续抓安全性的基础。
func (r *VideoRepository) BulkInsert(ctx context.Context, sess txmanager.Session, inputs []CreateVideoInput) (int64, error) {
	if len(inputs) == 0 {
		return 0, nil
	}

	q := querier(r.db, sess)
	batch := &pgx.Batch{}
	for _, in := range inputs {
		batch.Queue(insertVideoSQL,
			in.UserID, in.VideoID, in.Title, in.ChannelID, in.ChannelTitle, in.Language,
			in.SourceType, in.SourceID, in.SourceTitle, toPgTimestamptz(in.PublishedAt), in.ThumbnailURL,
		)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range inputs {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("bulk insert exported videos: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// ListVideosQuery 描述分页查询参数。Language 为空表示不过滤。
type ListVideosQuery struct {
	UserID   uuid.UUID
	Language string
	Offset   int
	Limit    int
}

// List 按落库时间倒序返回已导出视频及满足条件的总数。
func (r *VideoRepository) List(ctx context.Context, sess txmanager.Session, query ListVideosQuery) ([]*po.ExportedVideo, int64, error) {
	q := querier(r.db, sess)

	where := "user_id = $1"
	args := []any{query.UserID}
	// language 按 YouTube 返回的原样存储（BCP-47 大小写混用），过滤必须不区分大小写
	if lang := normalizeLanguage(query.Language); lang != "" {
		where += " AND LOWER(language) = $2"
		args = append(args, lang)
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM exported_videos WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count exported videos: %w", err)
	}

	listSQL := fmt.Sprintf(`
SELECT id, user_id, video_id, title, channel_id, channel_title, language,
       source_type, source_id, source_title, published_at, thumbnail_url, created_at
FROM exported_videos
WHERE %s
ORDER BY created_at DESC, id DESC
LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, query.Limit, query.Offset)

	rows, err := q.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list exported videos: %w", err)
	}
	defer rows.Close()

	var videos []*po.ExportedVideo
	for rows.Next() {
		var (
			v         po.ExportedVideo
			published pgtype.Timestamptz
		)
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.VideoID, &v.Title, &v.ChannelID, &v.ChannelTitle, &v.Language,
			&v.SourceType, &v.SourceID, &v.SourceTitle, &published, &v.ThumbnailURL, &v.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan exported video: %w", err)
		}
		v.PublishedAt = fromPgTimestamptz(published)
		videos = append(videos, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate exported videos: %w", err)
	}
	return videos, total, nil
}

// VideoCounts 汇总某用户的视频总数与英语视频数。
type VideoCounts struct {
	Total   int64
	English int64
}

// Counts 返回总数与英语（language 以 en 开头）视频数。
func (r *VideoRepository) Counts(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*VideoCounts, error) {
	q := querier(r.db, sess)
	var c VideoCounts
	err := q.QueryRow(ctx, `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE language ILIKE 'en%')
FROM exported_videos
WHERE user_id = $1`, userID).Scan(&c.Total, &c.English)
	if err != nil {
		return nil, fmt.Errorf("count exported videos: %w", err)
	}
	return &c, nil
}

// normalizeLanguage 统一语言代码为小写，去除空白。
func normalizeLanguage(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
