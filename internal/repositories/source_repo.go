// Package repositories 实现数据访问层，基于 pgx 封装手写 SQL。
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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoIncompleteSource 表示该用户已没有待处理的来源。
var ErrNoIncompleteSource = errors.New("no incomplete export source")

// SourceRepository 封装 export_sources 表的访问逻辑。
// 行由 Initializer 一次性登记，之后仅由 Batch Processor 推进，永不删除。
type SourceRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewSourceRepository 构造 SourceRepository。
func NewSourceRepository(db *pgxpool.Pool, logger log.Logger) *SourceRepository {
	return &SourceRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// CreateSourceInput 描述登记一个来源所需的字段。
type CreateSourceInput struct {
	UserID      uuid.UUID
	SourceType  po.SourceType
	SourceID    string
	OriginalID  *string
	SourceTitle string
}

const insertSourceSQL = `
INSERT INTO export_sources (user_id, source_type, source_id, original_id, source_title)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, source_type, source_id) DO NOTHING`

// BulkInsert 批量登记来源，重复的 (user_id, source_type, source_id) 静默跳过。
// 返回实际插入的行数。
func (r *SourceRepository) BulkInsert(ctx context.Context, sess txmanager.Session, inputs []CreateSourceInput) (int64, error) {
	if len(inputs) == 0 {
		return 0, nil
	}

	q := querier(r.db, sess)
	batch := &pgx.Batch{}
	for _, in := range inputs {
		batch.Queue(insertSourceSQL, in.UserID, in.SourceType, in.SourceID, toPgText(in.OriginalID), in.SourceTitle)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range inputs {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("bulk insert export sources: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

const selectSourceColumns = `
id, user_id, source_type, source_id, original_id, source_title, status,
last_page_token, total_items, imported_items, last_imported_at, created_at, updated_at`

// NextIncomplete 返回下一个待处理来源。
// 排序规则：playlist 先于 channel；同类中 in_progress 先于 pending；再按登记顺序 FIFO。
// 排序在每次调用时重新推导，不缓存“下一个来源”的游标。
func (r *SourceRepository) NextIncomplete(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.ExportSource, error) {
	q := querier(r.db, sess)
	row := q.QueryRow(ctx, `
SELECT `+selectSourceColumns+`
FROM export_sources
WHERE user_id = $1 AND status IN ('pending', 'in_progress')
ORDER BY
  CASE source_type WHEN 'playlist' THEN 0 ELSE 1 END,
  CASE status WHEN 'in_progress' THEN 0 ELSE 1 END,
  id
LIMIT 1`, userID)

	source, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoIncompleteSource
		}
		return nil, fmt.Errorf("select next incomplete source: %w", err)
	}
	return source, nil
}

// MarkInProgress 将 pending 来源置为 in_progress（抓取前的领取标记）。
// 已是 in_progress 的来源不受影响。
func (r *SourceRepository) MarkInProgress(ctx context.Context, sess txmanager.Session, sourceRowID int64) error {
	q := querier(r.db, sess)
	_, err := q.Exec(ctx, `
UPDATE export_sources
SET status = 'in_progress', updated_at = now()
WHERE id = $1 AND status = 'pending'`, sourceRowID)
	if err != nil {
		return fmt.Errorf("mark source in progress: %w", err)
	}
	return nil
}

// AdvanceSourceInput 描述一页抓取完成后的游标推进。
type AdvanceSourceInput struct {
	SourceRowID   int64
	NextPageToken *string // nil 表示该来源已抓完
	PageItemCount int64   // 本页条目数（含重复，计入 imported_items）
	TotalItems    int64   // 提供方报告的总数；<=0 时保留旧值
}

// Advance 在一页持久化之后推进游标：写入新 page token、累加计数、
// 必要时刷新 total_items 并盖章 last_imported_at；游标为空即置为 completed。
func (r *SourceRepository) Advance(ctx context.Context, sess txmanager.Session, in AdvanceSourceInput) error {
	status := po.SourceStatusInProgress
	if in.NextPageToken == nil {
		status = po.SourceStatusCompleted
	}

	q := querier(r.db, sess)
	_, err := q.Exec(ctx, `
UPDATE export_sources
SET last_page_token  = $2,
    imported_items   = imported_items + $3,
    total_items      = CASE WHEN $4::bigint > 0 THEN $4 ELSE total_items END,
    status           = $5,
    last_imported_at = now(),
    updated_at       = now()
WHERE id = $1`, in.SourceRowID, toPgText(in.NextPageToken), in.PageItemCount, in.TotalItems, status)
	if err != nil {
		return fmt.Errorf("advance source cursor: %w", err)
	}
	return nil
}

// SourceAggregate 汇总某用户全部来源的状态与类型分布。
type SourceAggregate struct {
	Total          int64
	Pending        int64
	InProgress     int64
	Completed      int64
	Playlists      int64
	Channels       int64
	LastImportedAt *time.Time
}

// Aggregate 返回某用户来源的聚合统计（单条 SQL，供状态查询与幂等初始化复用）。
func (r *SourceRepository) Aggregate(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*SourceAggregate, error) {
	q := querier(r.db, sess)
	var (
		agg  SourceAggregate
		last pgtype.Timestamptz
	)
	err := q.QueryRow(ctx, `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE status = 'pending'),
  COUNT(*) FILTER (WHERE status = 'in_progress'),
  COUNT(*) FILTER (WHERE status = 'completed'),
  COUNT(*) FILTER (WHERE source_type = 'playlist'),
  COUNT(*) FILTER (WHERE source_type = 'channel'),
  MAX(last_imported_at)
FROM export_sources
WHERE user_id = $1`, userID).Scan(
		&agg.Total, &agg.Pending, &agg.InProgress, &agg.Completed,
		&agg.Playlists, &agg.Channels, &last,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate export sources: %w", err)
	}
	agg.LastImportedAt = fromPgTimestamptz(last)
	return &agg, nil
}

// StatusCounts 返回状态计数视图。
func (a *SourceAggregate) StatusCounts() po.SourceStatusCounts {
	return po.SourceStatusCounts{
		Total:      a.Total,
		Pending:    a.Pending,
		InProgress: a.InProgress,
		Completed:  a.Completed,
	}
}

func scanSource(row pgx.Row) (*po.ExportSource, error) {
	var (
		s            po.ExportSource
		originalID   pgtype.Text
		pageToken    pgtype.Text
		lastImported pgtype.Timestamptz
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.SourceType, &s.SourceID, &originalID, &s.SourceTitle, &s.Status,
		&pageToken, &s.TotalItems, &s.ImportedItems, &lastImported, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.OriginalID = fromPgText(originalID)
	s.LastPageToken = fromPgText(pageToken)
	s.LastImportedAt = fromPgTimestamptz(lastImported)
	return &s, nil
}
