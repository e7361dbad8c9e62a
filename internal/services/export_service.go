package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ytpm/services-export/internal/models/po"
	"github.com/ytpm/services-export/internal/models/vo"
	"github.com/ytpm/services-export/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// 分页查询默认值与上限。
const (
	defaultVideoPageLimit = 20
	maxVideoPageLimit     = 100
)

// SourceRepo 抽象来源台账的持久化操作，便于测试。
type SourceRepo interface {
	BulkInsert(ctx context.Context, sess txmanager.Session, inputs []repositories.CreateSourceInput) (int64, error)
	NextIncomplete(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.ExportSource, error)
	MarkInProgress(ctx context.Context, sess txmanager.Session, sourceRowID int64) error
	Advance(ctx context.Context, sess txmanager.Session, in repositories.AdvanceSourceInput) error
	Aggregate(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*repositories.SourceAggregate, error)
}

// ExportedVideoRepo 抽象视频存档的持久化操作，便于测试。
type ExportedVideoRepo interface {
	BulkInsert(ctx context.Context, sess txmanager.Session, inputs []repositories.CreateVideoInput) (int64, error)
	List(ctx context.Context, sess txmanager.Session, query repositories.ListVideosQuery) ([]*po.ExportedVideo, int64, error)
	Counts(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*repositories.VideoCounts, error)
}

// TxRunner 抽象只读事务执行能力（txmanager.Manager 的窄化视图）。
type TxRunner interface {
	WithinReadOnlyTx(ctx context.Context, opts txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error
}

// ExportService 实现导出流水线的三个用例：初始化、单步批处理、进度查询。
//
// ProcessBatch 是核心状态机：一次调用 = 一步配额受限、可中断重试的进度。
// 所有写入都是单行原子更新，任一步骤之后崩溃都可以安全重放。
type ExportService struct {
	sources   SourceRepo
	videos    ExportedVideoRepo
	quota     *QuotaService
	txManager TxRunner
	log       *log.Helper
}

// NewExportService 构造 ExportService。
func NewExportService(sources SourceRepo, videos ExportedVideoRepo, quota *QuotaService, tx TxRunner, logger log.Logger) (*ExportService, error) {
	switch {
	case sources == nil:
		return nil, errors.New("export service: source repository is required")
	case videos == nil:
		return nil, errors.New("export service: video repository is required")
	case quota == nil:
		return nil, errors.New("export service: quota service is required")
	case tx == nil:
		return nil, errors.New("export service: tx runner is required")
	}
	return &ExportService{
		sources:   sources,
		videos:    videos,
		quota:     quota,
		txManager: tx,
		log:       log.NewHelper(logger),
	}, nil
}

// InitExport 用用户当前的播放列表与订阅频道一次性登记来源台账。
// 已有来源时为幂等空操作，只返回既有计数——即使用户的列表集合此后发生变化，
// 也刻意不做增量补登记。登记顺序：全部播放列表在前，频道（转为 UU… uploads
// 列表 ID）在后，决定后续抓取的 FIFO 顺序。
func (s *ExportService) InitExport(ctx context.Context, userID uuid.UUID, client PageClient) (*vo.InitExportResult, error) {
	if client == nil {
		return nil, errors.New("export service: page client is required")
	}

	agg, err := s.sources.Aggregate(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("check existing sources: %w", err)
	}
	if agg.Total > 0 {
		s.log.WithContext(ctx).Infof("init export skipped, already seeded: user_id=%s sources=%d", userID, agg.Total)
		return &vo.InitExportResult{
			PlaylistSources:    agg.Playlists,
			ChannelSources:     agg.Channels,
			TotalSources:       agg.Total,
			AlreadyCompleted:   agg.Completed,
			AlreadyInitialized: true,
		}, nil
	}

	playlists, pages, err := client.ListPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	s.quota.TrackUsage(ctx, userID, OpPlaylistsList, pages)

	channels, pages, err := client.ListSubscribedChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribed channels: %w", err)
	}
	s.quota.TrackUsage(ctx, userID, OpSubscriptionsList, pages)

	inputs := make([]repositories.CreateSourceInput, 0, len(playlists)+len(channels))
	for _, p := range playlists {
		inputs = append(inputs, repositories.CreateSourceInput{
			UserID:      userID,
			SourceType:  po.SourceTypePlaylist,
			SourceID:    p.ID,
			SourceTitle: p.Title,
		})
	}
	for _, c := range channels {
		channelID := c.ChannelID
		inputs = append(inputs, repositories.CreateSourceInput{
			UserID:      userID,
			SourceType:  po.SourceTypeChannel,
			SourceID:    UploadsPlaylistID(channelID),
			OriginalID:  &channelID,
			SourceTitle: c.Title,
		})
	}

	inserted, err := s.sources.BulkInsert(ctx, nil, inputs)
	if err != nil {
		return nil, fmt.Errorf("seed export sources: %w", err)
	}
	s.log.WithContext(ctx).Infof("init export seeded: user_id=%s playlists=%d channels=%d inserted=%d",
		userID, len(playlists), len(channels), inserted)

	return &vo.InitExportResult{
		PlaylistSources: int64(len(playlists)),
		ChannelSources:  int64(len(channels)),
		TotalSources:    int64(len(inputs)),
	}, nil
}

// ProcessBatch 执行一步批处理：配额闸门 → 选源 → 领取 → 抓一页 → 落库推进 → 汇报。
//
// 每一步都是独立提交点。抓取或落库阶段的异常原样向上传播：此时来源已被领取
// （in_progress）且游标仍停留在最后一次成功的位置，下一次调用会重试同一页；
// 视频插入忽略重复，因此重放不会造成重复计数。
func (s *ExportService) ProcessBatch(ctx context.Context, userID uuid.UUID, client PageClient) (*vo.BatchReport, error) {
	if client == nil {
		return nil, errors.New("export service: page client is required")
	}

	// 1. 配额闸门：触及软上限（每日上限的 80%）直接停，无任何副作用。
	status, err := s.quota.Status(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read quota status: %w", err)
	}
	ceiling := s.quota.Ceiling()
	if status.ConsumedUnits >= ceiling {
		s.log.WithContext(ctx).Infof("quota ceiling reached: user_id=%s used=%d ceiling=%d", userID, status.ConsumedUnits, ceiling)
		return &vo.BatchReport{
			QuotaUsedToday: status.ConsumedUnits,
			QuotaCeiling:   ceiling,
			ShouldStop:     true,
		}, nil
	}

	// 2. 选源：playlist 优先、in_progress 优先、登记序 FIFO，每次重新推导。
	source, err := s.sources.NextIncomplete(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoIncompleteSource) {
			return &vo.BatchReport{
				QuotaUsedToday: status.ConsumedUnits,
				QuotaCeiling:   ceiling,
				ExportComplete: true,
			}, nil
		}
		return nil, fmt.Errorf("select next source: %w", err)
	}

	// 3. 领取：网络调用之前先标记意图。此后崩溃仍可续抓——游标尚未移动，
	// 重新开始同一页是安全的（视频插入幂等）。
	if source.Status == po.SourceStatusPending {
		if err := s.sources.MarkInProgress(ctx, nil, source.ID); err != nil {
			return nil, fmt.Errorf("claim source %s: %w", source.SourceID, err)
		}
	}

	// 4. 抓一页：一次分页列表调用 + 页非空时一次批量详情调用。
	pageToken := ""
	if source.LastPageToken != nil {
		pageToken = *source.LastPageToken
	}
	page, err := client.ListPlaylistItemsPage(ctx, source.SourceID, pageToken)
	if err != nil {
		return nil, fmt.Errorf("fetch page of source %s: %w", source.SourceID, err)
	}
	s.quota.TrackUsage(ctx, userID, OpPlaylistItemsList, 1)
	if len(page.Videos) > 0 {
		s.quota.TrackUsage(ctx, userID, OpVideosList, 1)
	}

	// 5. 先落库视频（忽略重复），再推进游标。imported_items 按页大小累加，
	// 重复视频同样计入进度。
	inputs := make([]repositories.CreateVideoInput, 0, len(page.Videos))
	for _, v := range page.Videos {
		inputs = append(inputs, repositories.CreateVideoInput{
			UserID:       userID,
			VideoID:      v.VideoID,
			Title:        v.Title,
			ChannelID:    v.ChannelID,
			ChannelTitle: v.ChannelTitle,
			Language:     v.Language,
			SourceType:   source.SourceType,
			SourceID:     source.SourceID,
			SourceTitle:  source.SourceTitle,
			PublishedAt:  v.PublishedAt,
			ThumbnailURL: v.ThumbnailURL,
		})
	}
	inserted, err := s.videos.BulkInsert(ctx, nil, inputs)
	if err != nil {
		return nil, fmt.Errorf("persist page of source %s: %w", source.SourceID, err)
	}
	if skipped := int64(len(inputs)) - inserted; skipped > 0 {
		s.log.WithContext(ctx).Debugf("skipped %d duplicate videos: user_id=%s source=%s", skipped, userID, source.SourceID)
	}

	var nextToken *string
	if page.NextPageToken != "" {
		token := page.NextPageToken
		nextToken = &token
	}
	if err := s.sources.Advance(ctx, nil, repositories.AdvanceSourceInput{
		SourceRowID:   source.ID,
		NextPageToken: nextToken,
		PageItemCount: int64(len(page.Videos)),
		TotalItems:    page.TotalResults,
	}); err != nil {
		return nil, fmt.Errorf("advance source %s: %w", source.SourceID, err)
	}

	// 6. 汇报：重读配额（上面的抓取刚消耗过单位）。
	after, err := s.quota.Status(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reread quota status: %w", err)
	}
	return &vo.BatchReport{
		SourceID:       source.SourceID,
		SourceTitle:    source.SourceTitle,
		SourceType:     source.SourceType,
		VideosImported: int64(len(page.Videos)),
		HasMore:        nextToken != nil,
		QuotaUsedToday: after.ConsumedUnits,
		QuotaCeiling:   ceiling,
		ShouldStop:     after.ConsumedUnits >= ceiling,
	}, nil
}

// ExportStatus 汇总导出整体进度（只读事务内读取，保证计数一致）。
func (s *ExportService) ExportStatus(ctx context.Context, userID uuid.UUID) (*vo.ExportStatus, error) {
	var (
		agg    *repositories.SourceAggregate
		counts *repositories.VideoCounts
		quota  *vo.QuotaStatus
	)
	err := s.txManager.WithinReadOnlyTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var repoErr error
		if agg, repoErr = s.sources.Aggregate(txCtx, sess, userID); repoErr != nil {
			return repoErr
		}
		if counts, repoErr = s.videos.Counts(txCtx, sess, userID); repoErr != nil {
			return repoErr
		}
		quota, repoErr = s.quota.statusWithSession(txCtx, sess, userID)
		return repoErr
	})
	if err != nil {
		return nil, fmt.Errorf("read export status: %w", err)
	}

	return &vo.ExportStatus{
		TotalSources:        agg.Total,
		CompletedSources:    agg.Completed,
		InProgressSources:   agg.InProgress,
		PendingSources:      agg.Pending,
		TotalVideosImported: counts.Total,
		EnglishVideosCount:  counts.English,
		QuotaUsedToday:      quota.ConsumedUnits,
		QuotaCeiling:        s.quota.Ceiling(),
		LastImportedAt:      agg.LastImportedAt,
		HasIncompleteWork:   agg.StatusCounts().HasIncompleteWork(),
	}, nil
}

// ListVideosQuery 描述对外的分页查询参数。Page 从 1 开始。
type ListVideosQuery struct {
	Language string
	Page     int
	Limit    int
}

// ListExportedVideos 分页返回已导出视频。
func (s *ExportService) ListExportedVideos(ctx context.Context, userID uuid.UUID, query ListVideosQuery) (*vo.VideoPage, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = defaultVideoPageLimit
	}
	if query.Limit > maxVideoPageLimit {
		query.Limit = maxVideoPageLimit
	}

	var (
		videos []*po.ExportedVideo
		total  int64
	)
	err := s.txManager.WithinReadOnlyTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		var repoErr error
		videos, total, repoErr = s.videos.List(txCtx, sess, repositories.ListVideosQuery{
			UserID:   userID,
			Language: query.Language,
			Offset:   (query.Page - 1) * query.Limit,
			Limit:    query.Limit,
		})
		return repoErr
	})
	if err != nil {
		return nil, fmt.Errorf("list exported videos: %w", err)
	}

	items := make([]*vo.VideoItem, 0, len(videos))
	for _, v := range videos {
		items = append(items, vo.NewVideoItem(v))
	}
	return &vo.VideoPage{
		Items: items,
		Total: total,
		Page:  query.Page,
		Limit: query.Limit,
	}, nil
}
