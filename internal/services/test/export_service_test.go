package services_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ytpm/services-export/internal/models/po"
	"github.com/ytpm/services-export/internal/repositories"
	"github.com/ytpm/services-export/internal/services"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

type stubSourceRepo struct {
	inserts  []repositories.CreateSourceInput
	agg      repositories.SourceAggregate
	next     *po.ExportSource
	nextErr  error
	claimed  []int64
	advanced []repositories.AdvanceSourceInput
}

func (s *stubSourceRepo) BulkInsert(_ context.Context, _ txmanager.Session, inputs []repositories.CreateSourceInput) (int64, error) {
	s.inserts = append(s.inserts, inputs...)
	return int64(len(inputs)), nil
}

func (s *stubSourceRepo) NextIncomplete(_ context.Context, _ txmanager.Session, _ uuid.UUID) (*po.ExportSource, error) {
	if s.nextErr != nil {
		return nil, s.nextErr
	}
	if s.next == nil {
		return nil, repositories.ErrNoIncompleteSource
	}
	return s.next, nil
}

func (s *stubSourceRepo) MarkInProgress(_ context.Context, _ txmanager.Session, sourceRowID int64) error {
	s.claimed = append(s.claimed, sourceRowID)
	return nil
}

func (s *stubSourceRepo) Advance(_ context.Context, _ txmanager.Session, in repositories.AdvanceSourceInput) error {
	s.advanced = append(s.advanced, in)
	return nil
}

func (s *stubSourceRepo) Aggregate(_ context.Context, _ txmanager.Session, _ uuid.UUID) (*repositories.SourceAggregate, error) {
	agg := s.agg
	return &agg, nil
}

type stubVideoRepo struct {
	inserts    [][]repositories.CreateVideoInput
	insertedFn func(n int64) int64
	counts     repositories.VideoCounts
	list       []*po.ExportedVideo
	total      int64
	lastQuery  repositories.ListVideosQuery
}

func (s *stubVideoRepo) BulkInsert(_ context.Context, _ txmanager.Session, inputs []repositories.CreateVideoInput) (int64, error) {
	s.inserts = append(s.inserts, inputs)
	if s.insertedFn != nil {
		return s.insertedFn(int64(len(inputs))), nil
	}
	return int64(len(inputs)), nil
}

func (s *stubVideoRepo) List(_ context.Context, _ txmanager.Session, query repositories.ListVideosQuery) ([]*po.ExportedVideo, int64, error) {
	s.lastQuery = query
	return s.list, s.total, nil
}

func (s *stubVideoRepo) Counts(_ context.Context, _ txmanager.Session, _ uuid.UUID) (*repositories.VideoCounts, error) {
	counts := s.counts
	return &counts, nil
}

// stubTx 直接以空 Session 执行回调，绕过真实事务。
type stubTx struct{}

func (stubTx) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, nil)
}

type fakePageClient struct {
	playlists     []services.PlaylistInfo
	playlistPages int64
	channels      []services.ChannelInfo
	channelPages  int64
	pages         map[string]map[string]*services.VideoPage
	listCalls     []string
	itemCalls     [][2]string
	err           error
}

func (f *fakePageClient) ListPlaylists(_ context.Context) ([]services.PlaylistInfo, int64, error) {
	f.listCalls = append(f.listCalls, "playlists")
	return f.playlists, f.playlistPages, f.err
}

func (f *fakePageClient) ListSubscribedChannels(_ context.Context) ([]services.ChannelInfo, int64, error) {
	f.listCalls = append(f.listCalls, "subscriptions")
	return f.channels, f.channelPages, f.err
}

func (f *fakePageClient) ListPlaylistItemsPage(_ context.Context, playlistID, pageToken string) (*services.VideoPage, error) {
	f.itemCalls = append(f.itemCalls, [2]string{playlistID, pageToken})
	if f.err != nil {
		return nil, f.err
	}
	byToken, ok := f.pages[playlistID]
	if !ok {
		return nil, errors.New("unexpected playlist id " + playlistID)
	}
	page, ok := byToken[pageToken]
	if !ok {
		return nil, errors.New("unexpected page token " + pageToken)
	}
	return page, nil
}

func newExportService(t *testing.T, sources *stubSourceRepo, videos *stubVideoRepo, quotaRepo *stubQuotaRepo) *services.ExportService {
	t.Helper()
	logger := log.NewStdLogger(io.Discard)
	quota, err := services.NewQuotaService(quotaRepo, services.QuotaConfig{DailyLimit: 10000}, logger)
	if err != nil {
		t.Fatalf("NewQuotaService: %v", err)
	}
	svc, err := services.NewExportService(sources, videos, quota, stubTx{}, logger)
	if err != nil {
		t.Fatalf("NewExportService: %v", err)
	}
	return svc
}

func consumeUnits(t *testing.T, repo *stubQuotaRepo, userID uuid.UUID, units int64) {
	t.Helper()
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if _, err := repo.Increment(context.Background(), nil, userID, day, units, 10000); err != nil {
		t.Fatalf("seed quota: %v", err)
	}
	repo.increments = nil
}

func TestExportService_InitExportSeedsPlaylistsBeforeChannels(t *testing.T) {
	sources := &stubSourceRepo{}
	quotaRepo := &stubQuotaRepo{}
	svc := newExportService(t, sources, &stubVideoRepo{}, quotaRepo)

	client := &fakePageClient{
		playlists: []services.PlaylistInfo{
			{ID: "PL-watchlater", Title: "Watch Later", ItemCount: 12},
			{ID: "PL-favorites", Title: "Favorites", ItemCount: 3},
		},
		playlistPages: 2,
		channels: []services.ChannelInfo{
			{ChannelID: "UCabcdef", Title: "Some Channel"},
		},
		channelPages: 1,
	}

	result, err := svc.InitExport(context.Background(), uuid.New(), client)
	if err != nil {
		t.Fatalf("InitExport: %v", err)
	}
	if result.AlreadyInitialized {
		t.Fatalf("expected fresh seeding")
	}
	if result.PlaylistSources != 2 || result.ChannelSources != 1 || result.TotalSources != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if len(sources.inserts) != 3 {
		t.Fatalf("inserts = %d, want 3", len(sources.inserts))
	}
	// 播放列表全部在频道之前登记，决定 FIFO 抓取顺序
	if sources.inserts[0].SourceType != po.SourceTypePlaylist || sources.inserts[1].SourceType != po.SourceTypePlaylist {
		t.Fatalf("playlists must be seeded first: %+v", sources.inserts)
	}
	ch := sources.inserts[2]
	if ch.SourceType != po.SourceTypeChannel || ch.SourceID != "UUabcdef" {
		t.Fatalf("channel must be seeded as uploads playlist: %+v", ch)
	}
	if ch.OriginalID == nil || *ch.OriginalID != "UCabcdef" {
		t.Fatalf("channel must keep original id: %+v", ch)
	}

	// 每个列表调用按内部翻页次数记账
	if len(quotaRepo.increments) != 2 || quotaRepo.increments[0] != 2 || quotaRepo.increments[1] != 1 {
		t.Fatalf("quota increments = %v, want [2 1]", quotaRepo.increments)
	}
}

func TestExportService_InitExportIsIdempotent(t *testing.T) {
	sources := &stubSourceRepo{agg: repositories.SourceAggregate{
		Total: 5, Completed: 2, Playlists: 3, Channels: 2,
	}}
	svc := newExportService(t, sources, &stubVideoRepo{}, &stubQuotaRepo{})
	client := &fakePageClient{err: errors.New("must not be called")}

	result, err := svc.InitExport(context.Background(), uuid.New(), client)
	if err != nil {
		t.Fatalf("InitExport: %v", err)
	}
	if !result.AlreadyInitialized {
		t.Fatalf("expected idempotent no-op")
	}
	if result.TotalSources != 5 || result.PlaylistSources != 3 || result.ChannelSources != 2 || result.AlreadyCompleted != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(client.listCalls) != 0 {
		t.Fatalf("client must not be called on re-init: %v", client.listCalls)
	}
	if len(sources.inserts) != 0 {
		t.Fatalf("no sources must be inserted on re-init")
	}
}

func TestExportService_ProcessBatchStopsAtQuotaCeiling(t *testing.T) {
	sources := &stubSourceRepo{next: &po.ExportSource{ID: 1, SourceID: "PL1", Status: po.SourceStatusPending}}
	quotaRepo := &stubQuotaRepo{}
	svc := newExportService(t, sources, &stubVideoRepo{}, quotaRepo)
	userID := uuid.New()
	consumeUnits(t, quotaRepo, userID, 8000)

	client := &fakePageClient{err: errors.New("must not be called")}
	report, err := svc.ProcessBatch(context.Background(), userID, client)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if !report.ShouldStop || report.ExportComplete {
		t.Fatalf("expected quota stop: %+v", report)
	}
	if report.QuotaUsedToday != 8000 || report.QuotaCeiling != 8000 {
		t.Fatalf("unexpected quota fields: %+v", report)
	}
	// 配额闸门不得产生任何副作用
	if len(sources.claimed) != 0 || len(client.itemCalls) != 0 {
		t.Fatalf("ceiling stop must have no side effects")
	}
}

func TestExportService_ProcessBatchReportsExportComplete(t *testing.T) {
	svc := newExportService(t, &stubSourceRepo{}, &stubVideoRepo{}, &stubQuotaRepo{})

	report, err := svc.ProcessBatch(context.Background(), uuid.New(), &fakePageClient{})
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if !report.ExportComplete || report.ShouldStop {
		t.Fatalf("expected export complete: %+v", report)
	}
}

func TestExportService_ProcessBatchClaimsFetchesAndAdvances(t *testing.T) {
	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sources := &stubSourceRepo{next: &po.ExportSource{
		ID:          7,
		SourceID:    "PL1",
		SourceTitle: "Favorites",
		SourceType:  po.SourceTypePlaylist,
		Status:      po.SourceStatusPending,
	}}
	videos := &stubVideoRepo{}
	quotaRepo := &stubQuotaRepo{}
	svc := newExportService(t, sources, videos, quotaRepo)

	client := &fakePageClient{pages: map[string]map[string]*services.VideoPage{
		"PL1": {"": {
			Videos: []services.PageVideo{
				{VideoID: "v1", Title: "First", ChannelID: "UCx", ChannelTitle: "Chan", Language: "en", PublishedAt: &published},
				{VideoID: "v2", Title: "Second", ChannelID: "UCx", ChannelTitle: "Chan", Language: "fr"},
			},
			NextPageToken: "T2",
			TotalResults:  10,
		}},
	}}

	report, err := svc.ProcessBatch(context.Background(), uuid.New(), client)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}

	if len(sources.claimed) != 1 || sources.claimed[0] != 7 {
		t.Fatalf("pending source must be claimed before fetch: %v", sources.claimed)
	}
	if len(client.itemCalls) != 1 || client.itemCalls[0] != [2]string{"PL1", ""} {
		t.Fatalf("unexpected item calls: %v", client.itemCalls)
	}

	if len(videos.inserts) != 1 || len(videos.inserts[0]) != 2 {
		t.Fatalf("expected one page of two videos persisted")
	}
	first := videos.inserts[0][0]
	if first.SourceID != "PL1" || first.SourceTitle != "Favorites" || first.SourceType != po.SourceTypePlaylist {
		t.Fatalf("video must carry source provenance: %+v", first)
	}

	if len(sources.advanced) != 1 {
		t.Fatalf("expected one cursor advance")
	}
	adv := sources.advanced[0]
	if adv.SourceRowID != 7 || adv.NextPageToken == nil || *adv.NextPageToken != "T2" || adv.PageItemCount != 2 || adv.TotalItems != 10 {
		t.Fatalf("unexpected advance: %+v", adv)
	}

	if report.VideosImported != 2 || !report.HasMore || report.ShouldStop || report.ExportComplete {
		t.Fatalf("unexpected report: %+v", report)
	}
	// playlistItems.list + videos.list = 2 单位
	if report.QuotaUsedToday != 2 {
		t.Fatalf("quota used = %d, want 2", report.QuotaUsedToday)
	}
}

func TestExportService_ProcessBatchResumesFromCursor(t *testing.T) {
	token := "T5"
	sources := &stubSourceRepo{next: &po.ExportSource{
		ID:            3,
		SourceID:      "PL1",
		SourceType:    po.SourceTypePlaylist,
		Status:        po.SourceStatusInProgress,
		LastPageToken: &token,
	}}
	quotaRepo := &stubQuotaRepo{}
	svc := newExportService(t, sources, &stubVideoRepo{}, quotaRepo)

	// 末页为空：不触发详情调用，游标清空即完成
	client := &fakePageClient{pages: map[string]map[string]*services.VideoPage{
		"PL1": {"T5": {TotalResults: 250}},
	}}

	report, err := svc.ProcessBatch(context.Background(), uuid.New(), client)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}

	if len(sources.claimed) != 0 {
		t.Fatalf("in_progress source must not be re-claimed")
	}
	if len(client.itemCalls) != 1 || client.itemCalls[0] != [2]string{"PL1", "T5"} {
		t.Fatalf("fetch must resume from stored cursor: %v", client.itemCalls)
	}
	adv := sources.advanced[0]
	if adv.NextPageToken != nil || adv.PageItemCount != 0 {
		t.Fatalf("final page must clear cursor: %+v", adv)
	}
	// 空页只记 playlistItems.list 一个单位
	if len(quotaRepo.increments) != 1 || quotaRepo.increments[0] != 1 {
		t.Fatalf("quota increments = %v, want [1]", quotaRepo.increments)
	}
	if report.HasMore || report.VideosImported != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestExportService_ProcessBatchCountsDuplicatesAsProgress(t *testing.T) {
	sources := &stubSourceRepo{next: &po.ExportSource{
		ID: 9, SourceID: "PL1", SourceType: po.SourceTypePlaylist, Status: po.SourceStatusInProgress,
	}}
	// 3 条中只有 1 条真正插入，其余为重放产生的重复
	videos := &stubVideoRepo{insertedFn: func(int64) int64 { return 1 }}
	svc := newExportService(t, sources, videos, &stubQuotaRepo{})

	client := &fakePageClient{pages: map[string]map[string]*services.VideoPage{
		"PL1": {"": {
			Videos: []services.PageVideo{{VideoID: "a"}, {VideoID: "b"}, {VideoID: "c"}},
		}},
	}}

	report, err := svc.ProcessBatch(context.Background(), uuid.New(), client)
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	// 进度按页大小计，重复视频同样计入
	if report.VideosImported != 3 {
		t.Fatalf("videos imported = %d, want 3", report.VideosImported)
	}
	if sources.advanced[0].PageItemCount != 3 {
		t.Fatalf("cursor advance must count full page: %+v", sources.advanced[0])
	}
}

func TestExportService_ExportStatusAggregates(t *testing.T) {
	lastImported := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	sources := &stubSourceRepo{agg: repositories.SourceAggregate{
		Total: 4, Pending: 1, InProgress: 1, Completed: 2,
		Playlists: 3, Channels: 1, LastImportedAt: &lastImported,
	}}
	videos := &stubVideoRepo{counts: repositories.VideoCounts{Total: 120, English: 80}}
	quotaRepo := &stubQuotaRepo{}
	svc := newExportService(t, sources, videos, quotaRepo)
	userID := uuid.New()
	consumeUnits(t, quotaRepo, userID, 42)

	status, err := svc.ExportStatus(context.Background(), userID)
	if err != nil {
		t.Fatalf("ExportStatus: %v", err)
	}
	if status.TotalSources != 4 || status.CompletedSources != 2 || status.PendingSources != 1 || status.InProgressSources != 1 {
		t.Fatalf("unexpected source counts: %+v", status)
	}
	if status.TotalVideosImported != 120 || status.EnglishVideosCount != 80 {
		t.Fatalf("unexpected video counts: %+v", status)
	}
	if status.QuotaUsedToday != 42 || status.QuotaCeiling != 8000 {
		t.Fatalf("unexpected quota fields: %+v", status)
	}
	if !status.HasIncompleteWork {
		t.Fatalf("expected incomplete work")
	}
	if status.LastImportedAt == nil || !status.LastImportedAt.Equal(lastImported) {
		t.Fatalf("unexpected last imported at: %v", status.LastImportedAt)
	}
}

func TestExportService_ListExportedVideosClampsPaging(t *testing.T) {
	videos := &stubVideoRepo{total: 7}
	svc := newExportService(t, &stubSourceRepo{}, videos, &stubQuotaRepo{})

	page, err := svc.ListExportedVideos(context.Background(), uuid.New(), services.ListVideosQuery{
		Language: "en", Page: 0, Limit: 500,
	})
	if err != nil {
		t.Fatalf("ListExportedVideos: %v", err)
	}
	if videos.lastQuery.Offset != 0 || videos.lastQuery.Limit != 100 || videos.lastQuery.Language != "en" {
		t.Fatalf("unexpected repo query: %+v", videos.lastQuery)
	}
	if page.Page != 1 || page.Limit != 100 || page.Total != 7 {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestUploadsPlaylistID(t *testing.T) {
	cases := map[string]string{
		"UCabcdef123":  "UUabcdef123",
		"UU-already":   "UU-already",
		"PLnotchannel": "PLnotchannel",
		"":             "",
	}
	for in, want := range cases {
		if got := services.UploadsPlaylistID(in); got != want {
			t.Fatalf("UploadsPlaylistID(%q) = %q, want %q", in, got, want)
		}
	}
}
