// Package services 实现导出流水线的业务用例层。
package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/ytpm/services-export/internal/models/po"
	"github.com/ytpm/services-export/internal/models/vo"
	"github.com/ytpm/services-export/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// QuotaOperation 标识一类 YouTube Data API 调用，用于查定价表。
type QuotaOperation string

// 配额操作常量定义（单位成本见 operationCosts）
const (
	OpPlaylistsList       QuotaOperation = "playlists.list"
	OpSubscriptionsList   QuotaOperation = "subscriptions.list"
	OpPlaylistItemsList   QuotaOperation = "playlistItems.list"
	OpVideosList          QuotaOperation = "videos.list"
	OpSearchList          QuotaOperation = "search.list"
	OpPlaylistItemsInsert QuotaOperation = "playlistItems.insert"
	OpPlaylistItemsDelete QuotaOperation = "playlistItems.delete"
)

// operationCosts 是 YouTube Data API v3 的固定单位定价表。
var operationCosts = map[QuotaOperation]int64{
	OpPlaylistsList:       1,
	OpSubscriptionsList:   1,
	OpPlaylistItemsList:   1,
	OpVideosList:          1,
	OpSearchList:          100,
	OpPlaylistItemsInsert: 50,
	OpPlaylistItemsDelete: 50,
}

// quotaCeilingFraction 是导出流水线可用的每日配额比例。
// 刻意低于提供方硬上限，为同一用户当日的交互式 API 使用留出余量。
const quotaCeilingFraction = 0.8

// defaultDailyQuotaLimit 是 YouTube Data API 的默认每日配额。
const defaultDailyQuotaLimit = 10000

// QuotaRepo 抽象配额账本的持久化操作，便于测试。
type QuotaRepo interface {
	Increment(ctx context.Context, sess txmanager.Session, userID uuid.UUID, day time.Time, units, dailyLimit int64) (*po.QuotaRecord, error)
	GetDay(ctx context.Context, sess txmanager.Session, userID uuid.UUID, day time.Time) (*po.QuotaRecord, error)
}

// QuotaService 实现每用户每日的 API 单位账本。
type QuotaService struct {
	repo       QuotaRepo
	dailyLimit int64
	log        *log.Helper
	now        func() time.Time
}

// QuotaConfig 聚合配额账本参数；DailyLimit <= 0 时使用默认每日配额。
type QuotaConfig struct {
	DailyLimit int64
}

// NewQuotaService 构造 QuotaService。
func NewQuotaService(repo QuotaRepo, cfg QuotaConfig, logger log.Logger) (*QuotaService, error) {
	if repo == nil {
		return nil, errors.New("quota service: repository is required")
	}
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = defaultDailyQuotaLimit
	}
	return &QuotaService{
		repo:       repo,
		dailyLimit: cfg.DailyLimit,
		log:        log.NewHelper(logger),
		now:        time.Now,
	}, nil
}

// DailyLimit 返回每日配额上限。
func (s *QuotaService) DailyLimit() int64 { return s.dailyLimit }

// Ceiling 返回导出流水线的配额软上限（每日上限的 80%）。
// 软上限始终按当前配置的每日上限计算：当日中途调整 quota.daily_limit 时
// 新上限立即生效，而已建的账本行保留建行时的 daily_limit 快照。
func (s *QuotaService) Ceiling() int64 {
	return int64(math.Floor(float64(s.dailyLimit) * quotaCeilingFraction))
}

// TrackUsage 按定价表累加当日消耗（cost × multiplier）。
// 账本写入失败只记录日志、不向上传播：已经发生的 YouTube 调用不能因记账失败而报错。
func (s *QuotaService) TrackUsage(ctx context.Context, userID uuid.UUID, op QuotaOperation, multiplier int64) {
	if multiplier <= 0 {
		multiplier = 1
	}
	cost, ok := operationCosts[op]
	if !ok {
		s.log.WithContext(ctx).Warnf("unknown quota operation %q, assuming cost 1", op)
		cost = 1
	}

	day := quotaDay(s.now())
	if _, err := s.repo.Increment(ctx, nil, userID, day, cost*multiplier, s.dailyLimit); err != nil {
		s.log.WithContext(ctx).Errorf("track quota usage failed: user_id=%s op=%s err=%v", userID, op, err)
	}
}

// Status 返回该用户当日的配额消耗；当日无记录按零消耗处理，不建行。
func (s *QuotaService) Status(ctx context.Context, userID uuid.UUID) (*vo.QuotaStatus, error) {
	return s.statusWithSession(ctx, nil, userID)
}

func (s *QuotaService) statusWithSession(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*vo.QuotaStatus, error) {
	day := quotaDay(s.now())
	rec, err := s.repo.GetDay(ctx, sess, userID, day)
	if err != nil {
		if errors.Is(err, repositories.ErrQuotaRecordNotFound) {
			return &vo.QuotaStatus{
				ConsumedUnits:  0,
				DailyLimit:     s.dailyLimit,
				RemainingUnits: s.dailyLimit,
				PercentUsed:    0,
			}, nil
		}
		return nil, err
	}

	remaining := rec.DailyLimit - rec.ConsumedUnits
	if remaining < 0 {
		remaining = 0
	}
	return &vo.QuotaStatus{
		ConsumedUnits:  rec.ConsumedUnits,
		DailyLimit:     rec.DailyLimit,
		RemainingUnits: remaining,
		PercentUsed:    float64(rec.ConsumedUnits) / float64(rec.DailyLimit) * 100,
	}, nil
}

// CheckAvailable 判断剩余配额是否足以支付 requiredUnits。
// 检查与消费之间没有事务性预留：同一用户的并发调用可能同时通过检查并合计超限。
// 调用方约定同一用户串行调用，超限仅在提供方侧报错，因此不做预留。
func (s *QuotaService) CheckAvailable(ctx context.Context, userID uuid.UUID, requiredUnits int64) (bool, error) {
	status, err := s.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	return status.RemainingUnits >= requiredUnits, nil
}

// quotaDay 将时间截断到 UTC 零点，作为配额日边界。
func quotaDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
