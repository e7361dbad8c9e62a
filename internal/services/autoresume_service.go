package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ytpm/services-export/internal/models/po"
	"github.com/ytpm/services-export/internal/models/vo"
	"github.com/ytpm/services-export/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// quotaPauseCooldown 是配额触顶后的固定冷却时长，
// 取 8 小时以跨过提供方的每日配额重置点。
const quotaPauseCooldown = 8 * time.Hour

// 调度默认值。
const (
	defaultAttemptInterval = 30 * time.Minute
	defaultMaxUsersPerRun  = 25
)

// AutoResumeStateRepo 抽象自动续抓状态的持久化操作，便于测试。
type AutoResumeStateRepo interface {
	UpsertActive(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.AutoResumeState, error)
	Get(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.AutoResumeState, error)
	Delete(ctx context.Context, sess txmanager.Session, userID uuid.UUID) error
	Pause(ctx context.Context, sess txmanager.Session, userID uuid.UUID, reason string, until time.Time) (*po.AutoResumeState, error)
	Resume(ctx context.Context, sess txmanager.Session, userID uuid.UUID, now time.Time) (bool, error)
	MarkAttempt(ctx context.Context, sess txmanager.Session, userID uuid.UUID, next time.Time) error
	ListActive(ctx context.Context, sess txmanager.Session, limit int) ([]*po.AutoResumeState, error)
	ListPausedDue(ctx context.Context, sess txmanager.Session, now time.Time, limit int) ([]*po.AutoResumeState, error)
}

// TokenProvider 抽象每用户 OAuth access token 的解析能力（token 刷新不在范围内）。
type TokenProvider interface {
	AccessToken(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (string, error)
}

// BatchRunner 抽象批处理器的单步执行能力。
type BatchRunner interface {
	ProcessBatch(ctx context.Context, userID uuid.UUID, client PageClient) (*vo.BatchReport, error)
}

// AutoResumeConfig 聚合调度参数；零值字段使用默认值。
type AutoResumeConfig struct {
	Cooldown        time.Duration // 配额触顶后的冷却时长
	AttemptInterval time.Duration // 两轮调度之间的预计间隔
	MaxUsersPerRun  int           // 单轮最多处理的用户数（尊重驱动方的执行时限）
}

// AutoResumeService 实现每用户的自动续抓状态机：disabled → active ⇄ paused。
// 用户间彼此隔离：单个用户的失败只计入当轮 errors，不影响其他用户。
type AutoResumeService struct {
	states   AutoResumeStateRepo
	tokens   TokenProvider
	clients  PageClientFactory
	batch    BatchRunner
	cooldown time.Duration
	interval time.Duration
	maxUsers int
	log      *log.Helper
	now      func() time.Time
}

// NewAutoResumeService 构造 AutoResumeService。
func NewAutoResumeService(states AutoResumeStateRepo, tokens TokenProvider, clients PageClientFactory, batch BatchRunner, cfg AutoResumeConfig, logger log.Logger) (*AutoResumeService, error) {
	switch {
	case states == nil:
		return nil, errors.New("auto-resume service: state repository is required")
	case tokens == nil:
		return nil, errors.New("auto-resume service: token provider is required")
	case clients == nil:
		return nil, errors.New("auto-resume service: page client factory is required")
	case batch == nil:
		return nil, errors.New("auto-resume service: batch runner is required")
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = quotaPauseCooldown
	}
	if cfg.AttemptInterval <= 0 {
		cfg.AttemptInterval = defaultAttemptInterval
	}
	if cfg.MaxUsersPerRun <= 0 {
		cfg.MaxUsersPerRun = defaultMaxUsersPerRun
	}
	return &AutoResumeService{
		states:   states,
		tokens:   tokens,
		clients:  clients,
		batch:    batch,
		cooldown: cfg.Cooldown,
		interval: cfg.AttemptInterval,
		maxUsers: cfg.MaxUsersPerRun,
		log:      log.NewHelper(logger),
		now:      time.Now,
	}, nil
}

// Enable 启用自动续抓（幂等）：建行或清除既有暂停并置为 active。
func (s *AutoResumeService) Enable(ctx context.Context, userID uuid.UUID) (*vo.AutoResumeView, error) {
	state, err := s.states.UpsertActive(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("enable auto-resume: %w", err)
	}
	return vo.NewAutoResumeView(state), nil
}

// Disable 关闭自动续抓（删除行，行不存在时为空操作）。
func (s *AutoResumeService) Disable(ctx context.Context, userID uuid.UUID) error {
	if err := s.states.Delete(ctx, nil, userID); err != nil {
		return fmt.Errorf("disable auto-resume: %w", err)
	}
	return nil
}

// Status 返回当前状态。读取时顺带执行到期恢复，过期的 paused 状态自愈。
func (s *AutoResumeService) Status(ctx context.Context, userID uuid.UUID) (*vo.AutoResumeView, error) {
	state, err := s.resumeIfReady(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrAutoResumeNotFound) {
			return vo.NewAutoResumeView(nil), nil
		}
		return nil, fmt.Errorf("read auto-resume status: %w", err)
	}
	return vo.NewAutoResumeView(state), nil
}

// PauseForQuota 因配额触顶进入冷却。
func (s *AutoResumeService) PauseForQuota(ctx context.Context, userID uuid.UUID) (*po.AutoResumeState, error) {
	until := s.now().Add(s.cooldown)
	state, err := s.states.Pause(ctx, nil, userID, po.PausedReasonQuotaExceeded, until)
	if err != nil {
		return nil, fmt.Errorf("pause auto-resume for quota: %w", err)
	}
	s.log.WithContext(ctx).Infof("auto-resume paused for quota: user_id=%s until=%s", userID, until.Format(time.RFC3339))
	return state, nil
}

// resumeIfReady 在冷却期已过时把 paused 翻回 active，否则原样返回当前状态。
func (s *AutoResumeService) resumeIfReady(ctx context.Context, userID uuid.UUID) (*po.AutoResumeState, error) {
	state, err := s.states.Get(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if !state.PauseElapsed(s.now()) {
		return state, nil
	}
	resumed, err := s.states.Resume(ctx, nil, userID, s.now())
	if err != nil {
		return nil, err
	}
	if !resumed {
		return state, nil
	}
	return s.states.Get(ctx, nil, userID)
}

// ProcessUser 为单个用户执行一步批处理，返回显式的结局变体。
// 所有失败都折叠为 error 结局，由调用方计入当轮汇总，绝不中断其他用户。
func (s *AutoResumeService) ProcessUser(ctx context.Context, userID uuid.UUID) vo.AutoResumeOutcome {
	token, err := s.tokens.AccessToken(ctx, nil, userID)
	if err != nil {
		msg := "resolve access token: " + err.Error()
		if errors.Is(err, repositories.ErrNoAccessToken) {
			msg = "missing oauth access token"
		}
		s.log.WithContext(ctx).Warnf("auto-resume skipped user: user_id=%s reason=%s", userID, msg)
		return vo.AutoResumeOutcome{Kind: vo.AutoResumeOutcomeError, UserID: userID, Message: msg}
	}

	client, err := s.clients(ctx, token)
	if err != nil {
		s.log.WithContext(ctx).Errorf("auto-resume client build failed: user_id=%s err=%v", userID, err)
		return vo.AutoResumeOutcome{Kind: vo.AutoResumeOutcomeError, UserID: userID, Message: "build youtube client: " + err.Error()}
	}

	report, err := s.batch.ProcessBatch(ctx, userID, client)
	if err != nil {
		s.log.WithContext(ctx).Errorf("auto-resume batch failed: user_id=%s err=%v", userID, err)
		return vo.AutoResumeOutcome{Kind: vo.AutoResumeOutcomeError, UserID: userID, Message: err.Error()}
	}

	switch {
	case report.ExportComplete:
		return vo.AutoResumeOutcome{Kind: vo.AutoResumeOutcomeComplete, UserID: userID}
	case report.ShouldStop:
		if _, err := s.PauseForQuota(ctx, userID); err != nil {
			return vo.AutoResumeOutcome{Kind: vo.AutoResumeOutcomeError, UserID: userID, Message: err.Error()}
		}
		return vo.AutoResumeOutcome{Kind: vo.AutoResumeOutcomePaused, UserID: userID}
	default:
		if err := s.states.MarkAttempt(ctx, nil, userID, s.now().Add(s.interval)); err != nil {
			s.log.WithContext(ctx).Warnf("mark auto-resume attempt failed: user_id=%s err=%v", userID, err)
		}
		return vo.AutoResumeOutcome{Kind: vo.AutoResumeOutcomeProgress, UserID: userID, VideosImported: report.VideosImported}
	}
}

// RunAll 执行一轮调度：先恢复冷却期已过的用户，再依次处理 active 用户，
// 单轮用户数受 MaxUsersPerRun 限制。跨轮的部分完成是预期行为——
// 每个用户的状态独立持久化，下一轮自然接续。
func (s *AutoResumeService) RunAll(ctx context.Context) (*vo.AutoResumeRunSummary, error) {
	start := s.now()
	summary := &vo.AutoResumeRunSummary{Errors: []string{}}

	due, err := s.states.ListPausedDue(ctx, nil, s.now(), s.maxUsers)
	if err != nil {
		return nil, fmt.Errorf("list due auto-resume users: %w", err)
	}
	for _, state := range due {
		resumed, err := s.states.Resume(ctx, nil, state.UserID, s.now())
		if err != nil {
			summary.Errors = append(summary.Errors, state.UserID.String()+": resume: "+err.Error())
			continue
		}
		if resumed {
			summary.Resumed++
		}
	}

	active, err := s.states.ListActive(ctx, nil, s.maxUsers)
	if err != nil {
		return nil, fmt.Errorf("list active auto-resume users: %w", err)
	}
	for _, state := range active {
		if ctx.Err() != nil {
			break
		}
		summary.RecordOutcome(s.ProcessUser(ctx, state.UserID))
	}

	summary.Duration = s.now().Sub(start).String()
	s.log.WithContext(ctx).Infof("auto-resume run: processed=%d paused=%d completed=%d resumed=%d errors=%d duration=%s",
		summary.Processed, summary.Paused, summary.Completed, summary.Resumed, len(summary.Errors), summary.Duration)
	return summary, nil
}
