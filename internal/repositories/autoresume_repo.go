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

// ErrAutoResumeNotFound 表示该用户未启用自动续抓（表中无行）。
var ErrAutoResumeNotFound = errors.New("auto-resume state not found")

// AutoResumeRepository 封装 auto_resume_states 表的访问逻辑。
type AutoResumeRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewAutoResumeRepository 构造 AutoResumeRepository。
func NewAutoResumeRepository(db *pgxpool.Pool, logger log.Logger) *AutoResumeRepository {
	return &AutoResumeRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

const selectAutoResumeColumns = `
user_id, status, paused_reason, paused_until, last_attempt, next_attempt, created_at, updated_at`

// UpsertActive 启用自动续抓：无行则建行，有行则清除暂停信息并置为 active。
func (r *AutoResumeRepository) UpsertActive(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.AutoResumeState, error) {
	q := querier(r.db, sess)
	row := q.QueryRow(ctx, `
INSERT INTO auto_resume_states (user_id, status)
VALUES ($1, 'active')
ON CONFLICT (user_id)
DO UPDATE SET status        = 'active',
              paused_reason = NULL,
              paused_until  = NULL,
              updated_at    = now()
RETURNING `+selectAutoResumeColumns, userID)

	state, err := scanAutoResumeState(row)
	if err != nil {
		return nil, fmt.Errorf("upsert auto-resume state: %w", err)
	}
	return state, nil
}

// Get 返回该用户的自动续抓状态；无行返回 ErrAutoResumeNotFound。
func (r *AutoResumeRepository) Get(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.AutoResumeState, error) {
	q := querier(r.db, sess)
	row := q.QueryRow(ctx, `
SELECT `+selectAutoResumeColumns+`
FROM auto_resume_states
WHERE user_id = $1`, userID)

	state, err := scanAutoResumeState(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAutoResumeNotFound
		}
		return nil, fmt.Errorf("get auto-resume state: %w", err)
	}
	return state, nil
}

// Delete 关闭自动续抓（删除行）；行不存在时为空操作。
func (r *AutoResumeRepository) Delete(ctx context.Context, sess txmanager.Session, userID uuid.UUID) error {
	q := querier(r.db, sess)
	if _, err := q.Exec(ctx, `DELETE FROM auto_resume_states WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete auto-resume state: %w", err)
	}
	return nil
}

// Pause 进入冷却：记录原因与截止时间，并盖章本次与下次尝试时间。
func (r *AutoResumeRepository) Pause(ctx context.Context, sess txmanager.Session, userID uuid.UUID, reason string, until time.Time) (*po.AutoResumeState, error) {
	q := querier(r.db, sess)
	row := q.QueryRow(ctx, `
UPDATE auto_resume_states
SET status        = 'paused',
    paused_reason = $2,
    paused_until  = $3,
    last_attempt  = now(),
    next_attempt  = $3,
    updated_at    = now()
WHERE user_id = $1
RETURNING `+selectAutoResumeColumns, userID, reason, until)

	state, err := scanAutoResumeState(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAutoResumeNotFound
		}
		return nil, fmt.Errorf("pause auto-resume state: %w", err)
	}
	return state, nil
}

// Resume 将冷却期已过的 paused 行翻回 active 并清除暂停字段。
// 仅当 paused_until 已到期才生效，未到期时返回影响行数 0。
func (r *AutoResumeRepository) Resume(ctx context.Context, sess txmanager.Session, userID uuid.UUID, now time.Time) (bool, error) {
	q := querier(r.db, sess)
	tag, err := q.Exec(ctx, `
UPDATE auto_resume_states
SET status        = 'active',
    paused_reason = NULL,
    paused_until  = NULL,
    updated_at    = now()
WHERE user_id = $1 AND status = 'paused' AND paused_until <= $2`, userID, now)
	if err != nil {
		return false, fmt.Errorf("resume auto-resume state: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkAttempt 盖章最近一次调度尝试时间，并记录预计下次时间。
func (r *AutoResumeRepository) MarkAttempt(ctx context.Context, sess txmanager.Session, userID uuid.UUID, next time.Time) error {
	q := querier(r.db, sess)
	_, err := q.Exec(ctx, `
UPDATE auto_resume_states
SET last_attempt = now(), next_attempt = $2, updated_at = now()
WHERE user_id = $1`, userID, next)
	if err != nil {
		return fmt.Errorf("mark auto-resume attempt: %w", err)
	}
	return nil
}

// ListActive 返回 active 用户，按最久未尝试优先，最多 limit 个。
func (r *AutoResumeRepository) ListActive(ctx context.Context, sess txmanager.Session, limit int) ([]*po.AutoResumeState, error) {
	q := querier(r.db, sess)
	rows, err := q.Query(ctx, `
SELECT `+selectAutoResumeColumns+`
FROM auto_resume_states
WHERE status = 'active'
ORDER BY last_attempt ASC NULLS FIRST
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list active auto-resume states: %w", err)
	}
	defer rows.Close()
	return collectAutoResumeStates(rows)
}

// ListPausedDue 返回冷却期已过、待恢复的 paused 用户。
func (r *AutoResumeRepository) ListPausedDue(ctx context.Context, sess txmanager.Session, now time.Time, limit int) ([]*po.AutoResumeState, error) {
	q := querier(r.db, sess)
	rows, err := q.Query(ctx, `
SELECT `+selectAutoResumeColumns+`
FROM auto_resume_states
WHERE status = 'paused' AND paused_until <= $1
ORDER BY paused_until ASC
LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due auto-resume states: %w", err)
	}
	defer rows.Close()
	return collectAutoResumeStates(rows)
}

func collectAutoResumeStates(rows pgx.Rows) ([]*po.AutoResumeState, error) {
	var states []*po.AutoResumeState
	for rows.Next() {
		state, err := scanAutoResumeState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auto-resume state: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auto-resume states: %w", err)
	}
	return states, nil
}

func scanAutoResumeState(row pgx.Row) (*po.AutoResumeState, error) {
	var (
		s           po.AutoResumeState
		reason      pgtype.Text
		pausedUntil pgtype.Timestamptz
		lastAttempt pgtype.Timestamptz
		nextAttempt pgtype.Timestamptz
	)
	err := row.Scan(&s.UserID, &s.Status, &reason, &pausedUntil, &lastAttempt, &nextAttempt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.PausedReason = fromPgText(reason)
	s.PausedUntil = fromPgTimestamptz(pausedUntil)
	s.LastAttempt = fromPgTimestamptz(lastAttempt)
	s.NextAttempt = fromPgTimestamptz(nextAttempt)
	return &s, nil
}
