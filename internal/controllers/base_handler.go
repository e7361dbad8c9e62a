// Package controllers 实现导出服务的 HTTP 接口层。
package controllers

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/google/uuid"
)

// 错误 reason 常量，序列化后进入响应体的 reason 字段。
const (
	reasonUserRequired = "USER_ID_REQUIRED"
	reasonUserInvalid  = "USER_ID_INVALID"
	reasonTokenMissing = "ACCESS_TOKEN_MISSING"
	reasonBadRequest   = "INVALID_ARGUMENT"
	reasonInternal     = "INTERNAL_ERROR"
	reasonCronAuth     = "CRON_AUTH_FAILED"
)

// headerUserID 携带调用方身份。网关层负责鉴权并注入该头，服务本身不验证签名。
const headerUserID = "x-ytpm-user-id"

// HandlerType 表示 Handler 的语义类别，用于选择超时策略。
type HandlerType int

const (
	// HandlerTypeDefault 表示未显式区分的 Handler。
	HandlerTypeDefault HandlerType = iota
	// HandlerTypeCommand 表示写路径 Handler（会调用外部 API）。
	HandlerTypeCommand
	// HandlerTypeQuery 表示只读查询 Handler。
	HandlerTypeQuery
)

// HandlerTimeouts 聚合不同类型 Handler 的超时策略。
type HandlerTimeouts struct {
	Default time.Duration
	Command time.Duration
	Query   time.Duration
}

const (
	fallbackDefaultTimeout = 10 * time.Second
	fallbackCommandTimeout = 60 * time.Second
	fallbackQueryTimeout   = 5 * time.Second
)

// DefaultHandlerTimeouts 返回默认超时策略。
// 写路径包含对 YouTube API 的同步调用，超时显著长于查询路径。
func DefaultHandlerTimeouts() HandlerTimeouts {
	return HandlerTimeouts{
		Default: fallbackDefaultTimeout,
		Command: fallbackCommandTimeout,
		Query:   fallbackQueryTimeout,
	}
}

// BaseHandler 提供公共的超时与身份解析能力，供具体 Handler 内嵌复用。
type BaseHandler struct {
	timeouts HandlerTimeouts
}

// NewBaseHandler 构造基础 Handler，并为缺省值填充回退策略。
func NewBaseHandler(timeouts HandlerTimeouts) *BaseHandler {
	if timeouts.Default <= 0 {
		timeouts.Default = fallbackDefaultTimeout
	}
	if timeouts.Command <= 0 {
		timeouts.Command = fallbackCommandTimeout
	}
	if timeouts.Query <= 0 {
		timeouts.Query = fallbackQueryTimeout
	}
	return &BaseHandler{timeouts: timeouts}
}

// WithTimeout 根据 Handler 类型包装上下文，返回绑定超时的新 Context 与取消函数。
func (h *BaseHandler) WithTimeout(ctx context.Context, kind HandlerType) (context.Context, context.CancelFunc) {
	if h == nil {
		return context.WithTimeout(ctx, fallbackDefaultTimeout)
	}
	var timeout time.Duration
	switch kind {
	case HandlerTypeCommand:
		timeout = h.timeouts.Command
	case HandlerTypeQuery:
		timeout = h.timeouts.Query
	default:
		timeout = h.timeouts.Default
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// UserID 从请求头解析调用方身份。
func (h *BaseHandler) UserID(req *stdhttp.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(req.Header.Get(headerUserID))
	if raw == "" {
		return uuid.Nil, kerrors.Unauthorized(reasonUserRequired, "user id header required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, kerrors.BadRequest(reasonUserInvalid, "invalid user id")
	}
	return id, nil
}
