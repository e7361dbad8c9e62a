package controllers

import (
	stdhttp "net/http"

	"github.com/ytpm/services-export/internal/models/vo"
	"github.com/ytpm/services-export/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// AutoResumeHandler 实现自动续抓开关与状态查询的 HTTP 接口。
type AutoResumeHandler struct {
	*BaseHandler
	svc *services.AutoResumeService
	log *log.Helper
}

// NewAutoResumeHandler 构造 AutoResumeHandler。
func NewAutoResumeHandler(base *BaseHandler, svc *services.AutoResumeService, logger log.Logger) *AutoResumeHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &AutoResumeHandler{
		BaseHandler: base,
		svc:         svc,
		log:         log.NewHelper(logger),
	}
}

// Enable 处理 POST /api/export/auto-resume：启用自动续抓（幂等）。
func (h *AutoResumeHandler) Enable(ctx khttp.Context) error {
	userID, err := h.UserID(ctx.Request())
	if err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeDefault)
	defer cancel()

	view, err := h.svc.Enable(timeoutCtx, userID)
	if err != nil {
		h.log.WithContext(timeoutCtx).Errorf("enable auto-resume failed: user_id=%s err=%v", userID, err)
		return kerrors.InternalServer(reasonInternal, "enable auto-resume failed").WithCause(err)
	}
	return ctx.Result(stdhttp.StatusOK, view)
}

// Disable 处理 DELETE /api/export/auto-resume：关闭自动续抓（幂等）。
func (h *AutoResumeHandler) Disable(ctx khttp.Context) error {
	userID, err := h.UserID(ctx.Request())
	if err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeDefault)
	defer cancel()

	if err := h.svc.Disable(timeoutCtx, userID); err != nil {
		h.log.WithContext(timeoutCtx).Errorf("disable auto-resume failed: user_id=%s err=%v", userID, err)
		return kerrors.InternalServer(reasonInternal, "disable auto-resume failed").WithCause(err)
	}
	return ctx.Result(stdhttp.StatusOK, &vo.AutoResumeView{Enabled: false})
}

// Status 处理 GET /api/export/auto-resume：返回当前状态。
func (h *AutoResumeHandler) Status(ctx khttp.Context) error {
	userID, err := h.UserID(ctx.Request())
	if err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeQuery)
	defer cancel()

	view, err := h.svc.Status(timeoutCtx, userID)
	if err != nil {
		h.log.WithContext(timeoutCtx).Errorf("auto-resume status failed: user_id=%s err=%v", userID, err)
		return kerrors.InternalServer(reasonInternal, "read auto-resume status failed").WithCause(err)
	}
	return ctx.Result(stdhttp.StatusOK, view)
}
