package controllers

import (
	"context"
	"crypto/subtle"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/ytpm/services-export/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// cronRunTimeout 限制单次调度的总时长，需覆盖多用户的逐个批处理。
const cronRunTimeout = 5 * time.Minute

// CronAuth 携带定时任务入口的共享密钥。Secret 为空时入口关闭。
type CronAuth struct {
	Secret string
}

// CronHandler 实现定时任务入口：由外部调度方（Cloud Scheduler 等）周期性调用。
type CronHandler struct {
	svc  *services.AutoResumeService
	auth CronAuth
	log  *log.Helper
}

// NewCronHandler 构造 CronHandler。
func NewCronHandler(svc *services.AutoResumeService, auth CronAuth, logger log.Logger) *CronHandler {
	return &CronHandler{
		svc:  svc,
		auth: auth,
		log:  log.NewHelper(logger),
	}
}

// RunAutoResume 处理 POST /api/cron/auto-resume：执行一轮自动续抓调度。
func (h *CronHandler) RunAutoResume(ctx khttp.Context) error {
	if !h.authorized(ctx.Request()) {
		return kerrors.Unauthorized(reasonCronAuth, "invalid cron credentials")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, cronRunTimeout)
	defer cancel()

	summary, err := h.svc.RunAll(timeoutCtx)
	if err != nil {
		h.log.WithContext(timeoutCtx).Errorf("auto-resume run failed: err=%v", err)
		return kerrors.InternalServer(reasonInternal, "auto-resume run failed").WithCause(err)
	}
	return ctx.Result(stdhttp.StatusOK, summary)
}

// authorized 校验 Authorization: Bearer <secret>，恒定时间比较。
func (h *CronHandler) authorized(req *stdhttp.Request) bool {
	if h.auth.Secret == "" {
		return false
	}
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.auth.Secret)) == 1
}
