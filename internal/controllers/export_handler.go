package controllers

import (
	"context"
	"errors"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/ytpm/services-export/internal/repositories"
	"github.com/ytpm/services-export/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

// ExportHandler 实现导出流水线的 HTTP 接口。
// 写路径按用户 token 构造 YouTube 客户端后委托给用例层。
type ExportHandler struct {
	*BaseHandler
	svc     *services.ExportService
	tokens  services.TokenProvider
	clients services.PageClientFactory
	log     *log.Helper
}

// NewExportHandler 构造 ExportHandler。
func NewExportHandler(base *BaseHandler, svc *services.ExportService, tokens services.TokenProvider, clients services.PageClientFactory, logger log.Logger) *ExportHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &ExportHandler{
		BaseHandler: base,
		svc:         svc,
		tokens:      tokens,
		clients:     clients,
		log:         log.NewHelper(logger),
	}
}

// InitExport 处理 POST /api/export/init：登记用户的播放列表与订阅频道。
func (h *ExportHandler) InitExport(ctx khttp.Context) error {
	userID, err := h.UserID(ctx.Request())
	if err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()

	client, err := h.pageClient(timeoutCtx, userID)
	if err != nil {
		return err
	}

	result, err := h.svc.InitExport(timeoutCtx, userID, client)
	if err != nil {
		h.log.WithContext(timeoutCtx).Errorf("init export failed: user_id=%s err=%v", userID, err)
		return kerrors.InternalServer(reasonInternal, "init export failed").WithCause(err)
	}
	return ctx.Result(stdhttp.StatusOK, result)
}

// ProcessBatch 处理 POST /api/export/batch：推进一步批处理。
// 配额触顶（should_stop）与导出完成（export_complete）都是 200 响应，不是错误。
func (h *ExportHandler) ProcessBatch(ctx khttp.Context) error {
	userID, err := h.UserID(ctx.Request())
	if err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeCommand)
	defer cancel()

	client, err := h.pageClient(timeoutCtx, userID)
	if err != nil {
		return err
	}

	report, err := h.svc.ProcessBatch(timeoutCtx, userID, client)
	if err != nil {
		h.log.WithContext(timeoutCtx).Errorf("process batch failed: user_id=%s err=%v", userID, err)
		return kerrors.InternalServer(reasonInternal, "process batch failed").WithCause(err)
	}
	return ctx.Result(stdhttp.StatusOK, report)
}

// ExportStatus 处理 GET /api/export/status：汇总导出进度与配额消耗。
func (h *ExportHandler) ExportStatus(ctx khttp.Context) error {
	userID, err := h.UserID(ctx.Request())
	if err != nil {
		return err
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeQuery)
	defer cancel()

	status, err := h.svc.ExportStatus(timeoutCtx, userID)
	if err != nil {
		h.log.WithContext(timeoutCtx).Errorf("export status failed: user_id=%s err=%v", userID, err)
		return kerrors.InternalServer(reasonInternal, "read export status failed").WithCause(err)
	}
	return ctx.Result(stdhttp.StatusOK, status)
}

// ListVideos 处理 GET /api/export/videos：分页返回已导出视频。
// 支持 language / page / limit 查询参数。
func (h *ExportHandler) ListVideos(ctx khttp.Context) error {
	userID, err := h.UserID(ctx.Request())
	if err != nil {
		return err
	}

	query := services.ListVideosQuery{
		Language: strings.TrimSpace(ctx.Query().Get("language")),
	}
	if query.Page, err = parseIntParam(ctx.Query().Get("page")); err != nil {
		return kerrors.BadRequest(reasonBadRequest, "invalid page parameter")
	}
	if query.Limit, err = parseIntParam(ctx.Query().Get("limit")); err != nil {
		return kerrors.BadRequest(reasonBadRequest, "invalid limit parameter")
	}

	timeoutCtx, cancel := h.WithTimeout(ctx, HandlerTypeQuery)
	defer cancel()

	page, err := h.svc.ListExportedVideos(timeoutCtx, userID, query)
	if err != nil {
		h.log.WithContext(timeoutCtx).Errorf("list videos failed: user_id=%s err=%v", userID, err)
		return kerrors.InternalServer(reasonInternal, "list exported videos failed").WithCause(err)
	}
	return ctx.Result(stdhttp.StatusOK, page)
}

// pageClient 解析用户 token 并构造 YouTube 客户端。
func (h *ExportHandler) pageClient(ctx context.Context, userID uuid.UUID) (services.PageClient, error) {
	token, err := h.tokens.AccessToken(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoAccessToken) {
			return nil, kerrors.Unauthorized(reasonTokenMissing, "no google access token on file")
		}
		return nil, kerrors.InternalServer(reasonInternal, "resolve access token failed").WithCause(err)
	}
	client, err := h.clients(ctx, token)
	if err != nil {
		return nil, kerrors.InternalServer(reasonInternal, "build youtube client failed").WithCause(err)
	}
	return client, nil
}

// parseIntParam 解析可选的非负整数查询参数，空串返回 0（使用服务端默认值）。
func parseIntParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid integer parameter")
	}
	return v, nil
}
