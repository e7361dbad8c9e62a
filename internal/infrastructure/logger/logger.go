// Package logger 构造带 trace 关联字段的结构化日志器。
package logger

import (
	"context"

	gclog "github.com/bionicotaku/lingo-utils/gclog"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"
)

// Config 描述日志标注所需的运行时元信息。
type Config struct {
	Service string
	Version string
	HostID  string
	Env     string
}

// NewLogger 构造 Kratos 兼容的结构化日志器，自动附带 trace_id / span_id。
func NewLogger(cfg Config) (log.Logger, error) {
	baseLogger, err := gclog.NewLogger(
		gclog.WithService(cfg.Service),
		gclog.WithVersion(cfg.Version),
		gclog.WithEnvironment(cfg.Env),
		gclog.WithStaticLabels(map[string]string{"service.id": cfg.HostID}),
		gclog.EnableSourceLocation(),
	)
	if err != nil {
		return nil, err
	}
	return log.With(
		baseLogger,
		"trace_id", traceValuer(func(sc trace.SpanContext) (string, bool) {
			return sc.TraceID().String(), sc.HasTraceID()
		}),
		"span_id", traceValuer(func(sc trace.SpanContext) (string, bool) {
			return sc.SpanID().String(), sc.HasSpanID()
		}),
	), nil
}

// traceValuer 从上下文提取 span 关联字段，缺失时输出空串。
func traceValuer(extract func(trace.SpanContext) (string, bool)) log.Valuer {
	return func(ctx context.Context) interface{} {
		if v, ok := extract(trace.SpanContextFromContext(ctx)); ok {
			return v
		}
		return ""
	}
}
