package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cwrk-planet/voice-testbench/internal/activity"
	tlogger "github.com/cwrk-planet/voice-testbench/internal/transport/logger"
	"github.com/cwrk-planet/voice-testbench/pkg/errs"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

const (
	msgBackendNotConfigured  = "Backend API URL not configured"
	hintBackendNotConfigured = "Set NEXT_PUBLIC_CONTROL_API_URL to your backend URL"
)

func backendNotConfigured(ctx context.Context, w http.ResponseWriter) {
	httputil.Error(ctx, w, http.StatusInternalServerError, msgBackendNotConfigured, map[string]any{
		"hint": hintBackendNotConfigured,
	})
}

// controlOp описывает операцию Control API для текстов ошибок.
type controlOp struct {
	action string // "initiate call"
	// prefixed: сообщение upstream идёт после "Failed to <action>: "
	prefixed bool
}

func (op controlOp) failed() string { return "Failed to " + op.action }

// message: то, что увидит пользователь для ответа upstream с не-2xx.
func (op controlOp) message(upstream string) string {
	switch {
	case upstream == "":
		return op.failed()
	case op.prefixed:
		return op.failed() + ": " + upstream
	default:
		return upstream
	}
}

// controlFail раскладывает ошибку Control API в ответ.
func controlFail(ctx context.Context, w http.ResponseWriter, op controlOp, baseURL string, err error) {
	tlogger.L(ctx).Warn("control api call failed", "op", op.action, "err", err)

	var ue *errs.UpstreamError
	if errors.As(err, &ue) {
		httputil.Error(ctx, w, errs.ToHTTP(err), op.message(ue.Message), map[string]any{
			"backendUrl": ue.URL,
		})
		return
	}
	if errors.Is(err, errs.ErrNotConfigured) {
		backendNotConfigured(ctx, w)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	httputil.Error(ctx, w, errs.ToHTTP(err), op.failed()+": "+upstreamCause(err), map[string]any{
		"hint": "Check if backend is running at " + baseURL,
	})
}

// upstreamCause убирает служебный префикс sentinel-ошибки.
func upstreamCause(err error) string {
	return strings.TrimPrefix(err.Error(), errs.ErrUpstream.Error()+": ")
}

// record пишет запись в журнал действий; сбой журнала ответ не ломает.
func record(ctx context.Context, log *activity.Log, scope string, e activity.Entry) {
	if log == nil {
		return
	}
	if _, err := log.Add(ctx, scope, e); err != nil {
		tlogger.L(ctx).Warn("record activity failed", "scope", scope, "action", e.Action, "err", err)
	}
}
