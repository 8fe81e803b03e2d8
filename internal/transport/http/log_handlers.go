package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"

	"github.com/cwrk-planet/voice-testbench/internal/app/logs"
	"github.com/cwrk-planet/voice-testbench/internal/config"
	tlogger "github.com/cwrk-planet/voice-testbench/internal/transport/logger"
	"github.com/cwrk-planet/voice-testbench/pkg/errs"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

type LogHandlers struct {
	CloudWatch CloudWatchSource
	Local      LocalSource
	Config     *config.Config
	LookupEnv  func(string) (string, bool)
}

func (h *LogHandlers) lookup() func(string) (string, bool) {
	if h.LookupEnv != nil {
		return h.LookupEnv
	}
	return os.LookupEnv
}

// authorized: точное сравнение с "Bearer <token>".
func authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	want := []byte("Bearer " + token)
	got := []byte(r.Header.Get("Authorization"))
	return subtle.ConstantTimeCompare(want, got) == 1
}

func debugRequested(r *http.Request) bool {
	switch r.URL.Query().Get("debug") {
	case "1", "true":
		return true
	}
	return false
}

func (h *LogHandlers) CloudWatchLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cw := h.Config.CloudWatch

	if !cw.Enabled {
		httputil.Error(ctx, w, http.StatusNotFound, "Not available", nil)
		return
	}
	if !authorized(r, cw.Token) {
		httputil.Error(ctx, w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	v := r.URL.Query()
	q, err := logs.ParseQuery(v, logs.CloudWatchServices)
	if err != nil {
		httputil.Error(ctx, w, http.StatusBadRequest, "Invalid service", map[string]any{
			"allowed": logs.CloudWatchServices,
		})
		return
	}
	t := logs.ResolveTarget(v, cw.Region, cw.LogGroup, cw.StreamPrefix)
	if err := t.Validate(); err != nil {
		httputil.Error(ctx, w, http.StatusBadRequest, "Invalid region", map[string]any{
			"region": t.Region.Value,
		})
		return
	}

	if debugRequested(r) {
		httputil.OK(w, logs.Diagnose(q, t, h.lookup()))
		return
	}

	if missing := t.Missing(); len(missing) > 0 {
		httputil.Error(ctx, w, http.StatusInternalServerError, "CloudWatch logging is not configured.", map[string]any{
			"missing": missing,
		})
		return
	}
	if h.CloudWatch == nil {
		httputil.Error(ctx, w, http.StatusInternalServerError, "CloudWatch logging is not configured.", nil)
		return
	}

	res, err := h.CloudWatch.Fetch(ctx, q, t)
	if err != nil {
		h.fail(w, r, "cloudwatch", err)
		return
	}
	httputil.OK(w, res)
}

func (h *LogHandlers) LocalLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.Config.LocalLogs.Enabled || h.Config.Production() || h.Local == nil {
		httputil.Error(ctx, w, http.StatusNotFound, "Not available", nil)
		return
	}

	q, err := logs.ParseQuery(r.URL.Query(), logs.LocalServices)
	if err != nil {
		httputil.Error(ctx, w, http.StatusBadRequest, "Invalid service", map[string]any{
			"allowed": logs.LocalServices,
		})
		return
	}

	res, err := h.Local.Fetch(ctx, q)
	if err != nil {
		h.fail(w, r, "local", err)
		return
	}
	httputil.OK(w, res)
}

func (h *LogHandlers) fail(w http.ResponseWriter, r *http.Request, source string, err error) {
	ctx := r.Context()
	tlogger.L(ctx).Warn("fetch logs failed", "source", source, "err", err)

	var fe *logs.FetchError
	if errors.As(err, &fe) {
		httputil.Error(ctx, w, http.StatusInternalServerError, "Failed to fetch logs: "+fe.Msg, nil)
		return
	}
	if errors.Is(err, errs.ErrNotConfigured) {
		httputil.Error(ctx, w, http.StatusInternalServerError, "CloudWatch logging is not configured.", nil)
		return
	}
	httputil.Error(ctx, w, http.StatusInternalServerError, "Failed to fetch logs: "+err.Error(), nil)
}
