package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/voice-testbench/internal/app/control"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

const maxConfigBody = 1 << 20

var (
	opSIPList    = controlOp{action: "fetch SIP configs", prefixed: true}
	opSIPSave    = controlOp{action: "save SIP config", prefixed: true}
	opAgentList  = controlOp{action: "fetch agent configs", prefixed: true}
	opAgentSave  = controlOp{action: "save agent config", prefixed: true}
	opConfigList = controlOp{action: "fetch configs", prefixed: true}
	opConfigSave = controlOp{action: "save config", prefixed: true}
	opConfigByNo = controlOp{action: "fetch config", prefixed: true}
)

// ConfigHandlers пробрасывают записи конфигурации в Control API как есть.
type ConfigHandlers struct {
	Control control.Client
}

type rawList func(ctx context.Context) (json.RawMessage, error)
type rawSave func(ctx context.Context, body json.RawMessage) (json.RawMessage, error)

func (h *ConfigHandlers) list(w http.ResponseWriter, r *http.Request, op controlOp, fn func(control.Client) rawList) {
	ctx := r.Context()
	if h.Control == nil {
		backendNotConfigured(ctx, w)
		return
	}
	out, err := fn(h.Control)(ctx)
	if err != nil {
		controlFail(ctx, w, op, h.Control.BaseURL(), err)
		return
	}
	httputil.OK(w, out)
}

func (h *ConfigHandlers) save(w http.ResponseWriter, r *http.Request, op controlOp, fn func(control.Client) rawSave) {
	ctx := r.Context()
	if h.Control == nil {
		backendNotConfigured(ctx, w)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConfigBody))
	if err != nil {
		httputil.Error(ctx, w, http.StatusBadRequest, "request body too large", nil)
		return
	}
	if !json.Valid(body) {
		httputil.Error(ctx, w, http.StatusBadRequest, "invalid JSON", nil)
		return
	}

	out, err := fn(h.Control)(ctx, body)
	if err != nil {
		controlFail(ctx, w, op, h.Control.BaseURL(), err)
		return
	}
	httputil.OK(w, out)
}

// GET /api/sip-configs
func (h *ConfigHandlers) ListSIPConfigs(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, opSIPList, func(c control.Client) rawList { return c.ListSIPConfigs })
}

// POST /api/sip-configs
func (h *ConfigHandlers) SaveSIPConfig(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, opSIPSave, func(c control.Client) rawSave { return c.SaveSIPConfig })
}

// GET /api/agent-configs
func (h *ConfigHandlers) ListAgentConfigs(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, opAgentList, func(c control.Client) rawList { return c.ListAgentConfigs })
}

// POST /api/agent-configs
func (h *ConfigHandlers) SaveAgentConfig(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, opAgentSave, func(c control.Client) rawSave { return c.SaveAgentConfig })
}

// GET /api/configs
func (h *ConfigHandlers) ListConfigs(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, opConfigList, func(c control.Client) rawList { return c.ListConfigs })
}

// POST /api/configs
func (h *ConfigHandlers) SaveConfig(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, opConfigSave, func(c control.Client) rawSave { return c.SaveConfig })
}

// GET /api/configs/phone/{phone}
func (h *ConfigHandlers) ConfigByPhone(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if un, err := url.PathUnescape(phone); err == nil {
		phone = un
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "Phone number is required", nil)
		return
	}
	h.list(w, r, opConfigByNo, func(c control.Client) rawList {
		return func(ctx context.Context) (json.RawMessage, error) { return c.ConfigByPhone(ctx, phone) }
	})
}
