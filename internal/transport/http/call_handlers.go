package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/cwrk-planet/voice-testbench/internal/activity"
	"github.com/cwrk-planet/voice-testbench/internal/app/control"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

// E.164: плюс, код страны без нуля, всего 7..15 цифр.
var e164 = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

const maxCallBody = 64 << 10

var (
	opCall       = controlOp{action: "initiate call"}
	opWebSession = controlOp{action: "start web session"}
)

type CallHandlers struct {
	Control  control.Client
	Activity *activity.Log
}

type callStatus struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	BackendURL string `json:"backendUrl"`
}

func (h *CallHandlers) backendURL() string {
	if h.Control == nil {
		return "(not configured)"
	}
	return h.Control.BaseURL()
}

// GET /api/make-call
func (h *CallHandlers) MakeCallHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, callStatus{Status: "ok", Service: "livekit-call-trigger", BackendURL: h.backendURL()})
}

// GET /api/start-web-session
func (h *CallHandlers) WebSessionHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, callStatus{Status: "ok", Service: "livekit-web-session", BackendURL: h.backendURL()})
}

// POST /api/make-call
func (h *CallHandlers) MakeCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in control.OutboundCallRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCallBody)).Decode(&in); err != nil {
		httputil.Error(ctx, w, http.StatusBadRequest, "invalid JSON", nil)
		return
	}
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.CallerNumber = strings.TrimSpace(in.CallerNumber)

	if in.PhoneNumber == "" {
		httputil.Error(ctx, w, http.StatusBadRequest, "Phone number is required", nil)
		return
	}
	if !e164.MatchString(in.PhoneNumber) {
		httputil.Error(ctx, w, http.StatusBadRequest, "Invalid phone number format", map[string]any{
			"hint": "Use E.164 format, e.g. +14155550123",
		})
		return
	}
	if in.CallerNumber != "" && !e164.MatchString(in.CallerNumber) {
		httputil.Error(ctx, w, http.StatusBadRequest, "Invalid caller number format", map[string]any{
			"hint": "Use E.164 format, e.g. +14155550123",
		})
		return
	}

	if h.Control == nil {
		backendNotConfigured(ctx, w)
		return
	}

	out, err := h.Control.PlaceOutboundCall(ctx, in)
	if err != nil {
		record(ctx, h.Activity, activity.ScopeOutbound, activity.Entry{
			Action:  activity.ActionCallInitiated,
			Status:  activity.StatusError,
			Details: "Call to " + in.PhoneNumber + " failed: " + err.Error(),
		})
		controlFail(ctx, w, opCall, h.Control.BaseURL(), err)
		return
	}

	resp, _ := json.Marshal(out)
	record(ctx, h.Activity, activity.ScopeOutbound, activity.Entry{
		Action:      activity.ActionCallInitiated,
		Status:      activity.StatusSuccess,
		Details:     "Calling " + in.PhoneNumber,
		RoomName:    out.RoomName,
		APIResponse: resp,
	})
	httputil.OK(w, out)
}

// POST /api/start-web-session
// Пустое или битое тело считаем {}: модели выберет backend.
func (h *CallHandlers) StartWebSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in control.ModelSelection
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCallBody)).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		in = control.ModelSelection{}
	}

	if h.Control == nil {
		backendNotConfigured(ctx, w)
		return
	}

	out, err := h.Control.StartWebSession(ctx, in)
	if err != nil {
		record(ctx, h.Activity, activity.ScopeWebSession, activity.Entry{
			Action:  activity.ActionSessionStarted,
			Status:  activity.StatusError,
			Details: "Web session failed: " + err.Error(),
		})
		controlFail(ctx, w, opWebSession, h.Control.BaseURL(), err)
		return
	}

	record(ctx, h.Activity, activity.ScopeWebSession, activity.Entry{
		Action:   activity.ActionSessionStarted,
		Status:   activity.StatusSuccess,
		Details:  "Room " + out.RoomName,
		RoomName: out.RoomName,
	})
	httputil.OK(w, out)
}
