package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/voice-testbench/internal/activity"
	"github.com/cwrk-planet/voice-testbench/pkg/errs"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

const maxActivityBody = 256 << 10

type ActivityHandlers struct {
	Activity *activity.Log
}

type entryInput struct {
	Action      string          `json:"action"`
	Status      activity.Status `json:"status"`
	Details     string          `json:"details"`
	RoomName    string          `json:"roomName"`
	APIResponse json.RawMessage `json:"apiResponse"`
}

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

func (h *ActivityHandlers) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.Activity == nil {
		httputil.Error(r.Context(), w, http.StatusServiceUnavailable, "activity log unavailable", nil)
		return false
	}
	return true
}

func activityFail(w http.ResponseWriter, r *http.Request, err error) {
	msg := "activity request failed"
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		msg = err.Error()
	case errors.Is(err, errs.ErrNotFound):
		msg = "not found"
	}
	httputil.Fail(r.Context(), w, err, msg, nil)
}

// GET /api/activity?limit=
func (h *ActivityHandlers) Recent(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	out, err := h.Activity.Recent(r.Context(), queryLimit(r))
	if err != nil {
		activityFail(w, r, err)
		return
	}
	httputil.OK(w, out)
}

// GET /api/activity/{scope}?limit=
func (h *ActivityHandlers) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	out, err := h.Activity.List(r.Context(), chi.URLParam(r, "scope"), queryLimit(r))
	if err != nil {
		activityFail(w, r, err)
		return
	}
	httputil.OK(w, out)
}

// POST /api/activity/{scope}
func (h *ActivityHandlers) Add(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	var in entryInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActivityBody)).Decode(&in); err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid JSON", nil)
		return
	}

	e, err := h.Activity.Add(r.Context(), chi.URLParam(r, "scope"), activity.Entry{
		Action:      in.Action,
		Status:      in.Status,
		Details:     in.Details,
		RoomName:    in.RoomName,
		APIResponse: in.APIResponse,
	})
	if err != nil {
		activityFail(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, map[string]any{"data": e})
}

// PATCH /api/activity/entries/{id}
func (h *ActivityHandlers) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	var p activity.Patch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActivityBody)).Decode(&p); err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid JSON", nil)
		return
	}
	e, err := h.Activity.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		activityFail(w, r, err)
		return
	}
	httputil.OK(w, e)
}

// DELETE /api/activity/{scope}
func (h *ActivityHandlers) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	if err := h.Activity.Clear(r.Context(), chi.URLParam(r, "scope")); err != nil {
		activityFail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/preferences/{key}
func (h *ActivityHandlers) GetPreference(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	v, err := h.Activity.Preference(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		activityFail(w, r, err)
		return
	}
	httputil.OK(w, v)
}

// PUT /api/preferences/{key}
func (h *ActivityHandlers) PutPreference(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxActivityBody))
	if err != nil {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "request body too large", nil)
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.Activity.SetPreference(r.Context(), key, body); err != nil {
		activityFail(w, r, err)
		return
	}
	httputil.OK(w, json.RawMessage(body))
}
