package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cwrk-planet/voice-testbench/internal/activity"
	"github.com/cwrk-planet/voice-testbench/internal/app/livekit"
	tlogger "github.com/cwrk-planet/voice-testbench/internal/transport/logger"
	"github.com/cwrk-planet/voice-testbench/pkg/errs"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

type RoomHandlers struct {
	LiveKit  livekit.Client
	Activity *activity.Log
}

func livekitMessage(err error) string {
	var ue *errs.UpstreamError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return upstreamCause(err)
}

// GET /api/rooms
func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.LiveKit == nil {
		httputil.Error(ctx, w, http.StatusInternalServerError, "LiveKit credentials not configured", nil)
		return
	}

	out, err := h.LiveKit.ListRoomsDetailed(ctx)
	if err != nil {
		tlogger.L(ctx).Warn("list rooms failed", "err", err)
		httputil.Error(ctx, w, http.StatusInternalServerError, "Failed to list rooms: "+livekitMessage(err), nil)
		return
	}
	httputil.OK(w, out)
}

type deleteRoomResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DELETE /api/rooms?room=
func (h *RoomHandlers) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.LiveKit == nil {
		httputil.Error(ctx, w, http.StatusInternalServerError, "LiveKit credentials not configured", nil)
		return
	}

	room := strings.TrimSpace(r.URL.Query().Get("room"))
	if room == "" {
		httputil.Error(ctx, w, http.StatusBadRequest, "Room name is required", nil)
		return
	}

	if err := h.LiveKit.DeleteRoom(ctx, room); err != nil {
		tlogger.L(ctx).Warn("delete room failed", "room", room, "err", err)
		record(ctx, h.Activity, activity.ScopeLive, activity.Entry{
			Action:   activity.ActionRoomDeleted,
			Status:   activity.StatusError,
			Details:  livekitMessage(err),
			RoomName: room,
		})
		httputil.Error(ctx, w, http.StatusInternalServerError, "Failed to delete room: "+livekitMessage(err), nil)
		return
	}

	record(ctx, h.Activity, activity.ScopeLive, activity.Entry{
		Action:   activity.ActionRoomDeleted,
		Status:   activity.StatusSuccess,
		Details:  "Room " + room + " deleted",
		RoomName: room,
	})
	httputil.OK(w, deleteRoomResponse{Success: true, Message: "Room " + room + " deleted"})
}
