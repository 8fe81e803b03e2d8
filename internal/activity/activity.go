package activity

import (
	"context"
	"encoding/json"
	"time"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusPending Status = "pending"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusError, StatusPending:
		return true
	}
	return false
}

// Действия, которые пишут страницы дашборда.
const (
	ActionCallInitiated  = "call_initiated"
	ActionCallEnded      = "call_ended"
	ActionSessionStarted = "session_started"
	ActionSessionEnded   = "session_ended"
	ActionConfigLoaded   = "config_loaded"
	ActionConfigSaved    = "config_saved"
	ActionRoomDeleted    = "room_deleted"
	ActionSyncComplete   = "sync_complete"
	ActionError          = "error"
)

var knownActions = map[string]struct{}{
	ActionCallInitiated: {}, ActionCallEnded: {}, ActionSessionStarted: {}, ActionSessionEnded: {},
	ActionConfigLoaded: {}, ActionConfigSaved: {}, ActionRoomDeleted: {}, ActionSyncComplete: {},
	ActionError: {},
}

// Области (страницы), у каждой свой журнал.
const (
	ScopeDashboard  = "dashboard"
	ScopeWebSession = "web-session"
	ScopeOutbound   = "outbound"
	ScopeLive       = "live"
	ScopeNumbers    = "numbers"
	ScopeAgents     = "agents"
	ScopeConfigs    = "configs"
)

var knownScopes = map[string]struct{}{
	ScopeDashboard: {}, ScopeWebSession: {}, ScopeOutbound: {}, ScopeLive: {}, ScopeNumbers: {},
	ScopeAgents: {}, ScopeConfigs: {},
}

type Entry struct {
	ID          string          `json:"id"`
	Scope       string          `json:"scope"`
	Timestamp   time.Time       `json:"timestamp"`
	Action      string          `json:"action"`
	Status      Status          `json:"status"`
	Details     string          `json:"details,omitempty"`
	RoomName    string          `json:"roomName,omitempty"`
	APIResponse json.RawMessage `json:"apiResponse,omitempty"`
}

// Patch: частичное обновление; nil-поля не трогаем.
type Patch struct {
	Action      *string         `json:"action,omitempty"`
	Status      *Status         `json:"status,omitempty"`
	Details     *string         `json:"details,omitempty"`
	RoomName    *string         `json:"roomName,omitempty"`
	APIResponse json.RawMessage `json:"apiResponse,omitempty"`
}

func (p Patch) apply(e *Entry) {
	if p.Action != nil {
		e.Action = *p.Action
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Details != nil {
		e.Details = *p.Details
	}
	if p.RoomName != nil {
		e.RoomName = *p.RoomName
	}
	if len(p.APIResponse) > 0 {
		e.APIResponse = p.APIResponse
	}
}

// Store: хранилище журнала и пользовательских настроек.
// Insert сам вытесняет старые записи сверх keep в пределах scope.
// Списки отдаются от новых к старым.
type Store interface {
	Insert(ctx context.Context, e Entry, keep int) error
	Update(ctx context.Context, id string, p Patch) (Entry, error)
	List(ctx context.Context, scope string, limit int) ([]Entry, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Clear(ctx context.Context, scope string) error

	GetPreference(ctx context.Context, key string) (json.RawMessage, error)
	PutPreference(ctx context.Context, key string, value json.RawMessage) error

	Close() error
}
