package http

import (
	"net/http"
	"os"
	"time"

	"github.com/cwrk-planet/voice-testbench/internal/config"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

// envGroups: какие переменные показывать в отчёте /api/debug.
var envGroups = []struct {
	name string
	keys []string
}{
	{"livekit", []string{"LIVEKIT_URL", "LIVEKIT_API_KEY", "LIVEKIT_API_SECRET", "LIVEKIT_AGENT_NAME"}},
	{"backend", []string{"NEXT_PUBLIC_CONTROL_API_URL", "CONTROL_API_URL"}},
	{"cloudwatch", []string{
		"ENABLE_CLOUDWATCH_LOGS", "NEXT_PUBLIC_ENABLE_CLOUDWATCH_LOGS",
		"CLOUDWATCH_REGION", "CLOUDWATCH_LOG_GROUP", "CLOUDWATCH_STREAM_PREFIX", "CLOUDWATCH_LOGS_TOKEN",
	}},
	{"localLogs", []string{"ENABLE_LOCAL_LOGS", "NEXT_PUBLIC_ENABLE_LOCAL_LOGS"}},
}

// EnvStatus: есть ли переменная и какой длины. Само значение не отдаём.
type EnvStatus struct {
	Status string `json:"status"`
	Length int    `json:"length"`
}

type Features struct {
	LiveKitConfigured bool `json:"livekitConfigured"`
	BackendConfigured bool `json:"backendConfigured"`
	CloudWatchEnabled bool `json:"cloudwatchEnabled"`
	LocalLogsEnabled  bool `json:"localLogsEnabled"`

	// имя агента для explicit dispatch; пусто значит автоматический dispatch LiveKit
	AgentDispatch bool   `json:"agentDispatch"`
	AgentName     string `json:"agentName,omitempty"`
}

type DebugHandlers struct {
	Config    *config.Config
	LookupEnv func(string) (string, bool)
	Now       func() time.Time
}

func checkEnv(lookup func(string) (string, bool), key string) EnvStatus {
	v, ok := lookup(key)
	if !ok || v == "" {
		return EnvStatus{Status: "missing"}
	}
	return EnvStatus{Status: "set", Length: len(v)}
}

// Report собирает отчёт: присутствие переменных из env, признаки из итогового конфига.
func (h *DebugHandlers) Report() map[string]any {
	lookup := h.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	cfg := h.Config
	f := Features{
		LiveKitConfigured: cfg.LiveKit.Configured(),
		BackendConfigured: cfg.ControlAPI.Configured(),
		CloudWatchEnabled: cfg.CloudWatch.Enabled,
		LocalLogsEnabled:  cfg.LocalLogs.Enabled && !cfg.Production(),
		AgentDispatch:     cfg.LiveKit.AgentName != "",
		AgentName:         cfg.LiveKit.AgentName,
	}

	hints := []string{}
	if !f.LiveKitConfigured {
		hints = append(hints, "LiveKit not configured - web sessions and calls will fail")
	}
	if f.LiveKitConfigured && !f.AgentDispatch {
		hints = append(hints, "LIVEKIT_AGENT_NAME not set - rooms rely on automatic agent dispatch")
	}
	if !f.BackendConfigured {
		hints = append(hints, "Backend API URL not set - SIP configs and agent configs will fail")
	}
	if !f.CloudWatchEnabled && !f.LocalLogsEnabled {
		hints = append(hints, "No logging enabled - set ENABLE_CLOUDWATCH_LOGS=true or ENABLE_LOCAL_LOGS=true")
	}

	out := map[string]any{
		"timestamp":   now().UTC().Format(time.RFC3339Nano),
		"environment": cfg.Logging.Env,
		"features":    f,
		"hints":       hints,
	}
	for _, g := range envGroups {
		group := make(map[string]EnvStatus, len(g.keys))
		for _, k := range g.keys {
			group[k] = checkEnv(lookup, k)
		}
		out[g.name] = group
	}
	return out
}

// GET /api/debug
func (h *DebugHandlers) Debug(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.Report())
}
