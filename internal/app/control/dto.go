package control

import "encoding/json"

// ModelSelection: выбор моделей и инструкций агента, общий для звонка и web-сессии.
type ModelSelection struct {
	STT               string `json:"stt,omitempty"`
	LLM               string `json:"llm,omitempty"`
	TTS               string `json:"tts,omitempty"`
	AgentInstructions string `json:"agent_instructions,omitempty"`
}

type OutboundCallRequest struct {
	PhoneNumber  string `json:"phoneNumber"`
	CallerNumber string `json:"callerNumber,omitempty"`
	ModelSelection
}

type OutboundCallResult struct {
	Success       bool              `json:"success"`
	RoomName      string            `json:"roomName"`
	Message       string            `json:"message"`
	ValueSources  json.RawMessage   `json:"value_sources,omitempty"`
	DefaultsUsed  json.RawMessage   `json:"defaults_used,omitempty"`
	Configuration CallConfiguration `json:"configuration"`
}

type CallConfiguration struct {
	STT string `json:"stt,omitempty"`
	LLM string `json:"llm,omitempty"`
	TTS string `json:"tts,omitempty"`
}

type WebSessionResult struct {
	Token        string          `json:"token"`
	RoomName     string          `json:"roomName"`
	LiveKitURL   string          `json:"livekitUrl"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	ValueSources json.RawMessage `json:"value_sources,omitempty"`
	DefaultsUsed json.RawMessage `json:"defaults_used,omitempty"`
}

// ---- тела Control API ----

type outboundCallBody struct {
	PhoneNumber       string `json:"phone_number"`
	CallerNumber      string `json:"caller_number,omitempty"`
	STT               string `json:"stt,omitempty"`
	LLM               string `json:"llm,omitempty"`
	TTS               string `json:"tts,omitempty"`
	AgentInstructions string `json:"agent_instructions,omitempty"`
}

type outboundCallResp struct {
	RoomName     string          `json:"room_name"`
	ValueSources json.RawMessage `json:"value_sources"`
	DefaultsUsed json.RawMessage `json:"defaults_used"`
	STTModel     string          `json:"stt_model"`
	LLMModel     string          `json:"llm_model"`
	TTSVoice     string          `json:"tts_voice"`
}

type webSessionResp struct {
	Token        string          `json:"token"`
	RoomName     string          `json:"room_name"`
	LiveKitURL   string          `json:"livekit_url"`
	Metadata     json.RawMessage `json:"metadata"`
	ValueSources json.RawMessage `json:"value_sources"`
	DefaultsUsed json.RawMessage `json:"defaults_used"`
}

// errorBody: detail (FastAPI) или error; detail бывает и не строкой.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}
