package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cwrk-planet/voice-testbench/internal/metrics"
	"github.com/cwrk-planet/voice-testbench/pkg/errs"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

// Client: HTTP-клиент Control API. Конфиги проксируются как есть.
type Client interface {
	BaseURL() string

	PlaceOutboundCall(ctx context.Context, in OutboundCallRequest) (OutboundCallResult, error)
	StartWebSession(ctx context.Context, in ModelSelection) (WebSessionResult, error)

	ListSIPConfigs(ctx context.Context) (json.RawMessage, error)
	SaveSIPConfig(ctx context.Context, body json.RawMessage) (json.RawMessage, error)
	ListAgentConfigs(ctx context.Context) (json.RawMessage, error)
	SaveAgentConfig(ctx context.Context, body json.RawMessage) (json.RawMessage, error)
	ListConfigs(ctx context.Context) (json.RawMessage, error)
	SaveConfig(ctx context.Context, body json.RawMessage) (json.RawMessage, error)
	ConfigByPhone(ctx context.Context, phone string) (json.RawMessage, error)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
}

type client struct {
	base    string
	timeout time.Duration
	http    *http.Client
	metrics *metrics.Metrics
}

func New(opts Options) (Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" || base == "true" {
		return nil, fmt.Errorf("control client: %w: empty base url", errs.ErrNotConfigured)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &client{
		base:    base,
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
		metrics: opts.Metrics,
	}, nil
}

func (c *client) BaseURL() string { return c.base }

func (c *client) PlaceOutboundCall(ctx context.Context, in OutboundCallRequest) (OutboundCallResult, error) {
	body := outboundCallBody{
		PhoneNumber:       in.PhoneNumber,
		CallerNumber:      in.CallerNumber,
		STT:               in.STT,
		LLM:               in.LLM,
		TTS:               in.TTS,
		AgentInstructions: in.AgentInstructions,
	}
	var res outboundCallResp
	if err := c.do(ctx, "calls_outbound", http.MethodPost, "/calls/outbound", body, &res); err != nil {
		return OutboundCallResult{}, err
	}

	return OutboundCallResult{
		Success:      true,
		RoomName:     res.RoomName,
		Message:      "Call initiated",
		ValueSources: res.ValueSources,
		DefaultsUsed: res.DefaultsUsed,
		Configuration: CallConfiguration{
			STT: res.STTModel,
			LLM: res.LLMModel,
			TTS: res.TTSVoice,
		},
	}, nil
}

func (c *client) StartWebSession(ctx context.Context, in ModelSelection) (WebSessionResult, error) {
	var res webSessionResp
	if err := c.do(ctx, "sessions_web", http.MethodPost, "/sessions/web", in, &res); err != nil {
		return WebSessionResult{}, err
	}

	return WebSessionResult{
		Token:        res.Token,
		RoomName:     res.RoomName,
		LiveKitURL:   res.LiveKitURL,
		Metadata:     res.Metadata,
		ValueSources: res.ValueSources,
		DefaultsUsed: res.DefaultsUsed,
	}, nil
}

func (c *client) ListSIPConfigs(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "sip_configs_list", http.MethodGet, "/sip-configs", nil)
}

func (c *client) SaveSIPConfig(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	return c.raw(ctx, "sip_configs_save", http.MethodPost, "/sip-configs", body)
}

func (c *client) ListAgentConfigs(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "agent_configs_list", http.MethodGet, "/agent-configs", nil)
}

func (c *client) SaveAgentConfig(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	return c.raw(ctx, "agent_configs_save", http.MethodPost, "/agent-configs", body)
}

func (c *client) ListConfigs(ctx context.Context) (json.RawMessage, error) {
	return c.raw(ctx, "configs_list", http.MethodGet, "/configs", nil)
}

func (c *client) SaveConfig(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	return c.raw(ctx, "configs_save", http.MethodPost, "/configs", body)
}

func (c *client) ConfigByPhone(ctx context.Context, phone string) (json.RawMessage, error) {
	return c.raw(ctx, "configs_by_phone", http.MethodGet, "/configs/phone/"+url.PathEscape(phone), nil)
}

func (c *client) raw(ctx context.Context, op, method, path string, body json.RawMessage) (json.RawMessage, error) {
	var in any
	if body != nil {
		in = body
	}
	var out json.RawMessage
	if err := c.do(ctx, op, method, path, in, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		out = json.RawMessage("null")
	}
	return out, nil
}

func (c *client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	started := time.Now()
	defer func() { c.metrics.ObserveUpstream("control", op, started, err) }()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rdr io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", op, err)
		}
		rdr = bytes.NewReader(b)
	}

	target := c.base + path
	req, err := http.NewRequestWithContext(reqCtx, method, target, rdr)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if rid, ok := httputil.FromContext(ctx); ok && rid != "" {
		req.Header.Set(httputil.HeaderRequestID, rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", errs.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errs.UpstreamError{Status: resp.StatusCode, Message: errorMessage(raw), URL: target}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response from %s: %v", errs.ErrUpstream, path, err)
	}
	return nil
}

// errorMessage достаёт detail || error; не-JSON тело отдаём текстом.
func errorMessage(raw []byte) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if len(eb.Detail) > 0 && string(eb.Detail) != "null" {
		var s string
		if json.Unmarshal(eb.Detail, &s) == nil {
			if s != "" {
				return s
			}
		} else {
			return string(eb.Detail)
		}
	}
	return eb.Error
}
