package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

func TestOK_WrapsData(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]int{"count": 2})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body struct {
		Data map[string]int `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data["count"] != 2 {
		t.Fatalf("data mismatch: %v", body.Data)
	}
}

func TestError_WithMeta(t *testing.T) {
	w := httptest.NewRecorder()
	Error(context.Background(), w, http.StatusBadRequest, "Invalid service", map[string]any{"service": "bogus"})

	var body struct {
		Error struct {
			Message string         `json:"message"`
			Meta    map[string]any `json:"meta"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusBadRequest || body.Error.Message != "Invalid service" {
		t.Fatalf("unexpected response %d %+v", w.Code, body)
	}
	if body.Error.Meta["service"] != "bogus" {
		t.Fatalf("meta missing: %v", body.Error.Meta)
	}
}

func TestFail_MapsSentinel(t *testing.T) {
	w := httptest.NewRecorder()
	Fail(context.Background(), w, fmt.Errorf("%w: token", errs.ErrUnauthorized), "Unauthorized", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMiddlewareRequestID(t *testing.T) {
	var seen string
	h := MiddlewareRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if seen != "abc-123" || w.Header().Get(HeaderRequestID) != "abc-123" {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, w.Header().Get(HeaderRequestID))
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "abc-123" {
		t.Fatalf("expected generated request id, got %q", seen)
	}
}

func TestMiddlewareLogging_PassesThrough(t *testing.T) {
	h := MiddlewareLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(strings.Repeat("x", 3*maxLoggedBody)))
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/local-logs", nil))

	if w.Code != http.StatusTeapot {
		t.Fatalf("status not preserved: %d", w.Code)
	}
	if w.Body.Len() != 3*maxLoggedBody {
		t.Fatalf("body altered: %d bytes", w.Body.Len())
	}
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestMiddlewareLogging_RedactsSecrets(t *testing.T) {
	logs := captureLog(t)

	h := MiddlewareRequestID(MiddlewareLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in["phoneNumber"] != "+15551234567" {
			t.Errorf("handler got %v (%v)", in, err)
		}
		OK(w, map[string]any{"token": "tok-abc.def.ghi", "roomName": "web-1", "livekitUrl": "wss://lk"})
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/make-call",
		strings.NewReader(`{"phoneNumber":"+15551234567","caller_number":"+15557654321","stt":"deepgram","config":{"value":"sk-live"}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), "tok-abc.def.ghi") {
		t.Fatalf("client must still receive the token: %s", w.Body.String())
	}
	out := logs.String()
	for _, secret := range []string{"tok-abc.def.ghi", "+15551234567", "+15557654321", "sk-live"} {
		if strings.Contains(out, secret) {
			t.Fatalf("%q leaked into log: %s", secret, out)
		}
	}
	for _, kept := range []string{"web-1", "deepgram", redacted} {
		if !strings.Contains(out, kept) {
			t.Fatalf("expected %q in log: %s", kept, out)
		}
	}
}

func TestMiddlewareLogging_NonJSONNotLogged(t *testing.T) {
	logs := captureLog(t)

	h := MiddlewareLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`token=tok-raw`))
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/x", strings.NewReader(`phone=+15550000000`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if out := logs.String(); strings.Contains(out, "tok-raw") || strings.Contains(out, "+15550000000") {
		t.Fatalf("unparsed body leaked: %s", out)
	}
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestMiddlewareLogging_BoundedRequestRead(t *testing.T) {
	captureLog(t)
	const size = 1 << 20

	body := &countingReader{r: strings.NewReader(`{"a":"` + strings.Repeat("x", size) + `"}`)}
	h := MiddlewareLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body.n > maxLoggedBody+1 {
			t.Errorf("middleware consumed %d bytes before handler", body.n)
		}
		_, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<10))
		var mbe *http.MaxBytesError
		if !errors.As(err, &mbe) {
			t.Errorf("expected MaxBytesError, got %v", err)
		}
		if body.n > 64<<10+maxLoggedBody+1 {
			t.Errorf("limit not enforced: read %d bytes", body.n)
		}
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/configs", body)
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestMiddlewareLogging_HandlerSeesWholeBody(t *testing.T) {
	logs := captureLog(t)
	payload := `{"a":"` + strings.Repeat("y", 3*maxLoggedBody) + `"}`

	var got int
	h := MiddlewareLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = len(b)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/configs", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != len(payload) {
		t.Fatalf("handler read %d bytes, want %d", got, len(payload))
	}
	if strings.Contains(logs.String(), "yyyy") {
		t.Fatal("oversized body must not be logged")
	}
}
