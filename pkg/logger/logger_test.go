package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/cwrk-planet/voice-testbench/pkg/logger"

	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestDetectEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if got := logger.DetectEnv(); got != logger.EnvDev {
		t.Fatalf("default should be dev, got %q", got)
	}

	t.Setenv("APP_ENV", "staging")
	if got := logger.DetectEnv(); got != logger.EnvStage {
		t.Fatalf("expected stage, got %q", got)
	}

	t.Setenv("APP_ENV", "production")
	if got := logger.DetectEnv(); got != logger.EnvProd {
		t.Fatalf("expected prod, got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := logger.ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_DevStd_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service: "testbench",
		Version: "v0.0.1",
		Env:     logger.EnvDev,
		Backend: logger.BackendStd,
		Level:   slog.LevelDebug,
		Output:  &buf,
	})
	slog.Info("Hello world")

	out := buf.String()
	if strings.Contains(out, "{") && strings.Contains(out, "}") {
		t.Fatalf("expected text output in dev/std, got JSON: %s", out)
	}
	if !strings.Contains(out, "Hello world") {
		t.Fatalf("message missing: %s", out)
	}
	if !strings.Contains(out, "service=testbench") || !strings.Contains(out, "env=dev") {
		t.Fatalf("common attrs missing: %s", out)
	}
}

func TestInit_ProdZap_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(logger.Config{
		Service:          "testbench",
		Version:          "1.2.3",
		Env:              logger.EnvProd,
		Backend:          logger.BackendZap,
		Level:            slog.LevelInfo,
		Output:           &buf,
		SampleInitial:    100000,
		SampleThereafter: 100000,
	})
	slog.Info("booted", slog.String("k", "v"))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected JSON line, got %s, err=%v", buf.String(), err)
	}
	if m["msg"] != "booted" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
	if m["service"] != "testbench" || m["env"] != "prod" || m["version"] != "1.2.3" {
		t.Fatalf("attrs missing: %v", m)
	}
	if m["level"] != "INFO" || m["k"] != "v" {
		t.Fatalf("level/field mismatch: %v", m)
	}
}

func TestTraceAttrs(t *testing.T) {
	if attrs := logger.TraceAttrs(context.Background()); attrs != nil {
		t.Fatalf("expected no attrs without span, got %v", attrs)
	}

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	attrs := logger.TraceAttrs(ctx)
	if len(attrs) != 2 {
		t.Fatalf("unexpected attrs: %v", attrs)
	}
	a, ok := attrs[0].(slog.Attr)
	if !ok || a.Key != "trace_id" || a.Value.String() != span.SpanContext().TraceID().String() {
		t.Fatalf("trace_id attr = %v", attrs[0])
	}
}

func TestExtractTrace(t *testing.T) {
	carrier := propagation.MapCarrier{
		"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	ctx := logger.ExtractTrace(context.Background(), carrier)

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil)).With(logger.TraceAttrs(ctx)...)
	l.Info("call placed")

	out := buf.String()
	if !strings.Contains(out, "trace_id=4bf92f3577b34da6a3ce929d0e0e4736") || !strings.Contains(out, "span_id=00f067aa0ba902b7") {
		t.Fatalf("trace attrs missing: %s", out)
	}

	// мусор в заголовке игнорируется
	bad := logger.ExtractTrace(context.Background(), propagation.MapCarrier{"traceparent": "garbage"})
	if attrs := logger.TraceAttrs(bad); attrs != nil {
		t.Fatalf("expected no attrs for bad header, got %v", attrs)
	}
}
