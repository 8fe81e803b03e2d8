package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

func TestNew_Singleton(t *testing.T) {
	if New() != New() {
		t.Fatal("New must return the same instance")
	}
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream("livekit", "ListRooms", time.Now(), nil)
	m.AddLogLines("cloudwatch", "agent", 3)
	m.ObserveHTTP("GET", "/api/rooms", 200)
	m.LiveClientConnected()
	m.LiveClientGone()
	m.ActivityAdded("dashboard", "success")
}

func TestObserveUpstream_Outcome(t *testing.T) {
	m := New()
	up := &errs.UpstreamError{Status: 422, Message: "bad", URL: "http://x"}
	m.ObserveUpstream("control", "test_outcome", time.Now(), fmt.Errorf("wrap: %w", up))
	m.ObserveUpstream("control", "test_outcome", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(m.upstreamCalls.WithLabelValues("control", "test_outcome", "status_422")); got != 1 {
		t.Fatalf("status_422 count = %v", got)
	}
	if got := testutil.ToFloat64(m.upstreamCalls.WithLabelValues("control", "test_outcome", "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
}

func TestAddLogLines_SkipsZero(t *testing.T) {
	m := New()
	m.AddLogLines("local", "test_zero", 0)
	m.AddLogLines("local", "test_zero", 4)
	if got := testutil.ToFloat64(m.logLines.WithLabelValues("local", "test_zero")); got != 4 {
		t.Fatalf("lines = %v", got)
	}
}
