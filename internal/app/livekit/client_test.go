package livekit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

const (
	testKey    = "devkey"
	testSecret = "devsecret"
)

type stubServer struct {
	mu      sync.Mutex
	deleted []string
	grants  map[string]VideoGrant
}

func (s *stubServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		var claims accessClaims
		_, err := jwt.ParseWithClaims(auth, &claims, func(tok *jwt.Token) (any, error) {
			return []byte(testSecret), nil
		})
		if err != nil || claims.Issuer != testKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"unauthenticated","msg":"invalid token"}`))
			return
		}

		method := strings.TrimPrefix(r.URL.Path, servicePath)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		s.mu.Lock()
		s.grants[method] = claims.Video
		s.mu.Unlock()

		switch method {
		case "ListRooms":
			_, _ = w.Write([]byte(`{"rooms":[
				{"sid":"RM_1","name":"call-1","max_participants":10,"creation_time":"1700000000","metadata":"{\"phone\":\"+15551234567\"}","num_participants":2},
				{"sid":"RM_2","name":"broken","creation_time":"0","metadata":"plain text","num_participants":0}
			]}`))
		case "ListParticipants":
			if body["room"] == "broken" {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"code":"internal","msg":"boom"}`))
				return
			}
			_, _ = w.Write([]byte(`{"participants":[
				{"sid":"PA_1","identity":"agent","name":"Agent","state":"ACTIVE","joined_at":"1700000005",
				 "tracks":[{"sid":"TR_1","type":"AUDIO","name":"mic","muted":false,"source":"MICROPHONE"}]},
				{"sid":"PA_2","identity":"sip","state":1,"joined_at":1700000006,"tracks":[{"sid":"TR_2","type":0,"source":2}]}
			]}`))
		case "DeleteRoom":
			s.mu.Lock()
			s.deleted = append(s.deleted, body["room"])
			s.mu.Unlock()
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestClient(t *testing.T) (Client, *stubServer) {
	t.Helper()
	stub := &stubServer{grants: map[string]VideoGrant{}}
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	c, err := New(Options{
		URL:       strings.Replace(srv.URL, "http://", "ws://", 1),
		APIKey:    testKey,
		APISecret: testSecret,
		Timeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, stub
}

func TestHTTPHost(t *testing.T) {
	cases := map[string]string{
		"ws://localhost:7880":    "http://localhost:7880",
		"wss://lk.example.com":   "https://lk.example.com",
		"https://lk.example.com": "https://lk.example.com",
	}
	for in, want := range cases {
		if got := HTTPHost(in); got != want {
			t.Fatalf("HTTPHost(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Options{URL: "ws://x"})
	if !errors.Is(err, errs.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestListRoomsDetailed(t *testing.T) {
	c, stub := newTestClient(t)

	out, err := c.ListRoomsDetailed(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if out.Count != 2 || len(out.Rooms) != 2 {
		t.Fatalf("unexpected count: %+v", out)
	}

	r := out.Rooms[0]
	if r.CreationTime == nil || *r.CreationTime != 1700000000000 {
		t.Fatalf("creation time in ms expected, got %v", r.CreationTime)
	}
	if string(r.Metadata) != `{"phone":"+15551234567"}` {
		t.Fatalf("metadata = %s", r.Metadata)
	}
	if len(r.Participants) != 2 {
		t.Fatalf("participants = %+v", r.Participants)
	}
	p := r.Participants[0]
	if p.State != 2 || p.JoinedAt == nil || *p.JoinedAt != 1700000005000 {
		t.Fatalf("participant = %+v", p)
	}
	if p.Tracks[0].Type != 0 || p.Tracks[0].Source != 2 {
		t.Fatalf("track = %+v", p.Tracks[0])
	}
	if string(p.Metadata) != "null" {
		t.Fatalf("empty metadata should be null, got %s", p.Metadata)
	}
	if q := r.Participants[1]; q.State != 1 || q.Tracks[0].Source != 2 {
		t.Fatalf("numeric enums not decoded: %+v", q)
	}

	broken := out.Rooms[1]
	if broken.Participants == nil || len(broken.Participants) != 0 {
		t.Fatalf("failed room should have empty participants, got %#v", broken.Participants)
	}
	if broken.CreationTime != nil {
		t.Fatalf("zero creation time should be null")
	}
	if string(broken.Metadata) != `"plain text"` {
		t.Fatalf("non-JSON metadata should be a string, got %s", broken.Metadata)
	}

	if g := stub.grants["ListRooms"]; !g.RoomList {
		t.Fatalf("ListRooms grant = %+v", g)
	}
}

func TestDeleteRoom(t *testing.T) {
	c, stub := newTestClient(t)

	if err := c.DeleteRoom(context.Background(), "call-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(stub.deleted) != 1 || stub.deleted[0] != "call-1" {
		t.Fatalf("deleted = %v", stub.deleted)
	}
	if g := stub.grants["DeleteRoom"]; !g.RoomCreate {
		t.Fatalf("DeleteRoom grant = %+v", g)
	}
}

func TestCall_TwirpError(t *testing.T) {
	stub := &stubServer{grants: map[string]VideoGrant{}}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	c, _ := New(Options{URL: srv.URL, APIKey: testKey, APISecret: "wrong"})
	_, err := c.ListRooms(context.Background())

	var ue *errs.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusUnauthorized || ue.Message != "invalid token" {
		t.Fatalf("unexpected upstream error: %+v", ue)
	}
}
