package livekit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwrk-planet/voice-testbench/internal/metrics"
	"github.com/cwrk-planet/voice-testbench/pkg/errs"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

// Client: админские операции LiveKit RoomService, нужные HTTP-слою.
type Client interface {
	ListRooms(ctx context.Context) ([]Room, error)
	ListParticipants(ctx context.Context, room string) ([]Participant, error)
	DeleteRoom(ctx context.Context, room string) error
	// ListRoomsDetailed: комнаты с участниками; ошибка по одной комнате
	// даёт пустой список участников, а не ошибку всего вызова.
	ListRoomsDetailed(ctx context.Context) (RoomsList, error)
}

type Options struct {
	URL         string // ws(s):// или http(s)://
	APIKey      string
	APISecret   string
	Timeout     time.Duration
	Concurrency int // сколько комнат обогащаем параллельно
	HTTPClient  *http.Client
	Metrics     *metrics.Metrics
}

type client struct {
	base        string
	apiKey      string
	apiSecret   string
	timeout     time.Duration
	concurrency int
	http        *http.Client
	metrics     *metrics.Metrics
	now         func() time.Time
}

const servicePath = "/twirp/livekit.RoomService/"

func New(opts Options) (Client, error) {
	if opts.URL == "" || opts.APIKey == "" || opts.APISecret == "" {
		return nil, fmt.Errorf("livekit client: %w: url, api key and secret are required", errs.ErrNotConfigured)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	return &client{
		base:        strings.TrimRight(HTTPHost(opts.URL), "/"),
		apiKey:      opts.APIKey,
		apiSecret:   opts.APISecret,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		http:        opts.HTTPClient,
		metrics:     opts.Metrics,
		now:         time.Now,
	}, nil
}

// HTTPHost переводит ws(s):// адрес сервера в http(s):// для admin API.
func HTTPHost(u string) string {
	switch {
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	default:
		return u
	}
}

func (c *client) ListRooms(ctx context.Context) ([]Room, error) {
	var res listRoomsResp
	if err := c.call(ctx, "ListRooms", VideoGrant{RoomList: true}, struct{}{}, &res); err != nil {
		return nil, err
	}

	out := make([]Room, 0, len(res.Rooms))
	for _, r := range res.Rooms {
		out = append(out, mapRoom(r))
	}
	return out, nil
}

func (c *client) ListParticipants(ctx context.Context, room string) ([]Participant, error) {
	var res listParticipantsResp
	req := map[string]string{"room": room}
	if err := c.call(ctx, "ListParticipants", VideoGrant{RoomAdmin: true, Room: room}, req, &res); err != nil {
		return nil, err
	}

	out := make([]Participant, 0, len(res.Participants))
	for _, p := range res.Participants {
		out = append(out, mapParticipant(p))
	}
	return out, nil
}

func (c *client) DeleteRoom(ctx context.Context, room string) error {
	req := map[string]string{"room": room}
	return c.call(ctx, "DeleteRoom", VideoGrant{RoomCreate: true}, req, nil)
}

func (c *client) ListRoomsDetailed(ctx context.Context) (RoomsList, error) {
	rooms, err := c.ListRooms(ctx)
	if err != nil {
		return RoomsList{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range rooms {
		g.Go(func() error {
			ps, err := c.ListParticipants(gctx, rooms[i].Name)
			if err != nil {
				// комната остаётся в списке без участников
				return nil
			}
			rooms[i].Participants = ps
			return nil
		})
	}
	_ = g.Wait()

	return RoomsList{Rooms: rooms, Count: len(rooms)}, nil
}

func (c *client) call(ctx context.Context, method string, grant VideoGrant, in, out any) (err error) {
	started := time.Now()
	defer func() { c.metrics.ObserveUpstream("livekit", method, started, err) }()

	rpcCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := SignAdminToken(c.apiKey, c.apiSecret, grant, c.now())
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}

	url := c.base + servicePath + method
	req, err := http.NewRequestWithContext(rpcCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
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
		return fmt.Errorf("%w: read %s response: %v", errs.ErrUpstream, method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var te twirpError
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &te) == nil && te.Msg != "" {
			msg = te.Msg
		}
		return &errs.UpstreamError{Status: resp.StatusCode, Message: msg, URL: url}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", errs.ErrUpstream, method, err)
	}
	return nil
}
