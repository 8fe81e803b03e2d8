package logs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

type fakeFilter struct {
	got    *cloudwatchlogs.FilterLogEventsInput
	events []types.FilteredLogEvent
	err    error
}

func (f *fakeFilter) FilterLogEvents(_ context.Context, in *cloudwatchlogs.FilterLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatchlogs.FilterLogEventsOutput{Events: f.events}, nil
}

func newFakeCloudWatch(f *fakeFilter, regions *[]string) *CloudWatch {
	return NewCloudWatch(func(_ context.Context, region string) (FilterAPI, error) {
		if regions != nil {
			*regions = append(*regions, region)
		}
		return f, nil
	}, nil)
}

func TestCloudWatchFetch_SortsAndBuildsInput(t *testing.T) {
	f := &fakeFilter{events: []types.FilteredLogEvent{
		{Timestamp: aws.Int64(1700000002000), Message: aws.String("later")},
		{Timestamp: aws.Int64(1700000001000), Message: aws.String("earlier")},
	}}
	var regions []string
	cw := newFakeCloudWatch(f, &regions)

	q := Query{Service: "agent", Tail: 50, Since: ParseSince("1700000000"), Filter: `say "hi"`}
	tg := ResolveTarget(url.Values{}, "us-east-1", "/ecs/voice", "prod")

	res, err := cw.Fetch(context.Background(), q, tg)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.HasSuffix(res.Logs, "later") || !strings.Contains(res.Logs, "earlier\n") {
		t.Fatalf("logs not sorted ascending: %q", res.Logs)
	}
	if res.Service != "agent" || res.Tail != 50 {
		t.Fatalf("result = %+v", res)
	}

	in := f.got
	if aws.ToString(in.LogGroupName) != "/ecs/voice" ||
		aws.ToString(in.LogStreamNamePrefix) != "prod/agent" ||
		aws.ToInt64(in.StartTime) != 1700000000000 ||
		aws.ToInt32(in.Limit) != 50 ||
		!aws.ToBool(in.Interleaved) ||
		aws.ToString(in.FilterPattern) != `"say hi"` {
		t.Fatalf("unexpected input %+v", in)
	}

	// клиент региона кэшируется
	_, _ = cw.Fetch(context.Background(), q, tg)
	if len(regions) != 1 {
		t.Fatalf("client created %d times", len(regions))
	}
}

func TestCloudWatchInput_AllServiceNoPrefix(t *testing.T) {
	in := Input(Query{Service: "all", Tail: 5}, ResolveTarget(url.Values{}, "r", "g", ""))
	if in.LogStreamNamePrefix != nil || in.StartTime != nil || in.FilterPattern != nil {
		t.Fatalf("optional fields must be unset: %+v", in)
	}
}

func TestCloudWatchFetch_Errors(t *testing.T) {
	cw := newFakeCloudWatch(&fakeFilter{err: errors.New("AccessDenied")}, nil)
	q := Query{Service: "livekit", Tail: 10}

	_, err := cw.Fetch(context.Background(), q, ResolveTarget(url.Values{}, "", "", ""))
	if !errors.Is(err, errs.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}

	_, err = cw.Fetch(context.Background(), q, ResolveTarget(url.Values{}, "r", "g", ""))
	if !errors.Is(err, errs.ErrSourceFailed) || !strings.Contains(err.Error(), "AccessDenied") {
		t.Fatalf("expected source failure with message, got %v", err)
	}
}

func TestCloudWatchFetch_RejectsRequestRegion(t *testing.T) {
	var regions []string
	cw := newFakeCloudWatch(&fakeFilter{}, &regions)

	tg := ResolveTarget(url.Values{"region": {"not a region"}}, "us-east-1", "g", "")
	_, err := cw.Fetch(context.Background(), Query{Service: "agent", Tail: 1}, tg)
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(regions) != 0 {
		t.Fatalf("client must not be created for %v", regions)
	}
}

func TestCloudWatchClient_CacheBounded(t *testing.T) {
	var regions []string
	cw := newFakeCloudWatch(&fakeFilter{}, &regions)
	q := Query{Service: "agent", Tail: 1}

	for i := range maxCachedClients + 4 {
		tg := ResolveTarget(url.Values{"region": {fmt.Sprintf("us-test-%d", i)}}, "", "g", "")
		if _, err := cw.Fetch(context.Background(), q, tg); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if n := len(cw.clients); n != maxCachedClients {
		t.Fatalf("cache size = %d, want %d", n, maxCachedClients)
	}

	// регион за пределами кэша создаётся заново на каждый запрос
	before := len(regions)
	tg := ResolveTarget(url.Values{"region": {"us-test-99"}}, "", "g", "")
	_, _ = cw.Fetch(context.Background(), q, tg)
	_, _ = cw.Fetch(context.Background(), q, tg)
	if len(regions)-before != 2 {
		t.Fatalf("uncached region created %d times", len(regions)-before)
	}
}

func TestCloudWatchClient_FactoryOutsideLock(t *testing.T) {
	release := make(chan struct{})
	cw := NewCloudWatch(func(_ context.Context, region string) (FilterAPI, error) {
		if region == "us-slow-1" {
			<-release
		}
		return &fakeFilter{}, nil
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cw.client(context.Background(), "us-slow-1")
	}()

	// медленная фабрика не должна блокировать другие регионы
	fast := make(chan error, 1)
	go func() {
		_, err := cw.client(context.Background(), "us-fast-1")
		fast <- err
	}()
	select {
	case err := <-fast:
		if err != nil {
			t.Fatalf("fast region: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fast region blocked by slow factory")
	}
	close(release)
	<-done
}
