package logs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/smithy-go"

	"github.com/cwrk-planet/voice-testbench/internal/metrics"
	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

// FilterAPI: единственный вызов CloudWatch Logs, который нам нужен.
type FilterAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// ClientFactory создаёт клиента под регион (регион может прийти из запроса).
type ClientFactory func(ctx context.Context, region string) (FilterAPI, error)

// NewAWSClient: стандартная цепочка кредов AWS SDK (env, profile, web identity, IMDS).
func NewAWSClient(ctx context.Context, region string) (FilterAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return cloudwatchlogs.NewFromConfig(cfg), nil
}

// maxCachedClients: выше лимита клиенты создаются на запрос и не кэшируются.
const maxCachedClients = 16

type CloudWatch struct {
	newClient ClientFactory
	metrics   *metrics.Metrics

	mu      sync.Mutex
	clients map[string]FilterAPI
}

func NewCloudWatch(factory ClientFactory, m *metrics.Metrics) *CloudWatch {
	if factory == nil {
		factory = NewAWSClient
	}
	return &CloudWatch{
		newClient: factory,
		metrics:   m,
		clients:   make(map[string]FilterAPI),
	}
}

func (c *CloudWatch) client(ctx context.Context, region string) (FilterAPI, error) {
	c.mu.Lock()
	cl, ok := c.clients[region]
	c.mu.Unlock()
	if ok {
		return cl, nil
	}

	// LoadDefaultConfig может ходить в IMDS, держать мьютекс на это время нельзя
	cl, err := c.newClient(ctx, region)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.clients[region]; ok {
		return existing, nil
	}
	if len(c.clients) < maxCachedClients {
		c.clients[region] = cl
	}
	return cl, nil
}

// Input строит FilterLogEvents для запроса и цели.
func Input(q Query, t Target) *cloudwatchlogs.FilterLogEventsInput {
	in := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(t.LogGroup.Value),
		Limit:        aws.Int32(int32(q.Tail)),
		Interleaved:  aws.Bool(true),
	}
	if p := t.StreamNamePrefix(q.Service); p != "" {
		in.LogStreamNamePrefix = aws.String(p)
	}
	if q.Since.IsSet() {
		in.StartTime = aws.Int64(q.Since.Millis())
	}
	if fp := FilterPattern(q.Filter); fp != "" {
		in.FilterPattern = aws.String(fp)
	}
	return in
}

// Fetch: один вызов FilterLogEvents без повторов.
func (c *CloudWatch) Fetch(ctx context.Context, q Query, t Target) (res Result, err error) {
	started := time.Now()
	defer func() { c.metrics.ObserveUpstream("cloudwatch", "FilterLogEvents", started, err) }()

	if missing := t.Missing(); len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: missing %v", errs.ErrNotConfigured, missing)
	}
	if err := t.Validate(); err != nil {
		return Result{}, err
	}

	cl, err := c.client(ctx, t.Region.Value)
	if err != nil {
		return Result{}, &FetchError{Source: "cloudwatch", Msg: err.Error()}
	}

	out, err := cl.FilterLogEvents(ctx, Input(q, t))
	if err != nil {
		return Result{}, &FetchError{Source: "cloudwatch", Msg: apiMessage(err)}
	}

	events := make([]Event, 0, len(out.Events))
	for _, e := range out.Events {
		ev := Event{Message: aws.ToString(e.Message)}
		if e.Timestamp != nil && *e.Timestamp > 0 {
			ts := time.UnixMilli(*e.Timestamp).UTC()
			ev.Timestamp = &ts
		}
		events = append(events, ev)
	}

	res = Result{Service: q.Service, Tail: q.Tail, Logs: Join(events, q.Tail)}
	c.metrics.AddLogLines("cloudwatch", q.Service, countLines(res.Logs))
	return res, nil
}

func apiMessage(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) && ae.ErrorMessage() != "" {
		return ae.ErrorMessage()
	}
	return err.Error()
}
