package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher рассылает добавленные записи. Ошибки не ломают запись в журнал.
type Publisher interface {
	Publish(ctx context.Context, e Entry) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Entry) error { return nil }

// MultiPublisher отдаёт запись всем подписчикам по очереди и собирает ошибки.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, e Entry) error {
	var all []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			all = append(all, err)
		}
	}
	return errors.Join(all...)
}

// NATSPublisher публикует в <prefix>.activity.<scope>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("voice-testbench"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

func Subject(prefix, scope string) string {
	return prefix + ".activity." + scope
}

func (p *NATSPublisher) Publish(_ context.Context, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.nc.Publish(Subject(p.prefix, e.Scope), b)
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
