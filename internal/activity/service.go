package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/cwrk-planet/voice-testbench/internal/metrics"
	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

const (
	DefaultCap    = 20
	DefaultRecent = 10
)

var prefKeyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// Log: журнал действий оператора поверх Store.
type Log struct {
	store   Store
	pub     Publisher
	metrics *metrics.Metrics
	cap     int
	now     func() time.Time
}

type Options struct {
	Cap       int
	Publisher Publisher
	Metrics   *metrics.Metrics
}

func NewLog(store Store, opts Options) *Log {
	if opts.Cap <= 0 {
		opts.Cap = DefaultCap
	}
	if opts.Publisher == nil {
		opts.Publisher = NoopPublisher{}
	}
	return &Log{
		store:   store,
		pub:     opts.Publisher,
		metrics: opts.Metrics,
		cap:     opts.Cap,
		now:     time.Now,
	}
}

func (l *Log) Cap() int { return l.cap }

func validScope(scope string) error {
	if _, ok := knownScopes[scope]; !ok {
		return fmt.Errorf("%w: unknown scope %q", errs.ErrInvalidInput, scope)
	}
	return nil
}

func validate(e Entry) error {
	if _, ok := knownActions[e.Action]; !ok {
		return fmt.Errorf("%w: unknown action %q", errs.ErrInvalidInput, e.Action)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: status must be success|error|pending", errs.ErrInvalidInput)
	}
	if len(e.APIResponse) > 0 && !json.Valid(e.APIResponse) {
		return fmt.Errorf("%w: apiResponse is not valid JSON", errs.ErrInvalidInput)
	}
	return nil
}

// Add присваивает id и время, сохраняет и публикует запись.
func (l *Log) Add(ctx context.Context, scope string, e Entry) (Entry, error) {
	if err := validScope(scope); err != nil {
		return Entry{}, err
	}
	if e.Status == "" {
		e.Status = StatusSuccess
	}
	if err := validate(e); err != nil {
		return Entry{}, err
	}

	e.ID = uuid.NewString()
	e.Scope = scope
	e.Timestamp = l.now().UTC()

	if err := l.store.Insert(ctx, e, l.cap); err != nil {
		return Entry{}, fmt.Errorf("insert activity: %w", err)
	}
	l.metrics.ActivityAdded(scope, string(e.Status))

	if err := l.pub.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "publish activity failed", "scope", scope, "id", e.ID, "err", err)
	}
	return e, nil
}

func (l *Log) Update(ctx context.Context, id string, p Patch) (Entry, error) {
	if p.Status != nil && !p.Status.Valid() {
		return Entry{}, fmt.Errorf("%w: status must be success|error|pending", errs.ErrInvalidInput)
	}
	if p.Action != nil {
		if _, ok := knownActions[*p.Action]; !ok {
			return Entry{}, fmt.Errorf("%w: unknown action %q", errs.ErrInvalidInput, *p.Action)
		}
	}
	if len(p.APIResponse) > 0 && !json.Valid(p.APIResponse) {
		return Entry{}, fmt.Errorf("%w: apiResponse is not valid JSON", errs.ErrInvalidInput)
	}
	return l.store.Update(ctx, id, p)
}

func (l *Log) List(ctx context.Context, scope string, limit int) ([]Entry, error) {
	if err := validScope(scope); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > l.cap {
		limit = l.cap
	}
	return l.store.List(ctx, scope, limit)
}

// Recent: сводка по всем страницам для главной.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecent
	}
	return l.store.Recent(ctx, limit)
}

func (l *Log) Clear(ctx context.Context, scope string) error {
	if err := validScope(scope); err != nil {
		return err
	}
	return l.store.Clear(ctx, scope)
}

func (l *Log) Preference(ctx context.Context, key string) (json.RawMessage, error) {
	if !prefKeyRe.MatchString(key) {
		return nil, fmt.Errorf("%w: bad preference key", errs.ErrInvalidInput)
	}
	return l.store.GetPreference(ctx, key)
}

func (l *Log) SetPreference(ctx context.Context, key string, value json.RawMessage) error {
	if !prefKeyRe.MatchString(key) {
		return fmt.Errorf("%w: bad preference key", errs.ErrInvalidInput)
	}
	if len(value) == 0 || !json.Valid(value) {
		return fmt.Errorf("%w: preference value must be JSON", errs.ErrInvalidInput)
	}
	return l.store.PutPreference(ctx, key, value)
}
