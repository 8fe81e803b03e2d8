package logs

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

const (
	DefaultTail    = 200
	MaxTail        = 500
	DefaultService = "livekit"

	DefaultStreamPrefix = "livekit"

	// всё, что >= порога, считается миллисекундами
	millisThreshold = 1_000_000_000_000
)

var (
	CloudWatchServices = []string{"livekit", "agent", "sip", "redis", "caddy", "all"}
	LocalServices      = []string{"livekit", "agent", "sip", "redis", "all"}
)

// Query: нормализованный запрос логов.
type Query struct {
	Service string
	Tail    int
	Since   Since
	Filter  string
}

// ParseQuery разбирает service/tail/since/filter. Неизвестный service, ErrInvalidInput.
func ParseQuery(v url.Values, allowed []string) (Query, error) {
	svc, err := ValidateService(v.Get("service"), allowed)
	if err != nil {
		return Query{}, err
	}
	return Query{
		Service: svc,
		Tail:    ParseTail(v.Get("tail")),
		Since:   ParseSince(v.Get("since")),
		Filter:  strings.TrimSpace(v.Get("filter")),
	}, nil
}

// ParseTail: default 200, clamp [1,500]. Берутся ведущие цифры ("12abc" это 12).
func ParseTail(raw string) int {
	n, ok := leadingInt(strings.TrimSpace(raw))
	if !ok {
		return DefaultTail
	}
	return max(1, min(n, MaxTail))
}

// leadingInt читает необязательный знак и цифры с начала строки.
func leadingInt(s string) (int, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// переполнение: знак решает, куда клампить
		if s[0] == '-' {
			return 0, true
		}
		return MaxTail, true
	}
	return n, true
}

// Since: момент времени в мс; ноль значит «не задан».
type Since struct {
	ms int64
}

// ParseSince принимает epoch в секундах или миллисекундах.
func ParseSince(raw string) Since {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return Since{}
	}
	if n < millisThreshold {
		return Since{ms: n * 1000}
	}
	return Since{ms: n}
}

func (s Since) IsSet() bool { return s.ms > 0 }

// Millis: для CloudWatch startTime.
func (s Since) Millis() int64 { return s.ms }

// Seconds: для docker compose --since.
func (s Since) Seconds() int64 { return s.ms / 1000 }

func ValidateService(raw string, allowed []string) (string, error) {
	svc := strings.ToLower(strings.TrimSpace(raw))
	if svc == "" {
		svc = DefaultService
	}
	if !slices.Contains(allowed, svc) {
		return "", fmt.Errorf("%w: unknown service %q", errs.ErrInvalidInput, svc)
	}
	return svc, nil
}

// FilterPattern строит term-фильтр CloudWatch: текст в кавычках, свои кавычки выкинуты.
func FilterPattern(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(text, `"`, "") + `"`
}

// Layer: откуда взялось значение настройки.
type Layer string

const (
	LayerRequest Layer = "request"
	LayerConfig  Layer = "config"
	LayerDefault Layer = "default"
	LayerNone    Layer = ""
)

type Setting struct {
	Value  string `json:"value"`
	Source Layer  `json:"source"`
}

// Resolve: override запроса → конфиг/env → дефолт, первое непустое.
func Resolve(override, configured, def string) Setting {
	switch {
	case strings.TrimSpace(override) != "":
		return Setting{Value: strings.TrimSpace(override), Source: LayerRequest}
	case strings.TrimSpace(configured) != "":
		return Setting{Value: strings.TrimSpace(configured), Source: LayerConfig}
	case def != "":
		return Setting{Value: def, Source: LayerDefault}
	default:
		return Setting{}
	}
}

// Target: куда смотреть в CloudWatch.
type Target struct {
	Region       Setting `json:"region"`
	LogGroup     Setting `json:"logGroup"`
	StreamPrefix Setting `json:"streamPrefix"`
}

func ResolveTarget(v url.Values, region, logGroup, streamPrefix string) Target {
	return Target{
		Region:       Resolve(v.Get("region"), region, ""),
		LogGroup:     Resolve(v.Get("logGroup"), logGroup, ""),
		StreamPrefix: Resolve(v.Get("streamPrefix"), streamPrefix, DefaultStreamPrefix),
	}
}

// regionPattern: us-east-1, eu-central-1, us-gov-west-1, ap-southeast-2 и т.п.
var regionPattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-[0-9]{1,2}$`)

func ValidRegion(s string) bool { return regionPattern.MatchString(s) }

// Validate проверяет override-значения из запроса. Настройки из конфига не трогает.
func (t Target) Validate() error {
	if t.Region.Source == LayerRequest && !ValidRegion(t.Region.Value) {
		return fmt.Errorf("%w: region %q", errs.ErrInvalidInput, t.Region.Value)
	}
	return nil
}

// Missing перечисляет незаданные обязательные настройки.
func (t Target) Missing() []string {
	var out []string
	if t.Region.Value == "" {
		out = append(out, "region")
	}
	if t.LogGroup.Value == "" {
		out = append(out, "logGroup")
	}
	return out
}

// StreamNamePrefix пуст для service=all.
func (t Target) StreamNamePrefix(service string) string {
	if service == "all" {
		return ""
	}
	return t.StreamPrefix.Value + "/" + service
}
