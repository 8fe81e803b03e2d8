package logs

import (
	"sort"
	"strings"
	"time"

	"github.com/cwrk-planet/voice-testbench/pkg/errs"
)

// Event: одна запись из источника. Timestamp может отсутствовать.
type Event struct {
	Timestamp *time.Time
	Message   string
}

// Result: тело ответа /api/*-logs.
type Result struct {
	Service string `json:"service"`
	Tail    int    `json:"tail"`
	Logs    string `json:"logs"`
}

// формат Date.toISOString
const isoMillis = "2006-01-02T15:04:05.000Z"

// Join сортирует события по времени, оставляет последние tail и склеивает в один текст.
func Join(events []Event, tail int) string {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return unixMillis(sorted[i].Timestamp) < unixMillis(sorted[j].Timestamp)
	})
	if tail > 0 && len(sorted) > tail {
		sorted = sorted[len(sorted)-tail:]
	}

	lines := make([]string, 0, len(sorted))
	for _, e := range sorted {
		msg := strings.TrimRight(e.Message, " \t\r\n")
		if e.Timestamp != nil {
			msg = e.Timestamp.UTC().Format(isoMillis) + " " + msg
		}
		lines = append(lines, msg)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func unixMillis(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

// FilterLines оставляет строки, содержащие needle без учёта регистра.
func FilterLines(text, needle string) string {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return text
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(strings.ToLower(line), needle) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// FetchError: отказ источника логов; Msg уходит клиенту как есть.
type FetchError struct {
	Source string
	Msg    string
}

func (e *FetchError) Error() string { return e.Source + ": " + e.Msg }

func (e *FetchError) Unwrap() error { return errs.ErrSourceFailed }
