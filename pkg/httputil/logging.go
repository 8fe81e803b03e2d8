package httputil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// тела длиннее лимита в лог не попадают: /api/*-logs отдаёт до 500 строк
const maxLoggedBody = 2048

const redacted = "[redacted]"

// Логирует метод, путь, статус, длительность, тела запрос/ответ и X-Request-ID.
// Тела пишутся только как JSON с вычищенными токенами, номерами и значениями настроек.
func MiddlewareLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var reqBody string
		if isJSON(r.Header.Get("Content-Type")) && r.Body != nil && r.Body != http.NoBody {
			// читаем не больше лимита, остаток достаётся хендлеру вместе с MaxBytesReader
			head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
			r.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
			reqBody = loggableBody(head, len(head))
		}

		lrw := &logResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)

		dur := time.Since(start)
		reqID, _ := FromContext(r.Context())

		level := slog.LevelInfo
		switch {
		case lrw.status >= 500:
			level = slog.LevelError
		case lrw.status >= 400:
			level = slog.LevelWarn
		}

		var respBody string
		if isJSON(lrw.Header().Get("Content-Type")) {
			respBody = loggableBody(lrw.body.Bytes(), lrw.bytes)
		}

		slog.Log(r.Context(), level, "http request",
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", lrw.status,
			"bytes", lrw.bytes,
			"duration", dur.String(),
			"req_body", reqBody,
			"resp_body", respBody,
		)
	})
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// loggableBody: total это полный размер тела, captured может быть его началом.
func loggableBody(captured []byte, total int) string {
	if total == 0 {
		return ""
	}
	if total > maxLoggedBody || len(captured) < total {
		return fmt.Sprintf("(%d bytes, not logged)", total)
	}
	var v any
	if err := json.Unmarshal(captured, &v); err != nil {
		return fmt.Sprintf("(%d bytes, not json)", total)
	}
	b, err := json.Marshal(redact(v))
	if err != nil {
		return fmt.Sprintf("(%d bytes)", total)
	}
	return string(b)
}

func redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if sensitiveKey(k) {
				t[k] = redacted
				continue
			}
			t[k] = redact(val)
		}
	case []any:
		for i := range t {
			t[i] = redact(t[i])
		}
	}
	return v
}

var sensitiveParts = []string{"token", "secret", "password", "apikey", "authorization", "phone", "caller", "preference"}

// sensitiveKey: token, phoneNumber, caller_number, LIVEKIT_API_SECRET, value и т.п.
func sensitiveKey(k string) bool {
	k = strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(k))
	if k == "value" || k == "values" {
		return true
	}
	for _, p := range sensitiveParts {
		if strings.Contains(k, p) {
			return true
		}
	}
	return false
}

type logResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
	body   bytes.Buffer
}

func (w *logResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *logResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		w.body.Write(b[:min(len(b), room)])
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n

	return n, err
}

// Hijack нужен для апгрейда /ws/rooms.
func (w *logResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *logResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
