package logs

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cwrk-planet/voice-testbench/internal/metrics"
)

// Runner запускает команду и возвращает stdout и stderr, каждый не больше limit байт.
type Runner interface {
	Run(ctx context.Context, dir, name string, args []string, limit int) (stdout, stderr []byte, err error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args []string, limit int) ([]byte, []byte, error) {
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// cappedBuffer молча отбрасывает всё сверх limit.
// Buffer не встраиваем: иначе io.Copy пойдёт через ReadFrom мимо лимита.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte { return b.buf.Bytes() }

type LocalOptions struct {
	Dir          string
	Command      string // docker или docker-compose
	ComposeFiles []string
	Timeout      time.Duration
	MaxBytes     int
	Runner       Runner
	Metrics      *metrics.Metrics
}

// Local: логи контейнеров локального docker compose стенда.
type Local struct {
	opts LocalOptions
}

func NewLocal(opts LocalOptions) *Local {
	if opts.Command == "" {
		opts.Command = "docker"
	}
	if len(opts.ComposeFiles) == 0 {
		opts.ComposeFiles = []string{"docker-compose.yml", "docker-compose.local.yml"}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 1 << 20
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	return &Local{opts: opts}
}

// Args: аргументы команды для запроса.
func (l *Local) Args(q Query) []string {
	var args []string
	if filepath.Base(l.opts.Command) == "docker" {
		args = append(args, "compose")
	}
	for _, f := range l.opts.ComposeFiles {
		args = append(args, "-f", f)
	}
	args = append(args, "logs", "--no-color", "--tail", strconv.Itoa(q.Tail))
	if q.Since.IsSet() {
		args = append(args, "--since", strconv.FormatInt(q.Since.Seconds(), 10))
	}
	if q.Service != "all" {
		args = append(args, q.Service)
	}
	return args
}

func (l *Local) Fetch(ctx context.Context, q Query) (res Result, err error) {
	started := time.Now()
	defer func() { l.opts.Metrics.ObserveUpstream("compose", "logs", started, err) }()

	runCtx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	stdout, stderr, err := l.opts.Runner.Run(runCtx, l.opts.Dir, l.opts.Command, l.Args(q), l.opts.MaxBytes)
	if err != nil {
		return Result{}, &FetchError{Source: "local", Msg: commandMessage(err, stderr)}
	}

	text := string(stdout) + string(stderr)
	text = FilterLines(text, q.Filter)

	res = Result{Service: q.Service, Tail: q.Tail, Logs: strings.TrimSpace(text)}
	l.opts.Metrics.AddLogLines("local", q.Service, countLines(res.Logs))
	return res, nil
}

// commandMessage: ошибка запуска плюс первая строка stderr, если она есть.
func commandMessage(err error, stderr []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(stderr)), "\n")
	if line == "" {
		return err.Error()
	}
	return err.Error() + ": " + line
}
