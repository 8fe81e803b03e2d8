package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr         string        `yaml:"addr"`         // ":8080"
	ReadTimeout  time.Duration `yaml:"readTimeout"`  // "15s"
	WriteTimeout time.Duration `yaml:"writeTimeout"` // "60s", websocket пишет сам
	IdleTimeout  time.Duration `yaml:"idleTimeout"`  // "60s"
	CORSOrigins  []string      `yaml:"corsOrigins"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // "voice-testbench"
	Version   string `yaml:"version"`   // "0.1.0"
	AddSource bool   `yaml:"addSource"` // true/false
	Backend   string `yaml:"backend"`   // "std"|"zap"
	Level     string `yaml:"level"`     // debug|info|warn|error
	Debug     bool   `yaml:"debug"`
}

type LiveKit struct {
	URL       string        `yaml:"url"` // ws(s):// или http(s)://
	APIKey    string        `yaml:"apiKey"`
	APISecret string        `yaml:"apiSecret"`
	AgentName string        `yaml:"agentName"`
	Timeout   time.Duration `yaml:"timeout"`
}

func (l LiveKit) Configured() bool {
	return l.URL != "" && l.APIKey != "" && l.APISecret != ""
}

type ControlAPI struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Configured: literal "true" встречается, когда URL подставили флагом вместо адреса.
func (c ControlAPI) Configured() bool {
	return c.URL != "" && c.URL != "true"
}

type CloudWatch struct {
	Enabled      bool   `yaml:"enabled"`
	Region       string `yaml:"region"`
	LogGroup     string `yaml:"logGroup"`
	StreamPrefix string `yaml:"streamPrefix"`
	Token        string `yaml:"token"`
}

type LocalLogs struct {
	Enabled     bool          `yaml:"enabled"`
	Dir         string        `yaml:"dir"`     // каталог с docker-compose.yml
	Command     string        `yaml:"command"` // "docker"
	Timeout     time.Duration `yaml:"timeout"`
	MaxBytes    int           `yaml:"maxBytes"`
	ComposeFile []string      `yaml:"composeFiles"`
}

type State struct {
	Backend    string `yaml:"backend"` // memory|sqlite|postgres
	DSN        string `yaml:"dsn"`     // путь к файлу sqlite или postgres DSN
	MaxEntries int    `yaml:"maxEntries"`
}

type Events struct {
	NatsURL       string `yaml:"natsURL"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

type Live struct {
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	HTTP       HTTP       `yaml:"http"`
	Logging    Logging    `yaml:"logging"`
	LiveKit    LiveKit    `yaml:"livekit"`
	ControlAPI ControlAPI `yaml:"controlAPI"`
	CloudWatch CloudWatch `yaml:"cloudwatch"`
	LocalLogs  LocalLogs  `yaml:"localLogs"`
	State      State      `yaml:"state"`
	Events     Events     `yaml:"events"`
	Live       Live       `yaml:"live"`
}

// Load читает YAML (если файл есть), накладывает переменные окружения и дефолты.
// Если path пуст, берём CONFIG_PATH, затем config/config.yaml.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	explicit := path != ""
	if path == "" {
		path = filepath.Join("config", "config.yaml")
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// без файла работаем на env
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type lookupFunc func(string) (string, bool)

// first возвращает первое непустое значение из перечисленных переменных.
func first(lookup lookupFunc, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func setStr(dst *string, lookup lookupFunc, keys ...string) {
	if v, ok := first(lookup, keys...); ok {
		*dst = v
	}
}

// setFlag: флаг включён, если хоть одна из переменных равна "true".
func setFlag(dst *bool, lookup lookupFunc, keys ...string) {
	seen, on := false, false
	for _, k := range keys {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			seen = true
			on = on || strings.TrimSpace(v) == "true"
		}
	}
	if seen {
		*dst = on
	}
}

func setInt(dst *int, lookup lookupFunc, keys ...string) {
	if v, ok := first(lookup, keys...); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c *Config) applyEnv(lookup lookupFunc) {
	setStr(&c.HTTP.Addr, lookup, "HTTP_ADDR")
	setStr(&c.Logging.Env, lookup, "APP_ENV")
	setStr(&c.Logging.Level, lookup, "LOG_LEVEL")

	setStr(&c.LiveKit.URL, lookup, "LIVEKIT_URL")
	setStr(&c.LiveKit.APIKey, lookup, "LIVEKIT_API_KEY")
	setStr(&c.LiveKit.APISecret, lookup, "LIVEKIT_API_SECRET")
	setStr(&c.LiveKit.AgentName, lookup, "LIVEKIT_AGENT_NAME")

	setStr(&c.ControlAPI.URL, lookup, "CONTROL_API_URL", "NEXT_PUBLIC_CONTROL_API_URL")

	setFlag(&c.CloudWatch.Enabled, lookup, "ENABLE_CLOUDWATCH_LOGS", "NEXT_PUBLIC_ENABLE_CLOUDWATCH_LOGS")
	setStr(&c.CloudWatch.Region, lookup, "CLOUDWATCH_REGION", "AWS_REGION", "AWS_DEFAULT_REGION")
	setStr(&c.CloudWatch.LogGroup, lookup, "CLOUDWATCH_LOG_GROUP")
	setStr(&c.CloudWatch.StreamPrefix, lookup, "CLOUDWATCH_STREAM_PREFIX")
	setStr(&c.CloudWatch.Token, lookup, "CLOUDWATCH_LOGS_TOKEN")

	setFlag(&c.LocalLogs.Enabled, lookup, "ENABLE_LOCAL_LOGS", "NEXT_PUBLIC_ENABLE_LOCAL_LOGS")
	setStr(&c.LocalLogs.Dir, lookup, "LOCAL_LOGS_DIR")

	setStr(&c.State.Backend, lookup, "STATE_BACKEND")
	setStr(&c.State.DSN, lookup, "STATE_DSN")
	setInt(&c.State.MaxEntries, lookup, "STATE_MAX_ENTRIES")

	setStr(&c.Events.NatsURL, lookup, "NATS_URL")
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 60 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "voice-testbench"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}

	if c.LiveKit.URL == "" && c.LiveKit.APIKey != "" {
		c.LiveKit.URL = "ws://localhost:7880"
	}
	if c.LiveKit.Timeout == 0 {
		c.LiveKit.Timeout = 10 * time.Second
	}
	if c.ControlAPI.Timeout == 0 {
		c.ControlAPI.Timeout = 15 * time.Second
	}
	c.ControlAPI.URL = strings.TrimRight(c.ControlAPI.URL, "/")

	if c.LocalLogs.Dir == "" {
		c.LocalLogs.Dir = filepath.Join("..", "backend")
	}
	if c.LocalLogs.Command == "" {
		c.LocalLogs.Command = "docker"
	}
	if c.LocalLogs.Timeout == 0 {
		c.LocalLogs.Timeout = 20 * time.Second
	}
	if c.LocalLogs.MaxBytes == 0 {
		c.LocalLogs.MaxBytes = 1 << 20
	}
	if len(c.LocalLogs.ComposeFile) == 0 {
		c.LocalLogs.ComposeFile = []string{"docker-compose.yml", "docker-compose.local.yml"}
	}

	if c.State.Backend == "" {
		c.State.Backend = "memory"
	}
	if c.State.MaxEntries <= 0 {
		c.State.MaxEntries = 20
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = "testbench"
	}
	if c.Live.Interval <= 0 {
		c.Live.Interval = 5 * time.Second
	}
}

func (c *Config) Validate() error {
	switch c.State.Backend {
	case "memory":
	case "sqlite", "postgres":
		if c.State.DSN == "" {
			return fmt.Errorf("state.dsn is required for %s backend", c.State.Backend)
		}
	default:
		return fmt.Errorf("state.backend must be memory|sqlite|postgres, got %q", c.State.Backend)
	}
	if c.Logging.Backend != "" && c.Logging.Backend != "std" && c.Logging.Backend != "zap" {
		return fmt.Errorf("logging.backend must be std|zap, got %q", c.Logging.Backend)
	}
	return nil
}

// Production: локальные логи в проде выключены всегда.
func (c *Config) Production() bool {
	switch strings.ToLower(c.Logging.Env) {
	case "prod", "production":
		return true
	}
	return false
}
