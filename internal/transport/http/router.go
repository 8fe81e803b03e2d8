package http

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwrk-planet/voice-testbench/internal/activity"
	"github.com/cwrk-planet/voice-testbench/internal/app/catalog"
	"github.com/cwrk-planet/voice-testbench/internal/app/control"
	"github.com/cwrk-planet/voice-testbench/internal/app/livekit"
	"github.com/cwrk-planet/voice-testbench/internal/app/logs"
	"github.com/cwrk-planet/voice-testbench/internal/config"
	"github.com/cwrk-planet/voice-testbench/internal/metrics"
	tlogger "github.com/cwrk-planet/voice-testbench/internal/transport/logger"
	"github.com/cwrk-planet/voice-testbench/pkg/httputil"
)

type CloudWatchSource interface {
	Fetch(ctx context.Context, q logs.Query, t logs.Target) (logs.Result, error)
}

type LocalSource interface {
	Fetch(ctx context.Context, q logs.Query) (logs.Result, error)
}

// Deps: nil-клиент значит, что соответствующий upstream не настроен.
type Deps struct {
	Config     *config.Config
	LiveKit    livekit.Client
	Control    control.Client
	CloudWatch CloudWatchSource
	Local      LocalSource
	Activity   *activity.Log
	Catalog    *catalog.Catalog
	Metrics    *metrics.Metrics

	LiveRooms http.HandlerFunc // /ws/rooms
	Static    fs.FS            // дашборд
	LookupEnv func(string) (string, bool)
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.MiddlewareRequestID)
	r.Use(tlogger.WithRequestLoggerCtx)
	r.Use(tlogger.RequestMetrics(d.Metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.OK(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// websocket живёт дольше любого таймаута запроса
	if d.LiveRooms != nil {
		r.Get("/ws/rooms", d.LiveRooms)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(httputil.MiddlewareLogging)

		lh := &LogHandlers{
			CloudWatch: d.CloudWatch,
			Local:      d.Local,
			Config:     d.Config,
			LookupEnv:  d.LookupEnv,
		}
		r.Get("/cloudwatch-logs", lh.CloudWatchLogs)
		r.Get("/local-logs", lh.LocalLogs)

		dh := &DebugHandlers{Config: d.Config, LookupEnv: d.LookupEnv}
		r.Get("/debug", dh.Debug)

		ch := &CallHandlers{Control: d.Control, Activity: d.Activity}
		r.Get("/make-call", ch.MakeCallHealth)
		r.Post("/make-call", ch.MakeCall)
		r.Get("/start-web-session", ch.WebSessionHealth)
		r.Post("/start-web-session", ch.StartWebSession)

		rh := &RoomHandlers{LiveKit: d.LiveKit, Activity: d.Activity}
		r.Get("/rooms", rh.ListRooms)
		r.Delete("/rooms", rh.DeleteRoom)

		cfh := &ConfigHandlers{Control: d.Control}
		r.Get("/sip-configs", cfh.ListSIPConfigs)
		r.Post("/sip-configs", cfh.SaveSIPConfig)
		r.Get("/agent-configs", cfh.ListAgentConfigs)
		r.Post("/agent-configs", cfh.SaveAgentConfig)
		r.Route("/configs", func(r chi.Router) {
			r.Get("/", cfh.ListConfigs)
			r.Post("/", cfh.SaveConfig)
			r.Get("/phone/{phone}", cfh.ConfigByPhone)
		})

		mh := &ModelHandlers{Catalog: d.Catalog}
		r.Get("/models", mh.Models)
		r.Get("/models/{kind}", mh.Kind)

		ah := &ActivityHandlers{Activity: d.Activity}
		r.Route("/activity", func(r chi.Router) {
			r.Get("/", ah.Recent)
			r.Patch("/entries/{id}", ah.Update)
			r.Get("/{scope}", ah.List)
			r.Post("/{scope}", ah.Add)
			r.Delete("/{scope}", ah.Clear)
		})
		r.Get("/preferences/{key}", ah.GetPreference)
		r.Put("/preferences/{key}", ah.PutPreference)
	})

	if d.Static != nil {
		r.Handle("/*", http.FileServer(http.FS(d.Static)))
	}

	return r
}
