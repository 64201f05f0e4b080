package http

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"disputes/internal/core"
	"disputes/internal/log"
	"disputes/internal/metrics"
	"disputes/internal/middleware/ratelimit"
	"disputes/internal/middleware/security"
	"disputes/internal/services"
	appweb "disputes/web"
)

const requestTimeout = 30 * time.Second

// Deps are the collaborators the server needs.
type Deps struct {
	Dashboard *services.Dashboard
	Metrics   *metrics.Metrics
	Logger    *log.Logger

	// ExportRateLimit caps exports and reloads per client per minute.
	ExportRateLimit int

	// TrustedProxies are CIDRs whose forwarding headers are believed.
	// Empty means security.DefaultTrustedProxies.
	TrustedProxies []string
}

type Server struct {
	http.Server
	templates *template.Template
	dashboard *services.Dashboard
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	clientIPs *security.ClientIPResolver
	logger    *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		dashboard: deps.Dashboard,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentHTTP),
	}
	resolver, err := security.NewClientIPResolver(deps.TrustedProxies...)
	if err != nil {
		s.logger.Warn("Invalid trusted proxies, using defaults", log.FieldError, err.Error())
		resolver, _ = security.NewClientIPResolver()
	}
	s.clientIPs = resolver

	rateLog := logger.WithComponent(log.ComponentRateLimit)
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerPeriod: deps.ExportRateLimit,
		Period:            time.Minute,
		OnReject: func(ip string) {
			rateLog.Warn("Rate limit exceeded", log.FieldClientIP, ip)
		},
	})

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	s.Handler = gzhttp.GzipHandler(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.clientIPs.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/", s.handleIndex)
		r.Get("/ui/summary", s.handleSummaryPartial)
		r.Route("/api", func(r chi.Router) {
			r.Use(security.NoStore)
			r.Get("/summary", s.handleAPISummary)
			r.Get("/charts", s.handleAPICharts)
			r.Get("/options", s.handleAPIOptions)
			r.Get("/datasets", s.handleAPIDatasets)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware(clientIP, s.rejectRateLimited))
		r.Get("/export.csv", s.handleExport)
		r.Get("/export.xlsx", s.handleExport)
		r.Post("/admin/reload", s.handleReload)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Page not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		allowed := http.MethodGet
		if r.URL.Path == "/admin/reload" {
			allowed = http.MethodPost
		}
		MethodNotAllowedError(allowed).Write(w)
	})
	return r
}

// observe records request metrics under the matched route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(route, status, time.Since(start))
	})
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").
		TriggerErrorNotification("Too many requests, please wait a moment").
		Write(w)
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

var templateFuncs = template.FuncMap{
	"has": func(list []string, v string) bool {
		for _, x := range list {
			if x == v {
				return true
			}
		}
		return false
	},
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return template.JS(b), nil
	},
	"date": func(d core.Date) string { return d.String() },
	"short": func(id string) string {
		if i := strings.IndexByte(id, '-'); i > 0 {
			return id[:i]
		}
		return id
	},
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.dashboard == nil || s.dashboard.Registry().Current() == nil {
		http.Error(w, "no dataset loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
