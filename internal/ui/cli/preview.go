package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	coreapp "structmap/internal/core/app"
	"structmap/internal/core/config"
	"structmap/internal/output/viewmodel"
	"structmap/internal/shared/observability"
	"structmap/internal/shared/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// openBrowser is replaced in tests.
var openBrowser = browser.OpenURL

type resultSource interface {
	LastResult() (*coreapp.Result, error)
}

// PreviewServer serves the written view model, the optional viewer web app,
// a live copy of the latest build, health and metrics.
type PreviewServer struct {
	addr        string
	port        int
	webDir      string
	metricsPath string
	jsonPath    string
	source      resultSource
	limiters    *util.ClientLimiters

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

type healthStatus struct {
	Status  string    `json:"status"`
	RunID   string    `json:"run_id,omitempty"`
	BuiltAt time.Time `json:"built_at,omitempty"`
	Error   string    `json:"error,omitempty"`
}

func NewPreviewServer(preview config.Preview, metricsPath, jsonPath string, source resultSource) *PreviewServer {
	return &PreviewServer{
		addr:        preview.Addr(),
		port:        preview.Port,
		webDir:      strings.TrimSpace(preview.WebDir),
		metricsPath: metricsPath,
		jsonPath:    jsonPath,
		source:      source,
		limiters:    util.NewClientLimiters(50, 100, 5*time.Minute),
	}
}

func (s *PreviewServer) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		s.countRequests,
		s.rateLimit,
	)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, s.metricsPath, promhttp.Handler())
	r.Get("/"+coreapp.PreviewFileName, s.handleViewModelFile)
	r.Get("/api/structure", s.handleLiveViewModel)
	if s.webDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.webDir)))
	} else {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/"+coreapp.PreviewFileName, http.StatusFound)
		})
	}
	return r
}

// Start listens on the configured address and serves until Stop or ctx ends.
// It returns the URL the operator should open.
func (s *PreviewServer) Start(ctx context.Context) (string, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("preview server listen: %w", err)
	}
	s.listener = ln

	ctx, s.cancel = context.WithCancel(ctx)
	go s.limiters.Run(ctx)

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("preview server failed", "error", err)
		}
	}()

	slog.Info("preview server started", "addr", ln.Addr().String())
	return s.URL(), nil
}

func (s *PreviewServer) URL() string {
	port := s.port
	if s.listener != nil {
		if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			port = addr.Port
		}
	}
	if s.webDir != "" {
		return fmt.Sprintf("http://localhost:%d/index.html?input=%s", port, coreapp.PreviewFileName)
	}
	return fmt.Sprintf("http://localhost:%d/%s", port, coreapp.PreviewFileName)
}

func (s *PreviewServer) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := healthStatus{Status: "starting"}
	code := http.StatusServiceUnavailable
	if s.source != nil {
		res, err := s.source.LastResult()
		switch {
		case err != nil:
			status.Status = "degraded"
			status.Error = err.Error()
		case res != nil:
			status.Status = "up"
			code = http.StatusOK
		}
		if res != nil {
			status.RunID = res.RunID
			status.BuiltAt = res.BuiltAt
		}
	}
	writeJSON(w, code, status)
}

func (s *PreviewServer) handleViewModelFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, s.jsonPath)
}

func (s *PreviewServer) handleLiveViewModel(w http.ResponseWriter, _ *http.Request) {
	if s.source == nil {
		http.Error(w, "no build available", http.StatusServiceUnavailable)
		return
	}
	res, _ := s.source.LastResult()
	if res == nil || res.ViewModel == nil {
		http.Error(w, "no build available", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := viewmodel.Write(w, res.ViewModel, false); err != nil {
		slog.Warn("write live view model", "error", err)
	}
}

func (s *PreviewServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiters.Get(host).Allow(1) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *PreviewServer) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.PreviewRequestsTotal.WithLabelValues(fmt.Sprintf("%dxx", status/100)).Inc()
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
