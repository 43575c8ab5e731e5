// Package status serves the daemon's operational endpoints: liveness, a JSON
// status document, Prometheus metrics and, optionally, pprof.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	rtsup "periodic/internal/runtime/supervisor"
	logx "periodic/pkg/logx"
	"periodic/pkg/planner"
)

const DefaultAddr = "127.0.0.1:6060"

var ErrInsecureBind = errors.New("status: non-loopback addr requires token or allow_insecure")

// Config controls the status server.
type Config struct {
	Addr          string
	Token         string
	AllowInsecure bool
	Pprof         bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PlannerSource is the part of *planner.Planner the server reads.
type PlannerSource interface {
	Snapshot() planner.Snapshot
}

// SupervisorSource is the part of *supervisor.Supervisor the server reads.
type SupervisorSource interface {
	Snapshot() rtsup.Snapshot
}

// Document is the /status response body.
type Document struct {
	Time       time.Time        `json:"time"`
	Uptime     string           `json:"uptime"`
	Planner    planner.Snapshot `json:"planner"`
	Supervisor rtsup.Snapshot   `json:"supervisor"`
}

type Server struct {
	cfg     Config
	log     logx.Logger
	plan    PlannerSource
	sup     SupervisorSource
	started time.Time
	reg     *prometheus.Registry
	handler http.Handler

	mu sync.Mutex
	ln net.Listener
}

func New(cfg Config, plan PlannerSource, sup SupervisorSource, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		// pprof profile and trace stream for up to 30s by default.
		cfg.WriteTimeout = 60 * time.Second
	}

	s := &Server{cfg: cfg, log: log, plan: plan, sup: sup, started: time.Now()}
	s.reg = prometheus.NewRegistry()
	s.reg.MustRegister(
		newPlannerCollector(plan),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.handler = s.routes()
	return s
}

// Handler returns the router with auth applied.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	if s.cfg.Pprof {
		r.HandleFunc("/debug/pprof/cmdline", hpprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", hpprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", hpprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", hpprof.Trace)
		r.PathPrefix("/debug/pprof/").HandlerFunc(hpprof.Index)
	}
	r.Use(s.auth)
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	doc := Document{
		Time:   time.Now(),
		Uptime: time.Since(s.started).Truncate(time.Second).String(),
	}
	if s.plan != nil {
		doc.Planner = s.plan.Snapshot()
	}
	if s.sup != nil {
		doc.Supervisor = s.sup.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		s.log.Warn("status encode failed", logx.Err(err))
	}
}

// auth accepts "Authorization: Bearer <token>" or "?token=<token>".
func (s *Server) auth(next http.Handler) http.Handler {
	tok := strings.TrimSpace(s.cfg.Token)
	if tok == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "" {
			if got == tok {
				next.ServeHTTP(w, r)
				return
			}
			unauthorized(w)
			return
		}
		const p = "Bearer "
		if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == tok {
			next.ServeHTTP(w, r)
			return
		}
		unauthorized(w)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// Listen binds the configured address. Binding is separate from Serve so
// that a bad address fails app startup instead of a background goroutine.
func (s *Server) Listen() error {
	addr := strings.TrimSpace(s.cfg.Addr)
	if !s.cfg.AllowInsecure && s.cfg.Token == "" && !isLoopbackAddr(addr) {
		return ErrInsecureBind
	}
	if s.cfg.AllowInsecure && s.cfg.Token == "" && !isLoopbackAddr(addr) {
		s.log.Warn("status server running without token on non-loopback addr (insecure)", logx.String("addr", addr))
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr is the bound address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Serve runs until ctx is canceled. Listen must have succeeded.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("status: Serve called before Listen")
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(cctx)
	}()

	s.log.Info("status server started", logx.String("addr", ln.Addr().String()), logx.Bool("pprof", s.cfg.Pprof), logx.Bool("token_set", s.cfg.Token != ""))
	err := srv.Serve(ln)
	if ctx.Err() != nil || errors.Is(err, http.ErrServerClosed) {
		s.log.Info("status server stopped")
		return nil
	}
	return err
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		// all interfaces
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
