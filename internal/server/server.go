package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"swapdesk/config"
	"swapdesk/conversion"
	"swapdesk/internal/metrics"
	"swapdesk/internal/quotes"
	"swapdesk/logger"
	"swapdesk/pricebook"
	"swapdesk/wallet"
)

const (
	metricsHistory = 200
	logHistory     = 200
)

// Deps are the collaborators the view adapter renders.
type Deps struct {
	Quotes  *quotes.Store
	Session *conversion.Session
	Form    *conversion.Form
	Wallet  wallet.Source
}

// Server exposes the swap desk over HTTP and pushes session changes to
// websocket subscribers.
type Server struct {
	cfg  config.ServerConfig
	log  *logger.Log
	deps Deps
	hub  *Hub

	metricStore        *metricStore
	logStore           *logStore
	unsubscribeMetrics func()
	unsubscribe        func()

	prometheus bool
	baseCtx    context.Context
	httpServer *http.Server
}

type Option func(*Server)

// WithPrometheus controls whether /metrics is served. It is on by default.
func WithPrometheus(enabled bool) Option {
	return func(s *Server) { s.prometheus = enabled }
}

func NewServer(cfg config.ServerConfig, deps Deps, log *logger.Log, opts ...Option) (*Server, error) {
	if deps.Quotes == nil || deps.Session == nil || deps.Form == nil {
		return nil, errors.New("server requires quotes, session and form")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	cfg.Address = normalizeAddress(cfg.Address)

	metricStore := newMetricStore(metricsHistory)
	unsubscribeMetrics := metrics.Subscribe(metricStore.handle)

	logStore := newLogStore(logHistory)
	log.AddHook(logStore)

	s := &Server{
		cfg:                cfg,
		log:                log,
		deps:               deps,
		hub:                NewHub(log),
		metricStore:        metricStore,
		logStore:           logStore,
		unsubscribeMetrics: unsubscribeMetrics,
		prometheus:         true,
		baseCtx:            context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.unsubscribe = deps.Session.Subscribe(func(snap conversion.Snapshot) {
		metrics.IncSwapTransition(snap.State.String())
		s.hub.Broadcast(event{Type: "swap", Swap: &snap})
	})
	deps.Quotes.OnBookChange(func(book *pricebook.Book) {
		deps.Form.Reconcile(book)
		status := deps.Quotes.Status()
		s.hub.Broadcast(event{Type: "prices", Prices: &status})
	})

	return s, nil
}

// Run serves until ctx is cancelled. Swaps submitted through the server are
// settled under ctx, so shutting down fails any swap still in flight.
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup()

	s.baseCtx = ctx
	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.WithComponent("server").WithFields(logger.Fields{"address": s.cfg.Address}).Info("starting http server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.hub.Close()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	s.unsubscribeMetrics()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.logStore != nil {
		s.logStore.close()
	}
	s.hub.Close()
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	if s.cfg.Mode != "" {
		gin.SetMode(s.cfg.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.observe())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/health", s.handleHealth)
	if s.prometheus {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	router.GET("/prices", s.handlePrices)
	router.POST("/prices/reload", s.handleReload)
	router.GET("/quote", s.handleQuote)

	router.GET("/form", s.handleForm)
	router.PATCH("/form", s.handleUpdateForm)
	router.POST("/form/flip", s.handleFlip)
	router.POST("/form/submit", s.handleFormSubmit)

	router.GET("/swap", s.handleSwapStatus)
	router.POST("/swap", s.handleSwap)
	router.POST("/swap/ack", s.handleAcknowledge)
	router.POST("/swap/cancel", s.handleCancel)

	router.GET("/balances", s.handleBalances)
	router.POST("/balances/rank", s.handleRankBalances)

	router.GET("/ws", s.handleWebsocket)

	router.GET("/api/metrics", s.handleRecentMetrics)
	router.GET("/api/logs", s.handleRecentLogs)

	return router, nil
}

// observe counts every request and logs it at debug level.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		status := c.Writer.Status()
		metrics.ObserveHTTPRequest(c.Request.Method, route, status)
		s.log.WithComponent("server").WithFields(logger.Fields{
			"method":      c.Request.Method,
			"route":       route,
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		}).Debug("request served")
	}
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
