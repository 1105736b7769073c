// Package rpc exposes the trade query service and operation builder over
// HTTP. The server never signs or submits anything: funding endpoints return
// unsigned operation groups for the caller's wallet provider.
package rpc

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeflow/currency"
	"tradeflow/escrow"
	"tradeflow/query"
	"tradeflow/txbuild"
)

// Config carries the server's runtime settings.
type Config struct {
	ListenAddress string
	// AuthToken guards the /v1 API when non-empty.
	AuthToken string
	// RateLimitPerMinute throttles each client address; zero disables
	// throttling.
	RateLimitPerMinute float64
	RateBurst          int
	// FeeBps is echoed into trade views so dashboards can show the
	// funder's total.
	FeeBps uint32
}

// Server wires the query service, the operation builder and the converter
// behind a chi router.
type Server struct {
	cfg     Config
	svc     *query.Service
	builder *txbuild.Builder
	conv    *currency.Converter
	states  *escrow.StateMachine
	log     *slog.Logger
	nowFn   func() int64
	httpSrv *http.Server
}

func NewServer(cfg Config, svc *query.Service, builder *txbuild.Builder, conv *currency.Converter, states *escrow.StateMachine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		svc:     svc,
		builder: builder,
		conv:    conv,
		states:  states,
		log:     logger,
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the time source, primarily used in tests.
func (s *Server) SetNowFunc(now func() int64) {
	if now == nil {
		s.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	s.nowFn = now
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		if s.cfg.RateLimitPerMinute > 0 {
			v1.Use(rateLimit(s.cfg.RateLimitPerMinute, s.cfg.RateBurst))
		}
		if s.cfg.AuthToken != "" {
			v1.Use(bearerAuth(s.cfg.AuthToken))
		}
		v1.Get("/trades", s.handleListTrades)
		v1.Get("/trades/{tradeID}", s.handleGetTrade)
		v1.Post("/trades/{tradeID}/funding", s.handleBuildFunding)
	})
	return r
}

// Start serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()
	s.log.Info("http server listening", "addr", s.cfg.ListenAddress)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
