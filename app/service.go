package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/mg4dash/config"
	coremetrics "github.com/kilianp07/mg4dash/core/metrics"
	"github.com/kilianp07/mg4dash/core/routing"
	"github.com/kilianp07/mg4dash/core/session"
	"github.com/kilianp07/mg4dash/core/telemetry"
	"github.com/kilianp07/mg4dash/infra/logger"
	inframetrics "github.com/kilianp07/mg4dash/infra/metrics"
)

const readHeaderTimeout = 10 * time.Second

// Service wires the gateway, the trip session and its telemetry source
// behind one HTTP server.
type Service struct {
	Session *session.Session
	Source  telemetry.Source
	Planner *routing.Planner
	Sink    coremetrics.Sink

	cfg     *config.Config
	pricing routing.Pricing
	handler http.Handler
	log     logger.Logger
}

// Option customises a Service.
type Option func(*options)

type options struct {
	gatherer prometheus.Gatherer
	source   telemetry.Source
	planner  []routing.Option
}

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option { return func(o *options) { o.gatherer = g } }

// WithSource replaces the configured telemetry source.
func WithSource(s telemetry.Source) Option { return func(o *options) { o.source = s } }

// WithPlannerOptions forwards options to the routing planner.
func WithPlannerOptions(opts ...routing.Option) Option {
	return func(o *options) { o.planner = append(o.planner, opts...) }
}

// New creates a Service from the configuration. Missing settings are
// filled with their defaults.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	cfg.SetDefaults()
	o := options{gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(&o)
	}
	logg := logger.New("service")

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	src := o.source
	if src == nil {
		if src, err = telemetry.New(cfg.Telemetry, logger.New("telemetry")); err != nil {
			return nil, fmt.Errorf("telemetry source: %w", err)
		}
	}

	seed := cfg.Telemetry.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sess := session.New(logger.New("session"),
		session.WithRand(rand.New(rand.NewSource(seed))),
		session.WithTickInterval(cfg.Telemetry.Interval()),
		session.WithWindow(cfg.Telemetry.Window),
	)

	s := &Service{
		Session: sess,
		Source:  src,
		Planner: routing.NewPlanner(cfg.Gateway, logger.New("routing"), o.planner...),
		Sink:    sink,
		cfg:     cfg,
		pricing: routing.Pricing{PerKWh: cfg.Gateway.Price(), Currency: cfg.Gateway.Currency},
		log:     logg,
	}
	s.handler = s.routes(o.gatherer)
	return s, nil
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Service) Handler() http.Handler { return s.handler }

// Run serves HTTP on the configured address until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln, the telemetry source and the metrics
// collector until ctx is cancelled, then shuts the server down gracefully.
// A failing telemetry source marks the vehicle disconnected but keeps the
// server up.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: readHeaderTimeout}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Infof("listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		timeout := time.Duration(s.cfg.Server.ShutdownTimeoutSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.Session.Close()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.log.Infof("telemetry source: %s", s.Source.Name())
		if err := s.Source.Run(ctx, s.Session); err != nil {
			s.Session.SetConnected(false)
			s.log.Errorf("telemetry source %s stopped: %v", s.Source.Name(), err)
		}
		return nil
	})
	g.Go(func() error {
		return inframetrics.RunSessionCollector(ctx, s.Session, s.Sink, logger.New("collector"))
	})
	err := g.Wait()
	if c, ok := s.Sink.(coremetrics.Closer); ok {
		c.Close()
	}
	return err
}
