// Package httpapi serves the chat API over HTTP with fiber.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
	"github.com/custodia-labs/vidrag/internal/logger"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// server is asked to stop.
const shutdownTimeout = 10 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithRegistry registers the HTTP metrics with reg and serves reg on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registerer = reg
		s.gatherer = reg
	}
}

// Server is the HTTP front end of the chat service.
type Server struct {
	chat       driving.ChatService
	app        *fiber.App
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	requests   *prometheus.CounterVec
}

// New creates a server with its routes registered.
func New(chat driving.ChatService, opts ...Option) *Server {
	s := &Server{
		chat:       chat,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vidrag_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})
	if err := s.registerer.Register(s.requests); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			s.requests = already.ExistingCollector.(*prometheus.CounterVec)
		}
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "vidrag",
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New())
	s.app.Use(s.logRequests)

	s.app.Get("/", s.handleHealth)
	s.app.Post("/api/chat", s.handleChat)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	s.requests.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
	logger.Info("%s %s %d %s", c.Method(), c.Path(), status, time.Since(start).Round(time.Millisecond))
	return err
}

// Listen binds port, or port+1 when port is taken, and serves until ctx is
// cancelled. It returns the port it bound through bound before serving.
func (s *Server) Listen(ctx context.Context, port int, bound func(port int)) error {
	ln, actual, err := listen(port)
	if err != nil {
		return err
	}
	if bound != nil {
		bound(actual)
	}
	logger.Info("Server is running on port %d", actual)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Warn("http: shutdown: %v", err)
		}
	}()

	if err := s.app.Listener(ln); err != nil {
		return fmt.Errorf("http: serve: %w", err)
	}
	return nil
}

// listen binds port, retrying once on the next port if it is in use.
func listen(port int) (net.Listener, int, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err == nil {
		return ln, ln.Addr().(*net.TCPAddr).Port, nil
	}
	if !errors.Is(err, syscall.EADDRINUSE) {
		return nil, 0, fmt.Errorf("http: listen on port %d: %w", port, err)
	}

	logger.Warn("Port %d is busy, trying port %d...", port, port+1)
	ln, err = net.Listen("tcp", fmt.Sprintf(":%d", port+1))
	if err != nil {
		return nil, 0, fmt.Errorf("http: ports %d and %d are both unavailable: %w", port, port+1, err)
	}
	return ln, port + 1, nil
}
