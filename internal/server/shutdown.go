package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// Hook priorities. Lower runs first.
const (
	PriorityHTTP     = 10
	PriorityWorkers  = 20
	PrioritySessions = 50
	PriorityTracing  = 80
	PriorityStores   = 90
	PriorityAudit    = 95
)

// ShutdownHook is a function called during shutdown.
type ShutdownHook struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// ShutdownHandler runs registered hooks once, on a signal or on request.
type ShutdownHandler struct {
	mu      sync.Mutex
	hooks   []ShutdownHook
	timeout time.Duration
	signals []os.Signal
	log     *logrus.Entry

	startOnce    sync.Once
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	doneCh       chan struct{}
}

// NewShutdownHandler returns a handler listening for SIGINT and SIGTERM. A
// non-positive timeout uses 30s.
func NewShutdownHandler(timeout time.Duration) *ShutdownHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownHandler{
		timeout:    timeout,
		signals:    []os.Signal{syscall.SIGTERM, syscall.SIGINT},
		log:        logrus.WithField("component", "shutdown"),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// RegisterHook adds a hook. Hooks of equal priority run in registration order.
func (s *ShutdownHandler) RegisterHook(name string, priority int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, ShutdownHook{Name: name, Priority: priority, Fn: fn})
	sort.SliceStable(s.hooks, func(i, j int) bool { return s.hooks[i].Priority < s.hooks[j].Priority })
}

// Start begins listening for signals. Calling it twice is a no-op.
func (s *ShutdownHandler) Start() {
	s.startOnce.Do(func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, s.signals...)
		go func() {
			select {
			case sig := <-sigCh:
				s.log.WithField("signal", sig.String()).Info("shutdown signal received")
				s.trigger()
			case <-s.shutdownCh:
			}
			signal.Stop(sigCh)
			s.run()
		}()
	})
}

// Shutdown triggers shutdown without a signal.
func (s *ShutdownHandler) Shutdown() {
	s.Start()
	s.trigger()
}

func (s *ShutdownHandler) trigger() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// ShutdownCh is closed when shutdown begins.
func (s *ShutdownHandler) ShutdownCh() <-chan struct{} { return s.shutdownCh }

// Done is closed when every hook has run.
func (s *ShutdownHandler) Done() <-chan struct{} { return s.doneCh }

// Wait blocks until shutdown is complete.
func (s *ShutdownHandler) Wait() { <-s.doneCh }

// WaitWithTimeout reports whether shutdown completed within timeout.
func (s *ShutdownHandler) WaitWithTimeout(timeout time.Duration) bool {
	select {
	case <-s.doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *ShutdownHandler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.mu.Lock()
	hooks := append([]ShutdownHook(nil), s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		if err := h.Fn(ctx); err != nil {
			s.log.WithError(err).WithField("hook", h.Name).Warn("shutdown hook failed")
		}
	}
	close(s.doneCh)
}

// Serve runs srv on ln until shutdown. The health server turns ready once
// serving and unready as soon as shutdown begins; the HTTP server is drained
// by a PriorityHTTP hook. Serve returns after every hook has run.
func Serve(srv *http.Server, ln net.Listener, health *HealthServer, sd *ShutdownHandler) error {
	sd.RegisterHook("http-server", PriorityHTTP, srv.Shutdown)
	sd.Start()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			sd.Shutdown()
		}
		close(errCh)
	}()
	health.SetReady(true)
	logrus.WithField("addr", ln.Addr().String()).Info("phoenix listening")

	<-sd.ShutdownCh()
	health.SetReady(false)
	sd.Wait()
	return <-errCh
}
