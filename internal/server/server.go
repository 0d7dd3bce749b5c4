package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/warpdl/warpalarm/common"
	"github.com/warpdl/warpalarm/pkg/logger"
)

// Server serves the JSON-RPC control surface over HTTP and websocket.
type Server struct {
	log      logger.Logger
	addr     string
	rpc      *RPCServer
	notifier *RPCNotifier
	server   *http.Server
	listener net.Listener
	closed   bool
	mu       sync.Mutex

	// cancelConns ends websocket sessions, which Shutdown does not wait for.
	cancelConns context.CancelFunc
}

// NewServer creates a Server listening on addr. Alarms scheduled through it
// are owned by w.
func NewServer(l logger.Logger, addr string, cfg *RPCConfig, w *Worker) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	n := NewRPCNotifier(l)
	return &Server{
		log:      l,
		addr:     addr,
		rpc:      NewRPCServer(cfg, w, n),
		notifier: n,
	}
}

// Handler returns the HTTP handler serving both endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(common.RPCPath, requireToken(s.rpc.secret, s.log, s.rpc.bridge))
	mux.Handle(common.RPCWebSocketPath, requireToken(s.rpc.secret, s.log, http.HandlerFunc(s.handleWebSocket)))
	return mux
}

// Notifier returns the broadcaster of push notifications.
func (s *Server) Notifier() *RPCNotifier {
	return s.notifier
}

// SetListener makes the server accept on l instead of binding its address.
func (s *Server) SetListener(l net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Listen binds the listen address. Start calls it if it was not called.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, http.ErrServerClosed
	}
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, err
	}
	s.listener = l
	return l.Addr(), nil
}

// Start serves requests and blocks until ctx is canceled or serving fails.
func (s *Server) Start(ctx context.Context) error {
	addr, err := s.Listen()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	base, cancelConns := context.WithCancel(context.Background())
	s.cancelConns = cancelConns
	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(net.Listener) context.Context { return base },
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.ToStdLogger(s.log),
	}
	srv, l := s.server, s.listener
	s.mu.Unlock()

	// Watch for context cancellation to trigger shutdown
	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()

	s.log.Info("rpc: listening on %s", addr)
	err = srv.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil // Expected during shutdown
	}
	return err
}

// Shutdown gracefully stops the server and releases the RPC bridge. A server
// that was shut down does not start again.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.server == nil {
		if s.listener != nil {
			_ = s.listener.Close()
			s.listener = nil
		}
		s.rpc.Close()
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.cancelConns()
	err := s.server.Shutdown(shutdownCtx)
	if err != nil {
		s.log.Error("rpc: shutdown: %v", err)
	}
	s.rpc.Close()
	s.server = nil
	s.listener = nil
	return err
}
