package protocol

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/netutil"

	"github.com/natelandrum/file-transfer-project/server/store"
)

// ServerConfig tunes connection handling.
type ServerConfig struct {
	MaxConnections int           // concurrent connections; 0 means unlimited
	IdleTimeout    time.Duration // per-read/write inactivity limit; 0 disables
}

// Server accepts connections and runs one CommandHandler per connection.
type Server struct {
	store  *store.Store
	config ServerConfig
	stats  *Stats

	mutex    sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a server for st.
func NewServer(st *store.Store, config ServerConfig) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		store:  st,
		config: config,
		stats:  &Stats{},
		conns:  make(map[net.Conn]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	st.OnLockWait = func(name string, exclusive bool, waited time.Duration) {
		mode := "shared"
		if exclusive {
			mode = "exclusive"
		}
		log.Printf("[LOCK] waiting for %s lock on %s (%v so far)", mode, name, waited.Round(time.Millisecond))
	}
	return srv
}

// Stats returns the live counters.
func (srv *Server) Stats() *Stats {
	return srv.stats
}

// ListenAndServe listens on addr and serves until Stop is called.
func (srv *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return srv.Serve(listener)
}

// Serve accepts connections on listener. Accept failures are logged and do
// not stop the loop; it returns nil once Stop closes the listener.
func (srv *Server) Serve(listener net.Listener) error {
	if srv.config.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, srv.config.MaxConnections)
	}

	srv.mutex.Lock()
	if srv.ctx.Err() != nil {
		srv.mutex.Unlock()
		listener.Close()
		return nil
	}
	srv.listener = listener
	srv.mutex.Unlock()

	var backoff time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if srv.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff *= 2
			}
			if backoff > time.Second {
				backoff = time.Second
			}
			log.Printf("Error accepting connection: %v; retrying in %v", err, backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		if !srv.track(conn) {
			conn.Close()
			return nil
		}
		go srv.handleClient(conn)
	}
}

func (srv *Server) track(conn net.Conn) bool {
	srv.mutex.Lock()
	defer srv.mutex.Unlock()
	if srv.ctx.Err() != nil {
		return false
	}
	srv.conns[conn] = struct{}{}
	srv.wg.Add(1)
	return true
}

func (srv *Server) untrack(conn net.Conn) {
	srv.mutex.Lock()
	defer srv.mutex.Unlock()
	delete(srv.conns, conn)
}

// handleClient runs a single connection to completion.
func (srv *Server) handleClient(conn net.Conn) {
	defer srv.wg.Done()
	defer srv.untrack(conn)
	defer conn.Close()

	srv.stats.Connections.Add(1)
	session := NewClientSession(srv.ctx, conn, srv.config.IdleTimeout)
	session.LogPrintf("[INFO] Client connected")

	defer func() {
		if r := recover(); r != nil {
			srv.stats.Errors.Add(1)
			session.LogPrintf("[ERROR] panic: %v", r)
		}
	}()

	handler := NewCommandHandler(session, srv.store, srv.stats)
	if err := handler.Serve(); err != nil {
		srv.stats.Errors.Add(1)
		session.LogPrintf("[ERROR] %v", err)
	}
	session.LogPrintf("[INFO] Client disconnected")
}

// Addr returns the listening address, or nil before Serve.
func (srv *Server) Addr() net.Addr {
	srv.mutex.Lock()
	defer srv.mutex.Unlock()
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}

// Stop closes the listener and every open connection, then waits for their
// handlers to return.
func (srv *Server) Stop() error {
	srv.mutex.Lock()
	srv.cancel()
	var result *multierror.Error
	if srv.listener != nil {
		if err := srv.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			result = multierror.Append(result, fmt.Errorf("close listener: %w", err))
		}
	}
	for conn := range srv.conns {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", conn.RemoteAddr(), err))
		}
	}
	srv.mutex.Unlock()

	srv.wg.Wait()
	return result.ErrorOrNil()
}
