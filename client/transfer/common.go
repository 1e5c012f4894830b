// Package transfer drives the client half of the file-share protocol. Every
// operation dials its own connection, runs one command and closes it.
package transfer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/natelandrum/file-transfer-project/client/config"
	"github.com/natelandrum/file-transfer-project/wire"
)

var (
	// ErrCanceled means the server refused to go on, most often because the
	// overwrite prompt was declined.
	ErrCanceled = errors.New("transfer canceled")
	// ErrNotFound means the named entry does not exist on the server.
	ErrNotFound = errors.New("file not found on server")
	// ErrUnexpectedReply means the server answered outside the protocol.
	ErrUnexpectedReply = errors.New("unexpected reply from server")
)

// OverwriteFunc decides whether an existing remote entry may be replaced.
type OverwriteFunc func(name string) bool

// Progress is published while bytes move.
type Progress struct {
	Op          wire.Op
	Name        string
	Transferred int64
	Total       int64
	Elapsed     time.Duration
}

// Percent returns completion in the range 0-100.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 100
	}
	return float64(p.Transferred) / float64(p.Total) * 100
}

// Client issues operations against one server.
type Client struct {
	config *config.ClientConfig

	// Overwrite is asked when an upload targets an existing entry. A nil
	// func declines.
	Overwrite OverwriteFunc
}

// New creates a client. Empty Address, DialTimeout, ChunkSize and
// DownloadDir fall back to the defaults; a zero IOTimeout disables it.
func New(cfg *config.ClientConfig) *Client {
	merged := *config.DefaultConfig()
	if cfg != nil {
		if cfg.Address != "" {
			merged.Address = cfg.Address
		}
		if cfg.DialTimeout > 0 {
			merged.DialTimeout = cfg.DialTimeout
		}
		if cfg.ChunkSize > 0 {
			merged.ChunkSize = cfg.ChunkSize
		}
		if cfg.DownloadDir != "" {
			merged.DownloadDir = cfg.DownloadDir
		}
		merged.IOTimeout = cfg.IOTimeout
		merged.MetricsFile = cfg.MetricsFile
		merged.AssumeYes = cfg.AssumeYes
	}
	c := &Client{config: &merged}
	if merged.AssumeYes {
		c.Overwrite = func(string) bool { return true }
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() *config.ClientConfig {
	return c.config
}

// idleConn refreshes the deadline before every read and write. Once ctx is
// done every call fails, so a refresh cannot undo a cancellation.
type idleConn struct {
	net.Conn
	ctx     context.Context
	timeout time.Duration
}

func (ic *idleConn) Read(p []byte) (int, error) {
	if err := ic.ctx.Err(); err != nil {
		return 0, err
	}
	if ic.timeout > 0 {
		ic.Conn.SetReadDeadline(time.Now().Add(ic.timeout))
	}
	return ic.Conn.Read(p)
}

func (ic *idleConn) Write(p []byte) (int, error) {
	if err := ic.ctx.Err(); err != nil {
		return 0, err
	}
	if ic.timeout > 0 {
		ic.Conn.SetWriteDeadline(time.Now().Add(ic.timeout))
	}
	return ic.Conn.Write(p)
}

// session is one connection carrying one command.
type session struct {
	ctx    context.Context
	raw    net.Conn
	conn   *idleConn
	reader *bufio.Reader
	stop   func() bool
}

// open dials the server and sends cmd. Cancelling ctx forces every pending
// read and write on the connection to fail.
func (c *Client) open(ctx context.Context, cmd wire.Command) (*session, error) {
	dialer := net.Dialer{Timeout: c.config.DialTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", c.config.Address)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.config.Address, err)
	}
	ic := &idleConn{Conn: raw, ctx: ctx, timeout: c.config.IOTimeout}
	s := &session{
		ctx:    ctx,
		raw:    raw,
		conn:   ic,
		reader: bufio.NewReaderSize(ic, 64*1024),
		stop: context.AfterFunc(ctx, func() {
			raw.SetDeadline(time.Now())
		}),
	}
	if err := s.send(cmd.String()); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// wrap prefers the context's error when cancellation caused err.
func (s *session) wrap(op string, err error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *session) send(line string) error {
	if err := wire.WriteLine(s.conn, line); err != nil {
		return s.wrap("send", err)
	}
	return nil
}

func (s *session) readLine() (string, error) {
	line, err := wire.ReadLine(s.reader)
	if err != nil {
		return "", s.wrap("read reply", err)
	}
	return line, nil
}

// closeWrite signals end of upload data, which commits the upload on the
// server, so it is skipped once ctx is done.
func (s *session) closeWrite() error {
	if err := s.ctx.Err(); err != nil {
		return s.wrap("half-close", err)
	}
	if cw, ok := s.raw.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			return s.wrap("half-close", err)
		}
		return nil
	}
	return fmt.Errorf("half-close: %T does not support it", s.raw)
}

func (s *session) close() error {
	s.stop()
	return s.raw.Close()
}

// finish closes s and folds a close failure into err.
func finish(s *session, err error) error {
	if cerr := s.close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		if err == nil {
			return fmt.Errorf("close connection: %w", cerr)
		}
		return multierror.Append(err, fmt.Errorf("close connection: %w", cerr))
	}
	return err
}

func unexpected(reply string) error {
	return fmt.Errorf("%w: %q", ErrUnexpectedReply, reply)
}

// publish never blocks the transfer on a slow consumer.
func publish(ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
	}
}

// publishFinal waits for the consumer so the last update is not dropped.
func publishFinal(ctx context.Context, ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	case <-ctx.Done():
	}
}
