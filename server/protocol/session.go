package protocol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/natelandrum/file-transfer-project/wire"
)

// idleConn pushes the connection deadline forward on every read and write,
// so a transfer can run as long as it keeps moving but a stalled peer is
// dropped after timeout.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Read(p)
}

func (c *idleConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		c.Conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Write(p)
}

// ClientSession is the server side of one connection.
type ClientSession struct {
	conn   *idleConn
	reader *bufio.Reader
	logger *log.Logger
	ctx    context.Context
}

// NewClientSession wraps conn. Log lines carry the peer address and a short
// connection ID.
func NewClientSession(ctx context.Context, conn net.Conn, idleTimeout time.Duration) *ClientSession {
	id := uuid.NewString()[:8]
	ic := &idleConn{Conn: conn, timeout: idleTimeout}
	return &ClientSession{
		conn:   ic,
		reader: bufio.NewReaderSize(ic, 64*1024),
		logger: log.New(log.Writer(), fmt.Sprintf("[%s %s] ", conn.RemoteAddr(), id), log.Flags()),
		ctx:    ctx,
	}
}

func (s *ClientSession) SendResponse(message string) error {
	if err := wire.WriteLine(s.conn, message); err != nil {
		s.logger.Printf("Failed to send %q: %v", message, err)
		return err
	}
	if n := strings.Count(message, "\n"); n > 0 {
		s.logger.Printf("→ Sent: %d lines", n+1)
	} else {
		s.logger.Printf("→ Sent: %s", message)
	}
	return nil
}

func (s *ClientSession) ReadResponse() (string, error) {
	return wire.ReadLine(s.reader)
}

func (s *ClientSession) DataReader() io.Reader {
	return s.reader
}

func (s *ClientSession) DataWriter() io.Writer {
	return s.conn
}

func (s *ClientSession) LogPrintf(format string, args ...interface{}) {
	s.logger.Printf(format, args...)
}

func (s *ClientSession) Context() context.Context {
	return s.ctx
}
