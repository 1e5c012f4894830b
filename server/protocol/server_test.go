package protocol

import (
	"bufio"
	"context"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/natelandrum/file-transfer-project/server/store"
	"github.com/natelandrum/file-transfer-project/wire"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type testServer struct {
	srv  *Server
	st   *store.Store
	addr string
	root string
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "server_files"), time.Second)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(st, ServerConfig{MaxConnections: 16, IdleTimeout: 5 * time.Second})
	go srv.Serve(listener)
	t.Cleanup(func() { srv.Stop() })
	return &testServer{srv: srv, st: st, addr: listener.Addr().String(), root: st.Root()}
}

// rawConn speaks the protocol by hand.
type rawConn struct {
	t    *testing.T
	conn *net.TCPConn
	r    *bufio.Reader
}

func (ts *testServer) dial(t *testing.T, command string) *rawConn {
	t.Helper()
	conn, err := net.Dial("tcp", ts.addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	t.Cleanup(func() { conn.Close() })
	rc := &rawConn{t: t, conn: conn.(*net.TCPConn), r: bufio.NewReader(conn)}
	rc.send(command)
	return rc
}

func (rc *rawConn) send(line string) {
	rc.t.Helper()
	if err := wire.WriteLine(rc.conn, line); err != nil {
		rc.t.Fatalf("send %q: %v", line, err)
	}
}

func (rc *rawConn) expect(want string) {
	rc.t.Helper()
	got, err := wire.ReadLine(rc.r)
	if err != nil {
		rc.t.Fatalf("waiting for %q: %v", want, err)
	}
	if got != want {
		rc.t.Fatalf("got %q, want %q", got, want)
	}
}

func (rc *rawConn) rest() string {
	rc.t.Helper()
	data, err := io.ReadAll(rc.r)
	if err != nil {
		rc.t.Fatalf("read to end: %v", err)
	}
	return string(data)
}

func (ts *testServer) upload(t *testing.T, name, content string) {
	t.Helper()
	rc := ts.dial(t, wire.Command{Op: wire.OpUpload, Name: name}.String())
	rc.expect(wire.StatusReady)
	io.WriteString(rc.conn, content)
	rc.conn.CloseWrite()
	rc.expect(wire.StatusUploaded)
}

func TestReportScenario(t *testing.T) {
	ts := startServer(t)
	ts.upload(t, "report.txt", "hello world!")

	rc := ts.dial(t, "DOWNLOAD report.txt")
	rc.expect("12")
	rc.send(wire.ReadyToReceive)
	if got := rc.rest(); got != "hello world!"+wire.EndOfStream {
		t.Fatalf("download stream = %q", got)
	}

	data, err := os.ReadFile(filepath.Join(ts.root, "report.txt"))
	if err != nil || string(data) != "hello world!" {
		t.Fatalf("stored %q, %v", data, err)
	}
}

func TestListEmptyAndPopulated(t *testing.T) {
	ts := startServer(t)
	rc := ts.dial(t, "LIST")
	rc.expect(wire.StatusNoFiles)

	want := []string{"a.txt", "b c.bin", "z"}
	for _, name := range want {
		ts.upload(t, name, name)
	}
	rc = ts.dial(t, "LIST")
	got := strings.Split(strings.TrimRight(rc.rest(), "\n"), "\n")
	sort.Strings(got)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("LIST = %q, want %q", got, want)
	}
}

func TestOverwriteDeclined(t *testing.T) {
	ts := startServer(t)
	ts.upload(t, "keep.txt", "original")

	rc := ts.dial(t, "UPLOAD keep.txt")
	rc.expect(wire.StatusOverwritePrompt)
	rc.send("no")
	rc.expect(wire.StatusCanceled)

	data, _ := os.ReadFile(filepath.Join(ts.root, "keep.txt"))
	if string(data) != "original" {
		t.Fatalf("content changed to %q", data)
	}
}

func TestOverwriteAccepted(t *testing.T) {
	ts := startServer(t)
	ts.upload(t, "doc", "first version, longer")

	rc := ts.dial(t, "UPLOAD doc")
	rc.expect(wire.StatusOverwritePrompt)
	rc.send("yes")
	rc.expect(wire.StatusReady)
	io.WriteString(rc.conn, "v2")
	rc.conn.CloseWrite()
	rc.expect(wire.StatusUploaded)

	data, _ := os.ReadFile(filepath.Join(ts.root, "doc"))
	if string(data) != "v2" {
		t.Fatalf("content = %q", data)
	}
}

func TestReadinessMismatch(t *testing.T) {
	ts := startServer(t)
	ts.upload(t, "f", "data")

	rc := ts.dial(t, "DOWNLOAD f")
	rc.expect("4")
	rc.send("Ready to receive!!")
	rc.expect(wire.StatusCanceled)
	if rest := rc.rest(); rest != "" {
		t.Fatalf("bytes sent after cancel: %q", rest)
	}
}

func TestNotFound(t *testing.T) {
	ts := startServer(t)
	ts.dial(t, "DOWNLOAD missing").expect(wire.StatusNotFound)
	ts.dial(t, "DELETE missing").expect(wire.StatusNotFound)
}

func TestDeleteThenDownload(t *testing.T) {
	ts := startServer(t)
	ts.upload(t, "tmp", "x")
	ts.dial(t, "DELETE tmp").expect(wire.StatusDeleted)
	ts.dial(t, "DOWNLOAD tmp").expect(wire.StatusNotFound)
}

func TestInvalidRequests(t *testing.T) {
	ts := startServer(t)
	for _, line := range []string{"HELLO", "UPLOAD", "UPLOAD ../escape", "DELETE a%2Fb", "DOWNLOAD .."} {
		ts.dial(t, line).expect(wire.StatusInvalidRequest)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(ts.root), "escape")); !os.IsNotExist(err) {
		t.Fatalf("traversal created a file outside the store")
	}
	if n := ts.srv.Stats().Invalid.Load(); n != 5 {
		t.Fatalf("invalid counter = %d", n)
	}
}

func TestEmptyUpload(t *testing.T) {
	ts := startServer(t)
	ts.upload(t, "empty", "")
	rc := ts.dial(t, "DOWNLOAD empty")
	rc.expect("0")
	rc.send(wire.ReadyToReceive)
	if got := rc.rest(); got != wire.EndOfStream {
		t.Fatalf("stream = %q", got)
	}
}

func TestStopClosesIdleConnections(t *testing.T) {
	ts := startServer(t)
	conn, err := net.Dial("tcp", ts.addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	// Give the server a moment to register the connection.
	time.Sleep(20 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- ts.srv.Stop() }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("Stop did not return")
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Fatalf("connection still open after Stop")
	}
}

func TestUploadLockTimeoutDropsConnection(t *testing.T) {
	ts := startServer(t)

	w, err := ts.st.OpenWriter(context.Background(), "busy.txt")
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	defer w.Close()

	rc := ts.dial(t, "UPLOAD busy.txt")
	rc.expect(wire.StatusOverwritePrompt)
	rc.send(wire.AnswerYes)
	if got := rc.rest(); got != "" {
		t.Fatalf("connection ended with %q, want no status line", got)
	}

	stats := ts.srv.Stats()
	if stats.Errors.Load() != 1 || stats.Uploads.Load() != 0 {
		t.Fatalf("stats after lock timeout: %s", stats)
	}
}

func TestUploadResetByPeer(t *testing.T) {
	ts := startServer(t)

	rc := ts.dial(t, "UPLOAD reset.bin")
	rc.expect(wire.StatusReady)
	if _, err := rc.conn.Write([]byte("partial")); err != nil {
		t.Fatalf("write: %v", err)
	}
	rc.conn.SetLinger(0)
	rc.conn.Close()

	stats := ts.srv.Stats()
	deadline := time.Now().Add(3 * time.Second)
	for stats.Errors.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("reset upload was not reported as an error: %s", stats)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if stats.Uploads.Load() != 0 {
		t.Fatalf("reset upload counted as stored: %s", stats)
	}
}
