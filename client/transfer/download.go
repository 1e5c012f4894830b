package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/natelandrum/file-transfer-project/wire"
)

// Download fetches name into destDir (the configured download directory
// when empty) and returns the written path. A missing entry returns
// ErrNotFound. Bytes land in a temporary file that replaces destDir/name
// only once the trailer checks out, so a failed download leaves any existing
// local copy untouched.
func (c *Client) Download(ctx context.Context, name, destDir string, progress chan<- Progress) (path string, err error) {
	if err := wire.ValidateName(name); err != nil {
		return "", fmt.Errorf("%q: %w", name, err)
	}
	if destDir == "" {
		destDir = c.config.DownloadDir
	}

	s, err := c.open(ctx, wire.Command{Op: wire.OpDownload, Name: name})
	if err != nil {
		return "", err
	}
	defer func() { err = finish(s, err) }()

	reply, err := s.readLine()
	if err != nil {
		return "", err
	}
	if reply == wire.StatusNotFound {
		return "", ErrNotFound
	}
	size, perr := strconv.ParseInt(reply, 10, 64)
	if perr != nil || size < 0 {
		return "", unexpected(reply)
	}

	out, err := os.CreateTemp(destDir, "."+name+".part*")
	if err != nil {
		// Tell the server not to send anything; it answers "canceled".
		s.send(wire.StatusCanceled)
		return "", fmt.Errorf("failed to create local file: %w", err)
	}

	if err := s.send(wire.ReadyToReceive); err != nil {
		return "", discard(out, err)
	}
	if err := c.receive(ctx, s, out, name, size, progress); err != nil {
		return "", discard(out, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to close local file: %w", err)
	}

	path = filepath.Join(destDir, name)
	if err := os.Rename(out.Name(), path); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}
	return path, nil
}

// receive copies exactly size bytes, then checks the end-of-stream trailer.
func (c *Client) receive(ctx context.Context, s *session, out io.Writer, name string, size int64, progress chan<- Progress) error {
	start := time.Now()
	body := io.LimitReader(s.reader, size)
	buf := make([]byte, c.config.ChunkSize)
	var received int64

	for received < size {
		if err := ctx.Err(); err != nil {
			return s.wrap("receive file content", err)
		}
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("error writing local file: %w", err)
			}
			received += int64(n)
			publish(progress, Progress{Op: wire.OpDownload, Name: name, Transferred: received, Total: size, Elapsed: time.Since(start)})
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return s.wrap("receive file content", rerr)
		}
	}
	if received < size {
		return fmt.Errorf("connection closed after %d of %d bytes: %w", received, size, io.ErrUnexpectedEOF)
	}

	trailer := make([]byte, len(wire.EndOfStream))
	if _, err := io.ReadFull(s.reader, trailer); err != nil {
		return s.wrap("read end of stream", err)
	}
	if !bytes.Equal(trailer, []byte(wire.EndOfStream)) {
		return unexpected(string(trailer))
	}

	publishFinal(ctx, progress, Progress{Op: wire.OpDownload, Name: name, Transferred: received, Total: size, Elapsed: time.Since(start)})
	return nil
}

// discard closes and removes the temporary download file.
func discard(f *os.File, err error) error {
	var result *multierror.Error
	result = multierror.Append(result, err)
	if cerr := f.Close(); cerr != nil {
		result = multierror.Append(result, cerr)
	}
	if rerr := os.Remove(f.Name()); rerr != nil {
		result = multierror.Append(result, rerr)
	}
	if len(result.Errors) == 1 {
		return err
	}
	return result
}
