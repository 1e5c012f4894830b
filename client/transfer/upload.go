package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natelandrum/file-transfer-project/wire"
)

// Upload sends the file at localPath under its base name and returns the
// server's final status line. Progress updates go to progress, which may be
// nil; when it is not, the caller must keep receiving until Upload returns.
// A declined overwrite returns ErrCanceled.
func (c *Client) Upload(ctx context.Context, localPath string, progress chan<- Progress) (status string, err error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat local file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", localPath)
	}

	name := filepath.Base(localPath)
	if err := wire.ValidateName(name); err != nil {
		return "", fmt.Errorf("%q: %w", name, err)
	}

	s, err := c.open(ctx, wire.Command{Op: wire.OpUpload, Name: name})
	if err != nil {
		return "", err
	}
	defer func() { err = finish(s, err) }()

	reply, err := s.readLine()
	if err != nil {
		return "", err
	}

	// Overwrite negotiation
	if reply == wire.StatusOverwritePrompt {
		overwrite := c.Overwrite != nil && c.Overwrite(name)
		if err := s.send(wire.Answer(overwrite)); err != nil {
			return "", err
		}
		if reply, err = s.readLine(); err != nil {
			return "", err
		}
	}
	switch reply {
	case wire.StatusReady:
	case wire.StatusCanceled:
		return "", ErrCanceled
	default:
		return "", unexpected(reply)
	}

	if err := c.streamFile(ctx, s, file, name, info.Size(), progress); err != nil {
		return "", err
	}
	if err := s.closeWrite(); err != nil {
		return "", err
	}

	status, err = s.readLine()
	if err != nil {
		return "", err
	}
	if status != wire.StatusUploaded {
		return "", unexpected(status)
	}
	return status, nil
}

// streamFile writes the file in ChunkSize pieces, publishing the running
// total after each one.
func (c *Client) streamFile(ctx context.Context, s *session, file *os.File, name string, size int64, progress chan<- Progress) error {
	start := time.Now()
	buf := make([]byte, c.config.ChunkSize)
	var sent int64

	for {
		if err := ctx.Err(); err != nil {
			return s.wrap("send file content", err)
		}
		n, rerr := file.Read(buf)
		if n > 0 {
			if _, err := s.conn.Write(buf[:n]); err != nil {
				return s.wrap("send file content", err)
			}
			sent += int64(n)
			publish(progress, Progress{Op: wire.OpUpload, Name: name, Transferred: sent, Total: size, Elapsed: time.Since(start)})
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return fmt.Errorf("error reading file: %w", rerr)
		}
	}

	publishFinal(ctx, progress, Progress{Op: wire.OpUpload, Name: name, Transferred: sent, Total: size, Elapsed: time.Since(start)})
	return nil
}
