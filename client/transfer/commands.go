package transfer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/natelandrum/file-transfer-project/wire"
)

// List returns the names stored on the server. An empty store yields an
// empty slice.
func (c *Client) List(ctx context.Context) (names []string, err error) {
	s, err := c.open(ctx, wire.Command{Op: wire.OpList})
	if err != nil {
		return nil, err
	}
	defer func() { err = finish(s, err) }()

	// The reply runs until the server closes the connection.
	data, err := io.ReadAll(s.reader)
	if err != nil {
		return nil, s.wrap("read listing", err)
	}
	reply := strings.TrimRight(string(data), "\r\n")

	switch reply {
	case wire.StatusNoFiles:
		return []string{}, nil
	case wire.StatusInvalidRequest, "":
		return nil, unexpected(reply)
	}

	names = []string{}
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// Delete removes name on the server and returns the status line, which is
// either "deleted successfully" or "not found".
func (c *Client) Delete(ctx context.Context, name string) (status string, err error) {
	if err := wire.ValidateName(name); err != nil {
		return "", fmt.Errorf("%q: %w", name, err)
	}
	s, err := c.open(ctx, wire.Command{Op: wire.OpDelete, Name: name})
	if err != nil {
		return "", err
	}
	defer func() { err = finish(s, err) }()

	status, err = s.readLine()
	if err != nil {
		return "", err
	}
	switch status {
	case wire.StatusDeleted, wire.StatusNotFound:
		return status, nil
	}
	return "", unexpected(status)
}
