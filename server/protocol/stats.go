package protocol

import (
	"fmt"
	"sync/atomic"
)

// Stats counts what the server has done since it started.
type Stats struct {
	Connections atomic.Int64
	Uploads     atomic.Int64
	Downloads   atomic.Int64
	Deletes     atomic.Int64
	Lists       atomic.Int64
	NotFound    atomic.Int64
	Canceled    atomic.Int64
	Invalid     atomic.Int64
	Errors      atomic.Int64
	BytesIn     atomic.Int64
	BytesOut    atomic.Int64
}

func (s *Stats) String() string {
	return fmt.Sprintf(
		"connections=%d uploads=%d downloads=%d deletes=%d lists=%d not_found=%d canceled=%d invalid=%d errors=%d bytes_in=%d bytes_out=%d",
		s.Connections.Load(), s.Uploads.Load(), s.Downloads.Load(), s.Deletes.Load(), s.Lists.Load(),
		s.NotFound.Load(), s.Canceled.Load(), s.Invalid.Load(), s.Errors.Load(),
		s.BytesIn.Load(), s.BytesOut.Load(),
	)
}
