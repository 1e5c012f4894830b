package protocol

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/natelandrum/file-transfer-project/server/store"
	"github.com/natelandrum/file-transfer-project/wire"
)

// HandleUPLOAD stores the bytes the peer sends until it half-closes.
func (h *CommandHandler) HandleUPLOAD(name string) error {
	exists, err := h.store.Exists(name)
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}

	if exists {
		if err := h.session.SendResponse(wire.StatusOverwritePrompt); err != nil {
			return err
		}
		answer, err := h.session.ReadResponse()
		if err != nil {
			return fmt.Errorf("read overwrite decision: %w", err)
		}
		if !wire.IsAffirmative(answer) {
			h.stats.Canceled.Add(1)
			h.session.LogPrintf("[UPLOAD] %s: overwrite declined (%q)", name, answer)
			return h.session.SendResponse(wire.StatusCanceled)
		}
	}

	w, err := h.store.OpenWriter(h.session.Context(), name)
	if err != nil {
		return fmt.Errorf("open %s for writing: %w", name, err)
	}
	h.logLockWait(name, w.LockWait())
	if err := h.session.SendResponse(wire.StatusReady); err != nil {
		w.Close()
		return err
	}

	var result *multierror.Error
	if _, err := io.Copy(w, h.session.DataReader()); err != nil {
		result = multierror.Append(result, fmt.Errorf("receive %s: %w", name, err))
	}
	if err := w.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("store %s: %w", name, err))
	}
	h.stats.BytesIn.Add(w.Written())
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	h.stats.Uploads.Add(1)
	h.session.LogPrintf("[UPLOAD] %s: %d bytes stored", name, w.Written())
	return h.session.SendResponse(wire.StatusUploaded)
}

// HandleDOWNLOAD announces the entry's size, waits for the readiness token
// and streams exactly that many bytes followed by the end-of-stream trailer.
func (h *CommandHandler) HandleDOWNLOAD(name string) error {
	r, err := h.store.OpenReader(h.session.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		h.stats.NotFound.Add(1)
		return h.session.SendResponse(wire.StatusNotFound)
	}
	if err != nil {
		return fmt.Errorf("open %s for reading: %w", name, err)
	}
	defer r.Close()
	h.logLockWait(name, r.LockWait())

	if err := h.session.SendResponse(strconv.FormatInt(r.Size, 10)); err != nil {
		return err
	}
	token, err := h.session.ReadResponse()
	if err != nil {
		return fmt.Errorf("read readiness token: %w", err)
	}
	if token != wire.ReadyToReceive {
		h.stats.Canceled.Add(1)
		h.session.LogPrintf("[DOWNLOAD] %s: unexpected readiness token %q", name, token)
		return h.session.SendResponse(wire.StatusCanceled)
	}

	out := h.session.DataWriter()
	n, err := io.CopyN(out, r, r.Size)
	h.stats.BytesOut.Add(n)
	if err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	if _, err := io.WriteString(out, wire.EndOfStream); err != nil {
		return fmt.Errorf("send end of stream: %w", err)
	}

	h.stats.Downloads.Add(1)
	h.session.LogPrintf("[DOWNLOAD] %s: %d bytes sent", name, n)
	return nil
}

// HandleDELETE removes an entry.
func (h *CommandHandler) HandleDELETE(name string) error {
	err := h.store.Remove(h.session.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		h.stats.NotFound.Add(1)
		return h.session.SendResponse(wire.StatusNotFound)
	}
	if err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	h.stats.Deletes.Add(1)
	h.session.LogPrintf("[DELETE] %s removed", name)
	return h.session.SendResponse(wire.StatusDeleted)
}

// HandleLIST replies with every entry name, one per line.
func (h *CommandHandler) HandleLIST() error {
	names, err := h.store.List()
	if err != nil {
		return err
	}
	h.stats.Lists.Add(1)
	if len(names) == 0 {
		return h.session.SendResponse(wire.StatusNoFiles)
	}
	h.session.LogPrintf("[LIST] %d entries", len(names))
	return h.session.SendResponse(strings.Join(names, "\n"))
}

func (h *CommandHandler) logLockWait(name string, waited time.Duration) {
	if waited >= time.Millisecond {
		h.session.LogPrintf("[LOCK] %s: waited %v for another transfer", name, waited.Round(time.Millisecond))
	}
}
