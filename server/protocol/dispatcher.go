package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/natelandrum/file-transfer-project/wire"
)

// Serve reads the command line and runs it to completion. A returned error
// means the exchange broke off without a final status line.
func (h *CommandHandler) Serve() error {
	line, err := h.session.ReadResponse()
	if errors.Is(err, io.EOF) {
		// Peer connected and left without a command.
		return nil
	}
	if err != nil {
		return fmt.Errorf("read command: %w", err)
	}
	return h.HandleCommand(line)
}

// HandleCommand routes a command line to its handler.
func (h *CommandHandler) HandleCommand(line string) error {
	cmd, err := wire.ParseCommand(line)
	if err != nil {
		h.stats.Invalid.Add(1)
		h.session.LogPrintf("[INVALID] %v", err)
		return h.session.SendResponse(wire.StatusInvalidRequest)
	}
	h.session.LogPrintf("[COMMAND] %s", cmd.String())

	switch cmd.Op {
	case wire.OpUpload:
		return h.HandleUPLOAD(cmd.Name)
	case wire.OpDownload:
		return h.HandleDOWNLOAD(cmd.Name)
	case wire.OpDelete:
		return h.HandleDELETE(cmd.Name)
	case wire.OpList:
		return h.HandleLIST()
	default:
		h.stats.Invalid.Add(1)
		return h.session.SendResponse(wire.StatusInvalidRequest)
	}
}
