package protocol

import (
	"github.com/natelandrum/file-transfer-project/server/store"
)

// CommandHandler serves the single command carried by one connection.
type CommandHandler struct {
	session SessionInterface
	store   *store.Store
	stats   *Stats
}

// NewCommandHandler creates a handler bound to one session.
func NewCommandHandler(session SessionInterface, st *store.Store, stats *Stats) *CommandHandler {
	if stats == nil {
		stats = &Stats{}
	}
	return &CommandHandler{session: session, store: st, stats: stats}
}
