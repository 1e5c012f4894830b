package protocol

import (
	"context"
	"io"
)

// SessionInterface is what a CommandHandler needs from its connection.
type SessionInterface interface {
	// Control messages
	SendResponse(message string) error
	ReadResponse() (string, error)

	// Raw content, after the control exchange. DataReader returns EOF once
	// the peer half-closes its write side.
	DataReader() io.Reader
	DataWriter() io.Writer

	LogPrintf(format string, args ...interface{})
	Context() context.Context
}
