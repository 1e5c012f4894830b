package wire

import "strings"

// Control messages exchanged on a connection. Each one travels as a single
// newline-terminated line.
const (
	StatusOverwritePrompt = "exists, overwrite?"
	StatusCanceled        = "canceled"
	StatusReady           = "ready"
	StatusUploaded        = "uploaded successfully"
	StatusNotFound        = "not found"
	StatusDeleted         = "deleted successfully"
	StatusNoFiles         = "no files available"
	StatusInvalidRequest  = "invalid request"

	AnswerYes = "yes"
	AnswerNo  = "no"

	// ReadyToReceive is the readiness token a downloading client sends after
	// the size announcement.
	ReadyToReceive = "ready to receive"

	// EndOfStream trails the announced number of content bytes on a download.
	// Receivers read exactly the announced size first, so content containing
	// these bytes is never mistaken for the end of the stream.
	EndOfStream = "<EOF>"
)

// IsAffirmative reports whether an overwrite answer allows the upload.
func IsAffirmative(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), AnswerYes)
}

// Answer returns the token for an overwrite decision.
func Answer(overwrite bool) string {
	if overwrite {
		return AnswerYes
	}
	return AnswerNo
}
