package wire

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Op names one of the four operations a connection can carry.
type Op string

const (
	OpUpload   Op = "UPLOAD"
	OpDownload Op = "DOWNLOAD"
	OpDelete   Op = "DELETE"
	OpList     Op = "LIST"
)

// ErrInvalidRequest covers unknown commands, missing arguments and
// undecodable or unsafe file names.
var ErrInvalidRequest = errors.New("invalid request")

// Command is the first line of a connection, decoded.
type Command struct {
	Op   Op
	Name string // percent-decoded; empty for LIST
}

// NeedsName reports whether op takes a file name argument.
func (op Op) NeedsName() bool {
	switch op {
	case OpUpload, OpDownload, OpDelete:
		return true
	}
	return false
}

// String encodes the command as it travels on the wire, without terminator.
func (c Command) String() string {
	if !c.Op.NeedsName() {
		return string(c.Op)
	}
	return string(c.Op) + " " + url.PathEscape(c.Name)
}

// ParseCommand decodes a command line. Verbs are case-insensitive.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	verb, arg, _ := strings.Cut(line, " ")
	op := Op(strings.ToUpper(verb))

	switch op {
	case OpList:
		return Command{Op: OpList}, nil
	case OpUpload, OpDownload, OpDelete:
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrInvalidRequest, verb)
	}

	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Command{}, fmt.Errorf("%w: %s requires a file name", ErrInvalidRequest, op)
	}
	name, err := url.PathUnescape(arg)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := ValidateName(name); err != nil {
		return Command{}, fmt.Errorf("%w: %q: %v", ErrInvalidRequest, name, err)
	}
	return Command{Op: op, Name: name}, nil
}
