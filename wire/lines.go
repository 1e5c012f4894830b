package wire

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// MaxLineLength bounds a single control line, terminator included.
const MaxLineLength = 4096

// ErrLineTooLong is returned by ReadLine when no terminator shows up within
// MaxLineLength bytes.
var ErrLineTooLong = errors.New("control line too long")

// ReadLine reads one control line and strips its "\n" or "\r\n" terminator.
// A final unterminated line before EOF is returned as is.
func ReadLine(r *bufio.Reader) (string, error) {
	var line []byte
	for {
		frag, err := r.ReadSlice('\n')
		line = append(line, frag...)
		if len(line) > MaxLineLength {
			return "", ErrLineTooLong
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(line) > 0 {
			break
		}
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

// WriteLine writes msg followed by "\n".
func WriteLine(w io.Writer, msg string) error {
	_, err := io.WriteString(w, msg+"\n")
	return err
}
