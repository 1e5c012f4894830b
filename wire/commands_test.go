package wire

import (
	"bufio"
	"errors"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"LIST", Command{Op: OpList}},
		{"list\r", Command{Op: OpList}},
		{"UPLOAD report.txt", Command{Op: OpUpload, Name: "report.txt"}},
		{"DOWNLOAD my%20notes.txt", Command{Op: OpDownload, Name: "my notes.txt"}},
		{"delete a+b.bin", Command{Op: OpDelete, Name: "a+b.bin"}},
	}
	for _, c := range cases {
		got, err := ParseCommand(c.line)
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", c.line, err)
		}
		if got != c.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", c.line, got, c.want)
		}
	}
}

func TestParseCommandRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"FETCH x",
		"UPLOAD",
		"DOWNLOAD   ",
		"DELETE ../etc/passwd",
		"UPLOAD a%2Fb",
		"UPLOAD %2E%2E",
		"UPLOAD bad%zz",
		"UPLOAD line%0Abreak",
	} {
		if _, err := ParseCommand(line); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("ParseCommand(%q) err = %v, want ErrInvalidRequest", line, err)
		}
	}
}

func TestCommandStringRoundTrip(t *testing.T) {
	for _, name := range []string{"plain.txt", "with space.txt", "percent%25.txt", "ünïcode.bin", "q?a#b"} {
		cmd := Command{Op: OpUpload, Name: name}
		got, err := ParseCommand(cmd.String())
		if err != nil {
			t.Fatalf("ParseCommand(%q): %v", cmd.String(), err)
		}
		if got != cmd {
			t.Errorf("round trip of %q = %+v", name, got)
		}
	}
	if s := (Command{Op: OpList}).String(); s != "LIST" {
		t.Errorf("LIST encodes as %q", s)
	}
}

func TestValidateName(t *testing.T) {
	good := []string{"a", "report.txt", ".hidden", "x..y"}
	bad := []string{"", ".", "..", "a/b", `a\b`, "C:evil", "nul\x00", StatusNoFiles, "tab\tname", strings.Repeat("x", MaxNameLength+1)}
	for _, n := range good {
		if err := ValidateName(n); err != nil {
			t.Errorf("ValidateName(%q) = %v", n, err)
		}
	}
	for _, n := range bad {
		if err := ValidateName(n); err == nil {
			t.Errorf("ValidateName(%q) accepted", n)
		}
	}
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("first\r\nsecond\nlast"))
	for _, want := range []string{"first", "second", "last"} {
		got, err := ReadLine(r)
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if got != want {
			t.Fatalf("ReadLine = %q, want %q", got, want)
		}
	}
	if _, err := ReadLine(r); err == nil {
		t.Fatalf("expected EOF after last line")
	}
}

func TestReadLineTooLong(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader(strings.Repeat("a", MaxLineLength+10)+"\n"), 16)
	if _, err := ReadLine(r); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("err = %v, want ErrLineTooLong", err)
	}
}

func TestIsAffirmative(t *testing.T) {
	if !IsAffirmative("yes") || !IsAffirmative(" YES ") {
		t.Fatalf("yes not affirmative")
	}
	if IsAffirmative("no") || IsAffirmative("y") || IsAffirmative("") {
		t.Fatalf("non-yes treated as affirmative")
	}
}
