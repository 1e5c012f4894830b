package terminal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/natelandrum/file-transfer-project/client/transfer"
	"github.com/natelandrum/file-transfer-project/wire"
)

func TestThemePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "theme.json")

	tm, err := NewThemeManager(path)
	if err != nil {
		t.Fatalf("NewThemeManager: %v", err)
	}
	if tm.GetThemeName() != "dark" {
		t.Fatalf("default theme = %s", tm.GetThemeName())
	}
	if err := tm.SetTheme("light"); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	if err := tm.SetTheme("neon"); err == nil {
		t.Fatalf("unknown theme accepted")
	}

	reloaded, err := NewThemeManager(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.GetThemeName() != "light" {
		t.Fatalf("reloaded theme = %s, want light", reloaded.GetThemeName())
	}
}

func TestFormatRemoteFiles(t *testing.T) {
	var buf bytes.Buffer
	tf := NewTableFormatter(&buf)

	if err := tf.FormatRemoteFiles(nil); err != nil {
		t.Fatalf("empty: %v", err)
	}
	if !strings.Contains(buf.String(), "No files available") {
		t.Fatalf("empty listing printed %q", buf.String())
	}

	buf.Reset()
	long := strings.Repeat("x", 80) + ".log"
	if err := tf.FormatRemoteFiles([]string{"report.txt", "README", long}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"report.txt", "TXT", "README", strings.Repeat("x", 47) + "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, long) {
		t.Errorf("long name was not truncated")
	}
}

func TestDisplayNameMultiByte(t *testing.T) {
	name := strings.Repeat("報告", 30) + ".txt"
	got := displayName(name)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated name is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") || runewidth.StringWidth(got) > maxNameWidth {
		t.Fatalf("displayName = %q (width %d)", got, runewidth.StringWidth(got))
	}
	if displayName("short.txt") != "short.txt" {
		t.Fatalf("short name changed")
	}
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		12:              "12 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range cases {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

type fakeLister struct {
	names []string
	err   error
	calls int
}

func (f *fakeLister) List(context.Context) ([]string, error) {
	f.calls++
	return f.names, f.err
}

func texts(t *testing.T, text string, c *CommandCompleter) []string {
	t.Helper()
	var out []string
	for _, s := range c.suggest(text) {
		out = append(out, s.Text)
	}
	return out
}

func TestCompleterCommands(t *testing.T) {
	c := NewCommandCompleter(nil)

	if got := texts(t, "", c); len(got) != len(c.commands) {
		t.Fatalf("empty input suggested %v", got)
	}
	got := texts(t, "d", c)
	if len(got) != 2 || got[0] != "DOWNLOAD" || got[1] != "DELETE" {
		t.Fatalf("\"d\" suggested %v", got)
	}
	if got := texts(t, "th", c); len(got) != 1 || got[0] != "theme" {
		t.Fatalf("\"th\" suggested %v", got)
	}
}

func TestCompleterRemoteNames(t *testing.T) {
	lister := &fakeLister{names: []string{"report.txt", "Readme.md", ".hidden", "notes.txt"}}
	c := NewCommandCompleter(lister)

	got := texts(t, "DOWNLOAD re", c)
	if len(got) != 2 || got[0] != "report.txt" || got[1] != "Readme.md" {
		t.Fatalf("suggested %v", got)
	}
	// Served from cache.
	texts(t, "DELETE n", c)
	if lister.calls != 1 {
		t.Fatalf("List called %d times, want 1", lister.calls)
	}
	if got := texts(t, "delete .", c); len(got) != 1 || got[0] != ".hidden" {
		t.Fatalf("dot prefix suggested %v", got)
	}

	c.RemoveRemoteFile("notes.txt")
	if got := texts(t, "DELETE n", c); len(got) != 0 {
		t.Fatalf("removed name still suggested: %v", got)
	}
}

func TestCompleterKeepsCacheOnError(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}
	c := NewCommandCompleter(lister)
	c.UpdateRemoteFiles([]string{"old.txt"})
	c.lastUpdate = time.Now().Add(-time.Hour)

	if got := texts(t, "DOWNLOAD o", c); len(got) != 1 || got[0] != "old.txt" {
		t.Fatalf("suggested %v", got)
	}
}

func TestCompleterLocalFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"upload_me.bin", "unrelated.txt"} {
		writeFile(t, filepath.Join(dir, name))
	}
	c := NewCommandCompleter(nil)
	c.localDir = dir

	if got := texts(t, "UPLOAD up", c); len(got) != 1 || got[0] != "upload_me.bin" {
		t.Fatalf("suggested %v", got)
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(0, 10); got != ">         " {
		t.Fatalf("0%% = %q", got)
	}
	if got := progressBar(50, 10); got != "=====>    " {
		t.Fatalf("50%% = %q", got)
	}
	if got := progressBar(100, 10); got != "==========" {
		t.Fatalf("100%% = %q", got)
	}
}

func TestProgressPrinterThrottles(t *testing.T) {
	var buf bytes.Buffer
	pp := NewProgressPrinter(&buf)

	pp.Update(transfer.Progress{Op: wire.OpUpload, Name: "a.bin", Transferred: 10, Total: 100, Elapsed: time.Second})
	pp.Update(transfer.Progress{Op: wire.OpUpload, Name: "a.bin", Transferred: 20, Total: 100, Elapsed: time.Second})
	pp.Update(transfer.Progress{Op: wire.OpUpload, Name: "a.bin", Transferred: 100, Total: 100, Elapsed: time.Second})
	pp.Finish()

	out := buf.String()
	if n := strings.Count(out, "\r"); n != 2 {
		t.Fatalf("drew %d times, want 2:\n%q", n, out)
	}
	if !strings.Contains(out, "100.0%") || !strings.HasSuffix(out, "\n") {
		t.Fatalf("final draw = %q", out)
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
