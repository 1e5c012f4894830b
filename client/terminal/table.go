package terminal

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// maxNameWidth truncates long names in the listing.
const maxNameWidth = 50

// TableFormatter renders remote listings.
type TableFormatter struct {
	table *tablewriter.Table
	out   io.Writer
}

// NewTableFormatter creates a formatter that writes to out.
func NewTableFormatter(out io.Writer) *TableFormatter {
	table := tablewriter.NewWriter(out)
	table.Options(
		tablewriter.WithRendition(tw.Rendition{Borders: tw.Border{Left: tw.Pending, Right: tw.Pending, Top: tw.Pending, Bottom: tw.Pending}}),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
	)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.MaxWidth = 0
		cfg.Header = tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		}
		cfg.Row = tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		}
		cfg.Behavior = tw.Behavior{}
	})
	return &TableFormatter{table: table, out: out}
}

// FormatRemoteFiles renders the names returned by LIST.
func (tf *TableFormatter) FormatRemoteFiles(names []string) error {
	if len(names) == 0 {
		fmt.Fprintln(tf.out, "No files available on the server")
		return nil
	}

	tf.table.Reset()
	tf.table.Header("#", "Name", "Type")
	for i, name := range names {
		tf.table.Append([]string{strconv.Itoa(i + 1), displayName(name), fileType(name)})
	}
	return tf.table.Render()
}

// displayName cuts by display width so multi-byte names stay valid UTF-8.
func displayName(name string) string {
	return runewidth.Truncate(name, maxNameWidth, "...")
}

// fileType shows the extension in caps.
func fileType(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "file"
	}
	return strings.ToUpper(ext)
}

// FormatSize formats a byte count in human-readable form.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
