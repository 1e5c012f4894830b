package perfmetrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "transfers.csv")
	l := NewLogger(path)

	for _, name := range []string{"a.txt", "b, with comma.txt"} {
		err := l.Log(Record{Operation: "UPLOAD", FileName: name, Bytes: 2 * 1024 * 1024, Duration: time.Second})
		if err != nil {
			t.Fatalf("Log(%s): %v", name, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "Timestamp" || rows[0][2] != "Operation" {
		t.Fatalf("header = %v", rows[0])
	}
	second := rows[2]
	if second[1] != "fileshare-client" || second[3] != "b, with comma.txt" || second[4] != "2097152" {
		t.Fatalf("row = %v", second)
	}
	if second[6] != "2.00" {
		t.Fatalf("throughput = %s, want 2.00", second[6])
	}
}

func TestThroughputZeroDuration(t *testing.T) {
	if got := (Record{Bytes: 10}).ThroughputMBps(); got != 0 {
		t.Fatalf("ThroughputMBps = %v, want 0", got)
	}
}

func TestLogKeepsClientAndPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transfers.csv")
	l := NewLogger(path)
	if l.Path() != path {
		t.Fatalf("Path = %s, want %s", l.Path(), path)
	}
	if err := l.Log(Record{Client: "10.0.0.5:5000", Operation: "DOWNLOAD", FileName: "x"}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil || len(rows) != 2 || rows[1][1] != "10.0.0.5:5000" {
		t.Fatalf("rows = %v, %v", rows, err)
	}
}
