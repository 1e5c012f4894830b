package perfmetrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CsvHeader defines the CSV header for transfer logging
const CsvHeader = "Timestamp,Client,Operation,FileName,Bytes,TimeSec,ThroughputMBps\n"

// Record describes one completed transfer.
type Record struct {
	Time      time.Time
	Client    string
	Operation string
	FileName  string
	Bytes     int64
	Duration  time.Duration
}

// ThroughputMBps returns the average rate in MiB per second.
func (r Record) ThroughputMBps() float64 {
	secs := r.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Bytes) / (1024 * 1024) / secs
}

// Logger appends records to a CSV file.
type Logger struct {
	path string
}

// NewLogger returns a logger writing to path. The file and its directory
// are created on first use.
func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

// Path returns the CSV file location.
func (l *Logger) Path() string {
	return l.path
}

// Log appends rec, writing the header first when the file is new.
func (l *Logger) Log(rec Record) error {
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if file exists to determine if we need to write header
	fileExists := true
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		fileExists = false
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", l.path, err)
	}
	defer file.Close()

	if !fileExists {
		if _, err := file.WriteString(CsvHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	if rec.Client == "" {
		rec.Client = "fileshare-client"
	}

	writer := csv.NewWriter(file)
	record := []string{
		rec.Time.Format(time.RFC3339),
		rec.Client,
		rec.Operation,
		rec.FileName,
		strconv.FormatInt(rec.Bytes, 10),
		strconv.FormatFloat(rec.Duration.Seconds(), 'f', 2, 64),
		strconv.FormatFloat(rec.ThroughputMBps(), 'f', 2, 64),
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV record: %w", err)
	}

	// Ensure data is written to disk
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}
