package config

import "time"

// ClientConfig holds the connection settings and local preferences.
type ClientConfig struct {
	Address     string        // Example: "localhost:5000"
	DialTimeout time.Duration
	IOTimeout   time.Duration // inactivity limit per read/write; 0 disables
	ChunkSize   int           // upload chunk and progress granularity
	DownloadDir string
	MetricsFile string // CSV file for transfer metrics; empty disables
	AssumeYes   bool   // answer overwrite prompts without asking
	ThemeFile   string // empty selects the file in the home directory
}

// DefaultConfig returns the client defaults.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Address:     "localhost:5000",
		DialTimeout: 10 * time.Second,
		IOTimeout:   2 * time.Minute,
		ChunkSize:   64 * 1024,
		DownloadDir: ".",
	}
}
