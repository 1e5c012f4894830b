package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"
)

// ParseFlags builds the client configuration from command-line arguments
// and returns the arguments left after the flags, which form a one-shot
// command when present. A bare port in -addr is dialled on localhost.
func ParseFlags(args []string, output io.Writer) (*ClientConfig, []string, error) {
	cfg := DefaultConfig()

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Address, "addr", cfg.Address, "server address (host:port)")
	fs.DurationVar(&cfg.DialTimeout, "timeout", cfg.DialTimeout, "connection timeout")
	fs.DurationVar(&cfg.IOTimeout, "io-timeout", cfg.IOTimeout, "inactivity limit while transferring (0 disables)")
	fs.IntVar(&cfg.ChunkSize, "chunk", cfg.ChunkSize, "transfer chunk size in bytes")
	fs.StringVar(&cfg.DownloadDir, "dir", cfg.DownloadDir, "directory for downloaded files")
	fs.StringVar(&cfg.MetricsFile, "metrics", "", "append completed transfers to this CSV file")
	fs.BoolVar(&cfg.AssumeYes, "yes", false, "overwrite existing server files without asking")
	fs.StringVar(&cfg.ThemeFile, "theme-file", "", "theme settings file")
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: client [flags] [UPLOAD <file> | DOWNLOAD <name> [dir] | LIST | DELETE <name>]")
		fmt.Fprintln(output, "Without a command the client starts an interactive prompt.")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if _, err := strconv.Atoi(cfg.Address); err == nil {
		cfg.Address = net.JoinHostPort("localhost", cfg.Address)
	}
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return nil, nil, fmt.Errorf("invalid -addr %q: %w", cfg.Address, err)
	}
	if cfg.ChunkSize <= 0 {
		return nil, nil, fmt.Errorf("invalid -chunk %d: must be positive", cfg.ChunkSize)
	}
	return cfg, fs.Args(), nil
}
