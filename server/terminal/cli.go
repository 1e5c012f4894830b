package terminal

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const Version = "1.0"

// Config holds the server configuration
type Config struct {
	Host           string        `yaml:"host"`
	ListenPort     int           `yaml:"port"`
	RootDir        string        `yaml:"rootDir"`
	MaxConnections int           `yaml:"maxConnections"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	LockTimeout    time.Duration `yaml:"lockTimeout"`
	LogFile        string        `yaml:"logFile"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:           "",
		ListenPort:     5000,
		RootDir:        "server_files",
		MaxConnections: 256,
		IdleTimeout:    5 * time.Minute,
		LockTimeout:    30 * time.Second,
	}
}

// Addr returns the host:port to listen on
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.ListenPort))
}

// LoadConfigFile overlays the YAML file at path onto config
func LoadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

// ParseFlags parses command line arguments. Values come from the defaults,
// then the -config file, then explicitly set flags, then the positional
// [port] [root_directory] arguments. The bool result asks the caller to exit
// (help or version was shown).
func ParseFlags(args []string) (*Config, bool, error) {
	config := DefaultConfig()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML configuration file")
	host := fs.String("host", config.Host, "Interface to listen on (empty for all)")
	port := fs.Int("port", config.ListenPort, "Listen port")
	root := fs.String("root", config.RootDir, "Store directory (created if absent)")
	maxConns := fs.Int("max-conns", config.MaxConnections, "Maximum concurrent connections (0 for unlimited)")
	idle := fs.Duration("idle-timeout", config.IdleTimeout, "Drop a connection after this long without traffic (0 disables)")
	lockWait := fs.Duration("lock-timeout", config.LockTimeout, "Give up waiting for a busy file after this long (0 waits forever)")
	logFile := fs.String("log-file", "", "Also append log output to this file")
	showVersion := fs.Bool("v", false, "Show version information")
	fs.Usage = func() { PrintUsage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, err
	}

	if *showVersion {
		ShowVersion()
		return nil, true, nil
	}

	if *configPath != "" {
		if err := LoadConfigFile(*configPath, config); err != nil {
			return nil, false, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			config.Host = *host
		case "port":
			config.ListenPort = *port
		case "root":
			config.RootDir = *root
		case "max-conns":
			config.MaxConnections = *maxConns
		case "idle-timeout":
			config.IdleTimeout = *idle
		case "lock-timeout":
			config.LockTimeout = *lockWait
		case "log-file":
			config.LogFile = *logFile
		}
	})

	// Positional arguments
	rest := fs.Args()
	if len(rest) > 0 {
		p, err := strconv.Atoi(rest[0])
		if err != nil {
			return nil, false, fmt.Errorf("invalid port number: %s", rest[0])
		}
		config.ListenPort = p
	}
	if len(rest) > 1 {
		config.RootDir = rest[1]
	}
	if len(rest) > 2 {
		return nil, false, fmt.Errorf("unexpected arguments: %v", rest[2:])
	}

	return config, false, nil
}

// ValidateConfig reports every problem with the configuration at once
func ValidateConfig(config *Config) error {
	var result *multierror.Error

	if config.ListenPort <= 0 || config.ListenPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("invalid listen port: %d (must be 1-65535)", config.ListenPort))
	}
	if config.RootDir == "" {
		result = multierror.Append(result, errors.New("root directory must not be empty"))
	} else if info, err := os.Stat(config.RootDir); err == nil && !info.IsDir() {
		result = multierror.Append(result, fmt.Errorf("root directory is not a directory: %s", config.RootDir))
	}
	if config.MaxConnections < 0 {
		result = multierror.Append(result, fmt.Errorf("invalid max connections: %d", config.MaxConnections))
	}
	if config.IdleTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("invalid idle timeout: %v", config.IdleTimeout))
	}
	if config.LockTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("invalid lock timeout: %v", config.LockTimeout))
	}

	return result.ErrorOrNil()
}

// SetupLogging adds the configured log file to the standard logger's output.
// The returned closer is nil when no file is configured.
func SetupLogging(config *Config) (io.Closer, error) {
	if config.LogFile == "" {
		return nil, nil
	}
	f, err := os.OpenFile(config.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return f, nil
}

// PrintStartupInfo prints server startup information
func PrintStartupInfo(config *Config, root string) {
	log.Printf("Starting file server v%s...", Version)
	log.Printf("Listening on: %s", config.Addr())
	log.Printf("Store directory: %s", root)
	if config.MaxConnections > 0 {
		log.Printf("Connection limit: %d", config.MaxConnections)
	} else {
		log.Printf("Connection limit: none")
	}
	log.Printf("Idle timeout: %v, lock timeout: %v", config.IdleTimeout, config.LockTimeout)
}

// PrintUsage prints usage information
func PrintUsage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: %s [flags] [port] [root_directory]\n\n", os.Args[0])
	fmt.Fprintln(out, "Flags:")
	fs.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Examples:")
	fmt.Fprintf(out, "  %s                         # port 5000, ./server_files\n", os.Args[0])
	fmt.Fprintf(out, "  %s 6000 /srv/files         # custom port and directory\n", os.Args[0])
	fmt.Fprintf(out, "  %s -config server.yaml     # settings from a file\n", os.Args[0])
}

// HandleStartupError handles startup errors with appropriate logging and exit
func HandleStartupError(err error, context string) {
	log.Fatalf("Failed to %s: %v", context, err)
}

// ShowVersion displays version information
func ShowVersion() {
	fmt.Printf("File server v%s\n", Version)
}
