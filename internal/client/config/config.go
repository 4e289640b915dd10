package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the user console.
//
// Fields:
//   - APIBaseURL: scheme://host[:port] of the REST backend, without trailing slash.
//   - DatabasePath: SQLite file holding the persisted session tokens.
//   - PageSize: number of users per dashboard page.
//   - RequestTimeout: per-request timeout applied by the HTTP client.
//   - ExportDir: directory that receives users.csv when ExportBucket is empty.
//   - ExportBucket / ExportRegion: optional S3 destination for users.csv.
//   - ExportPrefix: key prefix for objects written to ExportBucket.
//   - ExportEndpoint / ExportAccessKey / ExportSecretKey: S3-compatible endpoint
//     and static credentials; empty values fall back to the AWS default chain.
//   - LogLevel / LogFormat: slog level (debug|info|warn|error) and handler (text|json).
type Config struct {
	APIBaseURL      string
	DatabasePath    string
	PageSize        int
	RequestTimeout  time.Duration
	ExportDir       string
	ExportBucket    string
	ExportPrefix    string
	ExportRegion    string
	ExportEndpoint  string
	ExportAccessKey string
	ExportSecretKey string
	LogLevel        string
	LogFormat       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8000"
	c.DatabasePath = "console.db"
	c.PageSize = 5
	c.RequestTimeout = 15 * time.Second
	c.ExportDir = "."
	c.ExportRegion = "us-east-1"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Load builds a Config from args (typically os.Args[1:]): defaults first,
// then the optional JSON file, then flags. Later sources take precedence.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
