package config

import (
	"errors"
	"flag"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/userconsole/internal/flagx"
)

var knownFlags = []string{"-a", "-d", "-p", "-t", "-o", "-b", "-x", "-r", "-e", "-l", "-f"}

// parseFlags overlays cfg with command-line flags.
//
//	-a string   backend base URL
//	-d string   session database path
//	-p int      users per page
//	-t int      request timeout (seconds)
//	-o string   export directory
//	-b string   export S3 bucket (empty = local file)
//	-x string   export S3 key prefix
//	-r string   export S3 region
//	-e string   export S3 endpoint
//	-l string   log level
//	-f string   log format (text|json)
//
// Only the flags above are looked at; -c/-config is handled by parseJSON.
// S3 credentials are accepted from the JSON file only.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "backend base URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "session database path")
	fs.IntVar(&cfg.PageSize, "p", cfg.PageSize, "users per page")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.ExportDir, "o", cfg.ExportDir, "export directory")
	fs.StringVar(&cfg.ExportBucket, "b", cfg.ExportBucket, "export S3 bucket")
	fs.StringVar(&cfg.ExportPrefix, "x", cfg.ExportPrefix, "export S3 key prefix")
	fs.StringVar(&cfg.ExportRegion, "r", cfg.ExportRegion, "export S3 region")
	fs.StringVar(&cfg.ExportEndpoint, "e", cfg.ExportEndpoint, "export S3 endpoint")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	if cfg.PageSize < 1 {
		return errors.New("page size must be positive")
	}
	return nil
}
