package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/userconsole/internal/flagx"
	"github.com/dmitrijs2005/userconsole/internal/timex"
)

// JSONConfig is the on-disk shape of the config file. Absent fields keep
// whatever value the Config already holds.
type JSONConfig struct {
	APIBaseURL      *string         `json:"api_base_url"`
	DatabasePath    *string         `json:"database_path"`
	PageSize        *int            `json:"page_size"`
	RequestTimeout  *timex.Duration `json:"request_timeout"`
	ExportDir       *string         `json:"export_dir"`
	ExportBucket    *string         `json:"export_bucket"`
	ExportPrefix    *string         `json:"export_prefix"`
	ExportRegion    *string         `json:"export_region"`
	ExportEndpoint  *string         `json:"export_endpoint"`
	ExportAccessKey *string         `json:"export_access_key"`
	ExportSecretKey *string         `json:"export_secret_key"`
	LogLevel        *string         `json:"log_level"`
	LogFormat       *string         `json:"log_format"`
}

// parseJSON overlays cfg with the file named by -c/-config or CONSOLE_CONFIG.
// No file configured is not an error.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.ExportDir, jc.ExportDir)
	setString(&cfg.ExportBucket, jc.ExportBucket)
	setString(&cfg.ExportPrefix, jc.ExportPrefix)
	setString(&cfg.ExportRegion, jc.ExportRegion)
	setString(&cfg.ExportEndpoint, jc.ExportEndpoint)
	setString(&cfg.ExportAccessKey, jc.ExportAccessKey)
	setString(&cfg.ExportSecretKey, jc.ExportSecretKey)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.PageSize != nil {
		cfg.PageSize = *jc.PageSize
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
