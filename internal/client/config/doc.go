// Package config loads runtime configuration for the user console.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c / -config or the CONSOLE_CONFIG env var.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations accept strings like "15s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "http://localhost:8000",
//	  "database_path": "console.db",
//	  "page_size": 5,
//	  "request_timeout": "15s",
//	  "export_dir": ".",
//	  "export_bucket": "",
//	  "export_prefix": "",
//	  "log_level": "info"
//	}
package config
