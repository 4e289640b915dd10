package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "http://api:9000/", "-d", "s.db", "-p", "10", "-t", "3", "-o", "/tmp", "-b", "bkt", "-x", "console/exports", "-r", "eu-west-1", "-l", "debug", "-f", "json"},
			expected: &Config{
				APIBaseURL: "http://api:9000", DatabasePath: "s.db", PageSize: 10, RequestTimeout: 3 * time.Second,
				ExportDir: "/tmp", ExportBucket: "bkt", ExportPrefix: "console/exports", ExportRegion: "eu-west-1", LogLevel: "debug", LogFormat: "json",
			},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"-c", "x.json", "-z", "1", "-p", "7"},
			expected: func() *Config {
				c := &Config{}
				c.LoadDefaults()
				c.PageSize = 7
				return c
			}(),
		},
		{name: "incorrect timeout", args: []string{"-t", "abc"}, wantErr: true},
		{name: "zero page size", args: []string{"-p", "0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.LoadDefaults()

			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
