// Package config loads pdfstreams settings from YAML.
//
// Every field has a default, so a file only needs the settings it changes:
//
//	output:
//	  suffix: pdfstreams   # output directory is <input>.<suffix>_out
//	  prefix: pdf          # file names are <prefix>_0001_0.<extension>
//	  extension: dat
//	  dir: ""              # explicit output directory, overrides suffix
//	decode:
//	  denylist: [DCTDecode, JPXDecode, CCITTFaxDecode]
//	parse:
//	  lenient: true
//	log:
//	  level: info          # debug, info, warn or error
//
// Environment variables in output.dir are expanded.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all settings.
type Config struct {
	Output OutputConfig `yaml:"output"`
	Decode DecodeConfig `yaml:"decode"`
	Parse  ParseConfig  `yaml:"parse"`
	Log    LogConfig    `yaml:"log"`
}

// OutputConfig controls where extracted streams go and how files are named.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Suffix    string `yaml:"suffix"`
	Prefix    string `yaml:"prefix"`
	Extension string `yaml:"extension"`
}

// DecodeConfig lists the filters whose streams are copied without decoding.
type DecodeConfig struct {
	Denylist []string `yaml:"denylist"`
}

// ParseConfig selects tolerant or strict parsing.
type ParseConfig struct {
	Lenient bool `yaml:"lenient"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Suffix:    "pdfstreams",
			Prefix:    "pdf",
			Extension: "dat",
		},
		Decode: DecodeConfig{
			Denylist: []string{"DCTDecode", "JPXDecode", "CCITTFaxDecode"},
		},
		Parse: ParseConfig{Lenient: true},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path on top of the defaults and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for YAML already in memory. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Output.Dir = os.ExpandEnv(cfg.Output.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that names are usable in file paths and the log level is
// known.
func (c *Config) Validate() error {
	for _, f := range []struct{ key, value string }{
		{"output.suffix", c.Output.Suffix},
		{"output.prefix", c.Output.Prefix},
		{"output.extension", c.Output.Extension},
	} {
		if f.value == "" {
			return fmt.Errorf("%s is required", f.key)
		}
		if strings.ContainsAny(f.value, `/\`) {
			return fmt.Errorf("%s must not contain path separators: %q", f.key, f.value)
		}
	}
	for _, name := range c.Decode.Denylist {
		if name == "" {
			return fmt.Errorf("decode.denylist contains an empty name")
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured level for log/slog.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
}
