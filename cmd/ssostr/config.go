package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/toolkits/pkg/logger"
)

type Config struct {
	Logger LoggerSection `toml:"logger"`
	Bench  BenchSection  `toml:"bench"`
}

type LoggerSection struct {
	Type      string `toml:"type"`  // stderr or file
	Level     string `toml:"level"` // DEBUG/INFO/WARNING/ERROR
	FileName  string `toml:"file"`
	KeepHours uint   `toml:"keepHours"`
}

type BenchSection struct {
	Workers    int `toml:"workers"`
	Iterations int `toml:"iterations"`
	Size       int `toml:"size"`
}

func defaultConfig() Config {
	return Config{
		Logger: LoggerSection{Type: "stderr", Level: "WARNING"},
		Bench:  BenchSection{Workers: 4, Iterations: 10000, Size: 64},
	}
}

// loadConfig reads a TOML file over the defaults. An empty path returns the
// defaults unchanged.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Logger.Type {
	case "stderr", "std":
	case "file":
		if c.Logger.FileName == "" {
			return fmt.Errorf("logger: type file needs a file")
		}
	default:
		return fmt.Errorf("logger: unknown type %q", c.Logger.Type)
	}
	switch strings.ToUpper(c.Logger.Level) {
	case "DEBUG", "INFO", "WARNING", "ERROR", "FATAL":
	default:
		return fmt.Errorf("logger: unknown level %q", c.Logger.Level)
	}
	if c.Bench.Workers < 1 || c.Bench.Iterations < 0 || c.Bench.Size < 0 {
		return fmt.Errorf("bench: workers must be positive, iterations and size non-negative")
	}
	return nil
}

func (l LoggerSection) logConfig(quiet bool) logger.LogConfig {
	level := strings.ToUpper(l.Level)
	if quiet {
		level = "ERROR"
	}
	return logger.LogConfig{
		Type:         l.Type,
		Level:        level,
		FileName:     l.FileName,
		RotateByHour: l.KeepHours > 0,
		KeepHours:    l.KeepHours,
	}
}
