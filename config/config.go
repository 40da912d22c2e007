package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/headers-cz/sec-phantomraven-checker/batch"
)

// Config holds the defaults for command-line flags.
type Config struct {
	Workers        int
	Format         string
	SignaturesFile string
	PackagesFile   string
	MaxDepth       int
	NoColor        bool
}

// Load reads a .env file from the working directory when present, then the
// PHANTOMRAVEN_* environment variables.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	cfg := &Config{
		Workers:        getenvInt("PHANTOMRAVEN_WORKERS", batch.DefaultWorkers),
		Format:         strings.ToLower(getenv("PHANTOMRAVEN_FORMAT", string(batch.FormatText))),
		SignaturesFile: getenv("PHANTOMRAVEN_SIGNATURES", ""),
		PackagesFile:   getenv("PHANTOMRAVEN_PACKAGES", ""),
		MaxDepth:       getenvInt("PHANTOMRAVEN_MAX_DEPTH", batch.DefaultMaxDepth),
		// https://no-color.org
		NoColor: os.Getenv("NO_COLOR") != "",
	}
	if cfg.Workers < 1 {
		cfg.Workers = batch.DefaultWorkers
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = batch.DefaultMaxDepth
	}
	return cfg
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
