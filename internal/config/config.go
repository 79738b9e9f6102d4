package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	gerrors "github.com/hpungsan/gistdl/internal/errors"
)

// Environment variables read by ApplyEnv.
const (
	EnvUsername    = "GITHUB_USERNAME"
	EnvToken       = "GITHUB_TOKEN"
	EnvAPIURL      = "GISTDL_API_URL"
	EnvOutputDir   = "GISTDL_OUTPUT_DIR"
	EnvConcurrency = "GISTDL_MAX_CONCURRENCY"
)

// Collision policies for gists whose directory names sanitize identically.
const (
	CollisionSuffix    = "suffix"
	CollisionOverwrite = "overwrite"
)

// Config holds application configuration.
type Config struct {
	// Username is the GitHub account whose gists are downloaded.
	Username string `json:"username,omitempty"`

	// Token is the GitHub access token. Only read from the environment.
	Token string `json:"-"`

	// APIURL is the base URL of the GitHub REST API.
	APIURL string `json:"api_url,omitempty"`

	// OutputDir is the root under which one directory per gist is created.
	OutputDir string `json:"output_dir,omitempty"`

	// PerPage is the listing page size (GitHub caps it at 100).
	PerPage int `json:"per_page,omitempty"`

	// MaxConcurrency bounds simultaneous in-flight downloads.
	MaxConcurrency int `json:"max_concurrency,omitempty"`

	// MaxNameLength is the sanitizer length bound before the truncation marker.
	MaxNameLength int `json:"max_name_length,omitempty"`

	// CollisionPolicy is "suffix" (disambiguate with the gist id) or
	// "overwrite" (last write wins).
	CollisionPolicy string `json:"collision_policy,omitempty"`

	// HTTPTimeoutSeconds bounds connecting and waiting for response headers.
	// Listing pages are bounded as a whole; raw bodies stream without a deadline.
	// Zero disables the timeout.
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty"`

	// WriteIndex writes index.html at the output root after each download.
	WriteIndex bool `json:"write_index,omitempty"`

	// DBMaxOpenConns limits the maximum number of open ledger connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle ledger connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIURL:             "https://api.github.com",
		OutputDir:          "gists",
		PerPage:            100,
		MaxConcurrency:     8,
		MaxNameLength:      100,
		CollisionPolicy:    CollisionSuffix,
		HTTPTimeoutSeconds: 60,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.gistdl.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadEnv loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
// An empty path means ".env" in the working directory.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return gerrors.NewInvalidConfig(fmt.Sprintf("cannot load %s: %v", path, err))
	}
	return nil
}

// ApplyEnv overlays environment variables onto cfg.
// getenv is usually os.Getenv; tests pass a map lookup.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvUsername)); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(getenv(EnvToken)); v != "" {
		cfg.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(getenv(EnvOutputDir)); v != "" {
		cfg.OutputDir = v
	}
	if v := strings.TrimSpace(getenv(EnvConcurrency)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return gerrors.NewInvalidConfig(fmt.Sprintf("%s must be an integer, got %q", EnvConcurrency, v))
		}
		cfg.MaxConcurrency = n
	}
	return nil
}

// Validate checks that cfg is complete enough to talk to GitHub.
// It fails fast instead of letting the API answer with an auth error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return gerrors.NewInvalidConfig(EnvUsername + " is required")
	}
	if strings.TrimSpace(c.Token) == "" {
		return gerrors.NewInvalidConfig(EnvToken + " is required")
	}
	if c.APIURL == "" {
		return gerrors.NewInvalidConfig("api_url must not be empty")
	}
	if c.OutputDir == "" {
		return gerrors.NewInvalidConfig("output_dir must not be empty")
	}
	if c.PerPage < 1 || c.PerPage > 100 {
		return gerrors.NewInvalidConfig(fmt.Sprintf("per_page must be between 1 and 100, got %d", c.PerPage))
	}
	if c.MaxConcurrency < 1 {
		return gerrors.NewInvalidConfig(fmt.Sprintf("max_concurrency must be at least 1, got %d", c.MaxConcurrency))
	}
	if c.HTTPTimeoutSeconds < 0 {
		return gerrors.NewInvalidConfig(fmt.Sprintf("http_timeout_seconds must not be negative, got %d", c.HTTPTimeoutSeconds))
	}
	if c.MaxNameLength < 1 {
		return gerrors.NewInvalidConfig(fmt.Sprintf("max_name_length must be at least 1, got %d", c.MaxNameLength))
	}
	switch c.CollisionPolicy {
	case CollisionSuffix, CollisionOverwrite:
	default:
		return gerrors.NewInvalidConfig(fmt.Sprintf("collision_policy must be %q or %q, got %q",
			CollisionSuffix, CollisionOverwrite, c.CollisionPolicy))
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Username = pickString(overlay.Username, base.Username)
	result.Token = pickString(overlay.Token, base.Token)
	result.APIURL = pickString(overlay.APIURL, base.APIURL)
	result.OutputDir = pickString(overlay.OutputDir, base.OutputDir)
	result.CollisionPolicy = pickString(overlay.CollisionPolicy, base.CollisionPolicy)

	result.PerPage = pickInt(overlay.PerPage, base.PerPage)
	result.MaxConcurrency = pickInt(overlay.MaxConcurrency, base.MaxConcurrency)
	result.MaxNameLength = pickInt(overlay.MaxNameLength, base.MaxNameLength)
	result.HTTPTimeoutSeconds = pickInt(overlay.HTTPTimeoutSeconds, base.HTTPTimeoutSeconds)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.WriteIndex = base.WriteIndex || overlay.WriteIndex

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
