package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all server settings. Values come from FITNESSE_* environment
// variables with defaults matching the reference deployment; an optional YAML
// file overlays the environment.
type Config struct {
	Port          int    `yaml:"port"`
	RootPath      string `yaml:"rootPath"`
	RootDirectory string `yaml:"rootDirectory"`
	AuthEnabled   bool   `yaml:"authEnabled"`

	RequestTimeout time.Duration `yaml:"requestTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`

	TestPoolSize int `yaml:"testPoolSize"`
	TestMaxQueue int `yaml:"testMaxQueue"`

	MergeStrategy  string `yaml:"mergeStrategy"`
	CommitterName  string `yaml:"committerName"`
	CommitterEmail string `yaml:"committerEmail"`

	TestHistoryDir string `yaml:"testHistoryDir"`

	// TestSystemCommand is the external test-system child process invoked for
	// suite/test runs. Empty means the built-in no-op runner.
	TestSystemCommand []string `yaml:"testSystemCommand"`

	// TestSystemsDir holds discoverable test-system manifests; TestSystem
	// names the one to run. Both are ignored when TestSystemCommand is set.
	TestSystemsDir string `yaml:"testSystemsDir"`
	TestSystem     string `yaml:"testSystem"`

	HistoryCacheTTL time.Duration `yaml:"historyCacheTTL"`
	SearchCacheTTL  time.Duration `yaml:"searchCacheTTL"`

	LogLevel string `yaml:"logLevel"`

	// ResultsDB is the sqlite file indexing completed runs.
	ResultsDB string `yaml:"resultsDB"`

	LockFile string `yaml:"lockFile"`

	// Users are basic-auth credentials consulted when a policy says
	// auth-required. Only configurable via the YAML file.
	Users []User `yaml:"users"`
}

// User is one configured basic-auth credential.
type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// FromEnv builds a Config from the environment with defaults applied.
func FromEnv() Config {
	cores := runtime.NumCPU()
	poolSize := readInt("FITNESSE_TEST_POOL_SIZE", max(2, cores))
	cfg := Config{
		Port:           readInt("FITNESSE_VERTX_PORT", 8080),
		RootPath:       readString("FITNESSE_ROOT_PATH", "."),
		RootDirectory:  readString("FITNESSE_ROOT_DIR", "FitNesseRoot"),
		AuthEnabled:    readBool("FITNESSE_AUTH_ENABLED", false),
		RequestTimeout: time.Duration(readInt("FITNESSE_HTTP_TIMEOUT_MS", 30_000)) * time.Millisecond,
		IdleTimeout:    time.Duration(readInt("FITNESSE_IDLE_TIMEOUT_SEC", 60)) * time.Second,
		TestPoolSize:   poolSize,
		TestMaxQueue:   readInt("FITNESSE_TEST_MAX_QUEUE", poolSize*4),
		MergeStrategy:  readString("FITNESSE_GIT_MERGE_STRATEGY", "fast-forward"),
		CommitterName:  readString("FITNESSE_GIT_COMMITTER_NAME", ""),
		CommitterEmail: readString("FITNESSE_GIT_COMMITTER_EMAIL", ""),
		LogLevel:       readString("FITNESSE_LOG_LEVEL", "INFO"),
		TestSystemsDir: readString("FITNESSE_TEST_SYSTEMS_DIR", ""),
		TestSystem:     readString("FITNESSE_TEST_SYSTEM", ""),
	}
	cfg.TestHistoryDir = readString("FITNESSE_TEST_HISTORY_DIR",
		filepath.Join(cfg.RootPath, "FitNesseTestHistory"))
	cfg.ResultsDB = readString("FITNESSE_RESULTS_DB",
		filepath.Join(cfg.RootPath, ".wikigate", "results.db"))
	cfg.LockFile = filepath.Join(cfg.RootPath, ".wikigate", "wikigate.pid")
	cfg.HistoryCacheTTL = 3 * time.Second
	cfg.SearchCacheTTL = 2 * time.Second
	return cfg
}

// Load builds a Config from the environment and, when configPath names an
// existing YAML file, overlays the fields set in it.
func Load(configPath string) (Config, error) {
	cfg := FromEnv()
	if configPath == "" {
		return cfg, cfg.validate()
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.validate()
		}
		return cfg, fmt.Errorf("read config %q: %w", configPath, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", configPath, err)
	}
	return cfg, cfg.validate()
}

// RootDir is the wiki root: <rootPath>/<rootDirectory>.
func (c Config) RootDir() string {
	return filepath.Join(c.RootPath, c.RootDirectory)
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TestPoolSize <= 0 {
		return fmt.Errorf("testPoolSize must be positive, got %d", c.TestPoolSize)
	}
	switch c.MergeStrategy {
	case "fast-forward", "merge-commit", "rebase", "squash", "ours", "theirs":
	default:
		return fmt.Errorf("unknown merge strategy %q", c.MergeStrategy)
	}
	return nil
}

func readString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
