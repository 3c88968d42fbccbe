package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full adbinstaller configuration.
type Config struct {
	ADB      ADBConfig     `mapstructure:"adb" json:"adb"`
	Install  InstallConfig `mapstructure:"install" json:"install"`
	Scan     ScanConfig    `mapstructure:"scan" json:"scan"`
	Cache    CacheConfig   `mapstructure:"cache" json:"cache"`
	Log      LogConfig     `mapstructure:"log" json:"log"`
	Language string        `mapstructure:"language" json:"language"`
}

// ADBConfig selects and tunes the adb binary.
type ADBConfig struct {
	Path    string `mapstructure:"path" json:"path"`
	Timeout int    `mapstructure:"timeout" json:"timeout"` // seconds, per shell/query command
}

// InstallConfig carries the defaults for install runs.
type InstallConfig struct {
	Replace     bool    `mapstructure:"replace" json:"replace"`
	Downgrade   bool    `mapstructure:"downgrade" json:"downgrade"`
	Grant       bool    `mapstructure:"grant" json:"grant"`
	Parallel    int     `mapstructure:"parallel" json:"parallel"`
	Retries     int     `mapstructure:"retries" json:"retries"`
	RetryDelay  int     `mapstructure:"retry_delay" json:"retry_delay"` // seconds
	Pace        float64 `mapstructure:"pace" json:"pace"`               // installs per second, 0 = unpaced
	TimeoutMins int     `mapstructure:"timeout_mins" json:"timeout_mins"`
}

// ScanConfig controls local library scanning.
type ScanConfig struct {
	Recursive      bool     `mapstructure:"recursive" json:"recursive"`
	FollowSymlinks bool     `mapstructure:"follow_symlinks" json:"follow_symlinks"`
	IncludePattern []string `mapstructure:"include_pattern" json:"include_pattern"`
	ExcludePattern []string `mapstructure:"exclude_pattern" json:"exclude_pattern"`
	ParseAPKInfo   bool     `mapstructure:"parse_apk_info" json:"parse_apk_info"`
}

// CacheConfig controls the download and metadata cache.
type CacheConfig struct {
	Dir     string `mapstructure:"dir" json:"dir"`
	TTL     int    `mapstructure:"ttl" json:"ttl"` // seconds
	MaxSize int64  `mapstructure:"max_size" json:"max_size"` // bytes, 0 = unbounded
}

// LogConfig controls the persistent log store.
type LogConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	Dir        string `mapstructure:"dir" json:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days"`
	Console    bool   `mapstructure:"console" json:"console"`
}

// BaseDir returns the adbinstaller home directory (~/.adbinstaller).
func BaseDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".adbinstaller")
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.yaml")
}

func defaults() Config {
	base := BaseDir()
	return Config{
		ADB: ADBConfig{
			Path:    "adb",
			Timeout: 30,
		},
		Install: InstallConfig{
			Replace:     true,
			Downgrade:   false,
			Grant:       true,
			Parallel:    2,
			Retries:     2,
			RetryDelay:  2,
			Pace:        0,
			TimeoutMins: 10,
		},
		Scan: ScanConfig{
			Recursive:      true,
			FollowSymlinks: false,
			IncludePattern: []string{"*.apk", "*.xapk", "*.apkm", "*.apks"},
			ExcludePattern: []string{},
			ParseAPKInfo:   true,
		},
		Cache: CacheConfig{
			Dir:     filepath.Join(base, "cache"),
			TTL:     24 * 3600,
			MaxSize: 0,
		},
		Log: LogConfig{
			Level:      "info",
			Dir:        filepath.Join(base, "logs"),
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Console:    true,
		},
		Language: "",
	}
}

// Load loads configuration from file and environment.
// A missing config file is not an error; defaults apply.
func Load(configPath string) (*Config, error) {
	def := defaults()

	viper.SetConfigType("yaml")

	viper.SetDefault("adb.path", def.ADB.Path)
	viper.SetDefault("adb.timeout", def.ADB.Timeout)
	viper.SetDefault("install.replace", def.Install.Replace)
	viper.SetDefault("install.downgrade", def.Install.Downgrade)
	viper.SetDefault("install.grant", def.Install.Grant)
	viper.SetDefault("install.parallel", def.Install.Parallel)
	viper.SetDefault("install.retries", def.Install.Retries)
	viper.SetDefault("install.retry_delay", def.Install.RetryDelay)
	viper.SetDefault("install.pace", def.Install.Pace)
	viper.SetDefault("install.timeout_mins", def.Install.TimeoutMins)
	viper.SetDefault("scan.recursive", def.Scan.Recursive)
	viper.SetDefault("scan.follow_symlinks", def.Scan.FollowSymlinks)
	viper.SetDefault("scan.include_pattern", def.Scan.IncludePattern)
	viper.SetDefault("scan.exclude_pattern", def.Scan.ExcludePattern)
	viper.SetDefault("scan.parse_apk_info", def.Scan.ParseAPKInfo)
	viper.SetDefault("cache.dir", def.Cache.Dir)
	viper.SetDefault("cache.ttl", def.Cache.TTL)
	viper.SetDefault("cache.max_size", def.Cache.MaxSize)
	viper.SetDefault("log.level", def.Log.Level)
	viper.SetDefault("log.dir", def.Log.Dir)
	viper.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	viper.SetDefault("log.max_backups", def.Log.MaxBackups)
	viper.SetDefault("log.max_age_days", def.Log.MaxAgeDays)
	viper.SetDefault("log.console", def.Log.Console)
	viper.SetDefault("language", def.Language)

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(BaseDir())
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// SetConfigFile bypasses the not-found type; tolerate missing explicit files too
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	viper.SetEnvPrefix("ADBINSTALLER")
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.expandPaths()

	return &cfg, nil
}

// CommandTimeout returns the per-command timeout as a duration.
func (c *Config) CommandTimeout() time.Duration {
	if c.ADB.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ADB.Timeout) * time.Second
}

// InstallTimeout returns the per-install timeout as a duration.
func (c *Config) InstallTimeout() time.Duration {
	if c.Install.TimeoutMins <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Install.TimeoutMins) * time.Minute
}

// EnsureDirectories creates the directories the tool writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Cache.Dir,
		c.Log.Dir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// expandPaths expands a leading ~ in configured paths.
func (c *Config) expandPaths() {
	homeDir, _ := os.UserHomeDir()

	expand := func(p string) string {
		if p != "" && p[0] == '~' {
			return filepath.Join(homeDir, p[1:])
		}
		return p
	}

	c.Cache.Dir = expand(c.Cache.Dir)
	c.Log.Dir = expand(c.Log.Dir)
	c.ADB.Path = expand(c.ADB.Path)
}

// SaveTemplate writes a commented configuration template.
func SaveTemplate(path string) error {
	templateContent := `# adbinstaller configuration file

adb:
  # Path to the adb binary. Leave as "adb" to use PATH.
  path: "adb"

  # Timeout in seconds for short adb commands (devices, getprop, pm list).
  timeout: 30

install:
  # Replace existing applications (-r)
  replace: true

  # Allow version downgrade (-d)
  downgrade: false

  # Grant all runtime permissions after install (-g)
  grant: true

  # Number of devices installed in parallel
  parallel: 2

  # Retry attempts per APK on retryable failures
  retries: 2

  # Delay between retries in seconds
  retry_delay: 2

  # Pace limit in installs per second across all devices (0 = unpaced)
  pace: 0

  # Timeout in minutes for a single install command
  timeout_mins: 10

scan:
  # Scan directories recursively
  recursive: true

  # Follow symbolic links
  follow_symlinks: false

  # Include patterns (glob)
  include_pattern:
    - "*.apk"
    - "*.xapk"
    - "*.apkm"
    - "*.apks"

  # Exclude patterns (glob)
  exclude_pattern: []

  # Parse APK metadata while scanning (slower but more detail)
  parse_apk_info: true

cache:
  # Download and metadata cache directory
  dir: "~/.adbinstaller/cache"

  # Cache entry lifetime in seconds
  ttl: 86400

  # Maximum cache size in bytes (0 = unbounded)
  max_size: 0

log:
  # Log level: trace, debug, info, warn, error
  level: "info"

  # Log directory
  dir: "~/.adbinstaller/logs"

  # Rotate the log file after this many megabytes
  max_size_mb: 10

  # Number of rotated files to keep
  max_backups: 5

  # Delete rotated files older than this many days
  max_age_days: 14

  # Mirror log output to the console
  console: true

# UI language (empty = auto-detect). Supported: en, zh
language: ""
`

	return os.WriteFile(path, []byte(templateContent), 0644)
}
