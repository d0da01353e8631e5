// CLAUDE:SUMMARY Defines bookpress config sections and loads them from YAML or TOML files, then BOOKPRESS_* environment overrides.
// Package config handles bookpress configuration from YAML/TOML files and
// the environment.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample.yaml
var sample string

// Sample returns a commented sample configuration in YAML.
func Sample() string { return sample }

// Duration accepts "90s"-style strings in YAML, TOML and JSON.
type Duration time.Duration

// D converts back to time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}

// File is the top-level configuration.
type File struct {
	Export  Export  `yaml:"export" toml:"export" json:"export"`
	Browser Browser `yaml:"browser" toml:"browser" json:"browser"`
	Server  Server  `yaml:"server" toml:"server" json:"server"`
	Journal Journal `yaml:"journal" toml:"journal" json:"journal"`
	Store   Store   `yaml:"store" toml:"store" json:"store"`
	Log     Log     `yaml:"log" toml:"log" json:"log"`
}

// Export controls one export run.
type Export struct {
	Timeout          Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	AssetTimeout     Duration `yaml:"asset_timeout" toml:"asset_timeout" json:"asset_timeout"`
	MaxAssetBytes    int64    `yaml:"max_asset_bytes" toml:"max_asset_bytes" json:"max_asset_bytes"`
	InlineMinLength  int      `yaml:"inline_min_length" toml:"inline_min_length" json:"inline_min_length"`
	Concurrency      int      `yaml:"concurrency" toml:"concurrency" json:"concurrency"`
	Language         string   `yaml:"language" toml:"language" json:"language"`
	AllowPrivateURLs bool     `yaml:"allow_private_urls" toml:"allow_private_urls" json:"allow_private_urls"`
}

// Browser controls Chrome.
type Browser struct {
	Remote          string   `yaml:"remote" toml:"remote" json:"remote"`
	Bin             string   `yaml:"bin" toml:"bin" json:"bin"`
	Ephemeral       bool     `yaml:"ephemeral" toml:"ephemeral" json:"ephemeral"`
	Stealth         bool     `yaml:"stealth" toml:"stealth" json:"stealth"`
	BlockRemote     bool     `yaml:"block_remote" toml:"block_remote" json:"block_remote"`
	NoSandbox       bool     `yaml:"no_sandbox" toml:"no_sandbox" json:"no_sandbox"`
	RecycleInterval Duration `yaml:"recycle_interval" toml:"recycle_interval" json:"recycle_interval"`
	MaxRenders      int      `yaml:"max_renders" toml:"max_renders" json:"max_renders"`
}

// Server controls the HTTP surface.
type Server struct {
	Addr       string `yaml:"addr" toml:"addr" json:"addr"`
	MaxBody    int64  `yaml:"max_body" toml:"max_body" json:"max_body"`
	APIKeyHash string `yaml:"api_key_hash" toml:"api_key_hash" json:"api_key_hash"`
}

// Journal controls the export history database. Empty path disables it.
type Journal struct {
	Path string `yaml:"path" toml:"path" json:"path"`
}

// Store controls where finished exports are kept.
type Store struct {
	Adapter string  `yaml:"adapter" toml:"adapter" json:"adapter"` // none | local | s3
	Local   LocalFS `yaml:"local" toml:"local" json:"local"`
	S3      S3      `yaml:"s3" toml:"s3" json:"s3"`
}

// LocalFS is the local directory store.
type LocalFS struct {
	Root string `yaml:"root" toml:"root" json:"root"`
}

// S3 is the S3-compatible store.
type S3 struct {
	Bucket          string `yaml:"bucket" toml:"bucket" json:"bucket"`
	Region          string `yaml:"region" toml:"region" json:"region"`
	Endpoint        string `yaml:"endpoint" toml:"endpoint" json:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" toml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" toml:"secret_access_key" json:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style" toml:"use_path_style" json:"use_path_style"`
	Prefix          string `yaml:"prefix" toml:"prefix" json:"prefix"`
}

// Log controls logging.
type Log struct {
	Level string `yaml:"level" toml:"level" json:"level"` // debug | info | warn | error
}

// Default returns a configuration with every default applied.
func Default() *File {
	var f File
	f.applyDefaults()
	return &f
}

// LoadFile reads a YAML (.yaml, .yml) or TOML (.toml) configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("config: unsupported file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	f.applyDefaults()
	return &f, nil
}

// ApplyEnv overrides fields from BOOKPRESS_* variables. getenv is usually
// os.Getenv.
func (f *File) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []string
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, key)
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, key)
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *Duration) {
		if v := getenv(key); v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, key)
			}
		}
	}

	duration("BOOKPRESS_TIMEOUT", &f.Export.Timeout)
	duration("BOOKPRESS_ASSET_TIMEOUT", &f.Export.AssetTimeout)
	integer("BOOKPRESS_CONCURRENCY", &f.Export.Concurrency)
	str("BOOKPRESS_LANGUAGE", &f.Export.Language)
	boolean("BOOKPRESS_ALLOW_PRIVATE_URLS", &f.Export.AllowPrivateURLs)
	str("BOOKPRESS_BROWSER_REMOTE", &f.Browser.Remote)
	str("BOOKPRESS_BROWSER_BIN", &f.Browser.Bin)
	boolean("BOOKPRESS_BROWSER_EPHEMERAL", &f.Browser.Ephemeral)
	boolean("BOOKPRESS_BROWSER_NO_SANDBOX", &f.Browser.NoSandbox)
	str("BOOKPRESS_ADDR", &f.Server.Addr)
	str("BOOKPRESS_API_KEY_HASH", &f.Server.APIKeyHash)
	str("BOOKPRESS_JOURNAL", &f.Journal.Path)
	str("BOOKPRESS_STORE", &f.Store.Adapter)
	str("BOOKPRESS_STORE_ROOT", &f.Store.Local.Root)
	str("BOOKPRESS_S3_BUCKET", &f.Store.S3.Bucket)
	str("BOOKPRESS_S3_REGION", &f.Store.S3.Region)
	str("BOOKPRESS_S3_ENDPOINT", &f.Store.S3.Endpoint)
	str("BOOKPRESS_S3_ACCESS_KEY_ID", &f.Store.S3.AccessKeyID)
	str("BOOKPRESS_S3_SECRET_ACCESS_KEY", &f.Store.S3.SecretAccessKey)
	str("BOOKPRESS_LOG_LEVEL", &f.Log.Level)

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid value for %s", strings.Join(errs, ", "))
	}
	f.applyDefaults()
	return nil
}

// Validate checks cross-field constraints.
func (f *File) Validate() error {
	switch f.Store.Adapter {
	case "none":
	case "local":
		if f.Store.Local.Root == "" {
			return fmt.Errorf("config: store.local.root is required for the local adapter")
		}
	case "s3":
		if f.Store.S3.Bucket == "" {
			return fmt.Errorf("config: store.s3.bucket is required for the s3 adapter")
		}
	default:
		return fmt.Errorf("config: unknown store adapter %q", f.Store.Adapter)
	}
	switch f.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", f.Log.Level)
	}
	return nil
}

func (f *File) applyDefaults() {
	if f.Export.Timeout <= 0 {
		f.Export.Timeout = Duration(90 * time.Second)
	}
	if f.Export.AssetTimeout <= 0 {
		f.Export.AssetTimeout = Duration(15 * time.Second)
	}
	if f.Export.MaxAssetBytes <= 0 {
		f.Export.MaxAssetBytes = 10 << 20
	}
	if f.Export.InlineMinLength <= 0 {
		f.Export.InlineMinLength = 100
	}
	if f.Export.Concurrency <= 0 {
		f.Export.Concurrency = 4
	}
	if f.Export.Language == "" {
		f.Export.Language = "en"
	}
	if f.Browser.RecycleInterval <= 0 {
		f.Browser.RecycleInterval = Duration(time.Hour)
	}
	if f.Browser.MaxRenders <= 0 {
		f.Browser.MaxRenders = 200
	}
	if f.Server.Addr == "" {
		f.Server.Addr = ":8087"
	}
	if f.Server.MaxBody <= 0 {
		f.Server.MaxBody = 32 << 20
	}
	if f.Store.Adapter == "" {
		f.Store.Adapter = "none"
	}
	if f.Store.S3.Region == "" {
		f.Store.S3.Region = "us-east-1"
	}
	if f.Log.Level == "" {
		f.Log.Level = "info"
	}
}
