// CLAUDE:SUMMARY Exporter configuration, defaults, and the bridge from the YAML/TOML file config to a running Exporter and browser.
package bookexport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hazyhaar/bookpress/bookexport/internal/artifact"
	"github.com/hazyhaar/bookpress/bookexport/internal/browser"
	"github.com/hazyhaar/bookpress/bookexport/internal/config"
	"github.com/hazyhaar/bookpress/bookexport/internal/journal"
	"github.com/hazyhaar/bookpress/idgen"
)

// FileConfig is the on-disk configuration. Re-exported from internal.
type FileConfig = config.File

// BrowserConfig controls Chrome.
type BrowserConfig = browser.Config

// Browser is the Chrome-backed Renderer.
type Browser = browser.Manager

// StoreOptions selects the artifact store (none, local or s3).
type StoreOptions = artifact.Options

// S3Options configures the S3-compatible artifact store.
type S3Options = artifact.S3Options

// Store keeps finished exports.
type Store = artifact.Store

// Journal is the SQLite export history.
type Journal = journal.Journal

// JournalEntry is one recorded export attempt.
type JournalEntry = journal.Entry

// LoadConfig reads path (YAML or TOML; empty means defaults only), applies
// BOOKPRESS_* environment overrides and validates the result.
func LoadConfig(path string) (*FileConfig, error) {
	f := config.Default()
	if path != "" {
		var err error
		if f, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := f.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// SampleConfig returns a commented sample configuration file.
func SampleConfig() string { return config.Sample() }

// NewBrowser creates the Chrome manager. It launches nothing until the
// first PDF export.
func NewBrowser(cfg BrowserConfig) *Browser { return browser.NewManager(cfg) }

// OpenJournal opens the export journal at path.
func OpenJournal(path string) (*Journal, error) { return journal.Open(path) }

// Config configures an Exporter.
type Config struct {
	// Timeout is the wall-clock budget of one export call. Default: 90s.
	Timeout time.Duration

	// Asset resolution.
	AssetTimeout     time.Duration
	MaxAssetBytes    int64
	InlineMinLength  int
	Concurrency      int
	AllowPrivateURLs bool
	// HTTPClient fetches remote images. Default: a client that re-validates
	// redirects.
	HTTPClient *http.Client

	// Language is used when a Document names none. Default: "en".
	Language string

	// Renderer prints PDFs. Without it PDF exports fail with ErrRenderFailure.
	Renderer Renderer

	// JournalPath opens a journal owned by the Exporter. Journal wins when
	// both are set; the Exporter does not close a Journal it was given.
	JournalPath string
	Journal     *Journal

	// Store keeps finished exports; StoreOptions builds one when Store is nil.
	Store        Store
	StoreOptions StoreOptions

	// NewID generates export ids. Default: "exp_" + UUIDv7.
	NewID idgen.Generator

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 90 * time.Second
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.NewID == nil {
		c.NewID = idgen.Prefixed("exp_", idgen.UUIDv7())
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ConfigFromFile maps the file configuration onto Config. The Renderer is
// left nil; Open wires a Browser.
func ConfigFromFile(f *FileConfig) Config {
	return Config{
		Timeout:          f.Export.Timeout.D(),
		AssetTimeout:     f.Export.AssetTimeout.D(),
		MaxAssetBytes:    f.Export.MaxAssetBytes,
		InlineMinLength:  f.Export.InlineMinLength,
		Concurrency:      f.Export.Concurrency,
		AllowPrivateURLs: f.Export.AllowPrivateURLs,
		Language:         f.Export.Language,
		JournalPath:      f.Journal.Path,
		StoreOptions: StoreOptions{
			Adapter: f.Store.Adapter,
			Root:    f.Store.Local.Root,
			S3: S3Options{
				Bucket:          f.Store.S3.Bucket,
				Region:          f.Store.S3.Region,
				Endpoint:        f.Store.S3.Endpoint,
				AccessKeyID:     f.Store.S3.AccessKeyID,
				SecretAccessKey: f.Store.S3.SecretAccessKey,
				UsePathStyle:    f.Store.S3.UsePathStyle,
				Prefix:          f.Store.S3.Prefix,
			},
		},
	}
}

// BrowserConfigFromFile maps the browser section.
func BrowserConfigFromFile(f *FileConfig) BrowserConfig {
	return BrowserConfig{
		RemoteURL:       f.Browser.Remote,
		Bin:             f.Browser.Bin,
		Ephemeral:       f.Browser.Ephemeral,
		Stealth:         f.Browser.Stealth,
		BlockRemote:     f.Browser.BlockRemote,
		NoSandbox:       f.Browser.NoSandbox,
		RecycleInterval: f.Browser.RecycleInterval.D(),
		MaxRenders:      f.Browser.MaxRenders,
	}
}

// Open builds an Exporter from the file configuration, with its own Chrome
// manager. Close releases the browser, the journal and the store.
func Open(ctx context.Context, f *FileConfig, logger *slog.Logger) (*Exporter, error) {
	cfg := ConfigFromFile(f)
	cfg.Logger = logger

	bcfg := BrowserConfigFromFile(f)
	bcfg.Logger = logger
	mgr := NewBrowser(bcfg)
	cfg.Renderer = mgr

	ex, err := New(ctx, cfg)
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("bookexport: %w", err)
	}
	ex.closers = append(ex.closers, mgr.Close)
	return ex, nil
}
