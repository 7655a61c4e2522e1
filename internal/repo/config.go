package repo

import (
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

const defaultDirMode = 0o755

type tomlURL struct {
	*url.URL
}

func (u *tomlURL) UnmarshalText(text []byte) error {
	parsedURL, err := url.Parse(string(text))
	if err != nil {
		return err
	}
	switch parsedURL.Scheme {
	case "http":
	case "https":
	default:
		return errors.New("unsupported scheme: " + parsedURL.Scheme)
	}

	// for URL.ResolveReference
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
		parsedURL.RawPath += "/"
	}

	u.URL = parsedURL
	return nil
}

// tomlMode parses an octal file mode string such as "0755".
type tomlMode struct {
	os.FileMode
}

func (m *tomlMode) UnmarshalText(text []byte) error {
	bits, err := strconv.ParseUint(string(text), 8, 32)
	if err != nil {
		return errors.New("invalid octal mode: " + string(text))
	}
	m.FileMode = os.FileMode(bits)
	return nil
}

// PGPConfig controls optional CHECKSUMS manifest signing.
type PGPConfig struct {
	KeyPath       string `toml:"key_path,omitempty"`
	SignManifests bool   `toml:"sign_manifests,omitempty"`
}

// LogConfig represents slog configuration options.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Apply configures the global slog logger based on the configuration.
func (logConfig *LogConfig) Apply() error {
	var level slog.Level
	switch strings.ToLower(logConfig.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return errors.New("invalid log level: " + logConfig.Level)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(logConfig.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "plain", "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return errors.New("invalid log format: " + logConfig.Format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// Config is a struct to read TOML configurations.
//
// Use https://github.com/BurntSushi/toml as follows:
//
//	config := repo.NewConfig()
//	md, err := toml.DecodeFile("/path/to/cpanctl.toml", config)
//	if err != nil {
//	    ...
//	}
type Config struct {
	// Local is the root of the mirrored archive.
	Local string `toml:"local"`
	// Repository is the root of the private staging repository.
	Repository string `toml:"repository"`
	// Remote lists upstream sites in probe order.
	Remote []tomlURL `toml:"remote"`
	// DirMode is applied to created directories; files get DirMode &^ 0111.
	DirMode tomlMode  `toml:"dirmode"`
	Log     LogConfig `toml:"log"`
	PGP     PGPConfig `toml:"pgp"`
}

// FileMode returns the permission policy for regular files.
func (c *Config) FileMode() os.FileMode {
	return c.DirMode.FileMode &^ 0o111
}

// Check validates the configuration.
func (c *Config) Check() error {
	if c.Local != "" && !filepath.IsAbs(c.Local) {
		return errors.New("local must be an absolute path")
	}
	if c.Repository != "" && !filepath.IsAbs(c.Repository) {
		return errors.New("repository must be an absolute path")
	}
	if c.DirMode.FileMode == 0 {
		return errors.New("dirmode must not be zero")
	}
	if c.PGP.SignManifests {
		if c.PGP.KeyPath == "" {
			return errors.New("pgp.key_path is required when sign_manifests is set")
		}
		if !filepath.IsAbs(c.PGP.KeyPath) {
			return errors.New("pgp.key_path must be an absolute path")
		}
		f, err := os.Open(c.PGP.KeyPath) // #nosec G304 - operator supplied config value
		if err != nil {
			return errors.New("cannot read pgp.key_path: " + err.Error())
		}
		if err := f.Close(); err != nil {
			slog.Warn("failed to close PGP key file during validation", "path", c.PGP.KeyPath, "error", err)
		}
	}
	return nil
}

// NewConfig creates Config with default values.
func NewConfig() *Config {
	return &Config{
		DirMode: tomlMode{os.FileMode(defaultDirMode)},
	}
}
