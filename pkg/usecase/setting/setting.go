// Package setting reads and writes config.json and the named profiles under the data
// directory.
package setting

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kelseyhightower/envconfig"
	"github.com/m-mizutani/glimpse/pkg/catalog"
	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	configFile  = "config.json"
	profilesDir = "profiles"
	profileExt  = ".json"

	// EnvPrefix prefixes every environment override, e.g. GLIMPSE_API_KEY.
	EnvPrefix = "GLIMPSE"

	maxProfileNameLen = 64
)

var ErrInvalidProfileName = goerr.New("invalid profile name")

type Manager struct {
	dir     string
	catalog *catalog.Catalog
}

type Option func(*Manager)

// WithCatalog supplies the reserved profile names.
func WithCatalog(c *catalog.Catalog) Option {
	return func(m *Manager) {
		m.catalog = c
	}
}

func New(dir string, opts ...Option) *Manager {
	m := &Manager{
		dir:     dir,
		catalog: catalog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir is the data directory.
func (m *Manager) Dir() string {
	return m.dir
}

// ConfigPath is the location of config.json.
func (m *Manager) ConfigPath() string {
	return filepath.Join(m.dir, configFile)
}

func (m *Manager) ensureDirs() error {
	if err := os.MkdirAll(filepath.Join(m.dir, profilesDir), 0755); err != nil {
		return goerr.Wrap(err, "failed to create data directory", goerr.V("dir", m.dir))
	}
	return nil
}

// readConfig decodes path over the defaults. A missing file yields the defaults.
func readConfig(path string) (*model.Config, bool, error) {
	cfg := model.DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, false, nil
		}
		return nil, false, goerr.Wrap(err, "failed to read config", goerr.V("path", path))
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, false, goerr.Wrap(err, "failed to parse config", goerr.V("path", path))
	}
	return cfg, true, nil
}

func writeConfig(path string, cfg *model.Config) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return goerr.Wrap(err, "failed to write config", goerr.V("path", path))
	}
	return nil
}

// ApplyEnv overlays GLIMPSE_* environment variables. Parents are processed before their
// nested sections, and each section with its own prefix, so variable names stay flat
// (GLIMPSE_API_KEY rather than GLIMPSE_MODEL_API_API_KEY).
func ApplyEnv(cfg *model.Config) error {
	targets := []any{
		cfg,
		&cfg.Model,
		&cfg.Model.API,
		&cfg.Model.Ollama,
		&cfg.Capture,
		&cfg.Storage,
		&cfg.Storage.Firestore,
		&cfg.Storage.BigQuery,
		&cfg.Alert,
	}
	for _, target := range targets {
		if err := envconfig.Process(EnvPrefix, target); err != nil {
			return goerr.Wrap(err, "failed to apply environment overrides")
		}
	}
	return nil
}

// LoadConfig returns the defaults, overlaid by config.json when present and then by
// GLIMPSE_* environment variables.
func (m *Manager) LoadConfig() (*model.Config, error) {
	cfg, _, err := readConfig(m.ConfigPath())
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile is LoadConfig without the environment overlay.
func (m *Manager) LoadConfigFile() (*model.Config, bool, error) {
	return readConfig(m.ConfigPath())
}

func (m *Manager) SaveConfig(cfg *model.Config) error {
	if err := m.ensureDirs(); err != nil {
		return err
	}
	return writeConfig(m.ConfigPath(), cfg)
}

// ValidateProfileName checks name and returns it without a trailing ".json". Names are
// not trimmed, so leading or trailing whitespace is an error.
func (m *Manager) ValidateProfileName(name string) (string, error) {
	base := strings.TrimSuffix(name, profileExt)

	invalid := func(reason string) (string, error) {
		return "", goerr.Wrap(ErrInvalidProfileName, reason, goerr.V("name", name))
	}

	switch {
	case base == "":
		return invalid("name is empty")
	case utf8.RuneCountInString(base) > maxProfileNameLen:
		return invalid("name is too long")
	case base == "." || base == "..":
		return invalid("name is not usable")
	case strings.HasSuffix(base, " ") || strings.HasSuffix(base, "."):
		return invalid("name ends with a space or period")
	}

	first, _ := utf8.DecodeRuneInString(base)
	if unicode.IsSpace(first) {
		return invalid("name starts with whitespace")
	}
	for _, r := range base {
		if unicode.IsControl(r) || strings.ContainsRune(`\/:*?"<>|`, r) {
			return invalid("name contains an invalid character")
		}
	}
	last, _ := utf8.DecodeLastRuneInString(base)
	if unicode.IsSpace(last) {
		return invalid("name ends with whitespace")
	}

	if m.catalog.IsReservedName(base) {
		return invalid("name is reserved")
	}
	return base, nil
}

func (m *Manager) profilePath(name string) (string, error) {
	base, err := m.ValidateProfileName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.dir, profilesDir, base+profileExt), nil
}

// ListProfiles returns profile names in lexical order.
func (m *Manager) ListProfiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.dir, profilesDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, goerr.Wrap(err, "failed to list profiles")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != profileExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), profileExt))
	}
	sort.Strings(names)
	return names, nil
}

func (m *Manager) SaveProfile(name string, cfg *model.Config) error {
	path, err := m.profilePath(name)
	if err != nil {
		return err
	}
	if err := m.ensureDirs(); err != nil {
		return err
	}
	return writeConfig(path, cfg)
}

// LoadProfile decodes a profile over the defaults. A missing profile is an error.
func (m *Manager) LoadProfile(name string) (*model.Config, error) {
	path, err := m.profilePath(name)
	if err != nil {
		return nil, err
	}
	cfg, found, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, goerr.New("profile not found", goerr.V("name", name))
	}
	return cfg, nil
}

// DeleteProfile removes a profile. Deleting a missing profile is not an error.
func (m *Manager) DeleteProfile(name string) error {
	path, err := m.profilePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return goerr.Wrap(err, "failed to delete profile", goerr.V("name", name))
	}
	return nil
}

// ApplyProfile makes a profile the active config.json and returns it.
func (m *Manager) ApplyProfile(name string) (*model.Config, error) {
	cfg, err := m.LoadProfile(name)
	if err != nil {
		return nil, err
	}
	if err := m.SaveConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
