// Package config handles loading and saving cardtree configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/cardtree/config.yaml
//   - Data:    ~/.local/share/cardtree/ (generated trees, exports)
//   - State:   ~/.local/state/cardtree/ (debug log)
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/cardtree/pkg/selection"
	"github.com/vanderheijden86/cardtree/pkg/tree"
	"github.com/vanderheijden86/cardtree/pkg/visibility"
	"github.com/vanderheijden86/cardtree/pkg/window"
)

const appName = "cardtree"

// WindowConfig controls how much of the flat sequence is materialized.
type WindowConfig struct {
	Buffer      int    `yaml:"buffer,omitempty"`        // Extra items rendered around the visible ones
	CardsPerRow int    `yaml:"cards_per_row,omitempty"` // Leaf cards per grid row
	Bound       string `yaml:"bound,omitempty"`         // exclusive, past_last
}

// TreeConfig controls expand/collapse behavior.
type TreeConfig struct {
	DefaultOpen string `yaml:"default_open,omitempty"` // open, closed
}

// SelectionConfig controls multi-select behavior.
type SelectionConfig struct {
	Anchor string `yaml:"anchor,omitempty"` // keep, move
}

// VisibilityConfig controls the intersection observer.
type VisibilityConfig struct {
	Margin    int     `yaml:"margin,omitempty"`    // Lines the viewport is grown by
	Threshold float64 `yaml:"threshold,omitempty"` // Minimum visible fraction (0 = any overlap)
}

// LayoutConfig controls row geometry in the terminal.
type LayoutConfig struct {
	CardHeight   int `yaml:"card_height,omitempty"`
	ParentHeight int `yaml:"parent_height,omitempty"`
}

// DataConfig lists the default data sources.
type DataConfig struct {
	Paths        []string      `yaml:"paths,omitempty"`
	FetchLatency time.Duration `yaml:"fetch_latency,omitempty"` // Simulated leaf fetch latency
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	ShowDetail *bool `yaml:"show_detail,omitempty"` // Detail pane on wide terminals
	Mouse      *bool `yaml:"mouse,omitempty"`
}

// Config is the top-level configuration for cardtree.
type Config struct {
	Window     WindowConfig     `yaml:"window,omitempty"`
	Tree       TreeConfig       `yaml:"tree,omitempty"`
	Selection  SelectionConfig  `yaml:"selection,omitempty"`
	Visibility VisibilityConfig `yaml:"visibility,omitempty"`
	Layout     LayoutConfig     `yaml:"layout,omitempty"`
	Data       DataConfig       `yaml:"data,omitempty"`
	UI         UIConfig         `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	wc := window.DefaultConfig()
	vo := visibility.DefaultOptions()
	return Config{
		Window: WindowConfig{
			Buffer:      wc.Buffer,
			CardsPerRow: wc.CardsPerRow,
			Bound:       window.BoundPastLast.String(),
		},
		Tree:       TreeConfig{DefaultOpen: tree.DefaultOpen.String()},
		Selection:  SelectionConfig{Anchor: selection.KeepAnchor.String()},
		Visibility: VisibilityConfig{Margin: vo.Margin, Threshold: vo.Threshold},
		Layout:     LayoutConfig{CardHeight: 3, ParentHeight: 1},
		Data:       DataConfig{FetchLatency: 10 * time.Millisecond},
	}
}

// ConfigDir returns the XDG config directory for cardtree.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// DataDir returns the XDG data directory for cardtree.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", appName)
}

// StateDir returns the XDG state directory for cardtree.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist. Out-of-range numbers are
// clamped with a warning; unknown policy names are an error.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	for i := range cfg.Data.Paths {
		cfg.Data.Paths[i] = expandHome(cfg.Data.Paths[i])
	}

	for _, w := range cfg.normalize() {
		log.Printf("warning: %s: %s", path, w)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// normalize clamps numeric settings into range and returns a warning per
// change.
func (c *Config) normalize() []string {
	var warnings []string
	def := DefaultConfig()
	clampMin := func(name string, v *int, lo, fallback int) {
		if *v < lo {
			warnings = append(warnings, fmt.Sprintf("%s=%d out of range, using %d", name, *v, fallback))
			*v = fallback
		}
	}
	clampMin("window.buffer", &c.Window.Buffer, 1, def.Window.Buffer)
	clampMin("window.cards_per_row", &c.Window.CardsPerRow, 1, def.Window.CardsPerRow)
	clampMin("visibility.margin", &c.Visibility.Margin, 0, 0)
	clampMin("layout.card_height", &c.Layout.CardHeight, 1, def.Layout.CardHeight)
	clampMin("layout.parent_height", &c.Layout.ParentHeight, 1, def.Layout.ParentHeight)

	if c.Visibility.Threshold < 0 || c.Visibility.Threshold > 1 {
		warnings = append(warnings, fmt.Sprintf("visibility.threshold=%g out of range, using 0", c.Visibility.Threshold))
		c.Visibility.Threshold = 0
	}
	if c.Data.FetchLatency < 0 {
		warnings = append(warnings, "data.fetch_latency negative, using 0")
		c.Data.FetchLatency = 0
	}
	return warnings
}

// Validate checks the policy names.
func (c Config) Validate() error {
	if _, err := tree.ParsePolicy(c.Tree.DefaultOpen); err != nil {
		return fmt.Errorf("tree.default_open: %w", err)
	}
	if _, err := window.ParseBound(c.Window.Bound); err != nil {
		return fmt.Errorf("window.bound: %w", err)
	}
	if _, err := selection.ParseAnchorPolicy(c.Selection.Anchor); err != nil {
		return fmt.Errorf("selection.anchor: %w", err)
	}
	return nil
}

// WindowController returns the window.Config described by c.
func (c Config) WindowController() (window.Config, error) {
	bound, err := window.ParseBound(c.Window.Bound)
	if err != nil {
		return window.Config{}, err
	}
	policy, err := tree.ParsePolicy(c.Tree.DefaultOpen)
	if err != nil {
		return window.Config{}, err
	}
	return window.Config{
		Buffer:      c.Window.Buffer,
		CardsPerRow: c.Window.CardsPerRow,
		Bound:       bound,
		Policy:      policy,
	}, nil
}

// AnchorPolicy returns the parsed selection anchor policy.
func (c Config) AnchorPolicy() (selection.AnchorPolicy, error) {
	return selection.ParseAnchorPolicy(c.Selection.Anchor)
}

// VisibilityOptions returns the observer options described by c.
func (c Config) VisibilityOptions() visibility.Options {
	return visibility.Options{Margin: c.Visibility.Margin, Threshold: c.Visibility.Threshold}
}

// DetailEnabled reports whether the detail pane is shown (default true).
func (c Config) DetailEnabled() bool {
	return c.UI.ShowDetail == nil || *c.UI.ShowDetail
}

// MouseEnabled reports whether mouse input is captured (default true).
func (c Config) MouseEnabled() bool {
	return c.UI.Mouse == nil || *c.UI.Mouse
}

// DebugLogPath returns where the TUI writes debug output.
func DebugLogPath() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, appName+".log")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
