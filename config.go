package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Player struct {
		Name         string `mapstructure:"name"`
		Identity     string `mapstructure:"identity"`
		DesktopEntry string `mapstructure:"desktop_entry"`
	} `mapstructure:"player"`
	Capabilities struct {
		TrackList     bool `mapstructure:"tracklist"`
		Playlists     bool `mapstructure:"playlists"`
		CanQuit       bool `mapstructure:"can_quit"`
		CanRaise      bool `mapstructure:"can_raise"`
		CanEditTracks bool `mapstructure:"can_edit_tracks"`
	} `mapstructure:"capabilities"`
	Library struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"library"`
	UI struct {
		Color     string `mapstructure:"color"`
		ColorMode string `mapstructure:"color_mode"`
		MaxWidth  int    `mapstructure:"max_width"`
	} `mapstructure:"ui"`
	Artwork struct {
		Enabled      bool   `mapstructure:"enabled"`
		Padding      int    `mapstructure:"padding"`
		WidthPixels  int    `mapstructure:"width_pixels"`
		WidthColumns int    `mapstructure:"width_columns"`
		ThumbnailDir string `mapstructure:"thumbnail_dir"`
	} `mapstructure:"artwork"`
	Timing struct {
		UIRefreshMs int `mapstructure:"ui_refresh_ms"`
	} `mapstructure:"timing"`
}

// SafeConfig wraps Config with thread-safe access
type SafeConfig struct {
	mu  sync.RWMutex
	cfg Config
}

// Get returns a copy of the current config (thread-safe read)
func (sc *SafeConfig) Get() Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.cfg
}

// Set updates the config (thread-safe write)
func (sc *SafeConfig) Set(cfg Config) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cfg = cfg
}

var config = &SafeConfig{}

// Config file changed notification
type configReloadMsg struct{}

var configChangeChan = make(chan struct{}, 1)

// Watch for config file changes
func watchConfigCmd() tea.Cmd {
	return func() tea.Msg {
		<-configChangeChan
		return configReloadMsg{}
	}
}

// configError describes one invalid setting
type configError struct {
	field   string
	message string
}

func (e configError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.message)
}

// defaults are the values applied when a setting is missing or invalid
var defaults = map[string]any{
	"player.name":                  "nowserving",
	"player.identity":              "nowserving",
	"player.desktop_entry":         "",
	"capabilities.tracklist":       true,
	"capabilities.playlists":       true,
	"capabilities.can_quit":        true,
	"capabilities.can_raise":       false,
	"capabilities.can_edit_tracks": true,
	"library.path":                 "",
	"ui.color":                     "2",
	"ui.color_mode":                "auto",
	"ui.max_width":                 45,
	"artwork.enabled":              true,
	"artwork.padding":              16,
	"artwork.width_pixels":         300,
	"artwork.width_columns":        13,
	"artwork.thumbnail_dir":        "",
	"timing.ui_refresh_ms":         100,
}

// registerFlags declares the command-line flags; they override the file
func registerFlags(fs *pflag.FlagSet) {
	fs.StringP("color", "c", "2", "Set the desired color (name or hex)")
	fs.Bool("no-artwork", false, "Disable album artwork display")
	fs.StringP("library", "l", "", "Path to the library file")
	fs.StringP("name", "n", "nowserving", "Bus name suffix after org.mpris.MediaPlayer2.")
	fs.Bool("headless", false, "Run without the terminal interface")
}

// initConfig loads defaults, the config file, environment and flags into
// v and publishes the result through config
func initConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Set config file location following XDG standard
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Check XDG_CONFIG_HOME first, fallback to ~/.config
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configHome = filepath.Join(homeDir, ".config")
		}
	}

	if configHome != "" {
		v.AddConfigPath(filepath.Join(configHome, "nowserving"))
	}

	// Environment variable support with NOWSERVING_ prefix
	v.SetEnvPrefix("NOWSERVING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	if flags != nil {
		binds := map[string]string{
			"ui.color":     "color",
			"library.path": "library",
			"player.name":  "name",
		}
		for key, flag := range binds {
			if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", flag, err)
			}
		}
		if noArt, err := flags.GetBool("no-artwork"); err == nil && noArt {
			v.Set("artwork.enabled", false)
		}
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	config.Set(cfg)

	// Watch for config file changes and live reload
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg, err := loadConfig(v)
		if err != nil {
			return
		}
		config.Set(newCfg)
		select {
		case configChangeChan <- struct{}{}:
		default:
			// Channel full, skip notification
		}
	})
	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
	}
	return nil
}

// loadConfig unmarshals v and repairs invalid settings
func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if errs := validateConfig(&cfg); len(errs) > 0 {
		printConfigWarnings(errs)
		applyDefaultsForInvalidFields(&cfg, errs)
	}
	return cfg, nil
}

// validateConfig reports every invalid setting
func validateConfig(cfg *Config) []error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, configError{field: field, message: fmt.Sprintf(format, args...)})
	}

	if cfg.Player.Name == "" || strings.ContainsAny(cfg.Player.Name, " /:") {
		add("player.name", "must be a bus name element (got %q)", cfg.Player.Name)
	}
	if !isValidColor(cfg.UI.Color) {
		add("ui.color", "invalid color format '%s'", cfg.UI.Color)
	}
	if cfg.UI.ColorMode != "auto" && cfg.UI.ColorMode != "manual" {
		add("ui.color_mode", "must be 'auto' or 'manual' (got '%s')", cfg.UI.ColorMode)
	}
	if cfg.UI.MaxWidth < 20 {
		add("ui.max_width", "must be at least 20 (got %d)", cfg.UI.MaxWidth)
	}
	if cfg.Artwork.Padding < 0 {
		add("artwork.padding", "must not be negative (got %d)", cfg.Artwork.Padding)
	} else if cfg.UI.MaxWidth >= 20 && cfg.Artwork.Padding >= cfg.UI.MaxWidth {
		add("artwork.padding", "must be less than max_width (got %d)", cfg.Artwork.Padding)
	}
	if cfg.Artwork.WidthPixels <= 0 || cfg.Artwork.WidthPixels > 2000 {
		add("artwork.width_pixels", "must be between 1 and 2000 (got %d)", cfg.Artwork.WidthPixels)
	}
	if cfg.Artwork.WidthColumns <= 0 || cfg.Artwork.WidthColumns > 100 {
		add("artwork.width_columns", "must be between 1 and 100 (got %d)", cfg.Artwork.WidthColumns)
	}
	if cfg.Timing.UIRefreshMs < 10 || cfg.Timing.UIRefreshMs > 10000 {
		add("timing.ui_refresh_ms", "must be between 10 and 10000 (got %d)", cfg.Timing.UIRefreshMs)
	}
	return errs
}

// applyDefaultsForInvalidFields resets each field named in errs
func applyDefaultsForInvalidFields(cfg *Config, errs []error) {
	for _, err := range errs {
		ce, ok := err.(configError)
		if !ok {
			continue
		}
		switch ce.field {
		case "player.name":
			cfg.Player.Name = defaults["player.name"].(string)
		case "ui.color":
			cfg.UI.Color = defaults["ui.color"].(string)
		case "ui.color_mode":
			cfg.UI.ColorMode = defaults["ui.color_mode"].(string)
		case "ui.max_width":
			cfg.UI.MaxWidth = defaults["ui.max_width"].(int)
		case "artwork.padding":
			cfg.Artwork.Padding = defaults["artwork.padding"].(int)
		case "artwork.width_pixels":
			cfg.Artwork.WidthPixels = defaults["artwork.width_pixels"].(int)
		case "artwork.width_columns":
			cfg.Artwork.WidthColumns = defaults["artwork.width_columns"].(int)
		case "timing.ui_refresh_ms":
			cfg.Timing.UIRefreshMs = defaults["timing.ui_refresh_ms"].(int)
		}
	}
}

func printConfigWarnings(errs []error) {
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "Warning: config %v, using default\n", err)
	}
}

// isValidColor accepts ANSI codes 0-255 and #RGB / #RRGGBB hex colors
func isValidColor(color string) bool {
	if color == "" {
		return false
	}
	if color[0] == '#' {
		hex := color[1:]
		if len(hex) != 3 && len(hex) != 6 {
			return false
		}
		for _, c := range hex {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
				return false
			}
		}
		return true
	}
	if len(color) > 3 {
		return false
	}
	n := 0
	for _, c := range color {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	return n <= 255
}
