package main

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// validConfig returns a config that passes validation
func validConfig() Config {
	cfg := Config{}
	cfg.Player.Name = "nowserving"
	cfg.UI.Color = "2"
	cfg.UI.ColorMode = "manual"
	cfg.UI.MaxWidth = 45
	cfg.Artwork.Enabled = true
	cfg.Artwork.Padding = 15
	cfg.Artwork.WidthPixels = 300
	cfg.Artwork.WidthColumns = 13
	cfg.Timing.UIRefreshMs = 100
	return cfg
}

// TestSafeConfigConcurrency tests that SafeConfig can be safely accessed from multiple goroutines
func TestSafeConfigConcurrency(t *testing.T) {
	sc := &SafeConfig{}
	sc.Set(validConfig())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := validConfig()
				cfg.UI.MaxWidth = 40 + id
				cfg.Artwork.Enabled = j%2 == 0
				sc.Set(cfg)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cfg := sc.Get()
				_ = cfg.UI.MaxWidth
				_ = cfg.Artwork.Enabled
			}
		}()
	}
	wg.Wait()
}

// TestSafeConfigGetReturnsCopy tests that Get() returns a copy, not a reference
func TestSafeConfigGetReturnsCopy(t *testing.T) {
	sc := &SafeConfig{}
	sc.Set(validConfig())

	got := sc.Get()
	got.UI.Color = "9"
	got.Player.Name = "changed"

	again := sc.Get()
	assertEqual(t, again.UI.Color, "2", "color")
	assertEqual(t, again.Player.Name, "nowserving", "player name")
}

// TestIsValidColor tests the color validation function
func TestIsValidColor(t *testing.T) {
	tests := []struct {
		name  string
		color string
		valid bool
	}{
		// ANSI codes
		{"ansi single digit", "1", true},
		{"ansi triple digit", "255", true},
		{"ansi zero", "0", true},
		{"ansi out of range", "256", false},
		{"ansi with letter", "1a", false},

		// Hex colors
		{"hex 6 digits", "#FF5733", true},
		{"hex lowercase", "#ff5733", true},
		{"hex 3 digits", "#F00", true},
		{"hex no hash", "FF5733", false},
		{"hex invalid char", "#GG5733", false},
		{"hex wrong length", "#FF57", false},

		// Edge cases
		{"empty", "", false},
		{"just hash", "#", false},
		{"spaces", " 1 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isValidColor(tt.color); got != tt.valid {
				t.Errorf("isValidColor(%q) = %v; want %v", tt.color, got, tt.valid)
			}
		})
	}
}

// TestValidateConfig tests configuration validation one field at a time
func TestValidateConfig(t *testing.T) {
	if errs := validateConfig(&Config{}); len(errs) == 0 {
		t.Error("Expected errors for zero config")
	}
	cfg := validConfig()
	if errs := validateConfig(&cfg); len(errs) > 0 {
		t.Fatalf("Expected no errors for valid config, got %v", errs)
	}

	tests := []struct {
		name   string
		field  string
		mutate func(*Config)
	}{
		{"empty player name", "player.name", func(c *Config) { c.Player.Name = "" }},
		{"player name with dot path", "player.name", func(c *Config) { c.Player.Name = "a/b" }},
		{"invalid color", "ui.color", func(c *Config) { c.UI.Color = "invalid" }},
		{"invalid color_mode", "ui.color_mode", func(c *Config) { c.UI.ColorMode = "sometimes" }},
		{"max_width too small", "ui.max_width", func(c *Config) { c.UI.MaxWidth = 10 }},
		{"negative padding", "artwork.padding", func(c *Config) { c.Artwork.Padding = -5 }},
		{"padding exceeds max_width", "artwork.padding", func(c *Config) { c.Artwork.Padding = 50 }},
		{"width_pixels zero", "artwork.width_pixels", func(c *Config) { c.Artwork.WidthPixels = 0 }},
		{"width_pixels too large", "artwork.width_pixels", func(c *Config) { c.Artwork.WidthPixels = 4000 }},
		{"width_columns too large", "artwork.width_columns", func(c *Config) { c.Artwork.WidthColumns = 101 }},
		{"ui_refresh_ms too fast", "timing.ui_refresh_ms", func(c *Config) { c.Timing.UIRefreshMs = 5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			errs := validateConfig(&cfg)
			if len(errs) != 1 {
				t.Fatalf("Expected exactly one error, got %v", errs)
			}
			ce, ok := errs[0].(configError)
			if !ok {
				t.Fatalf("Expected configError, got %T", errs[0])
			}
			assertEqual(t, ce.field, tt.field, "field")
		})
	}
}

// TestValidationIntegration runs validate -> apply defaults -> re-validate
func TestValidationIntegration(t *testing.T) {
	cfg := Config{}
	cfg.UI.Color = "999"
	cfg.UI.ColorMode = "invalid"
	cfg.UI.MaxWidth = 10
	cfg.Artwork.Padding = -5
	cfg.Artwork.WidthPixels = 0
	cfg.Artwork.WidthColumns = 13
	cfg.Timing.UIRefreshMs = 5

	errs := validateConfig(&cfg)
	if len(errs) < 7 {
		t.Fatalf("Expected at least 7 errors, got %d: %v", len(errs), errs)
	}

	applyDefaultsForInvalidFields(&cfg, errs)

	if newErrs := validateConfig(&cfg); len(newErrs) > 0 {
		t.Errorf("Expected no errors after applying defaults, got %v", newErrs)
	}
	assertEqual(t, cfg.Player.Name, "nowserving", "player name")
	assertEqual(t, cfg.UI.Color, "2", "color")
	assertEqual(t, cfg.UI.ColorMode, "auto", "color_mode")
	assertEqual(t, cfg.UI.MaxWidth, 45, "max_width")
	assertEqual(t, cfg.Artwork.Padding, 16, "padding")
	assertEqual(t, cfg.Artwork.WidthPixels, 300, "width_pixels")
	assertEqual(t, cfg.Artwork.WidthColumns, 13, "width_columns untouched")
	assertEqual(t, cfg.Timing.UIRefreshMs, 100, "ui_refresh_ms")
}

func TestPrintConfigWarnings(t *testing.T) {
	// Output goes to stderr; only check it doesn't panic
	printConfigWarnings([]error{
		configError{field: "ui.max_width", message: "must be at least 20 (got 5)"},
		configError{field: "ui.color", message: "invalid color format 'notacolor'"},
	})
}

// TestInitConfig checks that flags beat the environment, which beats the
// config file, which beats the defaults
func TestInitConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("NOWSERVING_UI_MAX_WIDTH", "60")

	dir := filepath.Join(home, "nowserving")
	assertNoError(t, os.MkdirAll(dir, 0o755))
	file := []byte(`player:
  name: fromfile
  identity: Now Serving
capabilities:
  playlists: false
ui:
  color: "#ff0000"
  max_width: 50
`)
	assertNoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), file, 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	registerFlags(flags)
	assertNoError(t, flags.Parse([]string{"--name", "fromflag", "--no-artwork"}))

	assertNoError(t, initConfig(viper.New(), flags))
	cfg := config.Get()

	assertEqual(t, cfg.Player.Name, "fromflag", "flag beats file")
	assertEqual(t, cfg.Player.Identity, "Now Serving", "identity from file")
	assertEqual(t, cfg.UI.Color, "#ff0000", "color from file")
	assertEqual(t, cfg.UI.MaxWidth, 60, "env beats file")
	assertEqual(t, cfg.Artwork.Enabled, false, "--no-artwork")
	assertEqual(t, cfg.Capabilities.Playlists, false, "playlists from file")
	assertEqual(t, cfg.Capabilities.TrackList, true, "tracklist default")
	assertEqual(t, cfg.Timing.UIRefreshMs, 100, "refresh default")
}

func TestInitConfigWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	assertNoError(t, initConfig(viper.New(), nil))
	cfg := config.Get()

	assertEqual(t, cfg.Player.Name, "nowserving", "player name")
	assertEqual(t, cfg.UI.ColorMode, "auto", "color_mode")
	assertEqual(t, cfg.Artwork.Enabled, true, "artwork")
	assertEqual(t, cfg.Capabilities.CanRaise, false, "can_raise")
	assertEqual(t, cfg.Library.Path, "", "library")
}
