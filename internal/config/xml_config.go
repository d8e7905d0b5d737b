// Package config provides XML-based configuration management with .env overrides.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/portfolio-collage/backend/internal/collage"
)

// PortfolioConfig represents the root XML configuration structure
type PortfolioConfig struct {
	XMLName xml.Name `xml:"PortfolioCollage"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Collage layout and session settings
	Collage CollageConfig `xml:"Collage"`

	// Demo cursor settings
	Simulation SimulationConfig `xml:"Simulation"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains database and asset locations
type StorageConfig struct {
	DataDirectory     string `xml:"DataDirectory"`
	ContentDatabase   string `xml:"ContentDatabase"`
	AnalyticsDatabase string `xml:"AnalyticsDatabase"`
	AssetsDirectory   string `xml:"AssetsDirectory"`
	SeedFile          string `xml:"SeedFile"`
	EnableAnalytics   bool   `xml:"EnableAnalytics"`
}

// CollageConfig contains layout and session lifetime settings
type CollageConfig struct {
	ManifestFile           string  `xml:"ManifestFile"`
	CanvasWidth            float64 `xml:"CanvasWidth"`
	CanvasHeight           float64 `xml:"CanvasHeight"`
	MaxImageSize           float64 `xml:"MaxImageSize"`
	Gap                    float64 `xml:"Gap"`
	Jitter                 float64 `xml:"Jitter"`
	MaxRotation            float64 `xml:"MaxRotationDegrees"`
	Seed                   uint64  `xml:"Seed"`
	SessionTimeoutMinutes  int     `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int     `xml:"CleanupIntervalMinutes"`
}

// SimulationConfig contains demo cursor settings
type SimulationConfig struct {
	Enabled        bool    `xml:"Enabled"`
	MaxCursors     int     `xml:"MaxCursors"`
	TickIntervalMs int     `xml:"TickIntervalMs"`
	Speed          float64 `xml:"Speed"`
	HoldDurationMs int     `xml:"HoldDurationMs"`
	RestingMinMs   int     `xml:"RestingMinMs"`
	RestingMaxMs   int     `xml:"RestingMaxMs"`
	LifespanMinSec int     `xml:"LifespanMinSeconds"`
	LifespanMaxSec int     `xml:"LifespanMaxSeconds"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	EnableRequestLogging    bool `xml:"EnableRequestLogging"`
	AnalyticsFlushSeconds   int  `xml:"AnalyticsFlushSeconds"`
	WebSocketMaxMessageSize int  `xml:"WebSocketMaxMessageSizeKB"`

	// Enables PUT/DELETE on /api/portfolio. Off by default.
	AllowContentEditing bool `xml:"AllowContentEditing"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *PortfolioConfig {
	layout := collage.DefaultLayoutOptions()
	sim := collage.DefaultSimulatorConfig()

	return &PortfolioConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "2M",
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			ContentDatabase:   "./data/portfolio.db",
			AnalyticsDatabase: "./data/analytics.duckdb",
			AssetsDirectory:   "./public",
			SeedFile:          "./data/defaults/portfolio.yaml",
			EnableAnalytics:   true,
		},
		Collage: CollageConfig{
			ManifestFile:           "./data/defaults/collage.yaml",
			CanvasWidth:            layout.CanvasWidth,
			CanvasHeight:           layout.CanvasHeight,
			MaxImageSize:           layout.MaxImageSize,
			Gap:                    layout.Gap,
			Jitter:                 layout.Jitter,
			MaxRotation:            layout.MaxRotation,
			Seed:                   layout.Seed,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
		},
		Simulation: SimulationConfig{
			Enabled:        true,
			MaxCursors:     sim.MaxCursors,
			TickIntervalMs: int(sim.TickInterval / time.Millisecond),
			Speed:          sim.Speed,
			HoldDurationMs: int(sim.HoldDuration / time.Millisecond),
			RestingMinMs:   int(sim.RestingMin / time.Millisecond),
			RestingMaxMs:   int(sim.RestingMax / time.Millisecond),
			LifespanMinSec: int(sim.LifespanMin / time.Second),
			LifespanMaxSec: int(sim.LifespanMax / time.Second),
		},
		Advanced: AdvancedConfig{
			EnableRequestLogging:    true,
			AnalyticsFlushSeconds:   10,
			WebSocketMaxMessageSize: 64,
		},
	}
}

// LoadConfig loads configuration from an XML file, creating it with
// defaults on first run. A .env file next to the config file, if any, is
// loaded before environment overrides are applied.
func LoadConfig(configPath string) (*PortfolioConfig, error) {
	configDir := filepath.Dir(configPath)
	if err := LoadDotEnv(configDir); err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(configDir)

	return config, nil
}

// LoadDotEnv loads dir/.env into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	fmt.Printf("[Config] Loaded environment from %s\n", path)
	return nil
}

// Save saves the configuration to XML file
func (c *PortfolioConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Portfolio Collage Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *PortfolioConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR moves both databases unless they are overridden themselves.
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.ContentDatabase = filepath.Join(dataDir, "portfolio.db")
		c.Storage.AnalyticsDatabase = filepath.Join(dataDir, "analytics.duckdb")
	}
	if db := os.Getenv("CONTENT_DB"); db != "" {
		c.Storage.ContentDatabase = db
	}
	if db := os.Getenv("ANALYTICS_DB"); db != "" {
		c.Storage.AnalyticsDatabase = db
	}
	if assets := os.Getenv("ASSETS_DIR"); assets != "" {
		c.Storage.AssetsDirectory = assets
	}
	if v := os.Getenv("ALLOW_CONTENT_EDITING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Advanced.AllowContentEditing = b
		}
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *PortfolioConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.ContentDatabase,
		&c.Storage.AnalyticsDatabase,
		&c.Storage.AssetsDirectory,
		&c.Storage.SeedFile,
		&c.Collage.ManifestFile,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetServerAddr returns the server bind address
func (c *PortfolioConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SessionTimeout returns how long an untouched collage stays mounted.
func (c *PortfolioConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Collage.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often idle collages are swept.
func (c *PortfolioConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Collage.CleanupIntervalMinutes) * time.Minute
}

// LayoutOptions converts the collage section into layout options.
func (c *PortfolioConfig) LayoutOptions() collage.LayoutOptions {
	return collage.LayoutOptions{
		CanvasWidth:  c.Collage.CanvasWidth,
		CanvasHeight: c.Collage.CanvasHeight,
		MaxImageSize: c.Collage.MaxImageSize,
		Gap:          c.Collage.Gap,
		Jitter:       c.Collage.Jitter,
		MaxRotation:  c.Collage.MaxRotation,
		Seed:         c.Collage.Seed,
	}
}

// SimulatorConfig converts the simulation section, keeping the default
// cursor names and colors.
func (c *PortfolioConfig) SimulatorConfig() collage.SimulatorConfig {
	sim := collage.DefaultSimulatorConfig()
	sim.MaxCursors = c.Simulation.MaxCursors
	sim.TickInterval = time.Duration(c.Simulation.TickIntervalMs) * time.Millisecond
	sim.Speed = c.Simulation.Speed
	sim.HoldDuration = time.Duration(c.Simulation.HoldDurationMs) * time.Millisecond
	sim.RestingMin = time.Duration(c.Simulation.RestingMinMs) * time.Millisecond
	sim.RestingMax = time.Duration(c.Simulation.RestingMaxMs) * time.Millisecond
	sim.LifespanMin = time.Duration(c.Simulation.LifespanMinSec) * time.Second
	sim.LifespanMax = time.Duration(c.Simulation.LifespanMaxSec) * time.Second
	return sim
}

// EnsureDirectories creates all necessary directories
func (c *PortfolioConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		filepath.Dir(c.Storage.ContentDatabase),
		filepath.Dir(c.Storage.AnalyticsDatabase),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
