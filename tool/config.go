package tool

import (
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/moyoez/gesubridge-go/types"
)

var (
	ConfigPath = "config.yaml" // be aware that it can be changed, default to ./config.yaml

	// currentConfig is read per spawn by registry and queue goroutines
	// while PATCH /config replaces it, hence the atomic pointer.
	currentConfig atomic.Pointer[types.AppConfig]
)

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		AdbPath:           "", // resolved from PATH when empty
		ScrcpyPath:        "",
		Port:              53327,
		DefaultDeviceDir:  "Download/GesuBridge",
		TransfersPerDev:   1,
		HistoryCapacity:   50,
		MonitorIntervalMs: 2000,
		TerminateGraceMs:  3000,
		ArchivePath:       "transfers.db",
	}
}

// LoadConfig reads the YAML config at path (ConfigPath when empty),
// creating it with defaults when missing. Empty tool paths are resolved
// from PATH so a stock install needs no config edits at all.
func LoadConfig(path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := defaultConfig()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := writeConfig(path, cfg); writeErr != nil {
				return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
			}
			DefaultLogger.Infof("Created new config file at %s", path)
			resolveToolPaths(&cfg)
			SetCurrentConfig(cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}

	normalizeConfig(&cfg)
	resolveToolPaths(&cfg)
	SetCurrentConfig(cfg)
	return cfg, nil
}

func normalizeConfig(cfg *types.AppConfig) {
	def := defaultConfig()
	if cfg.Port <= 0 {
		cfg.Port = def.Port
	}
	if cfg.DefaultDeviceDir == "" {
		cfg.DefaultDeviceDir = def.DefaultDeviceDir
	}
	if cfg.TransfersPerDev <= 0 {
		cfg.TransfersPerDev = def.TransfersPerDev
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = def.HistoryCapacity
	}
	if cfg.MonitorIntervalMs <= 0 {
		cfg.MonitorIntervalMs = def.MonitorIntervalMs
	}
	if cfg.TerminateGraceMs <= 0 {
		cfg.TerminateGraceMs = def.TerminateGraceMs
	}
}

// resolveToolPaths fills empty tool paths from PATH. A path that stays
// empty means the tool is unavailable; spawn attempts will fail cleanly.
func resolveToolPaths(cfg *types.AppConfig) {
	if cfg.AdbPath == "" {
		if p, err := exec.LookPath("adb"); err == nil {
			cfg.AdbPath = p
			DefaultLogger.Debugf("Resolved adb from PATH: %s", p)
		}
	}
	if cfg.ScrcpyPath == "" {
		if p, err := exec.LookPath("scrcpy"); err == nil {
			cfg.ScrcpyPath = p
			DefaultLogger.Debugf("Resolved scrcpy from PATH: %s", p)
		}
	}
}

func writeConfig(path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// GetCurrentConfig returns the latest config snapshot. The snapshot is
// immutable; mutate a copy and hand it to PersistAppConfig.
func GetCurrentConfig() *types.AppConfig {
	if cfg := currentConfig.Load(); cfg != nil {
		return cfg
	}
	cfg := defaultConfig()
	return &cfg
}

// SetCurrentConfig replaces the in-memory config snapshot.
func SetCurrentConfig(cfg types.AppConfig) {
	currentConfig.Store(&cfg)
}

// PersistAppConfig updates the in-memory config and writes it back to disk.
func PersistAppConfig(cfg *types.AppConfig) {
	if cfg == nil {
		return
	}
	normalizeConfig(cfg)
	SetCurrentConfig(*cfg)
	if err := writeConfig(ConfigPath, *cfg); err != nil {
		DefaultLogger.Warnf("Failed to persist config: %v", err)
	}
}
