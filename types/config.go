package types

// AppConfig is the on-disk YAML configuration.
type AppConfig struct {
	AdbPath           string `yaml:"adb_path" json:"adbPath"`
	ScrcpyPath        string `yaml:"scrcpy_path" json:"scrcpyPath"`
	Port              int    `yaml:"port" json:"port"`
	DefaultDeviceDir  string `yaml:"default_device_dir" json:"defaultDeviceDir"`
	TransfersPerDev   int    `yaml:"transfers_per_device" json:"transfersPerDevice"`
	HistoryCapacity   int    `yaml:"history_capacity" json:"historyCapacity"`
	MonitorIntervalMs int    `yaml:"monitor_interval_ms" json:"monitorIntervalMs"`
	TerminateGraceMs  int    `yaml:"terminate_grace_ms" json:"terminateGraceMs"`
	ArchivePath       string `yaml:"archive_path" json:"archivePath"`
}

// Flags holds runtime overrides from CLI flags.
type Flags struct {
	Log           string
	UseConfigPath string
	UsePort       int
	UseAdbPath    string
	UseScrcpyPath string
	SkipArchive   bool
}
