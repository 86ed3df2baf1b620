package tool

import (
	"flag"

	"github.com/moyoez/gesubridge-go/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Flags {
	var cfg types.Flags
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override API listen port")
	flag.StringVar(&cfg.UseAdbPath, "useAdbPath", "", "override adb executable path")
	flag.StringVar(&cfg.UseScrcpyPath, "useScrcpyPath", "", "override scrcpy executable path")
	flag.BoolVar(&cfg.SkipArchive, "skipArchive", false, "disable the transfer history archive")
	flag.Parse()
	return cfg
}
