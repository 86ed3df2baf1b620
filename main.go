package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moyoez/gesubridge-go/adb"
	"github.com/moyoez/gesubridge-go/api"
	"github.com/moyoez/gesubridge-go/api/notifyhub"
	"github.com/moyoez/gesubridge-go/runner"
	"github.com/moyoez/gesubridge-go/session"
	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/transfer"
)

func main() {
	flags := tool.SetFlags()
	appCfg, err := tool.LoadConfig(flags.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	if flags.UsePort > 0 {
		appCfg.Port = flags.UsePort
	}
	if flags.UseAdbPath != "" {
		appCfg.AdbPath = flags.UseAdbPath
	}
	if flags.UseScrcpyPath != "" {
		appCfg.ScrcpyPath = flags.UseScrcpyPath
	}
	tool.SetCurrentConfig(appCfg)

	tool.InitLogger()
	tool.SetLogMode(flags.Log)

	hub := notifyhub.New()
	adbClient := adb.NewClient(appCfg.AdbPath)
	execRunner := runner.NewExecRunner(time.Duration(appCfg.TerminateGraceMs) * time.Millisecond)

	var archive *transfer.Archive
	if !flags.SkipArchive {
		archive, err = transfer.OpenArchive(appCfg.ArchivePath)
		if err != nil {
			tool.DefaultLogger.Warnf("Transfer archive unavailable, continuing without it: %v", err)
			archive = nil
		}
	}

	registry := session.NewRegistry(execRunner, adbClient, hub, func() string {
		return tool.GetCurrentConfig().ScrcpyPath
	})
	monitor := session.NewMonitor(registry, time.Duration(appCfg.MonitorIntervalMs)*time.Millisecond)
	monitor.Start()

	queue := transfer.NewQueue(execRunner, adbClient, hub, archiverOrNil(archive), transfer.Options{
		PerDevice:       appCfg.TransfersPerDev,
		HistoryCapacity: appCfg.HistoryCapacity,
		AdbPath: func() string {
			return tool.GetCurrentConfig().AdbPath
		},
		DefaultDeviceDir: func() string {
			return tool.GetCurrentConfig().DefaultDeviceDir
		},
	})
	queue.Start()

	apiServer := api.NewServer(appCfg.Port, registry, queue, archive, adbClient, hub)
	go func() {
		if err := apiServer.Start(); err != nil {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	// No session survives the daemon: stop watchers, interrupt transfers,
	// terminate every live mirror/camera process, then close up.
	tool.DefaultLogger.Info("Shutting down")
	_ = apiServer.Close()
	monitor.Stop()
	queue.Shutdown()
	registry.Shutdown()
	if archive != nil {
		_ = archive.Close()
	}
}

// archiverOrNil avoids handing the queue a typed-nil interface value.
func archiverOrNil(a *transfer.Archive) transfer.Archiver {
	if a == nil {
		return nil
	}
	return a
}
