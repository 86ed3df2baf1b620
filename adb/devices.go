package adb

import (
	"os/exec"
	"strings"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	probing "github.com/prometheus-community/pro-bing"

	"github.com/moyoez/gesubridge-go/tool"
	"github.com/moyoez/gesubridge-go/types"
)

const (
	// readyTTL bounds how long a readiness probe result is trusted, so a
	// burst of start/submit calls does not shell out to adb every time.
	readyTTL = 5 * time.Second

	pingTimeout = 500 * time.Millisecond
)

// Client wraps the adb binary for device discovery and readiness probes.
type Client struct {
	Path string

	// readyCache values are "ready"/"unready"; empty string means missing.
	readyCache *ttlworker.Cache[string, string]
}

func NewClient(path string) *Client {
	return &Client{
		Path:       path,
		readyCache: ttlworker.NewCache[string, string](readyTTL),
	}
}

// Run executes adb with args and returns stdout, wrapping failures.
func (c *Client) Run(args ...string) (string, error) {
	if c.Path == "" {
		return "", types.NewAdbError("adb path is not configured")
	}
	out, err := exec.Command(c.Path, args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", types.NewAdbError("adb %s failed: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", types.NewAdbError("failed to execute adb: %v", err)
	}
	return string(out), nil
}

// ListDevices enumerates connected devices and enriches ready ones with
// android version, manufacturer and model via getprop.
func (c *Client) ListDevices() ([]types.Device, error) {
	out, err := c.Run("devices", "-l")
	if err != nil {
		return nil, err
	}
	devices := ParseDevicesOutput(out)

	for i := range devices {
		if devices[i].State != types.DeviceReady {
			continue
		}
		serial := devices[i].Serial
		if v, err := c.Run("-s", serial, "shell", "getprop", "ro.build.version.release"); err == nil {
			devices[i].AndroidVersion = strings.TrimSpace(v)
		}
		if devices[i].Manufacturer == "" {
			if m, err := c.Run("-s", serial, "shell", "getprop", "ro.product.manufacturer"); err == nil {
				devices[i].Manufacturer = strings.TrimSpace(m)
			}
		}
		if devices[i].Model == "" {
			if m, err := c.Run("-s", serial, "shell", "getprop", "ro.product.model"); err == nil {
				devices[i].Model = strings.TrimSpace(m)
			}
		}
	}
	return devices, nil
}

// ParseDevicesOutput parses `adb devices -l` output.
//
// Example:
//
//	List of devices attached
//	emulator-5554          device product:sdk_gphone64_x86_64 model:sdk_gphone64_x86_64 transport_id:1
//	RFCT80XXXXX            unauthorized
//	192.168.1.100:5555     offline
func ParseDevicesOutput(out string) []types.Device {
	var devices []types.Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		device := types.Device{
			Serial: parts[0],
			State:  types.DeviceStateFrom(parts[1]),
		}
		for _, part := range parts[2:] {
			key, value, found := strings.Cut(part, ":")
			if !found {
				continue
			}
			switch key {
			case "model":
				device.Model = strings.ReplaceAll(value, "_", " ")
			case "manufacturer":
				device.Manufacturer = value
			}
		}
		devices = append(devices, device)
	}
	return devices
}

// IsDeviceReady reports whether the device is in the ready state as seen
// by adb. Results are cached briefly. For network serials a missing ping
// reply is logged as a hint; hosts that drop ICMP still mirror and
// transfer fine, so only the adb state decides.
func (c *Client) IsDeviceReady(serial string) bool {
	if cached := c.readyCache.Get(serial); cached != "" {
		return cached == "ready"
	}
	if host, _, found := strings.Cut(serial, ":"); found && !hostReachable(host) {
		tool.DefaultLogger.Debugf("[Adb] No ping reply from %s, deferring to adb state for %s", host, serial)
	}
	state := "unready"
	if devices, err := c.ListDevices(); err == nil {
		for _, d := range devices {
			if d.Serial == serial && d.State == types.DeviceReady {
				state = "ready"
				break
			}
		}
	}
	c.readyCache.Set(serial, state)
	return state == "ready"
}

// hostReachable pings the host once, unprivileged. Diagnostic only: no
// reply can just mean the host drops ICMP.
func hostReachable(host string) bool {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return true
	}
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = pingTimeout
	if err := pinger.Run(); err != nil {
		return true
	}
	return pinger.Statistics().PacketsRecv > 0
}
