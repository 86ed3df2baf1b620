package adb

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/moyoez/gesubridge-go/types"
)

func TestParseDevicesOutput(t *testing.T) {
	out := `List of devices attached
emulator-5554          device product:sdk_gphone64_x86_64 model:sdk_gphone64_x86_64 device:emu64xa transport_id:1
RFCT80XXXXX            unauthorized
192.168.1.100:5555     offline
`
	devices := ParseDevicesOutput(out)
	if len(devices) != 3 {
		t.Fatalf("Expected 3 devices, got %d", len(devices))
	}

	if devices[0].Serial != "emulator-5554" {
		t.Errorf("Expected serial emulator-5554, got %s", devices[0].Serial)
	}
	if devices[0].State != types.DeviceReady {
		t.Errorf("Expected ready state, got %s", devices[0].State)
	}
	if devices[0].Model != "sdk gphone64 x86 64" {
		t.Errorf("Expected underscores replaced in model, got %q", devices[0].Model)
	}

	if devices[1].State != types.DeviceUnauthorized {
		t.Errorf("Expected unauthorized state, got %s", devices[1].State)
	}
	if devices[2].Serial != "192.168.1.100:5555" || devices[2].State != types.DeviceOffline {
		t.Errorf("Unexpected third device: %+v", devices[2])
	}
}

func TestParseDevicesOutputEmpty(t *testing.T) {
	if devices := ParseDevicesOutput("List of devices attached\n\n"); len(devices) != 0 {
		t.Errorf("Expected no devices, got %d", len(devices))
	}
}

func TestRunWithoutPath(t *testing.T) {
	c := NewClient("")
	if _, err := c.Run("devices"); types.KindOf(err) != types.ErrAdbFailed {
		t.Errorf("Expected adb_failed error, got %v", err)
	}
}

// fakeAdb writes a shell script that answers every invocation with the
// given stdout, standing in for the real binary.
func fakeAdb(t *testing.T, stdout string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script adb stand-in")
	}
	script := filepath.Join(t.TempDir(), "adb")
	content := "#!/bin/sh\ncat <<'EOF'\n" + stdout + "EOF\n"
	if err := os.WriteFile(script, []byte(content), 0o755); err != nil {
		t.Fatalf("Failed to write adb stand-in: %v", err)
	}
	return script
}

func TestNetworkSerialReadinessFollowsAdbState(t *testing.T) {
	c := NewClient(fakeAdb(t, "List of devices attached\n203.0.113.9:5555     device\n"))

	// 203.0.113.9 never answers pings; the adb state still wins
	if !c.IsDeviceReady("203.0.113.9:5555") {
		t.Error("ICMP silence must not override the adb device state")
	}
}

func TestPairingPayload(t *testing.T) {
	payload := PairingPayload("192.168.1.2", 37123, "123456")
	if payload != "WIFI:T:ADB;S:192.168.1.2:37123;P:123456;;" {
		t.Errorf("Unexpected pairing payload: %s", payload)
	}
}

func TestPairingQRValidation(t *testing.T) {
	if _, err := PairingQR("", 0, "", 200); types.KindOf(err) != types.ErrInvalidPath {
		t.Errorf("Expected invalid_path error, got %v", err)
	}
	png, err := PairingQR("10.0.0.5", 40001, "654321", 200)
	if err != nil {
		t.Fatalf("PairingQR failed: %v", err)
	}
	if !strings.HasPrefix(string(png), "\x89PNG") {
		t.Error("Expected PNG output")
	}
}
