package types

// DeviceState mirrors the adb connection states.
type DeviceState string

const (
	DeviceReady        DeviceState = "ready"
	DeviceUnauthorized DeviceState = "unauthorized"
	DeviceOffline      DeviceState = "offline"
	DeviceUnknown      DeviceState = "unknown"
)

// DeviceStateFrom maps a raw `adb devices` state token to a DeviceState.
func DeviceStateFrom(s string) DeviceState {
	switch s {
	case "device":
		return DeviceReady
	case "unauthorized":
		return DeviceUnauthorized
	case "offline":
		return DeviceOffline
	}
	return DeviceUnknown
}

// Device is one connected peripheral as reported by adb.
type Device struct {
	Serial         string      `json:"serial"`
	State          DeviceState `json:"state"`
	Model          string      `json:"model,omitempty"`
	Manufacturer   string      `json:"manufacturer,omitempty"`
	AndroidVersion string      `json:"androidVersion,omitempty"`
}

// DeviceFile is one entry of a device-side directory listing. The UI
// browses these to pick pull sources and push destinations.
type DeviceFile struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	IsDir     bool   `json:"isDir"`
	SizeBytes uint64 `json:"sizeBytes,omitempty"`
	Modified  string `json:"modified,omitempty"`
}
