package types

import "time"

// SessionMode selects what the external mirroring tool streams.
type SessionMode string

const (
	ModeMirror SessionMode = "mirror"
	ModeCamera SessionMode = "camera"
)

// ValidSessionMode reports whether s names a supported mode.
func ValidSessionMode(s string) bool {
	return SessionMode(s) == ModeMirror || SessionMode(s) == ModeCamera
}

// SessionState is the lifecycle state of a mirror/camera session.
// Terminated is transient: a cleanly stopped session is removed from the
// registry, so only crash snapshots ever surface a terminal state.
type SessionState string

const (
	SessionStarting   SessionState = "starting"
	SessionRunning    SessionState = "running"
	SessionStopping   SessionState = "stopping"
	SessionTerminated SessionState = "terminated"
	SessionCrashed    SessionState = "crashed"
)

// SessionKey identifies at most one live session per device and mode.
type SessionKey struct {
	DeviceID string      `json:"deviceId"`
	Mode     SessionMode `json:"mode"`
}

func (k SessionKey) String() string {
	return k.DeviceID + "/" + string(k.Mode)
}

// Session is a point-in-time snapshot of a registry entry, safe to hand
// to the API layer without holding registry locks.
type Session struct {
	DeviceID  string       `json:"deviceId"`
	Mode      SessionMode  `json:"mode"`
	Pid       int          `json:"pid"`
	State     SessionState `json:"state"`
	StartedAt time.Time    `json:"startedAt"`
}

// CameraFacing and orientation values accepted by SessionOptions.
const (
	CameraFacingFront = "front"
	CameraFacingBack  = "back"

	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// SessionOptions carries the per-start tool switches. Mirror sessions only
// read ScreenOff; camera sessions read the camera fields.
type SessionOptions struct {
	ScreenOff    bool   `json:"screenOff,omitempty"`
	CameraFacing string `json:"cameraFacing,omitempty"`
	CameraSize   string `json:"cameraSize,omitempty"`
	NoAudio      bool   `json:"noAudio,omitempty"`
	Orientation  string `json:"orientation,omitempty"`
}
