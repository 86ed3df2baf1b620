package types

// Notification event types pushed over the notify WebSocket.
const (
	NotifyTypeSessionStarted   = "session_started"
	NotifyTypeSessionStopped   = "session_stopped"
	NotifyTypeSessionCrashed   = "session_crashed"
	NotifyTypeTransferQueued   = "transfer_queued"
	NotifyTypeTransferStarted  = "transfer_started"
	NotifyTypeTransferProgress = "transfer_progress"
	NotifyTypeTransferDone     = "transfer_done"
)

// Notification is one event message pushed to connected UI clients.
type Notification struct {
	Type    string         `json:"type,omitempty"`
	Title   string         `json:"title,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}
