package types

import "time"

// TransferDirection is push (host to device) or pull (device to host).
type TransferDirection string

const (
	DirectionPush TransferDirection = "push"
	DirectionPull TransferDirection = "pull"
)

// ValidTransferDirection reports whether s names a supported direction.
func ValidTransferDirection(s string) bool {
	return TransferDirection(s) == DirectionPush || TransferDirection(s) == DirectionPull
}

// TransferStatus is the lifecycle state of a transfer job.
type TransferStatus string

const (
	TransferQueued       TransferStatus = "queued"
	TransferTransferring TransferStatus = "transferring"
	TransferComplete     TransferStatus = "complete"
	TransferFailed       TransferStatus = "failed"
	TransferCancelled    TransferStatus = "cancelled"
)

// Terminal reports whether the status is one no further transition leaves.
func (s TransferStatus) Terminal() bool {
	return s == TransferComplete || s == TransferFailed || s == TransferCancelled
}

// TransferJob is a point-in-time snapshot of one push/pull unit.
// SizeBytes is 0 when the total is unknown (pull from device), in which
// case progress is indeterminate until completion.
type TransferJob struct {
	ID               string            `json:"id"`
	DeviceID         string            `json:"deviceId"`
	Direction        TransferDirection `json:"direction"`
	FileName         string            `json:"fileName"`
	SourcePath       string            `json:"sourcePath"`
	DestPath         string            `json:"destPath"`
	SizeBytes        uint64            `json:"sizeBytes"`
	TransferredBytes uint64            `json:"transferredBytes"`
	Status           TransferStatus    `json:"status"`
	Error            string            `json:"error,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	CompletedAt      time.Time         `json:"completedAt,omitzero"`
}

// PathPair is one source/destination request item in a submit batch.
type PathPair struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}
