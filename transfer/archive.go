package transfer

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/moyoez/gesubridge-go/types"
)

// Archive persists terminal transfer jobs in SQLite so a UI can show
// history across restarts. It is display data only: the queue never reads
// it back into scheduling state.
type Archive struct {
	db *sql.DB
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS transfers (
	id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	direction TEXT NOT NULL,
	file_name TEXT NOT NULL,
	source_path TEXT NOT NULL,
	dest_path TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	transferred_bytes INTEGER NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	completed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transfers_completed ON transfers(completed_at DESC);
`

// OpenArchive opens (creating when missing) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Append stores one terminal job.
func (a *Archive) Append(j types.TransferJob) error {
	_, err := a.db.Exec(
		`INSERT OR REPLACE INTO transfers
		 (id, device_id, direction, file_name, source_path, dest_path,
		  size_bytes, transferred_bytes, status, error, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.DeviceID, string(j.Direction), j.FileName, j.SourcePath, j.DestPath,
		int64(j.SizeBytes), int64(j.TransferredBytes), string(j.Status), j.Error,
		j.CreatedAt.UnixMilli(), j.CompletedAt.UnixMilli(),
	)
	return err
}

// Recent returns up to limit archived jobs, most recent first.
func (a *Archive) Recent(limit int) ([]types.TransferJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.Query(
		`SELECT id, device_id, direction, file_name, source_path, dest_path,
		        size_bytes, transferred_bytes, status, error, created_at, completed_at
		 FROM transfers ORDER BY completed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []types.TransferJob
	for rows.Next() {
		var j types.TransferJob
		var direction, status string
		var size, transferred, created, completed int64
		if err := rows.Scan(&j.ID, &j.DeviceID, &direction, &j.FileName, &j.SourcePath, &j.DestPath,
			&size, &transferred, &status, &j.Error, &created, &completed); err != nil {
			return nil, err
		}
		j.Direction = types.TransferDirection(direction)
		j.Status = types.TransferStatus(status)
		j.SizeBytes = uint64(size)
		j.TransferredBytes = uint64(transferred)
		j.CreatedAt = time.UnixMilli(created)
		j.CompletedAt = time.UnixMilli(completed)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
