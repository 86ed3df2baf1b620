package adb

import (
	"sort"
	"strconv"
	"strings"

	"github.com/moyoez/gesubridge-go/types"
)

// DefaultBrowsePath is where browsing starts when the caller gives no
// path; user-visible storage lives under it on stock Android.
const DefaultBrowsePath = "/sdcard"

// ListFiles lists directories and regular files at remotePath on the
// device, directories first. The UI drives this to discover pull sources
// and push destinations.
func (c *Client) ListFiles(serial, remotePath string) ([]types.DeviceFile, error) {
	if remotePath == "" {
		remotePath = DefaultBrowsePath
	}
	if !strings.HasPrefix(remotePath, "/") {
		return nil, types.NewInvalidPathError("remote path must be absolute: %s", remotePath)
	}
	out, err := c.Run("-s", serial, "shell", "ls", "-la", quoteRemotePath(remotePath))
	if err != nil {
		return nil, err
	}
	if strings.Contains(out, "No such file or directory") {
		return nil, types.NewInvalidPathError("no such path on device: %s", remotePath)
	}
	return ParseLsOutput(out, remotePath), nil
}

// ParseLsOutput parses `ls -la` output from an Android shell into
// directory and regular-file entries.
//
// Example:
//
//	total 64
//	drwxrwx--x 43 media_rw media_rw 4096 2024-01-30 10:30 .
//	drwxrwx--x  4 media_rw media_rw 4096 2023-11-02 08:12 DCIM
//	-rw-rw----  1 u0_a123  u0_a123  12345 2024-01-30 10:30 clip 01.mp4
//
// Device-side symlinks, sockets and the like are skipped; so are hidden
// entries. The mtime columns pass through verbatim, the device shell's
// format is already what the UI shows.
func ParseLsOutput(out, basePath string) []types.DeviceFile {
	var files []types.DeviceFile
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "total") {
			continue
		}
		if strings.Contains(line, ": Permission denied") || strings.Contains(line, ": No such file or directory") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 8 {
			continue
		}
		isDir := strings.HasPrefix(parts[0], "d")
		if !isDir && !strings.HasPrefix(parts[0], "-") {
			continue
		}
		// names may contain spaces, everything past the time column is one
		name := strings.Join(parts[7:], " ")
		if name == "." || name == ".." || strings.HasPrefix(name, ".") {
			continue
		}
		entry := types.DeviceFile{
			Name:     name,
			Path:     joinRemote(basePath, name),
			IsDir:    isDir,
			Modified: parts[5] + " " + parts[6],
		}
		if !isDir {
			if size, err := strconv.ParseUint(parts[4], 10, 64); err == nil {
				entry.SizeBytes = size
			}
		}
		files = append(files, entry)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].IsDir != files[j].IsDir {
			return files[i].IsDir
		}
		return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
	})
	return files
}

// quoteRemotePath single-quotes a path for the device shell, so names
// with spaces survive adb's argument rejoining.
//
//	/sdcard/It's Me -> '/sdcard/It'\''s Me'
func quoteRemotePath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

func joinRemote(base, name string) string {
	if strings.HasSuffix(base, "/") {
		return base + name
	}
	return base + "/" + name
}
