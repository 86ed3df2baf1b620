package transfer

import (
	"regexp"
	"strconv"
)

// adb rewrites a progress line in place while transferring and prints a
// summary on completion:
//
//	[ 45%] /sdcard/Download/GesuBridge/video.mp4
//	video.mp4: 1 file pushed, 0 skipped. 54.8 MB/s (1048576 bytes in 0.018s)
//
// Parsing is best-effort: lines that match neither pattern are ignored,
// degrading to binary progress without ever failing the transfer.
var (
	percentPattern = regexp.MustCompile(`\[\s*(\d{1,3})%\]`)
	summaryPattern = regexp.MustCompile(`\((\d+)\s+bytes\s+in\s`)
)

// watchProgress consumes the tool's output lines until the stream closes,
// reporting byte counts through update. totalSize of 0 means the total is
// unknown; percent lines are then skipped and only the summary byte count
// is reported, via final.
func watchProgress(lines <-chan string, totalSize uint64, update func(transferred uint64), final func(bytes uint64)) {
	for line := range lines {
		if m := summaryPattern.FindStringSubmatch(line); m != nil {
			if n, err := strconv.ParseUint(m[1], 10, 64); err == nil {
				final(n)
			}
			continue
		}
		if totalSize == 0 {
			continue
		}
		if m := percentPattern.FindStringSubmatch(line); m != nil {
			pct, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil || pct > 100 {
				continue
			}
			update(totalSize * pct / 100)
		}
	}
}
