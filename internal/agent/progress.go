package agent

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// maxScannerBuffer caps the line buffer a progress scanner will grow to,
// mirroring the line-scanning ceiling used throughout this module's
// subprocess output handling.
const maxScannerBuffer = 1 << 20 // 1 MiB

// progressMarker is the documented textual token a worker writes to stdout
// to report completion percentage.
const progressMarker = "FORGE_PROGRESS"

// completionPhrases are heuristic stand-ins for a worker that never emits
// an explicit FORGE_PROGRESS marker but does announce completion in text.
var completionPhrases = []string{"done", "complete", "finished"}

// scanProgress reads lines from r, forwarding any FORGE_PROGRESS percentage
// (or a heuristic 100 on a completion phrase) to sink with a non-blocking
// send. It runs until r is exhausted or yields a scan error, and never
// blocks the underlying reader — callers run it in its own goroutine over a
// TeeReader so output capture is unaffected.
func scanProgress(r io.Reader, sink chan<- int) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScannerBuffer)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if pct, ok := parseProgressLine(line); ok {
			sendProgress(sink, pct)
			continue
		}
		lower := strings.ToLower(line)
		for _, phrase := range completionPhrases {
			if strings.Contains(lower, phrase) {
				sendProgress(sink, 100)
				break
			}
		}
	}
}

// parseProgressLine extracts the percentage from a line containing
// "FORGE_PROGRESS <0-100>" anywhere in its text.
func parseProgressLine(line string) (int, bool) {
	idx := strings.Index(line, progressMarker)
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimSpace(line[idx+len(progressMarker):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}
	pct, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

func sendProgress(sink chan<- int, pct int) {
	if sink == nil {
		return
	}
	select {
	case sink <- pct:
	default:
	}
}
