package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

// ProgressEstimator infers a pipeline stage and completion percentage from
// provider log text. It exists as an interface so the log-scanning heuristic
// can be swapped for a structured progress protocol without touching the
// health oracle's decision table.
type ProgressEstimator interface {
	Estimate(logs string) (stage string, percent int, ok bool)
}

type logMarker struct {
	pattern string
	stage   string
	percent int
}

// LogStageEstimator scans provider logs for an ordered set of stage markers.
// Logs are append-only, so the marker appearing LAST in the text wins: later
// markers supersede earlier ones. A finer-grained "N/M frames" pattern
// overrides the coarse stage percentage whenever it implies more progress.
type LogStageEstimator struct {
	markers []logMarker
	fracRe  *regexp.Regexp
}

func NewLogStageEstimator() *LogStageEstimator {
	return &LogStageEstimator{
		markers: []logMarker{
			{pattern: "Downloading video", stage: "uploaded", percent: 10},
			{pattern: "Extracting frames", stage: "frames_extracted", percent: 30},
			{pattern: "Running detection", stage: "objects_detected", percent: 55},
			{pattern: "Tracking objects", stage: "motion_tracked", percent: 75},
			{pattern: "Writing analysis", stage: "analyzed", percent: 95},
		},
		fracRe: regexp.MustCompile(`Processed (\d+)/(\d+) frames`),
	}
}

var _ ProgressEstimator = (*LogStageEstimator)(nil)

func (e *LogStageEstimator) Estimate(logs string) (string, int, bool) {
	if logs == "" {
		return "", 0, false
	}

	stage, percent := "", 0
	best := -1
	for _, m := range e.markers {
		if idx := strings.LastIndex(logs, m.pattern); idx > best {
			best = idx
			stage = m.stage
			percent = m.percent
		}
	}
	if best < 0 {
		return "", 0, false
	}

	// Take the last N/M occurrence; earlier ones are stale.
	if matches := e.fracRe.FindAllStringSubmatch(logs, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		n, _ := strconv.Atoi(last[1])
		m, _ := strconv.Atoi(last[2])
		if m > 0 {
			if frac := n * 100 / m; frac > percent {
				percent = frac
			}
		}
	}
	return stage, percent, true
}
