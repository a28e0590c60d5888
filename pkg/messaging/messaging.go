package messaging

import (
	"fmt"
	"os"
	"time"

	"github.com/gen2brain/beeep"
	"golang.org/x/term"

	"github.com/fuzzall/fuzzall/pkg/detect_ci"
	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/pkg/report"
)

// Runs shorter than this finish before the user's attention moves
// elsewhere, notifying about them would just be noise.
const notificationThreshold = 30 * time.Second

// NotifyRunFinished sends a desktop notification about the outcome of
// a long fuzzing run. It does nothing for short runs and outside of
// interactive sessions.
func NotifyRunFinished(summary *report.Summary, duration time.Duration) {
	if duration < notificationThreshold {
		return
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}
	// CI runs have no desktop session to notify
	if detect_ci.IsCI() {
		return
	}

	err := beeep.Notify("fuzzall", completionMessage(summary), "")
	if err != nil {
		// Not having a notification daemon is common, only worth a
		// debug line
		log.Debugf("Failed to send desktop notification: %v", err)
	}
}

func completionMessage(summary *report.Summary) string {
	if summary.Success() {
		return fmt.Sprintf("All %d fuzz tests passed", summary.Total)
	}
	return fmt.Sprintf("%d of %d fuzz tests failed", summary.Failed, summary.Total)
}
