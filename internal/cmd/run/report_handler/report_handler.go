package report_handler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/pkg/report"
	"github.com/fuzzall/fuzzall/util/stringutil"
)

type ReportHandlerOptions struct {
	// TotalTargets is the number of discovered fuzz tests. Targets
	// which were never launched show up as skipped in the summary.
	TotalTargets int
	PrintJSON    bool
	Verbose      bool
	// ErrorLogPath is the optional file failure details are appended to.
	ErrorLogPath string
}

// ReportHandler maintains the running totals of the fuzzing run and
// renders progress and failure output. Reports of concurrent jobs may
// arrive in any order, the handler makes no assumptions about it.
type ReportHandler struct {
	*ReportHandlerOptions

	// ErrorSink receives the failure output of every failed job. It is
	// exported so that the run command can write its closing summary
	// through the same serialized path.
	ErrorSink *ErrorSink

	startedAt   time.Time
	interactive bool
	jobsStarted bool

	succeeded int
	failed    int
}

func NewReportHandler(opts *ReportHandlerOptions) (*ReportHandler, error) {
	// The spinner redraws the current line, which doesn't mix well with
	// verbose logging and is useless outside a terminal
	interactive := term.IsTerminal(int(os.Stderr.Fd())) && !opts.Verbose && !opts.PrintJSON

	return &ReportHandler{
		ReportHandlerOptions: opts,
		ErrorSink:            NewErrorSink(opts.ErrorLogPath),
		// Stored to report the total run time at the end
		startedAt:   time.Now(),
		interactive: interactive,
	}, nil
}

func (h *ReportHandler) Handle(jobReport *report.Report) error {
	// Guarded here instead of relying on Debugf so that the report is
	// only marshalled when the output is actually printed
	if h.Verbose {
		log.Debugf("Received report: %s", stringutil.PrettyString(jobReport))
	}

	switch jobReport.Status {
	case report.StatusRunning:
		if h.interactive && !h.jobsStarted {
			log.CreateCurrentProgressSpinner(nil, log.FuzzingInProgressMsg)
		}
		h.jobsStarted = true
		log.Debugf("Starting fuzz test %s in %s", jobReport.Target.Name, jobReport.Target.SourceFile)
	case report.StatusSucceeded:
		h.succeeded++
		log.Debugf("Fuzz test %s finished after %s", jobReport.Target.Name,
			jobReport.Duration().Round(time.Millisecond))
		h.printProgress()
	case report.StatusFailed:
		h.failed++
		h.reportFailure(jobReport)
		h.printProgress()
	}
	return nil
}

// Summary returns the totals of the run so far. Call it after the
// scheduler returned to get the final counts.
func (h *ReportHandler) Summary() *report.Summary {
	return &report.Summary{
		Total:     h.TotalTargets,
		Succeeded: h.succeeded,
		Failed:    h.failed,
	}
}

// PrintFinalMetrics stops the live progress output and prints the
// closing summary line with the total run time.
func (h *ReportHandler) PrintFinalMetrics() {
	summary := h.Summary()

	line := fmt.Sprintf("Fuzzing completed: %d total, %d failed", summary.Total, summary.Failed)
	if skipped := summary.Skipped(); skipped > 0 {
		line += fmt.Sprintf(", %d skipped", skipped)
	}

	if h.interactive {
		if summary.Success() {
			log.StopCurrentProgressSpinner(log.GetPtermSuccessStyle(), log.FuzzingInProgressSuccessMsg)
		} else {
			log.StopCurrentProgressSpinner(log.GetPtermErrorStyle(), log.FuzzingInProgressErrorMsg)
		}
	}

	if summary.Success() {
		log.Success(line)
	} else {
		log.Error(nil, line)
	}
	log.Infof("Total run time: %s", time.Since(h.startedAt).Round(time.Second))
}

func (h *ReportHandler) printProgress() {
	completed := h.succeeded + h.failed
	remaining := h.TotalTargets - completed
	line := fmt.Sprintf("Progress: %d/%d completed, %d failed, %d remaining",
		completed, h.TotalTargets, h.failed, remaining)
	if h.interactive {
		log.UpdateCurrentProgressSpinner(line)
	} else {
		log.Info(line)
	}
}

func (h *ReportHandler) reportFailure(jobReport *report.Report) {
	details := h.failureDetails(jobReport)

	text := fmt.Sprintf("FAILED: %s in %s\n", jobReport.Target.Name, jobReport.Target.SourceFile)
	if details != "" {
		text += fmt.Sprintf("Details: %s\n", details)
	}
	text += "---"
	h.ErrorSink.Write(text)
}

// failureDetails returns the captured output of the failed job. For
// jobs which never got as far as producing output, the failure cause
// reported by the scheduler is all there is.
func (h *ReportHandler) failureDetails(jobReport *report.Report) string {
	if jobReport.LogPath != "" {
		content, err := os.ReadFile(jobReport.LogPath)
		if err != nil && !os.IsNotExist(err) {
			log.Debugf("Failed to read job log %s: %v", jobReport.LogPath, err)
		}
		if len(content) > 0 {
			return strings.TrimRight(string(content), "\n")
		}
	}
	return jobReport.Error
}
