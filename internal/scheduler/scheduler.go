package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/fuzzall/fuzzall/internal/scanner"
	"github.com/fuzzall/fuzzall/pkg/log"
	"github.com/fuzzall/fuzzall/pkg/report"
)

// TargetRunner executes the fuzz test of a single target to completion,
// capturing its combined output in logPath. A non-nil error means the
// target failed, including the case that the invocation could not be
// started at all.
type TargetRunner interface {
	Run(ctx context.Context, target *scanner.Target, logPath string) error
}

// Job is one invocation of the test runner bound to a single target.
type Job struct {
	Target     *scanner.Target
	Status     report.Status
	LogPath    string
	StartedAt  time.Time
	FinishedAt time.Time
}

type jobResult struct {
	job *Job
	err error
}

type Options struct {
	Targets []*scanner.Target
	Runner  TargetRunner
	Handler report.Handler
	// LogDir is the directory the per-job log files are created in.
	// Each job gets its own file, jobs never share one.
	LogDir string
	// MaxParallelJobs bounds the number of simultaneously running
	// fuzzing processes. Must be at least 1.
	MaxParallelJobs int
	// ContinueOnFailure keeps admitting new jobs after a failure was
	// observed. In-flight jobs always run to completion either way.
	ContinueOnFailure bool
}

func (opts *Options) Validate() error {
	if opts.Runner == nil {
		return errors.New("A target runner must be specified")
	}
	if opts.Handler == nil {
		return errors.New("A report handler must be specified")
	}
	if opts.LogDir == "" {
		return errors.New("A log directory must be specified")
	}
	if opts.MaxParallelJobs < 1 {
		return errors.New("The number of parallel jobs must be at least 1")
	}
	return nil
}

// Scheduler runs every target to completion exactly once, keeping at
// most MaxParallelJobs fuzzing processes alive at the same time.
//
// All scheduler state is owned by the single control loop in Run. The
// launch goroutines do nothing but run the process and send exactly one
// result back, so no locking is needed for the backlog or the running
// count. This also means the Handler is only ever called from the
// control loop.
type Scheduler struct {
	*Options

	cancelMutex sync.Mutex
	cancelRun   context.CancelFunc
}

func NewScheduler(opts *Options) *Scheduler {
	return &Scheduler{Options: opts}
}

// Run executes the fuzz tests of all targets. It returns when every
// admitted job finished. Failing targets don't abort the run and don't
// cause an error, they are reported to the Handler and reflected in
// its summary. An error is only returned for invalid options or when
// ctx was cancelled before the backlog was drained. Jobs which were
// terminated by the cancellation are not failures of their targets and
// get no terminal report.
func (s *Scheduler) Run(ctx context.Context) error {
	err := s.Validate()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancelMutex.Lock()
	s.cancelRun = cancel
	s.cancelMutex.Unlock()

	results := make(chan *jobResult)
	next := 0
	running := 0
	stopAdmitting := false

	for {
		for running < s.MaxParallelJobs && next < len(s.Targets) && !stopAdmitting && ctx.Err() == nil {
			job := &Job{
				Target:  s.Targets[next],
				Status:  report.StatusPending,
				LogPath: filepath.Join(s.LogDir, fmt.Sprintf("job-%03d-%s.log", next+1, s.Targets[next].Name)),
			}
			next++
			s.launchJob(ctx, job, results)
			running++
		}

		// Covers both the drained backlog and an admission stop with
		// no jobs left in flight
		if running == 0 {
			break
		}

		result := <-results
		running--
		s.recordResult(result)

		// The admission check in the next iteration happens strictly
		// after the failure was recorded
		if result.job.Status == report.StatusFailed && !s.ContinueOnFailure && !stopAdmitting {
			stopAdmitting = true
			// Not worth a message when the backlog is drained already
			// or the run is being cancelled anyway
			if next < len(s.Targets) && ctx.Err() == nil {
				log.Error(nil, "Stopping due to failure (use -c to continue on failures)")
			}
		}
	}

	if skipped := len(s.Targets) - next; skipped > 0 {
		log.Debugf("%d fuzz tests were not started", skipped)
	}

	if ctx.Err() != nil {
		return errors.WithStack(ctx.Err())
	}
	return nil
}

// Cleanup terminates all fuzzing processes which are still running.
func (s *Scheduler) Cleanup(ctx context.Context) {
	s.cancelMutex.Lock()
	defer s.cancelMutex.Unlock()
	if s.cancelRun != nil {
		s.cancelRun()
	}
}

func (s *Scheduler) launchJob(ctx context.Context, job *Job, results chan<- *jobResult) {
	job.Status = report.StatusRunning
	job.StartedAt = time.Now()
	s.handleReport(&report.Report{
		Target:    job.Target,
		Status:    job.Status,
		LogPath:   job.LogPath,
		StartedAt: job.StartedAt,
	})

	go func() {
		err := s.Runner.Run(ctx, job.Target, job.LogPath)
		results <- &jobResult{job: job, err: err}
	}()
}

func (s *Scheduler) recordResult(result *jobResult) {
	job := result.job
	job.FinishedAt = time.Now()

	if errors.Is(result.err, context.Canceled) || errors.Is(result.err, context.DeadlineExceeded) {
		// The job didn't fail, it was stopped because the run is
		// shutting down. Interrupted targets get no terminal report, a
		// test that was never allowed to finish has no outcome.
		log.Debugf("Fuzz test %s was stopped: %v", job.Target, result.err)
		return
	}

	if result.err != nil {
		job.Status = report.StatusFailed
		log.Debugf("Fuzz test %s failed: %v", job.Target, result.err)
	} else {
		job.Status = report.StatusSucceeded
	}

	jobReport := &report.Report{
		Target:     job.Target,
		Status:     job.Status,
		LogPath:    job.LogPath,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
	if result.err != nil {
		jobReport.Error = result.err.Error()
	}
	s.handleReport(jobReport)
}

func (s *Scheduler) handleReport(jobReport *report.Report) {
	err := s.Handler.Handle(jobReport)
	if err != nil {
		// Reporting problems must not abort the run, the in-flight
		// fuzzing processes are more valuable than the progress output
		log.Error(err)
	}
}
