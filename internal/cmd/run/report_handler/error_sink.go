package report_handler

import (
	"os"
	"sync"

	"github.com/alexflint/go-filemutex"
	"github.com/pkg/errors"

	"github.com/fuzzall/fuzzall/pkg/log"
)

// ErrorSink surfaces failure text on the error stream and optionally
// appends it to a persistent error log file. Each Write lands as one
// contiguous block, concurrent failures are never interleaved
// mid-message.
type ErrorSink struct {
	errorLogPath string

	// mutex serializes writers within this process, the file lock
	// below only guards against other processes
	mutex sync.Mutex
}

// NewErrorSink returns a sink for failure output. When errorLogPath is
// empty, failures only go to the error stream.
func NewErrorSink(errorLogPath string) *ErrorSink {
	return &ErrorSink{errorLogPath: errorLogPath}
}

// Write reports the failure text. Problems with the error log file are
// logged but never fail the run, losing the fuzzing progress over a
// reporting problem would be worse.
func (s *ErrorSink) Write(text string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	log.Error(nil, text)

	if s.errorLogPath == "" {
		return
	}
	err := s.appendToFile(text)
	if err != nil {
		log.Errorf(err, "Failed to write to error file %s: %v", s.errorLogPath, err)
	}
}

func (s *ErrorSink) appendToFile(text string) error {
	// Acquire a file lock to avoid races with other fuzzall processes
	// writing to the same error file
	mutex, err := filemutex.New(s.errorLogPath + ".lock")
	if err != nil {
		return errors.WithStack(err)
	}
	err = mutex.Lock()
	if err != nil {
		return errors.WithStack(err)
	}

	err = s.append(text)

	// Release the file lock
	unlockErr := mutex.Unlock()
	if err == nil {
		return errors.WithStack(unlockErr)
	}
	if unlockErr != nil {
		log.Error(unlockErr)
	}
	return err
}

func (s *ErrorSink) append(text string) error {
	file, err := os.OpenFile(s.errorLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	if len(text) > 0 && text[len(text)-1] != '\n' {
		text += "\n"
	}
	_, err = file.WriteString(text)
	return errors.WithStack(err)
}
