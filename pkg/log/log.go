package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/pterm/pterm"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// Output is the stream all log functions write to. It defaults to
// stderr so that stdout stays reserved for machine-readable output.
// Tests replace it to capture log output.
var Output io.Writer = os.Stderr

func init() {
	// Respect the NO_COLOR convention and don't emit escape sequences
	// when stderr is not attached to a terminal.
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stderr.Fd())) {
		DisableColor()
	}
}

// DisableColor turns off all styling, for terminals which don't
// support it and for output which is piped to other tools.
func DisableColor() {
	color.Disable()
	pterm.DisableColor()
}

func log(style *pterm.Style, a ...any) {
	s := fmt.Sprint(a...)
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	if style != nil {
		s = style.Sprint(s)
	}

	// An active spinner redraws its line on every tick, so clear the
	// line before writing to avoid mangled output.
	if currentProgressSpinner != nil {
		s = "\r\x1b[0K" + s
	}

	_, _ = fmt.Fprint(Output, s)
}

// Debug prints a low-level status message. Only shown in verbose mode.
func Debug(a ...any) {
	if !viper.GetBool("verbose") {
		return
	}
	log(pterm.Debug.MessageStyle, a...)
}

func Debugf(format string, a ...any) {
	Debug(fmt.Sprintf(format, a...))
}

// Info prints a regular user-facing status message.
func Info(a ...any) {
	log(nil, a...)
}

func Infof(format string, a ...any) {
	Info(fmt.Sprintf(format, a...))
}

// Success prints a confirmation that an operation went well.
func Success(a ...any) {
	log(GetPtermSuccessStyle(), a...)
}

func Successf(format string, a ...any) {
	Success(fmt.Sprintf(format, a...))
}

// Note prints a message which should stand out from regular status
// output without signalling a problem.
func Note(a ...any) {
	log(&pterm.Style{pterm.FgLightCyan}, a...)
}

func Notef(format string, a ...any) {
	Note(fmt.Sprintf(format, a...))
}

// Warn prints a message about a problem which doesn't stop the run.
func Warn(a ...any) {
	log(&pterm.Style{pterm.FgYellow, pterm.Bold}, a...)
}

func Warnf(format string, a ...any) {
	Warn(fmt.Sprintf(format, a...))
}

// Error prints an error message. If no message is provided, the
// message of the error itself is printed. In verbose mode the error's
// stack trace is printed as well.
func Error(err error, a ...any) {
	if len(a) == 0 && err != nil {
		a = []any{err.Error()}
	}
	log(GetPtermErrorStyle(), a...)
	printStackTrace(err)
}

func Errorf(err error, format string, a ...any) {
	log(GetPtermErrorStyle(), fmt.Sprintf(format, a...))
	printStackTrace(err)
}

func printStackTrace(err error) {
	if err == nil || !viper.GetBool("verbose") {
		return
	}
	// %+v prints the stack trace for errors created via
	// github.com/pkg/errors
	log(pterm.Debug.MessageStyle, fmt.Sprintf("%+v", err))
}

// Print prints a message without any decoration.
func Print(a ...any) {
	log(nil, a...)
}

func Printf(format string, a ...any) {
	Print(fmt.Sprintf(format, a...))
}
