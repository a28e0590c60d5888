package log

import (
	"github.com/pterm/pterm"
)

const (
	FuzzingInProgressMsg        string = "Fuzzing in progress..."
	FuzzingInProgressSuccessMsg string = "Fuzzing in progress... Done."
	FuzzingInProgressErrorMsg   string = "Fuzzing in progress... Error."
)

func GetPtermErrorStyle() *pterm.Style {
	return &pterm.Style{pterm.FgRed, pterm.Bold}
}

func GetPtermSuccessStyle() *pterm.Style {
	return &pterm.Style{pterm.FgGreen}
}

// Set this, so it can be checked and used in the logging process
// to ensure correct output
var currentProgressSpinner *pterm.SpinnerPrinter

func CreateCurrentProgressSpinner(style *pterm.Style, msg string) {
	// error can be ignored here since pterm doesn't return one
	currentProgressSpinner, _ = pterm.DefaultSpinner.Start(msg)
	if style != nil {
		currentProgressSpinner.Style = style
		currentProgressSpinner.MessageStyle = style
	}
}

// UpdateCurrentProgressSpinner replaces the text of the running
// spinner, used for live progress counts.
func UpdateCurrentProgressSpinner(msg string) {
	if currentProgressSpinner == nil {
		return
	}
	currentProgressSpinner.UpdateText(msg)
}

func StopCurrentProgressSpinner(style *pterm.Style, msg string) {
	if currentProgressSpinner == nil {
		return
	}

	if style != nil {
		currentProgressSpinner.Style = style
		currentProgressSpinner.MessageStyle = style
	}

	if msg != "" {
		currentProgressSpinner.UpdateText(msg)
	}

	// error can be ignored here since pterm doesn't return one
	currentProgressSpinner.RemoveWhenDone = false
	_ = currentProgressSpinner.Stop()
	currentProgressSpinner = nil
}
