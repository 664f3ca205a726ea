package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// DebugMode is set by --debug.
var DebugMode = false

// QuietMode is set by --quiet. Warnings and errors still print.
var QuietMode = false

// projectPrefix is the standard tag for all logs.
const projectPrefix = "[PSQS]"

// Stdout and Stderr are the destinations of the Print* helpers. Commands
// that print results on stdout send messages to stderr instead.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Raw colors stay private; callers go through the Style helpers.
var (
	red      = color.New(color.FgRed).SprintFunc()
	green    = color.New(color.FgGreen).SprintFunc()
	yellow   = color.New(color.FgYellow).SprintFunc()
	blueBold = color.New(color.FgBlue, color.Bold).SprintFunc()
	magenta  = color.New(color.FgMagenta).SprintFunc()
	cyan     = color.New(color.FgCyan).SprintFunc()
	gray     = color.New(color.FgWhite).SprintFunc() // FgWhite = Gray in ANSI
	bold     = color.New(color.Bold).SprintFunc()
)

// Tag colors.
func StyleSuccess(msg string) string { return green(msg) }
func StyleWarning(msg string) string { return yellow(msg) }
func StyleHint(msg string) string    { return cyan(msg) }
func StyleNote(msg string) string    { return magenta(msg) }
func StyleDebug(msg string) string   { return gray(msg) }

// StyleError colors program errors in read-output listings.
func StyleError(msg string) string { return red(msg) }

// StyleInfo marks config values.
func StyleInfo(msg string) string { return magenta(msg) }

// StyleCommand marks a psqs command line in hints.
func StyleCommand(cmd string) string { return gray(cmd) }

// StyleAction marks the verb in resubmission warnings.
func StyleAction(act string) string { return yellow(act) }

// StyleTitle heads the sections of config show and status.
func StyleTitle(title string) string { return bold(cyan(title)) }

// StyleNumber formats job counts, chunk numbers and energies.
func StyleNumber(num any) string {
	return magenta(fmt.Sprintf("%v", num))
}

// StylePath marks inputs, outputs, scripts and checkpoints.
func StylePath(path string) string { return blueBold(path) }

// StyleName marks job names and config keys.
func StyleName(name string) string { return yellow(name) }

// PrintMessage prints a progress line.
//
//	[PSQS] [iter 12 Fri Oct 16 10:02:11 2026 31.4 s] 118 jobs remaining
func PrintMessage(format string, a ...any) {
	if !QuietMode {
		fmt.Fprintf(Stdout, "%s %s\n", projectPrefix, fmt.Sprintf(format, a...))
	}
}

// tagged writes one "[PSQS][TAG] msg" line. verbose lines are dropped in
// quiet mode.
func tagged(w io.Writer, verbose bool, tag, format string, a []any) {
	if verbose && QuietMode {
		return
	}
	fmt.Fprintf(w, "%s%s %s\n", projectPrefix, tag, fmt.Sprintf(format, a...))
}

// PrintSuccess prints a green-tagged line, e.g. "[PSQS][PASS] Drained 240 jobs".
func PrintSuccess(format string, a ...any) { tagged(Stdout, true, StyleSuccess("[PASS]"), format, a) }

// PrintError prints to Stderr even in quiet mode.
func PrintError(format string, a ...any) { tagged(Stderr, false, StyleError("[ERR] "), format, a) }

// PrintWarning reports recoverable trouble such as a resubmitted job or a
// failed status query. Shown in quiet mode.
func PrintWarning(format string, a ...any) { tagged(Stderr, false, StyleWarning("[WARN]"), format, a) }

// PrintHint suggests the next command after a failure.
func PrintHint(format string, a ...any) { tagged(Stdout, true, StyleHint("[HINT]"), format, a) }

// PrintNote is for end-of-drain summaries (phase timings, cleaned bytes).
func PrintNote(format string, a ...any) { tagged(Stdout, true, StyleNote("[NOTE]"), format, a) }

// PrintDebug prints to Stderr when DebugMode is set.
func PrintDebug(format string, a ...any) {
	if DebugMode {
		tagged(Stderr, false, StyleDebug("[DBG] "), format, a)
	}
}

// IsInteractiveShell reports whether stdout is a terminal. config init
// only prompts when it is.
func IsInteractiveShell() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
