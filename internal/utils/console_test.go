package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func captureConsole(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	oldOut, oldErr := Stdout, Stderr
	oldNoColor := color.NoColor
	var out, errOut bytes.Buffer
	Stdout, Stderr = &out, &errOut
	color.NoColor = true
	t.Cleanup(func() {
		Stdout, Stderr = oldOut, oldErr
		color.NoColor = oldNoColor
		QuietMode = false
		DebugMode = false
	})
	return &out, &errOut
}

func TestPrintRouting(t *testing.T) {
	out, errOut := captureConsole(t)

	PrintMessage("%d jobs remaining", 12)
	PrintSuccess("done")
	PrintWarning("resubmitting %s", "job.0")
	PrintError("queue is down")

	if got := out.String(); got != "[PSQS] 12 jobs remaining\n[PSQS][PASS] done\n" {
		t.Errorf("stdout = %q", got)
	}
	if !strings.Contains(errOut.String(), "[WARN] resubmitting job.0") {
		t.Errorf("stderr missing warning: %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "[ERR]  queue is down") {
		t.Errorf("stderr missing error: %q", errOut.String())
	}
}

func TestQuietMode(t *testing.T) {
	out, errOut := captureConsole(t)
	QuietMode = true

	PrintMessage("hidden")
	PrintNote("hidden")
	PrintHint("hidden")
	PrintWarning("shown")

	if out.Len() != 0 {
		t.Errorf("quiet mode printed %q", out.String())
	}
	if !strings.Contains(errOut.String(), "shown") {
		t.Errorf("warnings must survive quiet mode, got %q", errOut.String())
	}
}

func TestPrintDebug(t *testing.T) {
	_, errOut := captureConsole(t)

	PrintDebug("invisible")
	if errOut.Len() != 0 {
		t.Fatalf("debug printed without DebugMode: %q", errOut.String())
	}
	DebugMode = true
	PrintDebug("chunk %d", 3)
	if !strings.Contains(errOut.String(), "chunk 3") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestQuietModeSharedWriter(t *testing.T) {
	out, _ := captureConsole(t)
	Stderr = out
	QuietMode = true

	PrintNote("hidden")
	PrintWarning("shown")

	if got := out.String(); got != "[PSQS][WARN] shown\n" {
		t.Errorf("output = %q", got)
	}
}
