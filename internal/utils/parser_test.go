package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"5":        5 * time.Second,
		"90s":      90 * time.Second,
		"1h30m":    90 * time.Minute,
		"2:30":     2*time.Hour + 30*time.Minute,
		"00:00:05": 5 * time.Second,
	}
	for input, want := range cases {
		got, err := ParseDuration(input)
		if err != nil {
			t.Errorf("ParseDuration(%q) unexpected error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDuration(%q) = %v; want %v", input, got, want)
		}
	}

	for _, bad := range []string{"", "abc", "1:2:3:4"} {
		if _, err := ParseDuration(bad); err == nil {
			t.Errorf("ParseDuration(%q) expected error", bad)
		}
	}
}

func TestParseFortranFloat(t *testing.T) {
	got, err := ParseFortranFloat("+0.97127947459164715838D+02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := 97.127947459164715838; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, err := ParseFortranFloat("not-a-number"); err == nil {
		t.Errorf("expected error for malformed float")
	}
}

func TestCopyFileIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "job.inp")
	dst := filepath.Join(dir, "job_redo.inp")
	content := []byte("memory,1,g\n\tgeometry={\nH 0 0 0\n}\n\x00trailing")
	if err := os.WriteFile(src, content, PermFile); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("copy differs: got %q want %q", got, content)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "chk.json")
	if err := WriteFileAtomic(path, []byte("{}")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "{}" {
		t.Fatalf("unexpected content %q (err %v)", got, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %v", entries)
	}
}

func TestSplitExt(t *testing.T) {
	base, ext := SplitExt("inp/job.0.inp")
	if base != "inp/job.0" || ext != "inp" {
		t.Errorf("SplitExt = (%q, %q)", base, ext)
	}
	base, ext = SplitExt("inp/job")
	if base != "inp/job" || ext != "" {
		t.Errorf("SplitExt without ext = (%q, %q)", base, ext)
	}
}

func TestModTimeMissingFile(t *testing.T) {
	if !ModTime(filepath.Join(t.TempDir(), "nope")).IsZero() {
		t.Errorf("expected zero time for missing file")
	}
}
