package program

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testMolproTemplate = `memory,1,g
gthresh,energy=1.d-12,zero=1.d-22,oneint=1.d-22,twoint=1.d-22;
gthresh,optgrad=1.d-8,optstep=1.d-8;
nocompress;

geometry={
{{.geom}}
basis={
default,cc-pVTZ-f12
}
set,charge={{.charge}}
set,spin=0
hf,accuracy=16,energy=1.0d-10
{CCSD(T)-F12,thrden=1.0d-8,thrvar=1.0d-10}
{optg,grms=1.d-8,srms=1.d-8}
pbqff=energy
`

func testGeom() *Geom {
	return NewXYZ([]Atom{
		{Label: "O", X: 0, Y: 0, Z: -0.0657},
		{Label: "H", X: 0, Y: 0.7574, Z: 0.5214},
		{Label: "H", X: 0, Y: -0.7574, Z: 0.5214},
	})
}

func TestMolproWriteInputSinglePointDropsOptg(t *testing.T) {
	dir := t.TempDir()
	m := NewMolpro(filepath.Join(dir, "job.0"), NewTemplate(testMolproTemplate), 1, testGeom())
	if err := m.WriteInput(SinglePt); err != nil {
		t.Fatalf("WriteInput failed: %v", err)
	}
	data, err := os.ReadFile(m.Infile())
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if strings.Contains(got, "{optg,") {
		t.Errorf("single point input still contains optg line:\n%s", got)
	}
	if !strings.Contains(got, "optgrad=1.d-8") {
		t.Errorf("optgrad line must survive:\n%s", got)
	}
	if !strings.Contains(got, "set,charge=1") {
		t.Errorf("charge not substituted:\n%s", got)
	}
	if !strings.Contains(got, "O 0.000000000000 0.000000000000 -0.065700000000\n") {
		t.Errorf("geometry not substituted:\n%s", got)
	}
	if !strings.Contains(got, "0.521400000000\n}\nbasis={") {
		t.Errorf("geometry block not closed:\n%s", got)
	}
}

func TestMolproWriteInputOptAddsOptg(t *testing.T) {
	dir := t.TempDir()
	tmpl := strings.Replace(testMolproTemplate, "{optg,grms=1.d-8,srms=1.d-8}\n", "", 1)
	m := NewMolpro(filepath.Join(dir, "opt"), NewTemplate(tmpl), 0, testGeom())
	if err := m.WriteInput(Opt); err != nil {
		t.Fatalf("WriteInput failed: %v", err)
	}
	data, _ := os.ReadFile(m.Infile())
	if got := strings.Count(string(data), molproOptLine); got != 1 {
		t.Errorf("want exactly one optg line, got %d:\n%s", got, data)
	}
}

func TestMolproWriteInputZmatClosesBeforeParameters(t *testing.T) {
	dir := t.TempDir()
	zmat := "O\nH 1 OH\nH 1 OH 2 HOH\n\nOH = 1.0\nHOH = 109.5\n"
	m := NewMolpro(filepath.Join(dir, "z"), NewTemplate("geometry={\n{{.geom}}\n"), 0, NewZmat(zmat))
	if err := m.WriteInput(SinglePt); err != nil {
		t.Fatalf("WriteInput failed: %v", err)
	}
	data, _ := os.ReadFile(m.Infile())
	want := "geometry={\nO\nH 1 OH\nH 1 OH 2 HOH\n\n}\nOH = 1.0\nHOH = 109.5\n"
	if string(data) != want {
		t.Errorf("got\n%q\nwant\n%q", data, want)
	}
}

func TestMolproWriteInputFreqUnsupported(t *testing.T) {
	m := NewMolpro(filepath.Join(t.TempDir(), "f"), NewTemplate(testMolproTemplate), 0, testGeom())
	if err := m.WriteInput(Freq); !errors.Is(err, ErrUnsupportedProcedure) {
		t.Errorf("expected ErrUnsupportedProcedure, got %v", err)
	}
}

func writeOutput(t *testing.T, base, content string) {
	t.Helper()
	if err := os.WriteFile(base+".out", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMolproReadOutput(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string // "" means no file
		wantErr error
		energy  float64
		time    float64
		atoms   int
	}{
		{name: "missing", wantErr: ErrFileNotFound},
		{
			name:    "error",
			content: " ? Error\n ? Basis set not found\n",
			wantErr: ErrErrorInOutput,
		},
		{
			name:    "running",
			content: " PROGRAM * CCSD(T)-F12\n iterating\n",
			wantErr: ErrResultNotFound,
		},
		{
			name:    "garbled",
			content: " PBQFF         =      -76.3*69\n",
			wantErr: ErrResultParse,
		},
		{
			name: "success",
			content: " Current geometry (xyz format, in Angstrom)\n" +
				"\n" +
				"    3\n" +
				" ENERGY=-76.369839607972\n" +
				" O          0.0000000000        0.0000000000       -0.0657441568\n" +
				" H          0.0000000000        0.7574590974        0.5217905143\n" +
				" H          0.0000000000       -0.7574590974        0.5217905143\n" +
				"\n" +
				" PBQFF         =      -76.36983960797178\n" +
				" REAL TIME  *        10.77 SEC\n",
			energy: -76.36983960797178,
			time:   10.77,
			atoms:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := filepath.Join(dir, tt.name)
			if tt.content != "" {
				writeOutput(t, base, tt.content)
			}
			m := NewMolpro(base, Template{}, 0, nil)
			res, err := m.ReadOutput()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				if PathOf(err) != m.Outfile() {
					t.Errorf("error path = %q, want %q", PathOf(err), m.Outfile())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(res.Energy-tt.energy) > 1e-12 {
				t.Errorf("energy = %v, want %v", res.Energy, tt.energy)
			}
			if res.Time != tt.time {
				t.Errorf("time = %v, want %v", res.Time, tt.time)
			}
			if res.Geom == nil || len(res.Geom.Atoms) != tt.atoms {
				t.Fatalf("geometry = %+v, want %d atoms", res.Geom, tt.atoms)
			}
			if res.Geom.Atoms[1].Label != "H" || res.Geom.Atoms[1].Y != 0.7574590974 {
				t.Errorf("unexpected atom %+v", res.Geom.Atoms[1])
			}
		})
	}
}

func TestErrorClassification(t *testing.T) {
	for _, err := range []error{
		NewFileNotFoundError("a"),
		NewResultNotFoundError("b"),
		NewResultParseError("c", errors.New("bad float")),
	} {
		if !IsTransient(err) || IsFatal(err) {
			t.Errorf("%v should be transient", err)
		}
	}
	if err := NewErrorInOutputError("d"); !IsFatal(err) || IsTransient(err) {
		t.Errorf("%v should be fatal", err)
	}
	if !errors.Is(NewErrorInOutputError("d"), &Error{}) {
		t.Errorf("errors.Is should match *Error with no kind")
	}
}

func TestParseGeom(t *testing.T) {
	g, err := ParseGeom("3\ncomment\nO 0 0 0\nH 0 1 0\nH 0 -1 0\n")
	if err != nil {
		t.Fatalf("ParseGeom failed: %v", err)
	}
	if !g.IsXYZ() || len(g.Atoms) != 3 {
		t.Errorf("want 3 xyz atoms, got %+v", g)
	}

	g, err = ParseGeom("O\nH 1 OH\nOH = 1.0\n")
	if err != nil {
		t.Fatalf("ParseGeom failed: %v", err)
	}
	if !g.IsZmat() {
		t.Errorf("want zmat, got %+v", g)
	}

	if _, err := ParseGeom("O 0 0\n"); err == nil {
		t.Errorf("expected error for short atom line")
	}
}
