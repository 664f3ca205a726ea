package program

import (
	"bufio"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ntBre/psqs/internal/utils"
)

// KCALHT is kcal/mol per hartree.
const KCALHT = 627.5091809

const (
	mopacOptKeywords    = "XYZ A0 scfcrt=1.D-21 aux(precision=14) PM6"
	mopacSingleKeywords = "XYZ 1SCF A0 scfcrt=1.D-21 aux(precision=14) PM6"
)

var mopac1SCFRe = regexp.MustCompile(`(?i)\s*\b1SCF\b`)

// Params are semi-empirical parameters passed to MOPAC through the
// EXTERNAL keyword. Shared by pointer across jobs.
type Params struct {
	Names  []string  `json:"names"`
	Atoms  []string  `json:"atoms"`
	Values []float64 `json:"values"`
}

func (p *Params) String() string {
	var b strings.Builder
	for i, n := range p.Names {
		fmt.Fprintf(&b, "%-8s%8s%20.12f\n", n, p.Atoms[i], p.Values[i])
	}
	return b.String()
}

// Mopac is a MOPAC job. The input is Filename.mop; MOPAC writes .out, .arc
// and .aux next to it.
type Mopac struct {
	Name      string   `json:"filename"`
	Template  Template `json:"template"` // optional keyword line, "{{.charge}}" substituted
	Charge    int      `json:"charge"`
	Geom      *Geom    `json:"geom"`
	Params    *Params  `json:"params,omitempty"`
	ParamDir  string   `json:"param_dir,omitempty"`
	ParamFile string   `json:"param_file,omitempty"`
}

// NewMopac builds a MOPAC job. geom and params are shared, not copied.
func NewMopac(filename string, params *Params, geom *Geom, charge int) *Mopac {
	return &Mopac{
		Name:     filename,
		Charge:   charge,
		Geom:     geom,
		Params:   params,
		ParamDir: "tmparam",
	}
}

func (m *Mopac) Filename() string        { return m.Name }
func (m *Mopac) SetFilename(name string) { m.Name = name }
func (m *Mopac) Extension() string       { return "mop" }
func (m *Mopac) Infile() string          { return m.Name + ".mop" }
func (m *Mopac) Outfile() string         { return m.Name + ".out" }
func (m *Mopac) auxfile() string         { return m.Name + ".aux" }

func (m *Mopac) AssociatedFiles() []string {
	files := []string{m.Name + ".mop", m.Name + ".out", m.Name + ".arc", m.Name + ".aux"}
	if m.ParamFile != "" {
		files = append(files, m.ParamFile)
	}
	return files
}

func (m *Mopac) keywords(proc Procedure) (string, error) {
	if m.Template.Header == "" {
		switch proc {
		case Opt:
			return fmt.Sprintf("%s charge=%d", mopacOptKeywords, m.Charge), nil
		case SinglePt:
			return fmt.Sprintf("%s charge=%d", mopacSingleKeywords, m.Charge), nil
		}
		return "", fmt.Errorf("mopac %s: %w", proc, ErrUnsupportedProcedure)
	}

	kw := strings.TrimRight(m.Template.Header, "\n")
	kw = strings.ReplaceAll(kw, "{{.charge}}", strconv.Itoa(m.Charge))
	has1SCF := mopac1SCFRe.MatchString(kw)
	switch proc {
	case Opt:
		// optimization is MOPAC's default
		kw = mopac1SCFRe.ReplaceAllString(kw, "")
	case SinglePt:
		if !has1SCF {
			kw += " 1SCF"
		}
	default:
		return "", fmt.Errorf("mopac %s: %w", proc, ErrUnsupportedProcedure)
	}
	return kw, nil
}

// WriteInput writes Filename.mop and, when Params is set, the parameter file
// it references.
func (m *Mopac) WriteInput(proc Procedure) error {
	header, err := m.keywords(proc)
	if err != nil {
		return err
	}

	if m.Params != nil {
		dir := m.ParamDir
		if dir == "" {
			dir = "tmparam"
		}
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create param dir %s: %w", dir, err)
		}
		h := fnv.New64a()
		h.Write([]byte(m.Name))
		m.ParamFile = filepath.Join(dir, strconv.FormatUint(h.Sum64(), 10))
		if err := os.WriteFile(m.ParamFile, []byte(m.Params.String()), utils.PermFile); err != nil {
			return fmt.Errorf("failed to write params %s: %w", m.ParamFile, err)
		}
		header += " external=" + m.ParamFile
	}

	body := fmt.Sprintf("%s\nComment line 1\nComment line 2\n%s\n", header, m.Geom.String())
	if err := os.WriteFile(m.Infile(), []byte(body), utils.PermFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.Infile(), err)
	}
	return nil
}

// ReadOutput looks for the normal-termination marker in Filename.out and
// then takes the heat of formation and geometry from Filename.aux.
func (m *Mopac) ReadOutput() (*Result, error) {
	outfile := m.Outfile()
	f, err := os.Open(outfile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewFileNotFoundError(outfile)
		}
		return nil, &Error{Kind: ErrFileNotFound, Path: outfile, Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToUpper(scanner.Text())
		if strings.Contains(line, "ERROR") {
			return nil, NewErrorInOutputError(outfile)
		}
		if strings.Contains(line, " == MOPAC DONE ==") {
			return m.readAux()
		}
	}
	return nil, NewResultNotFoundError(outfile)
}

// readAux returns the heat of formation in hartrees. A line looks like
// HEAT_OF_FORMATION:KCAL/MOL=+0.97127947459164715838D+02
func (m *Mopac) readAux() (*Result, error) {
	auxfile := m.auxfile()
	f, err := os.Open(auxfile)
	if err != nil {
		return nil, NewFileNotFoundError(auxfile)
	}
	defer f.Close()

	res := &Result{}
	ok := false
	inGeom := false
	var atoms []Atom
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "HEAT_OF_FORMATION"):
			_, value, found := strings.Cut(strings.TrimSpace(line), "=")
			if !found {
				return nil, NewResultParseError(auxfile, fmt.Errorf("no value in %q", line))
			}
			v, err := utils.ParseFortranFloat(value)
			if err != nil {
				return nil, NewResultParseError(auxfile, err)
			}
			res.Energy = v / KCALHT
			ok = true
		case strings.Contains(line, "ATOM_X_OPT"):
			inGeom = true
		case inGeom && strings.Contains(line, "ATOM_CHARGES"):
			inGeom = false
		case inGeom:
			fields := strings.Fields(line)
			if len(fields) != 3 {
				return nil, NewResultParseError(auxfile, fmt.Errorf("bad geometry line %q", line))
			}
			var xyz [3]float64
			for i, s := range fields {
				v, err := utils.ParseFortranFloat(s)
				if err != nil {
					return nil, NewResultParseError(auxfile, err)
				}
				xyz[i] = v
			}
			label := ""
			if idx := len(atoms); m.Geom != nil && idx < len(m.Geom.Atoms) {
				label = m.Geom.Atoms[idx].Label
			}
			atoms = append(atoms, Atom{Label: label, X: xyz[0], Y: xyz[1], Z: xyz[2]})
			ok = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, NewResultParseError(auxfile, err)
	}
	if !ok {
		return nil, NewResultNotFoundError(auxfile)
	}
	if len(atoms) > 0 {
		res.Geom = NewXYZ(atoms)
	}
	return res, nil
}
