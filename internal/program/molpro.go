package program

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/ntBre/psqs/internal/utils"
)

var (
	// optg at the end of a line or followed by options, but not optgrad
	molproOptRe     = regexp.MustCompile(`(?im)optg(,|\s*$)`)
	molproOptLineRe = regexp.MustCompile(`(?i)^.*optg(,|\s*$)`)

	molproErrorRe  = regexp.MustCompile(`(?i)\berror\b`)
	molproGeomRe   = regexp.MustCompile(`Current geometry`)
	molproTimeRe   = regexp.MustCompile(`^ REAL TIME`)
	molproEnergyRe = regexp.MustCompile(`^ PBQFF\s+=`)
)

const molproOptLine = "{optg,grms=1.d-8,srms=1.d-8}"

// Molpro is a Molpro job. Filename has no extension; the input is
// Filename.inp and the output Filename.out.
type Molpro struct {
	Name     string   `json:"filename"`
	Template Template `json:"template"`
	Charge   int      `json:"charge"`
	Geom     *Geom    `json:"geom"`
}

// NewMolpro builds a Molpro job. geom is shared, not copied.
func NewMolpro(filename string, tmpl Template, charge int, geom *Geom) *Molpro {
	return &Molpro{Name: filename, Template: tmpl, Charge: charge, Geom: geom}
}

func (m *Molpro) Filename() string        { return m.Name }
func (m *Molpro) SetFilename(name string) { m.Name = name }
func (m *Molpro) Extension() string       { return "inp" }
func (m *Molpro) Infile() string          { return m.Name + ".inp" }
func (m *Molpro) Outfile() string         { return m.Name + ".out" }

func (m *Molpro) AssociatedFiles() []string {
	return []string{m.Infile(), m.Outfile()}
}

// WriteInput renders the template. For Opt the optg line is appended when
// the template lacks one; for SinglePt any optg line is removed. The
// template leaves the geometry block open so a Z-matrix can have its
// closing brace placed before the parameter values.
func (m *Molpro) WriteInput(proc Procedure) error {
	body := m.Template.Header
	foundOpt := molproOptRe.MatchString(body)

	switch proc {
	case Opt:
		if !foundOpt {
			if !strings.HasSuffix(body, "\n") && body != "" {
				body += "\n"
			}
			body += molproOptLine + "\n"
		}
	case SinglePt:
		if foundOpt {
			var kept []string
			for _, line := range strings.Split(body, "\n") {
				if !molproOptLineRe.MatchString(line) {
					kept = append(kept, line)
				}
			}
			body = strings.Join(kept, "\n")
		}
	default:
		return fmt.Errorf("molpro %s: %w", proc, ErrUnsupportedProcedure)
	}

	tmpl, err := template.New(m.Name).Option("missingkey=zero").Parse(body)
	if err != nil {
		return fmt.Errorf("invalid molpro template: %w", err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"geom":   molproGeom(m.Geom),
		"charge": m.Charge,
	})
	if err != nil {
		return fmt.Errorf("failed to render molpro template: %w", err)
	}

	if err := os.WriteFile(m.Infile(), buf.Bytes(), utils.PermFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.Infile(), err)
	}
	return nil
}

// molproGeom closes the geometry block: after the atoms of an XYZ geometry,
// or before the first parameter line of a Z-matrix.
func molproGeom(g *Geom) string {
	text := g.String()
	if !g.IsZmat() {
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		return text + "}"
	}
	var b strings.Builder
	found := false
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if strings.Contains(line, "=") && !found {
			found = true
			b.WriteString("}\n")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if !found {
		b.WriteString("}\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReadOutput scans Filename.out for the PBQFF energy, the REAL TIME line and
// the last "Current geometry" block.
func (m *Molpro) ReadOutput() (*Result, error) {
	outfile := m.Outfile()
	contents, err := os.ReadFile(outfile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewFileNotFoundError(outfile)
		}
		return nil, &Error{Kind: ErrFileNotFound, Path: outfile, Err: err}
	}

	if molproErrorRe.Match(contents) {
		return nil, NewErrorInOutputError(outfile)
	}

	var (
		energy    float64
		hasEnergy bool
		elapsed   float64
		atoms     []Atom
		inGeom    bool
		skip      int
	)
	scanner := bufio.NewScanner(bytes.NewReader(contents))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case skip > 0:
			skip--
		case molproTimeRe.MatchString(line):
			fields := strings.Fields(line)
			if len(fields) < 4 {
				return nil, NewResultParseError(outfile, fmt.Errorf("short time line %q", line))
			}
			v, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, NewResultParseError(outfile, err)
			}
			elapsed = v
		case molproEnergyRe.MatchString(line):
			fields := strings.Fields(line)
			if len(fields) < 3 {
				return nil, NewResultParseError(outfile, fmt.Errorf("short energy line %q", line))
			}
			v, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, NewResultParseError(outfile, err)
			}
			energy, hasEnergy = v, true
		case molproGeomRe.MatchString(line):
			skip = 3
			inGeom = true
			atoms = atoms[:0]
		case inGeom && strings.TrimSpace(line) == "":
			inGeom = false
		case inGeom:
			atom, err := parseAtom(strings.Fields(line))
			if err != nil {
				return nil, NewResultParseError(outfile, err)
			}
			atoms = append(atoms, atom)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, NewResultParseError(outfile, err)
	}

	if !hasEnergy {
		return nil, NewResultNotFoundError(outfile)
	}
	res := &Result{Energy: energy, Time: elapsed}
	if len(atoms) > 0 {
		res.Geom = NewXYZ(atoms)
	}
	return res, nil
}
