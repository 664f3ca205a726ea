package program

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Atom is one Cartesian center of an XYZ geometry.
type Atom struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Geom is either a list of XYZ atoms or Z-matrix text. Jobs built from the
// same geometry share one *Geom and never mutate it.
type Geom struct {
	Atoms []Atom `json:"xyz,omitempty"`
	Zmat  string `json:"zmat,omitempty"`
}

// NewXYZ wraps atoms in a Geom.
func NewXYZ(atoms []Atom) *Geom {
	return &Geom{Atoms: atoms}
}

// NewZmat wraps Z-matrix text in a Geom.
func NewZmat(zmat string) *Geom {
	return &Geom{Zmat: zmat}
}

func (g *Geom) IsZmat() bool { return g != nil && g.Zmat != "" }

func (g *Geom) IsXYZ() bool { return g != nil && g.Zmat == "" }

// String renders the geometry for an input file, one atom per line.
func (g *Geom) String() string {
	if g == nil {
		return ""
	}
	if g.IsZmat() {
		return g.Zmat
	}
	var b strings.Builder
	for _, a := range g.Atoms {
		fmt.Fprintf(&b, "%s %.12f %.12f %.12f\n", a.Label, a.X, a.Y, a.Z)
	}
	return b.String()
}

// ParseGeom reads an XYZ block (optionally with the atom-count and comment
// header lines) or a Z-matrix. A line holding a single alphabetic field
// starts a Z-matrix.
func ParseGeom(s string) (*Geom, error) {
	var atoms []Atom
	skip := 0
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		switch {
		case skip > 0:
			skip--
			continue
		case len(fields) == 0:
			continue
		case len(fields) == 1:
			if isAlpha(fields[0]) {
				return NewZmat(s), nil
			}
			// atom count of an XYZ file, followed by a comment line
			skip = 1
			continue
		}
		atom, err := parseAtom(fields)
		if err != nil {
			return nil, fmt.Errorf("invalid geometry line %q: %w", line, err)
		}
		atoms = append(atoms, atom)
	}
	if len(atoms) == 0 {
		return nil, fmt.Errorf("empty geometry")
	}
	return NewXYZ(atoms), nil
}

func parseAtom(fields []string) (Atom, error) {
	if len(fields) != 4 {
		return Atom{}, fmt.Errorf("want 4 fields, got %d", len(fields))
	}
	var coords [3]float64
	for i := range coords {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return Atom{}, err
		}
		coords[i] = v
	}
	return Atom{Label: fields[0], X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
