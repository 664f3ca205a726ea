// Package manifest loads the YAML job lists drained by psqs.
//
// Example manifest:
//
//	program: molpro
//	procedure: sp
//	template: molpro.in
//	charge: 0
//	geom: |
//	  O 0.000000 0.000000 -0.065775
//	  H 0.000000 0.759061 0.521953
//	  H 0.000000 -0.759061 0.521953
//	jobs:
//	  - name: job.0000000
//	    index: 0
//	  - name: job.0000001
//	    index: 0
//	    coeff: -1
//	    geom: |
//	      O 0.0 0.0 0.0
//	      H 0.0 0.757 0.587
//	      H 0.0 -0.757 0.587
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ntBre/psqs/internal/config"
	"github.com/ntBre/psqs/internal/drain"
	"github.com/ntBre/psqs/internal/program"
	"gopkg.in/yaml.v3"
)

// Manifest is a validated job list.
type Manifest struct {
	// Program is "molpro" or "mopac".
	Program string `yaml:"program"`

	// Procedure is "sp" (default) or "opt".
	Procedure string `yaml:"procedure,omitempty"`

	// Template names a template file, resolved next to the manifest and then
	// in the template search path. TemplateText gives the body inline.
	Template     string `yaml:"template,omitempty"`
	TemplateText string `yaml:"template_text,omitempty"`

	Charge int `yaml:"charge,omitempty"`

	// Geom is shared by every job that does not carry its own.
	Geom string `yaml:"geom,omitempty"`

	// Params are MOPAC semi-empirical parameters.
	Params []Param `yaml:"params,omitempty"`

	// Size is the destination length. Defaults to the largest index + 1.
	Size int `yaml:"size,omitempty"`

	Jobs []JobSpec `yaml:"jobs"`

	path string
}

// Param is one MOPAC parameter line.
type Param struct {
	Name  string  `yaml:"name"`
	Atom  string  `yaml:"atom"`
	Value float64 `yaml:"value"`
}

// JobSpec is one job. Coeff defaults to 1.
type JobSpec struct {
	Name  string   `yaml:"name"`
	Index int      `yaml:"index"`
	Coeff *float64 `yaml:"coeff,omitempty"`
	Geom  string   `yaml:"geom,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes parses and validates a manifest. path is used for error
// messages and to resolve a relative template.
func LoadFromBytes(data []byte, path string) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidManifest, path)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: invalid YAML in %s: %v", ErrInvalidManifest, path, err)
	}
	m.path = path

	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.ApplyDefaults()
	return &m, nil
}

// Validate checks the fields that have no default.
func (m *Manifest) Validate() error {
	var errs []error
	if _, err := program.ParseKind(m.Program); err != nil {
		errs = append(errs, err)
	}
	if proc, err := program.ParseProcedure(m.Procedure); err != nil {
		errs = append(errs, err)
	} else if proc == program.Freq {
		errs = append(errs, fmt.Errorf("procedure %s is not supported by a drain", proc))
	}
	if m.Template != "" && m.TemplateText != "" {
		errs = append(errs, errors.New("template and template_text are mutually exclusive"))
	}
	if len(m.Jobs) == 0 {
		errs = append(errs, errors.New("no jobs"))
	}
	if m.Size < 0 {
		errs = append(errs, fmt.Errorf("negative size %d", m.Size))
	}

	seen := make(map[string]bool, len(m.Jobs))
	for i, job := range m.Jobs {
		switch {
		case job.Name == "":
			errs = append(errs, fmt.Errorf("job %d has no name", i))
		case seen[job.Name]:
			errs = append(errs, fmt.Errorf("job %d: duplicate name %q", i, job.Name))
		}
		seen[job.Name] = true
		if job.Index < 0 {
			errs = append(errs, fmt.Errorf("job %d: negative index %d", i, job.Index))
		}
		if m.Size > 0 && job.Index >= m.Size {
			errs = append(errs, fmt.Errorf("job %d: index %d outside size %d", i, job.Index, m.Size))
		}
		if job.Geom == "" && m.Geom == "" {
			errs = append(errs, fmt.Errorf("job %d: no geometry and no shared geom", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, errors.Join(errs...))
	}
	return nil
}

// ApplyDefaults fills in the size and coefficients.
func (m *Manifest) ApplyDefaults() {
	if m.Size == 0 {
		for _, job := range m.Jobs {
			m.Size = max(m.Size, job.Index+1)
		}
	}
	for i := range m.Jobs {
		if m.Jobs[i].Coeff == nil {
			one := 1.0
			m.Jobs[i].Coeff = &one
		}
	}
}

// Kind returns the validated program kind.
func (m *Manifest) Kind() program.Kind {
	k, _ := program.ParseKind(m.Program)
	return k
}

// Proc returns the validated procedure.
func (m *Manifest) Proc() program.Procedure {
	p, _ := program.ParseProcedure(m.Procedure)
	return p
}

// LoadTemplate returns the inline template or reads the named one. A
// manifest without either gets an empty template.
func (m *Manifest) LoadTemplate() (program.Template, error) {
	if m.TemplateText != "" {
		return program.NewTemplate(m.TemplateText), nil
	}
	if m.Template == "" {
		return program.Template{}, nil
	}
	path, err := config.FindTemplate(m.Template, filepath.Dir(m.path))
	if err != nil {
		return program.Template{}, err
	}
	return program.LoadTemplate(path)
}

// MolproJobs builds the Molpro jobs, writing into dir.
func (m *Manifest) MolproJobs(dir string) ([]*drain.Job[*program.Molpro], error) {
	if m.Kind() != program.KindMolpro {
		return nil, fmt.Errorf("%w: want molpro, have %s", ErrWrongProgram, m.Program)
	}
	tmpl, err := m.LoadTemplate()
	if err != nil {
		return nil, err
	}
	return buildJobs(m, dir, func(name string, geom *program.Geom) *program.Molpro {
		return program.NewMolpro(name, tmpl, m.Charge, geom)
	})
}

// MopacJobs builds the MOPAC jobs, writing into dir. All jobs share one
// parameter set.
func (m *Manifest) MopacJobs(dir string) ([]*drain.Job[*program.Mopac], error) {
	if m.Kind() != program.KindMopac {
		return nil, fmt.Errorf("%w: want mopac, have %s", ErrWrongProgram, m.Program)
	}
	tmpl, err := m.LoadTemplate()
	if err != nil {
		return nil, err
	}
	var params *program.Params
	if len(m.Params) > 0 {
		params = &program.Params{}
		for _, p := range m.Params {
			params.Names = append(params.Names, p.Name)
			params.Atoms = append(params.Atoms, p.Atom)
			params.Values = append(params.Values, p.Value)
		}
	}
	return buildJobs(m, dir, func(name string, geom *program.Geom) *program.Mopac {
		p := program.NewMopac(name, params, geom, m.Charge)
		p.Template = tmpl
		p.ParamDir = filepath.Join(dir, p.ParamDir)
		return p
	})
}

// buildJobs parses the shared geometry once and hands the same pointer to
// every job without its own.
func buildJobs[P program.Program](m *Manifest, dir string, newProgram func(name string, geom *program.Geom) P) ([]*drain.Job[P], error) {
	var shared *program.Geom
	if m.Geom != "" {
		g, err := program.ParseGeom(m.Geom)
		if err != nil {
			return nil, fmt.Errorf("%w: shared geom: %w", ErrInvalidManifest, err)
		}
		shared = g
	}

	jobs := make([]*drain.Job[P], 0, len(m.Jobs))
	for _, spec := range m.Jobs {
		geom := shared
		if spec.Geom != "" {
			g, err := program.ParseGeom(spec.Geom)
			if err != nil {
				return nil, fmt.Errorf("%w: job %s: %w", ErrInvalidManifest, spec.Name, err)
			}
			geom = g
		}
		job := drain.NewJob(newProgram(filepath.Join(dir, spec.Name), geom), spec.Index)
		if spec.Coeff != nil {
			job.Coeff = *spec.Coeff
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
